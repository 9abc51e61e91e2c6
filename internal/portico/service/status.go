package service

import (
	"fmt"
	"math"
	"time"
)

// CheckInStatus describes a check-in scheduled at target as seen at now.
//
//	"expired"              the grace window has passed
//	"closing in N minutes" less than an hour of the window remains
//	"open"                 the scheduled time has arrived
//	"in N minutes|hours|days", or the date when a week or more away
//
// A future check-in already admits its caller; the relative form only tells
// the host when the guest is expected.
func CheckInStatus(target, now time.Time, grace time.Duration) string {
	closeAt := target.Add(grace)
	if !now.Before(closeAt) {
		return "expired"
	}

	if left := closeAt.Sub(now); left < time.Hour {
		return "closing in " + plural(int(math.Ceil(left.Minutes())), "minute")
	}

	if !now.Before(target) {
		return "open"
	}

	until := target.Sub(now)
	switch {
	case until < time.Minute:
		return "in less than a minute"
	case until < time.Hour:
		return "in " + plural(int(math.Round(until.Minutes())), "minute")
	case until < 24*time.Hour:
		return "in " + plural(int(math.Round(until.Hours())), "hour")
	case until < 7*24*time.Hour:
		return "in " + plural(int(math.Round(until.Hours()/24)), "day")
	default:
		return "on " + target.UTC().Format("Mon, Jan 2 2006 15:04 MST")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
