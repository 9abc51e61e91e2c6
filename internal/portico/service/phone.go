package service

import "strings"

// NormalizeNumber strips a single leading "+" and then every non-digit, so
// "+1 (555) 123-4567" becomes "15551234567".  An empty result means the
// caller could not be identified.
func NormalizeNumber(raw string) string {
	raw = strings.TrimPrefix(raw, "+")
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatPhone renders a normalized number as "+C (AAA) BBB-CCCC", treating
// the last ten digits as the national number and the rest as country code.
// Numbers shorter than ten digits are returned with a "+" prefix only.
func FormatPhone(number string) string {
	if len(number) < 10 {
		return "+" + number
	}
	cc := number[:len(number)-10]
	local := number[len(number)-10:]
	return "+" + cc + " (" + local[:3] + ") " + local[3:6] + "-" + local[6:]
}
