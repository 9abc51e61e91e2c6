// Package twiml renders the instruction documents the telephony provider
// executes in response to an inbound call.
package twiml

import (
	tw "github.com/twilio/twilio-go/twiml"

	"github.com/BrandonDHaskell/Portico/internal/portico/types"
)

const ContentType = "text/xml; charset=utf-8"

// rejectReason is what the provider reports to the caller's carrier.
const rejectReason = "rejected"

// Verbs maps an access decision to what the caller hears.
func Verbs(d types.CallDecision) []tw.Element {
	switch d.Outcome {
	case types.OutcomeGranted:
		name := d.GuestName
		if name == "" {
			name = "user"
		}
		verbs := []tw.Element{
			&tw.VoiceSay{Message: "You are on time, " + name + "."},
			&tw.VoiceSay{Message: "Access granted."},
		}
		if d.DTMF != "" {
			// Play with Digits sends DTMF tones down the line.
			verbs = append(verbs, &tw.VoicePlay{Digits: d.DTMF})
		}
		return verbs
	case types.OutcomeDenied:
		return []tw.Element{
			&tw.VoiceSay{Message: "You are not on time."},
			&tw.VoiceSay{Message: "Access not granted."},
		}
	default:
		return []tw.Element{
			&tw.VoiceSay{Message: "You are not a registered property. Rejecting."},
			&tw.VoiceReject{Reason: rejectReason},
		}
	}
}

// Render returns the complete <Response> document, XML declaration included.
func Render(d types.CallDecision) ([]byte, error) {
	doc, err := tw.Voice(Verbs(d))
	if err != nil {
		return nil, err
	}
	return []byte(doc), nil
}
