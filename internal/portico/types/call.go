package types

// Outcome is the terminal state of one inbound call.
type Outcome string

const (
	OutcomeGranted      Outcome = "granted"
	OutcomeDenied       Outcome = "denied"
	OutcomeNotPermitted Outcome = "not_permitted"
)

// CallDecision is what the access engine hands back to the telephony layer.
type CallDecision struct {
	Outcome Outcome `json:"outcome"`
	Caller  string  `json:"caller"`
	UserID  string  `json:"user_id,omitempty"`

	// Set only on a grant.
	CheckInID string `json:"check_in_id,omitempty"`
	GuestName string `json:"guest_name,omitempty"`
	DTMF      string `json:"dtmf,omitempty"` // empty means no tone is played

	DecidedAtMs int64 `json:"decided_at_ms"`
}

func (d CallDecision) Granted() bool { return d.Outcome == OutcomeGranted }
