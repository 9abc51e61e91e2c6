package types

type UserFailure struct {
	UserID string `json:"user_id"`
	Error  string `json:"error"`
}

// SweepReport summarizes one expiration pass across all users.
type SweepReport struct {
	StartedAtMs  int64         `json:"started_at_ms"`
	FinishedAtMs int64         `json:"finished_at_ms"`
	Users        int           `json:"users"`
	Deleted      int           `json:"deleted"`
	Retained     int           `json:"retained"`
	Failures     []UserFailure `json:"failures,omitempty"`
}

// OK reports whether every user was processed without error.
func (r SweepReport) OK() bool { return len(r.Failures) == 0 }

// Map renders the report with JSON-compatible values only, for transports
// that carry it as a generic struct.
func (r SweepReport) Map() map[string]any {
	failures := make([]any, 0, len(r.Failures))
	for _, f := range r.Failures {
		failures = append(failures, map[string]any{"user_id": f.UserID, "error": f.Error})
	}
	return map[string]any{
		"ok":             r.OK(),
		"started_at_ms":  r.StartedAtMs,
		"finished_at_ms": r.FinishedAtMs,
		"users":          r.Users,
		"deleted":        r.Deleted,
		"retained":       r.Retained,
		"failures":       failures,
	}
}
