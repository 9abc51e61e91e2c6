package store

import "github.com/google/uuid"

// NewCheckInID returns a time-ordered identifier so that lexical order of IDs
// matches insertion order.
func NewCheckInID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
