package service

import "errors"

var (
	// ErrInvalidCaller means the caller identity normalized to nothing.
	ErrInvalidCaller = errors.New("caller number is required")

	// ErrStoreUnavailable wraps store failures that prevent a decision.
	ErrStoreUnavailable = errors.New("record store unavailable")

	ErrInvalidNumber  = errors.New("phone number is required")
	ErrInvalidUserID  = errors.New("user_id is required")
	ErrInvalidCheckIn = errors.New("check-in requires property and time")
)
