package store

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found")

// CheckIn is a time-bounded reservation that lets a caller through the door
// of one property line.  TimeMs is the scheduled check-in time in UTC epoch
// milliseconds.
type CheckIn struct {
	ID       string
	Property string // normalized number of the property line
	TimeMs   int64
	Name     string // optional guest display name
}

// Property is a line callers dial.  DTMF is the digit sequence the door
// controller expects before it releases the lock.
type Property struct {
	Number  string
	Name    string
	Address string
	DTMF    string
}

// CallLogEntry is one append-only call record.
type CallLogEntry struct {
	CalledAtMs int64
	Caller     string
	Success    bool
}

// DirectoryStore maps normalized phone numbers to their owning user.
type DirectoryStore interface {
	LookupOwner(ctx context.Context, number string) (userID string, found bool, err error)
	PutOwner(ctx context.Context, number, userID string) error
	DeleteOwner(ctx context.Context, number string) error
}

// CheckInStore holds per-user check-ins and the sweep-maintained active count.
//
// ListCheckIns returns check-ins in insertion order.  Callers rely on this
// order when more than one check-in is eligible for the same call.
type CheckInStore interface {
	ListUsers(ctx context.Context) ([]string, error)
	ListCheckIns(ctx context.Context, userID string) ([]CheckIn, error)
	AddCheckIn(ctx context.Context, userID string, c CheckIn) (CheckIn, error)
	UpdateCheckIn(ctx context.Context, userID string, c CheckIn) error
	DeleteCheckIn(ctx context.Context, userID, checkInID string) error
	SetActiveCheckIns(ctx context.Context, userID string, n int) error
	ActiveCheckIns(ctx context.Context, userID string) (int, error)
}

type PropertyStore interface {
	GetProperty(ctx context.Context, userID, number string) (Property, bool, error)
	ListProperties(ctx context.Context, userID string) ([]Property, error)
	PutProperty(ctx context.Context, userID string, p Property) error
	DeleteProperty(ctx context.Context, userID, number string) error
}

// CallLogStore persists call records and the historic call counter.
//
// IncrementHistoricCalls must be a single atomic read-modify-write: concurrent
// increments for the same user never lose an update.
type CallLogStore interface {
	AppendCall(ctx context.Context, userID string, e CallLogEntry) error
	ListCalls(ctx context.Context, userID string) ([]CallLogEntry, error)
	IncrementHistoricCalls(ctx context.Context, userID string) (int64, error)
	HistoricCalls(ctx context.Context, userID string) (int64, error)
}

// Store is the full record store.  Every backend in this module implements it.
type Store interface {
	DirectoryStore
	CheckInStore
	PropertyStore
	CallLogStore
}
