package service_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/BrandonDHaskell/Portico/internal/portico/store"
	"github.com/BrandonDHaskell/Portico/internal/portico/store/memory"
)

var errInjected = errors.New("injected store failure")

// fixedClock returns a Now func that always reports t.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// faultyStore wraps the in-memory store and fails selected operations.
type faultyStore struct {
	*memory.Store

	mu             sync.Mutex
	failLookup     bool
	failList       bool
	failProperty   bool
	failAppend     bool
	failIncrement  bool
	failListUsers  bool
	failDeleteFor  map[string]bool // userID -> DeleteCheckIn fails
	failListFor    map[string]bool // userID -> ListCheckIns fails
	appendAttempts int
}

func newFaultyStore() *faultyStore {
	return &faultyStore{
		Store:         memory.New(),
		failDeleteFor: map[string]bool{},
		failListFor:   map[string]bool{},
	}
}

func (f *faultyStore) LookupOwner(ctx context.Context, number string) (string, bool, error) {
	if f.failLookup {
		return "", false, errInjected
	}
	return f.Store.LookupOwner(ctx, number)
}

func (f *faultyStore) ListUsers(ctx context.Context) ([]string, error) {
	if f.failListUsers {
		return nil, errInjected
	}
	return f.Store.ListUsers(ctx)
}

func (f *faultyStore) ListCheckIns(ctx context.Context, userID string) ([]store.CheckIn, error) {
	if f.failList || f.failListFor[userID] {
		return nil, errInjected
	}
	return f.Store.ListCheckIns(ctx, userID)
}

func (f *faultyStore) DeleteCheckIn(ctx context.Context, userID, id string) error {
	if f.failDeleteFor[userID] {
		return errInjected
	}
	return f.Store.DeleteCheckIn(ctx, userID, id)
}

func (f *faultyStore) GetProperty(ctx context.Context, userID, number string) (store.Property, bool, error) {
	if f.failProperty {
		return store.Property{}, false, errInjected
	}
	return f.Store.GetProperty(ctx, userID, number)
}

func (f *faultyStore) AppendCall(ctx context.Context, userID string, e store.CallLogEntry) error {
	f.mu.Lock()
	f.appendAttempts++
	f.mu.Unlock()
	if f.failAppend {
		return errInjected
	}
	return f.Store.AppendCall(ctx, userID, e)
}

func (f *faultyStore) IncrementHistoricCalls(ctx context.Context, userID string) (int64, error) {
	if f.failIncrement {
		return 0, errInjected
	}
	return f.Store.IncrementHistoricCalls(ctx, userID)
}

func (f *faultyStore) AppendAttempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.appendAttempts
}
