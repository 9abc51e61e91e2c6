package memory

import (
	"context"

	"github.com/BrandonDHaskell/Portico/internal/portico/store"
)

// AppendCall adds a record to the user's append-only call log.
func (s *Store) AppendCall(_ context.Context, userID string, e store.CallLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	u.calls = append(u.calls, e)
	return nil
}

// ListCalls returns a copy of the user's call log in append order.
func (s *Store) ListCalls(_ context.Context, userID string) ([]store.CallLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	out := make([]store.CallLogEntry, len(u.calls))
	copy(out, u.calls)
	return out, nil
}

func (s *Store) IncrementHistoricCalls(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	u.historicCalls++
	return u.historicCalls, nil
}

func (s *Store) HistoricCalls(_ context.Context, userID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return 0, nil
	}
	return u.historicCalls, nil
}
