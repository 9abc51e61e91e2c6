package memory

import (
	"context"

	"github.com/BrandonDHaskell/Portico/internal/portico/store"
)

func (s *Store) ListUsers(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.users), nil
}

func (s *Store) ListCheckIns(_ context.Context, userID string) ([]store.CheckIn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	out := make([]store.CheckIn, len(u.checkIns))
	copy(out, u.checkIns)
	return out, nil
}

func (s *Store) AddCheckIn(_ context.Context, userID string, c store.CheckIn) (store.CheckIn, error) {
	if c.ID == "" {
		c.ID = store.NewCheckInID()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	u.checkIns = append(u.checkIns, c)
	return c, nil
}

func (s *Store) UpdateCheckIn(_ context.Context, userID string, c store.CheckIn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	for i := range u.checkIns {
		if u.checkIns[i].ID == c.ID {
			u.checkIns[i] = c
			return nil
		}
	}
	return store.ErrNotFound
}

// DeleteCheckIn is a no-op when the check-in is already gone, so repeated
// sweeps stay idempotent.
func (s *Store) DeleteCheckIn(_ context.Context, userID, checkInID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil
	}
	for i := range u.checkIns {
		if u.checkIns[i].ID == checkInID {
			u.checkIns = append(u.checkIns[:i], u.checkIns[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *Store) SetActiveCheckIns(_ context.Context, userID string, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user(userID).activeCheckIns = n
	return nil
}

func (s *Store) ActiveCheckIns(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return 0, nil
	}
	return u.activeCheckIns, nil
}
