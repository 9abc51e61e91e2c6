package memory

import (
	"context"

	"github.com/BrandonDHaskell/Portico/internal/portico/store"
)

func (s *Store) GetProperty(_ context.Context, userID, number string) (store.Property, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return store.Property{}, false, nil
	}
	p, ok := u.properties[number]
	return p, ok, nil
}

func (s *Store) ListProperties(_ context.Context, userID string) ([]store.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	out := make([]store.Property, 0, len(u.properties))
	for _, k := range sortedKeys(u.properties) {
		out = append(out, u.properties[k])
	}
	return out, nil
}

func (s *Store) PutProperty(_ context.Context, userID string, p store.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user(userID).properties[p.Number] = p
	return nil
}

func (s *Store) DeleteProperty(_ context.Context, userID, number string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		delete(u.properties, number)
	}
	return nil
}
