package memory

import "context"

func (s *Store) LookupOwner(_ context.Context, number string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	uid, ok := s.directory[number]
	return uid, ok, nil
}

func (s *Store) PutOwner(_ context.Context, number, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user(userID)
	s.directory[number] = userID
	return nil
}

func (s *Store) DeleteOwner(_ context.Context, number string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.directory, number)
	return nil
}
