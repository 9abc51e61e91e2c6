package memory

import (
	"sort"
	"sync"

	"github.com/BrandonDHaskell/Portico/internal/portico/store"
)

type userData struct {
	checkIns       []store.CheckIn
	properties     map[string]store.Property
	calls          []store.CallLogEntry
	historicCalls  int64
	activeCheckIns int
}

// Store is an in-memory implementation of store.Store.  It is intended for
// tests and dev environments.
type Store struct {
	mu        sync.RWMutex
	directory map[string]string
	users     map[string]*userData
}

func New() *Store {
	return &Store{
		directory: make(map[string]string),
		users:     make(map[string]*userData),
	}
}

var _ store.Store = (*Store)(nil)

// user returns the record for userID, creating it if needed.  Caller must
// hold s.mu for writing.
func (s *Store) user(userID string) *userData {
	u, ok := s.users[userID]
	if !ok {
		u = &userData{properties: make(map[string]store.Property)}
		s.users[userID] = u
	}
	return u
}

// EnsureUser registers a user with no data.  Test and seed helper.
func (s *Store) EnsureUser(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user(userID)
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
