package sqlite

import (
	"database/sql"
	"time"

	dbpkg "github.com/BrandonDHaskell/Portico/internal/db"
	"github.com/BrandonDHaskell/Portico/internal/portico/store"
)

// Store implements store.Store on SQLite.  Reads go straight to db; every
// write runs as a transaction on the single writer worker.
type Store struct {
	db     *sql.DB
	writer *dbpkg.Worker
	now    func() time.Time
}

func New(db *sql.DB, writer *dbpkg.Worker) *Store {
	return &Store{db: db, writer: writer, now: func() time.Time { return time.Now().UTC() }}
}

var _ store.Store = (*Store)(nil)

func (s *Store) nowMs() int64 { return s.now().UnixMilli() }

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
