package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/BrandonDHaskell/Portico/internal/portico/store"
)

func (s *Store) GetProperty(ctx context.Context, userID, number string) (store.Property, bool, error) {
	p := store.Property{Number: number}
	err := s.db.QueryRowContext(ctx, `
SELECT name, address, dtmf FROM properties WHERE user_id = ? AND number = ?;
`, userID, number).Scan(&p.Name, &p.Address, &p.DTMF)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Property{}, false, nil
	}
	if err != nil {
		return store.Property{}, false, fmt.Errorf("GetProperty: %w", err)
	}
	return p, true, nil
}

func (s *Store) ListProperties(ctx context.Context, userID string) ([]store.Property, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT number, name, address, dtmf FROM properties WHERE user_id = ? ORDER BY number;
`, userID)
	if err != nil {
		return nil, fmt.Errorf("ListProperties: %w", err)
	}
	defer rows.Close()

	var out []store.Property
	for rows.Next() {
		var p store.Property
		if err := rows.Scan(&p.Number, &p.Name, &p.Address, &p.DTMF); err != nil {
			return nil, fmt.Errorf("ListProperties scan: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) PutProperty(ctx context.Context, userID string, p store.Property) error {
	ms := s.nowMs()
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := ensureUser(ctx, tx, userID, ms); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO properties(user_id, number, name, address, dtmf, updated_at_ms)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id, number) DO UPDATE SET
  name = excluded.name,
  address = excluded.address,
  dtmf = excluded.dtmf,
  updated_at_ms = excluded.updated_at_ms;
`, userID, p.Number, p.Name, p.Address, p.DTMF, ms); err != nil {
			return fmt.Errorf("PutProperty: %w", err)
		}
		return nil
	})
}

func (s *Store) DeleteProperty(ctx context.Context, userID, number string) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
DELETE FROM properties WHERE user_id = ? AND number = ?;
`, userID, number); err != nil {
			return fmt.Errorf("DeleteProperty: %w", err)
		}
		return nil
	})
}
