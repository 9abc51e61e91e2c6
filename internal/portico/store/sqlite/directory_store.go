package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

func (s *Store) LookupOwner(ctx context.Context, number string) (string, bool, error) {
	var uid string
	err := s.db.QueryRowContext(ctx, `
SELECT user_id FROM permitted_numbers WHERE number = ?;
`, number).Scan(&uid)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("LookupOwner: %w", err)
	}
	return uid, true, nil
}

// PutOwner assigns number to userID, replacing any previous owner.
func (s *Store) PutOwner(ctx context.Context, number, userID string) error {
	ms := s.nowMs()
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := ensureUser(ctx, tx, userID, ms); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO permitted_numbers(number, user_id, created_at_ms)
VALUES (?, ?, ?)
ON CONFLICT(number) DO UPDATE SET user_id = excluded.user_id;
`, number, userID, ms); err != nil {
			return fmt.Errorf("PutOwner: %w", err)
		}
		return nil
	})
}

func (s *Store) DeleteOwner(ctx context.Context, number string) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM permitted_numbers WHERE number = ?;`, number); err != nil {
			return fmt.Errorf("DeleteOwner: %w", err)
		}
		return nil
	})
}
