package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/BrandonDHaskell/Portico/internal/portico/store"
)

func (s *Store) ListUsers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM users ORDER BY user_id;`)
	if err != nil {
		return nil, fmt.Errorf("ListUsers: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, fmt.Errorf("ListUsers scan: %w", err)
		}
		out = append(out, uid)
	}
	return out, rows.Err()
}

// ListCheckIns returns the user's check-ins ordered by insertion (seq).
func (s *Store) ListCheckIns(ctx context.Context, userID string) ([]store.CheckIn, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT check_in_id, property, time_ms, name
FROM check_ins
WHERE user_id = ?
ORDER BY seq;
`, userID)
	if err != nil {
		return nil, fmt.Errorf("ListCheckIns: %w", err)
	}
	defer rows.Close()

	var out []store.CheckIn
	for rows.Next() {
		var c store.CheckIn
		if err := rows.Scan(&c.ID, &c.Property, &c.TimeMs, &c.Name); err != nil {
			return nil, fmt.Errorf("ListCheckIns scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) AddCheckIn(ctx context.Context, userID string, c store.CheckIn) (store.CheckIn, error) {
	if c.ID == "" {
		c.ID = store.NewCheckInID()
	}
	ms := s.nowMs()

	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := ensureUser(ctx, tx, userID, ms); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO check_ins(check_in_id, user_id, property, time_ms, name, created_at_ms)
VALUES (?, ?, ?, ?, ?, ?);
`, c.ID, userID, c.Property, c.TimeMs, c.Name, ms); err != nil {
			return fmt.Errorf("AddCheckIn: %w", err)
		}
		return nil
	})
	if err != nil {
		return store.CheckIn{}, err
	}
	return c, nil
}

func (s *Store) UpdateCheckIn(ctx context.Context, userID string, c store.CheckIn) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE check_ins
SET property = ?, time_ms = ?, name = ?
WHERE user_id = ? AND check_in_id = ?;
`, c.Property, c.TimeMs, c.Name, userID, c.ID)
		if err != nil {
			return fmt.Errorf("UpdateCheckIn: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return store.ErrNotFound
		}
		return nil
	})
}

func (s *Store) DeleteCheckIn(ctx context.Context, userID, checkInID string) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
DELETE FROM check_ins WHERE user_id = ? AND check_in_id = ?;
`, userID, checkInID); err != nil {
			return fmt.Errorf("DeleteCheckIn: %w", err)
		}
		return nil
	})
}

// SetActiveCheckIns overwrites the counter; it never increments.
func (s *Store) SetActiveCheckIns(ctx context.Context, userID string, n int) error {
	ms := s.nowMs()
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := ensureUser(ctx, tx, userID, ms); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
UPDATE users SET active_checkins = ?, updated_at_ms = ? WHERE user_id = ?;
`, n, ms, userID); err != nil {
			return fmt.Errorf("SetActiveCheckIns: %w", err)
		}
		return nil
	})
}

func (s *Store) ActiveCheckIns(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT active_checkins FROM users WHERE user_id = ?;`, userID).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("ActiveCheckIns: %w", err)
	}
	return n, nil
}
