package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/BrandonDHaskell/Portico/internal/portico/store"
)

func (s *Store) AppendCall(ctx context.Context, userID string, e store.CallLogEntry) error {
	if e.CalledAtMs == 0 {
		e.CalledAtMs = s.nowMs()
	}
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := ensureUser(ctx, tx, userID, e.CalledAtMs); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO call_log(user_id, called_at_ms, caller, success)
VALUES (?, ?, ?, ?);
`, userID, e.CalledAtMs, e.Caller, boolToInt(e.Success)); err != nil {
			return fmt.Errorf("AppendCall insert: %w", err)
		}
		return nil
	})
}

func (s *Store) ListCalls(ctx context.Context, userID string) ([]store.CallLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT called_at_ms, caller, success FROM call_log WHERE user_id = ? ORDER BY call_id;
`, userID)
	if err != nil {
		return nil, fmt.Errorf("ListCalls: %w", err)
	}
	defer rows.Close()

	var out []store.CallLogEntry
	for rows.Next() {
		var (
			e       store.CallLogEntry
			success int
		)
		if err := rows.Scan(&e.CalledAtMs, &e.Caller, &success); err != nil {
			return nil, fmt.Errorf("ListCalls scan: %w", err)
		}
		e.Success = success == 1
		out = append(out, e)
	}
	return out, rows.Err()
}

// IncrementHistoricCalls bumps the counter in one statement on the writer
// goroutine and returns the new value (1 when the user had none).
func (s *Store) IncrementHistoricCalls(ctx context.Context, userID string) (int64, error) {
	ms := s.nowMs()
	var n int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := ensureUser(ctx, tx, userID, ms); err != nil {
			return err
		}
		err := tx.QueryRowContext(ctx, `
UPDATE users
SET historic_calls = historic_calls + 1,
    updated_at_ms  = ?
WHERE user_id = ?
RETURNING historic_calls;
`, ms, userID).Scan(&n)
		if err != nil {
			return fmt.Errorf("IncrementHistoricCalls: %w", err)
		}
		return nil
	})
	return n, err
}

func (s *Store) HistoricCalls(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT historic_calls FROM users WHERE user_id = ?;`, userID).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("HistoricCalls: %w", err)
	}
	return n, nil
}
