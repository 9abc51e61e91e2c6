package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// ensureUser guarantees a users row exists so foreign keys from
// permitted_numbers, properties, check_ins and call_log are satisfied.
//
// Must be called inside an existing transaction.
func ensureUser(ctx context.Context, tx *sql.Tx, userID string, nowMs int64) error {
	if _, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO users(user_id, created_at_ms, updated_at_ms)
VALUES (?, ?, ?);
`, userID, nowMs, nowMs); err != nil {
		return fmt.Errorf("ensureUser %s: %w", userID, err)
	}
	return nil
}
