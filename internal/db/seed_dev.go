package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type SeedDevOptions struct {
	// UserID owns the seeded property.  Defaults to "dev-user".
	UserID string
	// Number is the normalized property line to register.  Defaults to
	// "15550000000".
	Number string
	// DTMF is played on a granted call.  Defaults to "9".
	DTMF string
}

// SeedDev creates a dev user with one permitted property line so the call
// webhook can be exercised locally.  It is safe to run on every start.
func SeedDev(ctx context.Context, db *sql.DB, opt SeedDevOptions) error {
	if opt.UserID == "" {
		opt.UserID = "dev-user"
	}
	if opt.Number == "" {
		opt.Number = "15550000000"
	}
	if opt.DTMF == "" {
		opt.DTMF = "9"
	}
	now := time.Now().UTC().UnixMilli()

	if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO users(user_id, created_at_ms, updated_at_ms)
VALUES (?, ?, ?);`, opt.UserID, now, now); err != nil {
		return fmt.Errorf("seed users: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
INSERT INTO properties(user_id, number, name, address, dtmf, updated_at_ms)
VALUES (?, ?, 'Dev Property', 'Dev', ?, ?)
ON CONFLICT(user_id, number) DO UPDATE SET
  dtmf = excluded.dtmf,
  updated_at_ms = excluded.updated_at_ms;
`, opt.UserID, opt.Number, opt.DTMF, now); err != nil {
		return fmt.Errorf("seed property %s: %w", opt.Number, err)
	}

	if _, err := db.ExecContext(ctx, `
INSERT INTO permitted_numbers(number, user_id, created_at_ms)
VALUES (?, ?, ?)
ON CONFLICT(number) DO UPDATE SET user_id = excluded.user_id;
`, opt.Number, opt.UserID, now); err != nil {
		return fmt.Errorf("seed permitted number %s: %w", opt.Number, err)
	}

	return nil
}
