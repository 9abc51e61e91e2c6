package sqlite_test

import (
	"context"
	"testing"

	"github.com/BrandonDHaskell/Portico/internal/portico/store"
	sqlitestore "github.com/BrandonDHaskell/Portico/internal/portico/store/sqlite"
	"github.com/BrandonDHaskell/Portico/internal/portico/store/storetest"
)

func TestStore_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		conn := openTestDB(t)
		return sqlitestore.New(conn, newTestWriter(t, conn))
	})
}

// ═══════════════════════════════════════════════════════════════════════════
// Schema-level behaviour
// ═══════════════════════════════════════════════════════════════════════════

func TestStore_AppendCall_CreatesUserRow(t *testing.T) {
	conn := openTestDB(t)
	s := sqlitestore.New(conn, newTestWriter(t, conn))
	ctx := context.Background()

	err := s.AppendCall(ctx, "u1", store.CallLogEntry{CalledAtMs: 1_700_000_000_000, Caller: "15551234567", Success: true})
	if err != nil {
		t.Fatalf("AppendCall: %v", err)
	}

	var (
		caller  string
		success int
	)
	err = conn.QueryRowContext(ctx,
		`SELECT caller, success FROM call_log WHERE user_id = ?`, "u1",
	).Scan(&caller, &success)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if caller != "15551234567" || success != 1 {
		t.Errorf("unexpected row caller=%q success=%d", caller, success)
	}

	var users int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE user_id = 'u1'`).Scan(&users); err != nil {
		t.Fatalf("count users: %v", err)
	}
	if users != 1 {
		t.Errorf("expected users row to be created, got %d", users)
	}
}

func TestStore_DeleteUserCascades(t *testing.T) {
	conn := openTestDB(t)
	s := sqlitestore.New(conn, newTestWriter(t, conn))
	ctx := context.Background()

	if _, err := s.AddCheckIn(ctx, "u1", store.CheckIn{Property: "1555", TimeMs: 1}); err != nil {
		t.Fatalf("AddCheckIn: %v", err)
	}
	if err := s.PutOwner(ctx, "1555", "u1"); err != nil {
		t.Fatalf("PutOwner: %v", err)
	}

	if _, err := conn.ExecContext(ctx, `DELETE FROM users WHERE user_id = 'u1'`); err != nil {
		t.Fatalf("delete user: %v", err)
	}

	if got, _ := s.ListCheckIns(ctx, "u1"); len(got) != 0 {
		t.Errorf("expected check-ins removed with user, got %d", len(got))
	}
	if _, found, _ := s.LookupOwner(ctx, "1555"); found {
		t.Error("expected permitted number removed with user")
	}
}
