package db_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BrandonDHaskell/Portico/internal/db"
)

func TestOpen_CreatesFileAndMigrates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "portico.db")

	conn, err := db.Open(context.Background(), db.Config{Path: path})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer conn.Close()

	for _, table := range []string{"users", "permitted_numbers", "properties", "check_ins", "call_log"} {
		var name string
		err := conn.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestConfig_DSN(t *testing.T) {
	dev := db.Config{Path: "/tmp/p.db"}.DSN()
	for _, want := range []string{"file:/tmp/p.db?", "_pragma=synchronous(NORMAL)", "_pragma=busy_timeout(5000)", "_pragma=journal_mode(WAL)"} {
		if !strings.Contains(dev, want) {
			t.Errorf("dev DSN %q missing %q", dev, want)
		}
	}

	prod := db.Config{Path: "/tmp/p.db", Env: "prod", BusyTimeout: 250 * time.Millisecond}.DSN()
	for _, want := range []string{"_pragma=synchronous(FULL)", "_pragma=busy_timeout(250)"} {
		if !strings.Contains(prod, want) {
			t.Errorf("prod DSN %q missing %q", prod, want)
		}
	}

	if got := (db.Config{}).DSN(); !strings.HasPrefix(got, "file:./data/portico.db?") {
		t.Errorf("default DSN = %q", got)
	}
}

func TestOpen_AppliesPragmas(t *testing.T) {
	cases := []struct {
		env      string
		wantSync int // 1 = NORMAL, 2 = FULL
	}{
		{"dev", 1},
		{"prod", 2},
	}
	for _, tc := range cases {
		t.Run(tc.env, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "portico.db")
			conn, err := db.Open(context.Background(), db.Config{Path: path, Env: tc.env, BusyTimeout: 750 * time.Millisecond})
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer conn.Close()

			var syncMode, busy int
			if err := conn.QueryRow(`PRAGMA synchronous;`).Scan(&syncMode); err != nil {
				t.Fatalf("synchronous: %v", err)
			}
			if err := conn.QueryRow(`PRAGMA busy_timeout;`).Scan(&busy); err != nil {
				t.Fatalf("busy_timeout: %v", err)
			}
			if syncMode != tc.wantSync || busy != 750 {
				t.Errorf("synchronous=%d busy_timeout=%d", syncMode, busy)
			}
		})
	}
}

func TestMigrate_IsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portico.db")
	ctx := context.Background()

	conn, err := db.Open(ctx, db.Config{Path: path})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer conn.Close()

	if err := db.Migrate(ctx, conn); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}

	var n int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 recorded migration, got %d", n)
	}
}

func TestSeedDev_RegistersPermittedNumber(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portico.db")
	ctx := context.Background()

	conn, err := db.Open(ctx, db.Config{Path: path})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer conn.Close()

	for i := 0; i < 2; i++ {
		if err := db.SeedDev(ctx, conn, db.SeedDevOptions{}); err != nil {
			t.Fatalf("SeedDev run %d: %v", i, err)
		}
	}

	var uid string
	if err := conn.QueryRow(`SELECT user_id FROM permitted_numbers WHERE number = '15550000000'`).Scan(&uid); err != nil {
		t.Fatalf("query: %v", err)
	}
	if uid != "dev-user" {
		t.Errorf("expected dev-user, got %q", uid)
	}
}

// ── Worker ───────────────────────────────────────────────────────────────────

func openWorkerDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.Open(context.Background(), db.Config{Path: filepath.Join(t.TempDir(), "w.db")})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWorker_RollsBackOnError(t *testing.T) {
	conn := openWorkerDB(t)
	w := db.NewWorker(conn)
	defer w.Close()

	boom := errors.New("boom")
	err := w.Do(context.Background(), func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO users(user_id, created_at_ms, updated_at_ms) VALUES ('u1', 0, 0)`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	var n int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("expected rollback, found %d users", n)
	}
}

func TestWorker_SerializesConcurrentWrites(t *testing.T) {
	conn := openWorkerDB(t)
	w := db.NewWorker(conn)
	defer w.Close()
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := w.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
				_, err := tx.ExecContext(ctx,
					`INSERT INTO users(user_id, created_at_ms, updated_at_ms) VALUES (?, 0, 0)`,
					fmt.Sprintf("u%d", i))
				return err
			})
			if err != nil {
				t.Errorf("Do %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	var count int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != n {
		t.Errorf("expected %d users, got %d", n, count)
	}
}

func TestWorker_DoAfterCloseFails(t *testing.T) {
	conn := openWorkerDB(t)
	w := db.NewWorker(conn)
	w.Close()
	w.Close()

	err := w.Do(context.Background(), func(context.Context, *sql.Tx) error { return nil })
	if !errors.Is(err, db.ErrWorkerClosed) {
		t.Errorf("expected ErrWorkerClosed, got %v", err)
	}
}
