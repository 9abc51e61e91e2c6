package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	defaultPath        = "./data/portico.db"
	defaultBusyTimeout = 5 * time.Second
)

type Config struct {
	Path string // e.g. "./data/portico.db"
	Env  string // "dev" | "prod"

	// BusyTimeout is how long a connection waits on a lock held by another
	// process, such as portico-sweep running against the server's file.
	BusyTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Path == "" {
		c.Path = defaultPath
	}
	if c.Env == "" {
		c.Env = "dev"
	}
	if c.BusyTimeout <= 0 {
		c.BusyTimeout = defaultBusyTimeout
	}
	return c
}

// pragmas are applied by the driver on every new connection.  prod syncs
// the WAL on each commit so an acknowledged call log row survives power loss.
func (c Config) pragmas() []string {
	mode := "NORMAL"
	if c.Env == "prod" {
		mode = "FULL"
	}
	return []string{
		"foreign_keys(1)",
		"journal_mode(WAL)",
		"synchronous(" + mode + ")",
		fmt.Sprintf("busy_timeout(%d)", c.BusyTimeout.Milliseconds()),
	}
}

// DSN is the modernc.org/sqlite connection string for c.
func (c Config) DSN() string {
	c = c.withDefaults()
	params := c.pragmas()
	for i, p := range params {
		params[i] = "_pragma=" + p
	}
	return "file:" + c.Path + "?" + strings.Join(params, "&")
}

// Open connects to the SQLite database at cfg.Path, creating the parent
// directory if needed, and applies pending migrations.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	cfg = cfg.withDefaults()

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	db, err := sql.Open("sqlite", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}

	// Single connection; all writes are funnelled through Worker.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}
