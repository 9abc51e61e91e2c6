// Package bootstrap opens the record store and event publisher selected by
// configuration.  Both binaries share it.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/Portico/internal/config"
	"github.com/BrandonDHaskell/Portico/internal/db"
	"github.com/BrandonDHaskell/Portico/internal/events"
	"github.com/BrandonDHaskell/Portico/internal/portico/store"
	"github.com/BrandonDHaskell/Portico/internal/portico/store/memory"
	redisstore "github.com/BrandonDHaskell/Portico/internal/portico/store/redis"
	"github.com/BrandonDHaskell/Portico/internal/portico/store/sqlite"
)

// Backend is an open record store plus what it takes to health-check and close it.
type Backend struct {
	Store store.Store
	// Ready reports whether the backing service answers.  Never nil.
	Ready func(context.Context) error

	closers []func() error
}

// Close releases resources in reverse order of acquisition.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}

func OpenStore(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*Backend, error) {
	switch cfg.StoreBackend {
	case "memory":
		st := memory.New()
		if cfg.Env == "dev" {
			if err := seedMemory(ctx, st); err != nil {
				return nil, err
			}
		}
		logger.Info().Str("store", "memory").Msg("record store ready")
		return &Backend{Store: st, Ready: func(context.Context) error { return nil }}, nil

	case "redis":
		rdb, err := redisstore.Dial(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("store", "redis").Msg("record store ready")
		return &Backend{
			Store:   redisstore.New(rdb),
			Ready:   func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
			closers: []func() error{rdb.Close},
		}, nil

	default:
		sqlDB, err := db.Open(ctx, db.Config{Path: cfg.DBPath, Env: cfg.Env})
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		if cfg.Env == "dev" {
			if err := db.SeedDev(ctx, sqlDB, db.SeedDevOptions{}); err != nil {
				_ = sqlDB.Close()
				return nil, err
			}
		}
		w := db.NewWorker(sqlDB)
		logger.Info().Str("store", "sqlite").Str("path", cfg.DBPath).Msg("record store ready")
		return &Backend{
			Store: sqlite.New(sqlDB, w),
			Ready: sqlDB.PingContext,
			closers: []func() error{
				sqlDB.Close,
				func() error { w.Close(); return nil },
			},
		}, nil
	}
}

// seedMemory mirrors db.SeedDev for the in-memory backend.
func seedMemory(ctx context.Context, st *memory.Store) error {
	const (
		userID = "dev-user"
		number = "15550000000"
	)
	if err := st.PutOwner(ctx, number, userID); err != nil {
		return err
	}
	return st.PutProperty(ctx, userID, store.Property{Number: number, Name: "Dev line", DTMF: "9"})
}

// OpenPublisher connects to NATS when a URL is configured and otherwise
// returns a publisher that drops events.
func OpenPublisher(cfg config.Config, logger zerolog.Logger) (events.Publisher, error) {
	if cfg.NATSURL == "" {
		return events.Nop{}, nil
	}
	p, err := events.NewNATSPublisher(cfg.NATSURL, logger)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("url", cfg.NATSURL).Msg("publishing events to NATS")
	return p, nil
}
