package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/BrandonDHaskell/Portico/internal/events"
	"github.com/BrandonDHaskell/Portico/internal/portico/store"
	"github.com/BrandonDHaskell/Portico/internal/portico/types"
)

const defaultSweepConcurrency = 4

type SweepConfig struct {
	GraceWindow time.Duration    // 0 means DefaultGraceWindow
	Concurrency int              // users processed in parallel; 0 means 4
	Now         func() time.Time // nil means time.Now
	Logger      *zerolog.Logger
	Publisher   events.Publisher
}

// Sweeper purges expired check-ins and recomputes each user's active
// check-in count from what remains.  The count is always rebuilt from
// scratch, never incremented.
type Sweeper struct {
	store       store.CheckInStore
	grace       time.Duration
	concurrency int
	now         func() time.Time
	logger      zerolog.Logger
	publisher   events.Publisher
}

func NewSweeper(st store.CheckInStore, cfg SweepConfig) *Sweeper {
	s := &Sweeper{
		store:       st,
		grace:       cfg.GraceWindow,
		concurrency: cfg.Concurrency,
		now:         cfg.Now,
		publisher:   cfg.Publisher,
		logger:      zerolog.Nop(),
	}
	if s.grace <= 0 {
		s.grace = DefaultGraceWindow
	}
	if s.concurrency <= 0 {
		s.concurrency = defaultSweepConcurrency
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.publisher == nil {
		s.publisher = events.Nop{}
	}
	if cfg.Logger != nil {
		s.logger = cfg.Logger.With().Str("component", "sweep").Logger()
	}
	return s
}

// CheckInExpired reports whether c has passed its grace window at now.  The
// scheduled time is truncated to whole seconds first.
func CheckInExpired(c store.CheckIn, now time.Time, grace time.Duration) bool {
	scheduled := time.Unix(c.TimeMs/1000, 0)
	return scheduled.Add(grace).Before(now)
}

// Sweep runs one pass over every user.  Users are independent: a failure on
// one is recorded in the report and the pass continues.  The returned error
// is non-nil only when the user list itself cannot be read.
func (s *Sweeper) Sweep(ctx context.Context) (types.SweepReport, error) {
	ctx, span := tracer.Start(ctx, "Sweeper.Sweep")
	defer span.End()

	now := s.now().UTC()
	report := types.SweepReport{StartedAtMs: now.UnixMilli()}

	users, err := s.store.ListUsers(ctx)
	if err != nil {
		sweepRuns.WithLabelValues("error").Inc()
		span.RecordError(err)
		return report, fmt.Errorf("%w: list users: %w", ErrStoreUnavailable, err)
	}
	report.Users = len(users)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.concurrency)

	for _, uid := range users {
		g.Go(func() error {
			deleted, retained, err := s.sweepUser(ctx, uid, now)

			mu.Lock()
			defer mu.Unlock()
			report.Deleted += deleted
			report.Retained += retained
			if err != nil {
				report.Failures = append(report.Failures, types.UserFailure{UserID: uid, Error: err.Error()})
				sweepUserErrors.Inc()
				s.logger.Error().Err(err).Str("user_id", uid).Msg("sweep failed for user")
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(report.Failures, func(i, j int) bool {
		return report.Failures[i].UserID < report.Failures[j].UserID
	})
	report.FinishedAtMs = s.now().UTC().UnixMilli()

	result := "ok"
	if !report.OK() {
		result = "partial"
	}
	sweepRuns.WithLabelValues(result).Inc()
	sweepDeleted.Add(float64(report.Deleted))

	s.logger.Info().
		Int("users", report.Users).
		Int("deleted", report.Deleted).
		Int("retained", report.Retained).
		Int("failures", len(report.Failures)).
		Msg("sweep finished")

	if err := s.publisher.Publish(ctx, events.SweepCompleted, events.SweepCompletedEvent{
		Users:        report.Users,
		Deleted:      report.Deleted,
		Retained:     report.Retained,
		Failures:     len(report.Failures),
		FinishedAtMs: report.FinishedAtMs,
	}); err != nil {
		s.logger.Warn().Err(err).Msg("publish sweep result failed")
	}

	return report, nil
}

// sweepUser deletes the user's expired check-ins and overwrites the active
// count with the number retained.  A user with no check-ins gets 0.
func (s *Sweeper) sweepUser(ctx context.Context, userID string, now time.Time) (deleted, retained int, err error) {
	checkIns, err := s.store.ListCheckIns(ctx, userID)
	if err != nil {
		return 0, 0, fmt.Errorf("list check-ins: %w", err)
	}

	var errs []error
	for _, c := range checkIns {
		if !CheckInExpired(c, now, s.grace) {
			retained++
			continue
		}
		if err := s.store.DeleteCheckIn(ctx, userID, c.ID); err != nil {
			errs = append(errs, fmt.Errorf("delete check-in %s: %w", c.ID, err))
			continue
		}
		deleted++
	}

	if err := s.store.SetActiveCheckIns(ctx, userID, retained); err != nil {
		errs = append(errs, fmt.Errorf("set active count: %w", err))
	}
	return deleted, retained, errors.Join(errs...)
}
