package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/BrandonDHaskell/Portico/internal/events"
	"github.com/BrandonDHaskell/Portico/internal/portico/store"
	"github.com/BrandonDHaskell/Portico/internal/portico/types"
)

// DefaultGraceWindow is how long after its scheduled time a check-in still
// opens the door.
const DefaultGraceWindow = 2 * time.Hour

const defaultWriteTimeout = 10 * time.Second

var tracer = otel.Tracer("github.com/BrandonDHaskell/Portico/internal/portico/service")

// AccessRecords is the slice of the record store the access engine reads
// and writes.
type AccessRecords interface {
	store.CheckInStore
	store.PropertyStore
	store.CallLogStore
}

type AccessConfig struct {
	GraceWindow  time.Duration    // 0 means DefaultGraceWindow
	WriteTimeout time.Duration    // bound on each post-decision write
	Now          func() time.Time // nil means time.Now
	Logger       *zerolog.Logger  // nil means discard
	Publisher    events.Publisher // nil means events.Nop
}

type AccessService struct {
	directory *Directory
	records   AccessRecords
	publisher events.Publisher
	logger    zerolog.Logger

	grace        time.Duration
	writeTimeout time.Duration
	now          func() time.Time

	pending sync.WaitGroup
}

func NewAccessService(dir *Directory, records AccessRecords, cfg AccessConfig) *AccessService {
	s := &AccessService{
		directory:    dir,
		records:      records,
		publisher:    cfg.Publisher,
		grace:        cfg.GraceWindow,
		writeTimeout: cfg.WriteTimeout,
		now:          cfg.Now,
		logger:       zerolog.Nop(),
	}
	if s.grace <= 0 {
		s.grace = DefaultGraceWindow
	}
	if s.writeTimeout <= 0 {
		s.writeTimeout = defaultWriteTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.publisher == nil {
		s.publisher = events.Nop{}
	}
	if cfg.Logger != nil {
		s.logger = cfg.Logger.With().Str("component", "access").Logger()
	}
	return s
}

// Decide maps an inbound caller identity to a grant or deny.
//
// The returned error is ErrInvalidCaller when the identity normalizes to
// nothing, or wraps ErrStoreUnavailable when the directory cannot be read.
// In both cases nothing is written.  A caller missing from the directory is
// not an error: the decision carries OutcomeNotPermitted and no call log is
// written.
//
// For directory matches the call log entry and the historic counter are
// written after Decide returns; see Wait.
func (s *AccessService) Decide(ctx context.Context, rawCaller string) (types.CallDecision, error) {
	ctx, span := tracer.Start(ctx, "AccessService.Decide")
	defer span.End()

	now := s.now().UTC()

	caller := NormalizeNumber(rawCaller)
	if caller == "" {
		decisionsTotal.WithLabelValues("identity_rejected").Inc()
		span.SetStatus(codes.Error, ErrInvalidCaller.Error())
		return types.CallDecision{}, ErrInvalidCaller
	}
	span.SetAttributes(attribute.String("portico.caller", caller))

	userID, found, err := s.directory.Resolve(ctx, caller)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "directory lookup failed")
		return types.CallDecision{}, fmt.Errorf("%w: directory lookup: %w", ErrStoreUnavailable, err)
	}

	d := types.CallDecision{Caller: caller, DecidedAtMs: now.UnixMilli()}

	if !found {
		d.Outcome = types.OutcomeNotPermitted
		decisionsTotal.WithLabelValues(string(d.Outcome)).Inc()
		span.SetAttributes(attribute.String("portico.outcome", string(d.Outcome)))
		s.logger.Warn().
			Str("caller", caller).
			Str("outcome", string(d.Outcome)).
			Msg("call from unregistered number rejected")
		s.afterDecision(ctx, d)
		return d, nil
	}

	d.UserID = userID
	if c, ok := s.firstEligible(ctx, userID, caller, now); ok {
		d.Outcome = types.OutcomeGranted
		d.CheckInID = c.ID
		d.GuestName = c.Name
		d.DTMF = s.actuationCode(ctx, userID, caller)
	} else {
		d.Outcome = types.OutcomeDenied
	}

	decisionsTotal.WithLabelValues(string(d.Outcome)).Inc()
	span.SetAttributes(
		attribute.String("portico.user_id", userID),
		attribute.String("portico.outcome", string(d.Outcome)),
	)
	s.logger.Info().
		Str("caller", caller).
		Str("user_id", userID).
		Str("outcome", string(d.Outcome)).
		Str("check_in_id", d.CheckInID).
		Msg("access decided")

	s.afterDecision(ctx, d)
	return d, nil
}

// Wait blocks until every post-decision write started so far has finished.
func (s *AccessService) Wait() { s.pending.Wait() }

// GraceWindow reports the configured window.
func (s *AccessService) GraceWindow() time.Duration { return s.grace }

// firstEligible returns the first check-in, in store order, that targets
// caller and is still inside the grace window.  Future-dated check-ins are
// eligible.  A read failure is treated as "no check-ins" so the call is
// denied rather than granted on missing data.
func (s *AccessService) firstEligible(ctx context.Context, userID, caller string, now time.Time) (store.CheckIn, bool) {
	checkIns, err := s.records.ListCheckIns(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("check-in read failed; denying")
		return store.CheckIn{}, false
	}

	nowMs := now.UnixMilli()
	graceMs := s.grace.Milliseconds()
	for _, c := range checkIns {
		if c.Property == caller && nowMs-c.TimeMs < graceMs {
			return c, true
		}
	}
	return store.CheckIn{}, false
}

// actuationCode returns the DTMF sequence for the caller's property line, or
// "" when there is none.  Missing data never revokes a grant.
func (s *AccessService) actuationCode(ctx context.Context, userID, number string) string {
	p, found, err := s.records.GetProperty(ctx, userID, number)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("property read failed; no tone")
		return ""
	}
	if !found {
		return ""
	}
	return p.DTMF
}

// afterDecision appends the call log entry, bumps the historic counter and
// publishes the decision event off the caller's path.  Failures are logged
// and counted, never retried.
func (s *AccessService) afterDecision(ctx context.Context, d types.CallDecision) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.writeTimeout)
		defer cancel()

		if d.UserID != "" {
			entry := store.CallLogEntry{
				CalledAtMs: d.DecidedAtMs,
				Caller:     d.Caller,
				Success:    d.Granted(),
			}
			if err := s.records.AppendCall(ctx, d.UserID, entry); err != nil {
				callLogFailures.WithLabelValues("log").Inc()
				s.logger.Error().Err(err).Str("user_id", d.UserID).Msg("call log write failed")
			}
			if _, err := s.records.IncrementHistoricCalls(ctx, d.UserID); err != nil {
				callLogFailures.WithLabelValues("counter").Inc()
				s.logger.Error().Err(err).Str("user_id", d.UserID).Msg("historic call counter update failed")
			}
		}

		ev := events.CallDecidedEvent{
			UserID:      d.UserID,
			Caller:      d.Caller,
			Outcome:     string(d.Outcome),
			CheckInID:   d.CheckInID,
			DecidedAtMs: d.DecidedAtMs,
		}
		if err := s.publisher.Publish(ctx, events.CallDecided, ev); err != nil {
			s.logger.Warn().Err(err).Msg("publish call decision failed")
		}
	}()
}
