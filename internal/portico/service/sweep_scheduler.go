package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/Portico/internal/portico/types"
)

// SweepRunner is satisfied by *Sweeper.
type SweepRunner interface {
	Sweep(ctx context.Context) (types.SweepReport, error)
}

// SweepScheduler triggers a sweep on a fixed interval from inside the
// process.  Deployments that drive sweeps from an external scheduler leave
// the interval at 0, which disables it.
type SweepScheduler struct {
	runner   SweepRunner
	interval time.Duration
	logger   zerolog.Logger

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// NewSweepScheduler creates a scheduler but does not start it.
func NewSweepScheduler(r SweepRunner, interval time.Duration, logger zerolog.Logger) *SweepScheduler {
	return &SweepScheduler{
		runner:   r,
		interval: interval,
		logger:   logger.With().Str("component", "sweep_scheduler").Logger(),
	}
}

// Start runs a sweep immediately, then on every tick, until ctx is cancelled
// or Stop is called.
func (p *SweepScheduler) Start(ctx context.Context) {
	if p.interval <= 0 {
		p.logger.Info().Msg("in-process sweep scheduler disabled (interval=0)")
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done != nil {
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})

	go p.loop(ctx, p.done)

	p.logger.Info().Dur("interval", p.interval).Msg("sweep scheduler started")
}

// Stop signals the loop to exit and waits for it.  Safe to call more than
// once, and before Start.
func (p *SweepScheduler) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	if done == nil {
		return
	}
	p.stopOnce.Do(cancel)
	<-done
}

func (p *SweepScheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	// Clean up any backlog left while the process was down.
	p.run(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.run(ctx)
		}
	}
}

func (p *SweepScheduler) run(ctx context.Context) {
	report, err := p.runner.Sweep(ctx)
	if err != nil {
		p.logger.Error().Err(err).Msg("scheduled sweep failed")
		return
	}
	if !report.OK() {
		p.logger.Warn().Int("failures", len(report.Failures)).Msg("scheduled sweep finished with failures")
	}
}
