package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/kickboard/matchsync/internal/platform/logging"
)

// ErrRunInFlight is returned by RunOnce while a previous run is still active.
var ErrRunInFlight = errors.New("scheduler run already in flight")

// Job is one unit of scheduled work. Errors are logged by the scheduler and
// never stop the loop.
type Job interface {
	RunOnce(ctx context.Context) error
}

type Config struct {
	Interval time.Duration
	Job      Job
	Logger   *logging.Logger
	// Ticks overrides the internal ticker. Tests feed ticks by hand; leave
	// nil in production.
	Ticks <-chan time.Time
}

// Scheduler drives a Job on a fixed interval. A tick that arrives while a
// run is still in flight is skipped, so runs never overlap, and RunOnce
// exposes the same guarded entry point for manual triggers.
type Scheduler struct {
	interval time.Duration
	job      Job
	logger   *logging.Logger
	ticks    <-chan time.Time

	running atomic.Bool
	started atomic.Bool
	cancel  context.CancelFunc
	wg      conc.WaitGroup
}

func New(cfg Config) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	return &Scheduler{
		interval: interval,
		job:      cfg.Job,
		logger:   logger,
		ticks:    cfg.Ticks,
	}
}

// Start launches the tick loop. Calling Start twice is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	if s.job == nil || !s.started.CompareAndSwap(false, true) {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Go(func() {
		s.loop(loopCtx)
	})
}

// Stop cancels the loop and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	if !s.started.Load() {
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// RunOnce triggers the job outside the schedule, honoring the same
// no-overlap guard as the tick loop.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if s.job == nil {
		return errors.New("scheduler has no job")
	}
	if !s.running.CompareAndSwap(false, true) {
		return ErrRunInFlight
	}
	defer s.running.Store(false)

	return s.job.RunOnce(ctx)
}

func (s *Scheduler) loop(ctx context.Context) {
	ticks := s.ticks
	if ticks == nil {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		ticks = ticker.C
	}

	s.logger.Info("scheduler started", "interval", s.interval.String())
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticks:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("skipping scheduled run, previous run still in flight")
		return
	}
	defer s.running.Store(false)

	if err := s.job.RunOnce(ctx); err != nil {
		s.logger.ErrorContext(ctx, "scheduled run failed", "error", err)
	}
}
