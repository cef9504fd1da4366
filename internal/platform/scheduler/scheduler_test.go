package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kickboard/matchsync/internal/platform/logging"
)

type countingJob struct {
	runs    atomic.Int32
	block   chan struct{}
	started chan struct{}
	err     error
}

func (j *countingJob) RunOnce(_ context.Context) error {
	j.runs.Add(1)
	if j.started != nil {
		j.started <- struct{}{}
	}
	if j.block != nil {
		<-j.block
	}
	return j.err
}

func TestScheduler_RunsOnEveryTick(t *testing.T) {
	t.Parallel()

	job := &countingJob{started: make(chan struct{})}
	ticks := make(chan time.Time)
	s := New(Config{
		Interval: time.Hour,
		Job:      job,
		Logger:   logging.NewNop(),
		Ticks:    ticks,
	})

	s.Start(context.Background())
	defer s.Stop()

	for i := 0; i < 3; i++ {
		ticks <- time.Now()
		<-job.started
	}

	if got := job.runs.Load(); got != 3 {
		t.Fatalf("expected 3 runs, got %d", got)
	}
}

func TestScheduler_SkipsTickWhileRunInFlight(t *testing.T) {
	t.Parallel()

	job := &countingJob{
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	ticks := make(chan time.Time)
	s := New(Config{
		Interval: time.Hour,
		Job:      job,
		Logger:   logging.NewNop(),
		Ticks:    ticks,
	})

	s.Start(context.Background())

	ticks <- time.Now()
	<-job.started

	// The loop is blocked inside the first run; this manual trigger must be
	// rejected rather than queued.
	if err := s.RunOnce(context.Background()); !errors.Is(err, ErrRunInFlight) {
		t.Fatalf("expected ErrRunInFlight, got %v", err)
	}

	close(job.block)
	s.Stop()

	if got := job.runs.Load(); got != 1 {
		t.Fatalf("expected exactly 1 run, got %d", got)
	}
}

func TestScheduler_RunOnce_Manual(t *testing.T) {
	t.Parallel()

	job := &countingJob{}
	s := New(Config{
		Interval: time.Hour,
		Job:      job,
		Logger:   logging.NewNop(),
	})

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("manual run failed: %v", err)
	}
	if got := job.runs.Load(); got != 1 {
		t.Fatalf("expected 1 run, got %d", got)
	}
}

func TestScheduler_RunOnce_PropagatesJobError(t *testing.T) {
	t.Parallel()

	job := &countingJob{err: errors.New("sync failed")}
	s := New(Config{
		Interval: time.Hour,
		Job:      job,
		Logger:   logging.NewNop(),
	})

	if err := s.RunOnce(context.Background()); err == nil {
		t.Fatal("expected the job error to surface on manual runs")
	}
}

func TestScheduler_StopWaitsForLoopExit(t *testing.T) {
	t.Parallel()

	job := &countingJob{}
	s := New(Config{
		Interval: time.Hour,
		Job:      job,
		Logger:   logging.NewNop(),
		Ticks:    make(chan time.Time),
	})

	s.Start(context.Background())
	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after cancellation")
	}
}
