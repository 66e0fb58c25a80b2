package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ferrova/tidalsnap/internal/shared"
)

// RunFunc is invoked by the scheduler for each tick.
type RunFunc func(ctx context.Context, trigger string)

// Scheduler fires a sync run once per day at a fixed local wall-clock time.
//
// It is an explicit service with its own lifecycle: construct once at
// process start, Start it, query NextRun for display, Stop it on shutdown.
// Nothing else about wall-clock policy leaks into the engine.
type Scheduler struct {
	hour   int
	minute int
	run    RunFunc
	logger *log.Logger
	now    func() time.Time

	mu     sync.Mutex
	next   time.Time
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a scheduler firing daily at the given "15:04" time.
func NewScheduler(at string, run RunFunc, logger *log.Logger) (*Scheduler, error) {
	parsed, err := time.Parse("15:04", at)
	if err != nil {
		return nil, fmt.Errorf("%w: sync time %q: %v", shared.ErrInvalidConfig, at, err)
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Scheduler{
		hour:   parsed.Hour(),
		minute: parsed.Minute(),
		run:    run,
		logger: logger,
		now:    time.Now,
	}, nil
}

// nextAfter returns the first scheduled instant strictly after t.
func (s *Scheduler) nextAfter(t time.Time) time.Time {
	next := time.Date(t.Year(), t.Month(), t.Day(), s.hour, s.minute, 0, 0, t.Location())
	if !next.After(t) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Start launches the scheduler loop. Calling Start on a running scheduler is
// a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.next = s.nextAfter(s.now())
	s.logger.Info("scheduler started", "next_run", s.next.Format(time.RFC3339))

	go s.loop(ctx)
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	for {
		s.mu.Lock()
		next := s.next
		s.mu.Unlock()

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		s.logger.Info("scheduled sync starting")
		s.run(ctx, "scheduled")

		s.mu.Lock()
		s.next = s.nextAfter(s.now())
		s.mu.Unlock()
	}
}

// Stop terminates the loop and waits for it to exit. A run already in
// flight observes its context being cancelled.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info("scheduler stopped")
}

// NextRun returns the next scheduled run time (zero before Start).
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}
