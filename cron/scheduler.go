package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bamtlab/conductor/ext"
)

// cronParser accepts standard 5-field expressions plus descriptors
// such as "@hourly" and "@every 5m".
var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ParseSchedule validates a schedule expression and returns its parsed
// form.
func ParseSchedule(expr string) (cron.Schedule, error) {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("cron: parse schedule %q: %w", expr, err)
	}

	return sched, nil
}

// NextAfter computes the next firing time of expr after t.
func NextAfter(expr string, t time.Time) (time.Time, error) {
	sched, err := ParseSchedule(expr)
	if err != nil {
		return time.Time{}, err
	}

	return sched.Next(t), nil
}

// FireFunc executes a due entry's workflow.
type FireFunc func(ctx context.Context, e *Entry) error

// Scheduler polls the store for due entries and fires them. Single
// process; it assumes it is the only cron scheduler against its store.
type Scheduler struct {
	store  Store
	fire   FireFunc
	exts   *ext.Registry
	logger *slog.Logger
	tick   time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	doneCh   chan struct{}
}

// Options configures a cron Scheduler.
type Options struct {
	// Store holds the cron entries.
	Store Store

	// Fire executes a due entry's workflow.
	Fire FireFunc

	// Extensions receives cron-fired events. Optional.
	Extensions *ext.Registry

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// TickInterval is how often due entries are evaluated. Defaults
	// to 30 seconds.
	TickInterval time.Duration
}

// NewScheduler creates a cron scheduler.
func NewScheduler(opts Options) *Scheduler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	exts := opts.Extensions
	if exts == nil {
		exts = ext.NewRegistry()
	}

	tick := opts.TickInterval
	if tick <= 0 {
		tick = 30 * time.Second
	}

	return &Scheduler{
		store:  opts.Store,
		fire:   opts.Fire,
		exts:   exts,
		logger: logger,
		tick:   tick,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Run evaluates due entries until Shutdown is called or ctx is
// cancelled. Call it from its own goroutine.
func (s *Scheduler) Run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.evaluate(ctx)
		}
	}
}

// Shutdown stops the tick loop and waits for it to exit.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stopCh) })

	select {
	case <-s.doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// evaluate fires every due entry once and advances its NextRun.
func (s *Scheduler) evaluate(ctx context.Context) {
	now := time.Now().UTC()

	due, err := s.store.DueCrons(ctx, now)
	if err != nil {
		s.logger.Error("failed to list due cron entries", "error", err)

		return
	}

	for _, e := range due {
		next, err := NextAfter(e.Schedule, now)
		if err != nil {
			// Unparseable schedule in the store; disable rather than
			// fire forever.
			s.logger.Error("disabling cron entry with invalid schedule",
				"cron_id", e.ID.String(), "schedule", e.Schedule, "error", err)

			e.Enabled = false
			e.Touch()

			if uerr := s.store.UpdateCron(ctx, e); uerr != nil {
				s.logger.Error("failed to disable cron entry",
					"cron_id", e.ID.String(), "error", uerr)
			}

			continue
		}

		if err := s.fire(ctx, e); err != nil {
			s.logger.Error("cron fire failed",
				"cron_id", e.ID.String(), "workflow_id", e.WorkflowID, "error", err)
		} else {
			s.exts.CronFired(ctx, e.ID.String(), e.WorkflowID)
		}

		// NextRun advances even when firing fails so a broken workflow
		// does not fire on every tick.
		e.LastRun = now
		e.NextRun = next
		e.Touch()

		if err := s.store.UpdateCron(ctx, e); err != nil {
			s.logger.Error("failed to advance cron entry",
				"cron_id", e.ID.String(), "error", err)
		}
	}
}
