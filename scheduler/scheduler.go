// Package scheduler implements the admission control loop. The
// scheduler owns the PENDING to RUNNING transition: on every pass it
// asks the queue for admissible jobs, marks them RUNNING with a
// scheduled timestamp, and hands them to the dispatch function.
//
// The scheduler has two modes, RUNNING and PAUSED, and starts PAUSED.
// Pausing stops new admissions only; jobs already running continue to
// completion.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bamtlab/conductor/ext"
	"github.com/bamtlab/conductor/job"
	"github.com/bamtlab/conductor/queue"
)

// Mode is the scheduler's admission switch.
type Mode string

// Scheduler modes.
const (
	ModeRunning Mode = "RUNNING"
	ModePaused  Mode = "PAUSED"
)

// DispatchFunc runs an admitted instance. The instance is already
// RUNNING with ScheduledAt set when dispatch is called.
type DispatchFunc func(ctx context.Context, inst *job.Instance)

// Scheduler drives admission. Create with New, start the loop with
// Run, and flip admission with Start and Pause.
type Scheduler struct {
	queue    *queue.Manager
	store    job.Store
	dispatch DispatchFunc
	exts     *ext.Registry
	logger   *slog.Logger
	tick     time.Duration

	mu   sync.Mutex
	mode Mode

	wakeCh   chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
	doneCh   chan struct{}
}

// Options configures a Scheduler.
type Options struct {
	// Queue is the admission queue.
	Queue *queue.Manager

	// Store persists the PENDING to RUNNING transition.
	Store job.Store

	// Dispatch runs admitted instances.
	Dispatch DispatchFunc

	// Extensions receives admission and mode-change events. Optional.
	Extensions *ext.Registry

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// TickInterval is how often the loop re-evaluates admission
	// without a wake event. Defaults to one second.
	TickInterval time.Duration
}

// New creates a scheduler in PAUSED mode.
func New(opts Options) *Scheduler {
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
		tick = time.Second
	}

	return &Scheduler{
		queue:    opts.Queue,
		store:    opts.Store,
		dispatch: opts.Dispatch,
		exts:     exts,
		logger:   logger,
		tick:     tick,
		mode:     ModePaused,
		wakeCh:   make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Mode returns the current admission mode.
func (s *Scheduler) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mode
}

// Start switches the scheduler to RUNNING and triggers an admission
// pass. Idempotent.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.mode == ModeRunning {
		s.mu.Unlock()

		return
	}

	s.mode = ModeRunning
	s.mu.Unlock()

	s.logger.Info("scheduler started")
	s.exts.SchedulerStarted(ctx)
	s.Wake()
}

// Pause switches the scheduler to PAUSED. Jobs already running are
// unaffected. Idempotent.
func (s *Scheduler) Pause(ctx context.Context) {
	s.mu.Lock()
	if s.mode == ModePaused {
		s.mu.Unlock()

		return
	}

	s.mode = ModePaused
	s.mu.Unlock()

	s.logger.Info("scheduler paused")
	s.exts.SchedulerPaused(ctx)
}

// Wake nudges the loop to run an admission pass now. Coalesces: wakes
// while a pass is pending are merged.
func (s *Scheduler) Wake() {
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}

// Run executes the admission loop until Shutdown is called or ctx is
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
		case <-s.wakeCh:
		case <-ticker.C:
		}

		s.admitPass(ctx)
	}
}

// Shutdown stops the admission loop and waits for it to exit. Jobs
// already dispatched keep running; the engine waits on the executor.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stopCh) })

	select {
	case <-s.doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// admitPass admits as many jobs as the ceilings allow right now.
func (s *Scheduler) admitPass(ctx context.Context) {
	for {
		if s.Mode() != ModeRunning {
			return
		}

		jobID, _, ok := s.queue.NextAdmissible()
		if !ok {
			return
		}

		inst, err := s.store.GetJob(ctx, jobID)
		if err != nil {
			// Deleted between enqueue and admission. Free the slot.
			s.logger.Warn("admitted job missing from store",
				"job_id", jobID.String(), "error", err)
			s.queue.Release(jobID)

			continue
		}

		if inst.Status != job.StatusPending {
			s.logger.Warn("admitted job not pending",
				"job_id", jobID.String(), "status", string(inst.Status))
			s.queue.Release(jobID)

			continue
		}

		now := time.Now().UTC()
		inst.Status = job.StatusRunning
		inst.ScheduledAt = &now
		inst.Touch()

		if err := s.store.UpdateJob(ctx, inst); err != nil {
			s.logger.Error("failed to record admission",
				"job_id", jobID.String(), "error", err)
			s.queue.Release(jobID)

			continue
		}

		s.exts.JobAdmitted(ctx, inst)
		s.dispatch(ctx, inst)
	}
}
