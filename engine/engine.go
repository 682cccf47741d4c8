// Package engine assembles the conductor subsystems into one facade.
// It owns the store, the template registry, the admission queue, the
// scheduler, the executor, and the cron scheduler, and exposes the
// operations callers use to manage tenants, workflows, and jobs.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bamtlab/conductor"
	"github.com/bamtlab/conductor/cron"
	"github.com/bamtlab/conductor/ext"
	"github.com/bamtlab/conductor/id"
	"github.com/bamtlab/conductor/job"
	"github.com/bamtlab/conductor/middleware"
	"github.com/bamtlab/conductor/queue"
	"github.com/bamtlab/conductor/scheduler"
	"github.com/bamtlab/conductor/store"
	"github.com/bamtlab/conductor/template"
	"github.com/bamtlab/conductor/worker"
)

// Engine is the top-level facade over the scheduling subsystems.
type Engine struct {
	cfg       conductor.Config
	store     store.Store
	templates *template.Registry
	queue     *queue.Manager
	sched     *scheduler.Scheduler
	exec      *worker.Executor
	cronSched *cron.Scheduler
	exts      *ext.Registry
	logger    *slog.Logger
}

// Option customizes engine construction.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	exts       *ext.Registry
	middleware []middleware.Middleware
	cronTick   time.Duration
}

// WithLogger sets the engine's logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithExtensions sets the lifecycle extension registry.
func WithExtensions(exts *ext.Registry) Option {
	return func(o *options) { o.exts = exts }
}

// WithMiddleware appends execution middleware, outermost first. The
// engine always appends timeout enforcement as the innermost layer.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(o *options) { o.middleware = append(o.middleware, mws...) }
}

// WithCronTick sets how often due cron entries are evaluated.
func WithCronTick(tick time.Duration) Option {
	return func(o *options) { o.cronTick = tick }
}

// New assembles an engine. The store must be migrated; the registry
// should hold every template the stored workflows reference. The
// scheduler starts PAUSED: call StartScheduler (or drive it over the
// API) to begin admitting jobs.
func New(cfg conductor.Config, st store.Store, templates *template.Registry, opts ...Option) (*Engine, error) {
	if st == nil {
		return nil, conductor.ErrNoStore
	}

	if templates == nil {
		templates = template.NewRegistry()
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	if o.logger == nil {
		o.logger = slog.Default()
	}

	if o.exts == nil {
		o.exts = ext.NewRegistry()
	}

	e := &Engine{
		cfg:       cfg,
		store:     st,
		templates: templates,
		exts:      o.exts,
		logger:    o.logger,
	}

	e.queue = queue.NewManager(queue.Limits{
		MaxRunning:           cfg.MaxRunning,
		MaxTenantConcurrency: cfg.MaxTenantConcurrency,
	})

	mws := append([]middleware.Middleware{}, o.middleware...)
	mws = append(mws, middleware.Timeout(cfg.DefaultJobTimeout))

	e.exec = worker.NewExecutor(worker.Options{
		Store:      st,
		Templates:  templates,
		Extensions: o.exts,
		Logger:     o.logger,
		Middleware: mws,
		OnFinish: func(jobID id.JobID) {
			e.queue.Release(jobID)
			e.sched.Wake()
		},
	})

	e.sched = scheduler.New(scheduler.Options{
		Queue:        e.queue,
		Store:        st,
		Dispatch:     e.exec.Dispatch,
		Extensions:   o.exts,
		Logger:       o.logger,
		TickInterval: cfg.TickInterval,
	})

	e.cronSched = cron.NewScheduler(cron.Options{
		Store:        st,
		Fire:         e.fireCron,
		Extensions:   o.exts,
		Logger:       o.logger,
		TickInterval: o.cronTick,
	})

	return e, nil
}

// Run starts the scheduler and cron loops and blocks until ctx is
// cancelled, then drains. Admission stays PAUSED until StartScheduler
// is called.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.restore(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		e.sched.Run(gctx)

		return nil
	})

	g.Go(func() error {
		e.cronSched.Run(gctx)

		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	return e.drain()
}

// Shutdown stops admission, waits for in-flight jobs, and flushes
// extensions. Call after cancelling the Run context, or instead of it
// when the loops were started by hand.
func (e *Engine) Shutdown(ctx context.Context) error {
	if err := e.sched.Shutdown(ctx); err != nil {
		return err
	}

	if err := e.cronSched.Shutdown(ctx); err != nil {
		return err
	}

	if err := e.drain(); err != nil {
		return err
	}

	return e.exts.Shutdown(ctx)
}

func (e *Engine) drain() error {
	done := make(chan struct{})

	go func() {
		e.exec.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(e.shutdownTimeout()):
		return fmt.Errorf("engine: drain timed out after %v", e.shutdownTimeout())
	}
}

func (e *Engine) shutdownTimeout() time.Duration {
	if e.cfg.ShutdownTimeout > 0 {
		return e.cfg.ShutdownTimeout
	}

	return 30 * time.Second
}

// restore re-enqueues PENDING instances left over from a previous
// process so a restart does not strand them. RUNNING instances from a
// dead process are failed; their handlers are gone.
func (e *Engine) restore(ctx context.Context) error {
	pending, err := e.store.ListJobs(ctx, job.ListOpts{Status: job.StatusPending})
	if err != nil {
		return fmt.Errorf("engine: restore pending jobs: %w", err)
	}

	for _, inst := range pending {
		e.queue.Enqueue(inst.ID, inst.TenantID)
	}

	if len(pending) > 0 {
		e.logger.Info("restored pending jobs", "count", len(pending))
	}

	orphans, err := e.store.ListJobs(ctx, job.ListOpts{Status: job.StatusRunning})
	if err != nil {
		return fmt.Errorf("engine: restore running jobs: %w", err)
	}

	for _, inst := range orphans {
		now := time.Now().UTC()
		inst.Status = job.StatusFailed
		inst.OutputPayload = job.FailurePayload("orphaned by process restart", false)
		inst.FinishedAt = &now
		inst.Touch()

		if err := e.store.UpdateJob(ctx, inst); err != nil {
			e.logger.Error("failed to fail orphaned job",
				"job_id", inst.ID.String(), "error", err)
		}
	}

	if len(orphans) > 0 {
		e.logger.Warn("failed orphaned running jobs", "count", len(orphans))
	}

	return nil
}

// StartScheduler switches admission to RUNNING. Idempotent.
func (e *Engine) StartScheduler(ctx context.Context) {
	e.sched.Start(ctx)
}

// PauseScheduler switches admission to PAUSED. Running jobs finish.
// Idempotent.
func (e *Engine) PauseScheduler(ctx context.Context) {
	e.sched.Pause(ctx)
}

// SchedulerMode returns the current admission mode.
func (e *Engine) SchedulerMode() scheduler.Mode {
	return e.sched.Mode()
}

// QueueStats reports admission queue occupancy.
func (e *Engine) QueueStats() queue.Stats {
	return e.queue.Snapshot()
}

// Templates returns the names of all registered job templates.
func (e *Engine) Templates() []string {
	return e.templates.Names()
}

// Ping reports store health.
func (e *Engine) Ping(ctx context.Context) error {
	return e.store.Ping(ctx)
}
