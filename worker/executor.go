// Package worker executes admitted job instances. The executor resolves
// the instance's template, runs its handler through the middleware
// chain, and records the terminal outcome. Together with the scheduler
// it is the only writer of job state.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bamtlab/conductor/ext"
	"github.com/bamtlab/conductor/id"
	"github.com/bamtlab/conductor/job"
	"github.com/bamtlab/conductor/middleware"
	"github.com/bamtlab/conductor/template"
)

// Executor runs admitted job instances to completion.
type Executor struct {
	store     job.Store
	templates *template.Registry
	exts      *ext.Registry
	logger    *slog.Logger
	handler   middleware.Handler
	onFinish  func(jobID id.JobID)

	wg sync.WaitGroup
}

// Options configures an Executor.
type Options struct {
	// Store persists job state changes.
	Store job.Store

	// Templates resolves template IDs to handlers.
	Templates *template.Registry

	// Extensions receives terminal lifecycle events. Optional.
	Extensions *ext.Registry

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Middleware wraps the template handler, outermost first.
	Middleware []middleware.Middleware

	// OnFinish is called after an instance reaches a terminal state
	// and the store is updated. The scheduler uses it to free the
	// instance's queue slot and trigger the next admission pass.
	OnFinish func(jobID id.JobID)
}

// NewExecutor creates an executor with the given options.
func NewExecutor(opts Options) *Executor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	exts := opts.Extensions
	if exts == nil {
		exts = ext.NewRegistry()
	}

	e := &Executor{
		store:     opts.Store,
		templates: opts.Templates,
		exts:      exts,
		logger:    logger,
		onFinish:  opts.OnFinish,
	}

	e.handler = middleware.Chain(e.invoke, opts.Middleware...)

	return e
}

// Dispatch runs an admitted instance in its own goroutine. The instance
// must already be RUNNING with ScheduledAt set.
func (e *Executor) Dispatch(ctx context.Context, inst *job.Instance) {
	e.wg.Add(1)

	go func() {
		defer e.wg.Done()
		e.execute(ctx, inst)
	}()
}

// Wait blocks until all dispatched instances have finished.
func (e *Executor) Wait() {
	e.wg.Wait()
}

func (e *Executor) execute(ctx context.Context, inst *job.Instance) {
	now := time.Now().UTC()
	inst.StartedAt = &now
	inst.Touch()

	if err := e.store.UpdateJob(ctx, inst); err != nil {
		e.logger.Error("failed to record job start",
			"job_id", inst.ID.String(), "error", err)
	}

	out, err := e.handler(ctx, inst)

	if err != nil {
		e.finishFailure(ctx, inst, err)
	} else {
		e.finishSuccess(ctx, inst, out)
	}

	if e.onFinish != nil {
		e.onFinish(inst.ID)
	}
}

// invoke is the innermost handler: it resolves the template and runs it.
func (e *Executor) invoke(ctx context.Context, inst *job.Instance) ([]byte, error) {
	tmpl, ok := e.templates.Get(inst.TemplateID)
	if !ok {
		return nil, conductorTemplateNotFound(inst.TemplateID)
	}

	return tmpl.Handler()(ctx, inst.InputPayload)
}

func (e *Executor) finishSuccess(ctx context.Context, inst *job.Instance, out []byte) {
	now := time.Now().UTC()
	inst.Status = job.StatusSuccess
	inst.OutputPayload = out
	inst.FinishedAt = &now
	inst.Touch()

	if err := e.store.UpdateJob(ctx, inst); err != nil {
		e.logger.Error("failed to record job success",
			"job_id", inst.ID.String(), "error", err)
	}

	e.exts.JobSucceeded(ctx, inst)
}

func (e *Executor) finishFailure(ctx context.Context, inst *job.Instance, cause error) {
	now := time.Now().UTC()
	inst.Status = job.StatusFailed
	inst.OutputPayload = job.FailurePayload(cause.Error(), isTimeout(cause))
	inst.FinishedAt = &now
	inst.Touch()

	if err := e.store.UpdateJob(ctx, inst); err != nil {
		e.logger.Error("failed to record job failure",
			"job_id", inst.ID.String(), "error", err)
	}

	e.exts.JobFailed(ctx, inst)
}
