package ext

import (
	"context"
	"errors"
	"sync"

	"github.com/bamtlab/conductor/job"
)

// Registry holds registered extensions and dispatches lifecycle events
// to them. Hook slices are cached per type at registration so event
// dispatch does no interface assertions on the hot path.
type Registry struct {
	mu         sync.RWMutex
	extensions []Extension

	enqueued  []JobEnqueuedHook
	admitted  []JobAdmittedHook
	succeeded []JobSucceededHook
	failed    []JobFailedHook
	started   []SchedulerStartedHook
	paused    []SchedulerPausedHook
	cronFired []CronFiredHook
	shutdown  []ShutdownHook
}

// NewRegistry creates an empty extension registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds an extension, caching which hooks it implements.
func (r *Registry) Register(e Extension) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.extensions = append(r.extensions, e)

	if h, ok := e.(JobEnqueuedHook); ok {
		r.enqueued = append(r.enqueued, h)
	}

	if h, ok := e.(JobAdmittedHook); ok {
		r.admitted = append(r.admitted, h)
	}

	if h, ok := e.(JobSucceededHook); ok {
		r.succeeded = append(r.succeeded, h)
	}

	if h, ok := e.(JobFailedHook); ok {
		r.failed = append(r.failed, h)
	}

	if h, ok := e.(SchedulerStartedHook); ok {
		r.started = append(r.started, h)
	}

	if h, ok := e.(SchedulerPausedHook); ok {
		r.paused = append(r.paused, h)
	}

	if h, ok := e.(CronFiredHook); ok {
		r.cronFired = append(r.cronFired, h)
	}

	if h, ok := e.(ShutdownHook); ok {
		r.shutdown = append(r.shutdown, h)
	}
}

// Names returns the names of all registered extensions.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.extensions))
	for _, e := range r.extensions {
		names = append(names, e.Name())
	}

	return names
}

// JobEnqueued dispatches to all JobEnqueuedHook extensions.
func (r *Registry) JobEnqueued(ctx context.Context, inst *job.Instance) {
	r.mu.RLock()
	hooks := r.enqueued
	r.mu.RUnlock()

	for _, h := range hooks {
		h.OnJobEnqueued(ctx, inst)
	}
}

// JobAdmitted dispatches to all JobAdmittedHook extensions.
func (r *Registry) JobAdmitted(ctx context.Context, inst *job.Instance) {
	r.mu.RLock()
	hooks := r.admitted
	r.mu.RUnlock()

	for _, h := range hooks {
		h.OnJobAdmitted(ctx, inst)
	}
}

// JobSucceeded dispatches to all JobSucceededHook extensions.
func (r *Registry) JobSucceeded(ctx context.Context, inst *job.Instance) {
	r.mu.RLock()
	hooks := r.succeeded
	r.mu.RUnlock()

	for _, h := range hooks {
		h.OnJobSucceeded(ctx, inst)
	}
}

// JobFailed dispatches to all JobFailedHook extensions.
func (r *Registry) JobFailed(ctx context.Context, inst *job.Instance) {
	r.mu.RLock()
	hooks := r.failed
	r.mu.RUnlock()

	for _, h := range hooks {
		h.OnJobFailed(ctx, inst)
	}
}

// SchedulerStarted dispatches to all SchedulerStartedHook extensions.
func (r *Registry) SchedulerStarted(ctx context.Context) {
	r.mu.RLock()
	hooks := r.started
	r.mu.RUnlock()

	for _, h := range hooks {
		h.OnSchedulerStarted(ctx)
	}
}

// SchedulerPaused dispatches to all SchedulerPausedHook extensions.
func (r *Registry) SchedulerPaused(ctx context.Context) {
	r.mu.RLock()
	hooks := r.paused
	r.mu.RUnlock()

	for _, h := range hooks {
		h.OnSchedulerPaused(ctx)
	}
}

// CronFired dispatches to all CronFiredHook extensions.
func (r *Registry) CronFired(ctx context.Context, cronID, workflowID string) {
	r.mu.RLock()
	hooks := r.cronFired
	r.mu.RUnlock()

	for _, h := range hooks {
		h.OnCronFired(ctx, cronID, workflowID)
	}
}

// Shutdown dispatches to all ShutdownHook extensions and joins their
// errors.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.RLock()
	hooks := r.shutdown
	r.mu.RUnlock()

	var errs []error
	for _, h := range hooks {
		if err := h.OnShutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
