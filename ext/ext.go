// Package ext defines lifecycle extension hooks. Extensions observe
// engine events (job state changes, scheduler mode changes, cron
// firings) without being able to alter them. Implement any subset of
// the hook interfaces and register the extension with the engine.
package ext

import (
	"context"

	"github.com/bamtlab/conductor/job"
)

// Extension is the marker interface for lifecycle extensions. An
// extension implements one or more of the hook interfaces below; the
// registry dispatches each event only to extensions that implement the
// matching hook.
type Extension interface {
	// Name identifies the extension in logs.
	Name() string
}

// JobEnqueuedHook observes job instances entering the admission queue.
type JobEnqueuedHook interface {
	OnJobEnqueued(ctx context.Context, inst *job.Instance)
}

// JobAdmittedHook observes the scheduler admitting instances to run.
type JobAdmittedHook interface {
	OnJobAdmitted(ctx context.Context, inst *job.Instance)
}

// JobSucceededHook observes instances reaching SUCCESS.
type JobSucceededHook interface {
	OnJobSucceeded(ctx context.Context, inst *job.Instance)
}

// JobFailedHook observes instances reaching FAILED.
type JobFailedHook interface {
	OnJobFailed(ctx context.Context, inst *job.Instance)
}

// SchedulerStartedHook observes the scheduler entering RUNNING mode.
type SchedulerStartedHook interface {
	OnSchedulerStarted(ctx context.Context)
}

// SchedulerPausedHook observes the scheduler entering PAUSED mode.
type SchedulerPausedHook interface {
	OnSchedulerPaused(ctx context.Context)
}

// CronFiredHook observes cron entries triggering workflow executions.
type CronFiredHook interface {
	OnCronFired(ctx context.Context, cronID string, workflowID string)
}

// ShutdownHook gives extensions a chance to flush on engine shutdown.
type ShutdownHook interface {
	OnShutdown(ctx context.Context) error
}
