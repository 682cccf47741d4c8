package engine

import (
	"context"
	"fmt"

	"github.com/bamtlab/conductor"
	"github.com/bamtlab/conductor/id"
	"github.com/bamtlab/conductor/job"
	"github.com/bamtlab/conductor/workflow"
)

// GetJob fetches a job instance by ID.
func (e *Engine) GetJob(ctx context.Context, jobID id.JobID) (*job.Instance, error) {
	return e.store.GetJob(ctx, jobID)
}

// ListJobs returns job instances matching opts, oldest first.
func (e *Engine) ListJobs(ctx context.Context, opts job.ListOpts) ([]*job.Instance, error) {
	return e.store.ListJobs(ctx, opts)
}

// DeleteJob removes a job record. PENDING instances are withdrawn from
// the admission queue first; RUNNING instances cannot be deleted, they
// finish or time out.
func (e *Engine) DeleteJob(ctx context.Context, jobID id.JobID) error {
	inst, err := e.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	if inst.Status == job.StatusRunning {
		return fmt.Errorf("%w: job %s is running", conductor.ErrInvalidTransition, jobID)
	}

	if inst.Status == job.StatusPending {
		e.queue.Remove(jobID)
	}

	return e.store.DeleteJob(ctx, jobID)
}

// GetRun fetches a run record by ID.
func (e *Engine) GetRun(ctx context.Context, runID id.RunID) (*workflow.Run, error) {
	return e.store.GetRun(ctx, runID)
}

// ListRuns returns a workflow's runs, newest first.
func (e *Engine) ListRuns(ctx context.Context, workflowID string) ([]*workflow.Run, error) {
	if _, err := e.store.GetWorkflow(ctx, workflowID); err != nil {
		return nil, err
	}

	return e.store.ListRuns(ctx, workflowID)
}
