package engine

import (
	"context"
	"fmt"

	"github.com/bamtlab/conductor"
	"github.com/bamtlab/conductor/cron"
	"github.com/bamtlab/conductor/id"
	"github.com/bamtlab/conductor/job"
	"github.com/bamtlab/conductor/workflow"
)

// ExecuteWorkflow materializes the workflow's entry branch into
// PENDING job instances, enqueues them in branch order, and returns
// the run record. Only the entry branch is materialized; other
// branches are inert until designated.
//
// A workflow without an entry branch falls back to a branch named
// "main" when one exists; otherwise ErrNoEntryBranch. Executing an
// empty branch produces a run with no jobs.
func (e *Engine) ExecuteWorkflow(ctx context.Context, workflowID string) (*workflow.Run, error) {
	w, err := e.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	branch, err := e.resolveEntryBranch(ctx, w)
	if err != nil {
		return nil, err
	}

	specs, err := e.store.ListJobSpecs(ctx, workflowID, branch)
	if err != nil {
		return nil, err
	}

	run := &workflow.Run{
		Entity:     conductor.NewEntity(),
		ID:         id.NewRunID(),
		WorkflowID: workflowID,
		TenantID:   w.TenantID,
		Branch:     branch,
		JobIDs:     make([]id.JobID, 0, len(specs)),
	}

	instances := make([]*job.Instance, 0, len(specs))

	for pos, spec := range specs {
		timeout := e.cfg.DefaultJobTimeout
		if tmpl, ok := e.templates.Get(spec.TemplateID); ok && tmpl.Timeout > 0 {
			timeout = tmpl.Timeout
		}

		inst := &job.Instance{
			Entity:       conductor.NewEntity(),
			ID:           id.NewJobID(),
			TenantID:     w.TenantID,
			WorkflowID:   workflowID,
			Branch:       branch,
			RunID:        run.ID,
			Position:     pos,
			TemplateID:   spec.TemplateID,
			InputPayload: spec.InputPayload,
			Status:       job.StatusPending,
			Timeout:      timeout,
		}

		if err := e.store.CreateJob(ctx, inst); err != nil {
			return nil, fmt.Errorf("engine: materialize job %d: %w", pos, err)
		}

		instances = append(instances, inst)
		run.JobIDs = append(run.JobIDs, inst.ID)
	}

	if err := e.store.CreateRun(ctx, run); err != nil {
		return nil, err
	}

	// Enqueue only after the run record exists so a failed Execute
	// never leaves queued jobs without their run.
	for _, inst := range instances {
		e.queue.Enqueue(inst.ID, inst.TenantID)
		e.exts.JobEnqueued(ctx, inst)
	}

	e.sched.Wake()

	e.logger.Info("workflow executed",
		"workflow_id", workflowID,
		"run_id", run.ID.String(),
		"branch", branch,
		"jobs", len(run.JobIDs),
	)

	return run, nil
}

func (e *Engine) resolveEntryBranch(ctx context.Context, w *workflow.Workflow) (string, error) {
	if w.EntryBranch != "" {
		if _, err := e.store.GetBranch(ctx, w.ID, w.EntryBranch); err != nil {
			return "", fmt.Errorf("%w: entry branch %q missing", conductor.ErrNoEntryBranch, w.EntryBranch)
		}

		return w.EntryBranch, nil
	}

	// No designated entry; a branch named "main" serves as one.
	if _, err := e.store.GetBranch(ctx, w.ID, "main"); err == nil {
		return "main", nil
	}

	return "", fmt.Errorf("%w: workflow %s", conductor.ErrNoEntryBranch, w.ID)
}

// fireCron executes a due cron entry's workflow.
func (e *Engine) fireCron(ctx context.Context, entry *cron.Entry) error {
	_, err := e.ExecuteWorkflow(ctx, entry.WorkflowID)

	return err
}
