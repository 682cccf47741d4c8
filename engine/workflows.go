package engine

import (
	"context"
	"fmt"

	"github.com/bamtlab/conductor"
	"github.com/bamtlab/conductor/job"
	"github.com/bamtlab/conductor/workflow"
)

// CreateWorkflow registers a workflow under a tenant. The workflow
// starts with no branches and no entry branch.
func (e *Engine) CreateWorkflow(ctx context.Context, tenantID, workflowID, name string) (*workflow.Workflow, error) {
	if workflowID == "" {
		return nil, fmt.Errorf("%w: empty workflow id", conductor.ErrInvalidInput)
	}

	if _, err := e.store.GetTenant(ctx, tenantID); err != nil {
		return nil, err
	}

	w := &workflow.Workflow{
		Entity:   conductor.NewEntity(),
		ID:       workflowID,
		Name:     name,
		TenantID: tenantID,
	}

	if err := e.store.CreateWorkflow(ctx, w); err != nil {
		return nil, err
	}

	return w, nil
}

// GetWorkflow fetches a workflow by ID.
func (e *Engine) GetWorkflow(ctx context.Context, workflowID string) (*workflow.Workflow, error) {
	return e.store.GetWorkflow(ctx, workflowID)
}

// ListWorkflows returns workflows, optionally filtered by tenant.
func (e *Engine) ListWorkflows(ctx context.Context, tenantID string) ([]*workflow.Workflow, error) {
	return e.store.ListWorkflows(ctx, tenantID)
}

// DeleteWorkflow removes a workflow, its branches, specs, runs, cron
// entries, and terminal job records. Refuses with ErrWorkflowBusy
// while the workflow has PENDING or RUNNING jobs.
func (e *Engine) DeleteWorkflow(ctx context.Context, workflowID string) error {
	if _, err := e.store.GetWorkflow(ctx, workflowID); err != nil {
		return err
	}

	active, err := e.countActiveJobs(ctx, job.CountOpts{WorkflowID: workflowID})
	if err != nil {
		return err
	}

	if active > 0 {
		return fmt.Errorf("%w: %d active jobs", conductor.ErrWorkflowBusy, active)
	}

	return e.deleteWorkflowCascade(ctx, workflowID)
}

// deleteWorkflowCascade removes the workflow and everything hanging
// off it. Callers have already verified no active jobs remain.
func (e *Engine) deleteWorkflowCascade(ctx context.Context, workflowID string) error {
	crons, err := e.store.ListCrons(ctx, workflowID)
	if err != nil {
		return err
	}

	for _, c := range crons {
		if err := e.store.DeleteCron(ctx, c.ID); err != nil && !conductor.IsNotFound(err) {
			return err
		}
	}

	jobs, err := e.store.ListJobs(ctx, job.ListOpts{WorkflowID: workflowID})
	if err != nil {
		return err
	}

	for _, inst := range jobs {
		if err := e.store.DeleteJob(ctx, inst.ID); err != nil && !conductor.IsNotFound(err) {
			return err
		}
	}

	if err := e.store.DeleteWorkflow(ctx, workflowID); err != nil {
		return err
	}

	e.logger.Info("workflow deleted", "workflow_id", workflowID)

	return nil
}

// CreateBranch adds an empty branch to a workflow. The first branch
// created on a workflow becomes its entry branch.
func (e *Engine) CreateBranch(ctx context.Context, workflowID, branch string) (*workflow.Branch, error) {
	if branch == "" {
		return nil, fmt.Errorf("%w: empty branch name", conductor.ErrInvalidInput)
	}

	w, err := e.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	b := &workflow.Branch{
		Entity:     conductor.NewEntity(),
		Name:       branch,
		WorkflowID: workflowID,
	}

	if err := e.store.CreateBranch(ctx, b); err != nil {
		return nil, err
	}

	if w.EntryBranch == "" {
		w.EntryBranch = branch
		w.Touch()

		if err := e.store.UpdateWorkflow(ctx, w); err != nil {
			return nil, err
		}
	}

	return b, nil
}

// ListBranches returns a workflow's branches.
func (e *Engine) ListBranches(ctx context.Context, workflowID string) ([]*workflow.Branch, error) {
	return e.store.ListBranches(ctx, workflowID)
}

// DeleteBranch removes a branch and its specs. The entry branch cannot
// be deleted; point the workflow elsewhere first with SetEntryBranch.
func (e *Engine) DeleteBranch(ctx context.Context, workflowID, branch string) error {
	w, err := e.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return err
	}

	if w.EntryBranch == branch {
		return fmt.Errorf("%w: %s", conductor.ErrEntryBranch, branch)
	}

	return e.store.DeleteBranch(ctx, workflowID, branch)
}

// SetEntryBranch designates the branch Execute materializes. The
// branch must exist.
func (e *Engine) SetEntryBranch(ctx context.Context, workflowID, branch string) (*workflow.Workflow, error) {
	w, err := e.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if _, err := e.store.GetBranch(ctx, workflowID, branch); err != nil {
		return nil, err
	}

	w.EntryBranch = branch
	w.Touch()

	if err := e.store.UpdateWorkflow(ctx, w); err != nil {
		return nil, err
	}

	return w, nil
}

// AppendJobSpec appends a spec to a branch and returns its zero-based
// position. The template must be registered; referencing an unknown
// template fails here rather than at execution.
func (e *Engine) AppendJobSpec(ctx context.Context, workflowID, branch string, spec workflow.JobSpec) (int, error) {
	if spec.TemplateID == "" {
		return 0, fmt.Errorf("%w: empty template id", conductor.ErrInvalidInput)
	}

	if !e.templates.Has(spec.TemplateID) {
		return 0, fmt.Errorf("%w: %s", conductor.ErrTemplateNotFound, spec.TemplateID)
	}

	return e.store.AppendJobSpec(ctx, workflowID, branch, spec)
}

// ListJobSpecs returns a branch's specs in order.
func (e *Engine) ListJobSpecs(ctx context.Context, workflowID, branch string) ([]workflow.JobSpec, error) {
	return e.store.ListJobSpecs(ctx, workflowID, branch)
}

// DeleteJobSpecAt removes the spec at index, shifting later specs
// down by one. Already-materialized job instances are unaffected.
func (e *Engine) DeleteJobSpecAt(ctx context.Context, workflowID, branch string, index int) error {
	return e.store.DeleteJobSpecAt(ctx, workflowID, branch, index)
}
