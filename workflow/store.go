package workflow

import (
	"context"

	"github.com/bamtlab/conductor/id"
)

// Store is the persistence interface for workflows, branches, job
// specs, and run records. Implementations must keep branch job lists
// ordered and contiguous: deleting a spec at index i shifts all later
// specs down by one.
type Store interface {
	// CreateWorkflow persists a new workflow. Returns ErrWorkflowExists
	// if the ID is taken.
	CreateWorkflow(ctx context.Context, w *Workflow) error

	// GetWorkflow fetches a workflow by ID. Returns ErrWorkflowNotFound
	// if no workflow exists.
	GetWorkflow(ctx context.Context, workflowID string) (*Workflow, error)

	// UpdateWorkflow persists changes to an existing workflow.
	UpdateWorkflow(ctx context.Context, w *Workflow) error

	// ListWorkflows returns workflows, optionally filtered by tenant,
	// ordered by ID.
	ListWorkflows(ctx context.Context, tenantID string) ([]*Workflow, error)

	// DeleteWorkflow removes a workflow and all of its branches, specs,
	// and run records.
	DeleteWorkflow(ctx context.Context, workflowID string) error

	// CreateBranch adds a branch to a workflow. Returns ErrBranchExists
	// if the name is taken within the workflow.
	CreateBranch(ctx context.Context, b *Branch) error

	// GetBranch fetches a branch by workflow and name. Returns
	// ErrBranchNotFound if no branch exists.
	GetBranch(ctx context.Context, workflowID, branch string) (*Branch, error)

	// ListBranches returns a workflow's branches ordered by name.
	ListBranches(ctx context.Context, workflowID string) ([]*Branch, error)

	// DeleteBranch removes a branch and its job specs.
	DeleteBranch(ctx context.Context, workflowID, branch string) error

	// AppendJobSpec appends a spec to the end of a branch's job list
	// and returns its zero-based position.
	AppendJobSpec(ctx context.Context, workflowID, branch string, spec JobSpec) (int, error)

	// ListJobSpecs returns a branch's specs in order.
	ListJobSpecs(ctx context.Context, workflowID, branch string) ([]JobSpec, error)

	// DeleteJobSpecAt removes the spec at the given zero-based index,
	// shifting later specs down. Returns ErrSpecIndexNotFound if the
	// index is out of range.
	DeleteJobSpecAt(ctx context.Context, workflowID, branch string, index int) error

	// CreateRun persists a run record.
	CreateRun(ctx context.Context, r *Run) error

	// GetRun fetches a run by ID. Returns ErrRunNotFound if no run
	// exists.
	GetRun(ctx context.Context, runID id.RunID) (*Run, error)

	// ListRuns returns a workflow's runs, newest first.
	ListRuns(ctx context.Context, workflowID string) ([]*Run, error)
}
