package job

import (
	"context"

	"github.com/bamtlab/conductor/id"
)

// ListOpts filters job listings. Zero values mean "no filter".
type ListOpts struct {
	// TenantID restricts results to one tenant.
	TenantID string

	// WorkflowID restricts results to one workflow.
	WorkflowID string

	// RunID restricts results to one run.
	RunID id.RunID

	// Status restricts results to one lifecycle state.
	Status Status

	// Limit caps the number of results. Zero means unlimited.
	Limit int
}

// CountOpts filters job counts. Zero values mean "no filter".
type CountOpts struct {
	TenantID   string
	WorkflowID string
	Status     Status
}

// Store is the persistence interface for job instances.
type Store interface {
	// CreateJob persists a new instance. Returns ErrJobExists if the
	// ID is taken.
	CreateJob(ctx context.Context, inst *Instance) error

	// GetJob fetches an instance by ID. Returns ErrJobNotFound if no
	// instance exists.
	GetJob(ctx context.Context, jobID id.JobID) (*Instance, error)

	// UpdateJob persists changes to an existing instance.
	UpdateJob(ctx context.Context, inst *Instance) error

	// ListJobs returns instances matching opts, oldest first by
	// creation time (IDs are K-sortable, so ID order is creation
	// order).
	ListJobs(ctx context.Context, opts ListOpts) ([]*Instance, error)

	// CountJobs returns the number of instances matching opts.
	CountJobs(ctx context.Context, opts CountOpts) (int, error)

	// DeleteJob removes an instance record.
	DeleteJob(ctx context.Context, jobID id.JobID) error
}
