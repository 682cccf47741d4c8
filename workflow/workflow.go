// Package workflow defines the workflow data model: workflows, their
// branches, the ordered job specs inside a branch, and the run records
// produced when a workflow is executed.
//
// A workflow is a named container owned by one tenant. Each branch
// holds an ordered list of job specs; exactly one branch may be marked
// as the entry branch, and executing the workflow materializes only
// that branch's specs into job instances.
package workflow

import (
	"encoding/json"

	"github.com/bamtlab/conductor"
	"github.com/bamtlab/conductor/id"
)

// Workflow is a named, tenant-owned container of branches.
type Workflow struct {
	conductor.Entity

	// ID uniquely identifies the workflow. Caller-supplied.
	ID string `json:"id"`

	// Name is a human-readable label.
	Name string `json:"name"`

	// TenantID is the owning tenant.
	TenantID string `json:"tenant_id"`

	// EntryBranch names the branch materialized by Execute. Empty
	// means no entry branch has been designated.
	EntryBranch string `json:"entry_branch,omitempty"`
}

// Branch is an ordered list of job specs within a workflow. Branch
// names are unique per workflow.
type Branch struct {
	conductor.Entity

	// Name identifies the branch within its workflow.
	Name string `json:"name"`

	// WorkflowID is the containing workflow.
	WorkflowID string `json:"workflow_id"`
}

// JobSpec is one position in a branch's ordered job list. Specs are
// addressed by zero-based index; deleting a spec shifts later indices
// down by one.
type JobSpec struct {
	// TemplateID names the job template to instantiate.
	TemplateID string `json:"template_id"`

	// InputPayload is the raw JSON input handed to the template.
	InputPayload json.RawMessage `json:"input_payload,omitempty"`
}

// Run records one execution of a workflow: which jobs it materialized
// and when. Runs are immutable once created.
type Run struct {
	conductor.Entity

	// ID uniquely identifies the run.
	ID id.RunID `json:"id"`

	// WorkflowID is the executed workflow.
	WorkflowID string `json:"workflow_id"`

	// TenantID is the owning tenant, denormalized for listing.
	TenantID string `json:"tenant_id"`

	// Branch is the entry branch that was materialized.
	Branch string `json:"branch"`

	// JobIDs are the materialized job instances in branch order.
	JobIDs []id.JobID `json:"job_ids"`
}
