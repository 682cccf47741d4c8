// Package job defines the job instance model and its store interface.
// A job instance is one materialized execution of a job spec: it moves
// through a fixed state machine (PENDING to RUNNING to SUCCESS or
// FAILED) under the control of the scheduler and executor, which are
// the only writers of job state.
package job

import (
	"encoding/json"
	"time"

	"github.com/bamtlab/conductor"
	"github.com/bamtlab/conductor/id"
)

// Status is the lifecycle state of a job instance.
type Status string

// Job statuses. PENDING and RUNNING are active; SUCCESS and FAILED are
// terminal and never transition further.
const (
	StatusPending Status = "PENDING"
	StatusRunning Status = "RUNNING"
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusSuccess, StatusFailed:
		return true
	default:
		return false
	}
}

// Terminal reports whether s is a terminal status.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// Active reports whether s counts against concurrency ceilings or
// blocks destructive cascades.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusRunning
}

// CanTransition reports whether the state machine permits moving from
// s to next.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusRunning
	case StatusRunning:
		return next == StatusSuccess || next == StatusFailed
	default:
		return false
	}
}

// Instance is one materialized execution of a job spec.
type Instance struct {
	conductor.Entity

	// ID uniquely identifies the instance.
	ID id.JobID `json:"id"`

	// TenantID is the owning tenant, denormalized from the workflow.
	TenantID string `json:"tenant_id"`

	// WorkflowID is the workflow this instance was materialized from.
	WorkflowID string `json:"workflow_id"`

	// Branch is the branch this instance was materialized from.
	Branch string `json:"branch"`

	// RunID groups instances materialized by the same Execute call.
	RunID id.RunID `json:"run_id"`

	// Position is the instance's zero-based index within its run.
	Position int `json:"position"`

	// TemplateID names the job template to execute.
	TemplateID string `json:"template_id"`

	// InputPayload is the raw JSON input copied from the spec.
	InputPayload json.RawMessage `json:"input_payload,omitempty"`

	// OutputPayload is the handler's JSON result on SUCCESS, or an
	// error descriptor on FAILED.
	OutputPayload json.RawMessage `json:"output_payload,omitempty"`

	// Status is the current lifecycle state.
	Status Status `json:"status"`

	// Timeout bounds execution. Set at materialization from the
	// template, falling back to the engine default.
	Timeout time.Duration `json:"timeout"`

	// ScheduledAt is when the scheduler admitted the instance.
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`

	// StartedAt is when the executor began running the handler.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt is when the instance reached a terminal status.
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Failure is the error descriptor stored in OutputPayload when an
// instance fails.
type Failure struct {
	Error   string `json:"error"`
	Timeout bool   `json:"timeout,omitempty"`
}

// FailurePayload encodes a Failure descriptor as JSON.
func FailurePayload(msg string, timeout bool) json.RawMessage {
	data, err := json.Marshal(Failure{Error: msg, Timeout: timeout})
	if err != nil {
		// Failure contains only strings and bools; Marshal cannot fail.
		return json.RawMessage(`{"error":"unknown"}`)
	}

	return data
}
