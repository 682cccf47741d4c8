// Package cron schedules recurring workflow executions. A cron entry
// binds a workflow to a schedule expression; the cron scheduler
// evaluates due entries on a tick loop and fires them through a
// callback into the engine.
package cron

import (
	"context"
	"time"

	"github.com/bamtlab/conductor"
	"github.com/bamtlab/conductor/id"
)

// Entry is a recurring trigger for one workflow.
type Entry struct {
	conductor.Entity

	// ID uniquely identifies the entry.
	ID id.CronID `json:"id"`

	// TenantID is the tenant the triggered executions run as.
	TenantID string `json:"tenant_id"`

	// WorkflowID is the workflow to execute.
	WorkflowID string `json:"workflow_id"`

	// Schedule is a 5-field cron expression or a descriptor such as
	// "@hourly".
	Schedule string `json:"schedule"`

	// Enabled gates firing without deleting the entry.
	Enabled bool `json:"enabled"`

	// NextRun is the next time the entry is due, in UTC.
	NextRun time.Time `json:"next_run"`

	// LastRun is the last time the entry fired. Zero if never.
	LastRun time.Time `json:"last_run,omitempty"`
}

// Store is the persistence interface for cron entries.
type Store interface {
	// CreateCron persists a new entry. Returns ErrDuplicateCron if an
	// entry with the same workflow and schedule already exists.
	CreateCron(ctx context.Context, e *Entry) error

	// GetCron fetches an entry by ID. Returns ErrCronNotFound if no
	// entry exists.
	GetCron(ctx context.Context, cronID id.CronID) (*Entry, error)

	// UpdateCron persists changes to an existing entry.
	UpdateCron(ctx context.Context, e *Entry) error

	// ListCrons returns entries, optionally filtered by workflow,
	// ordered by ID.
	ListCrons(ctx context.Context, workflowID string) ([]*Entry, error)

	// DueCrons returns enabled entries with NextRun at or before now.
	DueCrons(ctx context.Context, now time.Time) ([]*Entry, error)

	// DeleteCron removes an entry.
	DeleteCron(ctx context.Context, cronID id.CronID) error
}
