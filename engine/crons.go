package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/bamtlab/conductor"
	"github.com/bamtlab/conductor/cron"
	"github.com/bamtlab/conductor/id"
)

// RegisterCron schedules recurring executions of a workflow. The
// schedule is a 5-field cron expression or a descriptor such as
// "@hourly". The entry starts enabled.
func (e *Engine) RegisterCron(ctx context.Context, workflowID, schedule string) (*cron.Entry, error) {
	w, err := e.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	next, err := cron.NextAfter(schedule, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", conductor.ErrInvalidInput, err)
	}

	entry := &cron.Entry{
		Entity:     conductor.NewEntity(),
		ID:         id.NewCronID(),
		TenantID:   w.TenantID,
		WorkflowID: workflowID,
		Schedule:   schedule,
		Enabled:    true,
		NextRun:    next,
	}

	if err := e.store.CreateCron(ctx, entry); err != nil {
		return nil, err
	}

	return entry, nil
}

// GetCron fetches a cron entry by ID.
func (e *Engine) GetCron(ctx context.Context, cronID id.CronID) (*cron.Entry, error) {
	return e.store.GetCron(ctx, cronID)
}

// ListCrons returns cron entries, optionally filtered by workflow.
func (e *Engine) ListCrons(ctx context.Context, workflowID string) ([]*cron.Entry, error) {
	return e.store.ListCrons(ctx, workflowID)
}

// SetCronEnabled flips an entry without deleting it. Re-enabling
// recomputes NextRun from now so missed windows do not fire.
func (e *Engine) SetCronEnabled(ctx context.Context, cronID id.CronID, enabled bool) (*cron.Entry, error) {
	entry, err := e.store.GetCron(ctx, cronID)
	if err != nil {
		return nil, err
	}

	if entry.Enabled == enabled {
		return entry, nil
	}

	entry.Enabled = enabled

	if enabled {
		next, err := cron.NextAfter(entry.Schedule, time.Now().UTC())
		if err != nil {
			return nil, fmt.Errorf("%w: %v", conductor.ErrInvalidInput, err)
		}

		entry.NextRun = next
	}

	entry.Touch()

	if err := e.store.UpdateCron(ctx, entry); err != nil {
		return nil, err
	}

	return entry, nil
}

// RemoveCron deletes a cron entry.
func (e *Engine) RemoveCron(ctx context.Context, cronID id.CronID) error {
	return e.store.DeleteCron(ctx, cronID)
}
