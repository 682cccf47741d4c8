package engine

import (
	"context"
	"fmt"

	"github.com/bamtlab/conductor"
	"github.com/bamtlab/conductor/job"
	"github.com/bamtlab/conductor/queue"
	"github.com/bamtlab/conductor/tenant"
)

// CreateTenant registers a new tenant. maxConcurrency overrides the
// engine-wide per-tenant ceiling when positive.
func (e *Engine) CreateTenant(ctx context.Context, tenantID, name string, maxConcurrency int) (*tenant.Tenant, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: empty tenant id", conductor.ErrInvalidInput)
	}

	t := &tenant.Tenant{
		Entity:         conductor.NewEntity(),
		ID:             tenantID,
		Name:           name,
		MaxConcurrency: maxConcurrency,
	}

	if err := e.store.CreateTenant(ctx, t); err != nil {
		return nil, err
	}

	if maxConcurrency > 0 {
		e.queue.SetTenantConfig(tenantID, queue.TenantConfig{MaxConcurrency: maxConcurrency})
	}

	return t, nil
}

// GetTenant fetches a tenant by ID.
func (e *Engine) GetTenant(ctx context.Context, tenantID string) (*tenant.Tenant, error) {
	return e.store.GetTenant(ctx, tenantID)
}

// ListTenants returns all tenants.
func (e *Engine) ListTenants(ctx context.Context) ([]*tenant.Tenant, error) {
	return e.store.ListTenants(ctx)
}

// SetTenantConcurrency updates a tenant's concurrency override. Zero
// reverts to the engine default. Takes effect at the next admission
// decision; running jobs are unaffected.
func (e *Engine) SetTenantConcurrency(ctx context.Context, tenantID string, maxConcurrency int) (*tenant.Tenant, error) {
	if maxConcurrency < 0 {
		return nil, fmt.Errorf("%w: negative max concurrency", conductor.ErrInvalidInput)
	}

	t, err := e.store.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	t.MaxConcurrency = maxConcurrency
	t.Touch()

	if err := e.store.UpdateTenant(ctx, t); err != nil {
		return nil, err
	}

	if maxConcurrency > 0 {
		e.queue.SetTenantConfig(tenantID, queue.TenantConfig{MaxConcurrency: maxConcurrency})
	} else {
		e.queue.RemoveTenantConfig(tenantID)
	}

	e.sched.Wake()

	return t, nil
}

// DeleteTenant removes a tenant and everything it owns. Refuses with
// ErrTenantBusy while the tenant has PENDING or RUNNING jobs; pause or
// drain first. Terminal job records, workflows, branches, runs, and
// cron entries cascade.
func (e *Engine) DeleteTenant(ctx context.Context, tenantID string) error {
	if _, err := e.store.GetTenant(ctx, tenantID); err != nil {
		return err
	}

	active, err := e.countActiveJobs(ctx, job.CountOpts{TenantID: tenantID})
	if err != nil {
		return err
	}

	if active > 0 {
		return fmt.Errorf("%w: %d active jobs", conductor.ErrTenantBusy, active)
	}

	workflows, err := e.store.ListWorkflows(ctx, tenantID)
	if err != nil {
		return err
	}

	for _, w := range workflows {
		if err := e.deleteWorkflowCascade(ctx, w.ID); err != nil {
			return err
		}
	}

	// Terminal jobs not attached to a surviving workflow.
	jobs, err := e.store.ListJobs(ctx, job.ListOpts{TenantID: tenantID})
	if err != nil {
		return err
	}

	for _, inst := range jobs {
		if err := e.store.DeleteJob(ctx, inst.ID); err != nil && !conductor.IsNotFound(err) {
			return err
		}
	}

	if err := e.store.DeleteTenant(ctx, tenantID); err != nil {
		return err
	}

	e.queue.RemoveTenantConfig(tenantID)

	e.logger.Info("tenant deleted", "tenant_id", tenantID)

	return nil
}

func (e *Engine) countActiveJobs(ctx context.Context, opts job.CountOpts) (int, error) {
	pendingOpts := opts
	pendingOpts.Status = job.StatusPending

	pending, err := e.store.CountJobs(ctx, pendingOpts)
	if err != nil {
		return 0, err
	}

	runningOpts := opts
	runningOpts.Status = job.StatusRunning

	running, err := e.store.CountJobs(ctx, runningOpts)
	if err != nil {
		return 0, err
	}

	return pending + running, nil
}
