// Package tenant defines the tenant model and its store interface.
// Tenants are the top-level ownership boundary: every workflow, run,
// and job instance belongs to exactly one tenant, and the scheduler
// enforces a per-tenant concurrency ceiling.
package tenant

import (
	"context"

	"github.com/bamtlab/conductor"
)

// Tenant is an isolated owner of workflows and jobs. IDs are
// caller-supplied opaque strings.
type Tenant struct {
	conductor.Entity

	// ID uniquely identifies the tenant.
	ID string `json:"id"`

	// Name is an optional human-readable label.
	Name string `json:"name,omitempty"`

	// MaxConcurrency overrides the engine-wide per-tenant concurrency
	// ceiling for this tenant. Zero means the engine default applies.
	MaxConcurrency int `json:"max_concurrency,omitempty"`
}

// Store is the persistence interface for tenants.
type Store interface {
	// CreateTenant persists a new tenant. Returns ErrTenantExists if
	// the ID is taken.
	CreateTenant(ctx context.Context, t *Tenant) error

	// GetTenant fetches a tenant by ID. Returns ErrTenantNotFound if
	// no tenant exists.
	GetTenant(ctx context.Context, tenantID string) (*Tenant, error)

	// UpdateTenant persists changes to an existing tenant.
	UpdateTenant(ctx context.Context, t *Tenant) error

	// ListTenants returns all tenants ordered by ID.
	ListTenants(ctx context.Context) ([]*Tenant, error)

	// DeleteTenant removes a tenant record. Cascade semantics live in
	// the engine, not here.
	DeleteTenant(ctx context.Context, tenantID string) error
}
