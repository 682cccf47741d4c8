// Package store defines the composite persistence interface. Each
// subsystem (tenant, workflow, job, cron) declares its own store
// interface next to its model; a backend implements all of them plus
// the lifecycle methods here. The memory and redis subpackages ship
// with the module.
package store

import (
	"context"

	"github.com/bamtlab/conductor/cron"
	"github.com/bamtlab/conductor/job"
	"github.com/bamtlab/conductor/tenant"
	"github.com/bamtlab/conductor/workflow"
)

// Store is the full persistence surface the engine requires.
type Store interface {
	tenant.Store
	workflow.Store
	job.Store
	cron.Store

	// Migrate prepares the backend (creates schemas, verifies
	// connectivity). Call once before use.
	Migrate(ctx context.Context) error

	// Ping reports backend health.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
