package conductor

import "time"

// Config holds configuration for the scheduling engine.
type Config struct {
	// MaxRunning is the global ceiling on concurrently running jobs.
	MaxRunning int

	// MaxTenantConcurrency is the per-tenant ceiling on concurrently
	// running jobs. Individual tenants may be given a different limit
	// through queue.TenantConfig.
	MaxTenantConcurrency int

	// TickInterval is how often the scheduler re-evaluates admission
	// even without a wake event. This absorbs externally-changed limits.
	TickInterval time.Duration

	// DefaultJobTimeout bounds job execution when the template declares
	// no timeout of its own.
	DefaultJobTimeout time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxRunning:           10,
		MaxTenantConcurrency: 3,
		TickInterval:         1 * time.Second,
		DefaultJobTimeout:    5 * time.Minute,
		ShutdownTimeout:      30 * time.Second,
	}
}
