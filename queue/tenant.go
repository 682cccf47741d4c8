package queue

import "golang.org/x/time/rate"

// TenantConfig overrides the default admission behavior for one tenant.
type TenantConfig struct {
	// MaxConcurrency replaces the queue-wide per-tenant ceiling for
	// this tenant. Zero keeps the default.
	MaxConcurrency int

	// AdmissionsPerSecond throttles how fast this tenant's jobs are
	// admitted, independent of concurrency. Zero means unthrottled.
	AdmissionsPerSecond float64

	// AdmissionBurst is the token bucket size for the admission rate.
	// Only meaningful when AdmissionsPerSecond is set; defaults to 1.
	AdmissionBurst int
}

// tenantState tracks per-tenant admission bookkeeping. The active
// count survives config changes so in-flight jobs stay accounted for.
type tenantState struct {
	active         int
	maxConcurrency int
	limiter        *rate.Limiter
}

// SetTenantConfig installs or replaces a tenant's admission overrides.
// The tenant's current active count is preserved.
func (m *Manager) SetTenantConfig(tenantID string, cfg TenantConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := m.tenants[tenantID]
	if state == nil {
		state = &tenantState{}
		m.tenants[tenantID] = state
	}

	state.maxConcurrency = cfg.MaxConcurrency

	if cfg.AdmissionsPerSecond > 0 {
		burst := cfg.AdmissionBurst
		if burst <= 0 {
			burst = 1
		}

		state.limiter = rate.NewLimiter(rate.Limit(cfg.AdmissionsPerSecond), burst)
	} else {
		state.limiter = nil
	}
}

// RemoveTenantConfig drops a tenant's overrides, reverting it to the
// queue-wide defaults. Bookkeeping for in-flight jobs is preserved.
func (m *Manager) RemoveTenantConfig(tenantID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := m.tenants[tenantID]
	if state == nil {
		return
	}

	state.maxConcurrency = 0
	state.limiter = nil

	if state.active == 0 {
		delete(m.tenants, tenantID)
	}
}
