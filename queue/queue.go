// Package queue implements the global admission queue: a FIFO of
// pending job instances with a per-tenant fairness override. The
// scheduler asks the queue which job to admit next; the queue answers
// subject to a global running ceiling and per-tenant concurrency
// ceilings.
//
// Fairness overrides strict FIFO ordering: when the tenant at the head
// of the queue is at its concurrency limit, the queue skips ahead to
// the first job whose tenant has capacity. A saturated tenant never
// blocks another tenant's work.
package queue

import (
	"sort"
	"sync"

	"github.com/bamtlab/conductor/id"
)

// Limits are the queue-wide admission ceilings.
type Limits struct {
	// MaxRunning is the global ceiling on concurrently running jobs.
	MaxRunning int

	// MaxTenantConcurrency is the default per-tenant ceiling. Tenants
	// with an explicit TenantConfig use their own value instead.
	MaxTenantConcurrency int
}

type entry struct {
	jobID    id.JobID
	tenantID string
}

// Manager is the in-memory admission queue. Safe for concurrent use.
type Manager struct {
	mu sync.Mutex

	limits  Limits
	pending []entry
	running map[id.JobID]string // job ID -> tenant ID
	tenants map[string]*tenantState
}

// NewManager creates an admission queue with the given ceilings.
func NewManager(limits Limits) *Manager {
	return &Manager{
		limits:  limits,
		running: make(map[id.JobID]string),
		tenants: make(map[string]*tenantState),
	}
}

// Enqueue appends a pending job to the tail of the queue.
func (m *Manager) Enqueue(jobID id.JobID, tenantID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pending = append(m.pending, entry{jobID: jobID, tenantID: tenantID})
}

// NextAdmissible pops and returns the next job the ceilings permit to
// run, marking it running. It scans the pending queue in FIFO order and
// returns the first job whose tenant is under its concurrency limit.
// Returns false when the global ceiling is reached, the queue is empty,
// or every pending tenant is saturated.
func (m *Manager) NextAdmissible() (id.JobID, string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.running) >= m.limits.MaxRunning {
		return id.Nil, "", false
	}

	for i, e := range m.pending {
		state := m.tenants[e.tenantID]
		if !m.tenantHasCapacity(state) {
			continue
		}

		if state != nil && state.limiter != nil && !state.limiter.Allow() {
			continue
		}

		m.pending = append(m.pending[:i], m.pending[i+1:]...)
		m.running[e.jobID] = e.tenantID

		if state == nil {
			state = &tenantState{}
			m.tenants[e.tenantID] = state
		}

		state.active++

		return e.jobID, e.tenantID, true
	}

	return id.Nil, "", false
}

// Release marks a running job finished, freeing its global and tenant
// slots. Safe to call for jobs the queue does not know about.
func (m *Manager) Release(jobID id.JobID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tenantID, ok := m.running[jobID]
	if !ok {
		return
	}

	delete(m.running, jobID)

	if state := m.tenants[tenantID]; state != nil && state.active > 0 {
		state.active--
	}
}

// Remove drops a pending job from the queue without admitting it. Used
// when a job is deleted before it ever runs. Returns whether the job
// was found.
func (m *Manager) Remove(jobID id.JobID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, e := range m.pending {
		if e.jobID == jobID {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)

			return true
		}
	}

	return false
}

// SetLimits replaces the queue-wide ceilings. Jobs already running are
// unaffected; the new ceilings apply from the next admission decision.
func (m *Manager) SetLimits(limits Limits) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.limits = limits
}

// Snapshot reports the queue's current occupancy.
func (m *Manager) Snapshot() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	perTenant := make(map[string]int, len(m.tenants))
	for tenantID, state := range m.tenants {
		if state.active > 0 {
			perTenant[tenantID] = state.active
		}
	}

	runningIDs := make([]id.JobID, 0, len(m.running))
	for jobID := range m.running {
		runningIDs = append(runningIDs, jobID)
	}

	sort.Slice(runningIDs, func(i, j int) bool {
		return runningIDs[i].String() < runningIDs[j].String()
	})

	return Stats{
		Pending:       len(m.pending),
		Running:       len(m.running),
		MaxRunning:    m.limits.MaxRunning,
		RunningJobIDs: runningIDs,
		TenantActive:  perTenant,
	}
}

// Stats is a point-in-time view of queue occupancy.
type Stats struct {
	Pending       int
	Running       int
	MaxRunning    int
	RunningJobIDs []id.JobID
	TenantActive  map[string]int
}

func (m *Manager) tenantHasCapacity(state *tenantState) bool {
	limit := m.limits.MaxTenantConcurrency
	if state != nil && state.maxConcurrency > 0 {
		limit = state.maxConcurrency
	}

	if limit <= 0 {
		return true
	}

	active := 0
	if state != nil {
		active = state.active
	}

	return active < limit
}
