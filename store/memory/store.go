// Package memory implements the composite store with in-process maps.
// Intended for tests and single-process deployments that do not need
// persistence across restarts.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bamtlab/conductor"
	"github.com/bamtlab/conductor/cron"
	"github.com/bamtlab/conductor/id"
	"github.com/bamtlab/conductor/job"
	"github.com/bamtlab/conductor/tenant"
	"github.com/bamtlab/conductor/workflow"
)

// Store is an in-memory composite store. Safe for concurrent use. All
// reads return copies; mutating a returned value does not affect the
// store.
type Store struct {
	mu     sync.RWMutex
	closed bool

	tenants   map[string]*tenant.Tenant
	workflows map[string]*workflow.Workflow
	branches  map[string]map[string]*workflow.Branch // workflow ID -> branch name
	specs     map[string]map[string][]workflow.JobSpec
	runs      map[string]*workflow.Run
	jobs      map[string]*job.Instance
	crons     map[string]*cron.Entry
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		tenants:   make(map[string]*tenant.Tenant),
		workflows: make(map[string]*workflow.Workflow),
		branches:  make(map[string]map[string]*workflow.Branch),
		specs:     make(map[string]map[string][]workflow.JobSpec),
		runs:      make(map[string]*workflow.Run),
		jobs:      make(map[string]*job.Instance),
		crons:     make(map[string]*cron.Entry),
	}
}

// Migrate implements store.Store. No-op for the memory backend.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping implements store.Store.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return conductor.ErrStoreClosed
	}

	return nil
}

// Close implements store.Store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true

	return nil
}

func (s *Store) checkOpen() error {
	if s.closed {
		return conductor.ErrStoreClosed
	}

	return nil
}

// ──────────────────────────────────────────────────
// tenant.Store
// ──────────────────────────────────────────────────

func (s *Store) CreateTenant(_ context.Context, t *tenant.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}

	if _, ok := s.tenants[t.ID]; ok {
		return conductor.ErrTenantExists
	}

	cp := *t
	s.tenants[t.ID] = &cp

	return nil
}

func (s *Store) GetTenant(_ context.Context, tenantID string) (*tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tenants[tenantID]
	if !ok {
		return nil, conductor.ErrTenantNotFound
	}

	cp := *t

	return &cp, nil
}

func (s *Store) UpdateTenant(_ context.Context, t *tenant.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}

	if _, ok := s.tenants[t.ID]; !ok {
		return conductor.ErrTenantNotFound
	}

	cp := *t
	s.tenants[t.ID] = &cp

	return nil
}

func (s *Store) ListTenants(_ context.Context) ([]*tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*tenant.Tenant, 0, len(s.tenants))
	for _, t := range s.tenants {
		cp := *t
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

func (s *Store) DeleteTenant(_ context.Context, tenantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}

	if _, ok := s.tenants[tenantID]; !ok {
		return conductor.ErrTenantNotFound
	}

	delete(s.tenants, tenantID)

	return nil
}

// ──────────────────────────────────────────────────
// workflow.Store
// ──────────────────────────────────────────────────

func (s *Store) CreateWorkflow(_ context.Context, w *workflow.Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}

	if _, ok := s.workflows[w.ID]; ok {
		return conductor.ErrWorkflowExists
	}

	cp := *w
	s.workflows[w.ID] = &cp
	s.branches[w.ID] = make(map[string]*workflow.Branch)
	s.specs[w.ID] = make(map[string][]workflow.JobSpec)

	return nil
}

func (s *Store) GetWorkflow(_ context.Context, workflowID string) (*workflow.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.workflows[workflowID]
	if !ok {
		return nil, conductor.ErrWorkflowNotFound
	}

	cp := *w

	return &cp, nil
}

func (s *Store) UpdateWorkflow(_ context.Context, w *workflow.Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}

	if _, ok := s.workflows[w.ID]; !ok {
		return conductor.ErrWorkflowNotFound
	}

	cp := *w
	s.workflows[w.ID] = &cp

	return nil
}

func (s *Store) ListWorkflows(_ context.Context, tenantID string) ([]*workflow.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*workflow.Workflow, 0, len(s.workflows))
	for _, w := range s.workflows {
		if tenantID != "" && w.TenantID != tenantID {
			continue
		}

		cp := *w
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

func (s *Store) DeleteWorkflow(_ context.Context, workflowID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}

	if _, ok := s.workflows[workflowID]; !ok {
		return conductor.ErrWorkflowNotFound
	}

	delete(s.workflows, workflowID)
	delete(s.branches, workflowID)
	delete(s.specs, workflowID)

	for runID, r := range s.runs {
		if r.WorkflowID == workflowID {
			delete(s.runs, runID)
		}
	}

	return nil
}

func (s *Store) CreateBranch(_ context.Context, b *workflow.Branch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}

	branches, ok := s.branches[b.WorkflowID]
	if !ok {
		return conductor.ErrWorkflowNotFound
	}

	if _, ok := branches[b.Name]; ok {
		return conductor.ErrBranchExists
	}

	cp := *b
	branches[b.Name] = &cp
	s.specs[b.WorkflowID][b.Name] = nil

	return nil
}

func (s *Store) GetBranch(_ context.Context, workflowID, branch string) (*workflow.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	branches, ok := s.branches[workflowID]
	if !ok {
		return nil, conductor.ErrWorkflowNotFound
	}

	b, ok := branches[branch]
	if !ok {
		return nil, conductor.ErrBranchNotFound
	}

	cp := *b

	return &cp, nil
}

func (s *Store) ListBranches(_ context.Context, workflowID string) ([]*workflow.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	branches, ok := s.branches[workflowID]
	if !ok {
		return nil, conductor.ErrWorkflowNotFound
	}

	out := make([]*workflow.Branch, 0, len(branches))
	for _, b := range branches {
		cp := *b
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out, nil
}

func (s *Store) DeleteBranch(_ context.Context, workflowID, branch string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}

	branches, ok := s.branches[workflowID]
	if !ok {
		return conductor.ErrWorkflowNotFound
	}

	if _, ok := branches[branch]; !ok {
		return conductor.ErrBranchNotFound
	}

	delete(branches, branch)
	delete(s.specs[workflowID], branch)

	return nil
}

func (s *Store) AppendJobSpec(_ context.Context, workflowID, branch string, spec workflow.JobSpec) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	branches, ok := s.branches[workflowID]
	if !ok {
		return 0, conductor.ErrWorkflowNotFound
	}

	if _, ok := branches[branch]; !ok {
		return 0, conductor.ErrBranchNotFound
	}

	specs := s.specs[workflowID][branch]
	s.specs[workflowID][branch] = append(specs, spec)

	return len(specs), nil
}

func (s *Store) ListJobSpecs(_ context.Context, workflowID, branch string) ([]workflow.JobSpec, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	branches, ok := s.branches[workflowID]
	if !ok {
		return nil, conductor.ErrWorkflowNotFound
	}

	if _, ok := branches[branch]; !ok {
		return nil, conductor.ErrBranchNotFound
	}

	specs := s.specs[workflowID][branch]
	out := make([]workflow.JobSpec, len(specs))
	copy(out, specs)

	return out, nil
}

func (s *Store) DeleteJobSpecAt(_ context.Context, workflowID, branch string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}

	branches, ok := s.branches[workflowID]
	if !ok {
		return conductor.ErrWorkflowNotFound
	}

	if _, ok := branches[branch]; !ok {
		return conductor.ErrBranchNotFound
	}

	specs := s.specs[workflowID][branch]
	if index < 0 || index >= len(specs) {
		return conductor.ErrSpecIndexNotFound
	}

	s.specs[workflowID][branch] = append(specs[:index], specs[index+1:]...)

	return nil
}

func (s *Store) CreateRun(_ context.Context, r *workflow.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}

	cp := *r
	cp.JobIDs = make([]id.JobID, len(r.JobIDs))
	copy(cp.JobIDs, r.JobIDs)

	s.runs[r.ID.String()] = &cp

	return nil
}

func (s *Store) GetRun(_ context.Context, runID id.RunID) (*workflow.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.runs[runID.String()]
	if !ok {
		return nil, conductor.ErrRunNotFound
	}

	cp := *r
	cp.JobIDs = make([]id.JobID, len(r.JobIDs))
	copy(cp.JobIDs, r.JobIDs)

	return &cp, nil
}

func (s *Store) ListRuns(_ context.Context, workflowID string) ([]*workflow.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*workflow.Run, 0)
	for _, r := range s.runs {
		if r.WorkflowID != workflowID {
			continue
		}

		cp := *r
		cp.JobIDs = make([]id.JobID, len(r.JobIDs))
		copy(cp.JobIDs, r.JobIDs)
		out = append(out, &cp)
	}

	// Run IDs are K-sortable; descending ID order is newest first.
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() > out[j].ID.String() })

	return out, nil
}

// ──────────────────────────────────────────────────
// job.Store
// ──────────────────────────────────────────────────

func (s *Store) CreateJob(_ context.Context, inst *job.Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}

	key := inst.ID.String()
	if _, ok := s.jobs[key]; ok {
		return conductor.ErrJobExists
	}

	cp := *inst
	s.jobs[key] = &cp

	return nil
}

func (s *Store) GetJob(_ context.Context, jobID id.JobID) (*job.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inst, ok := s.jobs[jobID.String()]
	if !ok {
		return nil, conductor.ErrJobNotFound
	}

	cp := *inst

	return &cp, nil
}

func (s *Store) UpdateJob(_ context.Context, inst *job.Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}

	key := inst.ID.String()
	if _, ok := s.jobs[key]; !ok {
		return conductor.ErrJobNotFound
	}

	cp := *inst
	s.jobs[key] = &cp

	return nil
}

func matchesList(inst *job.Instance, opts job.ListOpts) bool {
	if opts.TenantID != "" && inst.TenantID != opts.TenantID {
		return false
	}

	if opts.WorkflowID != "" && inst.WorkflowID != opts.WorkflowID {
		return false
	}

	if !opts.RunID.IsNil() && inst.RunID != opts.RunID {
		return false
	}

	if opts.Status != "" && inst.Status != opts.Status {
		return false
	}

	return true
}

func (s *Store) ListJobs(_ context.Context, opts job.ListOpts) ([]*job.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*job.Instance, 0)
	for _, inst := range s.jobs {
		if !matchesList(inst, opts) {
			continue
		}

		cp := *inst
		out = append(out, &cp)
	}

	// Job IDs are K-sortable; ascending ID order is creation order.
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })

	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}

	return out, nil
}

func (s *Store) CountJobs(_ context.Context, opts job.CountOpts) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0

	for _, inst := range s.jobs {
		if opts.TenantID != "" && inst.TenantID != opts.TenantID {
			continue
		}

		if opts.WorkflowID != "" && inst.WorkflowID != opts.WorkflowID {
			continue
		}

		if opts.Status != "" && inst.Status != opts.Status {
			continue
		}

		count++
	}

	return count, nil
}

func (s *Store) DeleteJob(_ context.Context, jobID id.JobID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}

	key := jobID.String()
	if _, ok := s.jobs[key]; !ok {
		return conductor.ErrJobNotFound
	}

	delete(s.jobs, key)

	return nil
}

// ──────────────────────────────────────────────────
// cron.Store
// ──────────────────────────────────────────────────

func (s *Store) CreateCron(_ context.Context, e *cron.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}

	for _, existing := range s.crons {
		if existing.WorkflowID == e.WorkflowID && existing.Schedule == e.Schedule {
			return conductor.ErrDuplicateCron
		}
	}

	cp := *e
	s.crons[e.ID.String()] = &cp

	return nil
}

func (s *Store) GetCron(_ context.Context, cronID id.CronID) (*cron.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.crons[cronID.String()]
	if !ok {
		return nil, conductor.ErrCronNotFound
	}

	cp := *e

	return &cp, nil
}

func (s *Store) UpdateCron(_ context.Context, e *cron.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}

	key := e.ID.String()
	if _, ok := s.crons[key]; !ok {
		return conductor.ErrCronNotFound
	}

	cp := *e
	s.crons[key] = &cp

	return nil
}

func (s *Store) ListCrons(_ context.Context, workflowID string) ([]*cron.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*cron.Entry, 0)
	for _, e := range s.crons {
		if workflowID != "" && e.WorkflowID != workflowID {
			continue
		}

		cp := *e
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })

	return out, nil
}

func (s *Store) DueCrons(_ context.Context, now time.Time) ([]*cron.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*cron.Entry, 0)
	for _, e := range s.crons {
		if !e.Enabled || e.NextRun.After(now) {
			continue
		}

		cp := *e
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].NextRun.Before(out[j].NextRun) })

	return out, nil
}

func (s *Store) DeleteCron(_ context.Context, cronID id.CronID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}

	key := cronID.String()
	if _, ok := s.crons[key]; !ok {
		return conductor.ErrCronNotFound
	}

	delete(s.crons, key)

	return nil
}
