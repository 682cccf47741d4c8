package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/bamtlab/conductor"
	"github.com/bamtlab/conductor/id"
	"github.com/bamtlab/conductor/job"
)

// Job instances are stored as hashes so individual fields can be
// inspected with redis-cli during operations.

func jobToMap(inst *job.Instance) map[string]any {
	m := map[string]any{
		"id":          inst.ID.String(),
		"tenant_id":   inst.TenantID,
		"workflow_id": inst.WorkflowID,
		"branch":      inst.Branch,
		"run_id":      inst.RunID.String(),
		"position":    strconv.Itoa(inst.Position),
		"template_id": inst.TemplateID,
		"status":      string(inst.Status),
		"timeout_ns":  strconv.FormatInt(int64(inst.Timeout), 10),
		"created_at":  inst.CreatedAt.Format(time.RFC3339Nano),
		"updated_at":  inst.UpdatedAt.Format(time.RFC3339Nano),
	}

	if len(inst.InputPayload) > 0 {
		m["input"] = string(inst.InputPayload)
	}

	if len(inst.OutputPayload) > 0 {
		m["output"] = string(inst.OutputPayload)
	}

	if inst.ScheduledAt != nil {
		m["scheduled_at"] = inst.ScheduledAt.Format(time.RFC3339Nano)
	}

	if inst.StartedAt != nil {
		m["started_at"] = inst.StartedAt.Format(time.RFC3339Nano)
	}

	if inst.FinishedAt != nil {
		m["finished_at"] = inst.FinishedAt.Format(time.RFC3339Nano)
	}

	return m
}

func mapToJob(m map[string]string) (*job.Instance, error) {
	inst := &job.Instance{
		TenantID:   m["tenant_id"],
		WorkflowID: m["workflow_id"],
		Branch:     m["branch"],
		TemplateID: m["template_id"],
		Status:     job.Status(m["status"]),
	}

	jobID, err := id.ParseJobID(m["id"])
	if err != nil {
		return nil, fmt.Errorf("redis: decode job id: %w", err)
	}

	inst.ID = jobID

	if raw := m["run_id"]; raw != "" {
		runID, err := id.ParseRunID(raw)
		if err != nil {
			return nil, fmt.Errorf("redis: decode run id: %w", err)
		}

		inst.RunID = runID
	}

	if raw := m["position"]; raw != "" {
		pos, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("redis: decode position: %w", err)
		}

		inst.Position = pos
	}

	if raw := m["timeout_ns"]; raw != "" {
		ns, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("redis: decode timeout: %w", err)
		}

		inst.Timeout = time.Duration(ns)
	}

	if raw := m["input"]; raw != "" {
		inst.InputPayload = json.RawMessage(raw)
	}

	if raw := m["output"]; raw != "" {
		inst.OutputPayload = json.RawMessage(raw)
	}

	parseTime := func(field string) (*time.Time, error) {
		raw, ok := m[field]
		if !ok || raw == "" {
			return nil, nil //nolint:nilnil // absent optional timestamp
		}

		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("redis: decode %s: %w", field, err)
		}

		return &t, nil
	}

	if t, err := parseTime("created_at"); err != nil {
		return nil, err
	} else if t != nil {
		inst.CreatedAt = *t
	}

	if t, err := parseTime("updated_at"); err != nil {
		return nil, err
	} else if t != nil {
		inst.UpdatedAt = *t
	}

	if inst.ScheduledAt, err = parseTime("scheduled_at"); err != nil {
		return nil, err
	}

	if inst.StartedAt, err = parseTime("started_at"); err != nil {
		return nil, err
	}

	if inst.FinishedAt, err = parseTime("finished_at"); err != nil {
		return nil, err
	}

	return inst, nil
}

func (s *Store) CreateJob(ctx context.Context, inst *job.Instance) error {
	key := jobKey(inst.ID.String())

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("redis: create job: %w", err)
	}

	if exists != 0 {
		return conductor.ErrJobExists
	}

	if err := s.client.HSet(ctx, key, jobToMap(inst)).Err(); err != nil {
		return fmt.Errorf("redis: create job: %w", err)
	}

	if err := s.client.SAdd(ctx, jobsKey(), inst.ID.String()).Err(); err != nil {
		return fmt.Errorf("redis: index job: %w", err)
	}

	return nil
}

func (s *Store) GetJob(ctx context.Context, jobID id.JobID) (*job.Instance, error) {
	m, err := s.client.HGetAll(ctx, jobKey(jobID.String())).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: get job: %w", err)
	}

	if len(m) == 0 {
		return nil, conductor.ErrJobNotFound
	}

	return mapToJob(m)
}

func (s *Store) UpdateJob(ctx context.Context, inst *job.Instance) error {
	key := jobKey(inst.ID.String())

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("redis: update job: %w", err)
	}

	if exists == 0 {
		return conductor.ErrJobNotFound
	}

	if err := s.client.HSet(ctx, key, jobToMap(inst)).Err(); err != nil {
		return fmt.Errorf("redis: update job: %w", err)
	}

	return nil
}

func (s *Store) ListJobs(ctx context.Context, opts job.ListOpts) ([]*job.Instance, error) {
	ids, err := s.client.SMembers(ctx, jobsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list jobs: %w", err)
	}

	// Job IDs are K-sortable; ascending ID order is creation order.
	sort.Strings(ids)

	out := make([]*job.Instance, 0, len(ids))

	for _, raw := range ids {
		jobID, err := id.ParseJobID(raw)
		if err != nil {
			continue
		}

		inst, err := s.GetJob(ctx, jobID)
		if err != nil {
			continue
		}

		if opts.TenantID != "" && inst.TenantID != opts.TenantID {
			continue
		}

		if opts.WorkflowID != "" && inst.WorkflowID != opts.WorkflowID {
			continue
		}

		if !opts.RunID.IsNil() && inst.RunID != opts.RunID {
			continue
		}

		if opts.Status != "" && inst.Status != opts.Status {
			continue
		}

		out = append(out, inst)

		if opts.Limit > 0 && len(out) == opts.Limit {
			break
		}
	}

	return out, nil
}

func (s *Store) CountJobs(ctx context.Context, opts job.CountOpts) (int, error) {
	list, err := s.ListJobs(ctx, job.ListOpts{
		TenantID:   opts.TenantID,
		WorkflowID: opts.WorkflowID,
		Status:     opts.Status,
	})
	if err != nil {
		return 0, err
	}

	return len(list), nil
}

func (s *Store) DeleteJob(ctx context.Context, jobID id.JobID) error {
	removed, err := s.client.SRem(ctx, jobsKey(), jobID.String()).Result()
	if err != nil {
		return fmt.Errorf("redis: delete job: %w", err)
	}

	if removed == 0 {
		return conductor.ErrJobNotFound
	}

	if err := s.client.Del(ctx, jobKey(jobID.String())).Err(); err != nil {
		return fmt.Errorf("redis: delete job: %w", err)
	}

	return nil
}
