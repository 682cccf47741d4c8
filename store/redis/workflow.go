package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/bamtlab/conductor"
	"github.com/bamtlab/conductor/id"
	"github.com/bamtlab/conductor/workflow"
)

// specTombstone marks a list slot for removal; see DeleteJobSpecAt.
const specTombstone = "__deleted__"

func (s *Store) CreateWorkflow(ctx context.Context, w *workflow.Workflow) error {
	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("redis: encode workflow: %w", err)
	}

	ok, err := s.client.SetNX(ctx, workflowKey(w.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("redis: create workflow: %w", err)
	}

	if !ok {
		return conductor.ErrWorkflowExists
	}

	if err := s.client.SAdd(ctx, workflowsKey(), w.ID).Err(); err != nil {
		return fmt.Errorf("redis: index workflow: %w", err)
	}

	return nil
}

func (s *Store) GetWorkflow(ctx context.Context, workflowID string) (*workflow.Workflow, error) {
	data, err := s.client.Get(ctx, workflowKey(workflowID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, conductor.ErrWorkflowNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("redis: get workflow: %w", err)
	}

	var w workflow.Workflow
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("redis: decode workflow: %w", err)
	}

	return &w, nil
}

func (s *Store) UpdateWorkflow(ctx context.Context, w *workflow.Workflow) error {
	exists, err := s.client.Exists(ctx, workflowKey(w.ID)).Result()
	if err != nil {
		return fmt.Errorf("redis: update workflow: %w", err)
	}

	if exists == 0 {
		return conductor.ErrWorkflowNotFound
	}

	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("redis: encode workflow: %w", err)
	}

	if err := s.client.Set(ctx, workflowKey(w.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("redis: update workflow: %w", err)
	}

	return nil
}

func (s *Store) ListWorkflows(ctx context.Context, tenantID string) ([]*workflow.Workflow, error) {
	ids, err := s.client.SMembers(ctx, workflowsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list workflows: %w", err)
	}

	sort.Strings(ids)

	out := make([]*workflow.Workflow, 0, len(ids))

	for _, workflowID := range ids {
		w, err := s.GetWorkflow(ctx, workflowID)
		if errors.Is(err, conductor.ErrWorkflowNotFound) {
			continue
		}

		if err != nil {
			return nil, err
		}

		if tenantID != "" && w.TenantID != tenantID {
			continue
		}

		out = append(out, w)
	}

	return out, nil
}

func (s *Store) DeleteWorkflow(ctx context.Context, workflowID string) error {
	removed, err := s.client.SRem(ctx, workflowsKey(), workflowID).Result()
	if err != nil {
		return fmt.Errorf("redis: delete workflow: %w", err)
	}

	if removed == 0 {
		return conductor.ErrWorkflowNotFound
	}

	// Branch and spec keys.
	branches, err := s.client.SMembers(ctx, branchesKey(workflowID)).Result()
	if err != nil {
		return fmt.Errorf("redis: delete workflow branches: %w", err)
	}

	keys := []string{workflowKey(workflowID), branchesKey(workflowID), runsKey(workflowID)}
	for _, branch := range branches {
		keys = append(keys, branchKey(workflowID, branch), specsKey(workflowID, branch))
	}

	// Run records.
	runIDs, err := s.client.LRange(ctx, runsKey(workflowID), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("redis: delete workflow runs: %w", err)
	}

	for _, runID := range runIDs {
		keys = append(keys, runKey(runID))
	}

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis: delete workflow: %w", err)
	}

	return nil
}

func (s *Store) CreateBranch(ctx context.Context, b *workflow.Branch) error {
	exists, err := s.client.Exists(ctx, workflowKey(b.WorkflowID)).Result()
	if err != nil {
		return fmt.Errorf("redis: create branch: %w", err)
	}

	if exists == 0 {
		return conductor.ErrWorkflowNotFound
	}

	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("redis: encode branch: %w", err)
	}

	ok, err := s.client.SetNX(ctx, branchKey(b.WorkflowID, b.Name), data, 0).Result()
	if err != nil {
		return fmt.Errorf("redis: create branch: %w", err)
	}

	if !ok {
		return conductor.ErrBranchExists
	}

	if err := s.client.SAdd(ctx, branchesKey(b.WorkflowID), b.Name).Err(); err != nil {
		return fmt.Errorf("redis: index branch: %w", err)
	}

	return nil
}

func (s *Store) GetBranch(ctx context.Context, workflowID, branch string) (*workflow.Branch, error) {
	exists, err := s.client.Exists(ctx, workflowKey(workflowID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: get branch: %w", err)
	}

	if exists == 0 {
		return nil, conductor.ErrWorkflowNotFound
	}

	data, err := s.client.Get(ctx, branchKey(workflowID, branch)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, conductor.ErrBranchNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("redis: get branch: %w", err)
	}

	var b workflow.Branch
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("redis: decode branch: %w", err)
	}

	return &b, nil
}

func (s *Store) ListBranches(ctx context.Context, workflowID string) ([]*workflow.Branch, error) {
	exists, err := s.client.Exists(ctx, workflowKey(workflowID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list branches: %w", err)
	}

	if exists == 0 {
		return nil, conductor.ErrWorkflowNotFound
	}

	names, err := s.client.SMembers(ctx, branchesKey(workflowID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list branches: %w", err)
	}

	sort.Strings(names)

	out := make([]*workflow.Branch, 0, len(names))

	for _, name := range names {
		b, err := s.GetBranch(ctx, workflowID, name)
		if errors.Is(err, conductor.ErrBranchNotFound) {
			continue
		}

		if err != nil {
			return nil, err
		}

		out = append(out, b)
	}

	return out, nil
}

func (s *Store) DeleteBranch(ctx context.Context, workflowID, branch string) error {
	exists, err := s.client.Exists(ctx, workflowKey(workflowID)).Result()
	if err != nil {
		return fmt.Errorf("redis: delete branch: %w", err)
	}

	if exists == 0 {
		return conductor.ErrWorkflowNotFound
	}

	removed, err := s.client.SRem(ctx, branchesKey(workflowID), branch).Result()
	if err != nil {
		return fmt.Errorf("redis: delete branch: %w", err)
	}

	if removed == 0 {
		return conductor.ErrBranchNotFound
	}

	if err := s.client.Del(ctx, branchKey(workflowID, branch), specsKey(workflowID, branch)).Err(); err != nil {
		return fmt.Errorf("redis: delete branch: %w", err)
	}

	return nil
}

func (s *Store) AppendJobSpec(ctx context.Context, workflowID, branch string, spec workflow.JobSpec) (int, error) {
	if _, err := s.GetBranch(ctx, workflowID, branch); err != nil {
		return 0, err
	}

	data, err := json.Marshal(spec)
	if err != nil {
		return 0, fmt.Errorf("redis: encode job spec: %w", err)
	}

	length, err := s.client.RPush(ctx, specsKey(workflowID, branch), data).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: append job spec: %w", err)
	}

	return int(length) - 1, nil
}

func (s *Store) ListJobSpecs(ctx context.Context, workflowID, branch string) ([]workflow.JobSpec, error) {
	if _, err := s.GetBranch(ctx, workflowID, branch); err != nil {
		return nil, err
	}

	raw, err := s.client.LRange(ctx, specsKey(workflowID, branch), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list job specs: %w", err)
	}

	out := make([]workflow.JobSpec, 0, len(raw))

	for _, item := range raw {
		var spec workflow.JobSpec
		if err := json.Unmarshal([]byte(item), &spec); err != nil {
			return nil, fmt.Errorf("redis: decode job spec: %w", err)
		}

		out = append(out, spec)
	}

	return out, nil
}

func (s *Store) DeleteJobSpecAt(ctx context.Context, workflowID, branch string, index int) error {
	if _, err := s.GetBranch(ctx, workflowID, branch); err != nil {
		return err
	}

	if index < 0 {
		return conductor.ErrSpecIndexNotFound
	}

	key := specsKey(workflowID, branch)

	length, err := s.client.LLen(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("redis: delete job spec: %w", err)
	}

	if int64(index) >= length {
		return conductor.ErrSpecIndexNotFound
	}

	// LSET a tombstone then LREM it; Redis lists have no delete-by-index.
	if err := s.client.LSet(ctx, key, int64(index), specTombstone).Err(); err != nil {
		return fmt.Errorf("redis: delete job spec: %w", err)
	}

	if err := s.client.LRem(ctx, key, 1, specTombstone).Err(); err != nil {
		return fmt.Errorf("redis: delete job spec: %w", err)
	}

	return nil
}

func (s *Store) CreateRun(ctx context.Context, r *workflow.Run) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("redis: encode run: %w", err)
	}

	if err := s.client.Set(ctx, runKey(r.ID.String()), data, 0).Err(); err != nil {
		return fmt.Errorf("redis: create run: %w", err)
	}

	// LPush keeps newest-first order for ListRuns.
	if err := s.client.LPush(ctx, runsKey(r.WorkflowID), r.ID.String()).Err(); err != nil {
		return fmt.Errorf("redis: index run: %w", err)
	}

	return nil
}

func (s *Store) GetRun(ctx context.Context, runID id.RunID) (*workflow.Run, error) {
	data, err := s.client.Get(ctx, runKey(runID.String())).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, conductor.ErrRunNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("redis: get run: %w", err)
	}

	var r workflow.Run
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("redis: decode run: %w", err)
	}

	return &r, nil
}

func (s *Store) ListRuns(ctx context.Context, workflowID string) ([]*workflow.Run, error) {
	runIDs, err := s.client.LRange(ctx, runsKey(workflowID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list runs: %w", err)
	}

	out := make([]*workflow.Run, 0, len(runIDs))

	for _, rid := range runIDs {
		parsed, err := id.ParseRunID(rid)
		if err != nil {
			continue
		}

		r, err := s.GetRun(ctx, parsed)
		if errors.Is(err, conductor.ErrRunNotFound) {
			continue
		}

		if err != nil {
			return nil, err
		}

		out = append(out, r)
	}

	return out, nil
}
