package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/bamtlab/conductor"
	"github.com/bamtlab/conductor/cron"
	"github.com/bamtlab/conductor/id"
)

func (s *Store) CreateCron(ctx context.Context, e *cron.Entry) error {
	// Duplicate check: same workflow and schedule.
	existing, err := s.ListCrons(ctx, e.WorkflowID)
	if err != nil {
		return err
	}

	for _, other := range existing {
		if other.Schedule == e.Schedule {
			return conductor.ErrDuplicateCron
		}
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("redis: encode cron: %w", err)
	}

	if err := s.client.Set(ctx, cronKey(e.ID.String()), data, 0).Err(); err != nil {
		return fmt.Errorf("redis: create cron: %w", err)
	}

	if err := s.client.SAdd(ctx, cronsKey(), e.ID.String()).Err(); err != nil {
		return fmt.Errorf("redis: index cron: %w", err)
	}

	return nil
}

func (s *Store) GetCron(ctx context.Context, cronID id.CronID) (*cron.Entry, error) {
	data, err := s.client.Get(ctx, cronKey(cronID.String())).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, conductor.ErrCronNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("redis: get cron: %w", err)
	}

	var e cron.Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("redis: decode cron: %w", err)
	}

	return &e, nil
}

func (s *Store) UpdateCron(ctx context.Context, e *cron.Entry) error {
	exists, err := s.client.Exists(ctx, cronKey(e.ID.String())).Result()
	if err != nil {
		return fmt.Errorf("redis: update cron: %w", err)
	}

	if exists == 0 {
		return conductor.ErrCronNotFound
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("redis: encode cron: %w", err)
	}

	if err := s.client.Set(ctx, cronKey(e.ID.String()), data, 0).Err(); err != nil {
		return fmt.Errorf("redis: update cron: %w", err)
	}

	return nil
}

func (s *Store) ListCrons(ctx context.Context, workflowID string) ([]*cron.Entry, error) {
	ids, err := s.client.SMembers(ctx, cronsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list crons: %w", err)
	}

	sort.Strings(ids)

	out := make([]*cron.Entry, 0, len(ids))

	for _, raw := range ids {
		cronID, err := id.ParseCronID(raw)
		if err != nil {
			continue
		}

		e, err := s.GetCron(ctx, cronID)
		if errors.Is(err, conductor.ErrCronNotFound) {
			continue
		}

		if err != nil {
			return nil, err
		}

		if workflowID != "" && e.WorkflowID != workflowID {
			continue
		}

		out = append(out, e)
	}

	return out, nil
}

func (s *Store) DueCrons(ctx context.Context, now time.Time) ([]*cron.Entry, error) {
	all, err := s.ListCrons(ctx, "")
	if err != nil {
		return nil, err
	}

	out := make([]*cron.Entry, 0, len(all))

	for _, e := range all {
		if !e.Enabled || e.NextRun.After(now) {
			continue
		}

		out = append(out, e)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].NextRun.Before(out[j].NextRun) })

	return out, nil
}

func (s *Store) DeleteCron(ctx context.Context, cronID id.CronID) error {
	removed, err := s.client.SRem(ctx, cronsKey(), cronID.String()).Result()
	if err != nil {
		return fmt.Errorf("redis: delete cron: %w", err)
	}

	if removed == 0 {
		return conductor.ErrCronNotFound
	}

	if err := s.client.Del(ctx, cronKey(cronID.String())).Err(); err != nil {
		return fmt.Errorf("redis: delete cron: %w", err)
	}

	return nil
}
