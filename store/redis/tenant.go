package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/bamtlab/conductor"
	"github.com/bamtlab/conductor/tenant"
)

func (s *Store) CreateTenant(ctx context.Context, t *tenant.Tenant) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("redis: encode tenant: %w", err)
	}

	ok, err := s.client.SetNX(ctx, tenantKey(t.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("redis: create tenant: %w", err)
	}

	if !ok {
		return conductor.ErrTenantExists
	}

	if err := s.client.SAdd(ctx, tenantsKey(), t.ID).Err(); err != nil {
		return fmt.Errorf("redis: index tenant: %w", err)
	}

	return nil
}

func (s *Store) GetTenant(ctx context.Context, tenantID string) (*tenant.Tenant, error) {
	data, err := s.client.Get(ctx, tenantKey(tenantID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, conductor.ErrTenantNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("redis: get tenant: %w", err)
	}

	var t tenant.Tenant
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("redis: decode tenant: %w", err)
	}

	return &t, nil
}

func (s *Store) UpdateTenant(ctx context.Context, t *tenant.Tenant) error {
	exists, err := s.client.Exists(ctx, tenantKey(t.ID)).Result()
	if err != nil {
		return fmt.Errorf("redis: update tenant: %w", err)
	}

	if exists == 0 {
		return conductor.ErrTenantNotFound
	}

	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("redis: encode tenant: %w", err)
	}

	if err := s.client.Set(ctx, tenantKey(t.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("redis: update tenant: %w", err)
	}

	return nil
}

func (s *Store) ListTenants(ctx context.Context) ([]*tenant.Tenant, error) {
	ids, err := s.client.SMembers(ctx, tenantsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list tenants: %w", err)
	}

	sort.Strings(ids)

	out := make([]*tenant.Tenant, 0, len(ids))

	for _, tenantID := range ids {
		t, err := s.GetTenant(ctx, tenantID)
		if errors.Is(err, conductor.ErrTenantNotFound) {
			continue
		}

		if err != nil {
			return nil, err
		}

		out = append(out, t)
	}

	return out, nil
}

func (s *Store) DeleteTenant(ctx context.Context, tenantID string) error {
	removed, err := s.client.SRem(ctx, tenantsKey(), tenantID).Result()
	if err != nil {
		return fmt.Errorf("redis: delete tenant: %w", err)
	}

	if removed == 0 {
		return conductor.ErrTenantNotFound
	}

	if err := s.client.Del(ctx, tenantKey(tenantID)).Err(); err != nil {
		return fmt.Errorf("redis: delete tenant: %w", err)
	}

	return nil
}
