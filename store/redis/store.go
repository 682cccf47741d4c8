// Package redis implements the composite store on Redis. Entities are
// stored as JSON values (job instances as hashes) with membership sets
// for enumeration, under the "conductor:" key prefix.
//
// The backend assumes a single engine process per key prefix: the
// admission queue and scheduler state are in-process, and Redis holds
// only durable entity state.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Store is a Redis-backed composite store.
type Store struct {
	client redis.UniversalClient
}

// Options configures a Redis store.
type Options struct {
	// Addr is the Redis address, e.g. "localhost:6379".
	Addr string

	// Password is optional.
	Password string

	// DB selects the logical database.
	DB int
}

// New creates a Redis store with its own client.
func New(opts Options) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	return &Store{client: client}
}

// NewWithClient wraps an existing client. The caller owns the client's
// lifecycle; Close becomes a no-op for the underlying connection.
func NewWithClient(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

// Migrate implements store.Store. Redis needs no schema; this verifies
// connectivity.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: migrate: %w", err)
	}

	return nil
}

// Ping implements store.Store.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping: %w", err)
	}

	return nil
}

// Close implements store.Store.
func (s *Store) Close() error {
	return s.client.Close()
}
