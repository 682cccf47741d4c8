package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/bamtlab/conductor/job"
)

// Timeout enforces the instance's execution deadline. The handler runs
// in its own goroutine so a non-cooperative handler cannot hold the
// worker past the deadline; fallback covers instances materialized
// without a timeout of their own.
func Timeout(fallback time.Duration) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, inst *job.Instance) ([]byte, error) {
			limit := inst.Timeout
			if limit <= 0 {
				limit = fallback
			}

			if limit <= 0 {
				return next(ctx, inst)
			}

			ctx, cancel := context.WithTimeout(ctx, limit)
			defer cancel()

			type result struct {
				out []byte
				err error
			}

			done := make(chan result, 1)

			go func() {
				defer func() {
					if r := recover(); r != nil {
						done <- result{err: fmt.Errorf("panic: %v", r)}
					}
				}()

				out, err := next(ctx, inst)
				done <- result{out: out, err: err}
			}()

			select {
			case r := <-done:
				return r.out, r.err
			case <-ctx.Done():
				// The goroutine may still be running; its eventual
				// result is discarded via the buffered channel.
				return nil, ctx.Err()
			}
		}
	}
}
