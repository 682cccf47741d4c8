// Package middleware provides composable execution middleware for job
// instances. Middleware wraps the template handler invocation, adding
// cross-cutting behavior such as panic recovery, logging, metrics,
// tracing, and timeout enforcement.
package middleware

import (
	"context"

	"github.com/bamtlab/conductor/job"
)

// Handler executes a job instance and returns its output payload.
type Handler func(ctx context.Context, inst *job.Instance) ([]byte, error)

// Middleware wraps a Handler with additional behavior.
type Middleware func(Handler) Handler

// Chain composes middlewares around a handler. The first middleware in
// the list is the outermost wrapper.
func Chain(h Handler, mws ...Middleware) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}

	return h
}
