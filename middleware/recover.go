package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/bamtlab/conductor/job"
)

// Recover converts handler panics into errors so a panicking template
// fails its job instead of crashing the scheduler.
func Recover(logger *slog.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, inst *job.Instance) (out []byte, err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("job handler panicked",
						"job_id", inst.ID.String(),
						"template", inst.TemplateID,
						"panic", r,
						"stack", string(debug.Stack()),
					)

					err = fmt.Errorf("panic: %v", r)
				}
			}()

			return next(ctx, inst)
		}
	}
}
