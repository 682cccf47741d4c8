package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/bamtlab/conductor/job"
)

// Logging logs the start and outcome of each job execution.
func Logging(logger *slog.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, inst *job.Instance) ([]byte, error) {
			start := time.Now()

			logger.Info("job started",
				"job_id", inst.ID.String(),
				"tenant_id", inst.TenantID,
				"workflow_id", inst.WorkflowID,
				"template", inst.TemplateID,
			)

			out, err := next(ctx, inst)

			duration := time.Since(start)
			if err != nil {
				logger.Error("job failed",
					"job_id", inst.ID.String(),
					"tenant_id", inst.TenantID,
					"template", inst.TemplateID,
					"duration", duration,
					"error", err,
				)

				return out, err
			}

			logger.Info("job succeeded",
				"job_id", inst.ID.String(),
				"tenant_id", inst.TenantID,
				"template", inst.TemplateID,
				"duration", duration,
			)

			return out, nil
		}
	}
}
