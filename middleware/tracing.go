package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bamtlab/conductor/job"
)

// Tracing wraps each execution in an OpenTelemetry span using the
// global tracer provider.
func Tracing() Middleware {
	return TracingWithTracer(otel.GetTracerProvider().Tracer("conductor"))
}

// TracingWithTracer is Tracing with an injected tracer.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, inst *job.Instance) ([]byte, error) {
			ctx, span := tracer.Start(ctx, "job.execute",
				trace.WithAttributes(
					attribute.String("job.id", inst.ID.String()),
					attribute.String("job.template", inst.TemplateID),
					attribute.String("job.tenant", inst.TenantID),
					attribute.String("job.workflow", inst.WorkflowID),
				),
			)
			defer span.End()

			out, err := next(ctx, inst)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			} else {
				span.SetStatus(codes.Ok, "")
			}

			return out, err
		}
	}
}
