package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/bamtlab/conductor/job"
)

// Metrics records execution counts and durations using the global
// OpenTelemetry meter provider.
func Metrics() Middleware {
	return MetricsWithMeter(otel.GetMeterProvider().Meter("conductor"))
}

// MetricsWithMeter is Metrics with an injected meter, for tests and
// callers that manage their own provider.
func MetricsWithMeter(meter metric.Meter) Middleware {
	duration, _ := meter.Float64Histogram(
		"conductor.job.duration",
		metric.WithDescription("Job execution duration in seconds"),
		metric.WithUnit("s"),
	)

	completed, _ := meter.Int64Counter(
		"conductor.job.completed",
		metric.WithDescription("Jobs completed, by template and outcome"),
	)

	return func(next Handler) Handler {
		return func(ctx context.Context, inst *job.Instance) ([]byte, error) {
			start := time.Now()

			out, err := next(ctx, inst)

			outcome := "success"
			if err != nil {
				outcome = "failure"
			}

			attrs := metric.WithAttributes(
				attribute.String("template", inst.TemplateID),
				attribute.String("tenant", inst.TenantID),
				attribute.String("outcome", outcome),
			)

			duration.Record(ctx, time.Since(start).Seconds(), attrs)
			completed.Add(ctx, 1, attrs)

			return out, err
		}
	}
}
