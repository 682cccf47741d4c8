// Package observability provides a metrics extension that counts
// engine lifecycle events through OpenTelemetry. Pair it with the
// middleware package's Metrics and Tracing for per-execution signals.
package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/bamtlab/conductor/job"
)

// MetricsExtension counts lifecycle events. Register it with the
// engine's extension registry.
type MetricsExtension struct {
	enqueued  metric.Int64Counter
	admitted  metric.Int64Counter
	succeeded metric.Int64Counter
	failed    metric.Int64Counter
	cronFired metric.Int64Counter
	modeFlips metric.Int64Counter
}

// NewMetricsExtension creates a metrics extension using the global
// OpenTelemetry meter provider.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithMeter(otel.GetMeterProvider().Meter("conductor"))
}

// NewMetricsExtensionWithMeter is NewMetricsExtension with an injected
// meter.
func NewMetricsExtensionWithMeter(meter metric.Meter) *MetricsExtension {
	e := &MetricsExtension{}

	e.enqueued, _ = meter.Int64Counter("conductor.jobs.enqueued",
		metric.WithDescription("Job instances added to the admission queue"))
	e.admitted, _ = meter.Int64Counter("conductor.jobs.admitted",
		metric.WithDescription("Job instances admitted by the scheduler"))
	e.succeeded, _ = meter.Int64Counter("conductor.jobs.succeeded",
		metric.WithDescription("Job instances that reached SUCCESS"))
	e.failed, _ = meter.Int64Counter("conductor.jobs.failed",
		metric.WithDescription("Job instances that reached FAILED"))
	e.cronFired, _ = meter.Int64Counter("conductor.cron.fired",
		metric.WithDescription("Cron entries that triggered a workflow execution"))
	e.modeFlips, _ = meter.Int64Counter("conductor.scheduler.mode_changes",
		metric.WithDescription("Scheduler transitions between RUNNING and PAUSED"))

	return e
}

// Name implements ext.Extension.
func (e *MetricsExtension) Name() string { return "observability.metrics" }

func jobAttrs(inst *job.Instance) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String("tenant", inst.TenantID),
		attribute.String("template", inst.TemplateID),
	)
}

// OnJobEnqueued implements ext.JobEnqueuedHook.
func (e *MetricsExtension) OnJobEnqueued(ctx context.Context, inst *job.Instance) {
	e.enqueued.Add(ctx, 1, jobAttrs(inst))
}

// OnJobAdmitted implements ext.JobAdmittedHook.
func (e *MetricsExtension) OnJobAdmitted(ctx context.Context, inst *job.Instance) {
	e.admitted.Add(ctx, 1, jobAttrs(inst))
}

// OnJobSucceeded implements ext.JobSucceededHook.
func (e *MetricsExtension) OnJobSucceeded(ctx context.Context, inst *job.Instance) {
	e.succeeded.Add(ctx, 1, jobAttrs(inst))
}

// OnJobFailed implements ext.JobFailedHook.
func (e *MetricsExtension) OnJobFailed(ctx context.Context, inst *job.Instance) {
	e.failed.Add(ctx, 1, jobAttrs(inst))
}

// OnSchedulerStarted implements ext.SchedulerStartedHook.
func (e *MetricsExtension) OnSchedulerStarted(ctx context.Context) {
	e.modeFlips.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", "running")))
}

// OnSchedulerPaused implements ext.SchedulerPausedHook.
func (e *MetricsExtension) OnSchedulerPaused(ctx context.Context) {
	e.modeFlips.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", "paused")))
}

// OnCronFired implements ext.CronFiredHook.
func (e *MetricsExtension) OnCronFired(ctx context.Context, _ string, workflowID string) {
	e.cronFired.Add(ctx, 1, metric.WithAttributes(attribute.String("workflow", workflowID)))
}
