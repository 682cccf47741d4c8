package observability_test

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/bamtlab/conductor/ext"
	"github.com/bamtlab/conductor/id"
	"github.com/bamtlab/conductor/job"
	"github.com/bamtlab/conductor/observability"
)

func TestMetricsExtensionImplementsHooks(t *testing.T) {
	var e any = observability.NewMetricsExtension()

	if _, ok := e.(ext.JobEnqueuedHook); !ok {
		t.Error("expected JobEnqueuedHook")
	}

	if _, ok := e.(ext.JobAdmittedHook); !ok {
		t.Error("expected JobAdmittedHook")
	}

	if _, ok := e.(ext.JobSucceededHook); !ok {
		t.Error("expected JobSucceededHook")
	}

	if _, ok := e.(ext.JobFailedHook); !ok {
		t.Error("expected JobFailedHook")
	}

	if _, ok := e.(ext.CronFiredHook); !ok {
		t.Error("expected CronFiredHook")
	}
}

func TestMetricsExtensionCounts(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	e := observability.NewMetricsExtensionWithMeter(provider.Meter("test"))

	ctx := context.Background()
	inst := &job.Instance{ID: id.NewJobID(), TenantID: "t1", TemplateID: "echo"}

	e.OnJobEnqueued(ctx, inst)
	e.OnJobAdmitted(ctx, inst)
	e.OnJobSucceeded(ctx, inst)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect failed: %v", err)
	}

	seen := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			seen[m.Name] = true
		}
	}

	for _, want := range []string{
		"conductor.jobs.enqueued",
		"conductor.jobs.admitted",
		"conductor.jobs.succeeded",
	} {
		if !seen[want] {
			t.Errorf("expected metric %q to be recorded", want)
		}
	}
}
