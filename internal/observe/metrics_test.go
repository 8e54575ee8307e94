package observe

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func TestNewMetricsCreatesAllInstruments(t *testing.T) {
	t.Parallel()

	mp := sdkmetric.NewMeterProvider()
	defer mp.Shutdown(context.Background())

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	if m.SubmitDuration == nil || m.RunDuration == nil {
		t.Error("histograms not initialised")
	}
	if m.PollRequests == nil || m.ChunkOutcomes == nil {
		t.Error("counters not initialised")
	}
	if m.ActiveJobs == nil {
		t.Error("up-down counter not initialised")
	}

	// Recording must not panic on a bare SDK provider.
	ctx := context.Background()
	m.SubmitDuration.Record(ctx, 1.5)
	m.RunDuration.Record(ctx, 42)
	m.PollRequests.Add(ctx, 1)
	m.ChunkOutcomes.Add(ctx, 1)
	m.ActiveJobs.Add(ctx, 1)
	m.ActiveJobs.Add(ctx, -1)
}
