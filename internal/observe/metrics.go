// Package observe provides application-wide observability primitives for
// hibiki: OpenTelemetry metrics, tracing, and structured logging helpers.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. Tests should use [NewMetrics]
// with a custom [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"go.opentelemetry.io/otel/metric"
)

// scopeName is the instrumentation scope for all hibiki metrics and spans.
const scopeName = "github.com/aomorin/hibiki"

// Metrics holds all OpenTelemetry metric instruments for the orchestrator.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// SubmitDuration tracks chunk submission latency, dominated by the audio
	// upload.
	SubmitDuration metric.Float64Histogram

	// RunDuration tracks end-to-end run latency from dispatch to final
	// transcript.
	RunDuration metric.Float64Histogram

	// PollRequests counts job status polls. Use with attribute:
	//   attribute.String("status", ...)
	PollRequests metric.Int64Counter

	// ChunkOutcomes counts chunks reaching a terminal state. Use with attribute:
	//   attribute.String("outcome", "completed"|"remote_error"|"failed")
	ChunkOutcomes metric.Int64Counter

	// ActiveJobs tracks the number of chunk jobs currently in flight.
	ActiveJobs metric.Int64UpDownCounter
}

// submitBuckets covers multi-minute uploads of multi-hour audio chunks.
var submitBuckets = []float64{
	0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600,
}

// runBuckets covers whole-run latencies, which scale with the recording
// length and the remote queue.
var runBuckets = []float64{
	10, 30, 60, 300, 600, 1800, 3600, 7200, 14400,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(scopeName)
	var err error
	met := &Metrics{}

	if met.SubmitDuration, err = m.Float64Histogram("hibiki.submit.duration",
		metric.WithDescription("Latency of chunk job submission."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(submitBuckets...),
	); err != nil {
		return nil, err
	}
	if met.RunDuration, err = m.Float64Histogram("hibiki.run.duration",
		metric.WithDescription("End-to-end latency of a recognition run."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(runBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PollRequests, err = m.Int64Counter("hibiki.poll.requests",
		metric.WithDescription("Number of job status polls."),
	); err != nil {
		return nil, err
	}
	if met.ChunkOutcomes, err = m.Int64Counter("hibiki.chunk.outcomes",
		metric.WithDescription("Number of chunks reaching a terminal state."),
	); err != nil {
		return nil, err
	}
	if met.ActiveJobs, err = m.Int64UpDownCounter("hibiki.jobs.active",
		metric.WithDescription("Number of chunk jobs currently in flight."),
	); err != nil {
		return nil, err
	}
	return met, nil
}
