// Package observe provides application-wide observability primitives for
// Scrive: OpenTelemetry metrics, tracing setup, and structured logging.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Scrive metrics.
const meterName = "github.com/MrWong99/scrive"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// RecordingDuration tracks the wall-clock length of finalized
	// recordings.
	RecordingDuration metric.Float64Histogram

	// TranscriptionDuration tracks transcription backend latency.
	TranscriptionDuration metric.Float64Histogram

	// FramesProcessed counts classified audio frames. Use with attribute:
	//   attribute.String("state", ...)
	FramesProcessed metric.Int64Counter

	// Recordings counts finished recording sessions. Use with attribute:
	//   attribute.String("outcome", ...) — "done", "empty" or "failed"
	Recordings metric.Int64Counter

	// TranscriptionRequests counts transcription backend calls. Use with
	// attributes:
	//   attribute.String("provider", ...), attribute.String("status", ...)
	TranscriptionRequests metric.Int64Counter

	// ActiveSessions tracks the number of recording sessions in flight.
	ActiveSessions metric.Int64UpDownCounter
}

// durationBuckets defines histogram bucket boundaries (in seconds) covering
// both short dictations and long transcription calls.
var durationBuckets = []float64{
	0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.RecordingDuration, err = m.Float64Histogram("scrive.recording.duration",
		metric.WithDescription("Wall-clock length of finalized recordings."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TranscriptionDuration, err = m.Float64Histogram("scrive.transcription.duration",
		metric.WithDescription("Latency of transcription backend calls."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.FramesProcessed, err = m.Int64Counter("scrive.frames.processed",
		metric.WithDescription("Total classified audio frames by detector state."),
	); err != nil {
		return nil, err
	}
	if met.Recordings, err = m.Int64Counter("scrive.recordings",
		metric.WithDescription("Total finished recording sessions by outcome."),
	); err != nil {
		return nil, err
	}
	if met.TranscriptionRequests, err = m.Int64Counter("scrive.transcription.requests",
		metric.WithDescription("Total transcription backend calls by provider and status."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("scrive.active_sessions",
		metric.WithDescription("Number of recording sessions in flight."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordFrame records one classified frame with its detector state.
func (m *Metrics) RecordFrame(ctx context.Context, state string) {
	m.FramesProcessed.Add(ctx, 1,
		metric.WithAttributes(attribute.String("state", state)))
}

// RecordRecording records one finished session with its outcome and length.
func (m *Metrics) RecordRecording(ctx context.Context, outcome string, seconds float64) {
	m.Recordings.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)))
	if seconds > 0 {
		m.RecordingDuration.Record(ctx, seconds)
	}
}

// RecordTranscription records one transcription call with the standard
// attribute set.
func (m *Metrics) RecordTranscription(ctx context.Context, provider, status string, seconds float64) {
	m.TranscriptionRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("status", status),
		))
	m.TranscriptionDuration.Record(ctx, seconds)
}
