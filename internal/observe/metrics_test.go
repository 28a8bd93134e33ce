package observe

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestRecordFrame(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordFrame(ctx, "speech")
	m.RecordFrame(ctx, "speech")
	m.RecordFrame(ctx, "silence")

	rm := collect(t, reader)
	found := findMetric(rm, "scrive.frames.processed")
	if found == nil {
		t.Fatal("scrive.frames.processed not found")
	}
	sum := found.Data.(metricdata.Sum[int64])
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
		if v, ok := dp.Attributes.Value(attribute.Key("state")); ok && v.AsString() == "speech" && dp.Value != 2 {
			t.Errorf("speech frame count = %d, want 2", dp.Value)
		}
	}
	if total != 3 {
		t.Errorf("total frame count = %d, want 3", total)
	}
}

func TestRecordRecording(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordRecording(ctx, "done", 2.5)
	m.RecordRecording(ctx, "empty", 0)

	rm := collect(t, reader)
	counter := findMetric(rm, "scrive.recordings")
	if counter == nil {
		t.Fatal("scrive.recordings not found")
	}
	sum := counter.Data.(metricdata.Sum[int64])
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	if total != 2 {
		t.Errorf("recordings count = %d, want 2", total)
	}

	hist := findMetric(rm, "scrive.recording.duration")
	if hist == nil {
		t.Fatal("scrive.recording.duration not found")
	}
	h := hist.Data.(metricdata.Histogram[float64])
	if len(h.DataPoints) != 1 || h.DataPoints[0].Count != 1 {
		t.Errorf("duration histogram should record only the non-empty session, got %+v", h.DataPoints)
	}
}

func TestRecordTranscription(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordTranscription(ctx, "openai", "ok", 1.2)

	rm := collect(t, reader)
	counter := findMetric(rm, "scrive.transcription.requests")
	if counter == nil {
		t.Fatal("scrive.transcription.requests not found")
	}
	sum := counter.Data.(metricdata.Sum[int64])
	if len(sum.DataPoints) != 1 {
		t.Fatalf("data points = %d, want 1", len(sum.DataPoints))
	}
	dp := sum.DataPoints[0]
	if v, ok := dp.Attributes.Value(attribute.Key("provider")); !ok || v.AsString() != "openai" {
		t.Errorf("provider attribute = %v", dp.Attributes)
	}
	if v, ok := dp.Attributes.Value(attribute.Key("status")); !ok || v.AsString() != "ok" {
		t.Errorf("status attribute = %v", dp.Attributes)
	}
}
