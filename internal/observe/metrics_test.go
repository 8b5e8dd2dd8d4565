package observe

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
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

func TestHistogramObservation(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	histograms := []struct {
		name string
		h    metric.Float64Histogram
	}{
		{"voxagent.stt.duration", m.STTDuration},
		{"voxagent.tts.duration", m.TTSDuration},
		{"voxagent.chat.duration", m.ChatDuration},
	}

	for _, tc := range histograms {
		tc.h.Record(ctx, 0.123)
		tc.h.Record(ctx, 0.456)
	}

	rm := collect(t, reader)

	for _, tc := range histograms {
		t.Run(tc.name, func(t *testing.T) {
			got := findMetric(rm, tc.name)
			if got == nil {
				t.Fatalf("metric %q not found", tc.name)
			}
			hist, ok := got.Data.(metricdata.Histogram[float64])
			if !ok {
				t.Fatalf("metric %q is %T, want Histogram[float64]", tc.name, got.Data)
			}
			if len(hist.DataPoints) != 1 {
				t.Fatalf("metric %q has %d data points, want 1", tc.name, len(hist.DataPoints))
			}
			if hist.DataPoints[0].Count != 2 {
				t.Errorf("metric %q count = %d, want 2", tc.name, hist.DataPoints[0].Count)
			}
		})
	}
}

func TestCounterAttributes(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordEvent(ctx, "transcription")
	m.RecordEvent(ctx, "transcription")
	m.RecordDrop(ctx, "audio_ready_for_stt[0]")
	m.RecordChatError(ctx, "timeout")
	m.Utterances.Add(ctx, 1)

	rm := collect(t, reader)

	events := findMetric(rm, "voxagent.bus.events")
	if events == nil {
		t.Fatal("voxagent.bus.events not found")
	}
	sum, ok := events.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("events data is %T, want Sum[int64]", events.Data)
	}
	if len(sum.DataPoints) != 1 {
		t.Fatalf("events has %d data points, want 1", len(sum.DataPoints))
	}
	if sum.DataPoints[0].Value != 2 {
		t.Errorf("events value = %d, want 2", sum.DataPoints[0].Value)
	}
	if v, ok := sum.DataPoints[0].Attributes.Value(attribute.Key("type")); !ok || v.AsString() != "transcription" {
		t.Errorf("events type attribute = %v", v)
	}

	drops := findMetric(rm, "voxagent.bus.dropped")
	if drops == nil {
		t.Fatal("voxagent.bus.dropped not found")
	}
	errs := findMetric(rm, "voxagent.chat.errors")
	if errs == nil {
		t.Fatal("voxagent.chat.errors not found")
	}
	utt := findMetric(rm, "voxagent.utterances")
	if utt == nil {
		t.Fatal("voxagent.utterances not found")
	}
}

func TestActiveModulesGauge(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.ActiveModules.Add(ctx, 3)
	m.ActiveModules.Add(ctx, -1)

	rm := collect(t, reader)
	got := findMetric(rm, "voxagent.active_modules")
	if got == nil {
		t.Fatal("voxagent.active_modules not found")
	}
	sum, ok := got.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("gauge data is %T, want Sum[int64]", got.Data)
	}
	if sum.DataPoints[0].Value != 2 {
		t.Errorf("active modules = %d, want 2", sum.DataPoints[0].Value)
	}
}
