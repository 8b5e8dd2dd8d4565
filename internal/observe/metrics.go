// Package observe provides observability primitives for voxagent:
// OpenTelemetry metrics with a Prometheus exporter bridge.
//
// Metrics are recorded through the OpenTelemetry Metrics API. [InitProvider]
// wires a Prometheus exporter so metrics can be scraped via the standard
// /metrics endpoint. A package-level default [Metrics] instance
// ([DefaultMetrics]) is provided for convenience; tests should use
// [NewMetrics] with a custom [metric.MeterProvider] to avoid cross-test
// pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all voxagent metrics.
const meterName = "github.com/TreasureProject/voxagent"

// Metrics holds all OpenTelemetry metric instruments for the agent.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// STTDuration tracks speech-to-text transcription latency.
	STTDuration metric.Float64Histogram

	// TTSDuration tracks text-to-speech synthesis latency.
	TTSDuration metric.Float64Histogram

	// ChatDuration tracks backend chat exchange latency.
	ChatDuration metric.Float64Histogram

	// --- Counters ---

	// EventsPublished counts bus events by type.
	EventsPublished metric.Int64Counter

	// EventsDropped counts events evicted from full subscriber queues, by
	// queue name.
	EventsDropped metric.Int64Counter

	// Utterances counts finished utterances detected by the segmenter.
	Utterances metric.Int64Counter

	// ChatErrors counts failed chat exchanges by reason.
	ChatErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveModules tracks the number of running agent modules.
	ActiveModules metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for voice-pipeline latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.STTDuration, err = m.Float64Histogram("voxagent.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TTSDuration, err = m.Float64Histogram("voxagent.tts.duration",
		metric.WithDescription("Latency of text-to-speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ChatDuration, err = m.Float64Histogram("voxagent.chat.duration",
		metric.WithDescription("Latency of backend chat exchanges."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.EventsPublished, err = m.Int64Counter("voxagent.bus.events",
		metric.WithDescription("Total events published to the bus, by type."),
	); err != nil {
		return nil, err
	}
	if met.EventsDropped, err = m.Int64Counter("voxagent.bus.dropped",
		metric.WithDescription("Total events evicted from full subscriber queues, by queue."),
	); err != nil {
		return nil, err
	}
	if met.Utterances, err = m.Int64Counter("voxagent.utterances",
		metric.WithDescription("Total finished utterances detected by the segmenter."),
	); err != nil {
		return nil, err
	}
	if met.ChatErrors, err = m.Int64Counter("voxagent.chat.errors",
		metric.WithDescription("Total failed chat exchanges, by reason."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveModules, err = m.Int64UpDownCounter("voxagent.active_modules",
		metric.WithDescription("Number of running agent modules."),
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

// RecordEvent records one published bus event.
func (m *Metrics) RecordEvent(ctx context.Context, eventType string) {
	m.EventsPublished.Add(ctx, 1,
		metric.WithAttributes(attribute.String("type", eventType)),
	)
}

// RecordDrop records one event evicted from a full subscriber queue.
func (m *Metrics) RecordDrop(ctx context.Context, queue string) {
	m.EventsDropped.Add(ctx, 1,
		metric.WithAttributes(attribute.String("queue", queue)),
	)
}

// RecordChatError records one failed chat exchange.
func (m *Metrics) RecordChatError(ctx context.Context, reason string) {
	m.ChatErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)),
	)
}
