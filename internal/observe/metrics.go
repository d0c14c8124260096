// Package observe provides observability primitives for the voicevox
// tooling: OpenTelemetry metrics with a Prometheus exporter bridge so the
// pipeline can be scraped via a standard /metrics endpoint.
//
// A package-level default [Metrics] instance ([DefaultMetrics]) is provided
// for convenience; tests should use [NewMetrics] with a custom
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/tattn/voicevox-client"

// Metrics holds all OpenTelemetry metric instruments for the synthesis
// pipeline. All fields are safe for concurrent use — the underlying OTel
// types handle their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// AnalyzeDuration tracks morphological analysis latency.
	AnalyzeDuration metric.Float64Histogram

	// QueryDuration tracks audio-query assembly latency (analysis plus
	// mora refinement).
	QueryDuration metric.Float64Histogram

	// SynthesisDuration tracks end-to-end text-to-WAV latency.
	SynthesisDuration metric.Float64Histogram

	// ModelLoadDuration tracks voice model load latency.
	ModelLoadDuration metric.Float64Histogram

	// --- Counters ---

	// SynthesisRequests counts synthesis requests. Use with attributes:
	//   attribute.Int("style_id", ...), attribute.String("status", ...)
	SynthesisRequests metric.Int64Counter

	// SynthesisErrors counts failed synthesis requests. Use with attribute:
	//   attribute.String("kind", ...)
	SynthesisErrors metric.Int64Counter

	// SynthesizedBytes counts WAV bytes produced.
	SynthesizedBytes metric.Int64Counter

	// --- Gauges ---

	// LoadedModels tracks the number of voice models currently loaded.
	LoadedModels metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) for
// synthesis latencies, which range from milliseconds to seconds.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation
// fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.AnalyzeDuration, err = m.Float64Histogram("voicevox.analyze.duration",
		metric.WithDescription("Latency of morphological text analysis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.QueryDuration, err = m.Float64Histogram("voicevox.query.duration",
		metric.WithDescription("Latency of audio-query assembly."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SynthesisDuration, err = m.Float64Histogram("voicevox.synthesis.duration",
		metric.WithDescription("End-to-end text-to-WAV synthesis latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ModelLoadDuration, err = m.Float64Histogram("voicevox.model_load.duration",
		metric.WithDescription("Latency of voice model loading."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.SynthesisRequests, err = m.Int64Counter("voicevox.synthesis.requests",
		metric.WithDescription("Total synthesis requests by style and status."),
	); err != nil {
		return nil, err
	}
	if met.SynthesisErrors, err = m.Int64Counter("voicevox.synthesis.errors",
		metric.WithDescription("Total failed synthesis requests by error kind."),
	); err != nil {
		return nil, err
	}
	if met.SynthesizedBytes, err = m.Int64Counter("voicevox.synthesis.bytes",
		metric.WithDescription("Total WAV bytes produced."),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}

	if met.LoadedModels, err = m.Int64UpDownCounter("voicevox.loaded_models",
		metric.WithDescription("Number of voice models currently loaded."),
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

// DefaultMetrics returns the package-level [Metrics] instance, creating it
// on first call using [otel.GetMeterProvider]. Subsequent calls return the
// same pointer. Panics if instrument creation fails (should not happen
// with the global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}
