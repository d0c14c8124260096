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

func TestSynthesisDurationObservation(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.SynthesisDuration.Record(ctx, 0.42,
		metric.WithAttributes(attribute.Int("style_id", 3)))

	rm := collect(t, reader)
	found := findMetric(rm, "voicevox.synthesis.duration")
	if found == nil {
		t.Fatal("voicevox.synthesis.duration not found after Record")
	}
	hist, ok := found.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("unexpected data type %T", found.Data)
	}
	if len(hist.DataPoints) != 1 {
		t.Fatalf("datapoints = %d, want 1", len(hist.DataPoints))
	}
	if got := hist.DataPoints[0].Sum; got != 0.42 {
		t.Errorf("sum = %v, want 0.42", got)
	}
}

func TestStageDurationHistograms(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.AnalyzeDuration.Record(ctx, 0.02)
	m.QueryDuration.Record(ctx, 0.05)
	m.ModelLoadDuration.Record(ctx, 1.5)

	rm := collect(t, reader)
	for name, wantSum := range map[string]float64{
		"voicevox.analyze.duration":    0.02,
		"voicevox.query.duration":      0.05,
		"voicevox.model_load.duration": 1.5,
	} {
		found := findMetric(rm, name)
		if found == nil {
			t.Errorf("%s not found after Record", name)
			continue
		}
		hist, ok := found.Data.(metricdata.Histogram[float64])
		if !ok {
			t.Errorf("%s: unexpected data type %T", name, found.Data)
			continue
		}
		if len(hist.DataPoints) != 1 || hist.DataPoints[0].Sum != wantSum {
			t.Errorf("%s: datapoints = %+v, want single sum %v", name, hist.DataPoints, wantSum)
		}
	}
}

func TestSynthesisRequestsCounter(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.SynthesisRequests.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", "ok")))
	m.SynthesisRequests.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", "error")))

	rm := collect(t, reader)
	found := findMetric(rm, "voicevox.synthesis.requests")
	if found == nil {
		t.Fatal("voicevox.synthesis.requests not found")
	}
	sum, ok := found.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("unexpected data type %T", found.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	if total != 2 {
		t.Errorf("total = %d, want 2", total)
	}
}

func TestLoadedModelsGauge(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.LoadedModels.Add(ctx, 2)
	m.LoadedModels.Add(ctx, -1)

	rm := collect(t, reader)
	found := findMetric(rm, "voicevox.loaded_models")
	if found == nil {
		t.Fatal("voicevox.loaded_models not found")
	}
	sum, ok := found.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("unexpected data type %T", found.Data)
	}
	if len(sum.DataPoints) != 1 || sum.DataPoints[0].Value != 1 {
		t.Errorf("gauge value = %+v, want single datapoint 1", sum.DataPoints)
	}
}
