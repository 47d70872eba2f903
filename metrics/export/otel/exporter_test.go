package otel

import (
	"context"
	"maps"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/authgate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot authgate.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() authgate.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := authgate.MetricsSnapshot{
		Counters:      maps.Clone(f.snapshot.Counters),
		Histograms:    make(map[authgate.MetricID][]uint64, len(f.snapshot.Histograms)),
		HistogramSums: maps.Clone(f.snapshot.HistogramSums),
	}
	for k, buckets := range f.snapshot.Histograms {
		out.Histograms[k] = append([]uint64(nil), buckets...)
	}
	return out
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func newReader(t *testing.T) (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return reader, provider
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func int64Value(t *testing.T, data metricdata.Aggregation) int64 {
	t.Helper()
	switch d := data.(type) {
	case metricdata.Sum[int64]:
		require.Len(t, d.DataPoints, 1)
		return d.DataPoints[0].Value
	case metricdata.Gauge[int64]:
		require.Len(t, d.DataPoints, 1)
		return d.DataPoints[0].Value
	}
	t.Fatalf("unexpected aggregation %T", data)
	return 0
}

func TestExporterPublishesSnapshot(t *testing.T) {
	reader, provider := newReader(t)

	src := &fakeSource{
		snapshot: authgate.MetricsSnapshot{
			Counters: map[authgate.MetricID]uint64{
				authgate.MetricLoginSuccess:       3,
				authgate.MetricLineageInvalidated: 1,
			},
			Histograms: map[authgate.MetricID][]uint64{
				authgate.MetricVerifyLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
			HistogramSums: map[authgate.MetricID]time.Duration{
				authgate.MetricVerifyLatency: 2 * time.Second,
			},
		},
		dropped: 4,
	}

	exp, err := NewExporter(provider.Meter("authgate-test"), src)
	require.NoError(t, err)
	defer func() { assert.NoError(t, exp.Close()) }()

	got := collect(t, reader)
	assert.Equal(t, int64(3), int64Value(t, got["authgate_login_success_total"]))
	assert.Equal(t, int64(1), int64Value(t, got["authgate_lineage_invalidated_total"]))
	assert.Equal(t, int64(0), int64Value(t, got["authgate_logout_total"]))
	assert.Equal(t, int64(4), int64Value(t, got["authgate_audit_dropped_total"]))
	assert.Equal(t, int64(1), int64Value(t, got["authgate_verify_latency_seconds_bucket_le_0_00005"]))
	assert.Equal(t, int64(8), int64Value(t, got["authgate_verify_latency_seconds_bucket_le_inf"]))
	assert.Equal(t, int64(8), int64Value(t, got["authgate_verify_latency_seconds_count"]))

	sum, ok := got["authgate_verify_latency_seconds_sum"].(metricdata.Gauge[float64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.InDelta(t, 2.0, sum.DataPoints[0].Value, 1e-9)
}

func TestExporterRejectsNilInputs(t *testing.T) {
	_, provider := newReader(t)

	_, err := NewExporter(provider.Meter("authgate-test"), nil)
	assert.ErrorIs(t, err, ErrNilSource)

	_, err = NewExporter(nil, &fakeSource{})
	assert.ErrorIs(t, err, ErrNilMeter)
}

func TestExporterCloseStopsObservation(t *testing.T) {
	reader, provider := newReader(t)
	src := &fakeSource{snapshot: authgate.MetricsSnapshot{
		Counters: map[authgate.MetricID]uint64{authgate.MetricLogout: 1},
	}}

	exp, err := NewExporter(provider.Meter("authgate-test"), src)
	require.NoError(t, err)
	require.Contains(t, collect(t, reader), "authgate_logout_total")

	require.NoError(t, exp.Close())
	if data, ok := collect(t, reader)["authgate_logout_total"]; ok {
		sum, isSum := data.(metricdata.Sum[int64])
		require.True(t, isSum)
		assert.Empty(t, sum.DataPoints)
	}
}

func TestExporterConcurrentCollect(t *testing.T) {
	reader, provider := newReader(t)
	src := &fakeSource{snapshot: authgate.MetricsSnapshot{
		Counters: map[authgate.MetricID]uint64{authgate.MetricLoginSuccess: 1},
		Histograms: map[authgate.MetricID][]uint64{
			authgate.MetricVerifyLatency: {1, 0, 0, 0, 0, 0, 0, 0},
		},
	}}

	exp, err := NewExporter(provider.Meter("authgate-test"), src)
	require.NoError(t, err)
	defer func() { assert.NoError(t, exp.Close()) }()

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Go(func() {
			src.mu.Lock()
			src.snapshot.Counters[authgate.MetricLoginSuccess] = uint64(i + 1)
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		})
	}
	wg.Wait()
}
