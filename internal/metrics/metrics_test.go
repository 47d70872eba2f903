package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDisabledMetricsAreNoOps(t *testing.T) {
	m := New(Config{})
	m.Inc(MetricLoginSuccess)
	m.Observe(MetricVerifyLatency, time.Millisecond)

	assert.False(t, m.Enabled())
	assert.Zero(t, m.Value(MetricLoginSuccess))
	assert.Empty(t, m.Snapshot().Counters)

	var nilMetrics *Metrics
	nilMetrics.Inc(MetricLoginSuccess)
	assert.Empty(t, nilMetrics.Snapshot().Counters)
}

func TestCountersConcurrent(t *testing.T) {
	m := New(Config{Enabled: true})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				m.Inc(MetricRefreshSuccess)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(8000), m.Value(MetricRefreshSuccess))
	assert.Equal(t, uint64(8000), m.Snapshot().Counters[MetricRefreshSuccess])
}

func TestOutOfRangeIgnored(t *testing.T) {
	m := New(Config{Enabled: true})
	m.Inc(MetricIDCount + 3)
	assert.Zero(t, m.Value(MetricIDCount+3))
}

func TestHistogram(t *testing.T) {
	m := New(Config{Enabled: true, EnableLatency: true})
	m.Observe(MetricVerifyLatency, 10*time.Microsecond)
	m.Observe(MetricVerifyLatency, 300*time.Microsecond)
	m.Observe(MetricVerifyLatency, time.Second)
	m.Observe(MetricLoginSuccess, time.Second)

	s := m.Snapshot()
	buckets := s.Histograms[MetricVerifyLatency]
	assert.Len(t, buckets, HistBucketCount)
	assert.Equal(t, uint64(1), buckets[0])
	assert.Equal(t, uint64(1), buckets[3])
	assert.Equal(t, uint64(1), buckets[7])
	assert.Equal(t, time.Second+310*time.Microsecond, s.HistogramSums[MetricVerifyLatency])
	assert.NotContains(t, s.Counters, MetricVerifyLatency)
}

func TestLatencyRequiresEnabled(t *testing.T) {
	m := New(Config{EnableLatency: true})
	assert.False(t, m.LatencyEnabled())
}

func TestBucketIndex(t *testing.T) {
	cases := map[time.Duration]int{
		0:                      0,
		50 * time.Microsecond:  0,
		51 * time.Microsecond:  1,
		250 * time.Microsecond: 2,
		time.Millisecond:       4,
		5 * time.Millisecond:   5,
		25 * time.Millisecond:  6,
		26 * time.Millisecond:  7,
		10 * time.Second:       7,
	}
	for d, want := range cases {
		assert.Equal(t, want, BucketIndex(d), d.String())
	}
}
