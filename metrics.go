package authgate

import (
	"time"

	internalmetrics "github.com/MrEthical07/authgate/internal/metrics"
)

// MetricID identifies one Service counter.
type MetricID = internalmetrics.MetricID

const (
	MetricLoginSuccess             = internalmetrics.MetricLoginSuccess
	MetricLoginFailure             = internalmetrics.MetricLoginFailure
	MetricLoginDisabled            = internalmetrics.MetricLoginDisabled
	MetricRefreshSuccess           = internalmetrics.MetricRefreshSuccess
	MetricRefreshFailure           = internalmetrics.MetricRefreshFailure
	MetricRefreshReuseDetected     = internalmetrics.MetricRefreshReuseDetected
	MetricLineageInvalidated       = internalmetrics.MetricLineageInvalidated
	MetricLogout                   = internalmetrics.MetricLogout
	MetricAuthzAllow               = internalmetrics.MetricAuthzAllow
	MetricAuthzDenyUnauthenticated = internalmetrics.MetricAuthzDenyUnauthenticated
	MetricAuthzDenyForbidden       = internalmetrics.MetricAuthzDenyForbidden
	MetricStoreUnavailable         = internalmetrics.MetricStoreUnavailable
	// MetricVerifyLatency is the access-token verification histogram.
	MetricVerifyLatency = internalmetrics.MetricVerifyLatency
)

// MetricsSnapshot is a point-in-time copy of the Service counters. Histogram
// buckets are non-cumulative, with upper bounds 50us, 100us, 250us, 500us, 1ms,
// 5ms, 25ms and +Inf.
type MetricsSnapshot = internalmetrics.Snapshot

func newMetrics(cfg MetricsConfig) *internalmetrics.Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:       cfg.Enabled,
		EnableLatency: cfg.EnableLatencyHistograms,
	})
}

func emptySnapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Counters:      map[MetricID]uint64{},
		Histograms:    map[MetricID][]uint64{},
		HistogramSums: map[MetricID]time.Duration{},
	}
}
