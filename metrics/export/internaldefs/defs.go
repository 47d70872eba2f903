package internaldefs

import (
	"github.com/MrEthical07/authgate"
)

// CounterDef names one service counter.
type CounterDef struct {
	ID   authgate.MetricID
	Name string
	Help string
}

// HistogramDef names one latency histogram.
type HistogramDef struct {
	ID   authgate.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter of audit events lost to backpressure.
const AuditDroppedName = "authgate_audit_dropped_total"

var CounterDefs = []CounterDef{
	{ID: authgate.MetricLoginSuccess, Name: "authgate_login_success_total", Help: "Successful logins."},
	{ID: authgate.MetricLoginFailure, Name: "authgate_login_failure_total", Help: "Failed logins."},
	{ID: authgate.MetricLoginDisabled, Name: "authgate_login_disabled_total", Help: "Logins refused for disabled accounts."},
	{ID: authgate.MetricRefreshSuccess, Name: "authgate_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: authgate.MetricRefreshFailure, Name: "authgate_refresh_failure_total", Help: "Failed refresh attempts."},
	{ID: authgate.MetricRefreshReuseDetected, Name: "authgate_refresh_reuse_detected_total", Help: "Refresh tokens presented after rotation."},
	{ID: authgate.MetricLineageInvalidated, Name: "authgate_lineage_invalidated_total", Help: "Refresh lineages revoked."},
	{ID: authgate.MetricLogout, Name: "authgate_logout_total", Help: "Logouts."},
	{ID: authgate.MetricAuthzAllow, Name: "authgate_authz_allow_total", Help: "Requests admitted by the gate."},
	{ID: authgate.MetricAuthzDenyUnauthenticated, Name: "authgate_authz_deny_unauthenticated_total", Help: "Requests refused for missing identity."},
	{ID: authgate.MetricAuthzDenyForbidden, Name: "authgate_authz_deny_forbidden_total", Help: "Requests refused for insufficient roles or permissions."},
	{ID: authgate.MetricStoreUnavailable, Name: "authgate_store_unavailable_total", Help: "Operations failed by an unavailable store."},
}

var HistogramDefs = []HistogramDef{
	{ID: authgate.MetricVerifyLatency, Name: "authgate_verify_latency_seconds", Help: "Access token verification latency."},
}

// HistogramBounds are the upper bounds, in seconds, of every finite bucket.
var HistogramBounds = []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.005, 0.025}

// HistogramBoundSuffix names each bucket, the last one being +Inf.
var HistogramBoundSuffix = []string{
	"0_00005",
	"0_0001",
	"0_00025",
	"0_0005",
	"0_001",
	"0_005",
	"0_025",
	"inf",
}

// BucketCount is the number of buckets including +Inf.
const BucketCount = 8

// NormalizeBuckets copies raw into a fixed-size array, zero-padding short input.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	copy(out[:], raw)
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i, n := range raw {
		running += n
		out[i] = running
	}
	return out
}
