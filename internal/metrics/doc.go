// Package metrics provides lock-free counters and a latency histogram for authgate.
//
// Counters live in cache-line-padded uint64 slots and are incremented with
// sync/atomic. The histogram uses 8 fixed buckets sized for token verification
// (50µs … +Inf). Both are allocation-free on the write path.
//
// Export (Prometheus, OTel) lives in metrics/export and reads [Snapshot] values.
//
// # What this package must NOT do
//
//   - Perform I/O.
//   - Import authgate or any sibling package.
//   - Expose a global registry.
package metrics
