// Package internal holds the private building blocks of authgate.
//
//   - audit: async event dispatch with sinks
//   - flows: login, refresh and logout orchestration as pure functions
//   - metrics: lock-free counters and the verify latency histogram
//   - security: startup security report
package internal
