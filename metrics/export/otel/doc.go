// Package otel publishes authgate service counters through the OpenTelemetry
// metric API.
//
// [NewExporter] registers an Int64ObservableCounter per service counter and an
// Int64ObservableGauge per cumulative latency bucket. One callback reads the
// snapshot on each collection cycle. Callers own the MeterProvider.
package otel
