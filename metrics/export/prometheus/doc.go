// Package prometheus publishes authgate service counters through client_golang.
//
// [Exporter] is a prometheus.Collector that reads a fresh snapshot on every
// scrape. Register it on your own registry, or mount [Exporter.Handler], which
// serves a private registry holding only the authgate series. Counter names are
// authgate_*_total; the latency histogram is authgate_verify_latency_seconds.
package prometheus
