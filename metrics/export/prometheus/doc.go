// Package prometheus exposes goGate engine metrics through
// prometheus/client_golang.
//
// [Collector] reads [goGate.Engine.MetricsSnapshot] on each scrape. Counter
// names are gogate_*_total and the single histogram is
// gogate_risk_assess_latency_seconds. Register the collector in your own
// registry, or use [Handler] for a private one.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry.
//   - Mutate engine state.
package prometheus
