// Package otel binds goGate engine metrics to OpenTelemetry instruments.
//
// [NewExporter] registers an Int64ObservableCounter per engine counter and an
// Int64ObservableGauge per histogram bucket. A single callback reads
// [goGate.Engine.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
