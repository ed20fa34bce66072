// Package otel publishes engine metrics through an OpenTelemetry meter.
//
// [New] registers one Int64ObservableCounter per engine counter and one
// Int64ObservableGauge per cumulative latency bucket. A single callback reads
// [dualauth.Engine.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider; callers supply the Meter.
//   - Mutate engine state.
package otel
