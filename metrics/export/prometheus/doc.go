// Package prometheus exposes engine metrics as a prometheus.Collector.
//
// [NewCollector] reads [dualauth.Engine.MetricsSnapshot] on every scrape and
// emits const metrics: one counter per engine counter, the authorize latency
// histogram and the audit dropped counter. Register it on a
// prometheus.Registry and serve it with [Handler] or promhttp.
//
// # What this package must NOT do
//
//   - Register in the global default registry.
//   - Mutate engine state.
package prometheus
