// Package prometheus exposes goTMDB metrics through a client_golang Collector.
//
// [NewExporter] wraps an [goTMDB.Engine]. Register the [Exporter] on your own
// registry, or mount [Exporter.Handler] which uses a private one. Counters are
// named gotmdb_*_total; login latency is the native histogram
// gotmdb_login_latency_seconds.
//
// # What this package must NOT do
//
//   - Register in the global Prometheus registry.
//   - Mutate engine state.
package prometheus
