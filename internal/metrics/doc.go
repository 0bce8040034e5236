// Package metrics provides lock-free counters and a login latency histogram
// for goTMDB observability.
//
// # Design
//
// Counters are stored in cache-line-padded uint64 slots and incremented
// atomically. The latency histogram uses 8 fixed buckets (≤100ms … +Inf)
// sized for remote round trips, plus a running sum in microseconds. Both are
// allocation-free on the write path.
//
// # Architecture boundaries
//
// This package owns metric storage and snapshot creation. Metric export
// (Prometheus, OTel) lives in metrics/export/ and reads Snapshot values.
//
// # What this package must NOT do
//
//   - Perform I/O or network calls.
//   - Import goTMDB or any sibling package.
//   - Expose global metric registries.
package metrics
