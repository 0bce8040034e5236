// Package otel mirrors goTMDB metrics into OpenTelemetry instruments.
//
// [NewExporter] registers one Int64ObservableCounter per counter. The login
// latency histogram goes out as a "_bucket" gauge with an "le" attribute plus
// "_count" and "_sum" gauges. A single callback reads
// [goTMDB.Engine.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
