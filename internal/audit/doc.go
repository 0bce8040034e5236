// Package audit implements async event dispatching for login and logout
// outcomes.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, zap, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full / block-if-full semantics.
//   - [Event]: audit record with timestamp, attempt id, account, IP and metadata.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which
// events to emit; that belongs to the Engine and flow functions.
//
// # What this package must NOT do
//
//   - Carry passwords, request tokens or TMDB session ids in events.
//   - Import goTMDB or any sibling internal package.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package audit
