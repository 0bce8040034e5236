// Package flows contains pure-function orchestrators for the Engine's login and
// logout operations.
//
// Each flow function (RunLogin, RunLogout) accepts a typed dependency struct and
// returns results without side-effects beyond those dependencies. This keeps the
// chain testable with plain function fakes and keeps the Engine type thin.
//
// # Login ordering
//
// RunLogin awaits each remote step before starting the next one:
//
//	input check -> throttle -> request token -> validate login
//	            -> create session -> resolve user -> persist
//
// The first failure ends the attempt. Nothing is persisted unless every
// remote step succeeded.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goTMDB (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency functions.
//   - Retry a failed step.
package flows
