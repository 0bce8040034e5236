// Package rate provides the Redis primitives behind login throttling and the
// per-username in-flight guard.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefixes:
//   - tl:: failed logins per username
//   - tf:: in-flight login lock per username (value = attempt id)
//
// # What this package must NOT do
//
//   - Decide which failures count. The login flow calls IncrementLogin.
//   - Be imported outside the goTMDB module.
package rate
