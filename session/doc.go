// Package session persists authenticated TMDB sessions for the hosting
// application.
//
// A stored [Session] is addressed by a local handle, never by the TMDB session
// id, so callers can pass the handle around (cookies, tickets) without leaking
// the remote credential.
//
// # Backends
//
//   - [RedisStore]: compact binary records with a TTL (see [Encode]).
//   - [PostgresStore]: one row per handle in tmdb_sessions.
//
// # What this package must NOT do
//
//   - Import goTMDB, jwt or tmdb (no upward imports).
//   - Talk to the remote API. Logout against TMDB is the Engine's job.
//   - Store passwords or request tokens.
package session
