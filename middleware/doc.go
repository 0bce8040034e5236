// Package middleware guards HTTP handlers with a goTMDB login.
//
// # Guards
//
//   - [Guard] checks a handoff ticket sent as "Authorization: Bearer <ticket>".
//   - [RequireSessionCookie] checks a session handle cookie against the store.
//
// Both attach the stored session to the request context; read it back with
// [SessionFromContext].
//
// # What this package must NOT do
//
//   - Parse tickets or read the store directly. Every decision goes through
//     the Engine.
//   - Expose the remote session id to clients.
package middleware
