// Package goTMDB logs a user in to The Movie Database with a username and
// password and keeps the resulting session.
//
// A login runs the four remote steps in order: create a request token,
// validate it with the credentials, exchange it for a session id, and resolve
// the account id. Each step consumes the previous step's output and the first
// failure ends the attempt. Only a complete handshake is stored.
//
// Engine methods are safe to call from multiple goroutines after
// [Builder.Build]. [Controller] binds an Engine to a login screen through the
// [Presenter] interface.
//
// # Architecture boundaries
//
// goTMDB is the public surface. It exposes [Engine], [Builder], [Config],
// [Controller] and value types. The HTTP client lives in tmdb, persistence in
// session, handoff tickets in jwt. Flow orchestration, throttling, audit
// dispatch and metric counters live under internal/.
//
// # What this package must NOT do
//
//   - Log, audit or return passwords, request tokens or API keys.
//   - Leave a stored session behind for a failed attempt.
//   - Import any sub-package that re-imports goTMDB.
package goTMDB
