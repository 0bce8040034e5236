// Package internal contains helpers private to goTMDB: session handles and
// attempt correlation ids.
//
// # Sub-packages
//
//   - flows: the sequential login and logout orchestrators
//   - rate: Redis-backed login throttle and in-flight lock
//
// # What this package must NOT do
//
//   - Export types that appear in the public goTMDB API.
//   - Be imported by any package outside the goTMDB module.
package internal
