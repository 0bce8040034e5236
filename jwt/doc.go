// Package jwt issues and verifies short-lived handoff tickets. A ticket names a
// stored session by its local handle so the hosting application never has to
// hold the remote session id.
package jwt
