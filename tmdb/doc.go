// Package tmdb is a minimal client for the TMDB v3 authentication endpoints used
// by the goTMDB login chain.
//
// Every call runs the same response pipeline, in order:
//
//  1. transport error        -> *TransportError
//  2. status outside 2xx     -> *HTTPStatusError
//  3. empty body             -> ErrEmptyBody
//  4. undecodable JSON       -> *JSONParseError
//  5. "status_code" in body  -> *RemoteAPIError
//  6. required field missing -> *MissingFieldError
//
// # What this package must NOT do
//
//   - Retry. A failed call is returned to the caller as-is.
//   - Cache tokens or session ids between calls.
//   - Log credentials. The client does not log at all; callers decide.
package tmdb
