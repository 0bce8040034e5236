package goTMDB

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/goTMDB/tmdb"
)

var (
	// ErrEmptyCredentials is returned when username or password is empty. No
	// network call is made.
	ErrEmptyCredentials = errors.New("username or password empty")
	// ErrLoginRateLimited is returned when the failed-login budget for a
	// username is exhausted, or when the throttle backend cannot be reached.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrLoginInFlight is returned when another attempt for the same user or
	// presenter has not settled yet.
	ErrLoginInFlight = errors.New("login already in progress")
	// ErrSessionPersist is returned when the handshake succeeded but the
	// session could not be stored. The remote session is left to expire.
	ErrSessionPersist = errors.New("session persist failed")
	// ErrSessionNotFound is returned when no live stored session matches.
	ErrSessionNotFound = errors.New("session not found")
	// ErrTicketInvalid is returned for malformed, expired or forged tickets.
	ErrTicketInvalid = errors.New("invalid ticket")
	// ErrTicketDisabled is returned when no ticket key is configured.
	ErrTicketDisabled = errors.New("tickets disabled")
	// ErrEngineNotReady is returned by a zero or partially built Engine.
	ErrEngineNotReady = errors.New("engine not initialized")

	// ErrEmptyBody is returned when a remote step answers 2xx with no payload.
	ErrEmptyBody = tmdb.ErrEmptyBody
	// ErrLoginNotConfirmed is returned when validate_with_login does not
	// report success.
	ErrLoginNotConfirmed = tmdb.ErrLoginNotConfirmed
)

type (
	TransportError    = tmdb.TransportError
	HTTPStatusError   = tmdb.HTTPStatusError
	JSONParseError    = tmdb.JSONParseError
	RemoteAPIError    = tmdb.RemoteAPIError
	MissingFieldError = tmdb.MissingFieldError
)

// StepError attributes a failure to the step that produced it. Err keeps the
// underlying cause so callers can match it with errors.Is and errors.As.
type StepError struct {
	Step      Step
	AttemptID string
	Err       error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// UserMessage maps err to the text shown to the person at the login form.
// Technical detail stays in logs.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrEmptyCredentials):
		return "Username or Password Empty."
	case errors.Is(err, ErrLoginRateLimited):
		return "Too many failed logins. Try again later."
	case errors.Is(err, ErrLoginInFlight):
		return "A login is already in progress."
	case errors.Is(err, ErrEngineNotReady):
		return "Login is unavailable."
	}

	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.Step.Message()
	}
	return "Login Failed."
}
