package tmdb

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrEmptyBody is returned when a 2xx response carries no payload.
	ErrEmptyBody = errors.New("empty response body")
	// ErrLoginNotConfirmed is returned when validate_with_login answers without success=true.
	ErrLoginNotConfirmed = errors.New("login not confirmed")
	// ErrMissingAPIKey is returned by NewClient when no API key is configured.
	ErrMissingAPIKey = errors.New("tmdb api key is required")
)

// TransportError wraps a failure to exchange bytes with the remote service.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("tmdb %s: transport: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPStatusError reports a response outside the 2xx range. Code and Message are
// filled when the error body follows the TMDB status envelope.
type HTTPStatusError struct {
	Endpoint   string
	StatusCode int
	Code       int
	Message    string
}

func (e *HTTPStatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("tmdb %s: http %d: %s (code %d)", e.Endpoint, e.StatusCode, e.Message, e.Code)
	}
	return fmt.Sprintf("tmdb %s: http %d", e.Endpoint, e.StatusCode)
}

// JSONParseError reports a body that is not a JSON object.
type JSONParseError struct {
	Endpoint string
	Err      error
}

func (e *JSONParseError) Error() string {
	return fmt.Sprintf("tmdb %s: parse json: %v", e.Endpoint, e.Err)
}

func (e *JSONParseError) Unwrap() error { return e.Err }

// RemoteAPIError reports a TMDB status envelope found in a 2xx body.
type RemoteAPIError struct {
	Endpoint string
	Code     int
	Message  string
}

func (e *RemoteAPIError) Error() string {
	return fmt.Sprintf("tmdb %s: api error %d: %s", e.Endpoint, e.Code, e.Message)
}

// MissingFieldError reports a required response field that is absent, empty or
// of the wrong JSON type.
type MissingFieldError struct {
	Endpoint string
	Field    string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("tmdb %s: field %q missing or invalid", e.Endpoint, e.Field)
}

// TMDB status codes that mean the user, not the service, was rejected.
const (
	CodeInvalidAPIKey      = 7
	CodeInvalidCredentials = 30
	CodeEmailNotVerified   = 32
)

// IsCredentialRejection reports whether err means TMDB refused the username
// and password. Outages, malformed replies and API key problems return false.
func IsCredentialRejection(err error) bool {
	if errors.Is(err, ErrLoginNotConfirmed) {
		return true
	}

	var apiErr *RemoteAPIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == CodeInvalidCredentials || apiErr.Code == CodeEmailNotVerified
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		switch statusErr.Code {
		case CodeInvalidCredentials, CodeEmailNotVerified:
			return true
		case CodeInvalidAPIKey:
			return false
		}
		return statusErr.StatusCode == http.StatusUnauthorized && statusErr.Endpoint == EndpointValidateLogin
	}
	return false
}
