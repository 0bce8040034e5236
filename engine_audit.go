package goTMDB

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goTMDB/session"
)

const (
	auditEventLoginSuccess     = "login_success"
	auditEventLoginFailure     = "login_failure"
	auditEventLoginRateLimited = "login_rate_limited"
	auditEventLoginInFlight    = "login_in_flight"
	auditEventLogout           = "logout"
)

// AuditErrorCode is the stable, non-sensitive error label stored in audit events.
type AuditErrorCode string

const (
	auditErrEmptyCredentials AuditErrorCode = "empty_credentials"
	auditErrRateLimited      AuditErrorCode = "rate_limited"
	auditErrInFlight         AuditErrorCode = "in_flight"
	auditErrTransport        AuditErrorCode = "transport"
	auditErrHTTPStatus       AuditErrorCode = "http_status"
	auditErrEmptyBody        AuditErrorCode = "empty_body"
	auditErrJSONParse        AuditErrorCode = "json_parse"
	auditErrRemoteAPI        AuditErrorCode = "remote_api"
	auditErrMissingField     AuditErrorCode = "missing_field"
	auditErrNotConfirmed     AuditErrorCode = "login_not_confirmed"
	auditErrSessionPersist   AuditErrorCode = "session_persist"
	auditErrSessionNotFound  AuditErrorCode = "session_not_found"
	auditErrUnavailable      AuditErrorCode = "backend_unavailable"
	auditErrInternal         AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	attemptID string,
	username string,
	userID int64,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		AttemptID: attemptID,
		Username:  username,
		UserID:    userID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	var (
		transportErr *TransportError
		statusErr    *HTTPStatusError
		parseErr     *JSONParseError
		apiErr       *RemoteAPIError
		missingErr   *MissingFieldError
	)

	switch {
	case errors.Is(err, ErrEmptyCredentials):
		return auditErrEmptyCredentials
	case errors.Is(err, ErrLoginRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrLoginInFlight):
		return auditErrInFlight
	case errors.Is(err, ErrSessionPersist):
		return auditErrSessionPersist
	case errors.Is(err, ErrSessionNotFound):
		return auditErrSessionNotFound
	case errors.Is(err, ErrEmptyBody):
		return auditErrEmptyBody
	case errors.Is(err, ErrLoginNotConfirmed):
		return auditErrNotConfirmed
	case errors.As(err, &transportErr):
		return auditErrTransport
	case errors.As(err, &statusErr):
		return auditErrHTTPStatus
	case errors.As(err, &parseErr):
		return auditErrJSONParse
	case errors.As(err, &apiErr):
		return auditErrRemoteAPI
	case errors.As(err, &missingErr):
		return auditErrMissingField
	case errors.Is(err, ErrEngineNotReady),
		errors.Is(err, session.ErrRedisUnavailable),
		errors.Is(err, session.ErrPostgresUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
