package goTMDB

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goTMDB/internal"
	"github.com/MrEthical07/goTMDB/internal/audit"
	"github.com/MrEthical07/goTMDB/internal/flows"
	"github.com/MrEthical07/goTMDB/internal/rate"
	"github.com/MrEthical07/goTMDB/jwt"
	"github.com/MrEthical07/goTMDB/session"
	"github.com/MrEthical07/goTMDB/tmdb"
	"go.uber.org/zap"
)

// Engine runs the TMDB login handshake and manages the resulting sessions.
// It is safe for concurrent use once built.
type Engine struct {
	config   Config
	client   *tmdb.Client
	store    SessionStore
	limiter  *rate.Limiter
	tickets  *jwt.Manager
	audit    *audit.Dispatcher
	metrics  *Metrics
	logger   *zap.Logger
	observer StateObserver
	flows    flows.Service
	now      func() time.Time
}

// Close flushes queued audit events and stops the dispatcher. The session
// store and Redis client belong to the caller.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
	if e.logger != nil {
		_ = e.logger.Sync()
	}
}

// AuditDropped reports how many audit events were dropped on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return NewMetrics(MetricsConfig{}).Snapshot()
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) clock() time.Time {
	if e.now != nil {
		return e.now()
	}
	return time.Now()
}

// Login runs the four-step handshake for username and password and stores the
// session. On failure the error is a *StepError (or a throttle sentinel) and
// nothing is stored.
func (e *Engine) Login(ctx context.Context, username, password string) (*Session, error) {
	result, err := e.LoginWithResult(ctx, Credentials{Username: username, Password: password})
	if err != nil {
		return nil, err
	}
	return result.Session, nil
}

// LoginWithResult is Login plus a handoff ticket when tickets are enabled.
func (e *Engine) LoginWithResult(ctx context.Context, creds Credentials) (*LoginResult, error) {
	if e == nil || !e.flows.Initialized() {
		return nil, ErrEngineNotReady
	}

	attemptID := internal.NewAttemptID()
	if supplied := attemptIDFromContext(ctx); supplied != "" {
		if parsed, err := internal.ParseAttemptID(supplied); err == nil {
			attemptID = parsed
		} else {
			e.logger.Debug("ignoring malformed attempt id", zap.Int("length", len(supplied)))
		}
	}
	log := e.logger.With(
		zap.String("attempt_id", attemptID),
		zap.String("username", creds.Username),
	)

	start := e.clock()
	out, err := e.flows.Login(ctx, flows.LoginRequest{
		AttemptID: attemptID,
		Username:  creds.Username,
		Password:  creds.Password,
	})
	elapsed := e.clock().Sub(start)
	if e.metrics != nil {
		e.metrics.Observe(MetricLoginLatency, elapsed)
	}

	if err != nil {
		step := StepInput
		var stepErr *StepError
		if errors.As(err, &stepErr) {
			step = stepErr.Step
		}
		log.Warn("login failed",
			zap.Stringer("step", step),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return nil, err
	}

	log.Info("login succeeded",
		zap.Int64("user_id", out.Session.UserID),
		zap.Duration("elapsed", elapsed),
	)
	return &LoginResult{Session: out.Session, Ticket: out.Ticket, AttemptID: attemptID}, nil
}

// Logout revokes the remote session stored under handle and deletes the local
// record. The local record is removed even when the remote call fails; the
// returned error then wraps the remote failure with StepLogout.
func (e *Engine) Logout(ctx context.Context, handle string) error {
	if e == nil || !e.flows.Initialized() {
		return ErrEngineNotReady
	}
	err := e.flows.Logout(ctx, handle)
	if err != nil {
		e.logger.Warn("logout incomplete", zap.Error(err))
		return err
	}
	e.logger.Info("logout", zap.String("handle_prefix", handlePrefix(handle)))
	return nil
}

// SessionByHandle loads a live session.
func (e *Engine) SessionByHandle(ctx context.Context, handle string) (*Session, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}
	if !internal.ValidHandle(handle) {
		return nil, ErrSessionNotFound
	}
	sess, err := e.store.Get(ctx, handle)
	if errors.Is(err, session.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if sess.Expired(e.clock()) {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// IssueTicket signs a fresh ticket for a stored session.
func (e *Engine) IssueTicket(ctx context.Context, handle string) (string, error) {
	if e == nil || e.tickets == nil {
		return "", ErrTicketDisabled
	}
	sess, err := e.SessionByHandle(ctx, handle)
	if err != nil {
		return "", err
	}
	return e.issueTicket(sess)
}

func (e *Engine) issueTicket(sess *Session) (string, error) {
	notAfter := time.Time{}
	if sess.ExpiresAt > 0 {
		notAfter = time.Unix(sess.ExpiresAt, 0)
	}
	ticket, _, err := e.tickets.Issue(sess.Handle, sess.UserID, notAfter)
	if err != nil {
		return "", err
	}
	e.metricInc(MetricTicketIssued)
	return ticket, nil
}

// ValidateTicket verifies ticket and returns the session it names.
func (e *Engine) ValidateTicket(ctx context.Context, ticket string) (*Session, error) {
	if e == nil || e.tickets == nil {
		return nil, ErrTicketDisabled
	}
	claims, err := e.tickets.Parse(ticket)
	if err != nil {
		e.metricInc(MetricTicketRejected)
		return nil, fmt.Errorf("%w: %v", ErrTicketInvalid, err)
	}
	sess, err := e.SessionByHandle(ctx, claims.SID)
	if err != nil {
		e.metricInc(MetricTicketRejected)
		return nil, err
	}
	if sess.UserID != claims.UID {
		e.metricInc(MetricTicketRejected)
		return nil, ErrTicketInvalid
	}
	return sess, nil
}

func handlePrefix(handle string) string {
	if len(handle) > 6 {
		return handle[:6]
	}
	return handle
}
