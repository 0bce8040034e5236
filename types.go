package goTMDB

import (
	"io"

	"github.com/MrEthical07/goTMDB/internal/audit"
	"github.com/MrEthical07/goTMDB/internal/flows"
	"github.com/MrEthical07/goTMDB/internal/metrics"
	"github.com/MrEthical07/goTMDB/session"
	"go.uber.org/zap"
)

// Credentials is one submission of the login form. It is never stored.
type Credentials struct {
	Username string
	Password string
}

// Session is the result of a completed login. Handle is the local store key;
// SessionID is the remote session id and must be treated as a secret.
type Session = session.Session

// SessionStore persists sessions by handle. See [session.RedisStore] and
// [session.PostgresStore].
type SessionStore = session.Store

// LoginResult bundles the stored session with its handoff ticket. Ticket is
// empty when tickets are disabled.
type LoginResult struct {
	Session   *Session
	Ticket    string
	AttemptID string
}

// Step names a stage of the login or logout pipeline.
type Step uint8

const (
	StepInput Step = iota
	StepThrottle
	StepRequestToken
	StepValidateLogin
	StepCreateSession
	StepResolveUser
	StepPersist
	StepLogout
)

func (s Step) String() string {
	return flows.Stage(s).String()
}

var stepMessages = [...]string{
	StepInput:         "Username or Password Empty.",
	StepThrottle:      "Too many failed logins. Try again later.",
	StepRequestToken:  "Login Failed (Request Token).",
	StepValidateLogin: "Login Failed (Login Step).",
	StepCreateSession: "Login Failed (Session ID).",
	StepResolveUser:   "Login Failed (User ID).",
	StepPersist:       "Login Failed (Saving Session).",
	StepLogout:        "Logout Failed.",
}

// Message is the user-facing text for a failure at s.
func (s Step) Message() string {
	if int(s) < len(stepMessages) {
		return stepMessages[s]
	}
	return "Login Failed."
}

// AuthState is the progress of one login attempt.
type AuthState uint8

const (
	StateIdle AuthState = iota
	StateRequesting
	StateValidating
	StateSessionPending
	StateResolvingUser
	StateComplete
	StateFailed
)

func (s AuthState) String() string {
	return flows.State(s).String()
}

// StateObserver receives every state transition of every attempt.
type StateObserver func(attemptID string, state AuthState)

// AuditEvent is one audit record.
type AuditEvent = audit.Event

// AuditSink receives audit events from the dispatcher goroutine.
type AuditSink = audit.Sink

// NoOpSink drops audit events.
type NoOpSink = audit.NoOpSink

// ChannelSink buffers audit events in a channel.
type ChannelSink = audit.ChannelSink

// JSONWriterSink writes audit events as JSON lines.
type JSONWriterSink = audit.JSONWriterSink

// ZapSink writes audit events to a zap logger.
type ZapSink = audit.ZapSink

func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

func NewZapSink(logger *zap.Logger) *ZapSink {
	return audit.NewZapSink(logger)
}

// MetricID indexes a counter or histogram.
type MetricID = metrics.MetricID

const (
	MetricLoginAttempt          = metrics.MetricLoginAttempt
	MetricLoginSuccess          = metrics.MetricLoginSuccess
	MetricLoginFailure          = metrics.MetricLoginFailure
	MetricLoginRateLimited      = metrics.MetricLoginRateLimited
	MetricLoginInFlight         = metrics.MetricLoginInFlight
	MetricInputRejected         = metrics.MetricInputRejected
	MetricRequestTokenFailure   = metrics.MetricRequestTokenFailure
	MetricValidateLoginFailure  = metrics.MetricValidateLoginFailure
	MetricCreateSessionFailure  = metrics.MetricCreateSessionFailure
	MetricResolveUserFailure    = metrics.MetricResolveUserFailure
	MetricSessionPersisted      = metrics.MetricSessionPersisted
	MetricSessionPersistFailure = metrics.MetricSessionPersistFailure
	MetricLogout                = metrics.MetricLogout
	MetricLogoutRemoteFailure   = metrics.MetricLogoutRemoteFailure
	MetricTicketIssued          = metrics.MetricTicketIssued
	MetricTicketRejected        = metrics.MetricTicketRejected
	MetricLoginLatency          = metrics.MetricLoginLatency
)

// Metrics holds atomic counters and the login latency histogram.
type Metrics = metrics.Metrics

// MetricsSnapshot is a point-in-time copy of all metrics.
type MetricsSnapshot = metrics.Snapshot

// NewMetrics creates a [Metrics] configured by cfg. When cfg.Enabled is false
// every operation is a no-op.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return metrics.New(metrics.Config{
		Enabled:       cfg.Enabled,
		EnableLatency: cfg.EnableLatencyHistograms,
	})
}
