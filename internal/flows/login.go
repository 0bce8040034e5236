package flows

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/goTMDB/session"
)

// LoginRequest is one submission of the login form.
type LoginRequest struct {
	AttemptID string
	Username  string
	Password  string
}

// LoginResult is a stored session plus its handoff ticket, if any.
type LoginResult struct {
	Session *session.Session
	Ticket  string
}

// LoginMetrics carries metric IDs needed by the login flow.
type LoginMetrics struct {
	LoginAttempt         int
	LoginSuccess         int
	LoginFailure         int
	LoginRateLimited     int
	LoginInFlight        int
	InputRejected        int
	RequestTokenFailure  int
	ValidateLoginFailure int
	CreateSessionFailure int
	ResolveUserFailure   int
	SessionPersisted     int
	SessionPersistFail   int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	LoginSuccess     string
	LoginFailure     string
	LoginRateLimited string
	LoginInFlight    string
}

// LoginErrors carries host-level sentinel errors used by the login flow.
type LoginErrors struct {
	EngineNotReady   error
	EmptyCredentials error
	LoginRateLimited error
	LoginInFlight    error
	SessionPersist   error
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	SessionTTL time.Duration
	Now        func() time.Time

	CheckLoginRate     func(context.Context, string) error
	IncrementLoginRate func(context.Context, string) error
	ResetLoginRate     func(context.Context, string) error
	LoginAttempts      func(context.Context, string) (int, error)
	AcquireInFlight    func(context.Context, string, string) error
	ReleaseInFlight    func(context.Context, string, string) error

	// IsCredentialRejection decides which validate failures count against the
	// budget. Nil counts every validate failure.
	IsCredentialRejection func(error) bool

	RequestToken      func(context.Context) (string, error)
	ValidateWithLogin func(ctx context.Context, requestToken, username, password string) (string, error)
	CreateSession     func(ctx context.Context, validatedToken string) (string, error)
	ResolveUser       func(ctx context.Context, sessionID string) (int64, string, error)

	NewHandle     func() (string, error)
	SaveSession   func(context.Context, *session.Session, time.Duration) error
	DeleteSession func(context.Context, string) (bool, error)
	// IssueTicket runs after the session is stored. A failure removes the
	// stored session and fails the attempt at StagePersist.
	IssueTicket func(*session.Session) (string, error)

	OnState   func(context.Context, string, State)
	WrapError func(string, Stage, error) error
	MetricInc func(int)
	EmitAudit func(ctx context.Context, event string, success bool, attemptID, username string, userID int64, err error, metadata func() map[string]string)

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

// RunLogin executes the four-step handshake and persists the resulting session.
func RunLogin(ctx context.Context, req LoginRequest, deps LoginDeps) (*LoginResult, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, string, int64, error, func() map[string]string) {}
	}
	if deps.OnState == nil {
		deps.OnState = func(context.Context, string, State) {}
	}
	if deps.WrapError == nil {
		deps.WrapError = func(_ string, _ Stage, err error) error { return err }
	}
	if deps.RequestToken == nil ||
		deps.ValidateWithLogin == nil ||
		deps.CreateSession == nil ||
		deps.ResolveUser == nil ||
		deps.NewHandle == nil ||
		deps.SaveSession == nil ||
		deps.SessionTTL <= 0 ||
		(deps.IssueTicket != nil && deps.DeleteSession == nil) {
		return nil, deps.Errors.EngineNotReady
	}

	id := req.AttemptID
	username := req.Username

	fail := func(stage Stage, metric int, reason string, err error) error {
		deps.MetricInc(deps.Metrics.LoginFailure)
		if metric >= 0 {
			deps.MetricInc(metric)
		}
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, id, username, 0, err, func() map[string]string {
			return map[string]string{
				"stage":  stage.String(),
				"reason": reason,
			}
		})
		deps.OnState(ctx, id, StateFailed)
		return deps.WrapError(id, stage, err)
	}

	deps.OnState(ctx, id, StateIdle)
	deps.MetricInc(deps.Metrics.LoginAttempt)

	if req.Username == "" || req.Password == "" {
		return nil, fail(StageInput, deps.Metrics.InputRejected, "empty_credentials", deps.Errors.EmptyCredentials)
	}

	if deps.CheckLoginRate != nil {
		if err := deps.CheckLoginRate(ctx, username); err != nil {
			deps.MetricInc(deps.Metrics.LoginRateLimited)
			deps.EmitAudit(ctx, deps.Events.LoginRateLimited, false, id, username, 0, deps.Errors.LoginRateLimited, func() map[string]string {
				if deps.LoginAttempts == nil {
					return nil
				}
				n, err := deps.LoginAttempts(ctx, username)
				if err != nil {
					return map[string]string{"attempts": "unknown"}
				}
				return map[string]string{"attempts": strconv.Itoa(n)}
			})
			deps.OnState(ctx, id, StateFailed)
			return nil, deps.WrapError(id, StageThrottle, deps.Errors.LoginRateLimited)
		}
	}

	if deps.AcquireInFlight != nil {
		if err := deps.AcquireInFlight(ctx, username, id); err != nil {
			if errors.Is(err, deps.Errors.LoginInFlight) {
				deps.MetricInc(deps.Metrics.LoginInFlight)
				deps.EmitAudit(ctx, deps.Events.LoginInFlight, false, id, username, 0, err, nil)
			}
			deps.OnState(ctx, id, StateFailed)
			return nil, deps.WrapError(id, StageThrottle, err)
		}
		if deps.ReleaseInFlight != nil {
			defer func() {
				_ = deps.ReleaseInFlight(context.WithoutCancel(ctx), username, id)
			}()
		}
	}

	// Step 1
	deps.OnState(ctx, id, StateRequesting)
	requestToken, err := deps.RequestToken(ctx)
	if err != nil {
		return nil, fail(StageRequestToken, deps.Metrics.RequestTokenFailure, "remote", err)
	}

	// Step 2
	deps.OnState(ctx, id, StateValidating)
	validatedToken, err := deps.ValidateWithLogin(ctx, requestToken, req.Username, req.Password)
	if err != nil {
		if deps.IncrementLoginRate != nil && (deps.IsCredentialRejection == nil || deps.IsCredentialRejection(err)) {
			_ = deps.IncrementLoginRate(ctx, username)
		}
		return nil, fail(StageValidateLogin, deps.Metrics.ValidateLoginFailure, "remote", err)
	}

	// Step 3
	deps.OnState(ctx, id, StateSessionPending)
	sessionID, err := deps.CreateSession(ctx, validatedToken)
	if err != nil {
		return nil, fail(StageCreateSession, deps.Metrics.CreateSessionFailure, "remote", err)
	}

	// Step 4
	deps.OnState(ctx, id, StateResolvingUser)
	userID, accountName, err := deps.ResolveUser(ctx, sessionID)
	if err != nil {
		return nil, fail(StageResolveUser, deps.Metrics.ResolveUserFailure, "remote", err)
	}

	handle, err := deps.NewHandle()
	if err != nil {
		return nil, fail(StagePersist, deps.Metrics.SessionPersistFail, "handle_generation", err)
	}

	now := deps.Now()
	if accountName == "" {
		accountName = req.Username
	}
	sess := &session.Session{
		Handle:    handle,
		SessionID: sessionID,
		UserID:    userID,
		Username:  accountName,
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(deps.SessionTTL).Unix(),
	}
	if err := deps.SaveSession(ctx, sess, deps.SessionTTL); err != nil {
		return nil, fail(StagePersist, deps.Metrics.SessionPersistFail, "store", fmt.Errorf("%w: %v", deps.Errors.SessionPersist, err))
	}

	result := &LoginResult{Session: sess}
	if deps.IssueTicket != nil {
		ticket, err := deps.IssueTicket(sess)
		if err != nil {
			_, _ = deps.DeleteSession(context.WithoutCancel(ctx), sess.Handle)
			return nil, fail(StagePersist, deps.Metrics.SessionPersistFail, "ticket", err)
		}
		result.Ticket = ticket
	}

	if deps.ResetLoginRate != nil {
		_ = deps.ResetLoginRate(ctx, username)
	}

	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.MetricInc(deps.Metrics.SessionPersisted)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, id, username, userID, nil, nil)
	deps.OnState(ctx, id, StateComplete)

	return result, nil
}
