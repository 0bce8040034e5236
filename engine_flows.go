package goTMDB

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goTMDB/internal"
	"github.com/MrEthical07/goTMDB/internal/flows"
	"github.com/MrEthical07/goTMDB/internal/rate"
	"github.com/MrEthical07/goTMDB/session"
	"github.com/MrEthical07/goTMDB/tmdb"
	"go.uber.org/zap"
)

func (e *Engine) buildFlowDeps() flows.Deps {
	wrap := func(attemptID string, stage flows.Stage, err error) error {
		if err == nil {
			return nil
		}
		return &StepError{Step: Step(stage), AttemptID: attemptID, Err: err}
	}
	metricInc := func(id int) { e.metricInc(MetricID(id)) }

	login := flows.LoginDeps{
		SessionTTL: e.config.Session.TTL,
		Now:        e.clock,

		RequestToken:      e.client.NewRequestToken,
		ValidateWithLogin: e.client.ValidateWithLogin,
		CreateSession:     e.client.NewSession,
		ResolveUser: func(ctx context.Context, sessionID string) (int64, string, error) {
			acct, err := e.client.Account(ctx, sessionID)
			if err != nil {
				return 0, "", err
			}
			return acct.ID, acct.Username, nil
		},

		NewHandle:     internal.NewHandle,
		SaveSession:   e.store.Save,
		DeleteSession: e.store.Delete,

		OnState:   e.onState,
		WrapError: wrap,
		MetricInc: metricInc,
		EmitAudit: e.emitAudit,

		Metrics: flows.LoginMetrics{
			LoginAttempt:         int(MetricLoginAttempt),
			LoginSuccess:         int(MetricLoginSuccess),
			LoginFailure:         int(MetricLoginFailure),
			LoginRateLimited:     int(MetricLoginRateLimited),
			LoginInFlight:        int(MetricLoginInFlight),
			InputRejected:        int(MetricInputRejected),
			RequestTokenFailure:  int(MetricRequestTokenFailure),
			ValidateLoginFailure: int(MetricValidateLoginFailure),
			CreateSessionFailure: int(MetricCreateSessionFailure),
			ResolveUserFailure:   int(MetricResolveUserFailure),
			SessionPersisted:     int(MetricSessionPersisted),
			SessionPersistFail:   int(MetricSessionPersistFailure),
		},
		Events: flows.LoginEvents{
			LoginSuccess:     auditEventLoginSuccess,
			LoginFailure:     auditEventLoginFailure,
			LoginRateLimited: auditEventLoginRateLimited,
			LoginInFlight:    auditEventLoginInFlight,
		},
		Errors: flows.LoginErrors{
			EngineNotReady:   ErrEngineNotReady,
			EmptyCredentials: ErrEmptyCredentials,
			LoginRateLimited: ErrLoginRateLimited,
			LoginInFlight:    ErrLoginInFlight,
			SessionPersist:   ErrSessionPersist,
		},
	}

	if e.limiter != nil && e.config.Security.EnableLoginThrottle {
		login.CheckLoginRate = e.limiter.CheckLogin
		login.IncrementLoginRate = func(ctx context.Context, username string) error {
			err := e.limiter.IncrementLogin(ctx, username)
			if err != nil && !errors.Is(err, rate.ErrRateLimited) {
				e.logger.Warn("login throttle increment failed", zap.Error(err))
			}
			return err
		}
		login.ResetLoginRate = e.limiter.ResetLogin
		login.LoginAttempts = e.limiter.GetLoginAttempts
		login.IsCredentialRejection = tmdb.IsCredentialRejection
	}
	if e.tickets != nil {
		login.IssueTicket = func(sess *session.Session) (string, error) {
			ticket, err := e.issueTicket(sess)
			if err != nil {
				e.logger.Error("ticket issue failed", zap.Error(err))
			}
			return ticket, err
		}
	}
	if e.limiter != nil && e.config.Security.EnableInFlightLock {
		login.AcquireInFlight = func(ctx context.Context, username, attemptID string) error {
			err := e.limiter.AcquireInFlight(ctx, username, attemptID)
			switch {
			case err == nil:
				return nil
			case errors.Is(err, rate.ErrInFlight):
				return ErrLoginInFlight
			default:
				// fail closed when the lock backend is down
				return fmt.Errorf("%w: %v", ErrLoginRateLimited, err)
			}
		}
		login.ReleaseInFlight = e.limiter.ReleaseInFlight
	}

	logout := flows.LogoutDeps{
		GetSession: func(ctx context.Context, handle string) (*session.Session, error) {
			if !internal.ValidHandle(handle) {
				return nil, session.ErrNotFound
			}
			return e.store.Get(ctx, handle)
		},
		DeleteRemote:  e.client.DeleteSession,
		DeleteSession: e.store.Delete,
		WrapError:     wrap,
		MetricInc:     metricInc,
		EmitAudit:     e.emitAudit,
		Metrics: flows.LogoutMetrics{
			Logout:             int(MetricLogout),
			LogoutRemoteFailed: int(MetricLogoutRemoteFailure),
		},
		LogoutEvent: auditEventLogout,
		NotFound:    ErrSessionNotFound,
		NotReady:    ErrEngineNotReady,
	}

	return flows.Deps{Login: login, Logout: logout}
}

func (e *Engine) onState(_ context.Context, attemptID string, state flows.State) {
	s := AuthState(state)
	e.logger.Debug("login state", zap.String("attempt_id", attemptID), zap.Stringer("state", s))
	if e.observer != nil {
		e.observer(attemptID, s)
	}
}

