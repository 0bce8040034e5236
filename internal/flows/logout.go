package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goTMDB/session"
)

// LogoutMetrics carries metric IDs needed by the logout flow.
type LogoutMetrics struct {
	Logout             int
	LogoutRemoteFailed int
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	GetSession    func(context.Context, string) (*session.Session, error)
	DeleteRemote  func(context.Context, string) error
	DeleteSession func(context.Context, string) (bool, error)

	WrapError func(string, Stage, error) error
	MetricInc func(int)
	EmitAudit func(ctx context.Context, event string, success bool, attemptID, username string, userID int64, err error, metadata func() map[string]string)

	Metrics     LogoutMetrics
	LogoutEvent string
	NotFound    error
	NotReady    error
}

// RunLogout revokes the remote session behind handle and removes the local
// record. The local record is removed even when the remote call fails; that
// failure is still returned.
func RunLogout(ctx context.Context, handle string, deps LogoutDeps) error {
	if deps.GetSession == nil || deps.DeleteSession == nil {
		return deps.NotReady
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, string, int64, error, func() map[string]string) {}
	}
	if deps.WrapError == nil {
		deps.WrapError = func(_ string, _ Stage, err error) error { return err }
	}

	sess, err := deps.GetSession(ctx, handle)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) && deps.NotFound != nil {
			err = deps.NotFound
		}
		return deps.WrapError("", StageLogout, err)
	}

	var remoteErr error
	if deps.DeleteRemote != nil {
		remoteErr = deps.DeleteRemote(ctx, sess.SessionID)
		if remoteErr != nil {
			deps.MetricInc(deps.Metrics.LogoutRemoteFailed)
		}
	}

	if _, err := deps.DeleteSession(ctx, handle); err != nil {
		deps.EmitAudit(ctx, deps.LogoutEvent, false, "", sess.Username, sess.UserID, err, nil)
		return deps.WrapError("", StageLogout, err)
	}

	deps.MetricInc(deps.Metrics.Logout)
	if remoteErr != nil {
		deps.EmitAudit(ctx, deps.LogoutEvent, false, "", sess.Username, sess.UserID, remoteErr, func() map[string]string {
			return map[string]string{"reason": "remote_revoke_failed"}
		})
		return deps.WrapError("", StageLogout, remoteErr)
	}
	deps.EmitAudit(ctx, deps.LogoutEvent, true, "", sess.Username, sess.UserID, nil, nil)
	return nil
}
