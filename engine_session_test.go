package goTMDB

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/goTMDB/tmdb"
)

func TestLogoutRevokesRemoteAndDeletesLocal(t *testing.T) {
	fake := newFakeTMDB(t)
	engine, mr, _ := buildTestEngine(t, fake, engineOpts{})

	sess, err := engine.Login(context.Background(), testUsername, testPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if err := engine.Logout(context.Background(), sess.Handle); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if fake.Hits("DELETE "+tmdb.EndpointDeleteSession) != 1 {
		t.Fatal("remote session was not revoked")
	}
	if len(storedSessionKeys(mr)) != 0 {
		t.Fatal("local session still stored")
	}
	if _, err := engine.SessionByHandle(context.Background(), sess.Handle); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestLogoutDeletesLocallyWhenRemoteFails(t *testing.T) {
	fake := newFakeTMDB(t)
	fake.respond("DELETE "+tmdb.EndpointDeleteSession, http.StatusInternalServerError, `{"status_code":11,"status_message":"Internal error."}`)
	engine, mr, _ := buildTestEngine(t, fake, engineOpts{})

	sess, err := engine.Login(context.Background(), testUsername, testPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	err = engine.Logout(context.Background(), sess.Handle)
	var stepErr *StepError
	if !errors.As(err, &stepErr) || stepErr.Step != StepLogout {
		t.Fatalf("expected StepLogout error, got %v", err)
	}
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected HTTPStatusError 500, got %v", err)
	}
	if len(storedSessionKeys(mr)) != 0 {
		t.Fatal("local session must be removed even when remote revoke fails")
	}
	if engine.MetricsSnapshot().Counters[MetricLogoutRemoteFailure] != 1 {
		t.Fatal("remote logout failure not counted")
	}
}

func TestLogoutUnknownHandle(t *testing.T) {
	fake := newFakeTMDB(t)
	engine, _, _ := buildTestEngine(t, fake, engineOpts{})

	for _, handle := range []string{"", "not a handle", strings.Repeat("A", 43)} {
		err := engine.Logout(context.Background(), handle)
		if !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("handle %q: expected ErrSessionNotFound, got %v", handle, err)
		}
	}
	if fake.TotalHits() != 0 {
		t.Fatal("logout of an unknown handle must not reach the network")
	}
}

func TestTicketRoundTrip(t *testing.T) {
	fake := newFakeTMDB(t)
	engine, _, _ := buildTestEngine(t, fake, engineOpts{cfg: func(c *Config) {
		*c = withTicketKey(t, *c)
	}})

	res, err := engine.LoginWithResult(context.Background(), Credentials{testUsername, testPassword})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if res.Ticket == "" {
		t.Fatal("expected a ticket")
	}
	if strings.Contains(res.Ticket, "sess456") {
		t.Fatal("ticket must not carry the remote session id")
	}

	sess, err := engine.ValidateTicket(context.Background(), res.Ticket)
	if err != nil {
		t.Fatalf("ValidateTicket failed: %v", err)
	}
	if sess.Handle != res.Session.Handle || sess.UserID != 789 {
		t.Fatalf("ticket resolved to %+v", sess)
	}

	reissued, err := engine.IssueTicket(context.Background(), res.Session.Handle)
	if err != nil || reissued == "" {
		t.Fatalf("IssueTicket failed: %v", err)
	}

	dot := strings.LastIndex(res.Ticket, ".")
	flip := byte('A')
	if res.Ticket[dot+1] == 'A' {
		flip = 'B'
	}
	tampered := res.Ticket[:dot+1] + string(flip) + res.Ticket[dot+2:]
	if _, err := engine.ValidateTicket(context.Background(), tampered); !errors.Is(err, ErrTicketInvalid) {
		t.Fatalf("expected ErrTicketInvalid for tampered ticket, got %v", err)
	}

	if err := engine.Logout(context.Background(), res.Session.Handle); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if _, err := engine.ValidateTicket(context.Background(), res.Ticket); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("ticket for a logged-out session must fail, got %v", err)
	}

	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricTicketIssued] != 2 || snap.Counters[MetricTicketRejected] != 2 {
		t.Fatalf("unexpected ticket counters %v", snap.Counters)
	}
}

func TestTicketsDisabledByDefault(t *testing.T) {
	fake := newFakeTMDB(t)
	engine, _, _ := buildTestEngine(t, fake, engineOpts{})

	res, err := engine.LoginWithResult(context.Background(), Credentials{testUsername, testPassword})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if res.Ticket != "" {
		t.Fatal("no ticket expected when tickets are disabled")
	}
	if _, err := engine.ValidateTicket(context.Background(), "x"); !errors.Is(err, ErrTicketDisabled) {
		t.Fatalf("expected ErrTicketDisabled, got %v", err)
	}
}

func TestAuditEventsForLoginAndLogout(t *testing.T) {
	fake := newFakeTMDB(t)
	sink := NewChannelSink(16)
	engine, _, _ := buildTestEngine(t, fake, engineOpts{
		sink: sink,
		cfg:  func(c *Config) { c.Audit.Enabled = true },
	})

	ctx := WithClientIP(context.Background(), "203.0.113.9")
	sess, err := engine.Login(ctx, testUsername, testPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	fake.respond(tmdb.EndpointAccount, http.StatusOK, `{"id":"789"}`)
	_, _ = engine.Login(ctx, testUsername, testPassword)
	if err := engine.Logout(ctx, sess.Handle); err != nil {
		t.Fatalf("logout failed: %v", err)
	}

	engine.Close()

	var events []AuditEvent
	for {
		select {
		case ev := <-sink.Events():
			events = append(events, ev)
			continue
		case <-time.After(100 * time.Millisecond):
		}
		break
	}

	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d: %+v", len(events), events)
	}

	success, failure, logout := events[0], events[1], events[2]
	if success.EventType != "login_success" || !success.Success || success.UserID != 789 || success.IP != "203.0.113.9" {
		t.Fatalf("unexpected success event %+v", success)
	}
	if failure.EventType != "login_failure" || failure.Success || failure.Error != "missing_field" {
		t.Fatalf("unexpected failure event %+v", failure)
	}
	if failure.Metadata["stage"] != "resolve_user" {
		t.Fatalf("failure event stage = %q", failure.Metadata["stage"])
	}
	if logout.EventType != "logout" || !logout.Success {
		t.Fatalf("unexpected logout event %+v", logout)
	}

	for _, ev := range events {
		dump := ev.Error + ev.Username
		for _, v := range ev.Metadata {
			dump += v
		}
		if strings.Contains(dump, testPassword) || strings.Contains(dump, "sess456") {
			t.Fatalf("audit event leaks a secret: %+v", ev)
		}
	}
}

func TestSessionByHandleRejectsMalformedHandle(t *testing.T) {
	fake := newFakeTMDB(t)
	engine, _, _ := buildTestEngine(t, fake, engineOpts{})

	if _, err := engine.SessionByHandle(context.Background(), "../../etc"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&StepError{Step: StepInput, Err: ErrEmptyCredentials}, "Username or Password Empty."},
		{&StepError{Step: StepRequestToken, Err: errors.New("x")}, "Login Failed (Request Token)."},
		{&StepError{Step: StepValidateLogin, Err: ErrLoginNotConfirmed}, "Login Failed (Login Step)."},
		{&StepError{Step: StepCreateSession, Err: ErrEmptyBody}, "Login Failed (Session ID)."},
		{&StepError{Step: StepResolveUser, Err: errors.New("x")}, "Login Failed (User ID)."},
		{&StepError{Step: StepPersist, Err: ErrSessionPersist}, "Login Failed (Saving Session)."},
		{&StepError{Step: StepThrottle, Err: ErrLoginInFlight}, "A login is already in progress."},
		{ErrLoginRateLimited, "Too many failed logins. Try again later."},
		{errors.New("boom"), "Login Failed."},
	}
	for _, tt := range tests {
		if got := UserMessage(tt.err); got != tt.want {
			t.Fatalf("UserMessage(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestStepAndStateNames(t *testing.T) {
	steps := map[Step]string{
		StepInput:         "input",
		StepThrottle:      "throttle",
		StepRequestToken:  "request_token",
		StepValidateLogin: "validate_login",
		StepCreateSession: "create_session",
		StepResolveUser:   "resolve_user",
		StepPersist:       "persist",
		StepLogout:        "logout",
	}
	for step, want := range steps {
		if step.String() != want {
			t.Fatalf("Step(%d).String() = %q, want %q", step, step.String(), want)
		}
	}

	states := map[AuthState]string{
		StateIdle:           "idle",
		StateRequesting:     "requesting",
		StateValidating:     "validating",
		StateSessionPending: "session_pending",
		StateResolvingUser:  "resolving_user",
		StateComplete:       "complete",
		StateFailed:         "failed",
	}
	for state, want := range states {
		if state.String() != want {
			t.Fatalf("AuthState(%d).String() = %q, want %q", state, state.String(), want)
		}
	}
}

func TestStepErrorFormat(t *testing.T) {
	err := &StepError{Step: StepCreateSession, Err: ErrEmptyBody}
	if err.Error() != "create_session: "+ErrEmptyBody.Error() {
		t.Fatalf("unexpected error text %q", err.Error())
	}
	if !errors.Is(err, ErrEmptyBody) {
		t.Fatal("StepError must unwrap")
	}
}
