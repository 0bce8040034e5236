package goTMDB

import (
	"context"
	"sync/atomic"
)

// Presenter is the login screen. The Controller calls it to read input and
// report progress; it never sees tokens or the remote session id beyond the
// *Session passed to OnLoginSucceeded.
type Presenter interface {
	Credentials() (username, password string)
	SetInputEnabled(enabled bool)
	ShowMessage(msg string)
	OnLoginSucceeded(sess *Session)
	OnLoginFailed(err error)
}

// Dispatcher runs fn on the presenter's thread and returns once fn has run.
// The default runs fn inline.
type Dispatcher func(fn func())

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithDispatcher routes every presenter call through d.
func WithDispatcher(d Dispatcher) ControllerOption {
	return func(c *Controller) {
		if d != nil {
			c.dispatch = d
		}
	}
}

type loginRunner interface {
	LoginWithResult(ctx context.Context, creds Credentials) (*LoginResult, error)
}

// Controller binds an Engine to a Presenter and enforces one attempt at a
// time per presenter.
type Controller struct {
	engine    loginRunner
	presenter Presenter
	dispatch  Dispatcher
	inFlight  atomic.Bool
}

func NewController(engine *Engine, presenter Presenter, opts ...ControllerOption) *Controller {
	return newController(engine, presenter, opts...)
}

func newController(engine loginRunner, presenter Presenter, opts ...ControllerOption) *Controller {
	c := &Controller{
		engine:    engine,
		presenter: presenter,
		dispatch:  func(fn func()) { fn() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// InFlight reports whether a Submit is running.
func (c *Controller) InFlight() bool {
	return c.inFlight.Load()
}

// Submit reads the credentials from the presenter and runs one login.
//
// A Submit while another is running returns ErrLoginInFlight without touching
// the presenter. Empty credentials are reported without any network call.
// Otherwise input is disabled for the duration of the attempt, re-enabled
// afterwards, and exactly one of OnLoginSucceeded or OnLoginFailed is called.
func (c *Controller) Submit(ctx context.Context) (*LoginResult, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return nil, ErrLoginInFlight
	}
	defer c.inFlight.Store(false)

	var username, password string
	c.dispatch(func() {
		username, password = c.presenter.Credentials()
	})

	if username == "" || password == "" {
		err := &StepError{Step: StepInput, Err: ErrEmptyCredentials}
		c.dispatch(func() {
			c.presenter.ShowMessage(UserMessage(err))
			c.presenter.OnLoginFailed(err)
		})
		return nil, err
	}

	c.dispatch(func() { c.presenter.SetInputEnabled(false) })

	result, err := c.engine.LoginWithResult(ctx, Credentials{Username: username, Password: password})
	if err != nil {
		c.dispatch(func() {
			c.presenter.SetInputEnabled(true)
			c.presenter.ShowMessage(UserMessage(err))
			c.presenter.OnLoginFailed(err)
		})
		return nil, err
	}

	c.dispatch(func() {
		c.presenter.SetInputEnabled(true)
		c.presenter.ShowMessage("")
		c.presenter.OnLoginSucceeded(result.Session)
	})
	return result, nil
}
