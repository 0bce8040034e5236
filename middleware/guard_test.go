package middleware

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	goTMDB "github.com/MrEthical07/goTMDB"
	"github.com/MrEthical07/goTMDB/tmdb"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, tickets bool) *goTMDB.Engine {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case tmdb.EndpointRequestToken, tmdb.EndpointValidateLogin:
			_, _ = w.Write([]byte(`{"success":true,"request_token":"tok123"}`))
		case tmdb.EndpointNewSession:
			_, _ = w.Write([]byte(`{"success":true,"session_id":"sess456"}`))
		case tmdb.EndpointAccount:
			_, _ = w.Write([]byte(`{"id":789,"username":"alice"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := goTMDB.DefaultConfig()
	cfg.TMDB.BaseURL = srv.URL
	cfg.TMDB.APIKey = "key-1"
	if tickets {
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		require.NoError(t, err)
		cfg.Ticket.Enabled = true
		cfg.Ticket.PrivateKey = priv
	}

	engine, err := goTMDB.New().WithConfig(cfg).WithRedis(rdb).Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)
	return engine
}

func echoUser(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := SessionFromContext(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(sess.Username))
	})
}

func TestGuardAcceptsValidTicket(t *testing.T) {
	engine := newTestEngine(t, true)
	res, err := engine.LoginWithResult(context.Background(), goTMDB.Credentials{Username: "alice", Password: "pw"})
	require.NoError(t, err)

	h := Guard(engine)(echoUser(t))

	req := httptest.NewRequest(http.MethodGet, "/home", nil)
	req.Header.Set("Authorization", "Bearer "+res.Ticket)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", rec.Body.String())
}

func TestGuardRejects(t *testing.T) {
	engine := newTestEngine(t, true)
	h := Guard(engine)(echoUser(t))

	for _, header := range []string{"", "Bearer ", "Basic abc", "Bearer not.a.ticket"} {
		req := httptest.NewRequest(http.MethodGet, "/home", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)
	}
}

func TestGuardWithoutTickets(t *testing.T) {
	engine := newTestEngine(t, false)
	h := Guard(engine)(echoUser(t))

	req := httptest.NewRequest(http.MethodGet, "/home", nil)
	req.Header.Set("Authorization", "Bearer x")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRequireSessionCookie(t *testing.T) {
	engine := newTestEngine(t, false)
	sess, err := engine.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)

	h := RequireSessionCookie(engine, "")(echoUser(t))

	req := httptest.NewRequest(http.MethodGet, "/home", nil)
	req.AddCookie(&http.Cookie{Name: DefaultSessionCookie, Value: sess.Handle})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/home", nil)
	req.AddCookie(&http.Cookie{Name: DefaultSessionCookie, Value: "nope"})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/home", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
