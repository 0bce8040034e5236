package goTMDB

import (
	"crypto/ed25519"
	"crypto/rand"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/MrEthical07/goTMDB/tmdb"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	testUsername = "alice"
	testPassword = "s3cret-pw"
)

// fakeTMDB serves the four handshake endpoints plus session delete. Tests
// override single endpoints through handlers.
type fakeTMDB struct {
	t   testing.TB
	srv *httptest.Server

	mu       sync.Mutex
	hits     map[string]int
	handlers map[string]http.HandlerFunc
}

func newFakeTMDB(t testing.TB) *fakeTMDB {
	t.Helper()

	f := &fakeTMDB{
		t:        t,
		hits:     map[string]int{},
		handlers: map[string]http.HandlerFunc{},
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeTMDB) URL() string { return f.srv.URL }

func (f *fakeTMDB) handle(endpoint string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[endpoint] = h
}

func (f *fakeTMDB) respond(endpoint string, status int, body string) {
	f.handle(endpoint, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
}

func (f *fakeTMDB) Hits(endpoint string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[endpoint]
}

func (f *fakeTMDB) TotalHits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, v := range f.hits {
		n += v
	}
	return n
}

func (f *fakeTMDB) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	key := r.URL.Path
	if r.Method == http.MethodDelete {
		key = "DELETE " + key
	}
	f.hits[key]++
	h := f.handlers[key]
	f.mu.Unlock()

	if r.URL.Query().Get("api_key") != "key-1" {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status_code":7,"status_message":"Invalid API key: You must be granted a valid key.","success":false}`))
		return
	}
	if h != nil {
		h(w, r)
		return
	}

	switch key {
	case tmdb.EndpointRequestToken:
		_, _ = w.Write([]byte(`{"success":true,"expires_at":"2026-10-18 12:00:00 UTC","request_token":"tok123"}`))
	case tmdb.EndpointValidateLogin:
		_, _ = w.Write([]byte(`{"success":true,"request_token":"tok123"}`))
	case tmdb.EndpointNewSession:
		_, _ = w.Write([]byte(`{"success":true,"session_id":"sess456"}`))
	case tmdb.EndpointAccount:
		_, _ = w.Write([]byte(`{"id":789,"username":"alice","include_adult":false}`))
	case "DELETE " + tmdb.EndpointDeleteSession:
		_, _ = w.Write([]byte(`{"success":true}`))
	default:
		f.t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func testEngineConfig(baseURL string) Config {
	cfg := DefaultConfig()
	cfg.TMDB.BaseURL = baseURL
	cfg.TMDB.APIKey = "key-1"
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}

func withTicketKey(t testing.TB, cfg Config) Config {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	cfg.Ticket.Enabled = true
	cfg.Ticket.PrivateKey = priv
	return cfg
}

type engineOpts struct {
	cfg    func(*Config)
	logger *zap.Logger
	sink   AuditSink
	states *stateLog
}

type stateLog struct {
	mu     sync.Mutex
	states []AuthState
}

func (l *stateLog) observe(_ string, s AuthState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.states = append(l.states, s)
}

func (l *stateLog) all() []AuthState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]AuthState(nil), l.states...)
}

func buildTestEngine(t testing.TB, fake *fakeTMDB, opts engineOpts) (*Engine, *miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, rdb := newTestRedis(t)
	cfg := testEngineConfig(fake.URL())
	if opts.cfg != nil {
		opts.cfg(&cfg)
	}

	b := New().WithConfig(cfg).WithRedis(rdb)
	if opts.logger != nil {
		b.WithLogger(opts.logger)
	}
	if opts.sink != nil {
		b.WithAuditSink(opts.sink)
	}
	if opts.states != nil {
		b.WithStateObserver(opts.states.observe)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, mr, rdb
}
