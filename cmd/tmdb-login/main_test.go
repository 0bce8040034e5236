package main

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	goTMDB "github.com/MrEthical07/goTMDB"
	"github.com/MrEthical07/goTMDB/tmdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeTMDB(t *testing.T, validate string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case tmdb.EndpointRequestToken:
			_, _ = w.Write([]byte(`{"success":true,"request_token":"tok123"}`))
		case tmdb.EndpointValidateLogin:
			_, _ = w.Write([]byte(validate))
		case tmdb.EndpointNewSession:
			_, _ = w.Write([]byte(`{"success":true,"session_id":"sess456"}`))
		case tmdb.EndpointAccount:
			_, _ = w.Write([]byte(`{"id":789,"username":"alice"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(strings.NewReader(stdin), &out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestLoginCommandStoresHandle(t *testing.T) {
	srv := fakeTMDB(t, `{"success":true,"request_token":"tok123"}`)
	handleFile := filepath.Join(t.TempDir(), "handle")

	t.Setenv("GOTMDB_API_KEY", "key-1")
	out, err := run(t, "alice\ns3cret\n",
		"login", "--base-url", srv.URL, "--handle-file", handleFile)
	require.NoError(t, err)

	assert.Contains(t, out, "Username: ")
	assert.Contains(t, out, "Password: ")
	assert.Contains(t, out, "Logged in as alice (account 789)")
	assert.NotContains(t, out, "s3cret")
	assert.NotContains(t, out, "sess456")

	data, err := os.ReadFile(handleFile)
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(string(data)))
}

func TestLoginCommandUsernameFlagAndTicket(t *testing.T) {
	srv := fakeTMDB(t, `{"success":true,"request_token":"tok123"}`)

	t.Setenv("GOTMDB_API_KEY", "key-1")
	t.Setenv("GOTMDB_TICKET_SECRET", strings.Repeat("k", 32))
	out, err := run(t, "s3cret\n",
		"login", "-u", "alice", "--base-url", srv.URL, "--handle-file", "")
	require.NoError(t, err)

	assert.NotContains(t, out, "Username: ")
	assert.Contains(t, out, "Ticket: ")
	assert.Contains(t, out, "Handle: ")
}

func TestLoginCommandFailure(t *testing.T) {
	srv := fakeTMDB(t, `{"success":false}`)
	handleFile := filepath.Join(t.TempDir(), "handle")

	t.Setenv("GOTMDB_API_KEY", "key-1")
	out, err := run(t, "alice\nwrong\n",
		"login", "--base-url", srv.URL, "--handle-file", handleFile)
	assert.ErrorIs(t, err, errLoginFailed)
	assert.Contains(t, out, "Login Failed (Login Step).")

	_, statErr := os.Stat(handleFile)
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "no handle file after a failed login")
}

func TestLoginCommandEmptyPassword(t *testing.T) {
	srv := fakeTMDB(t, `{"success":true}`)
	t.Setenv("GOTMDB_API_KEY", "key-1")

	out, err := run(t, "alice\n\n", "login", "--base-url", srv.URL, "--handle-file", "")
	assert.ErrorIs(t, err, errLoginFailed)
	assert.Contains(t, out, "Username or Password Empty.")
}

func TestMissingAPIKey(t *testing.T) {
	t.Setenv("GOTMDB_API_KEY", "")
	_, err := run(t, "", "login", "--handle-file", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key required")
}

func TestUnknownStore(t *testing.T) {
	t.Setenv("GOTMDB_API_KEY", "key-1")
	_, err := run(t, "", "login", "--store", "etcd", "--handle-file", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store")
}

func TestLogoutWithoutHandle(t *testing.T) {
	t.Setenv("GOTMDB_API_KEY", "key-1")
	_, err := run(t, "", "logout", "--handle-file", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not logged in")
}

func TestLogoutUnknownSession(t *testing.T) {
	srv := fakeTMDB(t, `{"success":true}`)
	t.Setenv("GOTMDB_API_KEY", "key-1")

	out, err := run(t, "", "logout", "--base-url", srv.URL, "--handle", "AAAA")
	require.NoError(t, err)
	assert.Contains(t, out, "No stored session.")
}

func TestPurgeNeedsPostgres(t *testing.T) {
	_, err := run(t, "", "purge")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--store postgres")
}

func TestEngineConfigFromEnvAndFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "gotmdb.yaml")
	require.NoError(t, os.WriteFile(file, []byte("api_key: from-file\nsession_ttl: 2h\nmax_attempts: 9\n"), 0o600))

	t.Setenv("GOTMDB_API_KEY", "")
	t.Setenv("GOTMDB_COOLDOWN", "1m")

	var out bytes.Buffer
	a := newApp(strings.NewReader(""), &out)
	root := a.rootCmd()
	require.NoError(t, root.ParseFlags([]string{"--config", file, "--timeout", "5s"}))
	require.NoError(t, a.readConfigFile())

	cfg, err := a.engineConfig()
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.TMDB.APIKey)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 9, cfg.Security.MaxLoginAttempts)
	assert.Equal(t, time.Minute, cfg.Security.LoginCooldownDuration)
	assert.Equal(t, 5*time.Second, cfg.TMDB.Timeout)
	assert.False(t, cfg.Ticket.Enabled)
}

func TestTerminalPresenter(t *testing.T) {
	var out bytes.Buffer
	p := newTerminalPresenter(strings.NewReader("bob\npw\n"), &out, "")

	u, pw := p.Credentials()
	assert.Equal(t, "bob", u)
	assert.Equal(t, "pw", pw)

	p.SetInputEnabled(false)
	p.ShowMessage("")
	p.ShowMessage("Login Failed (Request Token).")
	p.OnLoginSucceeded(&goTMDB.Session{Username: "bob", UserID: 1})

	assert.Equal(t, "Username: Password: Logging in...\nLogin Failed (Request Token).\nLogged in as bob (account 1)\n", out.String())
}
