package goTMDB

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/goTMDB/tmdb"
)

// Config holds every engine setting. Build clones it; later changes to the
// caller's copy have no effect.
type Config struct {
	TMDB     TMDBConfig
	Session  SessionConfig
	Security SecurityConfig
	Ticket   TicketConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
TMDB CONFIG
====================================
*/

// TMDBConfig configures the remote API client.
type TMDBConfig struct {
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	UserAgent string
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls local session records.
type SessionConfig struct {
	// TTL is how long a stored session stays valid locally.
	TTL         time.Duration
	RedisPrefix string
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig controls login throttling and the per-user in-flight lock.
// Both need a Redis client.
type SecurityConfig struct {
	EnableLoginThrottle   bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
	EnableInFlightLock    bool
	InFlightTTL           time.Duration
}

/*
====================================
TICKET CONFIG
====================================
*/

// TicketConfig controls handoff tickets.
type TicketConfig struct {
	Enabled       bool
	TTL           time.Duration
	SigningMethod string // "ed25519" (default) or "hs256"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	KeyID         string
	VerifyKeys    map[string][]byte
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process metrics.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration. TMDB.APIKey must still
// be set.
func DefaultConfig() Config {
	return Config{
		TMDB: TMDBConfig{
			BaseURL:   tmdb.DefaultBaseURL,
			Timeout:   tmdb.DefaultTimeout,
			UserAgent: "goTMDB",
		},
		Session: SessionConfig{
			TTL:         24 * time.Hour,
			RedisPrefix: "tm",
		},
		Security: SecurityConfig{
			EnableLoginThrottle:   true,
			MaxLoginAttempts:      5,
			LoginCooldownDuration: 15 * time.Minute,
			EnableInFlightLock:    true,
			InFlightTTL:           2 * time.Minute,
		},
		Ticket: TicketConfig{
			Enabled:       false,
			TTL:           15 * time.Minute,
			SigningMethod: "ed25519",
			Issuer:        "goTMDB",
			Leeway:        5 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Ticket.PrivateKey = cloneBytes(cfg.Ticket.PrivateKey)
	out.Ticket.PublicKey = cloneBytes(cfg.Ticket.PublicKey)
	if cfg.Ticket.VerifyKeys != nil {
		out.Ticket.VerifyKeys = make(map[string][]byte, len(cfg.Ticket.VerifyKeys))
		for kid, key := range cfg.Ticket.VerifyKeys {
			out.Ticket.VerifyKeys[kid] = cloneBytes(key)
		}
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// TMDB
	if strings.TrimSpace(c.TMDB.APIKey) == "" {
		return errors.New("TMDB APIKey is required")
	}
	u, err := url.Parse(c.TMDB.BaseURL)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return errors.New("TMDB BaseURL must be an absolute http(s) URL")
	}
	if c.TMDB.Timeout <= 0 {
		return errors.New("TMDB Timeout must be > 0")
	}

	// Session
	if c.Session.TTL <= 0 {
		return errors.New("Session TTL must be > 0")
	}
	if strings.ContainsAny(c.Session.RedisPrefix, " :") {
		return errors.New("Session RedisPrefix must not contain spaces or colons")
	}

	// Security
	if c.Security.EnableLoginThrottle {
		if c.Security.MaxLoginAttempts <= 0 {
			return errors.New("Security MaxLoginAttempts must be > 0")
		}
		if c.Security.LoginCooldownDuration <= 0 {
			return errors.New("Security LoginCooldownDuration must be > 0")
		}
	}
	if c.Security.EnableInFlightLock && c.Security.InFlightTTL <= 0 {
		return errors.New("Security InFlightTTL must be > 0")
	}
	if c.Security.EnableInFlightLock && c.TMDB.Timeout > 0 && c.Security.InFlightTTL < c.TMDB.Timeout {
		return errors.New("Security InFlightTTL must cover at least one TMDB Timeout")
	}

	// Ticket
	if c.Ticket.Enabled {
		if c.Ticket.TTL <= 0 {
			return errors.New("Ticket TTL must be > 0")
		}
		if c.Ticket.TTL > c.Session.TTL {
			return errors.New("Ticket TTL must not exceed Session TTL")
		}
		if c.Ticket.SigningMethod != "ed25519" && c.Ticket.SigningMethod != "hs256" {
			return errors.New("unsupported Ticket signing method")
		}
		if len(c.Ticket.PrivateKey) == 0 {
			return errors.New("Ticket PrivateKey is required")
		}
		if c.Ticket.Leeway < 0 || c.Ticket.Leeway > 2*time.Minute {
			return errors.New("Ticket Leeway must be between 0 and 2m")
		}
		if c.Ticket.Audience != "" && strings.TrimSpace(c.Ticket.Audience) == "" {
			return errors.New("Ticket Audience must not be blank")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	return nil
}
