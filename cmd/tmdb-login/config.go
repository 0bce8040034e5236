package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	goTMDB "github.com/MrEthical07/goTMDB"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// engineConfig maps viper keys onto goTMDB.Config. Unset keys keep the
// library defaults.
func (a *app) engineConfig() (goTMDB.Config, error) {
	cfg := goTMDB.DefaultConfig()
	v := a.v

	cfg.TMDB.APIKey = v.GetString("api_key")
	if cfg.TMDB.APIKey == "" {
		return cfg, errors.New("api key required: set --api-key or GOTMDB_API_KEY")
	}
	if s := v.GetString("base_url"); s != "" {
		cfg.TMDB.BaseURL = s
	}
	if d := v.GetDuration("timeout"); d > 0 {
		cfg.TMDB.Timeout = d
		if cfg.Security.InFlightTTL < d {
			cfg.Security.InFlightTTL = 4 * d
		}
	}
	cfg.TMDB.UserAgent = "tmdb-login"

	if d := v.GetDuration("session_ttl"); d > 0 {
		cfg.Session.TTL = d
	}
	if p := v.GetString("redis_prefix"); p != "" {
		cfg.Session.RedisPrefix = p
	}

	if v.IsSet("max_attempts") {
		cfg.Security.MaxLoginAttempts = v.GetInt("max_attempts")
	}
	if d := v.GetDuration("cooldown"); d > 0 {
		cfg.Security.LoginCooldownDuration = d
	}

	if secret := v.GetString("ticket_secret"); secret != "" {
		cfg.Ticket.Enabled = true
		cfg.Ticket.SigningMethod = "hs256"
		cfg.Ticket.PrivateKey = []byte(secret)
	}

	cfg.Audit.Enabled = v.GetBool("audit")

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (a *app) connectTimeout() time.Duration {
	if d := a.v.GetDuration("connect_timeout"); d > 0 {
		return d
	}
	return 30 * time.Second
}

// newLogger builds the process logger from log_level and log_format.
func (a *app) newLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(a.v.GetString("log_level"))
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	switch strings.ToLower(a.v.GetString("log_format")) {
	case "", "console":
		cfg.Encoding = "console"
	case "json":
		cfg.Encoding = "json"
	default:
		return nil, fmt.Errorf("log format %q: want console or json", a.v.GetString("log_format"))
	}
	return cfg.Build()
}
