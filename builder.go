package goTMDB

import (
	"errors"
	"net/http"

	"github.com/MrEthical07/goTMDB/internal/audit"
	"github.com/MrEthical07/goTMDB/internal/flows"
	"github.com/MrEthical07/goTMDB/internal/rate"
	"github.com/MrEthical07/goTMDB/jwt"
	"github.com/MrEthical07/goTMDB/session"
	"github.com/MrEthical07/goTMDB/tmdb"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles an [Engine]. A Builder can be built once.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	store  SessionStore

	httpClient *http.Client
	logger     *zap.Logger
	auditSink  AuditSink
	observer   StateObserver

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis enables the Redis session store (unless WithSessionStore is also
// used), the failed-login throttle and the in-flight lock.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithSessionStore overrides the store used for completed logins.
func (b *Builder) WithSessionStore(store SessionStore) *Builder {
	b.store = store
	return b
}

// WithHTTPClient overrides the client used for TMDB calls. Its Timeout is
// left as given.
func (b *Builder) WithHTTPClient(hc *http.Client) *Builder {
	b.httpClient = hc
	return b
}

func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithStateObserver registers fn for every attempt state transition. fn runs
// on the login goroutine and must not block.
func (b *Builder) WithStateObserver(fn StateObserver) *Builder {
	b.observer = fn
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("gotmdb")

	// -------- SESSION STORE --------
	store := b.store
	if store == nil {
		if b.redis == nil {
			return nil, errors.New("session store or redis client required")
		}
		store = session.NewRedisStore(b.redis, cfg.Session.RedisPrefix)
	}

	// -------- THROTTLE --------
	if b.redis == nil {
		if cfg.Security.EnableLoginThrottle || cfg.Security.EnableInFlightLock {
			logger.Info("login throttle and in-flight lock disabled: no redis client")
		}
		cfg.Security.EnableLoginThrottle = false
		cfg.Security.EnableInFlightLock = false
	}

	// -------- TMDB CLIENT --------
	hc := b.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.TMDB.Timeout}
	}
	client, err := tmdb.NewClient(tmdb.Config{
		BaseURL:    cfg.TMDB.BaseURL,
		APIKey:     cfg.TMDB.APIKey,
		HTTPClient: hc,
		UserAgent:  cfg.TMDB.UserAgent,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:   cloneConfig(cfg),
		client:   client,
		store:    store,
		logger:   logger,
		observer: b.observer,
		metrics:  NewMetrics(cfg.Metrics),
		audit: audit.NewDispatcher(audit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
	}

	if b.redis != nil {
		engine.limiter = rate.New(b.redis, rate.Config{
			MaxLoginAttempts:      cfg.Security.MaxLoginAttempts,
			LoginCooldownDuration: cfg.Security.LoginCooldownDuration,
			InFlightTTL:           cfg.Security.InFlightTTL,
		})
	}

	// -------- TICKETS --------
	if cfg.Ticket.Enabled {
		tm, err := jwt.NewManager(jwt.Config{
			TTL:           cfg.Ticket.TTL,
			SigningMethod: jwt.SigningMethod(cfg.Ticket.SigningMethod),
			PrivateKey:    cloneBytes(cfg.Ticket.PrivateKey),
			PublicKey:     cloneBytes(cfg.Ticket.PublicKey),
			Issuer:        cfg.Ticket.Issuer,
			Audience:      cfg.Ticket.Audience,
			Leeway:        cfg.Ticket.Leeway,
			KeyID:         cfg.Ticket.KeyID,
			VerifyKeys:    cfg.Ticket.VerifyKeys,
		})
		if err != nil {
			engine.audit.Close()
			return nil, err
		}
		engine.tickets = tm
	}

	engine.flows = flows.New(engine.buildFlowDeps())

	b.built = true

	return engine, nil
}
