package main

import (
	"context"
	"fmt"
	"time"

	goTMDB "github.com/MrEthical07/goTMDB"
	"github.com/MrEthical07/goTMDB/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/cenkalti/backoff"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// backend is an opened session store plus what it needs to shut down.
type backend struct {
	redis    redis.UniversalClient
	store    goTMDB.SessionStore
	postgres *session.PostgresStore
	closers  []func()
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// openBackend connects the configured store, retrying with exponential
// backoff until connect_timeout.
func (a *app) openBackend(ctx context.Context, logger *zap.Logger) (*backend, error) {
	kind := a.v.GetString("store")
	b := &backend{}

	switch kind {
	case "memory":
		mr, err := miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("start in-memory store: %w", err)
		}
		b.closers = append(b.closers, mr.Close)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		b.closers = append(b.closers, func() { _ = client.Close() })
		b.redis = client
		logger.Info("using in-memory session store; sessions end with the process")

	case "redis":
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{a.v.GetString("redis_addr")},
			Password: a.v.GetString("redis_password"),
			DB:       a.v.GetInt("redis_db"),
		})
		b.closers = append(b.closers, func() { _ = client.Close() })
		err := a.retry(ctx, logger, "redis", func() error {
			return client.Ping(ctx).Err()
		})
		if err != nil {
			b.Close()
			return nil, err
		}
		b.redis = client

	case "postgres":
		dsn := a.v.GetString("postgres_dsn")
		if dsn == "" {
			return nil, fmt.Errorf("postgres store needs --postgres-dsn or GOTMDB_POSTGRES_DSN")
		}
		var pool *pgxpool.Pool
		err := a.retry(ctx, logger, "postgres", func() error {
			p, err := pgxpool.New(ctx, dsn)
			if err != nil {
				return err
			}
			if err := p.Ping(ctx); err != nil {
				p.Close()
				return err
			}
			pool = p
			return nil
		})
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, pool.Close)
		pg := session.NewPostgresStore(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			b.Close()
			return nil, err
		}
		b.postgres = pg
		b.store = pg

	default:
		return nil, fmt.Errorf("unknown store %q: want memory, redis or postgres", kind)
	}

	return b, nil
}

func (a *app) retry(ctx context.Context, logger *zap.Logger, what string, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = a.connectTimeout()

	err := backoff.RetryNotify(op, backoff.WithContext(bo, ctx), func(err error, wait time.Duration) {
		logger.Warn("store not reachable, retrying",
			zap.String("store", what),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	})
	if err != nil {
		return fmt.Errorf("connect %s: %w", what, err)
	}
	return nil
}

// newEngine opens the backend and builds an engine on it.
func (a *app) newEngine(ctx context.Context) (*goTMDB.Engine, *backend, *zap.Logger, error) {
	cfg, err := a.engineConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := a.newLogger()
	if err != nil {
		return nil, nil, nil, err
	}

	b, err := a.openBackend(ctx, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, nil, err
	}

	builder := goTMDB.New().WithConfig(cfg).WithLogger(logger)
	if b.redis != nil {
		builder.WithRedis(b.redis)
	}
	if b.store != nil {
		builder.WithSessionStore(b.store)
	}
	if cfg.Audit.Enabled {
		builder.WithAuditSink(goTMDB.NewZapSink(logger.Named("audit")))
	}

	engine, err := builder.Build()
	if err != nil {
		b.Close()
		_ = logger.Sync()
		return nil, nil, nil, err
	}
	return engine, b, logger, nil
}
