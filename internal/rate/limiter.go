package rate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds limiter tuning parameters.
type Config struct {
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
	InFlightTTL           time.Duration
}

// Limiter enforces the failed-login budget and the in-flight lock using Redis.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

const releaseInFlightScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

var releaseInFlightLua = redis.NewScript(releaseInFlightScript)

// New creates a rate [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// CheckLogin returns ErrRateLimited once the username has used up its budget.
func (l *Limiter) CheckLogin(ctx context.Context, username string) error {
	count, err := l.redis.Get(ctx, loginKey(username)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count >= int64(l.config.MaxLoginAttempts) {
		return ErrRateLimited
	}
	return nil
}

// IncrementLogin records a failed login. It returns ErrRateLimited when this
// failure exhausts the budget.
func (l *Limiter) IncrementLogin(ctx context.Context, username string) error {
	count, err := l.redis.Incr(ctx, loginKey(username)).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, loginKey(username), l.config.LoginCooldownDuration).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	if count >= int64(l.config.MaxLoginAttempts) {
		return ErrRateLimited
	}
	return nil
}

// ResetLogin clears the failed-login counter after a successful login.
func (l *Limiter) ResetLogin(ctx context.Context, username string) error {
	if err := l.redis.Del(ctx, loginKey(username)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// GetLoginAttempts returns the failed-login count for username.
func (l *Limiter) GetLoginAttempts(ctx context.Context, username string) (int, error) {
	count, err := l.redis.Get(ctx, loginKey(username)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

// AcquireInFlight takes the username lock for attemptID. It returns ErrInFlight
// when a different attempt already holds it.
func (l *Limiter) AcquireInFlight(ctx context.Context, username, attemptID string) error {
	ok, err := l.redis.SetNX(ctx, inFlightKey(username), attemptID, l.config.InFlightTTL).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if !ok {
		return ErrInFlight
	}
	return nil
}

// ReleaseInFlight drops the username lock if attemptID still owns it.
func (l *Limiter) ReleaseInFlight(ctx context.Context, username, attemptID string) error {
	if err := releaseInFlightLua.Run(ctx, l.redis, []string{inFlightKey(username)}, attemptID).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func loginKey(username string) string {
	return "tl:" + normalize(username)
}

func inFlightKey(username string) string {
	return "tf:" + normalize(username)
}

func normalize(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
