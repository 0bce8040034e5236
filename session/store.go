package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotFound is returned when no live record exists for a handle.
	ErrNotFound = errors.New("session not found")
	// ErrRedisUnavailable wraps go-redis transport failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
	// ErrPostgresUnavailable wraps pgx failures other than no-rows.
	ErrPostgresUnavailable = errors.New("postgres unavailable")
)

// Store persists sessions by handle.
type Store interface {
	Save(ctx context.Context, sess *Session, ttl time.Duration) error
	Get(ctx context.Context, handle string) (*Session, error)
	Delete(ctx context.Context, handle string) (bool, error)
}

// RedisStore keeps one binary record per handle under "<prefix>:s:<handle>".
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisStore creates a Redis-backed [Store].
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "tm"
	}
	return &RedisStore{
		redis:  client,
		prefix: prefix,
	}
}

func (s *RedisStore) key(handle string) string {
	return s.prefix + ":s:" + handle
}

// Save writes sess with ttl. Overwrites an existing record with the same handle.
func (s *RedisStore) Save(ctx context.Context, sess *Session, ttl time.Duration) error {
	if sess == nil || sess.Handle == "" {
		return errors.New("session handle is required")
	}
	if ttl <= 0 {
		return errors.New("session ttl must be > 0")
	}
	data, err := Encode(sess)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, s.key(sess.Handle), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Get loads the record for handle. A missing key returns [ErrNotFound].
func (s *RedisStore) Get(ctx context.Context, handle string) (*Session, error) {
	data, err := s.redis.Get(ctx, s.key(handle)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(handle, data)
	if err != nil {
		return nil, err
	}
	if sess.Expired(time.Now()) {
		_ = s.redis.Del(ctx, s.key(handle)).Err()
		return nil, ErrNotFound
	}
	return sess, nil
}

// Delete removes the record. It reports whether a record existed; deleting a
// missing handle is not an error.
func (s *RedisStore) Delete(ctx context.Context, handle string) (bool, error) {
	n, err := s.redis.Del(ctx, s.key(handle)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n > 0, nil
}

// Ping measures a round trip to Redis.
func (s *RedisStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
