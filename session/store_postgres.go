package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS tmdb_sessions (
	handle     TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	user_id    BIGINT NOT NULL,
	username   TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
)`

// PostgresStore implements [Store] on a tmdb_sessions table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed session store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates tmdb_sessions when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("%w: %v", ErrPostgresUnavailable, err)
	}
	return nil
}

// Save upserts sess. ttl overrides sess.ExpiresAt.
func (s *PostgresStore) Save(ctx context.Context, sess *Session, ttl time.Duration) error {
	if sess == nil || sess.Handle == "" || sess.SessionID == "" {
		return errors.New("session handle and session id are required")
	}
	if ttl <= 0 {
		return errors.New("session ttl must be > 0")
	}

	createdAt := time.Unix(sess.CreatedAt, 0).UTC()
	if sess.CreatedAt == 0 {
		createdAt = time.Now().UTC()
	}
	expiresAt := createdAt.Add(ttl)

	_, err := s.pool.Exec(ctx, `
		INSERT INTO tmdb_sessions (handle, session_id, user_id, username, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (handle) DO UPDATE SET
			session_id = EXCLUDED.session_id,
			user_id    = EXCLUDED.user_id,
			username   = EXCLUDED.username,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at
	`, sess.Handle, sess.SessionID, sess.UserID, sess.Username, createdAt, expiresAt)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPostgresUnavailable, err)
	}
	return nil
}

// Get loads a live row by handle.
func (s *PostgresStore) Get(ctx context.Context, handle string) (*Session, error) {
	var (
		sess      = Session{Handle: handle}
		createdAt time.Time
		expiresAt time.Time
	)

	err := s.pool.QueryRow(ctx, `
		SELECT session_id, user_id, username, created_at, expires_at
		FROM tmdb_sessions
		WHERE handle = $1 AND expires_at > now()
	`, handle).Scan(
		&sess.SessionID,
		&sess.UserID,
		&sess.Username,
		&createdAt,
		&expiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPostgresUnavailable, err)
	}

	sess.CreatedAt = createdAt.Unix()
	sess.ExpiresAt = expiresAt.Unix()
	return &sess, nil
}

// Delete removes the row for handle and reports whether it existed.
func (s *PostgresStore) Delete(ctx context.Context, handle string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tmdb_sessions WHERE handle = $1`, handle)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrPostgresUnavailable, err)
	}
	return tag.RowsAffected() > 0, nil
}

// PurgeExpired deletes rows past expires_at and returns how many went.
func (s *PostgresStore) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tmdb_sessions WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPostgresUnavailable, err)
	}
	return tag.RowsAffected(), nil
}
