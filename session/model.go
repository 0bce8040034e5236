package session

import "time"

// Session is one persisted login. CreatedAt and ExpiresAt are unix seconds.
type Session struct {
	Handle    string
	SessionID string
	UserID    int64
	Username  string
	CreatedAt int64
	ExpiresAt int64
}

// Expired reports whether the record is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt > 0 && now.Unix() >= s.ExpiresAt
}
