package internal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"

	"github.com/google/uuid"
)

const handleSize = 16

// NewHandle returns a random base64url session handle (16 bytes, no padding).
func NewHandle() (string, error) {
	var raw [handleSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// ValidHandle reports whether h has the shape NewHandle produces.
func ValidHandle(h string) bool {
	raw, err := base64.RawURLEncoding.DecodeString(h)
	return err == nil && len(raw) == handleSize
}

// NewAttemptID returns a correlation id for one login attempt.
func NewAttemptID() string {
	return uuid.NewString()
}

// ParseAttemptID normalizes a caller-supplied attempt id.
func ParseAttemptID(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", errors.New("invalid attempt id")
	}
	return parsed.String(), nil
}
