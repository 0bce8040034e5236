package rate

import "errors"

var (
	// ErrRateLimited is returned when the failed-login budget is exhausted.
	ErrRateLimited = errors.New("rate limited")
	// ErrInFlight is returned when another attempt holds the username lock.
	ErrInFlight = errors.New("login already in flight")
	// ErrRedisUnavailable wraps go-redis failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
