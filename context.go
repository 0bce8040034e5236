package goTMDB

import "context"

type clientIPContextKey struct{}
type attemptIDContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. It is copied into
// audit events.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithAttemptID makes the next login on ctx use id instead of a generated
// one. Useful to correlate with an upstream request id. id must be a UUID;
// anything else is ignored and a fresh id is generated.
func WithAttemptID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, attemptIDContextKey{}, id)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func attemptIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(attemptIDContextKey{}).(string)
	return id
}
