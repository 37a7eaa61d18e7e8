package membercache

import (
	"context"
)

type sessionContextKey struct{}

// WithSession attaches a session token to the context for store access.
// Stores that authenticate per request read it back with SessionFromContext;
// the cache itself never inspects the token.
func WithSession(ctx context.Context, token string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionContextKey{}, token)
}

// SessionFromContext returns the session token attached with WithSession,
// or "" when none is set.
func SessionFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if token, ok := ctx.Value(sessionContextKey{}).(string); ok {
		return token
	}
	return ""
}
