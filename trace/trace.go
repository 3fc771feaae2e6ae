// Package trace carries request correlation identifiers through a context so every
// outbound call, including token refresh sub-requests, can be stamped with one.
package trace

import (
	"context"
	nethttp "net/http"

	"github.com/google/uuid"
)

// contextKey is the type for context keys to avoid collisions
type contextKey string

const (
	requestIDKey contextKey = "request_id"

	// HeaderXRequestID is the standard header name for request correlation
	HeaderXRequestID = "X-Request-ID"
)

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the request ID from context if present
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if id, ok := ctx.Value(requestIDKey).(string); ok && id != "" {
		return id, true
	}
	return "", false
}

// EnsureRequestID returns a context that is guaranteed to carry a request ID, along with the ID.
// An existing ID is reused; otherwise gen (or uuid when gen is nil) produces one.
func EnsureRequestID(ctx context.Context, gen func() string) (context.Context, string) {
	if id, ok := RequestIDFromContext(ctx); ok {
		return ctx, id
	}
	if gen == nil {
		gen = uuid.NewString
	}
	id := gen()
	return WithRequestID(ctx, id), id
}

// InjectRequestID writes the context request ID into header unless the caller already set one.
// It returns the value that ends up on the header.
func InjectRequestID(ctx context.Context, headers nethttp.Header, header string) string {
	if header == "" {
		header = HeaderXRequestID
	}
	if existing := headers.Get(header); existing != "" {
		return existing
	}
	id, ok := RequestIDFromContext(ctx)
	if !ok {
		return ""
	}
	headers.Set(header, id)
	return id
}
