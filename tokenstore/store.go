// Package tokenstore holds the session token an authenticated client attaches to its
// calls. Stores are safe for concurrent use by multiple in-flight requests.
package tokenstore

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Store is the token store collaborator used by the client.
type Store interface {
	// Get returns the current token or ErrNotFound.
	Get(ctx context.Context) (string, error)
	// Set replaces the current token and resets its age.
	Set(ctx context.Context, token string) error
	// Remove clears the token. Removing an absent token is not an error.
	Remove(ctx context.Context) error
	// Age returns the time elapsed since the token was issued or last stored,
	// or ErrNotFound when there is no token.
	Age(ctx context.Context) (time.Duration, error)
}

// Option configures the built-in stores.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the time source used to stamp and age tokens.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// AgeOf computes the age of token at now. When the token is a JWT carrying an
// "iat" claim the issue time wins; opaque tokens are aged from storedAt.
// The signature is not verified: the client only needs the timestamp.
func AgeOf(token string, storedAt, now time.Time) time.Duration {
	issued := storedAt
	if iat, ok := issuedAt(token); ok {
		issued = iat
	}
	if issued.IsZero() {
		return 0
	}
	age := now.Sub(issued)
	if age < 0 {
		return 0
	}
	return age
}

func issuedAt(token string) (time.Time, bool) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	iat, err := parsed.Claims.GetIssuedAt()
	if err != nil || iat == nil {
		return time.Time{}, false
	}
	return iat.Time, true
}

// NowFunc resolves the clock configured by opts, for stores living in other packages.
func NowFunc(opts ...Option) func() time.Time {
	return buildOptions(opts).now
}
