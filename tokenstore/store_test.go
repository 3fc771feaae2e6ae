package tokenstore

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestAgeOf(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		token    func(t *testing.T) string
		storedAt time.Time
		expected time.Duration
	}{
		{
			name:     "opaque token uses stored time",
			token:    func(*testing.T) string { return "opaque-session" },
			storedAt: now.Add(-90 * time.Minute),
			expected: 90 * time.Minute,
		},
		{
			name: "jwt iat wins over stored time",
			token: func(t *testing.T) string {
				return signedToken(t, jwt.MapClaims{"iat": now.Add(-2 * time.Hour).Unix()})
			},
			storedAt: now.Add(-time.Minute),
			expected: 2 * time.Hour,
		},
		{
			name:     "jwt without iat falls back",
			token:    func(t *testing.T) string { return signedToken(t, jwt.MapClaims{"sub": "u1"}) },
			storedAt: now.Add(-5 * time.Minute),
			expected: 5 * time.Minute,
		},
		{
			name:     "future stamp clamps to zero",
			token:    func(*testing.T) string { return "opaque" },
			storedAt: now.Add(time.Minute),
			expected: 0,
		},
		{
			name:     "no stamp is zero",
			token:    func(*testing.T) string { return "opaque" },
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AgeOf(tt.token(t), tt.storedAt, now))
		})
	}
}

func TestWithClockIgnoresNil(t *testing.T) {
	o := buildOptions([]Option{WithClock(nil)})
	require.NotNil(t, o.now)
}
