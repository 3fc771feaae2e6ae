package trace

import (
	"context"
	nethttp "net/http"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderConstant(t *testing.T) {
	assert.Equal(t, "X-Request-ID", HeaderXRequestID)
}

func TestRequestIDFromContext_Missing(t *testing.T) {
	_, ok := RequestIDFromContext(context.Background())
	assert.False(t, ok)

	_, ok = RequestIDFromContext(WithRequestID(context.Background(), ""))
	assert.False(t, ok)
}

func TestEnsureRequestID_UsesExisting(t *testing.T) {
	ctx := WithRequestID(context.Background(), "existing-id")
	out, id := EnsureRequestID(ctx, func() string { return "generated" })
	assert.Equal(t, "existing-id", id)
	assert.Equal(t, ctx, out)
}

func TestEnsureRequestID_CustomGenerator(t *testing.T) {
	ctx, id := EnsureRequestID(context.Background(), func() string { return "req-1" })
	assert.Equal(t, "req-1", id)

	stored, ok := RequestIDFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "req-1", stored)
}

func TestEnsureRequestID_DefaultsToUUID(t *testing.T) {
	_, id := EnsureRequestID(context.Background(), nil)
	re := regexp.MustCompile(`^[a-f0-9\-]{36}$`)
	assert.True(t, re.MatchString(id))
}

func TestInjectRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "ctx-id")

	t.Run("fills missing header", func(t *testing.T) {
		h := nethttp.Header{}
		assert.Equal(t, "ctx-id", InjectRequestID(ctx, h, ""))
		assert.Equal(t, "ctx-id", h.Get(HeaderXRequestID))
	})

	t.Run("preserves caller header", func(t *testing.T) {
		h := nethttp.Header{}
		h.Set(HeaderXRequestID, "caller-id")
		assert.Equal(t, "caller-id", InjectRequestID(ctx, h, ""))
		assert.Equal(t, "caller-id", h.Get(HeaderXRequestID))
	})

	t.Run("custom header name", func(t *testing.T) {
		h := nethttp.Header{}
		InjectRequestID(ctx, h, "X-Correlation-ID")
		assert.Equal(t, "ctx-id", h.Get("X-Correlation-ID"))
		assert.Empty(t, h.Get(HeaderXRequestID))
	})

	t.Run("no id in context", func(t *testing.T) {
		h := nethttp.Header{}
		assert.Empty(t, InjectRequestID(context.Background(), h, ""))
		assert.Empty(t, h.Get(HeaderXRequestID))
	})
}
