package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(level string) (*ZeroLogger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return NewWithOptions(Options{Level: level, Output: buf}), buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}

func TestNewWithOptionsWritesJSON(t *testing.T) {
	log, buf := newBufferLogger("debug")

	log.Info().
		Str("method", "GET").
		Int("status", 200).
		Int64("bytes", 12).
		Bool("retried", false).
		Dur("elapsed", 150*time.Millisecond).
		Msg("request completed")

	entry := decodeLine(t, buf)
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "request completed", entry["message"])
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, float64(200), entry["status"])
	assert.Equal(t, false, entry["retried"])
	assert.Contains(t, entry, "time")
}

func TestLevelFiltering(t *testing.T) {
	log, buf := newBufferLogger("warn")

	log.Info().Msg("dropped")
	log.Debug().Msg("dropped")
	assert.Empty(t, buf.String())

	log.Warn().Msg("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	log, buf := newBufferLogger("not-a-level")

	log.Debug().Msg("dropped")
	assert.Empty(t, buf.String())

	log.Info().Msg("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestStrAndInterfaceAreMasked(t *testing.T) {
	log, buf := newBufferLogger("info")

	log.Error().
		Str("authorization", "Bearer abc").
		Interface("headers", map[string]string{"Authorization": "Bearer abc", "Accept": "*/*"}).
		Err(errors.New("boom")).
		Msg("request failed")

	entry := decodeLine(t, buf)
	assert.Equal(t, DefaultMaskValue, entry["authorization"])
	headers := entry["headers"].(map[string]any)
	assert.Equal(t, DefaultMaskValue, headers["Authorization"])
	assert.Equal(t, "*/*", headers["Accept"])
	assert.Equal(t, "boom", entry["error"])
	assert.NotContains(t, buf.String(), "Bearer abc")
}

func TestWithFieldsMasksAndPropagates(t *testing.T) {
	log, buf := newBufferLogger("info")

	child := log.WithFields(map[string]any{"component": "httpclient", "token": "t0k"})
	child.Info().Msgf("hello %s", "world")

	entry := decodeLine(t, buf)
	assert.Equal(t, "httpclient", entry["component"])
	assert.Equal(t, DefaultMaskValue, entry["token"])
	assert.Equal(t, "hello world", entry["message"])
}

func TestNopLoggerIsSilent(t *testing.T) {
	log := NewNop()
	assert.NotPanics(t, func() {
		log.Info().Str("a", "b").Msg("nothing")
		log.Error().Err(errors.New("x")).Msg("nothing")
		log.WithFields(map[string]any{"k": "v"}).Warn().Msg("nothing")
	})
}
