package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "session-token-0123456789"

// testEnv points the CLI at baseURL with a file store under a temp dir
func testEnv(t *testing.T, baseURL string) string {
	t.Helper()
	tokenFile := filepath.Join(t.TempDir(), "session.json")
	t.Setenv("AUTHCLIENT_CLIENT_BASE_URL", baseURL)
	t.Setenv("AUTHCLIENT_TOKEN_STORE", "file")
	t.Setenv("AUTHCLIENT_TOKEN_FILE", tokenFile)
	t.Setenv("AUTHCLIENT_LOG_LEVEL", "disabled")
	return tokenFile
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand("test")
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// staleJWT returns a token whose iat claim is two hours old
func staleJWT(t *testing.T) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "device-1",
		"iat": time.Now().Add(-2 * time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

// echoServer answers with the method, path, query and selected headers it received
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"method":        r.Method,
			"path":          r.URL.Path,
			"query":         r.URL.RawQuery,
			"authorization": r.Header.Get("Authorization"),
			"tenant":        r.Header.Get("X-Tenant"),
			"contentType":   r.Header.Get("Content-Type"),
			"body":          string(body),
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func decodeOutput(t *testing.T, out string) map[string]any {
	t.Helper()
	var v map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	return v
}

func TestTokenLifecycle(t *testing.T) {
	tokenFile := testEnv(t, "https://api.example.com")

	out, err := runCommand(t, "token", "show")
	require.NoError(t, err)
	assert.Equal(t, "no token stored\n", out)

	out, err = runCommand(t, "token", "set", testToken)
	require.NoError(t, err)
	assert.Equal(t, "token stored\n", out)
	assert.FileExists(t, tokenFile)

	out, err = runCommand(t, "token", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "token: sess...6789")
	assert.Contains(t, out, "(fresh)")
	assert.NotContains(t, out, testToken)

	out, err = runCommand(t, "token", "show", "--reveal")
	require.NoError(t, err)
	assert.Contains(t, out, "token: "+testToken)

	out, err = runCommand(t, "token", "clear")
	require.NoError(t, err)
	assert.Equal(t, "token removed\n", out)

	out, err = runCommand(t, "token", "show")
	require.NoError(t, err)
	assert.Equal(t, "no token stored\n", out)
}

func TestTokenShowStale(t *testing.T) {
	testEnv(t, "https://api.example.com")

	_, err := runCommand(t, "token", "set", staleJWT(t))
	require.NoError(t, err)

	out, err := runCommand(t, "token", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "stale, renewed on next call")
}

func TestTokenCommandsWithoutStore(t *testing.T) {
	testEnv(t, "https://api.example.com")
	t.Setenv("AUTHCLIENT_TOKEN_STORE", "none")

	_, err := runCommand(t, "token", "set", testToken)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no token store configured")
}

func TestSendGet(t *testing.T) {
	server := echoServer(t)
	testEnv(t, server.URL)

	_, err := runCommand(t, "token", "set", testToken)
	require.NoError(t, err)

	out, err := runCommand(t, "send", "/devices", "-q", "page=2", "--api-key", "k1")
	require.NoError(t, err)

	got := decodeOutput(t, out)
	assert.Equal(t, "GET", got["method"])
	assert.Equal(t, "/devices", got["path"])
	assert.Equal(t, "apikey=k1&page=2", got["query"])
	assert.Equal(t, "Bearer "+testToken, got["authorization"])
	assert.True(t, strings.HasPrefix(out, "{\n  \""), "JSON output is indented")
}

func TestSendPostJSON(t *testing.T) {
	server := echoServer(t)
	testEnv(t, server.URL)

	out, err := runCommand(t, "send", "/devices", "-X", "post", "-d", `{"name":"probe"}`, "-H", "X-Tenant: acme")
	require.NoError(t, err)

	got := decodeOutput(t, out)
	assert.Equal(t, "POST", got["method"])
	assert.Equal(t, "acme", got["tenant"])
	assert.Equal(t, "application/json", got["contentType"])
	assert.Equal(t, `{"name":"probe"}`, got["body"])
	assert.Empty(t, got["authorization"], "no token stored means an anonymous call")
}

func TestSendRequestFile(t *testing.T) {
	server := echoServer(t)
	testEnv(t, server.URL)

	requestFile := filepath.Join(t.TempDir(), "request.yaml")
	require.NoError(t, os.WriteFile(requestFile, []byte(`
method: PUT
uri: /devices/7
headers:
  X-Tenant: from-file
qs:
  verbose: "1"
body:
  name: renamed
  tags: [a, b]
`), 0o600))

	out, err := runCommand(t, "send", "-f", requestFile, "-H", "X-Tenant: from-flag")
	require.NoError(t, err)

	got := decodeOutput(t, out)
	assert.Equal(t, "PUT", got["method"])
	assert.Equal(t, "/devices/7", got["path"])
	assert.Equal(t, "verbose=1", got["query"])
	assert.Equal(t, "from-flag", got["tenant"])
	assert.JSONEq(t, `{"name":"renamed","tags":["a","b"]}`, got["body"].(string))
}

func TestSendRejectsUnsupportedOption(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()
	testEnv(t, server.URL)

	requestFile := filepath.Join(t.TempDir(), "request.yaml")
	require.NoError(t, os.WriteFile(requestFile, []byte("url: /x\nproxy: http://proxy:3128\n"), 0o600))

	_, err := runCommand(t, "send", "-f", requestFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "proxy")
	assert.Zero(t, hits)
}

func TestSendRequestError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":{"text":"device not found"}}`)
	}))
	defer server.Close()
	testEnv(t, server.URL)

	_, err := runCommand(t, "send", "/devices/404")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "device not found")
}

func TestSendExpiredSession(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/whoami" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()
	testEnv(t, server.URL)

	_, err := runCommand(t, "token", "set", staleJWT(t))
	require.NoError(t, err)

	_, err = runCommand(t, "send", "/devices")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session expired")
	assert.Zero(t, calls)

	out, err := runCommand(t, "token", "show")
	require.NoError(t, err)
	assert.Equal(t, "no token stored\n", out)
}

func TestSendRefreshesStaleSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/whoami" {
			_, _ = io.WriteString(w, testToken)
			return
		}
		_, _ = io.WriteString(w, r.Header.Get("Authorization"))
	}))
	defer server.Close()
	testEnv(t, server.URL)

	_, err := runCommand(t, "token", "set", staleJWT(t))
	require.NoError(t, err)

	out, err := runCommand(t, "send", "/devices")
	require.NoError(t, err)
	assert.Equal(t, "Bearer "+testToken+"\n", out)

	out, err = runCommand(t, "token", "show", "--reveal")
	require.NoError(t, err)
	assert.Contains(t, out, testToken)
	assert.Contains(t, out, "(fresh)")
}

func TestSendInclude(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Header().Set("X-Version", "7")
		_, _ = io.WriteString(w, "pong")
	}))
	defer server.Close()
	testEnv(t, server.URL)

	out, err := runCommand(t, "send", "/ping", "-i")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "HTTP 200 OK\n"))
	assert.Contains(t, out, "X-Version: 7\n")
	assert.True(t, strings.HasSuffix(out, "\npong\n"))
}

func TestWhoAmI(t *testing.T) {
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_, _ = io.WriteString(w, "renewed-token-abcdefgh")
	}))
	defer server.Close()
	testEnv(t, server.URL)

	_, err := runCommand(t, "token", "set", testToken)
	require.NoError(t, err)

	out, err := runCommand(t, "whoami", "--save")
	require.NoError(t, err)
	assert.Equal(t, "renewed-token-abcdefgh\n", out)
	assert.Equal(t, "Bearer "+testToken, auth)

	out, err = runCommand(t, "token", "show", "--reveal")
	require.NoError(t, err)
	assert.Contains(t, out, "renewed-token-abcdefgh")
}

func TestDownload(t *testing.T) {
	payload := strings.Repeat("0123456789", 100)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/firmware.bin" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "binary/octet-stream")
		_, _ = io.WriteString(w, payload)
	}))
	defer server.Close()
	testEnv(t, server.URL)

	target := filepath.Join(t.TempDir(), "firmware.bin")
	_, err := runCommand(t, "download", "/firmware.bin", "-o", target)
	require.NoError(t, err)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, payload, string(data))

	out, err := runCommand(t, "download", "/firmware.bin")
	require.NoError(t, err)
	assert.Equal(t, payload, out)

	_, err = runCommand(t, "download", "/missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "The request was unsuccessful")
}

func TestConfigCommand(t *testing.T) {
	testEnv(t, "https://api.example.com")
	t.Setenv("AUTHCLIENT_CLIENT_API_KEY", "super-secret")

	out, err := runCommand(t, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "base_url: https://api.example.com")
	assert.Contains(t, out, "api_key: '***'")
	assert.NotContains(t, out, "super-secret")
}

func TestConfigFileFlag(t *testing.T) {
	testEnv(t, "https://api.example.com")

	_, err := runCommand(t, "config", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestVersionCommand(t *testing.T) {
	out, err := runCommand(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "authclient version test\nBuilt with "+runtime.Version()+" "+runtime.GOOS+"/"+runtime.GOARCH+"\n", out)
}

func TestSendExportsTelemetry(t *testing.T) {
	server := echoServer(t)
	testEnv(t, server.URL)
	t.Setenv("AUTHCLIENT_OBSERVABILITY_ENABLED", "true")

	cmd := NewRootCommand("test")
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"send", "/traced"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	got := decodeOutput(t, out.String())
	assert.Equal(t, "/traced", got["path"])

	telemetry := errOut.String()
	assert.Contains(t, telemetry, `"Name": "GET"`)
	assert.Contains(t, telemetry, "authclient.requests")
}
