package httpclient

import (
	"context"
	"io"
	nethttp "net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/gaborage/authclient/tokenstore"
	"github.com/gaborage/authclient/trace"
)

const (
	// HeaderXRequestID is the standard header name for request correlation
	HeaderXRequestID = trace.HeaderXRequestID
	// HeaderAuthorization carries the bearer token
	HeaderAuthorization = "Authorization"
	// HeaderAcceptEncoding is defaulted to DefaultAcceptEncoding
	HeaderAcceptEncoding = "Accept-Encoding"
	// HeaderContentType selects body encoding and decoding
	HeaderContentType = "Content-Type"

	// DefaultAcceptEncoding is sent when the caller sets no Accept-Encoding
	DefaultAcceptEncoding = "compress, gzip"
	// DefaultTimeout bounds each attempt when neither call nor config sets one
	DefaultTimeout = 30 * time.Second
	// DefaultRefreshInterval is the token age that triggers a refresh
	DefaultRefreshInterval = time.Hour
	// DefaultWhoAmIPath is the endpoint used to refresh the session token
	DefaultWhoAmIPath = "/whoami"
	// DefaultMaxPayloadLogBytes caps logged body previews
	DefaultMaxPayloadLogBytes = 1024
)

// Client performs authenticated HTTP calls
type Client interface {
	// Send performs the call and decodes the response body. Responses with
	// status >= 400 fail with a RequestError.
	Send(ctx context.Context, d *Descriptor) (*Response, error)
	// Stream performs the call and hands the undecoded body to the caller, who
	// must close it. Fails with NotImplementedError when streaming is unavailable.
	Stream(ctx context.Context, d *Descriptor) (*Download, error)
}

// Descriptor describes one call. Nil pointer fields take their defaults:
// JSON true, RefreshToken true, FollowRedirect true, Gzip true and Retries
// from Config.MaxRetries. The client never mutates a Descriptor.
type Descriptor struct {
	Method         string
	URL            string
	BaseURL        string
	QueryParams    url.Values
	Headers        map[string]string
	Body           any
	JSON           *bool
	Timeout        time.Duration
	Retries        *int
	APIKey         string
	RefreshToken   *bool
	FollowRedirect *bool
	Gzip           *bool
	// StrictSSL may only be left unset or set to true
	StrictSSL *bool
	// Extra holds option-bag entries without a field of their own
	Extra map[string]any
}

// Bool returns a pointer to v, for the optional Descriptor flags
func Bool(v bool) *bool { return &v }

// Int returns a pointer to v, for Descriptor.Retries
func Int(v int) *int { return &v }

// Response represents a completed call with its decoded body
type Response struct {
	StatusCode int
	Headers    nethttp.Header
	// Body is []byte for binary/octet-stream, the decoded JSON value for
	// application/json and a string otherwise
	Body    any
	Raw     []byte
	Stats   Stats
	Request RequestEcho
}

// Stats contains request execution statistics
type Stats struct {
	// ElapsedTime is the duration of the attempt that produced the response
	ElapsedTime time.Duration
	// Attempts counts transport invocations, including the successful one
	Attempts int
}

// RequestEcho is the request as it was actually sent
type RequestEcho struct {
	Method  string
	Headers nethttp.Header
	URL     *url.URL
}

// Download is a streamed response body
type Download struct {
	Body          io.ReadCloser
	MIME          string
	StatusCode    int
	Headers       nethttp.Header
	// ContentLength is the length of Body, or -1 when unknown or decompressed
	ContentLength int64
	Stats         Stats
	Request       RequestEcho
}

// Close releases the underlying connection
func (d *Download) Close() error {
	if d == nil || d.Body == nil {
		return nil
	}
	return d.Body.Close()
}

// RequestInterceptor is called before every attempt is sent
type RequestInterceptor func(ctx context.Context, req *nethttp.Request) error

// ResponseInterceptor is called after every attempt the transport completes
type ResponseInterceptor func(ctx context.Context, req *nethttp.Request, resp *nethttp.Response) error

// Capabilities is the set of operations the configured transport supports
type Capabilities struct {
	Streaming bool
}

// FullCapabilities enables every operation
func FullCapabilities() *Capabilities {
	return &Capabilities{Streaming: true}
}

// Config holds the client configuration
type Config struct {
	// BaseURL resolves relative descriptor URLs when the descriptor has no BaseURL
	BaseURL string
	// Timeout bounds each attempt (default: 30s)
	Timeout time.Duration
	// MaxRetries is the default number of retries after a transport failure
	MaxRetries int
	// RetryDelay is the initial exponential backoff between retries; zero retries immediately
	RetryDelay time.Duration
	// RefreshInterval is the token age that triggers a refresh (default: 1h)
	RefreshInterval time.Duration
	// WhoAmIPath is the token refresh endpoint (default: /whoami)
	WhoAmIPath string
	// APIKey is appended to calls whose descriptor has none
	APIKey string
	// Debug logs every erroring call at error level before it is returned
	Debug bool
	// LogPayloads enables debug-level logging of headers and body payloads
	LogPayloads bool
	// MaxPayloadLogBytes caps the number of body bytes logged when LogPayloads is enabled
	MaxPayloadLogBytes int
	DefaultHeaders     map[string]string
	// RequestIDHeader configures the header used for request correlation (default: X-Request-ID)
	RequestIDHeader string
	// NewRequestID generates a request ID when the context carries none (default: uuid)
	NewRequestID func() string
	// RateLimit caps attempts per second across the client; zero disables limiting
	RateLimit float64
	// RateBurst is the limiter bucket size (default: 1)
	RateBurst int
	// TokenStore enables authentication; nil means anonymous calls
	TokenStore tokenstore.Store
	// Transport performs the exchanges (default: http.DefaultTransport)
	Transport nethttp.RoundTripper
	// Capabilities restricts the available operations (default: FullCapabilities)
	Capabilities         *Capabilities
	MeterProvider        metric.MeterProvider
	TracerProvider       oteltrace.TracerProvider
	Propagator           propagation.TextMapPropagator
	RequestInterceptors  []RequestInterceptor
	ResponseInterceptors []ResponseInterceptor
}

// WithRequestID adds a request ID to the context for outbound propagation
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return trace.WithRequestID(ctx, requestID)
}

// RequestIDFromContext returns a request ID from context if present
func RequestIDFromContext(ctx context.Context) (string, bool) {
	return trace.RequestIDFromContext(ctx)
}

// NewRequestIDInterceptor creates a request interceptor that stamps the
// context request ID on a custom header, for services that correlate on more
// than one header.
func NewRequestIDInterceptor(header string) RequestInterceptor {
	return func(ctx context.Context, req *nethttp.Request) error {
		trace.InjectRequestID(ctx, req.Header, header)
		return nil
	}
}
