package httpclient

import (
	nethttp "net/http"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/gaborage/authclient/logger"
	"github.com/gaborage/authclient/tokenstore"
)

// Builder assembles a Client step by step
type Builder struct {
	config *Config
	logger logger.Logger
}

// NewBuilder creates a builder with default settings
func NewBuilder(log logger.Logger) *Builder {
	return &Builder{
		config: &Config{
			Timeout:            DefaultTimeout,
			RefreshInterval:    DefaultRefreshInterval,
			WhoAmIPath:         DefaultWhoAmIPath,
			MaxPayloadLogBytes: DefaultMaxPayloadLogBytes,
			DefaultHeaders:     make(map[string]string),
		},
		logger: log,
	}
}

// WithConfig replaces every setting with cfg
func (b *Builder) WithConfig(cfg *Config) *Builder {
	if cfg != nil {
		copied := *cfg
		b.config = &copied
	}
	return b
}

// WithBaseURL sets the base URL for relative descriptor URLs
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.BaseURL = baseURL
	return b
}

// WithTimeout sets the per-attempt timeout
func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	b.config.Timeout = timeout
	return b
}

// WithRetries sets the default retry count and the initial delay between retries
func (b *Builder) WithRetries(maxRetries int, delay time.Duration) *Builder {
	b.config.MaxRetries = maxRetries
	b.config.RetryDelay = delay
	return b
}

// WithTokenStore enables authentication through store
func (b *Builder) WithTokenStore(store tokenstore.Store) *Builder {
	b.config.TokenStore = store
	return b
}

// WithRefreshInterval sets the token age that triggers a refresh
func (b *Builder) WithRefreshInterval(interval time.Duration) *Builder {
	b.config.RefreshInterval = interval
	return b
}

// WithWhoAmIPath sets the token refresh endpoint
func (b *Builder) WithWhoAmIPath(path string) *Builder {
	b.config.WhoAmIPath = path
	return b
}

// WithAPIKey sets the api key appended to calls that carry none
func (b *Builder) WithAPIKey(apiKey string) *Builder {
	b.config.APIKey = apiKey
	return b
}

// WithDebug enables error-level logging of every failed call
func (b *Builder) WithDebug(debug bool) *Builder {
	b.config.Debug = debug
	return b
}

// WithPayloadLogging enables debug logging of headers and body previews
func (b *Builder) WithPayloadLogging(maxBytes int) *Builder {
	b.config.LogPayloads = true
	b.config.MaxPayloadLogBytes = maxBytes
	return b
}

// WithDefaultHeader adds a header sent on every call
func (b *Builder) WithDefaultHeader(key, value string) *Builder {
	if b.config.DefaultHeaders == nil {
		b.config.DefaultHeaders = make(map[string]string)
	}
	b.config.DefaultHeaders[key] = value
	return b
}

// WithRequestID configures the correlation header and ID generator
func (b *Builder) WithRequestID(header string, generator func() string) *Builder {
	b.config.RequestIDHeader = header
	b.config.NewRequestID = generator
	return b
}

// WithRateLimit caps attempts per second
func (b *Builder) WithRateLimit(perSecond float64, burst int) *Builder {
	b.config.RateLimit = perSecond
	b.config.RateBurst = burst
	return b
}

// WithTransport sets the round tripper performing the exchanges
func (b *Builder) WithTransport(transport nethttp.RoundTripper) *Builder {
	b.config.Transport = transport
	return b
}

// WithCapabilities restricts the operations the client offers
func (b *Builder) WithCapabilities(caps Capabilities) *Builder {
	b.config.Capabilities = &caps
	return b
}

// WithMeterProvider sets the metrics provider
func (b *Builder) WithMeterProvider(mp metric.MeterProvider) *Builder {
	b.config.MeterProvider = mp
	return b
}

// WithTracing sets the tracer provider and the propagator for outbound headers
func (b *Builder) WithTracing(tp oteltrace.TracerProvider, propagator propagation.TextMapPropagator) *Builder {
	b.config.TracerProvider = tp
	b.config.Propagator = propagator
	return b
}

// WithRequestInterceptor adds a request interceptor
func (b *Builder) WithRequestInterceptor(interceptor RequestInterceptor) *Builder {
	b.config.RequestInterceptors = append(b.config.RequestInterceptors, interceptor)
	return b
}

// WithResponseInterceptor adds a response interceptor
func (b *Builder) WithResponseInterceptor(interceptor ResponseInterceptor) *Builder {
	b.config.ResponseInterceptors = append(b.config.ResponseInterceptors, interceptor)
	return b
}

// Build creates the client
func (b *Builder) Build() Client {
	return newClient(b.config, b.logger)
}
