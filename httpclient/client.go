package httpclient

import (
	"context"
	"errors"
	"io"
	nethttp "net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	oteltrace "go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/gaborage/authclient/httpclient/internal/tracking"
	"github.com/gaborage/authclient/logger"
	"github.com/gaborage/authclient/tokenstore"
	"github.com/gaborage/authclient/trace"
)

const tracerName = "github.com/gaborage/authclient/httpclient"

// client implements Client
type client struct {
	config     *Config
	logger     logger.Logger
	tokens     tokenstore.Store
	follow     *nethttp.Client
	noFollow   *nethttp.Client
	limiter    *rate.Limiter
	refreshes  singleflight.Group
	metrics    *tracking.Recorder
	tracer     oteltrace.Tracer
	propagator propagation.TextMapPropagator
}

// NewClient creates a client from cfg. A nil cfg yields an anonymous client
// with default settings; a nil log disables logging.
func NewClient(cfg *Config, log logger.Logger) Client {
	return newClient(cfg, log)
}

func newClient(cfg *Config, log logger.Logger) *client {
	config := applyDefaults(cfg)
	if log == nil {
		log = logger.NewNop()
	}

	tracerProvider := config.TracerProvider
	if tracerProvider == nil {
		tracerProvider = otel.GetTracerProvider()
	}
	propagator := config.Propagator
	if propagator == nil {
		propagator = otel.GetTextMapPropagator()
	}

	c := &client{
		config:     config,
		logger:     log,
		tokens:     config.TokenStore,
		follow:     &nethttp.Client{Transport: config.Transport},
		noFollow:   &nethttp.Client{Transport: config.Transport, CheckRedirect: stopRedirects},
		metrics:    tracking.New(config.MeterProvider),
		tracer:     tracerProvider.Tracer(tracerName),
		propagator: propagator,
	}
	if config.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(config.RateLimit), config.RateBurst)
	}
	return c
}

// applyDefaults returns a copy of cfg with every zero setting defaulted
func applyDefaults(cfg *Config) *Config {
	config := &Config{}
	if cfg != nil {
		*config = *cfg
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.RefreshInterval <= 0 {
		config.RefreshInterval = DefaultRefreshInterval
	}
	if config.WhoAmIPath == "" {
		config.WhoAmIPath = DefaultWhoAmIPath
	}
	if config.MaxPayloadLogBytes <= 0 {
		config.MaxPayloadLogBytes = DefaultMaxPayloadLogBytes
	}
	if config.RequestIDHeader == "" {
		config.RequestIDHeader = HeaderXRequestID
	}
	if config.RateBurst <= 0 {
		config.RateBurst = 1
	}
	if config.Transport == nil {
		config.Transport = nethttp.DefaultTransport
	}
	if config.Capabilities == nil {
		config.Capabilities = FullCapabilities()
	}
	return config
}

func stopRedirects(*nethttp.Request, []*nethttp.Request) error {
	return nethttp.ErrUseLastResponse
}

// Send performs an authenticated call and decodes its response
func (c *client) Send(ctx context.Context, d *Descriptor) (*Response, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}

	ctx, requestID := trace.EnsureRequestID(ctx, c.config.NewRequestID)
	ctx, span := c.startSpan(ctx, "send", d)
	defer span.End()
	start := time.Now()

	resp, err := c.sendAuthenticated(ctx, d, requestID)
	c.finish(ctx, span, d, start, requestID, responseStatus(resp), err)
	return resp, err
}

func (c *client) sendAuthenticated(ctx context.Context, d *Descriptor, requestID string) (*Response, error) {
	if err := c.gate(ctx, d, requestID); err != nil {
		return nil, err
	}
	return c.send(ctx, d, requestID)
}

// send attaches the current token and performs the call. It never refreshes
// the token, which makes it the only entry point for refresh sub-requests.
func (c *client) send(ctx context.Context, d *Descriptor, requestID string) (*Response, error) {
	pr, err := c.prepare(ctx, d)
	if err != nil {
		return nil, err
	}

	ex, err := c.invoke(ctx, pr, requestID, false)
	if err != nil {
		return nil, err
	}

	resp := &Response{
		StatusCode: ex.statusCode,
		Headers:    ex.headers,
		Raw:        ex.body,
		Stats:      ex.stats,
		Request:    ex.echo,
	}
	c.logResponse(resp, requestID)

	if IsErrorStatus(resp.StatusCode) {
		return nil, NewRequestError(errorMessage(ex.body), resp.StatusCode, ex.body)
	}

	resp.Body, err = decodeBody(ex.headers, ex.body)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Stream performs an authenticated call and returns the open response body
func (c *client) Stream(ctx context.Context, d *Descriptor) (*Download, error) {
	if !c.config.Capabilities.Streaming {
		return nil, NewNotImplementedError("stream")
	}
	if err := d.validate(); err != nil {
		return nil, err
	}

	ctx, requestID := trace.EnsureRequestID(ctx, c.config.NewRequestID)
	ctx, span := c.startSpan(ctx, "stream", d)
	defer span.End()
	start := time.Now()

	download, err := c.stream(ctx, d, requestID)
	status := 0
	if download != nil {
		status = download.StatusCode
	}
	c.finish(ctx, span, d, start, requestID, status, err)
	return download, err
}

func (c *client) stream(ctx context.Context, d *Descriptor, requestID string) (*Download, error) {
	if err := c.gate(ctx, d, requestID); err != nil {
		return nil, err
	}

	pr, err := c.prepare(ctx, d)
	if err != nil {
		return nil, err
	}

	ex, err := c.invoke(ctx, pr, requestID, true)
	if err != nil {
		return nil, err
	}
	c.logResponse(&Response{StatusCode: ex.statusCode, Headers: ex.headers, Stats: ex.stats}, requestID)

	if IsErrorStatus(ex.statusCode) {
		data, readErr := io.ReadAll(ex.stream)
		_ = ex.stream.Close()
		message := string(data)
		if readErr != nil || message == "" {
			message = DefaultErrorMessage
		}
		return nil, NewRequestError(message, ex.statusCode, data)
	}

	return &Download{
		Body:          ex.stream,
		MIME:          ex.headers.Get(HeaderContentType),
		StatusCode:    ex.statusCode,
		Headers:       ex.headers,
		ContentLength: ex.contentLength,
		Stats:         ex.stats,
		Request:       ex.echo,
	}, nil
}

// prepare attaches the Authorization header and translates d
func (c *client) prepare(ctx context.Context, d *Descriptor) (*preparedRequest, error) {
	authorization, err := c.authorization(ctx)
	if err != nil {
		return nil, err
	}
	return c.translate(d, authorization)
}

// authorization returns the bearer header value, or "" in anonymous mode
func (c *client) authorization(ctx context.Context) (string, error) {
	if c.tokens == nil {
		return "", nil
	}
	token, err := c.tokens.Get(ctx)
	if errors.Is(err, tokenstore.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return "Bearer " + token, nil
}

func (c *client) startSpan(ctx context.Context, operation string, d *Descriptor) (context.Context, oteltrace.Span) {
	method := methodOf(d)
	return c.tracer.Start(ctx, method,
		oteltrace.WithSpanKind(oteltrace.SpanKindClient),
		oteltrace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("authclient.operation", operation),
		),
	)
}

// finish records metrics, the span outcome and the debug failure line
func (c *client) finish(ctx context.Context, span oteltrace.Span, d *Descriptor, start time.Time, requestID string, status int, err error) {
	elapsed := time.Since(start)
	method := methodOf(d)
	if code, ok := StatusCodeOf(err); ok {
		status = code
	}
	if status > 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", status))
	}

	errType := ""
	if err != nil {
		errType = "error"
		var ce ClientError
		if errors.As(err, &ce) {
			errType = string(ce.Type())
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, errType)
		c.logFailure(method, c.displayURL(d), elapsed, requestID, err)
	}
	c.metrics.RecordRequest(ctx, method, status, elapsed, errType)
}

// displayURL resolves d's URL for logging, falling back to the raw value
func (c *client) displayURL(d *Descriptor) string {
	u, err := resolveURL(firstNonEmpty(d.BaseURL, c.config.BaseURL), d.URL)
	if err != nil {
		return d.URL
	}
	appendQuery(u, d.QueryParams)
	return u.String()
}

func methodOf(d *Descriptor) string {
	if d == nil || d.Method == "" {
		return nethttp.MethodGet
	}
	return strings.ToUpper(d.Method)
}

func responseStatus(resp *Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}
