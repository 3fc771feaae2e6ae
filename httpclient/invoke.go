package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/klauspost/compress/gzip"
	"go.opentelemetry.io/otel/propagation"

	"github.com/gaborage/authclient/trace"
)

// exchange is the normalized result of one successful transport invocation
type exchange struct {
	statusCode    int
	headers       nethttp.Header
	body          []byte
	stream        io.ReadCloser
	contentLength int64
	stats         Stats
	echo          RequestEcho
}

// invoke performs pr, re-invoking it after transport failures until
// pr.retries is exhausted. HTTP error statuses are results, not failures.
// With stream set the body is left open for the caller.
func (c *client) invoke(ctx context.Context, pr *preparedRequest, requestID string, stream bool) (*exchange, error) {
	attempts := 0
	var fatal error

	operation := func() (*exchange, error) {
		attempts++
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				fatal = NewTransportError(attempts, err)
				return nil, backoff.Permanent(err)
			}
		}

		ex, err := c.roundTrip(ctx, pr, requestID, stream)
		if err != nil && (IsErrorType(err, InterceptorError) || IsErrorType(err, InvalidOptionError)) {
			fatal = err
			return nil, backoff.Permanent(err)
		}
		return ex, err
	}

	ex, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(c.retryBackOff()),
		backoff.WithMaxTries(uint(pr.retries+1)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.metrics.RecordRetry(ctx, pr.method)
			c.logger.Warn().
				Str("method", pr.method).
				Str("url", pr.url.String()).
				Str("request_id", requestID).
				Int("attempt", attempts).
				Dur("retry_in", next).
				Err(err).
				Msg("Transport failure, retrying")
		}),
	)
	if fatal != nil {
		return nil, fatal
	}
	if err != nil {
		return nil, NewTransportError(attempts, err)
	}
	ex.stats.Attempts = attempts
	return ex, nil
}

// retryBackOff re-invokes immediately unless a retry delay is configured
func (c *client) retryBackOff() backoff.BackOff {
	if c.config.RetryDelay <= 0 {
		return &backoff.ZeroBackOff{}
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.config.RetryDelay
	b.MaxInterval = 10 * c.config.RetryDelay
	return b
}

// roundTrip performs a single attempt bounded by pr.timeout
func (c *client) roundTrip(ctx context.Context, pr *preparedRequest, requestID string, stream bool) (*exchange, error) {
	var (
		attemptCtx context.Context
		cancel     context.CancelFunc
	)
	if pr.timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, pr.timeout)
	} else {
		attemptCtx, cancel = context.WithCancel(ctx)
	}

	var body io.Reader = nethttp.NoBody
	if pr.body != nil {
		body = bytes.NewReader(pr.body)
	}
	req, err := nethttp.NewRequestWithContext(attemptCtx, pr.method, pr.url.String(), body)
	if err != nil {
		cancel()
		return nil, NewInvalidOptionError("url", "cannot build request", err)
	}
	req.Header = pr.headers.Clone()
	trace.InjectRequestID(ctx, req.Header, c.config.RequestIDHeader)
	c.propagator.Inject(ctx, propagation.HeaderCarrier(req.Header))

	for _, interceptor := range c.config.RequestInterceptors {
		if err := interceptor(attemptCtx, req); err != nil {
			cancel()
			return nil, NewInterceptorError("request interceptor failed", "request", err)
		}
	}

	c.logRequest(req, pr.body, requestID)

	start := time.Now()
	resp, err := c.httpClient(pr.followRedirect).Do(req)
	if err != nil {
		cancel()
		return nil, transportFailure(ctx, attemptCtx, pr, err)
	}

	for _, interceptor := range c.config.ResponseInterceptors {
		if err := interceptor(attemptCtx, req, resp); err != nil {
			_ = resp.Body.Close()
			cancel()
			return nil, NewInterceptorError("response interceptor failed", "response", err)
		}
	}

	reader, decompressed, err := responseReader(resp, pr.gzip)
	if err != nil {
		_ = resp.Body.Close()
		cancel()
		return nil, transportFailure(ctx, attemptCtx, pr, err)
	}

	ex := &exchange{
		statusCode:    resp.StatusCode,
		headers:       resp.Header,
		contentLength: resp.ContentLength,
		echo: RequestEcho{
			Method:  pr.method,
			Headers: req.Header.Clone(),
			URL:     req.URL,
		},
	}

	if decompressed {
		// the wire length no longer describes the bytes handed out
		ex.contentLength = -1
	}

	if stream {
		ex.stream = &cancelOnClose{ReadCloser: reader, cancel: cancel}
		ex.stats.ElapsedTime = time.Since(start)
		return ex, nil
	}

	data, err := io.ReadAll(reader)
	_ = reader.Close()
	ex.stats.ElapsedTime = time.Since(start)
	if err != nil {
		cancel()
		return nil, transportFailure(ctx, attemptCtx, pr, err)
	}
	cancel()
	ex.body = data
	return ex, nil
}

func (c *client) httpClient(followRedirect bool) *nethttp.Client {
	if followRedirect {
		return c.follow
	}
	return c.noFollow
}

// transportFailure reports an attempt that ran out of time as a TimeoutError.
// Cancellation of the caller's context is passed through unchanged.
func transportFailure(ctx, attemptCtx context.Context, pr *preparedRequest, err error) error {
	if ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return NewTimeoutError(fmt.Sprintf("%s %s did not complete", pr.method, pr.url.Redacted()), pr.timeout)
	}
	return err
}

// responseReader decompresses gzip bodies when compression is enabled and
// reports whether it did
func responseReader(resp *nethttp.Response, decompress bool) (io.ReadCloser, bool, error) {
	if !decompress || !strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		return resp.Body, false, nil
	}
	zr, err := gzip.NewReader(resp.Body)
	if errors.Is(err, io.EOF) {
		// empty body
		return resp.Body, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("gzip response: %w", err)
	}
	return &gzipBody{Reader: zr, source: resp.Body}, true, nil
}

type gzipBody struct {
	*gzip.Reader
	source io.Closer
}

func (g *gzipBody) Close() error {
	return errors.Join(g.Reader.Close(), g.source.Close())
}

// cancelOnClose releases the attempt context once a streamed body is closed
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	defer c.cancel()
	return c.ReadCloser.Close()
}
