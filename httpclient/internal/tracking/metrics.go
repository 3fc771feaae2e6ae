// Package tracking records OpenTelemetry metrics for the authenticated client.
package tracking

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// Meter name for client instrumentation
	meterName = "github.com/gaborage/authclient/httpclient"

	// Metric names following OpenTelemetry semantic conventions
	metricRequestDuration = "http.client.request.duration" // Histogram in seconds

	// Client-specific metrics
	metricRequests  = "authclient.requests"       // Counter of completed calls
	metricRetries   = "authclient.retries"        // Counter of re-invocations after transport failure
	metricRefreshes = "authclient.token.refreshes" // Counter of token refresh outcomes

	// Attribute keys per OTel semantic conventions
	attrMethod     = "http.request.method"
	attrStatusCode = "http.response.status_code"
	attrErrorType  = "error.type"
	attrOutcome    = "authclient.refresh.outcome"
)

// Token refresh outcomes
const (
	RefreshRenewed = "renewed"
	RefreshExpired = "expired"
	RefreshFailed  = "failed"
)

// Recorder owns the client's metric instruments. A nil instrument is skipped,
// so a partially initialized Recorder still records what it can.
type Recorder struct {
	duration  metric.Float64Histogram
	requests  metric.Int64Counter
	retries   metric.Int64Counter
	refreshes metric.Int64Counter
}

// logMetricError logs a metric initialization error to stderr.
func logMetricError(metricName string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: Failed to initialize authclient metric %s: %v\n", metricName, err)
	}
}

// New creates the instruments on mp, or on the global provider when mp is nil.
func New(mp metric.MeterProvider) *Recorder {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)
	r := &Recorder{}

	var err error

	r.duration, err = meter.Float64Histogram(
		metricRequestDuration,
		metric.WithDescription("Duration of authenticated HTTP calls"),
		metric.WithUnit("s"),
	)
	logMetricError(metricRequestDuration, err)

	r.requests, err = meter.Int64Counter(
		metricRequests,
		metric.WithDescription("Number of completed calls"),
		metric.WithUnit("{request}"),
	)
	logMetricError(metricRequests, err)

	r.retries, err = meter.Int64Counter(
		metricRetries,
		metric.WithDescription("Number of transport retries"),
		metric.WithUnit("{retry}"),
	)
	logMetricError(metricRetries, err)

	r.refreshes, err = meter.Int64Counter(
		metricRefreshes,
		metric.WithDescription("Number of session token refreshes by outcome"),
		metric.WithUnit("{refresh}"),
	)
	logMetricError(metricRefreshes, err)

	return r
}

// RecordRequest records one logical call.
//
// Parameters:
//   - method: HTTP method
//   - statusCode: response status, zero when no response was received
//   - duration: time spent across all attempts
//   - errorType: classification of the failure, empty on success
func (r *Recorder) RecordRequest(ctx context.Context, method string, statusCode int, duration time.Duration, errorType string) {
	if r == nil {
		return
	}

	attrs := []attribute.KeyValue{attribute.String(attrMethod, method)}
	if statusCode > 0 {
		attrs = append(attrs, attribute.Int(attrStatusCode, statusCode))
	}
	if errorType != "" {
		attrs = append(attrs, attribute.String(attrErrorType, errorType))
	}
	opt := metric.WithAttributes(attrs...)

	if r.duration != nil {
		r.duration.Record(ctx, duration.Seconds(), opt)
	}
	if r.requests != nil {
		r.requests.Add(ctx, 1, opt)
	}
}

// RecordRetry records a re-invocation after a transport failure.
func (r *Recorder) RecordRetry(ctx context.Context, method string) {
	if r == nil || r.retries == nil {
		return
	}
	r.retries.Add(ctx, 1, metric.WithAttributes(attribute.String(attrMethod, method)))
}

// RecordRefresh records the outcome of a token refresh.
func (r *Recorder) RecordRefresh(ctx context.Context, outcome string) {
	if r == nil || r.refreshes == nil {
		return
	}
	r.refreshes.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOutcome, outcome)))
}
