package httpclient

import (
	"errors"
	nethttp "net/http"
	"strconv"
	"time"
)

const (
	logMsgRequest  = "HTTP client request"
	logMsgResponse = "HTTP client response"
	logMsgFailure  = "HTTP client call failed"
)

// logRequest logs one outbound attempt. Header and URL values are masked by the logger.
func (c *client) logRequest(req *nethttp.Request, body []byte, requestID string) {
	event := c.logger.Info().
		Str("direction", "outbound").
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Str("request_id", requestID)
	if len(req.Header) > 0 {
		event = event.Int("header_count", len(req.Header))
	}
	if len(body) > 0 {
		event = event.Int("body_size", len(body))
	}
	event.Msg(logMsgRequest)

	if !c.config.LogPayloads {
		return
	}

	preview, truncated := c.preview(body)
	c.logger.Debug().
		Str("direction", "outbound").
		Str("method", req.Method).
		Str("request_id", requestID).
		Interface("headers", req.Header).
		Int("body_size", len(body)).
		Str("body_truncated", strconv.FormatBool(truncated)).
		Bytes("body_preview", preview).
		Msg(logMsgRequest)
}

// logResponse logs the response that completed a call
func (c *client) logResponse(resp *Response, requestID string) {
	event := c.logger.Info().
		Str("direction", "inbound").
		Int("status", resp.StatusCode).
		Dur("elapsed", resp.Stats.ElapsedTime).
		Int("attempts", resp.Stats.Attempts).
		Str("request_id", requestID)
	if len(resp.Raw) > 0 {
		event = event.Int("body_size", len(resp.Raw))
	}
	event.Msg(logMsgResponse)

	if !c.config.LogPayloads {
		return
	}

	preview, truncated := c.preview(resp.Raw)
	c.logger.Debug().
		Str("direction", "inbound").
		Int("status", resp.StatusCode).
		Str("request_id", requestID).
		Interface("headers", resp.Headers).
		Int("body_size", len(resp.Raw)).
		Str("body_truncated", strconv.FormatBool(truncated)).
		Bytes("body_preview", preview).
		Msg(logMsgResponse)
}

// logFailure logs an erroring call when Debug is enabled. It never alters the error.
func (c *client) logFailure(method, target string, elapsed time.Duration, requestID string, err error) {
	if !c.config.Debug {
		return
	}
	event := c.logger.Error().
		Str("method", method).
		Str("url", target).
		Dur("elapsed", elapsed).
		Str("request_id", requestID)
	if status, ok := StatusCodeOf(err); ok {
		event = event.Int("status", status)
	}
	var ce ClientError
	if errors.As(err, &ce) {
		event = event.Str("error_type", string(ce.Type()))
	}
	event.Err(err).Msg(logMsgFailure)
}

func (c *client) preview(body []byte) ([]byte, bool) {
	limit := c.config.MaxPayloadLogBytes
	if limit <= 0 {
		limit = DefaultMaxPayloadLogBytes
	}
	if len(body) > limit {
		return body[:limit], true
	}
	return body, false
}
