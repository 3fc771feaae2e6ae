package httpclient

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"net/url"

	"github.com/gaborage/authclient/httpclient/internal/tracking"
	"github.com/gaborage/authclient/tokenstore"
)

// refreshKey is the single-flight key for token refreshes. A client holds
// exactly one store, so one key serializes every refresh of that store.
const refreshKey = "token-refresh"

// gate refreshes a stale session token before an authenticated call.
// Concurrent callers with a stale token share a single refresh. The refresh
// runs detached from any one caller's cancellation; each caller stops waiting
// only when its own context is done.
func (c *client) gate(ctx context.Context, d *Descriptor, requestID string) error {
	if c.tokens == nil || !boolOr(d.RefreshToken, true) {
		return nil
	}

	stale, err := c.tokenIsStale(ctx)
	if err != nil || !stale {
		return err
	}

	base := c.whoAmIBase(d)
	flightCtx := context.WithoutCancel(ctx)
	done := c.refreshes.DoChan(refreshKey, func() (any, error) {
		// a flight that finished after our first check may already have renewed it
		stale, err := c.tokenIsStale(flightCtx)
		if err != nil || !stale {
			return nil, err
		}
		return nil, c.refreshToken(flightCtx, base, requestID)
	})

	select {
	case res := <-done:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *client) tokenIsStale(ctx context.Context) (bool, error) {
	age, err := c.tokens.Age(ctx)
	if errors.Is(err, tokenstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("httpclient: read token age: %w", err)
	}
	return age >= c.config.RefreshInterval, nil
}

// whoAmIBase picks the base URL for the refresh call: the descriptor's, the
// client's, or the origin of an absolute descriptor URL.
func (c *client) whoAmIBase(d *Descriptor) string {
	if base := firstNonEmpty(d.BaseURL, c.config.BaseURL); base != "" {
		return base
	}
	if u, err := url.Parse(d.URL); err == nil && u.IsAbs() {
		return u.Scheme + "://" + u.Host
	}
	return ""
}

// refreshToken asks the service who the current token belongs to. It goes
// through send directly, which never consults the gate, so a refresh cannot
// trigger another refresh.
func (c *client) refreshToken(ctx context.Context, base, requestID string) error {
	resp, err := c.send(ctx, &Descriptor{
		Method:  nethttp.MethodGet,
		URL:     c.config.WhoAmIPath,
		BaseURL: base,
	}, requestID)
	if err != nil {
		if IsHTTPStatusError(err, nethttp.StatusUnauthorized) {
			return c.expireToken(ctx, requestID)
		}
		c.metrics.RecordRefresh(ctx, tracking.RefreshFailed)
		return err
	}

	token, err := tokenFromBody(resp.Body)
	if err != nil {
		c.metrics.RecordRefresh(ctx, tracking.RefreshFailed)
		return err
	}
	if err := c.tokens.Set(ctx, token); err != nil {
		c.metrics.RecordRefresh(ctx, tracking.RefreshFailed)
		return fmt.Errorf("httpclient: store refreshed token: %w", err)
	}

	c.metrics.RecordRefresh(ctx, tracking.RefreshRenewed)
	c.logger.Debug().Str("request_id", requestID).Msg("Session token refreshed")
	return nil
}

// expireToken clears a token the service no longer accepts
func (c *client) expireToken(ctx context.Context, requestID string) error {
	token, err := c.tokens.Get(ctx)
	if err != nil && !errors.Is(err, tokenstore.ErrNotFound) {
		return fmt.Errorf("httpclient: read expired token: %w", err)
	}
	if err := c.tokens.Remove(ctx); err != nil {
		return fmt.Errorf("httpclient: remove expired token: %w", err)
	}

	c.metrics.RecordRefresh(ctx, tracking.RefreshExpired)
	c.logger.Warn().Str("request_id", requestID).Msg("Session token expired and was removed")
	return NewExpiredTokenError(token)
}
