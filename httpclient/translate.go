package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	nethttp "net/http"
	"net/url"
	"strings"
	"time"
)

// preparedRequest is a Descriptor translated into transport-ready parameters.
// It has no refresh flag: whoever holds one has already passed the token gate.
type preparedRequest struct {
	method         string
	url            *url.URL
	headers        nethttp.Header
	body           []byte
	followRedirect bool
	gzip           bool
	timeout        time.Duration
	retries        int
}

// withAPIKey appends the apikey parameter to the unresolved URL, ahead of any fragment
func withAPIKey(rawURL, apiKey string) string {
	if apiKey == "" {
		return rawURL
	}
	rest, fragment, hasFragment := strings.Cut(rawURL, "#")
	sep := "?"
	if strings.Contains(rest, "?") {
		sep = "&"
	}
	rest += sep + "apikey=" + url.QueryEscape(apiKey)
	if hasFragment {
		rest += "#" + fragment
	}
	return rest
}

// resolveURL resolves rawURL against base unless rawURL carries its own scheme
func resolveURL(base, rawURL string) (*url.URL, error) {
	ref, err := url.Parse(rawURL)
	if err != nil {
		return nil, NewInvalidOptionError("url", "cannot be parsed", err)
	}
	if ref.IsAbs() {
		return ref, nil
	}
	if base == "" {
		return nil, NewInvalidOptionError("url", fmt.Sprintf("%q is relative and no base URL is configured", rawURL), nil)
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, NewInvalidOptionError("baseUrl", "cannot be parsed", err)
	}
	if !baseURL.IsAbs() {
		return nil, NewInvalidOptionError("baseUrl", fmt.Sprintf("%q is not absolute", base), nil)
	}
	return baseURL.ResolveReference(ref), nil
}

// appendQuery merges params onto u with '&' or '?' as appropriate
func appendQuery(u *url.URL, params url.Values) {
	if len(params) == 0 {
		return
	}
	encoded := params.Encode()
	if u.RawQuery == "" {
		u.RawQuery = encoded
		return
	}
	u.RawQuery += "&" + encoded
}

// translate converts a validated descriptor into transport-ready parameters.
// authorization, when non-empty, is attached as the Authorization header.
func (c *client) translate(d *Descriptor, authorization string) (*preparedRequest, error) {
	method := strings.ToUpper(d.Method)
	if method == "" {
		method = nethttp.MethodGet
	}

	apiKey := firstNonEmpty(d.APIKey, c.config.APIKey)
	target, err := resolveURL(firstNonEmpty(d.BaseURL, c.config.BaseURL), withAPIKey(d.URL, apiKey))
	if err != nil {
		return nil, err
	}
	appendQuery(target, d.QueryParams)

	headers := nethttp.Header{}
	for k, v := range c.config.DefaultHeaders {
		headers.Set(k, v)
	}
	for k, v := range d.Headers {
		headers.Set(k, v)
	}
	if authorization != "" {
		headers.Set(HeaderAuthorization, authorization)
	}
	if headers.Get(HeaderAcceptEncoding) == "" {
		headers.Set(HeaderAcceptEncoding, DefaultAcceptEncoding)
	}

	body, err := encodeBody(d.Body, boolOr(d.JSON, true), headers)
	if err != nil {
		return nil, err
	}

	retries := c.config.MaxRetries
	if d.Retries != nil {
		retries = *d.Retries
	}
	timeout := d.Timeout
	if timeout == 0 {
		timeout = c.config.Timeout
	}

	return &preparedRequest{
		method:         method,
		url:            target,
		headers:        headers,
		body:           body,
		followRedirect: boolOr(d.FollowRedirect, true),
		gzip:           boolOr(d.Gzip, true),
		timeout:        timeout,
		retries:        retries,
	}, nil
}

// encodeBody serializes body once so every attempt can replay it
func encodeBody(body any, asJSON bool, headers nethttp.Header) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	if s, ok := body.(string); ok && !asJSON {
		return []byte(s), nil
	}

	if raw, ok, err := rawBody(body); ok || err != nil {
		if err != nil {
			return nil, err
		}
		if asJSON && headers.Get(HeaderContentType) == "" {
			headers.Set(HeaderContentType, "application/json")
		}
		return raw, nil
	}

	if !asJSON {
		return nil, NewInvalidOptionError("body", fmt.Sprintf("%T cannot be sent without JSON encoding", body), nil)
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, NewInvalidOptionError("body", "cannot be encoded as JSON", err)
	}
	headers.Set(HeaderContentType, "application/json")
	return encoded, nil
}

// rawBody returns pre-serialized bodies unchanged
func rawBody(body any) ([]byte, bool, error) {
	switch b := body.(type) {
	case json.RawMessage:
		return b, true, nil
	case []byte:
		return b, true, nil
	case io.Reader:
		data, err := io.ReadAll(b)
		if err != nil {
			return nil, true, NewInvalidOptionError("body", "cannot be read", err)
		}
		return data, true, nil
	default:
		return nil, false, nil
	}
}
