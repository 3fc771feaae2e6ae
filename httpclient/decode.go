package httpclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	nethttp "net/http"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	mimeBinary = "binary/octet-stream"
	mimeJSON   = "application/json"
)

// decodeBody decodes raw by declared content type: binary/octet-stream stays
// []byte, application/json becomes the decoded value, anything else a string.
func decodeBody(headers nethttp.Header, raw []byte) (any, error) {
	contentType := strings.ToLower(headers.Get(HeaderContentType))

	switch {
	case strings.Contains(contentType, mimeBinary):
		return raw, nil
	case strings.Contains(contentType, mimeJSON):
		if len(bytes.TrimSpace(raw)) == 0 {
			return nil, nil
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("httpclient: decode JSON response: %w", err)
		}
		return v, nil
	default:
		return string(raw), nil
	}
}

// errorMessage extracts the message of a failed response: the structured
// error.text field when present, else the raw body, else DefaultErrorMessage.
func errorMessage(raw []byte) string {
	if len(bytes.TrimSpace(raw)) == 0 {
		return DefaultErrorMessage
	}
	if gjson.ValidBytes(raw) {
		if e := gjson.GetBytes(raw, "error"); e.Exists() {
			if text := e.Get("text"); text.Exists() {
				return text.String()
			}
			if e.Type == gjson.String {
				return e.String()
			}
		}
	}
	return string(raw)
}

// DecodeJSON unmarshals the raw response body into v
func (r *Response) DecodeJSON(v any) error {
	if r == nil || len(r.Raw) == 0 {
		return fmt.Errorf("httpclient: empty response body")
	}
	return json.Unmarshal(r.Raw, v)
}

// tokenFromBody extracts a session token from a whoami response body
func tokenFromBody(body any) (string, error) {
	var token string
	switch b := body.(type) {
	case string:
		token = b
	case []byte:
		token = string(b)
	default:
		return "", fmt.Errorf("httpclient: whoami returned %T, expected a token string", body)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", fmt.Errorf("httpclient: whoami returned an empty token")
	}
	return token, nil
}
