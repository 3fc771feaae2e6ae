package httpclient

import (
	"fmt"
	"net/url"
	"slices"
	"sort"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// unsupportedOptions are legacy transport knobs with no supported equivalent.
// Ignoring them would silently change the meaning of a call.
var unsupportedOptions = []string{
	"qsParseOptions", "qsStringifyOptions", "useQuerystring",
	"form", "formData", "multipart",
	"preambleCRLF", "postambleCRLF",
	"jsonReviver", "jsonReplacer",
	"auth", "oauth", "aws", "httpSignature",
	"followAllRedirects", "maxRedirects", "removeRefererHeader",
	"encoding", "jar",
	"agent", "agentClass", "agentOptions", "forever", "pool", "localAddress",
	"proxy", "proxyHeaderWhiteList", "proxyHeaderExclusiveList",
	"time", "har", "callback",
}

// UnsupportedOptions returns the deny-listed option names
func UnsupportedOptions() []string {
	return slices.Clone(unsupportedOptions)
}

// optionBag is the wire shape of a generic request description
type optionBag struct {
	Method         string         `mapstructure:"method"`
	URL            string         `mapstructure:"url"`
	URI            string         `mapstructure:"uri"`
	BaseURL        string         `mapstructure:"baseUrl"`
	QS             map[string]any `mapstructure:"qs"`
	QueryParams    map[string]any `mapstructure:"queryParams"`
	Headers        map[string]any `mapstructure:"headers"`
	Body           any            `mapstructure:"body"`
	Data           any            `mapstructure:"data"`
	JSON           *bool          `mapstructure:"json"`
	Timeout        *int64         `mapstructure:"timeout"`
	TimeoutMs      *int64         `mapstructure:"timeoutMs"`
	Retries        *int           `mapstructure:"retries"`
	APIKey         string         `mapstructure:"apiKey"`
	RefreshToken   *bool          `mapstructure:"refreshToken"`
	FollowRedirect *bool          `mapstructure:"followRedirect"`
	Gzip           *bool          `mapstructure:"gzip"`
	StrictSSL      *bool          `mapstructure:"strictSSL"`
	Extra          map[string]any `mapstructure:",remain"`
}

// DecodeDescriptor converts a generic option bag, such as a decoded JSON or YAML
// request file, into a Descriptor. "uri" is accepted for "url", "data" for
// "body" and "qs" for "queryParams"; timeouts are in milliseconds. Unknown keys
// land in Descriptor.Extra and are checked against the deny-list when sent.
func DecodeDescriptor(bag map[string]any) (*Descriptor, error) {
	var ob optionBag
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &ob,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("httpclient: option decoder: %w", err)
	}
	if err := decoder.Decode(bag); err != nil {
		return nil, NewInvalidOptionError("", "malformed option bag", err)
	}

	d := &Descriptor{
		Method:         ob.Method,
		URL:            firstNonEmpty(ob.URL, ob.URI),
		BaseURL:        ob.BaseURL,
		Body:           ob.Body,
		JSON:           ob.JSON,
		Retries:        ob.Retries,
		APIKey:         ob.APIKey,
		RefreshToken:   ob.RefreshToken,
		FollowRedirect: ob.FollowRedirect,
		Gzip:           ob.Gzip,
		StrictSSL:      ob.StrictSSL,
		Extra:          ob.Extra,
	}
	if d.Body == nil {
		d.Body = ob.Data
	}

	switch {
	case ob.TimeoutMs != nil:
		d.Timeout = time.Duration(*ob.TimeoutMs) * time.Millisecond
	case ob.Timeout != nil:
		d.Timeout = time.Duration(*ob.Timeout) * time.Millisecond
	}

	if len(ob.Headers) > 0 {
		d.Headers = make(map[string]string, len(ob.Headers))
		for k, v := range ob.Headers {
			d.Headers[k] = fmt.Sprint(v)
		}
	}

	d.QueryParams = toValues(ob.QueryParams)
	for k, vs := range toValues(ob.QS) {
		if d.QueryParams == nil {
			d.QueryParams = url.Values{}
		}
		d.QueryParams[k] = append(d.QueryParams[k], vs...)
	}

	return d, nil
}

// validate performs the checks that must fail before any network activity
func (d *Descriptor) validate() error {
	if d == nil {
		return NewInvalidOptionError("", "descriptor is required", nil)
	}
	if d.StrictSSL != nil && !*d.StrictSSL {
		return NewInvalidOptionError("strictSSL", "certificate validation cannot be disabled", nil)
	}
	if d.Retries != nil && *d.Retries < 0 {
		return NewInvalidOptionError("retries", "must not be negative", nil)
	}
	if d.Timeout < 0 {
		return NewInvalidOptionError("timeout", "must not be negative", nil)
	}

	// sorted so the reported option is deterministic
	keys := make([]string, 0, len(d.Extra))
	for k := range d.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if slices.Contains(unsupportedOptions, k) {
			return NewUnsupportedOptionError(k, d.Extra[k])
		}
	}
	return nil
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func toValues(m map[string]any) url.Values {
	if len(m) == 0 {
		return nil
	}
	values := make(url.Values, len(m))
	for k, v := range m {
		switch vv := v.(type) {
		case []any:
			for _, item := range vv {
				values.Add(k, fmt.Sprint(item))
			}
		case []string:
			for _, item := range vv {
				values.Add(k, item)
			}
		case nil:
			values.Add(k, "")
		default:
			values.Add(k, fmt.Sprint(vv))
		}
	}
	return values
}
