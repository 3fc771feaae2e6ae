package httpclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDescriptor(t *testing.T) {
	t.Run("full option bag", func(t *testing.T) {
		d, err := DecodeDescriptor(map[string]any{
			"method":         "post",
			"url":            "/devices",
			"baseUrl":        "https://api.example.com",
			"headers":        map[string]any{"X-Trace": "abc", "X-Count": 3},
			"body":           map[string]any{"name": "dev"},
			"json":           true,
			"timeout":        1500,
			"retries":        2,
			"apiKey":         "k1",
			"refreshToken":   false,
			"followRedirect": false,
			"gzip":           "false",
			"qs":             map[string]any{"filter": "on", "ids": []any{1, 2}},
		})
		require.NoError(t, err)

		assert.Equal(t, "post", d.Method)
		assert.Equal(t, "/devices", d.URL)
		assert.Equal(t, "https://api.example.com", d.BaseURL)
		assert.Equal(t, map[string]string{"X-Trace": "abc", "X-Count": "3"}, d.Headers)
		assert.Equal(t, map[string]any{"name": "dev"}, d.Body)
		assert.Equal(t, 1500*time.Millisecond, d.Timeout)
		require.NotNil(t, d.Retries)
		assert.Equal(t, 2, *d.Retries)
		assert.Equal(t, "k1", d.APIKey)
		assert.False(t, *d.RefreshToken)
		assert.False(t, *d.FollowRedirect)
		assert.False(t, *d.Gzip)
		assert.True(t, *d.JSON)
		assert.Equal(t, "on", d.QueryParams.Get("filter"))
		assert.Equal(t, []string{"1", "2"}, d.QueryParams["ids"])
		assert.Empty(t, d.Extra)
	})

	t.Run("aliases", func(t *testing.T) {
		d, err := DecodeDescriptor(map[string]any{
			"uri":       "https://api.example.com/x",
			"data":      "payload",
			"timeoutMs": 200,
		})
		require.NoError(t, err)
		assert.Equal(t, "https://api.example.com/x", d.URL)
		assert.Equal(t, "payload", d.Body)
		assert.Equal(t, 200*time.Millisecond, d.Timeout)
	})

	t.Run("url wins over uri", func(t *testing.T) {
		d, err := DecodeDescriptor(map[string]any{"url": "/a", "uri": "/b"})
		require.NoError(t, err)
		assert.Equal(t, "/a", d.URL)
	})

	t.Run("queryParams and qs merge", func(t *testing.T) {
		d, err := DecodeDescriptor(map[string]any{
			"url":         "/x",
			"queryParams": map[string]any{"a": "1"},
			"qs":          map[string]any{"b": "2"},
		})
		require.NoError(t, err)
		assert.Equal(t, "1", d.QueryParams.Get("a"))
		assert.Equal(t, "2", d.QueryParams.Get("b"))
	})

	t.Run("unknown keys land in extra", func(t *testing.T) {
		d, err := DecodeDescriptor(map[string]any{"url": "/x", "proxy": "http://proxy:3128", "custom": 1})
		require.NoError(t, err)
		assert.Equal(t, "http://proxy:3128", d.Extra["proxy"])
		assert.Equal(t, 1, d.Extra["custom"])
	})

	t.Run("malformed values", func(t *testing.T) {
		_, err := DecodeDescriptor(map[string]any{"retries": "many"})
		require.Error(t, err)
		assert.True(t, IsErrorType(err, InvalidOptionError))
	})
}

func TestDescriptorValidate(t *testing.T) {
	t.Run("nil descriptor", func(t *testing.T) {
		var d *Descriptor
		assert.True(t, IsErrorType(d.validate(), InvalidOptionError))
	})

	t.Run("strictSSL false is rejected", func(t *testing.T) {
		err := (&Descriptor{URL: "/x", StrictSSL: Bool(false)}).validate()
		require.Error(t, err)
		assert.True(t, IsErrorType(err, InvalidOptionError))
		assert.Contains(t, err.Error(), "strictSSL")
	})

	t.Run("strictSSL true is accepted", func(t *testing.T) {
		assert.NoError(t, (&Descriptor{URL: "/x", StrictSSL: Bool(true)}).validate())
	})

	t.Run("negative retries", func(t *testing.T) {
		err := (&Descriptor{URL: "/x", Retries: Int(-1)}).validate()
		assert.True(t, IsErrorType(err, InvalidOptionError))
	})

	t.Run("negative timeout", func(t *testing.T) {
		err := (&Descriptor{URL: "/x", Timeout: -time.Second}).validate()
		assert.True(t, IsErrorType(err, InvalidOptionError))
	})

	t.Run("every deny-listed option is rejected", func(t *testing.T) {
		for _, option := range UnsupportedOptions() {
			t.Run(option, func(t *testing.T) {
				err := (&Descriptor{URL: "/x", Extra: map[string]any{option: true}}).validate()
				require.Error(t, err)
				assert.True(t, IsErrorType(err, UnsupportedOptionError))

				accessor := err.(interface{ Param() string })
				assert.Equal(t, option, accessor.Param())
			})
		}
	})

	t.Run("unknown extras are tolerated", func(t *testing.T) {
		assert.NoError(t, (&Descriptor{URL: "/x", Extra: map[string]any{"custom": 1}}).validate())
	})

	t.Run("deterministic report", func(t *testing.T) {
		err := (&Descriptor{URL: "/x", Extra: map[string]any{"proxy": 1, "agent": 2, "jar": 3}}).validate()
		assert.Equal(t, "agent", err.(interface{ Param() string }).Param())
	})
}

func TestUnsupportedOptionsIsACopy(t *testing.T) {
	options := UnsupportedOptions()
	options[0] = "mutated"
	assert.NotEqual(t, "mutated", UnsupportedOptions()[0])
}
