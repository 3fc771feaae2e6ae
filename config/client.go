package config

import (
	"io"

	"github.com/gaborage/authclient/httpclient"
	"github.com/gaborage/authclient/logger"
	"github.com/gaborage/authclient/tokenstore"
	redisstore "github.com/gaborage/authclient/tokenstore/redis"
)

// ClientConfig maps the loaded settings onto the programmatic client configuration.
// store may be nil for anonymous calls.
func (c *Config) ClientConfig(store tokenstore.Store) *httpclient.Config {
	return &httpclient.Config{
		BaseURL:         c.Client.BaseURL,
		Timeout:         c.Client.Timeout,
		MaxRetries:      c.Client.Retries,
		RetryDelay:      c.Client.RetryDelay,
		RefreshInterval: c.Client.RefreshInterval,
		WhoAmIPath:      c.Client.WhoAmIPath,
		APIKey:          c.Client.APIKey,
		Debug:           c.Client.Debug,
		LogPayloads:     c.Client.LogPayloads,
		RateLimit:       c.Client.RateLimit,
		RateBurst:       c.Client.RateBurst,
		TokenStore:      store,
	}
}

// OpenTokenStore opens the configured token store. The returned closer releases
// any connection the store holds. A "none" store yields a not-configured error
// so callers can fall back to anonymous calls with IsNotConfigured.
func (c *Config) OpenTokenStore() (tokenstore.Store, io.Closer, error) {
	switch c.Token.Store {
	case StoreMemory:
		return tokenstore.NewMemoryStore(), nopCloser{}, nil
	case StoreFile:
		store, err := tokenstore.NewFileStore(c.Token.File)
		if err != nil {
			return nil, nil, NewInvalidValueError("token.file", err.Error())
		}
		return store, nopCloser{}, nil
	case StoreRedis:
		store, err := redisstore.NewStore(&redisstore.Config{
			Addr:     c.Token.Redis.Addr,
			Password: c.Token.Redis.Password,
			Database: c.Token.Redis.DB,
			Key:      c.Token.Redis.Key,
			TTL:      c.Token.Redis.TTL,
		})
		if err != nil {
			return nil, nil, NewConnectionError("token.redis", err.Error(), []string{
				"check that redis is reachable at " + c.Token.Redis.Addr,
				"verify token.redis.password and token.redis.db",
			})
		}
		return store, store, nil
	default:
		return nil, nil, NewNotConfiguredError("token.store", StoreMemory, StoreFile, StoreRedis)
	}
}

// Logger builds the structured logger described by the log section
func (c *Config) Logger(out io.Writer) logger.Logger {
	return logger.NewWithOptions(logger.Options{
		Level:  c.Log.Level,
		Pretty: c.Log.Pretty,
		Output: out,
	})
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
