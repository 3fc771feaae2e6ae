package redis

import (
	"fmt"
	"time"

	"github.com/gaborage/authclient/tokenstore"
)

// DefaultKey is the hash key holding the session when Config.Key is empty.
const DefaultKey = "authclient:session"

// Config holds Redis token store options.
type Config struct {
	// Addr is the Redis server address in "host:port" format.
	Addr string

	// Password for Redis authentication (optional).
	Password string //nolint:gosec // G117 - config field, loaded from env

	// Database number to use (default: 0).
	Database int

	// Key is the hash holding the token and its stored-at stamp.
	Key string

	// DialTimeout bounds connection establishment (default: 5s).
	DialTimeout time.Duration

	// TTL expires the stored session server-side. Zero keeps it until removed.
	TTL time.Duration
}

// Validate performs fail-fast validation and fills defaults.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return tokenstore.NewConfigError("redis.addr", "address is required")
	}
	if c.Database < 0 || c.Database > 15 {
		return tokenstore.NewConfigError("redis.db", fmt.Sprintf("invalid database number: %d (must be 0-15)", c.Database))
	}
	if c.TTL < 0 {
		return tokenstore.NewConfigError("redis.ttl", "ttl cannot be negative")
	}
	if c.DialTimeout < 0 {
		return tokenstore.NewConfigError("redis.dial_timeout", "dial timeout cannot be negative")
	}
	if c.Key == "" {
		c.Key = DefaultKey
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	return nil
}
