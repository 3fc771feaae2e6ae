package config

import (
	"time"

	"github.com/knadh/koanf/v2"

	"github.com/gaborage/authclient/observability"
)

// Token store backends
const (
	StoreNone   = "none"
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Config represents the authclient configuration: how the HTTP client behaves,
// where the session token lives, how logs are written and where telemetry goes.
type Config struct {
	Client ClientConfig `koanf:"client" json:"client" yaml:"client" mapstructure:"client"`
	Token  TokenConfig  `koanf:"token" json:"token" yaml:"token" mapstructure:"token"`
	Log    LogConfig    `koanf:"log" json:"log" yaml:"log" mapstructure:"log"`

	Observability observability.Config `koanf:"observability" json:"observability" yaml:"observability" mapstructure:"observability"`

	// k holds the underlying Koanf instance the configuration was loaded from
	k *koanf.Koanf `json:"-" yaml:"-" mapstructure:"-"`
}

// ClientConfig holds HTTP client settings.
type ClientConfig struct {
	BaseURL string `koanf:"base_url" json:"base_url" yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`

	// Timeout bounds a single transport attempt. Default: 30s.
	Timeout time.Duration `koanf:"timeout" json:"timeout" yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`

	// Retries is how many times a failed transport attempt is re-invoked. Default: 0.
	Retries    int           `koanf:"retries" json:"retries" yaml:"retries" mapstructure:"retries" validate:"gte=0,lte=10"`
	RetryDelay time.Duration `koanf:"retry_delay" json:"retry_delay" yaml:"retry_delay" mapstructure:"retry_delay" validate:"gte=0"`

	// RefreshInterval is the token age that triggers a whoami refresh. Default: 1h.
	RefreshInterval time.Duration `koanf:"refresh_interval" json:"refresh_interval" yaml:"refresh_interval" mapstructure:"refresh_interval" validate:"gt=0"`
	WhoAmIPath      string        `koanf:"whoami_path" json:"whoami_path" yaml:"whoami_path" mapstructure:"whoami_path" validate:"required,startswith=/"`

	Debug       bool `koanf:"debug" json:"debug" yaml:"debug" mapstructure:"debug"`
	LogPayloads bool `koanf:"log_payloads" json:"log_payloads" yaml:"log_payloads" mapstructure:"log_payloads"`

	// RateLimit caps outbound attempts per second. Zero disables limiting.
	RateLimit float64 `koanf:"rate_limit" json:"rate_limit" yaml:"rate_limit" mapstructure:"rate_limit" validate:"gte=0"`
	RateBurst int     `koanf:"rate_burst" json:"rate_burst" yaml:"rate_burst" mapstructure:"rate_burst" validate:"gte=1"`

	APIKey string `koanf:"api_key" json:"api_key" yaml:"api_key" mapstructure:"api_key"` //nolint:gosec // G117 - config field, loaded from env
}

// TokenConfig selects and configures the session token store.
type TokenConfig struct {
	Store string      `koanf:"store" json:"store" yaml:"store" mapstructure:"store" validate:"oneof=none memory file redis"`
	File  string      `koanf:"file" json:"file" yaml:"file" mapstructure:"file"`
	Redis RedisConfig `koanf:"redis" json:"redis" yaml:"redis" mapstructure:"redis"`
}

// RedisConfig holds the shared Redis token store connection.
type RedisConfig struct {
	Addr     string        `koanf:"addr" json:"addr" yaml:"addr" mapstructure:"addr" validate:"omitempty,hostname_port"`
	Password string        `koanf:"password" json:"password" yaml:"password" mapstructure:"password"` //nolint:gosec // G117 - config field, loaded from env
	DB       int           `koanf:"db" json:"db" yaml:"db" mapstructure:"db" validate:"gte=0,lte=15"`
	Key      string        `koanf:"key" json:"key" yaml:"key" mapstructure:"key"`
	TTL      time.Duration `koanf:"ttl" json:"ttl" yaml:"ttl" mapstructure:"ttl" validate:"gte=0"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `koanf:"level" json:"level" yaml:"level" mapstructure:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Pretty bool   `koanf:"pretty" json:"pretty" yaml:"pretty" mapstructure:"pretty"`
}
