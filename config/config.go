package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix namespaces the environment variables read by Load
const EnvPrefix = "AUTHCLIENT_"

// Load loads configuration from multiple sources with priority:
// 1. Environment variables prefixed with AUTHCLIENT_ (highest priority)
// 2. The YAML file at path, when path is non-empty
// 3. Default values (lowest priority)
func Load(path string) (*Config, error) {
	return load(path, os.Environ)
}

func load(path string, environ func() []string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, NewMissingFileError(path)
			}
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	keys := k.Keys()
	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: envTransform(keys),
		EnvironFunc:   environ,
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.k = k

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// defaults lists every known key so environment variables can be mapped back
// onto nested keys whose names contain underscores.
func defaults() map[string]any {
	return map[string]any{
		"client.base_url":         "",
		"client.timeout":          "30s",
		"client.retries":          0,
		"client.retry_delay":      "0s",
		"client.refresh_interval": "1h",
		"client.whoami_path":      "/whoami",
		"client.debug":            false,
		"client.log_payloads":     false,
		"client.rate_limit":       0,
		"client.rate_burst":       1,
		"client.api_key":          "",

		"token.store":          StoreFile,
		"token.file":           defaultTokenFile(),
		"token.redis.addr":     "",
		"token.redis.password": "",
		"token.redis.db":       0,
		"token.redis.key":      "",
		"token.redis.ttl":      "0s",

		"log.level":  "info",
		"log.pretty": false,

		"observability.enabled":         false,
		"observability.service_name":    "authclient",
		"observability.service_version": "",
		"observability.exporter":        "stdout",
		"observability.protocol":        "http",
		"observability.endpoint":        "",
		"observability.insecure":        false,
		"observability.sample_rate":     1.0,
		"observability.metric_interval": "60s",
	}
}

// defaultTokenFile places the session under the user's config directory
func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".authclient-session.json"
	}
	return filepath.Join(dir, "authclient", "session.json")
}

// envTransform maps AUTHCLIENT_CLIENT_BASE_URL onto client.base_url by matching
// against the known keys. Unknown variables nest on every underscore.
func envTransform(known []string) func(key, value string) (string, any) {
	byEnvName := make(map[string]string, len(known))
	for _, k := range known {
		byEnvName[strings.ReplaceAll(k, ".", "_")] = k
	}

	return func(key, value string) (string, any) {
		name := strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
		if name == "" {
			return "", nil
		}
		if k, ok := byEnvName[name]; ok {
			return k, value
		}
		return strings.ReplaceAll(name, "_", "."), value
	}
}

// Effective returns the merged configuration as a nested map with secrets masked
func (c *Config) Effective() map[string]any {
	if c == nil || c.k == nil {
		return map[string]any{}
	}
	out := koanf.New(".")
	for key, value := range c.k.All() {
		if isSecretKey(key) {
			if s, ok := value.(string); ok && s != "" {
				value = maskValue
			}
		}
		_ = out.Set(key, value)
	}
	return out.Raw()
}

const maskValue = "***"

func isSecretKey(key string) bool {
	return strings.HasSuffix(key, "api_key") || strings.HasSuffix(key, "password")
}
