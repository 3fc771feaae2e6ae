package config

import (
	"errors"
	"fmt"
	"strings"
)

// Category groups configuration failures by what the user has to do about them.
type Category string

const (
	CategoryMissing       Category = "missing"
	CategoryInvalid       Category = "invalid"
	CategoryNotConfigured Category = "not_configured"
	CategoryConnection    Category = "connection"
)

// ConfigError reports a problem with one configuration key, together with a
// hint naming the config file key or AUTHCLIENT_ variable that fixes it.
//
//nolint:revive // ConfigError reads better than Error at call sites outside the package
type ConfigError struct {
	Category Category
	// Key is the dotted config key (token.redis.addr) or, for a missing file, its path
	Key     string
	Message string
	Hint    string
	Details []string
}

// Error renders "config <category>: <key>: <message> (<hint>) [<details>]",
// leaving out the parts that are empty.
func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("config")
	if e.Category != "" {
		b.WriteString(" " + string(e.Category))
	}
	b.WriteString(":")
	if e.Key != "" {
		b.WriteString(" " + e.Key + ":")
	}
	if e.Message != "" {
		b.WriteString(" " + e.Message)
	}
	if e.Hint != "" {
		fmt.Fprintf(&b, " (%s)", e.Hint)
	}
	if len(e.Details) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(e.Details, "; "))
	}
	return b.String()
}

// NewMissingKeyError reports a key that must be set for the current configuration.
func NewMissingKeyError(key string) *ConfigError {
	return &ConfigError{
		Category: CategoryMissing,
		Key:      key,
		Message:  "required",
		Hint:     fmt.Sprintf("set %s or add %s to the config file", envVarFor(key), key),
	}
}

// NewInvalidValueError reports a key whose value was rejected. allowed lists
// the accepted values when the key is an enumeration.
func NewInvalidValueError(key, message string, allowed ...string) *ConfigError {
	err := &ConfigError{
		Category: CategoryInvalid,
		Key:      key,
		Message:  message,
	}
	if len(allowed) > 0 {
		err.Hint = "must be one of: " + strings.Join(allowed, ", ")
	}
	return err
}

// NewNotConfiguredError reports an optional feature that is switched off.
// It is informational: callers check it with IsNotConfigured and carry on without it.
func NewNotConfiguredError(key string, enableWith ...string) *ConfigError {
	return &ConfigError{
		Category: CategoryNotConfigured,
		Key:      key,
		Message:  "disabled",
		Hint:     fmt.Sprintf("to enable, set %s to %s", envVarFor(key), strings.Join(enableWith, ", ")),
	}
}

// NewConnectionError reports a configured backend that could not be reached.
func NewConnectionError(key, message string, troubleshooting []string) *ConfigError {
	return &ConfigError{
		Category: CategoryConnection,
		Key:      key,
		Message:  message,
		Details:  troubleshooting,
	}
}

// NewMissingFileError reports an explicitly requested config file that does not exist.
func NewMissingFileError(path string) *ConfigError {
	return &ConfigError{
		Category: CategoryMissing,
		Key:      path,
		Message:  "config file not found",
		Hint:     "check the --config path, or omit it to use defaults and AUTHCLIENT_ variables",
	}
}

// IsNotConfigured reports whether err, or an error it wraps, is a not-configured ConfigError.
func IsNotConfigured(err error) bool {
	var configErr *ConfigError
	return errors.As(err, &configErr) && configErr.Category == CategoryNotConfigured
}

// envVarFor returns the environment variable that overrides key
func envVarFor(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}
