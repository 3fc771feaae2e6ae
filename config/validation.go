package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// structValidator reports fields by their koanf key rather than the Go field name
func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(field reflect.StructField) string {
			name, _, _ := strings.Cut(field.Tag.Get("koanf"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks cfg's struct tags, then the settings that depend on each other.
// The first failure is returned as a *ConfigError.
func Validate(cfg *Config) error {
	if err := structValidator().Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			return fieldError(validationErrors[0])
		}
		return err
	}

	if err := validateToken(&cfg.Token); err != nil {
		return err
	}
	if err := cfg.Observability.Validate(); err != nil {
		return NewInvalidValueError("observability", err.Error())
	}
	return nil
}

func validateToken(cfg *TokenConfig) error {
	switch cfg.Store {
	case StoreFile:
		if cfg.File == "" {
			return NewMissingKeyError("token.file")
		}
	case StoreRedis:
		if cfg.Redis.Addr == "" {
			return NewMissingKeyError("token.redis.addr")
		}
	}
	return nil
}

// fieldError converts a validator failure into a ConfigError keyed like the config file
func fieldError(fe validator.FieldError) *ConfigError {
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}

	switch fe.Tag() {
	case "required":
		return NewMissingKeyError(field)
	case "oneof":
		return NewInvalidValueError(field, fmt.Sprintf("invalid value %q", fmt.Sprint(fe.Value())), strings.Fields(fe.Param())...)
	case "url":
		return NewInvalidValueError(field, "must be an absolute URL")
	case "hostname_port":
		return NewInvalidValueError(field, "must be in host:port format")
	case "startswith":
		return NewInvalidValueError(field, fmt.Sprintf("must start with %q", fe.Param()))
	case "gt":
		return NewInvalidValueError(field, fmt.Sprintf("must be greater than %s", fe.Param()))
	case "gte":
		return NewInvalidValueError(field, fmt.Sprintf("must be at least %s", fe.Param()))
	case "lte":
		return NewInvalidValueError(field, fmt.Sprintf("must be at most %s", fe.Param()))
	default:
		return NewInvalidValueError(field, fmt.Sprintf("failed %s validation", fe.Tag()))
	}
}
