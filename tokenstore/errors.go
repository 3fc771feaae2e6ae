package tokenstore

import (
	"errors"
	"fmt"
)

// Sentinel errors for token store operations.
// Use errors.Is() to check for these specific error conditions.
var (
	// ErrNotFound is returned when no token is stored.
	// Callers treat it as anonymous mode, not as a failure.
	ErrNotFound = errors.New("tokenstore: token not found")

	// ErrEmptyToken is returned by Set when asked to store an empty token.
	ErrEmptyToken = errors.New("tokenstore: empty token")

	// ErrClosed is returned when a store backed by a connection has been closed.
	ErrClosed = errors.New("tokenstore: store closed")
)

// ConfigError represents an invalid store configuration.
// These errors are fail-fast and surface at construction time.
type ConfigError struct {
	Field   string // Configuration field that failed validation
	Message string // Human-readable error message
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("tokenstore configuration error: %s: %s", e.Field, e.Message)
}

// NewConfigError creates a new configuration error.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// OperationError represents a failed backend operation.
type OperationError struct {
	Op  string // Operation that failed (e.g., "get", "set", "ping")
	Key string // Backend key involved in the operation
	Err error  // Underlying error
}

// Error implements the error interface.
func (e *OperationError) Error() string {
	return fmt.Sprintf("tokenstore operation error: %s failed for key %q: %v", e.Op, e.Key, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *OperationError) Unwrap() error {
	return e.Err
}

// NewOperationError creates a new operation error.
func NewOperationError(op, key string, err error) *OperationError {
	return &OperationError{Op: op, Key: key, Err: err}
}
