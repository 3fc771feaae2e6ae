package httpclient

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType classifies the failures surfaced by the client
type ErrorType string

const (
	// RequestError is an HTTP response with status >= 400
	RequestError ErrorType = "request"
	// ExpiredTokenError means the token refresh was rejected as unauthorized
	ExpiredTokenError ErrorType = "expired_token"
	// UnsupportedOptionError is a deny-listed legacy option
	UnsupportedOptionError ErrorType = "unsupported_option"
	// InvalidOptionError is an option that can never be honored
	InvalidOptionError ErrorType = "invalid_option"
	// TransportError is a network failure that survived every retry
	TransportError ErrorType = "transport"
	// TimeoutError is a single attempt exceeding its deadline
	TimeoutError ErrorType = "timeout"
	// NotImplementedError is an operation outside the client's capability set
	NotImplementedError ErrorType = "not_implemented"
	// InterceptorError is a failing request or response interceptor
	InterceptorError ErrorType = "interceptor"
)

// DefaultErrorMessage is used when a failed response carries no body
const DefaultErrorMessage = "The request was unsuccessful"

// ClientError is implemented by every error the client returns
type ClientError interface {
	error
	Type() ErrorType
}

type requestError struct {
	message    string
	statusCode int
	body       []byte
}

func (e *requestError) Error() string {
	return fmt.Sprintf("request error: %s (status %d)", e.message, e.statusCode)
}

func (e *requestError) Type() ErrorType { return RequestError }

// Message returns the extracted error message
func (e *requestError) Message() string { return e.message }

// StatusCode returns the HTTP status of the failed response
func (e *requestError) StatusCode() int { return e.statusCode }

// Body returns the raw response body
func (e *requestError) Body() []byte { return e.body }

// NewRequestError creates an error for an HTTP response with an error status
func NewRequestError(message string, statusCode int, body []byte) ClientError {
	return &requestError{message: message, statusCode: statusCode, body: body}
}

type expiredTokenError struct {
	token string
}

func (e *expiredTokenError) Error() string {
	return "expired token: the session token was rejected and has been removed"
}

func (e *expiredTokenError) Type() ErrorType { return ExpiredTokenError }

// Token returns the session token that was removed from the store
func (e *expiredTokenError) Token() string { return e.token }

// NewExpiredTokenError creates an error carrying the removed token
func NewExpiredTokenError(token string) ClientError {
	return &expiredTokenError{token: token}
}

type unsupportedOptionError struct {
	param string
	value any
}

func (e *unsupportedOptionError) Error() string {
	return fmt.Sprintf("unsupported option: %s", e.param)
}

func (e *unsupportedOptionError) Type() ErrorType { return UnsupportedOptionError }

// Param returns the rejected option name
func (e *unsupportedOptionError) Param() string { return e.param }

// Value returns the rejected option value
func (e *unsupportedOptionError) Value() any { return e.value }

// NewUnsupportedOptionError creates an error for a deny-listed option
func NewUnsupportedOptionError(param string, value any) ClientError {
	return &unsupportedOptionError{param: param, value: value}
}

type invalidOptionError struct {
	message string
	param   string
	err     error
}

func (e *invalidOptionError) Error() string {
	msg := "invalid option"
	if e.param != "" {
		msg += " " + e.param
	}
	msg += ": " + e.message
	if e.err != nil {
		msg += ": " + e.err.Error()
	}
	return msg
}

func (e *invalidOptionError) Type() ErrorType { return InvalidOptionError }

func (e *invalidOptionError) Unwrap() error { return e.err }

// Param returns the offending option name
func (e *invalidOptionError) Param() string { return e.param }

// NewInvalidOptionError creates an error for an option that cannot be honored
func NewInvalidOptionError(param, message string, err error) ClientError {
	return &invalidOptionError{message: message, param: param, err: err}
}

type transportError struct {
	attempts int
	err      error
}

func (e *transportError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("transport error after %d attempt(s)", e.attempts)
	}
	return fmt.Sprintf("transport error after %d attempt(s): %v", e.attempts, e.err)
}

func (e *transportError) Type() ErrorType { return TransportError }

func (e *transportError) Unwrap() error { return e.err }

// Attempts returns how many times the transport was invoked
func (e *transportError) Attempts() int { return e.attempts }

// NewTransportError creates an error for a transport failure that exhausted its retries
func NewTransportError(attempts int, err error) ClientError {
	return &transportError{attempts: attempts, err: err}
}

type timeoutError struct {
	message string
	timeout time.Duration
}

func (e *timeoutError) Error() string {
	return fmt.Sprintf("timeout error: %s (timeout: %v)", e.message, e.timeout)
}

func (e *timeoutError) Type() ErrorType { return TimeoutError }

// Timeout returns the deadline that was exceeded
func (e *timeoutError) Timeout() time.Duration { return e.timeout }

// NewTimeoutError creates an error for an attempt that exceeded its deadline
func NewTimeoutError(message string, timeout time.Duration) ClientError {
	return &timeoutError{message: message, timeout: timeout}
}

type notImplementedError struct {
	operation string
}

func (e *notImplementedError) Error() string {
	return fmt.Sprintf("not implemented: %s is unavailable with this transport", e.operation)
}

func (e *notImplementedError) Type() ErrorType { return NotImplementedError }

// Operation returns the unavailable operation
func (e *notImplementedError) Operation() string { return e.operation }

// NewNotImplementedError creates an error for an operation outside the capability set
func NewNotImplementedError(operation string) ClientError {
	return &notImplementedError{operation: operation}
}

type interceptorError struct {
	message string
	stage   string
	err     error
}

func (e *interceptorError) Error() string {
	msg := fmt.Sprintf("interceptor error: %s (stage: %s)", e.message, e.stage)
	if e.err != nil {
		msg += ": " + e.err.Error()
	}
	return msg
}

func (e *interceptorError) Type() ErrorType { return InterceptorError }

func (e *interceptorError) Unwrap() error { return e.err }

// NewInterceptorError creates an error for a failing interceptor
func NewInterceptorError(message, stage string, err error) ClientError {
	return &interceptorError{message: message, stage: stage, err: err}
}

// IsErrorType reports whether err, or any error it wraps, is a ClientError of type t
func IsErrorType(err error, t ErrorType) bool {
	for err != nil {
		if ce, ok := err.(ClientError); ok && ce.Type() == t {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// IsHTTPStatusError reports whether err is a RequestError with the given status
func IsHTTPStatusError(err error, statusCode int) bool {
	code, ok := StatusCodeOf(err)
	return ok && code == statusCode
}

// IsSuccessStatus reports whether statusCode is in the 2xx range
func IsSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}

// IsErrorStatus reports whether statusCode classifies a response as failed
func IsErrorStatus(statusCode int) bool {
	return statusCode >= 400
}

// StatusCodeOf extracts the HTTP status from a RequestError
func StatusCodeOf(err error) (int, bool) {
	var re *requestError
	if errors.As(err, &re) {
		return re.statusCode, true
	}
	return 0, false
}

// ExpiredToken extracts the removed token from an ExpiredTokenError
func ExpiredToken(err error) (string, bool) {
	var ee *expiredTokenError
	if errors.As(err, &ee) {
		return ee.token, true
	}
	return "", false
}
