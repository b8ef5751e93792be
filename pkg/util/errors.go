// Package util provides the shared logger and the gateway error taxonomy.
package util

import (
	"errors"
	"fmt"
)

// Sentinel errors classifying every reportable failure. Executors and the
// session layer wrap these; the dispatcher maps them to failure kinds.
var (
	ErrConfig   = errors.New("invalid device configuration")
	ErrNotFound = errors.New("not found")
	ErrConnect  = errors.New("connection failed")
	ErrTimeout  = errors.New("operation timed out")
	ErrTemplate = errors.New("template rendering failed")
	ErrCommit   = errors.New("commit rejected")
	ErrConflict = errors.New("already exists")
)

// KindName returns the reportable kind for a classified error, or
// "InternalError" when the error does not wrap a taxonomy sentinel.
func KindName(err error) string {
	switch {
	case errors.Is(err, ErrConfig):
		return "ConfigError"
	case errors.Is(err, ErrNotFound):
		return "NotFoundError"
	case errors.Is(err, ErrConnect):
		return "ConnectError"
	case errors.Is(err, ErrTimeout):
		return "TimeoutError"
	case errors.Is(err, ErrTemplate):
		return "TemplateError"
	case errors.Is(err, ErrCommit):
		return "CommitError"
	case errors.Is(err, ErrConflict):
		return "ConflictError"
	default:
		return "InternalError"
	}
}

// OpError attaches the device and operation context to a classified
// cause. Reported failure messages are rendered from it, and it unwraps
// to the cause so taxonomy checks keep working.
type OpError struct {
	Device    string
	Operation string
	Cause     error
	Message   string
}

func (e *OpError) Error() string {
	if e.Device == "" {
		return fmt.Sprintf("%s: %s", e.Operation, e.Message)
	}
	return fmt.Sprintf("%s on %q: %s", e.Operation, e.Device, e.Message)
}

func (e *OpError) Unwrap() error {
	return e.Cause
}

// NewOpError creates an operation error classified under cause.
func NewOpError(cause error, device, operation, message string) *OpError {
	return &OpError{
		Device:    device,
		Operation: operation,
		Cause:     cause,
		Message:   message,
	}
}

// ConfigError wraps ErrConfig with a formatted message. Used by the
// inventory loader and the resolver for per-field validation failures.
func ConfigError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrConfig}, args...)...)
}

// NotFoundError wraps ErrNotFound with a formatted message.
func NotFoundError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrNotFound}, args...)...)
}

// ConflictError wraps ErrConflict with a formatted message.
func ConflictError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrConflict}, args...)...)
}
