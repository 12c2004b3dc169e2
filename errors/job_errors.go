// errors/job_errors.go
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrModelNotFound      = errors.New("model not found")
	ErrModelConflict      = errors.New("model already registered")
	ErrJobNotFound        = errors.New("job not found")
	ErrInvalidInput       = errors.New("invalid job input")
	ErrQueueFull          = errors.New("job queue is full")
	ErrDispatcherStopped  = errors.New("dispatcher is not running")
	ErrDispatcherStarted  = errors.New("dispatcher already started")
	ErrNoCompletionSource = errors.New("completion transport not configured")
)

// ErrorKind classifies an execution failure.
type ErrorKind string

const (
	KindMalformedInput    ErrorKind = "malformed_input"
	KindOutOfRange        ErrorKind = "out_of_range"
	KindTypeMismatch      ErrorKind = "type_mismatch"
	KindResourceExhausted ErrorKind = "resource_exhausted"
	KindEncoding          ErrorKind = "encoding"
	KindTimeout           ErrorKind = "timeout"
	KindTransient         ErrorKind = "transient"
	KindInternal          ErrorKind = "internal"
	KindModelNotFound     ErrorKind = "model_not_found"
)

var permanentKinds = map[ErrorKind]bool{
	KindMalformedInput:    true,
	KindOutOfRange:        true,
	KindTypeMismatch:      true,
	KindResourceExhausted: true,
	KindEncoding:          true,
	KindModelNotFound:     true,
}

// ExecutionError is the error an executable returns (or is wrapped into)
// when a model invocation fails.
type ExecutionError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func NewExecutionError(kind ErrorKind, format string, args ...interface{}) *ExecutionError {
	return &ExecutionError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapExecution wraps cause into an ExecutionError of the given kind.
func WrapExecution(kind ErrorKind, cause error) *ExecutionError {
	return &ExecutionError{Kind: kind, Message: cause.Error(), Cause: cause}
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether the failure kind may be attempted again.
func (e *ExecutionError) Retryable() bool {
	return !permanentKinds[e.Kind]
}

// KindOf returns the kind of err, or KindInternal when err carries none.
func KindOf(err error) ErrorKind {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Kind
	}
	return KindInternal
}
