package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// ErrorType represents the type of a pipeline error
type ErrorType string

const (
	// ErrorTypeLoadFailure is raised when a source or watermark raster cannot be fetched or decoded.
	ErrorTypeLoadFailure ErrorType = "load_failure"
	// ErrorTypeMissingTarget is raised before loading when the request names no destination.
	ErrorTypeMissingTarget ErrorType = "missing_target"
	// ErrorTypeEncodingFailure is raised when the encoder cannot serialize the surface.
	ErrorTypeEncodingFailure ErrorType = "encoding_failure"
	// ErrorTypeInvalidConfig is raised when a merged configuration is structurally invalid.
	ErrorTypeInvalidConfig ErrorType = "invalid_config"

	ErrorTypeUnknown ErrorType = "unknown"
)

// PipelineError is a structured, request-local pipeline error
type PipelineError struct {
	Type       ErrorType              `json:"type"`
	Source     string                 `json:"source,omitempty"`
	Reason     string                 `json:"reason"`
	Details    map[string]interface{} `json:"details,omitempty"`
	InnerError error                  `json:"-"`
	Stack      []string               `json:"-"`
}

// Error implements the error interface
func (e *PipelineError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Type))
	if e.Source != "" {
		b.WriteString(" [")
		b.WriteString(e.Source)
		b.WriteString("]")
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.InnerError != nil {
		b.WriteString(": ")
		b.WriteString(e.InnerError.Error())
	}
	return b.String()
}

// Unwrap returns the inner error
func (e *PipelineError) Unwrap() error {
	return e.InnerError
}

// Is reports whether target is a *PipelineError of the same type
func (e *PipelineError) Is(target error) bool {
	var t *PipelineError
	if errors.As(target, &t) {
		return e.Type == t.Type
	}
	return false
}

// WithDetail adds a detail to the error
func (e *PipelineError) WithDetail(key string, value interface{}) *PipelineError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithInnerError sets the inner error
func (e *PipelineError) WithInnerError(err error) *PipelineError {
	e.InnerError = err
	return e
}

// WithStack captures the call stack
func (e *PipelineError) WithStack() *PipelineError {
	e.Stack = captureStack(3)
	return e
}

// New creates a new PipelineError
func New(errType ErrorType, source, reason string) *PipelineError {
	return &PipelineError{
		Type:   errType,
		Source: source,
		Reason: reason,
	}
}

// NewLoadFailure reports a raster that could not be fetched or decoded.
func NewLoadFailure(source, reason string, inner error) *PipelineError {
	return New(ErrorTypeLoadFailure, source, reason).WithInnerError(inner)
}

// NewMissingTarget reports a request without a destination surface.
func NewMissingTarget(source string) *PipelineError {
	return New(ErrorTypeMissingTarget, source, "target element not found")
}

// NewEncodingFailure reports an encoder error. It is fatal to the request.
func NewEncodingFailure(source, format string, inner error) *PipelineError {
	return New(ErrorTypeEncodingFailure, source, fmt.Sprintf("failed to encode %s", format)).
		WithDetail("format", format).
		WithInnerError(inner).
		WithStack()
}

// NewInvalidConfig reports a configuration field that cannot be used.
func NewInvalidConfig(field string, value interface{}, reason string) *PipelineError {
	return New(ErrorTypeInvalidConfig, "", fmt.Sprintf("invalid value for %s: %v", field, value)).
		WithDetail("field", field).
		WithDetail("value", value).
		WithDetail("reason", reason)
}

// FromError converts a standard error to a PipelineError
func FromError(err error) *PipelineError {
	if err == nil {
		return nil
	}

	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe
	}

	return &PipelineError{
		Type:       ErrorTypeUnknown,
		Reason:     err.Error(),
		InnerError: err,
	}
}

// Wrap wraps an error with a type and source, keeping an existing PipelineError type intact.
func Wrap(err error, errType ErrorType, source, reason string) *PipelineError {
	if err == nil {
		return nil
	}
	var pe *PipelineError
	if errors.As(err, &pe) && pe.Type != ErrorTypeUnknown {
		return pe
	}
	return New(errType, source, reason).WithInnerError(err)
}

// TypeOf returns the pipeline error type of err, or ErrorTypeUnknown.
func TypeOf(err error) ErrorType {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Type
	}
	return ErrorTypeUnknown
}

// IsType reports whether err carries the given pipeline error type.
func IsType(err error, errType ErrorType) bool {
	return err != nil && TypeOf(err) == errType
}

// Is and As re-export the standard library helpers so callers need a single import.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }

// captureStack captures the call stack
func captureStack(skip int) []string {
	var stack []string
	for i := skip; i < 10; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		funcName := fn.Name()
		if idx := strings.LastIndex(funcName, "/"); idx >= 0 {
			funcName = funcName[idx+1:]
		}

		stack = append(stack, fmt.Sprintf("%s:%d %s", file, line, funcName))
	}
	return stack
}
