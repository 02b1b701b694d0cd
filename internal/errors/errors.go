package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
)

// ErrorType represents the category of error
type ErrorType int

const (
	// Configuration errors - ownership source missing or empty, invalid settings
	ErrorTypeConfig ErrorType = iota
	// Validation errors - invalid input data
	ErrorTypeValidation
	// Insufficient data - a group or team lacks labeled samples
	ErrorTypeInsufficientData
	// Upstream errors - change-hosting API failures
	ErrorTypeUpstream
	// Prediction input errors - model not trained, unusable request
	ErrorTypePredictionInput
	// Persistence errors - history, ledger or model store read/write failures
	ErrorTypePersistence
	// Internal errors - unexpected internal state
	ErrorTypeInternal
)

// Severity represents how critical an error is
type Severity int

const (
	// SeverityLow - recovered locally, run continues
	SeverityLow Severity = iota
	// SeverityMedium - should be addressed but not fatal
	SeverityMedium
	// SeverityHigh - significant issue, surfaced to the caller
	SeverityHigh
	// SeverityCritical - must be addressed, stops execution
	SeverityCritical
)

// Error represents a structured error with context
type Error struct {
	Type       ErrorType
	Severity   Severity
	Code       string
	Message    string
	Cause      error
	Context    map[string]interface{}
	StackTrace string
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Is matches on type, and on code when the target carries one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Type != t.Type {
		return false
	}
	return t.Code == "" || e.Code == t.Code
}

// IsFatal returns true if this error should stop execution
func (e *Error) IsFatal() bool {
	return e.Severity == SeverityCritical
}

// DetailedString returns a detailed error message with context
func (e *Error) DetailedString() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("[%s] [%s] %s\n",
		severityString(e.Severity),
		typeString(e.Type),
		e.Message))

	if e.Cause != nil {
		sb.WriteString(fmt.Sprintf("Caused by: %v\n", e.Cause))
	}

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteString("Context:\n")
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("  %s: %v\n", k, e.Context[k]))
		}
	}

	if e.StackTrace != "" {
		sb.WriteString(fmt.Sprintf("Stack trace:\n%s\n", e.StackTrace))
	}

	return sb.String()
}

func typeString(t ErrorType) string {
	switch t {
	case ErrorTypeConfig:
		return "CONFIG"
	case ErrorTypeValidation:
		return "VALIDATION"
	case ErrorTypeInsufficientData:
		return "INSUFFICIENT_DATA"
	case ErrorTypeUpstream:
		return "UPSTREAM"
	case ErrorTypePredictionInput:
		return "PREDICTION_INPUT"
	case ErrorTypePersistence:
		return "PERSISTENCE"
	case ErrorTypeInternal:
		return "INTERNAL"
	default:
		return "UNKNOWN"
	}
}

func severityString(s Severity) string {
	switch s {
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// captureStackTrace captures the current stack trace
func captureStackTrace(skip int) string {
	var sb strings.Builder
	for i := skip; i < skip+10; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			break
		}
		sb.WriteString(fmt.Sprintf("  %s:%d %s\n", file, line, fn.Name()))
	}
	return sb.String()
}

// New creates a new error with the given type, severity, and message
func New(errType ErrorType, severity Severity, message string) *Error {
	return &Error{
		Type:       errType,
		Severity:   severity,
		Message:    message,
		Context:    make(map[string]interface{}),
		StackTrace: captureStackTrace(2),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, severity Severity, message string) *Error {
	if err == nil {
		return nil
	}

	return &Error{
		Type:       errType,
		Severity:   severity,
		Message:    message,
		Cause:      err,
		Context:    make(map[string]interface{}),
		StackTrace: captureStackTrace(2),
	}
}

// Sentinel targets for errors.Is.
var (
	// ErrNotTrained is returned by prediction before any group or team has a model.
	ErrNotTrained = &Error{Type: ErrorTypePredictionInput, Code: "not_trained", Message: "model not trained yet"}
	// ErrNoOwnershipSource is returned when the ownership file is absent or has no rules.
	ErrNoOwnershipSource = &Error{Type: ErrorTypeConfig, Code: "no_ownership_source", Message: "ownership source is absent or empty"}
)

// Convenience constructors for common error types

// ConfigError creates a configuration error
func ConfigError(message string) *Error {
	return New(ErrorTypeConfig, SeverityCritical, message)
}

// ConfigErrorf creates a configuration error with formatting
func ConfigErrorf(format string, args ...interface{}) *Error {
	return New(ErrorTypeConfig, SeverityCritical, fmt.Sprintf(format, args...))
}

// NoOwnershipSource reports a missing or empty ownership file.
func NoOwnershipSource(source string) *Error {
	e := New(ErrorTypeConfig, SeverityCritical, ErrNoOwnershipSource.Message)
	e.Code = ErrNoOwnershipSource.Code
	return e.WithContext("source", source)
}

// ValidationError creates a validation error
func ValidationError(message string) *Error {
	return New(ErrorTypeValidation, SeverityHigh, message)
}

// ValidationErrorf creates a validation error with formatting
func ValidationErrorf(format string, args ...interface{}) *Error {
	return New(ErrorTypeValidation, SeverityHigh, fmt.Sprintf(format, args...))
}

// InsufficientData reports a group or team skipped for lack of samples.
func InsufficientData(target string, total, positive, negative int) *Error {
	return New(ErrorTypeInsufficientData, SeverityLow,
		fmt.Sprintf("insufficient samples for %s (total=%d positive=%d negative=%d)", target, total, positive, negative)).
		WithContext("target", target).
		WithContext("total", total).
		WithContext("positive", positive).
		WithContext("negative", negative)
}

// UpstreamError wraps a change-hosting API failure with the page it happened on
func UpstreamError(err error, page int, message string) *Error {
	e := Wrap(err, ErrorTypeUpstream, SeverityHigh, message)
	if e == nil {
		return nil
	}
	return e.WithContext("page", page)
}

// NotTrained creates a typed prediction failure for an untrained model store
func NotTrained() *Error {
	e := New(ErrorTypePredictionInput, SeverityHigh, ErrNotTrained.Message)
	e.Code = ErrNotTrained.Code
	return e
}

// PredictionInputErrorf creates a prediction input error with formatting
func PredictionInputErrorf(format string, args ...interface{}) *Error {
	return New(ErrorTypePredictionInput, SeverityHigh, fmt.Sprintf(format, args...))
}

// PersistenceError wraps a store read/write failure
func PersistenceError(err error, message string) *Error {
	return Wrap(err, ErrorTypePersistence, SeverityCritical, message)
}

// PersistenceErrorf wraps a store read/write failure with formatting
func PersistenceErrorf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, ErrorTypePersistence, SeverityCritical, fmt.Sprintf(format, args...))
}

// InternalError creates an internal error
func InternalError(message string) *Error {
	return New(ErrorTypeInternal, SeverityCritical, message)
}

// InternalErrorf creates an internal error with formatting
func InternalErrorf(format string, args ...interface{}) *Error {
	return New(ErrorTypeInternal, SeverityCritical, fmt.Sprintf(format, args...))
}

// IsFatal checks if an error is fatal (should stop execution)
func IsFatal(err error) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.IsFatal()
	}
	return false
}

// IsType reports whether err, or anything it wraps, is an *Error of the given type
func IsType(err error, t ErrorType) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type == t
	}
	return false
}

// GetSeverity returns the severity of an error
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityLow
	}

	var e *Error
	if stderrors.As(err, &e) {
		return e.Severity
	}

	return SeverityMedium
}

// GetType returns the type of an error
func GetType(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}

	return ErrorTypeInternal
}
