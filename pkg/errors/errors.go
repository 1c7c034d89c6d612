// Package errors provides the structured errors of the validator: coded
// errors for attribute access and stream handling, and the Failure and
// Warning values a validation produces.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
)

// Code classifies an Error for programmatic handling.
type Code string

const (
	// Attribute errors (0xx)
	CodeNullEntity       Code = "A001"
	CodeMissingAttribute Code = "A002"
	CodeAttributeType    Code = "A003"

	// Source and stream errors (1xx)
	CodeOpenFailed   Code = "S101"
	CodeUnrecognized Code = "S102"
	CodeReadFailed   Code = "S103"
	CodeMalformed    Code = "S104"
	CodeWriteFailed  Code = "S105"

	// Configuration errors
	CodeInvalidConfig Code = "C001"

	// System errors (4xx)
	CodeContextCanceled Code = "X401"

	// Unknown
	CodeUnknown Code = "E999"
)

// Error is the base error type for everything that is not a rule outcome.
type Error struct {
	Code       Code
	Message    string
	Cause      error
	Context    map[string]any
	StackTrace []Frame
}

// Frame represents a stack frame.
type Frame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface. Context keys are printed in sorted
// order.
func (e *Error) Error() string {
	if e.Cause == nil {
		return e.head()
	}
	return e.head() + ": " + e.Cause.Error()
}

// head renders the code, message and context without the cause.
func (e *Error) head() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s", e.Code, e.Message)

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%s=%v", k, e.Context[k])
		}
		sb.WriteString(")")
	}
	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error with the same code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithContext adds context to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// New creates a new Error.
func New(code Code, message string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		StackTrace: captureStack(2),
	}
}

// Wrap wraps an existing error. It returns nil when err is nil.
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}

	return &Error{
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: captureStack(2),
	}
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

func captureStack(skip int) []Frame {
	var frames []Frame
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip+1, pcs)
	pcs = pcs[:n]

	cf := runtime.CallersFrames(pcs)
	for {
		frame, more := cf.Next()
		frames = append(frames, Frame{
			Function: frame.Function,
			File:     frame.File,
			Line:     frame.Line,
		})
		if !more || len(frames) >= 10 {
			break
		}
	}
	return frames
}

// FormatStack returns a formatted stack trace.
func (e *Error) FormatStack() string {
	var sb strings.Builder
	for _, f := range e.StackTrace {
		fmt.Fprintf(&sb, "  at %s\n    %s:%d\n", f.Function, f.File, f.Line)
	}
	return sb.String()
}

// --- Convenience constructors ---

// NullEntity reports an attribute lookup on an absent entity.
func NullEntity(name string) *Error {
	return New(CodeNullEntity, "attribute lookup on an absent entity").
		WithContext("attribute", name)
}

// MissingAttribute reports an attribute that is not stored on the entity.
// known lists the attributes that are.
func MissingAttribute(name string, known []string) *Error {
	return New(CodeMissingAttribute, "attribute not found").
		WithContext("attribute", name).
		WithContext("known", known)
}

// AttributeType reports an attribute stored as a different type than requested.
func AttributeType(name, requested string, cause error) *Error {
	e := New(CodeAttributeType, "attribute has unexpected type").
		WithContext("attribute", name).
		WithContext("requested", requested)
	e.Cause = cause
	return e
}

// OpenFailed reports a source that could not be opened.
func OpenFailed(location string, err error) *Error {
	return Wrap(err, CodeOpenFailed, "cannot open record file").
		WithContext("location", location)
}

// Unrecognized reports content that is not a supported record format.
func Unrecognized(location, reason string) *Error {
	return New(CodeUnrecognized, "unrecognized record format").
		WithContext("location", location).
		WithContext("reason", reason)
}

// ReadFailed reports a record stream that failed mid-read.
func ReadFailed(err error) *Error {
	return Wrap(err, CodeReadFailed, "reading record stream")
}

// Malformed reports an unparsable record at a line.
func Malformed(line int, record, reason string) *Error {
	return New(CodeMalformed, reason).
		WithContext("line", line).
		WithContext("record", record)
}

// InvalidConfig reports a configuration value out of its domain.
func InvalidConfig(field string, value any, reason string) *Error {
	return New(CodeInvalidConfig, reason).
		WithContext("field", field).
		WithContext("value", value)
}

// ContextCanceled creates a cancellation error.
func ContextCanceled(operation string, cause error) *Error {
	e := New(CodeContextCanceled, "operation canceled").
		WithContext("operation", operation)
	e.Cause = cause
	return e
}

// --- Error checking utilities ---

// IsCode checks if an error has a specific code.
func IsCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// IsAttributeError reports whether err is one of the attribute access errors.
func IsAttributeError(err error) bool {
	switch GetCode(err) {
	case CodeNullEntity, CodeMissingAttribute, CodeAttributeType:
		return true
	}
	return false
}

// MultiError collects multiple errors.
type MultiError struct {
	Errors []error
}

// Error implements the error interface.
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d errors occurred:\n", len(m.Errors))
	for i, err := range m.Errors {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// Add adds an error to the collection.
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// HasErrors returns true if any errors were collected.
func (m *MultiError) HasErrors() bool {
	return len(m.Errors) > 0
}

// Combined returns nil if no errors, the single error if one, or the MultiError.
func (m *MultiError) Combined() error {
	switch len(m.Errors) {
	case 0:
		return nil
	case 1:
		return m.Errors[0]
	default:
		return m
	}
}
