package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/NuHepMC/ReferenceImplementation/pkg/rules"
)

// Failure is a violated requirement or a declared convention that does not
// hold. It is fatal for the file.
type Failure struct {
	Rule     rules.ID
	Message  string
	HasEvent bool
	Event    int
	Cause    error
}

// Fail creates a Failure for rule.
func Fail(rule rules.ID, format string, args ...any) *Failure {
	return &Failure{Rule: rule, Message: fmt.Sprintf(format, args...)}
}

// Failf wraps cause in a Failure for rule. The cause is kept in the chain.
func Failf(rule rules.ID, cause error, format string, args ...any) *Failure {
	return &Failure{Rule: rule, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// ForEvent tags the failure with an event number.
func (f *Failure) ForEvent(number int) *Failure {
	f.HasEvent = true
	f.Event = number
	return f
}

// Category is derived from the rule identifier.
func (f *Failure) Category() rules.Category {
	return f.Rule.Category()
}

func (f *Failure) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s failed", f.Rule, f.Category())
	if f.HasEvent {
		fmt.Fprintf(&sb, " in event %d", f.Event)
	}
	if f.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(f.Message)
	}
	if f.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(f.Cause.Error())
	}
	return sb.String()
}

func (f *Failure) Unwrap() error {
	return f.Cause
}

// Is matches another *Failure for the same rule.
func (f *Failure) Is(target error) bool {
	if t, ok := target.(*Failure); ok {
		return f.Rule == t.Rule
	}
	return false
}

// CauseChain returns the messages of the wrapped causes, outermost first.
// A cause that is not an *Error ends the chain with its full message.
func (f *Failure) CauseChain() []string {
	var chain []string
	for err := f.Cause; err != nil; {
		e, ok := err.(*Error)
		if !ok {
			chain = append(chain, err.Error())
			break
		}
		chain = append(chain, e.head())
		err = e.Cause
	}
	return chain
}

// AsFailure extracts a Failure from err.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// Warning is advisory. It never aborts validation.
type Warning struct {
	Rule    rules.ID
	Message string
}

// Warn creates a Warning for rule.
func Warn(rule rules.ID, format string, args ...any) Warning {
	return Warning{Rule: rule, Message: fmt.Sprintf(format, args...)}
}

func (w Warning) String() string {
	return fmt.Sprintf("[%s] %s", w.Rule, w.Message)
}
