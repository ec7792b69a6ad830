// Package sdlcerrors provides the discriminated-sum error taxonomy shared by every
// component of the orchestration core. Errors are classified by Kind rather than by
// concrete Go type, so callers can branch on "what kind of failure is this" without
// type-asserting against every package's sentinel type.
package sdlcerrors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure by the taxonomy in the error handling design: callers
// match on Kind, not on the concrete error type, to decide whether a failure is
// fatal to the caller, recoverable at the engine level, or a clean non-crashing stop.
type Kind int

const (
	// KindUnknown is the zero value; never returned by a constructor below.
	KindUnknown Kind = iota
	// KindConfiguration covers registry file missing/malformed, invalid YAML,
	// duplicate ids. Fatal to the caller creating the Registry.
	KindConfiguration
	// KindRouting covers an unusable or UNKNOWN LLM routing response.
	KindRouting
	// KindSessionAssembly covers repo-not-found and missing required external
	// credentials during prepareSession.
	KindSessionAssembly
	// KindBudget covers BudgetExceededError / ContextBudgetError.
	KindBudget
	// KindFirewall covers max-active-contexts exceeded, completing an unknown fork.
	KindFirewall
	// KindTool covers unknown tool name, schema-validation failure.
	KindTool
	// KindTestExecution covers non-zero exit, timeout, runner exceptions.
	KindTestExecution
	// KindSoft covers malformed finding, unknown category: logged and skipped,
	// never fatal. Rarely returned as an error value; mostly used for logging.
	KindSoft
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindRouting:
		return "routing"
	case KindSessionAssembly:
		return "session_assembly"
	case KindBudget:
		return "budget"
	case KindFirewall:
		return "firewall"
	case KindTool:
		return "tool"
	case KindTestExecution:
		return "test_execution"
	case KindSoft:
		return "soft"
	default:
		return "unknown"
	}
}

// Error is the structured failure type returned by every package in the core. It
// preserves a message and an optional cause while still implementing the standard
// error interface, so error chains survive errors.Is/errors.As across component
// boundaries.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// New constructs an Error of the given kind with the provided message.
func New(kind Kind, message string) *Error {
	if message == "" {
		message = kind.String() + " error"
	}
	return &Error{Kind: kind, Message: message}
}

// Newf formats according to a format specifier and returns the result as an Error
// of the given kind.
func Newf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap constructs an Error of the given kind that wraps an underlying cause.
func Wrap(kind Kind, message string, cause error) *Error {
	if message == "" && cause != nil {
		message = cause.Error()
	}
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Cause.Error())
	}
	return e.Message
}

// Unwrap returns the underlying cause to support errors.Is/errors.As.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is reports whether target is an *Error with the same Kind, in addition to the
// default errors.Is identity comparison on the receiver's Cause chain.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// KindOf extracts the Kind of err, walking the Unwrap chain, or KindUnknown if err
// does not wrap an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
