// Package errs classifies the failures a benchmark run can hit.
//
// Every terminal error returned by the benchmark carries a Kind so the CLI
// can report it uniformly. OptionalFeatureFailure is the only kind that is
// logged and swallowed instead of aborting the run.
package errs

import (
	stderrors "errors"
	"fmt"
)

// Kind represents a failure classification.
type Kind string

const (
	// MetadataUnavailable indicates the instance metadata service could not
	// provide an instance ID.
	MetadataUnavailable Kind = "MetadataUnavailable"
	// ProviderAPIError indicates a describe, create or register call failed.
	ProviderAPIError Kind = "ProviderAPIError"
	// WaiterTimeout indicates a poll-until-ready wait exhausted its budget.
	WaiterTimeout Kind = "WaiterTimeout"
	// ResourceFailed indicates a waited-on snapshot or image entered a failure state.
	ResourceFailed Kind = "ResourceFailed"
	// Canceled indicates the run was interrupted while waiting.
	Canceled Kind = "Canceled"
	// OptionalFeatureFailure indicates fast snapshot restore could not be enabled.
	OptionalFeatureFailure Kind = "OptionalFeatureFailure"
	// LocalResourceError indicates the data file could not be written.
	LocalResourceError Kind = "LocalResourceError"
)

// Error is a classified failure with the operation that produced it.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", e.Op, msg)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause for errors.Is and errors.As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an Error without a cause.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap creates an Error around cause.
func Wrap(kind Kind, op, message string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Cause: cause}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
