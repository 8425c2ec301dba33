package errx

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can recover at the right boundary
// without string matching.
type Kind string

const (
	// KindMalformedDecision marks classifier output that did not conform to
	// the two-field routing decision contract.
	KindMalformedDecision Kind = "malformed_decision"
	// KindParse marks an operation input that could not be interpreted.
	KindParse Kind = "parse_error"
	// KindDomain marks an operation input that parsed but cannot be evaluated.
	KindDomain Kind = "domain_error"
	// KindTimeout marks an operation handler that exceeded its time budget.
	KindTimeout Kind = "timeout"
	// KindUnknownTool marks a tool or operation name outside the known set.
	KindUnknownTool Kind = "unknown_tool"
	// KindContextFetch marks a scratch pad lookup failure; callers degrade
	// to operating without context.
	KindContextFetch Kind = "context_fetch"
	// KindStorage marks conversation store failures.
	KindStorage Kind = "storage"
	// KindInternal is the fallback for everything else.
	KindInternal Kind = "internal"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "redis key not found"
)

// Error wraps an underlying error with a kind and a terse, non-technical
// message safe to surface to the model for narration.
type Error struct {
	Err     error
	Kind    Kind
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new Error with the provided information.
func New(err error, kind Kind, message string) *Error {
	return &Error{
		Err:     err,
		Kind:    kind,
		Message: message,
	}
}

// Newf creates a new Error with a formatted message and no wrapped cause.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// Is reports whether the target matches the underlying error or the Error itself.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// As allows casting to Error or the wrapped error in a chain.
func (e *Error) As(target any) bool {
	if errors.As(e.Err, target) {
		return true
	}
	if t, ok := target.(**Error); ok {
		*t = e
		return true
	}
	return false
}

// KindOf extracts the Kind from an error chain, defaulting to KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// SafeMessage returns the terse message from an Error chain, or the generic
// system message for unclassified errors.
func SafeMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return SystemErrorMessage
}
