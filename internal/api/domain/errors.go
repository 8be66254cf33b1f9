package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is the stable machine-readable classification returned to
// callers. Handlers map kinds to HTTP status codes; services never
// expose internal error text beyond the kind's message.
type ErrorKind string

const (
	KindValidation          ErrorKind = "validation_error"
	KindUnauthenticated     ErrorKind = "unauthenticated"
	KindUnauthorized        ErrorKind = "unauthorized"
	KindPreconditionFailed  ErrorKind = "precondition_failed"
	KindNotFound            ErrorKind = "not_found"
	KindInvalidTransition   ErrorKind = "invalid_transition"
	KindUpstreamUnavailable ErrorKind = "upstream_unavailable"
	KindInsufficientFunds   ErrorKind = "insufficient_funds"
)

// Error carries a kind plus a human-readable message and optionally
// wraps the underlying cause.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E creates a new domain error.
func E(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a new domain error wrapping cause.
func Wrap(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// KindOf extracts the kind from err, or empty if err carries none.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

var (
	// ErrJobNotFound covers both absence and present-but-not-owned,
	// so an unauthorized caller cannot probe for existence.
	ErrJobNotFound = E(KindNotFound, "job not found")

	// ErrJobConflict is returned when a conditional update matched no
	// row: the job is gone, not owned by the caller, or no longer in
	// the status the transition requires.
	ErrJobConflict = E(KindPreconditionFailed, "job not found or not in required status")

	ErrMessageNotFound = E(KindNotFound, "conversation not found")
	ErrReviewExists    = E(KindPreconditionFailed, "job already reviewed")
)
