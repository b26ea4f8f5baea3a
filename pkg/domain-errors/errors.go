// Package domainerrors defines the code-based error taxonomy shared by all
// lifecycle services. Errors are values returned to the caller, never
// panicked: the engine is a decision layer embedded in a request/response
// flow, and the caller decides whether a code is retryable
// (stale_transition), user-facing (invalid_transition, out_of_range) or a
// data-integrity bug to log (not_found, missing_prerequisite).
package domainerrors

import "errors"

// Code identifies the class of a domain error.
type Code string

const (
	// CodeNotFound signals the referenced row does not exist.
	CodeNotFound Code = "not_found"
	// CodeInvalidTransition signals the operation's state precondition is
	// not met (e.g. submitting an evaluation before its window opens).
	CodeInvalidTransition Code = "invalid_transition"
	// CodeStaleTransition signals the precondition held at read time but a
	// concurrent mutation won the race. Safe to retry after a re-read.
	CodeStaleTransition Code = "stale_transition"
	// CodeOutOfRange signals a score/percentage outside [0,100] or a
	// negative duration parameter.
	CodeOutOfRange Code = "out_of_range"
	// CodeMissingPrerequisite signals a derived value was requested before
	// its inputs exist (e.g. evaluation window before training completion).
	CodeMissingPrerequisite Code = "missing_prerequisite"

	// CodeInvalidInput covers malformed external input at trust boundaries.
	CodeInvalidInput Code = "invalid_input"
	// CodeBadRequest covers unparseable transport-level requests.
	CodeBadRequest Code = "bad_request"
	// CodeUnauthorized covers missing or invalid credentials.
	CodeUnauthorized Code = "unauthorized"
	// CodeInternal covers unexpected infrastructure failures. Details are
	// never surfaced to clients.
	CodeInternal Code = "internal_error"
)

// Error carries a code plus a human-readable message and optionally wraps an
// underlying cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying cause so infrastructure
// errors can cross the service boundary with a stable classification.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// HasCode reports whether err is (or wraps) a domain error with the code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for
// unclassified errors so transport layers always have something to map.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
