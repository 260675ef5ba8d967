// Package apperr defines the closed set of error kinds the core services
// surface to callers. Business failures always map to one of the four kinds
// below; anything else (storage faults, programming errors) is Internal.
package apperr

import "errors"

type Kind string

const (
	KindNotFound   Kind = "not_found"
	KindBadRequest Kind = "bad_request"
	KindForbidden  Kind = "forbidden"
	KindConflict   Kind = "conflict"
	KindInternal   Kind = "internal"
)

// Error carries a stable kind plus a human-readable message. Details is
// optional structured context rendered to the caller as-is.
type Error struct {
	Kind    Kind
	Message string
	Details any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return string(e.Kind) + ": " + e.Message + ": " + e.cause.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.cause }

func NotFound(message string) *Error   { return &Error{Kind: KindNotFound, Message: message} }
func BadRequest(message string) *Error { return &Error{Kind: KindBadRequest, Message: message} }
func Forbidden(message string) *Error  { return &Error{Kind: KindForbidden, Message: message} }
func Conflict(message string) *Error   { return &Error{Kind: KindConflict, Message: message} }

// Internal wraps an infrastructure fault. The cause stays available for logs
// but is never rendered to the caller.
func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", cause: cause}
}

// KindOf classifies any error. Errors that are not *Error are infrastructure
// faults and report KindInternal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// As is a convenience wrapper around errors.As for the common handler path.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
