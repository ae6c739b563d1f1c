package apierr

import (
	"errors"
	"fmt"
)

// Kind is the application-level classification of a failed call.
type Kind string

// Error kinds. The string values appear in logs and in the status board JSON.
const (
	Unauthenticated   Kind = "unauthenticated"
	SessionExpired    Kind = "session_expired"
	BadRequest        Kind = "bad_request"
	Forbidden         Kind = "forbidden"
	ServerError       Kind = "server_error"
	HealthCheckFailed Kind = "health_check_failed"
	Unknown           Kind = "unknown"
)

// ErrInvalidRequest is returned when a request is handed to the pipeline
// without a usable path. It is never the result of a network exchange.
var ErrInvalidRequest = errors.New("invalid request")

// Error is a classified rejection.
//
// All WithX helpers return a shallow copy so an Error can be shared between
// goroutines and refined without affecting other holders.
type Error struct {
	// Kind is the taxonomy bucket; never empty.
	Kind Kind

	// Status is the envelope code or HTTP status that produced the error.
	// Zero when no response was received.
	Status int

	// Message is the human-readable text, taken from the backend "msg"
	// field when one was provided.
	Message string

	// Path is the request path the error belongs to.
	Path string

	// Cause is the underlying transport error, if any.
	Cause error
}

// E constructs an Error of the given kind.
func E(k Kind, status int, msg string) *Error {
	return &Error{Kind: k, Status: status, Message: msg}
}

// Error implements the error interface.
//
// Format: "<kind> (<status>) <path>: <message>", with empty parts omitted.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	s := string(e.Kind)
	if e.Status != 0 {
		s = fmt.Sprintf("%s (%d)", s, e.Status)
	}
	if e.Path != "" {
		s += " " + e.Path
	}
	if e.Message != "" {
		s += ": " + e.Message
	}
	if e.Cause != nil && e.Message == "" {
		s += ": " + e.Cause.Error()
	}
	return s
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Cause }

// WithPath returns a copy of e bound to the given request path.
func (e *Error) WithPath(path string) *Error {
	cp := *e
	cp.Path = path
	return &cp
}

// WithCause returns a copy of e wrapping err. A nil err returns e unchanged.
func (e *Error) WithCause(err error) *Error {
	if err == nil {
		return e
	}
	cp := *e
	cp.Cause = err
	return &cp
}

// KindOf returns the Kind of the first *Error in err's chain, or "" when err
// is nil or unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err is a classified error of kind k.
func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// RequiresLogin reports whether the kind is one that sends the user back to
// the login surface.
func (k Kind) RequiresLogin() bool {
	return k == Unauthenticated || k == SessionExpired
}
