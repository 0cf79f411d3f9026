// Package apperr defines the typed error kinds shared across IdeaGraph's
// core packages (spec.md §7). Errors are classified by kind rather than by
// Go type hierarchy so that callers at a boundary (CLI exit code, HTTP
// response) can map a kind to a sanitized, user-visible message without
// leaking internal detail.
package apperr

import "fmt"

// Kind is a closed set of error classifications.
type Kind string

const (
	// KindTransient covers network errors, 5xx responses, and rate limits.
	// Callers should retry (poller: next tick; request handler: backoff).
	KindTransient Kind = "transient_external"
	// KindPermanent covers 4xx auth/validation failures from an external
	// collaborator. Logged in full server-side, sanitized to the caller.
	KindPermanent Kind = "permanent_external"
	// KindMalformedAI covers unparsable or schema-invalid agent output.
	// Never propagated raw; callers fall back to a structural default.
	KindMalformedAI = "malformed_ai_output"
	// KindConflict covers domain invariant violations (duplicate short-id,
	// Item parent cycle).
	KindConflict Kind = "domain_conflict"
	// KindDisabled covers a feature whose Settings toggle is off.
	KindDisabled Kind = "feature_disabled"
	// KindCancelled covers a caller-cancelled operation.
	KindCancelled Kind = "cancelled"
)

// Error is the shared error shape. Message is safe to show a user; Err (if
// set) carries the internal detail for server-side logs and is never
// serialized.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an *Error of the given kind around an underlying error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Disabled builds the standard feature_disabled error for a named toggle.
func Disabled(feature string) *Error {
	return New(KindDisabled, fmt.Sprintf("%s is disabled in settings", feature))
}

// UserMessage returns the sanitized {kind, user_message} pair described in
// spec.md §7 — never a stack trace, hostname, or key.
func UserMessage(err error) (Kind, string) {
	var ae *Error
	if as(err, &ae) {
		switch ae.Kind {
		case KindTransient:
			return ae.Kind, "a dependent service is temporarily unavailable, please retry"
		case KindPermanent:
			return ae.Kind, "the request could not be completed: " + ae.Message
		case KindMalformedAI:
			return ae.Kind, "the assistant could not produce a usable result"
		case KindConflict:
			return ae.Kind, ae.Message
		case KindDisabled:
			return ae.Kind, ae.Message
		case KindCancelled:
			return ae.Kind, "operation was cancelled"
		}
	}
	return "", "an internal error occurred"
}

// as is a tiny indirection so UserMessage can be unit-tested without
// importing errors in callers that only need the struct above.
func as(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
