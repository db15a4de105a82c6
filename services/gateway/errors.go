package gateway

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a gateway failure for the caller's handling policy.
type ErrorKind string

const (
	// KindValidation covers malformed identifiers and missing required fields.
	KindValidation ErrorKind = "validation"
	// KindAuth means the session is invalid or expired; re-authenticate before retrying.
	KindAuth ErrorKind = "authentication"
	// KindNotFound means the reservation or resource does not exist.
	KindNotFound ErrorKind = "notFound"
	// KindConflict means the requested interval overlaps an existing booking.
	KindConflict ErrorKind = "conflict"
	// KindTransport covers network failures and 5xx responses. Retry policy
	// belongs to the orchestrator, never to the gateway.
	KindTransport ErrorKind = "transport"
)

// Error is the structured outcome of a failed backend call.
type Error struct {
	Kind    ErrorKind
	Status  int
	Message string
	Ref     string
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewValidationError reports a malformed request before any network call.
func NewValidationError(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

// KindOf extracts the error kind, or KindTransport for untyped failures.
func KindOf(err error) ErrorKind {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Kind
	}
	return KindTransport
}
