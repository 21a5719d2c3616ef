// Package errs defines the tagged error taxonomy shared by the order
// engine. Callers branch on Kind, never on message text.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation           Kind = "VALIDATION"
	KindCompatibilityDenied  Kind = "COMPATIBILITY_DENIED"
	KindInvalidTransition    Kind = "INVALID_TRANSITION"
	KindIdempotencyConflict  Kind = "IDEMPOTENCY_CONFLICT"
	KindIdempotencyInFlight  Kind = "IDEMPOTENCY_IN_FLIGHT"
	KindUnresolvedPayment    Kind = "UNRESOLVED_PAYMENT_EVENT"
	KindRefundExceedsBalance Kind = "REFUND_EXCEEDS_BALANCE"
	KindExternalProcessor    Kind = "EXTERNAL_PROCESSOR"
	KindNotFound             Kind = "NOT_FOUND"
	KindUnauthorized         Kind = "UNAUTHORIZED"
	KindInternal             Kind = "INTERNAL"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error

	// Retryable marks transient external-processor failures. It is only
	// meaningful for KindExternalProcessor.
	Retryable bool
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Internal wraps a storage or infrastructure failure so raw driver errors
// never cross the engine boundary.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", Err: err}
}

// KindOf extracts the kind from err, or KindInternal for untagged errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps an error kind to the status code the REST surface returns.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindCompatibilityDenied, KindRefundExceedsBalance:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidTransition, KindIdempotencyConflict, KindIdempotencyInFlight:
		return http.StatusConflict
	case KindExternalProcessor:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
