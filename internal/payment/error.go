package payment

import "errors"

var (
	// ErrAlreadyRefunded is the processor's definitive rejection of a
	// refund that already happened upstream. Never retried; callers
	// reconcile local state instead.
	ErrAlreadyRefunded = errors.New("payment already refunded upstream")

	ErrSessionNotFound = errors.New("checkout session not found")
)
