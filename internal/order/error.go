package order

import "errors"

var (
	// ErrAlreadyPaid marks an UNPAID->PAID conditional write that found the
	// order paid already. Callers treat it as a replay, not a failure.
	ErrAlreadyPaid = errors.New("order already paid")

	// ErrRefundRaced marks a refund conditional write that lost to a
	// concurrent refund on the same order.
	ErrRefundRaced = errors.New("refund state changed concurrently")
)
