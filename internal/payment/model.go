package payment

import (
	"encoding/json"
	"time"
)

// EventMetadata is what this system attached when it created the checkout
// session. Propagation through the processor is best-effort: either field
// may come back empty.
type EventMetadata struct {
	OrderID string `json:"orderId,omitempty"`
	VenueID string `json:"venueId,omitempty"`
}

// Event is an inbound processor webhook. Signature verification happens
// upstream; by the time an Event reaches the reconciliation handler it is
// authenticated but possibly redelivered.
type Event struct {
	Type        string        `json:"type"`
	SessionRef  string        `json:"sessionRef"`
	PaymentRef  string        `json:"paymentRef"`
	AmountTotal int64         `json:"amountTotal"`
	Metadata    EventMetadata `json:"metadata"`
}

const EventPaymentSucceeded = "payment.succeeded"

// Session is the processor's view of a checkout session.
type Session struct {
	Ref         string        `json:"ref"`
	PaymentRef  string        `json:"paymentRef"`
	Status      string        `json:"status"`
	AmountTotal int64         `json:"amountTotal"`
	Currency    string        `json:"currency"`
	Metadata    EventMetadata `json:"metadata"`
}

// UnresolvedEvent records a payment event that could not be confidently
// matched to an order. Money is never attributed to a guessed order; these
// rows queue for manual reconciliation.
type UnresolvedEvent struct {
	ID          string          `json:"id"`
	VenueID     *string         `json:"venueId,omitempty"`
	SessionRef  string          `json:"sessionRef"`
	PaymentRef  string          `json:"paymentRef"`
	AmountTotal int64           `json:"amountTotal"`
	Reason      string          `json:"reason"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	ReceivedAt  time.Time       `json:"receivedAt"`
}
