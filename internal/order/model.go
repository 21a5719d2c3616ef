package order

import "time"

type Status string

const (
	StatusPlaced    Status = "PLACED"
	StatusInPrep    Status = "IN_PREP"
	StatusReady     Status = "READY"
	StatusServing   Status = "SERVING"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// predecessor maps each advanceable status to the only status it may be
// entered from. COMPLETED goes through Complete, CANCELLED through Cancel.
var predecessor = map[Status]Status{
	StatusInPrep:  StatusPlaced,
	StatusReady:   StatusInPrep,
	StatusServing: StatusReady,
}

// Predecessor returns the direct prior status for an advance target, and
// whether next is a legal advance target at all.
func Predecessor(next Status) (Status, bool) {
	prev, ok := predecessor[next]
	return prev, ok
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type PaymentStatus string

const (
	PaymentUnpaid            PaymentStatus = "UNPAID"
	PaymentPaid              PaymentStatus = "PAID"
	PaymentPartiallyRefunded PaymentStatus = "PARTIALLY_REFUNDED"
	PaymentRefunded          PaymentStatus = "REFUNDED"
)

type PaymentMethod string

const (
	PayNow    PaymentMethod = "PAY_NOW"     // online, settled via the processor
	PayAtTill PaymentMethod = "PAY_AT_TILL" // offline, settled at the till
	PayLater  PaymentMethod = "PAY_LATER"   // deferred, settled when the tab closes
)

type FulfillmentType string

const (
	FulfillmentTable   FulfillmentType = "table"
	FulfillmentCounter FulfillmentType = "counter"
)

// QRType tags how the order entered the system; it gates which payment
// methods are legal for the venue.
type QRType string

const (
	QRDineIn      QRType = "DINE_IN"
	QRReservation QRType = "DINE_IN_RESERVATION"
	QRCollection  QRType = "COLLECTION"
)

type Item struct {
	SKU       *string `json:"sku,omitempty"`
	Name      string  `json:"name"`
	UnitPrice int64   `json:"unit_price"`
	Quantity  int     `json:"quantity"`
	Note      *string `json:"note,omitempty"`
}

// Subtotal is the line total in minor currency units.
func (i Item) Subtotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

// Order is the central aggregate. Status and PaymentStatus change only
// through the service's transition operations; every write is an atomic
// conditional update at the repository.
type Order struct {
	ID      string
	VenueID string

	FulfillmentType    FulfillmentType
	TableRef           *string
	QRType             QRType
	RequiresCollection bool

	Items       []Item
	TotalAmount int64
	Currency    string

	Status        Status
	PaymentStatus PaymentStatus
	PaymentMethod PaymentMethod

	CustomerName  string
	CustomerPhone string

	ExternalSessionRef *string
	ExternalPaymentRef *string

	RefundRef    *string
	RefundAmount int64
	RefundReason *string

	CancelReason *string
	ForcedBy     *string
	ForcedReason *string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
	RefundedAt  *time.Time
}

// RefundableBalance is what remains refundable in minor units.
func (o *Order) RefundableBalance() int64 {
	return o.TotalAmount - o.RefundAmount
}
