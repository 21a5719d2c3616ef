package order

import (
	"tabletap-be/internal/errs"
	"tabletap-be/internal/venue"
)

// CheckCompatibility decides whether a (fulfillment, qrType, paymentMethod)
// combination is legal for a venue. Pure rule table, evaluated server-side
// on every creation; a client's own legality claim is never trusted.
func CheckCompatibility(f FulfillmentType, q QRType, m PaymentMethod, cfg venue.Config) error {
	switch f {
	case FulfillmentTable, FulfillmentCounter:
	default:
		return errs.Newf(errs.KindValidation, "unknown fulfillment type %q", f)
	}

	switch q {
	case QRDineIn, QRReservation, QRCollection:
	default:
		return errs.Newf(errs.KindValidation, "unknown qr type %q", q)
	}

	switch m {
	case PayNow, PayAtTill, PayLater:
	default:
		return errs.Newf(errs.KindValidation, "unknown payment method %q", m)
	}

	// Reservation entries are table service by definition.
	if q == QRReservation && f != FulfillmentTable {
		return errs.New(errs.KindCompatibilityDenied,
			"reservation orders must be table fulfillment")
	}

	// Deferred payment needs an open tab, which only table service has,
	// unless the venue explicitly runs counter tabs.
	if m == PayLater && f == FulfillmentCounter && !cfg.AllowDeferredCounter {
		return errs.New(errs.KindCompatibilityDenied,
			"deferred payment is not available for counter orders")
	}

	// Collection from a table order walks the guest to the till anyway, but
	// venues opt into that flow explicitly.
	if f == FulfillmentTable && RequiresCollection(q) && m == PayAtTill &&
		!cfg.AllowTillForTableCollection {
		return errs.New(errs.KindCompatibilityDenied,
			"pay at till is not available for table orders requiring collection")
	}

	return nil
}

// RequiresCollection derives the collection flag from how the order entered
// the system.
func RequiresCollection(q QRType) bool {
	return q == QRCollection
}
