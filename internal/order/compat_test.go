package order

import (
	"testing"

	"tabletap-be/internal/errs"
	"tabletap-be/internal/venue"

	"github.com/stretchr/testify/assert"
)

func TestCheckCompatibility(t *testing.T) {
	base := venue.Config{}

	cases := []struct {
		name string
		f    FulfillmentType
		q    QRType
		m    PaymentMethod
		cfg  venue.Config
		want errs.Kind
	}{
		{"TableDineInPayNow", FulfillmentTable, QRDineIn, PayNow, base, ""},
		{"TableDineInPayAtTill", FulfillmentTable, QRDineIn, PayAtTill, base, ""},
		{"TableDineInPayLater", FulfillmentTable, QRDineIn, PayLater, base, ""},
		{"CounterCollectionPayNow", FulfillmentCounter, QRCollection, PayNow, base, ""},
		{"CounterPayLaterDenied", FulfillmentCounter, QRDineIn, PayLater, base, errs.KindCompatibilityDenied},
		{"CounterPayLaterAllowedByFlag", FulfillmentCounter, QRDineIn, PayLater,
			venue.Config{AllowDeferredCounter: true}, ""},
		{"ReservationMustBeTable", FulfillmentCounter, QRReservation, PayNow, base, errs.KindCompatibilityDenied},
		{"TableCollectionTillDenied", FulfillmentTable, QRCollection, PayAtTill, base, errs.KindCompatibilityDenied},
		{"TableCollectionTillAllowedByFlag", FulfillmentTable, QRCollection, PayAtTill,
			venue.Config{AllowTillForTableCollection: true}, ""},
		{"UnknownFulfillment", FulfillmentType("drive_through"), QRDineIn, PayNow, base, errs.KindValidation},
		{"UnknownQRType", FulfillmentTable, QRType("KIOSK"), PayNow, base, errs.KindValidation},
		{"UnknownMethod", FulfillmentTable, QRDineIn, PaymentMethod("CRYPTO"), base, errs.KindValidation},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := CheckCompatibility(c.f, c.q, c.m, c.cfg)
			if c.want == "" {
				assert.NoError(t, err)
			} else {
				assert.Equal(t, c.want, errs.KindOf(err))
			}
		})
	}
}

func TestRequiresCollection(t *testing.T) {
	assert.True(t, RequiresCollection(QRCollection))
	assert.False(t, RequiresCollection(QRDineIn))
	assert.False(t, RequiresCollection(QRReservation))
}

func TestPredecessor(t *testing.T) {
	prev, ok := Predecessor(StatusInPrep)
	assert.True(t, ok)
	assert.Equal(t, StatusPlaced, prev)

	prev, ok = Predecessor(StatusServing)
	assert.True(t, ok)
	assert.Equal(t, StatusReady, prev)

	// PLACED is a creation state, terminal states are not advance targets.
	for _, s := range []Status{StatusPlaced, StatusCompleted, StatusCancelled} {
		_, ok := Predecessor(s)
		assert.False(t, ok, string(s))
	}
}
