package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	t.Run("Tagged", func(t *testing.T) {
		err := New(KindInvalidTransition, "order already advanced")
		assert.Equal(t, KindInvalidTransition, KindOf(err))
		assert.True(t, Is(err, KindInvalidTransition))
	})

	t.Run("WrappedTagged", func(t *testing.T) {
		err := fmt.Errorf("handler: %w", New(KindRefundExceedsBalance, "refund too large"))
		assert.Equal(t, KindRefundExceedsBalance, KindOf(err))
	})

	t.Run("Untagged", func(t *testing.T) {
		assert.Equal(t, KindInternal, KindOf(errors.New("driver: bad connection")))
	})
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("sql: no rows")
	err := Wrap(KindNotFound, "order not found", cause)
	assert.ErrorIs(t, err, cause)
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		kind Kind
		want int
	}{
		{KindValidation, http.StatusBadRequest},
		{KindCompatibilityDenied, http.StatusBadRequest},
		{KindRefundExceedsBalance, http.StatusBadRequest},
		{KindUnauthorized, http.StatusForbidden},
		{KindNotFound, http.StatusNotFound},
		{KindInvalidTransition, http.StatusConflict},
		{KindIdempotencyConflict, http.StatusConflict},
		{KindExternalProcessor, http.StatusBadGateway},
		{KindInternal, http.StatusInternalServerError},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, HTTPStatus(New(c.kind, "x")), string(c.kind))
	}
}
