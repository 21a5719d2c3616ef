package utils

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStaffContext(t *testing.T) {
	ctx := SetStaffContext(context.Background(), "staff-1", "venue-1", RoleManager)

	id, ok := GetStaffIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "staff-1", id)

	venue, ok := GetVenueIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "venue-1", venue)

	assert.True(t, IsManager(ctx))

	_, ok = GetStaffIDFromContext(context.Background())
	assert.False(t, ok)
	assert.False(t, IsManager(context.Background()))
}

func TestFingerprint(t *testing.T) {
	type payload struct {
		VenueID string `json:"venue_id"`
		Total   int64  `json:"total"`
	}

	a := Fingerprint(payload{VenueID: "v1", Total: 1000})
	b := Fingerprint(payload{VenueID: "v1", Total: 1000})
	c := Fingerprint(payload{VenueID: "v1", Total: 1001})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestWriteJSONError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSONError(w, "bad input", 400)

	assert.Equal(t, 400, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"bad input"}`, w.Body.String())
}
