package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tabletap-be/internal/auth"
	"tabletap-be/internal/logger"
	"tabletap-be/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthMiddleware(t *testing.T) {
	secret := []byte("test-secret")

	t.Run("ValidToken", func(t *testing.T) {
		tokenStr, err := auth.IssueToken(secret, "staff-1", "venue-1", utils.RoleManager, time.Hour)
		require.NoError(t, err)

		var gotVenue, gotRole string
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotVenue, _ = utils.GetVenueIDFromContext(r.Context())
			gotRole = utils.GetRoleFromContext(r.Context())
		})

		req := httptest.NewRequest(http.MethodPost, "/orders", nil)
		req.Header.Set("Authorization", "Bearer "+tokenStr)

		AuthMiddleware(secret)(next).ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, "venue-1", gotVenue)
		assert.Equal(t, utils.RoleManager, gotRole)
	})

	t.Run("InvalidTokenPassesThroughUnauthenticated", func(t *testing.T) {
		var hasStaff bool
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, hasStaff = utils.GetStaffIDFromContext(r.Context())
		})

		req := httptest.NewRequest(http.MethodPost, "/orders", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")

		AuthMiddleware(secret)(next).ServeHTTP(httptest.NewRecorder(), req)

		assert.False(t, hasStaff)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RateLimitMiddleware(next)

	t.Run("StrictTierThrottlesWebhooks", func(t *testing.T) {
		var last int
		for i := 0; i < burstStrict+1; i++ {
			req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", nil)
			req.Header.Set("X-Device-ID", "limiter-test-device")
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			last = w.Code
		}
		assert.Equal(t, http.StatusTooManyRequests, last)
	})

	t.Run("GeneralTierAllowsBurst", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/orders/abc", nil)
		req.Header.Set("X-Device-ID", "limiter-test-device-2")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestChain(t *testing.T) {
	secret := []byte("test-secret")

	t.Run("StaffIdentityKeysTheLimiter", func(t *testing.T) {
		tokenStr, err := auth.IssueToken(secret, "staff-chain-1", "venue-1", utils.RoleStaff, time.Hour)
		require.NoError(t, err)

		handler := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}), secret)

		// Rotating device ids would dodge a device-keyed limiter; the
		// authenticated identity must still throttle.
		var last int
		for i := 0; i < burstStrict+1; i++ {
			req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", nil)
			req.Header.Set("Authorization", "Bearer "+tokenStr)
			req.Header.Set("X-Device-ID", fmt.Sprintf("chain-device-%d", i))
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			last = w.Code
		}
		assert.Equal(t, http.StatusTooManyRequests, last)
	})

	t.Run("ContextReachesTheHandler", func(t *testing.T) {
		tokenStr, err := auth.IssueToken(secret, "staff-chain-2", "venue-1", utils.RoleManager, time.Hour)
		require.NoError(t, err)

		var gotStaff, gotRequestID string
		handler := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotStaff, _ = utils.GetStaffIDFromContext(r.Context())
			gotRequestID = logger.RequestIDFrom(r.Context())
		}), secret)

		req := httptest.NewRequest(http.MethodGet, "/orders/ord-1", nil)
		req.Header.Set("Authorization", "Bearer "+tokenStr)
		req.Header.Set("X-Request-ID", "req-chain-1")

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, "staff-chain-2", gotStaff)
		assert.Equal(t, "req-chain-1", gotRequestID)
		assert.Equal(t, "req-chain-1", w.Header().Get("X-Request-ID"))
	})
}

func TestLoggingMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	w := httptest.NewRecorder()
	LoggingMiddleware(next).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/orders", nil))

	assert.Equal(t, http.StatusCreated, w.Code)
}
