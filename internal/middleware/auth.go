package middleware

import (
	"net/http"

	"tabletap-be/internal/auth"
	"tabletap-be/internal/utils"
)

// AuthMiddleware resolves the staff identity from the access token and puts
// it into the request context. Unauthenticated requests pass through; the
// handlers decide what requires an identity.
func AuthMiddleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := auth.ExtractAccessToken(r)
			if tokenStr == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := auth.ParseToken(secret, tokenStr)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := utils.SetStaffContext(r.Context(), claims.StaffID, claims.VenueID, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
