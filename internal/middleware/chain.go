package middleware

import (
	"net/http"

	"tabletap-be/internal/logger"
)

// Chain assembles the server middleware stack. Ordering matters: the
// request-id and staff-identity middlewares write into the context, so they
// must wrap the rate limiter (which keys authenticated traffic by staff id)
// and the access log (which reads request_id and staff_id back out).
func Chain(next http.Handler, jwtSecret []byte) http.Handler {
	return logger.RequestIDMiddleware(
		AuthMiddleware(jwtSecret)(
			LoggingMiddleware(
				RateLimitMiddleware(next))))
}
