package api

import (
	"net/http"

	"tabletap-be/internal/payment/webhook"
	"tabletap-be/internal/utils"
)

// NewRouter wires the REST surface. Method-qualified patterns make the mux
// return 405 for wrong verbs without extra plumbing.
func NewRouter(login *AuthHandler, orders *OrderHandler, tables *TableHandler, payments *webhook.Handler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/login", login.Login)

	mux.HandleFunc("POST /orders", orders.CreateOrder)
	mux.HandleFunc("GET /orders/{id}", orders.GetOrder)
	mux.HandleFunc("POST /orders/{id}/advance", orders.AdvanceOrder)
	mux.HandleFunc("POST /orders/{id}/complete", orders.CompleteOrder)
	mux.HandleFunc("POST /orders/{id}/cancel", orders.CancelOrder)
	mux.HandleFunc("POST /orders/{id}/refund", orders.RefundOrder)

	mux.HandleFunc("GET /tables/{ref}", tables.GetTable)
	mux.HandleFunc("POST /tables/{ref}/seat", tables.SeatTable)
	mux.HandleFunc("POST /tables/{ref}/clear", tables.ClearTable)

	mux.HandleFunc("GET /unresolved-events", orders.ListUnresolvedEvents)

	mux.HandleFunc("POST /webhooks/payment", payments.PaymentWebhookHandler)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
	})

	return mux
}
