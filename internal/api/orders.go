package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"tabletap-be/internal/errs"
	"tabletap-be/internal/idempotency"
	"tabletap-be/internal/order"
	"tabletap-be/internal/payment"
	"tabletap-be/internal/utils"
)

const idempotencyHeader = "X-Idempotency-Key"

// Idem is the slice of the idempotency store the handlers need.
type Idem interface {
	Do(ctx context.Context, key, fingerprint string, ttl time.Duration,
		fn func(ctx context.Context) (any, int, error)) ([]byte, int, error)
}

// OrderHandler is the staff- and customer-facing REST surface over the
// order state machine.
type OrderHandler struct {
	orders order.Service
	events payment.Repository
	idem   Idem
}

func NewOrderHandler(orders order.Service, events payment.Repository, idem Idem) *OrderHandler {
	return &OrderHandler{
		orders: orders,
		events: events,
		idem:   idem,
	}
}

// venueScope resolves the venue every staff operation is bound to. Staff act
// only within the venue on their token.
func venueScope(r *http.Request) (string, error) {
	if v, ok := utils.GetVenueIDFromContext(r.Context()); ok {
		return v, nil
	}
	return "", errs.New(errs.KindUnauthorized, "staff authentication required")
}

// CreateOrder is POST /orders. Customers place orders without a staff token;
// the venue then comes from the payload. The X-Idempotency-Key header is
// required: client retries of a dropped response must not place twice.
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get(idempotencyHeader)
	if key == "" {
		utils.WriteJSONError(w, "order creation requires an "+idempotencyHeader+" header", http.StatusBadRequest)
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSONError(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}

	venueID := req.VenueID
	if v, ok := utils.GetVenueIDFromContext(r.Context()); ok {
		venueID = v
	}

	input := order.CreateInput{
		VenueID:         venueID,
		FulfillmentType: order.FulfillmentType(req.FulfillmentType),
		QRType:          order.QRType(req.QRType),
		PaymentMethod:   order.PaymentMethod(req.PaymentMethod),
		TableRef:        req.TableRef,
		Items:           toItems(req.Items),
		ClientTotal:     req.ClientTotal,
		Currency:        req.Currency,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
	}

	body, status, err := h.idem.Do(r.Context(), "order:create:"+key, utils.Fingerprint(req),
		idempotency.DefaultTTL,
		func(ctx context.Context) (any, int, error) {
			o, err := h.orders.Create(ctx, input)
			if err != nil {
				return nil, 0, err
			}
			return toOrderResponse(o), http.StatusCreated, nil
		})
	if err != nil {
		writeError(w, r.Context(), err)
		return
	}
	writeStored(w, body, status)
}

// GetOrder is GET /orders/{id}.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	venueID, err := venueScope(r)
	if err != nil {
		writeError(w, r.Context(), err)
		return
	}

	o, err := h.orders.Get(r.Context(), venueID, r.PathValue("id"))
	if err != nil {
		writeError(w, r.Context(), err)
		return
	}
	utils.WriteJSON(w, toOrderResponse(o), http.StatusOK)
}

// AdvanceOrder is POST /orders/{id}/advance.
func (h *OrderHandler) AdvanceOrder(w http.ResponseWriter, r *http.Request) {
	venueID, err := venueScope(r)
	if err != nil {
		writeError(w, r.Context(), err)
		return
	}

	var req advanceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSONError(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}

	if err := h.orders.Advance(r.Context(), venueID, r.PathValue("id"), order.Status(req.NextStatus)); err != nil {
		writeError(w, r.Context(), err)
		return
	}
	utils.WriteJSON(w, map[string]string{"orderStatus": req.NextStatus}, http.StatusOK)
}

// CompleteOrder is POST /orders/{id}/complete. Forced completion needs a
// manager token and a reason; both are checked by the service.
func (h *OrderHandler) CompleteOrder(w http.ResponseWriter, r *http.Request) {
	venueID, err := venueScope(r)
	if err != nil {
		writeError(w, r.Context(), err)
		return
	}

	var req completeOrderRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.WriteJSONError(w, "invalid JSON payload", http.StatusBadRequest)
			return
		}
	}

	opts := order.CompleteOptions{Forced: req.Forced, ForcedReason: req.ForcedReason}
	if err := h.orders.Complete(r.Context(), venueID, r.PathValue("id"), opts); err != nil {
		writeError(w, r.Context(), err)
		return
	}
	utils.WriteJSON(w, map[string]string{"orderStatus": string(order.StatusCompleted)}, http.StatusOK)
}

// CancelOrder is POST /orders/{id}/cancel.
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	venueID, err := venueScope(r)
	if err != nil {
		writeError(w, r.Context(), err)
		return
	}

	var req cancelOrderRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.WriteJSONError(w, "invalid JSON payload", http.StatusBadRequest)
			return
		}
	}

	if err := h.orders.Cancel(r.Context(), venueID, r.PathValue("id"), req.Reason); err != nil {
		writeError(w, r.Context(), err)
		return
	}
	utils.WriteJSON(w, map[string]string{"orderStatus": string(order.StatusCancelled)}, http.StatusOK)
}

// RefundOrder is POST /orders/{id}/refund. Refunds move money, so an
// X-Idempotency-Key header is required.
func (h *OrderHandler) RefundOrder(w http.ResponseWriter, r *http.Request) {
	venueID, err := venueScope(r)
	if err != nil {
		writeError(w, r.Context(), err)
		return
	}

	key := r.Header.Get(idempotencyHeader)
	if key == "" {
		utils.WriteJSONError(w, "refunds require an "+idempotencyHeader+" header", http.StatusBadRequest)
		return
	}

	var req refundOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSONError(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}

	orderID := r.PathValue("id")
	body, status, err := h.idem.Do(r.Context(), "order:refund:"+key,
		utils.Fingerprint(struct {
			OrderID string
			Req     refundOrderRequest
		}{orderID, req}),
		idempotency.DefaultTTL,
		func(ctx context.Context) (any, int, error) {
			res, err := h.orders.ApplyRefund(ctx, venueID, orderID, req.Amount, req.Reason)
			if err != nil {
				return nil, 0, err
			}
			return refundResponse{
				RefundRef:     res.RefundRef,
				RefundAmount:  res.RefundAmount,
				TotalRefunded: res.TotalRefunded,
				PaymentStatus: string(res.PaymentStatus),
			}, http.StatusOK, nil
		})
	if err != nil {
		writeError(w, r.Context(), err)
		return
	}
	writeStored(w, body, status)
}

// ListUnresolvedEvents is GET /unresolved-events: the manual-reconciliation
// queue for the staff's venue. Manager only.
func (h *OrderHandler) ListUnresolvedEvents(w http.ResponseWriter, r *http.Request) {
	venueID, err := venueScope(r)
	if err != nil {
		writeError(w, r.Context(), err)
		return
	}
	if !utils.IsManager(r.Context()) {
		writeError(w, r.Context(), errs.New(errs.KindUnauthorized, "manager role required"))
		return
	}

	events, err := h.events.ListUnresolvedEvents(r.Context(), venueID, 100)
	if err != nil {
		writeError(w, r.Context(), err)
		return
	}
	if events == nil {
		events = []*payment.UnresolvedEvent{}
	}
	utils.WriteJSON(w, events, http.StatusOK)
}
