package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"tabletap-be/internal/errs"
	"tabletap-be/internal/idempotency"
	"tabletap-be/internal/logger"
	"tabletap-be/internal/metrics"
	"tabletap-be/internal/order"
	"tabletap-be/internal/payment"
	"tabletap-be/internal/utils"

	"go.uber.org/zap"
)

// fallbackWindow bounds how far back the degraded-match scan looks for an
// unpaid order when the event lost its correlation metadata.
const fallbackWindow = 15 * time.Minute

// Idem is the slice of the idempotency store the handler needs.
type Idem interface {
	Do(ctx context.Context, key, fingerprint string, ttl time.Duration,
		fn func(ctx context.Context) (any, int, error)) ([]byte, int, error)
}

// Handler consumes processor payment events and drives the order state
// machine. Deliveries are at-least-once; the idempotency guard keyed by the
// session reference makes each session apply its payment at most once.
type Handler struct {
	orders order.Service
	idem   Idem
	events payment.Repository
	stats  *metrics.Reconciliation
}

func NewHandler(orders order.Service, idem Idem, events payment.Repository, stats *metrics.Reconciliation) *Handler {
	return &Handler{
		orders: orders,
		idem:   idem,
		events: events,
		stats:  stats,
	}
}

// eventFingerprint covers the semantically relevant payload: the same
// session redelivered matches, the same session with a different amount or
// payment ref conflicts.
type eventFingerprint struct {
	SessionRef  string `json:"session_ref"`
	PaymentRef  string `json:"payment_ref"`
	AmountTotal int64  `json:"amount_total"`
}

// PaymentWebhookHandler is the POST /webhooks/payment endpoint. It returns
// 200 for anything idempotently processed, replays and unresolved events
// included, so the processor stops retrying; 4xx is reserved for structural
// problems with the delivery itself.
func (h *Handler) PaymentWebhookHandler(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		utils.WriteJSONError(w, "failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var ev payment.Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		utils.WriteJSONError(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}

	if ev.Type != payment.EventPaymentSucceeded {
		// Not ours; acknowledge so the processor moves on.
		utils.WriteJSON(w, map[string]string{"status": "ignored"}, http.StatusOK)
		return
	}

	if ev.SessionRef == "" {
		utils.WriteJSONError(w, "missing session reference", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	key := "payproc:session:" + ev.SessionRef
	fp := utils.Fingerprint(eventFingerprint{
		SessionRef:  ev.SessionRef,
		PaymentRef:  ev.PaymentRef,
		AmountTotal: ev.AmountTotal,
	})

	body, status, err := h.idem.Do(ctx, key, fp, idempotency.DefaultTTL,
		func(ctx context.Context) (any, int, error) {
			return h.reconcile(ctx, &ev, raw)
		})
	if err != nil {
		logger.FromCtx(ctx).Error("webhook processing failed",
			zap.String("session_ref", ev.SessionRef),
			zap.Error(err),
		)
		utils.WriteJSONError(w, "failed to process event", errs.HTTPStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// reconcile locates the order for an event and applies its payment.
// Matching degrades in steps: metadata order id, session reference already
// on an order, then a venue-scoped scan for exactly one plausible unpaid
// candidate. Anything less certain is recorded for manual follow-up; money
// is never attributed to a guessed order.
func (h *Handler) reconcile(ctx context.Context, ev *payment.Event, raw []byte) (any, int, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("session_ref", ev.SessionRef),
		zap.String("payment_ref", ev.PaymentRef),
	)

	if o, err := h.matchByMetadata(ctx, ev); err != nil {
		return nil, 0, err
	} else if o != nil {
		if o.TotalAmount != ev.AmountTotal {
			log.Warn("event amount does not match order total",
				zap.String("order_id", o.ID),
				zap.Int64("order_total", o.TotalAmount),
				zap.Int64("event_amount", ev.AmountTotal),
			)
			return h.recordUnresolved(ctx, ev, raw,
				fmt.Sprintf("amount mismatch with order %s", o.ID))
		}
		return h.apply(ctx, o, ev)
	}

	if o, err := h.orders.FindBySessionRef(ctx, ev.SessionRef); err != nil {
		return nil, 0, err
	} else if o != nil {
		return h.apply(ctx, o, ev)
	}

	// Degraded path: the event carries no usable correlation. Scan the
	// venue's recent unpaid orders and bind only when the match is
	// unambiguous.
	if ev.Metadata.VenueID == "" {
		return h.recordUnresolved(ctx, ev, raw, "event carries no venue or order reference")
	}

	candidates, err := h.orders.RecentUnpaidCandidates(ctx, ev.Metadata.VenueID, ev.AmountTotal, fallbackWindow)
	if err != nil {
		return nil, 0, err
	}
	if len(candidates) != 1 {
		return h.recordUnresolved(ctx, ev, raw,
			fmt.Sprintf("%d plausible unpaid orders in window", len(candidates)))
	}

	o := candidates[0]
	if err := h.orders.BindSessionRef(ctx, o.VenueID, o.ID, ev.SessionRef); err != nil {
		if errs.Is(err, errs.KindInvalidTransition) {
			// Lost a race with another delivery binding the candidate.
			return h.recordUnresolved(ctx, ev, raw, "candidate was bound concurrently")
		}
		return nil, 0, err
	}

	log.Info("event matched by fallback scan", zap.String("order_id", o.ID))
	h.stats.Fallback.Inc()
	return h.apply(ctx, o, ev)
}

func (h *Handler) matchByMetadata(ctx context.Context, ev *payment.Event) (*order.Order, error) {
	if ev.Metadata.OrderID == "" || ev.Metadata.VenueID == "" {
		return nil, nil
	}

	o, err := h.orders.Get(ctx, ev.Metadata.VenueID, ev.Metadata.OrderID)
	if errs.Is(err, errs.KindNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (h *Handler) apply(ctx context.Context, o *order.Order, ev *payment.Event) (any, int, error) {
	// "Already PAID" inside ApplyPayment is a replay, surfaced as success.
	if err := h.orders.ApplyPayment(ctx, o.VenueID, o.ID, ev.SessionRef, ev.PaymentRef); err != nil {
		return nil, 0, err
	}

	h.stats.Applied.Inc()
	return map[string]string{
		"status":  "applied",
		"orderId": o.ID,
	}, http.StatusOK, nil
}

// recordUnresolved persists the event for manual reconciliation and still
// acknowledges the delivery: fail safe, not silent.
func (h *Handler) recordUnresolved(ctx context.Context, ev *payment.Event, raw []byte, reason string) (any, int, error) {
	var venueID *string
	if ev.Metadata.VenueID != "" {
		venueID = &ev.Metadata.VenueID
	}

	err := h.events.SaveUnresolvedEvent(ctx, &payment.UnresolvedEvent{
		VenueID:     venueID,
		SessionRef:  ev.SessionRef,
		PaymentRef:  ev.PaymentRef,
		AmountTotal: ev.AmountTotal,
		Reason:      reason,
		Payload:     raw,
	})
	if err != nil {
		return nil, 0, err
	}

	logger.FromCtx(ctx).Warn("payment event left unresolved",
		zap.String("session_ref", ev.SessionRef),
		zap.String("reason", reason),
	)
	h.stats.Unresolved.Inc()
	return map[string]string{
		"status": "unresolved",
		"reason": reason,
	}, http.StatusOK, nil
}
