package order

import (
	"context"
	"errors"
	"time"

	"tabletap-be/internal/errs"
	"tabletap-be/internal/logger"
	"tabletap-be/internal/notify"
	"tabletap-be/internal/payment"
	"tabletap-be/internal/utils"
	"tabletap-be/internal/venue"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service is the order state machine. It owns every order_status and
// payment_status transition; no other component writes those fields.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*Order, error)
	Get(ctx context.Context, venueID, orderID string) (*Order, error)
	Advance(ctx context.Context, venueID, orderID string, next Status) error
	Complete(ctx context.Context, venueID, orderID string, opts CompleteOptions) error
	Cancel(ctx context.Context, venueID, orderID, reason string) error
	ApplyPayment(ctx context.Context, venueID, orderID, sessionRef, paymentRef string) error
	ApplyRefund(ctx context.Context, venueID, orderID string, amount *int64, reason string) (*RefundResult, error)

	// Reconciliation lookups used by the webhook handler.
	FindBySessionRef(ctx context.Context, sessionRef string) (*Order, error)
	RecentUnpaidCandidates(ctx context.Context, venueID string, amount int64, window time.Duration) ([]*Order, error)
	BindSessionRef(ctx context.Context, venueID, orderID, sessionRef string) error
}

type CreateInput struct {
	VenueID         string
	FulfillmentType FulfillmentType
	QRType          QRType
	PaymentMethod   PaymentMethod
	TableRef        *string
	Items           []Item
	ClientTotal     *int64
	Currency        string
	CustomerName    string
	CustomerPhone   string
}

type CompleteOptions struct {
	Forced       bool
	ForcedBy     string
	ForcedReason string
}

type RefundResult struct {
	RefundRef     string
	RefundAmount  int64
	TotalRefunded int64
	PaymentStatus PaymentStatus
}

type service struct {
	repo    Repository
	venues  venue.Directory
	gateway payment.Gateway
	events  notify.Publisher
}

func NewService(repo Repository, venues venue.Directory, gateway payment.Gateway, events notify.Publisher) Service {
	return &service{
		repo:    repo,
		venues:  venues,
		gateway: gateway,
		events:  events,
	}
}

func (s *service) Create(ctx context.Context, input CreateInput) (*Order, error) {
	log := logFor(ctx).With(
		zap.String("venue_id", input.VenueID),
		zap.String("fulfillment", string(input.FulfillmentType)),
		zap.String("payment_method", string(input.PaymentMethod)),
		zap.Int("item_count", len(input.Items)),
	)

	if input.VenueID == "" {
		return nil, errs.New(errs.KindValidation, "venue id is required")
	}
	if len(input.Items) == 0 {
		return nil, errs.New(errs.KindValidation, "order has no items")
	}
	for i, item := range input.Items {
		if item.Name == "" {
			return nil, errs.Newf(errs.KindValidation, "item %d has no name", i)
		}
		if item.Quantity <= 0 {
			return nil, errs.Newf(errs.KindValidation, "item %d quantity must be positive", i)
		}
		if item.UnitPrice < 0 {
			return nil, errs.Newf(errs.KindValidation, "item %d price must not be negative", i)
		}
	}
	if input.FulfillmentType == FulfillmentTable && utils.PtrString(input.TableRef) == "" {
		return nil, errs.New(errs.KindValidation, "table orders require a table reference")
	}

	exists, err := s.venues.Exists(ctx, input.VenueID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errs.New(errs.KindNotFound, "venue not found")
	}

	cfg, err := s.venues.GetConfig(ctx, input.VenueID)
	if err != nil {
		return nil, err
	}
	if err := CheckCompatibility(input.FulfillmentType, input.QRType, input.PaymentMethod, cfg); err != nil {
		log.Warn("order creation denied", zap.Error(err))
		return nil, err
	}

	total := resolveTotal(input.Items, input.ClientTotal)

	currency := input.Currency
	if currency == "" {
		currency = "GBP"
	}

	now := time.Now().UTC()
	o := &Order{
		ID:                 uuid.New().String(),
		VenueID:            input.VenueID,
		FulfillmentType:    input.FulfillmentType,
		TableRef:           input.TableRef,
		QRType:             input.QRType,
		RequiresCollection: RequiresCollection(input.QRType),
		Items:              input.Items,
		TotalAmount:        total,
		Currency:           currency,
		Status:             StatusPlaced,
		PaymentStatus:      PaymentUnpaid,
		PaymentMethod:      input.PaymentMethod,
		CustomerName:       input.CustomerName,
		CustomerPhone:      input.CustomerPhone,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.repo.Create(ctx, o); err != nil {
		log.Error("order creation failed", zap.Error(err))
		return nil, err
	}

	log.Info("order created",
		zap.String("order_id", o.ID),
		zap.Int64("total_amount", o.TotalAmount),
	)
	s.publish(ctx, "order.created", o.VenueID, o.ID, map[string]any{
		"order_status":   o.Status,
		"payment_status": o.PaymentStatus,
		"total_amount":   o.TotalAmount,
	})
	return o, nil
}

func (s *service) Get(ctx context.Context, venueID, orderID string) (*Order, error) {
	return s.repo.GetByID(ctx, venueID, orderID)
}

func (s *service) Advance(ctx context.Context, venueID, orderID string, next Status) error {
	prev, ok := Predecessor(next)
	if !ok {
		return errs.Newf(errs.KindInvalidTransition, "%s is not an advance target", next)
	}

	if err := s.repo.AdvanceStatus(ctx, venueID, orderID, prev, next); err != nil {
		return err
	}

	logFor(ctx).Info("order advanced",
		zap.String("order_id", orderID),
		zap.String("order_status", string(next)),
	)
	s.publish(ctx, "order.status_changed", venueID, orderID, map[string]any{
		"order_status": next,
	})
	return nil
}

func (s *service) Complete(ctx context.Context, venueID, orderID string, opts CompleteOptions) error {
	if opts.Forced {
		if !utils.IsManager(ctx) {
			return errs.New(errs.KindUnauthorized, "forced completion requires an elevated role")
		}
		if opts.ForcedReason == "" {
			return errs.New(errs.KindValidation, "forced completion requires a reason")
		}
		if opts.ForcedBy == "" {
			opts.ForcedBy, _ = utils.GetStaffIDFromContext(ctx)
		}
	}

	if err := s.repo.CompleteTx(ctx, venueID, orderID, opts.Forced, opts.ForcedBy, opts.ForcedReason); err != nil {
		return err
	}

	logFor(ctx).Info("order completed",
		zap.String("order_id", orderID),
		zap.Bool("forced", opts.Forced),
	)
	s.publish(ctx, "order.completed", venueID, orderID, map[string]any{
		"forced": opts.Forced,
	})
	return nil
}

func (s *service) Cancel(ctx context.Context, venueID, orderID, reason string) error {
	if err := s.repo.CancelTx(ctx, venueID, orderID, reason); err != nil {
		return err
	}

	// Cancellation does not touch payment_status: a cancelled-but-paid
	// order still needs an explicit refund.
	logFor(ctx).Info("order cancelled",
		zap.String("order_id", orderID),
		zap.String("reason", reason),
	)
	s.publish(ctx, "order.cancelled", venueID, orderID, map[string]any{
		"reason": reason,
	})
	return nil
}

func (s *service) ApplyPayment(ctx context.Context, venueID, orderID, sessionRef, paymentRef string) error {
	err := s.repo.ApplyPayment(ctx, venueID, orderID, sessionRef, paymentRef)
	if errors.Is(err, ErrAlreadyPaid) {
		// Replay or a race with another delivery of the same event.
		logFor(ctx).Info("payment already applied",
			zap.String("order_id", orderID),
			zap.String("session_ref", sessionRef),
		)
		return nil
	}
	if err != nil {
		return err
	}

	logFor(ctx).Info("payment applied",
		zap.String("order_id", orderID),
		zap.String("session_ref", sessionRef),
	)
	s.publish(ctx, "order.paid", venueID, orderID, map[string]any{
		"session_ref": sessionRef,
	})
	return nil
}

func (s *service) ApplyRefund(ctx context.Context, venueID, orderID string, amount *int64, reason string) (*RefundResult, error) {
	o, err := s.repo.GetByID(ctx, venueID, orderID)
	if err != nil {
		return nil, err
	}

	switch o.PaymentStatus {
	case PaymentPaid, PaymentPartiallyRefunded:
	case PaymentRefunded:
		return nil, errs.New(errs.KindRefundExceedsBalance, "order is fully refunded")
	default:
		return nil, errs.Newf(errs.KindInvalidTransition, "cannot refund an %s order", o.PaymentStatus)
	}

	remaining := o.RefundableBalance()
	amt := remaining
	if amount != nil {
		amt = *amount
	}
	if amt <= 0 {
		return nil, errs.New(errs.KindValidation, "refund amount must be positive")
	}
	if amt > remaining {
		return nil, errs.Newf(errs.KindRefundExceedsBalance,
			"refund of %d exceeds remaining balance %d", amt, remaining)
	}

	// Online payments refund through the processor first; till and deferred
	// payments settle outside it, so the refund is local bookkeeping only.
	refundRef := ""
	if o.ExternalPaymentRef != nil {
		refundRef, err = s.gateway.CreateRefund(ctx, *o.ExternalPaymentRef, &amt, reason)
		if errors.Is(err, payment.ErrAlreadyRefunded) {
			// Definitive processor state: reconcile the full remaining
			// balance locally instead of retrying.
			logFor(ctx).Warn("processor reports order already refunded, reconciling",
				zap.String("order_id", orderID),
			)
			amt = remaining
			refundRef = utils.PtrString(o.RefundRef)
		} else if err != nil {
			return nil, err
		}
	}

	totalRefunded := o.RefundAmount + amt
	newStatus := PaymentPartiallyRefunded
	if totalRefunded >= o.TotalAmount {
		newStatus = PaymentRefunded
	}

	if err := s.repo.ApplyRefund(ctx, venueID, orderID, o.RefundAmount, totalRefunded, newStatus, refundRef, reason); err != nil {
		if errors.Is(err, ErrRefundRaced) {
			return nil, errs.Wrap(errs.KindInvalidTransition, "refund state changed concurrently", err)
		}
		if refundRef != "" {
			// The processor refund went through but the local write did
			// not; surface the ref for manual reconciliation.
			logFor(ctx).Error("processor refund succeeded but local write failed",
				zap.String("order_id", orderID),
				zap.String("refund_ref", refundRef),
				zap.Error(err),
			)
		}
		return nil, err
	}

	logFor(ctx).Info("refund applied",
		zap.String("order_id", orderID),
		zap.Int64("refund_amount", amt),
		zap.String("payment_status", string(newStatus)),
	)
	s.publish(ctx, "order.refunded", venueID, orderID, map[string]any{
		"refund_amount":  amt,
		"payment_status": newStatus,
	})

	return &RefundResult{
		RefundRef:     refundRef,
		RefundAmount:  amt,
		TotalRefunded: totalRefunded,
		PaymentStatus: newStatus,
	}, nil
}

func (s *service) FindBySessionRef(ctx context.Context, sessionRef string) (*Order, error) {
	return s.repo.FindBySessionRef(ctx, sessionRef)
}

func (s *service) RecentUnpaidCandidates(ctx context.Context, venueID string, amount int64, window time.Duration) ([]*Order, error) {
	since := time.Now().UTC().Add(-window)
	return s.repo.RecentUnpaidOrders(ctx, venueID, amount, since)
}

func (s *service) BindSessionRef(ctx context.Context, venueID, orderID, sessionRef string) error {
	return s.repo.BindSessionRef(ctx, venueID, orderID, sessionRef)
}

// publish is the best-effort side channel: failures are the publisher's to
// log, never the caller's to see.
func (s *service) publish(ctx context.Context, event, venueID, orderID string, extra map[string]any) {
	payload := map[string]any{
		"venue_id": venueID,
		"order_id": orderID,
	}
	for k, v := range extra {
		payload[k] = v
	}
	s.events.Publish(ctx, event, payload)
}

func logFor(ctx context.Context) *zap.Logger {
	return logger.FromCtx(ctx).With(zap.String("layer", "service"))
}

// resolveTotal recomputes the total from items and accepts the client's
// figure only when it is within one minor unit per line of the computed
// value (rounding drift); otherwise the computed value wins.
func resolveTotal(items []Item, clientTotal *int64) int64 {
	var computed int64
	for _, item := range items {
		computed += item.Subtotal()
	}

	if clientTotal == nil {
		return computed
	}

	tolerance := int64(len(items))
	diff := *clientTotal - computed
	if diff < 0 {
		diff = -diff
	}
	if diff <= tolerance {
		return *clientTotal
	}
	return computed
}
