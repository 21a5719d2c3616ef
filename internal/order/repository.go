package order

import (
	"context"
	"database/sql"
	"time"

	"tabletap-be/internal/errs"
	"tabletap-be/internal/tablesession"

	"github.com/lib/pq"
)

// Repository persists orders. Every state change is an atomic conditional
// write: the update succeeds only if the row is observed in the expected
// prior state, so concurrent workers racing on the same order resolve to
// exactly one winner without application-level locks.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, venueID, orderID string) (*Order, error)
	FindBySessionRef(ctx context.Context, sessionRef string) (*Order, error)
	AdvanceStatus(ctx context.Context, venueID, orderID string, from, to Status) error
	CompleteTx(ctx context.Context, venueID, orderID string, forced bool, forcedBy, forcedReason string) error
	CancelTx(ctx context.Context, venueID, orderID, reason string) error
	ApplyPayment(ctx context.Context, venueID, orderID, sessionRef, paymentRef string) error
	BindSessionRef(ctx context.Context, venueID, orderID, sessionRef string) error
	ApplyRefund(ctx context.Context, venueID, orderID string, prevRefunded, newRefunded int64,
		status PaymentStatus, refundRef, reason string) error
	RecentUnpaidOrders(ctx context.Context, venueID string, amount int64, since time.Time) ([]*Order, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const orderColumns = `
	id, venue_id, fulfillment_type, table_ref, qr_type, requires_collection,
	payment_method, order_status, payment_status, total_amount, currency,
	customer_name, customer_phone, external_session_ref, external_payment_ref,
	refund_ref, refund_amount, refund_reason, cancel_reason, forced_by,
	forced_reason, created_at, updated_at, completed_at, refunded_at`

func (r *repository) Create(ctx context.Context, o *Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Internal(err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, venue_id, fulfillment_type, table_ref, qr_type, requires_collection,
			payment_method, order_status, payment_status, total_amount, currency,
			customer_name, customer_phone, refund_amount, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,0,$14,$14)
	`,
		o.ID, o.VenueID, o.FulfillmentType, o.TableRef, o.QRType, o.RequiresCollection,
		o.PaymentMethod, o.Status, o.PaymentStatus, o.TotalAmount, o.Currency,
		o.CustomerName, o.CustomerPhone, o.CreatedAt,
	)
	if err != nil {
		return errs.Internal(err)
	}

	for i, item := range o.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, position, sku, name, unit_price, quantity, note)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, o.ID, i, item.SKU, item.Name, item.UnitPrice, item.Quantity, item.Note)
		if err != nil {
			return errs.Internal(err)
		}
	}

	// Table orders occupy their table in the same transaction as creation:
	// either the order exists with its session, or neither does.
	if o.FulfillmentType == FulfillmentTable && o.TableRef != nil {
		if _, err := tablesession.OpenOrAttach(ctx, tx, o.VenueID, *o.TableRef, o.ID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return errs.Internal(err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, venueID, orderID string) (*Order, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = $1 AND venue_id = $2
	`, orderID, venueID)

	o, err := scanOrder(row)
	if err != nil {
		return nil, err
	}

	if err := r.loadItems(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *repository) FindBySessionRef(ctx context.Context, sessionRef string) (*Order, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE external_session_ref = $1
	`, sessionRef)

	o, err := scanOrder(row)
	if errs.Is(err, errs.KindNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (r *repository) AdvanceStatus(ctx context.Context, venueID, orderID string, from, to Status) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET order_status = $1, updated_at = $2
		WHERE id = $3 AND venue_id = $4 AND order_status = $5
	`, to, time.Now().UTC(), orderID, venueID, from)
	if err != nil {
		return errs.Internal(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return errs.Internal(err)
	}
	if n == 0 {
		return r.classifyStatusFailure(ctx, r.db, venueID, orderID, from)
	}
	return nil
}

func (r *repository) CompleteTx(ctx context.Context, venueID, orderID string, forced bool, forcedBy, forcedReason string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Internal(err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	var res sql.Result
	if forced {
		// Forced completion bypasses the SERVING precondition but never
		// terminality; the override is audited on the row.
		res, err = tx.ExecContext(ctx, `
			UPDATE orders
			SET order_status = $1, completed_at = $2, updated_at = $2,
			    forced_by = $3, forced_reason = $4
			WHERE id = $5 AND venue_id = $6 AND order_status NOT IN ($7, $8)
		`, StatusCompleted, now, forcedBy, forcedReason,
			orderID, venueID, StatusCompleted, StatusCancelled)
	} else {
		res, err = tx.ExecContext(ctx, `
			UPDATE orders
			SET order_status = $1, completed_at = $2, updated_at = $2
			WHERE id = $3 AND venue_id = $4 AND order_status = $5
		`, StatusCompleted, now, orderID, venueID, StatusServing)
	}
	if err != nil {
		return errs.Internal(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return errs.Internal(err)
	}
	if n == 0 {
		expected := StatusServing
		if forced {
			expected = ""
		}
		return r.classifyStatusFailure(ctx, tx, venueID, orderID, expected)
	}

	// Freeing the bound table commits with the completion or not at all.
	if err := tablesession.FreeByOrder(ctx, tx, venueID, orderID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errs.Internal(err)
	}
	return nil
}

func (r *repository) CancelTx(ctx context.Context, venueID, orderID, reason string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Internal(err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET order_status = $1, cancel_reason = $2, updated_at = $3
		WHERE id = $4 AND venue_id = $5 AND order_status NOT IN ($6, $7)
	`, StatusCancelled, reason, time.Now().UTC(),
		orderID, venueID, StatusCompleted, StatusCancelled)
	if err != nil {
		return errs.Internal(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return errs.Internal(err)
	}
	if n == 0 {
		return r.classifyStatusFailure(ctx, tx, venueID, orderID, "")
	}

	if err := tablesession.FreeByOrder(ctx, tx, venueID, orderID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errs.Internal(err)
	}
	return nil
}

func (r *repository) ApplyPayment(ctx context.Context, venueID, orderID, sessionRef, paymentRef string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET payment_status = $1, external_session_ref = $2,
		    external_payment_ref = $3, updated_at = $4
		WHERE id = $5 AND venue_id = $6 AND payment_status = $7
	`, PaymentPaid, sessionRef, paymentRef, time.Now().UTC(),
		orderID, venueID, PaymentUnpaid)
	if err != nil {
		return errs.Internal(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return errs.Internal(err)
	}
	if n == 0 {
		var status PaymentStatus
		err := r.db.QueryRowContext(ctx, `
			SELECT payment_status FROM orders WHERE id = $1 AND venue_id = $2
		`, orderID, venueID).Scan(&status)
		if err == sql.ErrNoRows {
			return errs.New(errs.KindNotFound, "order not found")
		}
		if err != nil {
			return errs.Internal(err)
		}
		return ErrAlreadyPaid
	}
	return nil
}

func (r *repository) BindSessionRef(ctx context.Context, venueID, orderID, sessionRef string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET external_session_ref = $1, updated_at = $2
		WHERE id = $3 AND venue_id = $4 AND external_session_ref IS NULL
	`, sessionRef, time.Now().UTC(), orderID, venueID)
	if err != nil {
		return errs.Internal(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return errs.Internal(err)
	}
	if n == 0 {
		return errs.New(errs.KindInvalidTransition, "order already carries a session reference")
	}
	return nil
}

func (r *repository) ApplyRefund(ctx context.Context, venueID, orderID string, prevRefunded, newRefunded int64,
	status PaymentStatus, refundRef, reason string) error {

	var refundedAt *time.Time
	now := time.Now().UTC()
	if status == PaymentRefunded {
		refundedAt = &now
	}

	// The refund_amount guard makes concurrent refunds first-writer-wins:
	// the loser observes a cumulative amount it did not compute against.
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET payment_status = $1, refund_amount = $2, refund_ref = $3,
		    refund_reason = $4, refunded_at = COALESCE($5, refunded_at), updated_at = $6
		WHERE id = $7 AND venue_id = $8 AND refund_amount = $9
		  AND payment_status = ANY($10)
	`, status, newRefunded, refundRef, reason, refundedAt, now,
		orderID, venueID, prevRefunded,
		pq.Array([]string{string(PaymentPaid), string(PaymentPartiallyRefunded)}))
	if err != nil {
		return errs.Internal(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return errs.Internal(err)
	}
	if n == 0 {
		var exists bool
		if err := r.db.QueryRowContext(ctx, `
			SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1 AND venue_id = $2)
		`, orderID, venueID).Scan(&exists); err != nil {
			return errs.Internal(err)
		}
		if !exists {
			return errs.New(errs.KindNotFound, "order not found")
		}
		return ErrRefundRaced
	}
	return nil
}

func (r *repository) RecentUnpaidOrders(ctx context.Context, venueID string, amount int64, since time.Time) ([]*Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE venue_id = $1 AND payment_status = $2 AND total_amount = $3
		  AND created_at >= $4
		ORDER BY created_at DESC
	`, venueID, PaymentUnpaid, amount, since)
	if err != nil {
		return nil, errs.Internal(err)
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Internal(err)
	}
	return orders, nil
}

// classifyStatusFailure turns a zero-row conditional update into NotFound or
// InvalidTransition carrying the status another worker left behind.
func (r *repository) classifyStatusFailure(ctx context.Context, q tablesession.Execer, venueID, orderID string, expected Status) error {
	var current Status
	err := q.QueryRowContext(ctx, `
		SELECT order_status FROM orders WHERE id = $1 AND venue_id = $2
	`, orderID, venueID).Scan(&current)
	if err == sql.ErrNoRows {
		return errs.New(errs.KindNotFound, "order not found")
	}
	if err != nil {
		return errs.Internal(err)
	}
	if expected != "" {
		return errs.Newf(errs.KindInvalidTransition,
			"order is %s, expected %s", current, expected)
	}
	return errs.Newf(errs.KindInvalidTransition, "order is %s", current)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.VenueID, &o.FulfillmentType, &o.TableRef, &o.QRType, &o.RequiresCollection,
		&o.PaymentMethod, &o.Status, &o.PaymentStatus, &o.TotalAmount, &o.Currency,
		&o.CustomerName, &o.CustomerPhone, &o.ExternalSessionRef, &o.ExternalPaymentRef,
		&o.RefundRef, &o.RefundAmount, &o.RefundReason, &o.CancelReason, &o.ForcedBy,
		&o.ForcedReason, &o.CreatedAt, &o.UpdatedAt, &o.CompletedAt, &o.RefundedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errs.New(errs.KindNotFound, "order not found")
	}
	if err != nil {
		return nil, errs.Internal(err)
	}
	return &o, nil
}

func (r *repository) loadItems(ctx context.Context, o *Order) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT sku, name, unit_price, quantity, note
		FROM order_items
		WHERE order_id = $1
		ORDER BY position
	`, o.ID)
	if err != nil {
		return errs.Internal(err)
	}
	defer rows.Close()

	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.SKU, &item.Name, &item.UnitPrice, &item.Quantity, &item.Note); err != nil {
			return errs.Internal(err)
		}
		o.Items = append(o.Items, item)
	}
	if err := rows.Err(); err != nil {
		return errs.Internal(err)
	}
	return nil
}
