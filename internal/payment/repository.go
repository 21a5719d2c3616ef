package payment

import (
	"context"
	"database/sql"
	"time"

	"tabletap-be/internal/errs"

	"github.com/google/uuid"
)

// Repository persists the manual-reconciliation queue.
type Repository interface {
	SaveUnresolvedEvent(ctx context.Context, ev *UnresolvedEvent) error
	ListUnresolvedEvents(ctx context.Context, venueID string, limit int) ([]*UnresolvedEvent, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) SaveUnresolvedEvent(ctx context.Context, ev *UnresolvedEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.ReceivedAt.IsZero() {
		ev.ReceivedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO unresolved_payment_events
			(id, venue_id, session_ref, payment_ref, amount_total, reason, payload, received_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, ev.ID, ev.VenueID, ev.SessionRef, ev.PaymentRef, ev.AmountTotal, ev.Reason, []byte(ev.Payload), ev.ReceivedAt)
	if err != nil {
		return errs.Internal(err)
	}
	return nil
}

func (r *repository) ListUnresolvedEvents(ctx context.Context, venueID string, limit int) ([]*UnresolvedEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, venue_id, session_ref, payment_ref, amount_total, reason, payload, received_at
		FROM unresolved_payment_events
		WHERE venue_id = $1
		ORDER BY received_at DESC
		LIMIT $2
	`, venueID, limit)
	if err != nil {
		return nil, errs.Internal(err)
	}
	defer rows.Close()

	var events []*UnresolvedEvent
	for rows.Next() {
		var ev UnresolvedEvent
		var payload []byte
		if err := rows.Scan(&ev.ID, &ev.VenueID, &ev.SessionRef, &ev.PaymentRef,
			&ev.AmountTotal, &ev.Reason, &payload, &ev.ReceivedAt); err != nil {
			return nil, errs.Internal(err)
		}
		ev.Payload = payload
		events = append(events, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Internal(err)
	}
	return events, nil
}
