package tablesession

import (
	"context"
	"database/sql"
	"time"

	"tabletap-be/internal/errs"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Execer is the subset of database/sql shared by *sql.DB and *sql.Tx. The
// order repository runs these statements inside its own transactions so an
// order transition and its session change commit as one unit.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const pqUniqueViolation = "23505"

// OpenOrAttach binds orderID to the open session for tableRef, creating the
// session when none is open. An open session already bound to a different
// order is an error: one table serves one active order.
func OpenOrAttach(ctx context.Context, q Execer, venueID, tableRef, orderID string) (string, error) {
	var sessionID string

	// Bind the open unbound session if one exists.
	err := q.QueryRowContext(ctx, `
		UPDATE table_sessions
		SET status = $1, bound_order_id = $2
		WHERE venue_id = $3 AND table_ref = $4
		  AND closed_at IS NULL AND bound_order_id IS NULL
		RETURNING id
	`, StatusOccupied, orderID, venueID, tableRef).Scan(&sessionID)
	if err == nil {
		return sessionID, nil
	}
	if err != sql.ErrNoRows {
		return "", errs.Internal(err)
	}

	// No unbound session. A bound one means the table is taken.
	var boundOrder string
	err = q.QueryRowContext(ctx, `
		SELECT bound_order_id
		FROM table_sessions
		WHERE venue_id = $1 AND table_ref = $2 AND closed_at IS NULL
	`, venueID, tableRef).Scan(&boundOrder)
	if err == nil {
		return "", errs.Newf(errs.KindInvalidTransition,
			"table %s already serving order %s", tableRef, boundOrder)
	}
	if err != sql.ErrNoRows {
		return "", errs.Internal(err)
	}

	sessionID = uuid.New().String()
	_, err = q.ExecContext(ctx, `
		INSERT INTO table_sessions (id, venue_id, table_ref, status, bound_order_id, opened_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, sessionID, venueID, tableRef, StatusOccupied, orderID, time.Now().UTC())
	if err != nil {
		// The partial unique index catches the race where another worker
		// opened a session between our check and the insert.
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == pqUniqueViolation {
			return "", errs.Newf(errs.KindInvalidTransition,
				"table %s was seated concurrently", tableRef)
		}
		return "", errs.Internal(err)
	}
	return sessionID, nil
}

// FreeByOrder closes the open session bound to orderID. Closing a session
// that does not exist or was already closed is a no-op, never an error.
func FreeByOrder(ctx context.Context, q Execer, venueID, orderID string) error {
	_, err := q.ExecContext(ctx, `
		UPDATE table_sessions
		SET status = $1, bound_order_id = NULL, closed_at = $2
		WHERE venue_id = $3 AND bound_order_id = $4 AND closed_at IS NULL
	`, StatusFree, time.Now().UTC(), venueID, orderID)
	if err != nil {
		return errs.Internal(err)
	}
	return nil
}

// FreeByTable closes the open session for tableRef, bound or not. No-op
// when nothing is open.
func FreeByTable(ctx context.Context, q Execer, venueID, tableRef string) error {
	_, err := q.ExecContext(ctx, `
		UPDATE table_sessions
		SET status = $1, bound_order_id = NULL, closed_at = $2
		WHERE venue_id = $3 AND table_ref = $4 AND closed_at IS NULL
	`, StatusFree, time.Now().UTC(), venueID, tableRef)
	if err != nil {
		return errs.Internal(err)
	}
	return nil
}

// OpenSession returns the open session for tableRef, or nil when the table
// is free.
func OpenSession(ctx context.Context, q Execer, venueID, tableRef string) (*Session, error) {
	var s Session
	err := q.QueryRowContext(ctx, `
		SELECT id, venue_id, table_ref, status, bound_order_id, opened_at, closed_at
		FROM table_sessions
		WHERE venue_id = $1 AND table_ref = $2 AND closed_at IS NULL
	`, venueID, tableRef).Scan(
		&s.ID, &s.VenueID, &s.TableRef, &s.Status, &s.BoundOrderID, &s.OpenedAt, &s.ClosedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Internal(err)
	}
	return &s, nil
}
