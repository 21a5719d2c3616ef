package tablesession

import (
	"context"
	"database/sql"
	"time"

	"tabletap-be/internal/errs"
	"tabletap-be/internal/logger"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Manager owns table occupancy for staff-driven actions (seating a party,
// clearing a table). Order-driven session changes go through the order
// repository's transactions using the store helpers directly.
type Manager struct {
	db *sql.DB
}

func NewManager(db *sql.DB) *Manager {
	return &Manager{db: db}
}

func (m *Manager) OpenOrAttach(ctx context.Context, venueID, tableRef, orderID string) (string, error) {
	return OpenOrAttach(ctx, m.db, venueID, tableRef, orderID)
}

func (m *Manager) FreeByOrder(ctx context.Context, venueID, orderID string) error {
	return FreeByOrder(ctx, m.db, venueID, orderID)
}

func (m *Manager) FreeByTable(ctx context.Context, venueID, tableRef string) error {
	return FreeByTable(ctx, m.db, venueID, tableRef)
}

func (m *Manager) Get(ctx context.Context, venueID, tableRef string) (*Session, error) {
	return OpenSession(ctx, m.db, venueID, tableRef)
}

// Seat opens a reserved session for a walk-in or reservation that has no
// order yet. The session binds to an order later via OpenOrAttach.
func (m *Manager) Seat(ctx context.Context, venueID, tableRef string) (*Session, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("venue_id", venueID),
		zap.String("table_ref", tableRef),
	)

	s := &Session{
		ID:       uuid.New().String(),
		VenueID:  venueID,
		TableRef: tableRef,
		Status:   StatusReserved,
		OpenedAt: time.Now().UTC(),
	}

	_, err := m.db.ExecContext(ctx, `
		INSERT INTO table_sessions (id, venue_id, table_ref, status, opened_at)
		VALUES ($1, $2, $3, $4, $5)
	`, s.ID, s.VenueID, s.TableRef, s.Status, s.OpenedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == pqUniqueViolation {
			return nil, errs.Newf(errs.KindInvalidTransition, "table %s is already seated", tableRef)
		}
		return nil, errs.Internal(err)
	}

	log.Info("table seated", zap.String("session_id", s.ID))
	return s, nil
}

// Clear force-closes the open session for a table regardless of binding.
// Staff use it after a manual cleanup; the bound order, if any, keeps its
// own lifecycle.
func (m *Manager) Clear(ctx context.Context, venueID, tableRef string) error {
	if err := FreeByTable(ctx, m.db, venueID, tableRef); err != nil {
		return err
	}
	logger.FromCtx(ctx).Info("table cleared",
		zap.String("venue_id", venueID),
		zap.String("table_ref", tableRef),
	)
	return nil
}
