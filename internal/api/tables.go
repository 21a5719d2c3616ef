package api

import (
	"net/http"
	"time"

	"tabletap-be/internal/errs"
	"tabletap-be/internal/tablesession"
	"tabletap-be/internal/utils"
)

// TableHandler exposes staff table-occupancy actions. Order-driven session
// changes never come through here; those ride the order transactions.
type TableHandler struct {
	sessions *tablesession.Manager
}

func NewTableHandler(sessions *tablesession.Manager) *TableHandler {
	return &TableHandler{sessions: sessions}
}

type tableSessionResponse struct {
	ID           string     `json:"id"`
	VenueID      string     `json:"venueId"`
	TableRef     string     `json:"tableRef"`
	Status       string     `json:"status"`
	BoundOrderID *string    `json:"boundOrderId,omitempty"`
	OpenedAt     time.Time  `json:"openedAt"`
	ClosedAt     *time.Time `json:"closedAt,omitempty"`
}

func toTableSessionResponse(s *tablesession.Session) tableSessionResponse {
	return tableSessionResponse{
		ID:           s.ID,
		VenueID:      s.VenueID,
		TableRef:     s.TableRef,
		Status:       string(s.Status),
		BoundOrderID: s.BoundOrderID,
		OpenedAt:     s.OpenedAt,
		ClosedAt:     s.ClosedAt,
	}
}

// GetTable is GET /tables/{ref}: the open session for a table, or 404 when
// the table is free.
func (h *TableHandler) GetTable(w http.ResponseWriter, r *http.Request) {
	venueID, err := venueScope(r)
	if err != nil {
		writeError(w, r.Context(), err)
		return
	}

	s, err := h.sessions.Get(r.Context(), venueID, r.PathValue("ref"))
	if err != nil {
		writeError(w, r.Context(), err)
		return
	}
	if s == nil {
		writeError(w, r.Context(), errs.New(errs.KindNotFound, "table has no open session"))
		return
	}
	utils.WriteJSON(w, toTableSessionResponse(s), http.StatusOK)
}

// SeatTable is POST /tables/{ref}/seat: opens a reserved session ahead of
// any order.
func (h *TableHandler) SeatTable(w http.ResponseWriter, r *http.Request) {
	venueID, err := venueScope(r)
	if err != nil {
		writeError(w, r.Context(), err)
		return
	}

	s, err := h.sessions.Seat(r.Context(), venueID, r.PathValue("ref"))
	if err != nil {
		writeError(w, r.Context(), err)
		return
	}
	utils.WriteJSON(w, toTableSessionResponse(s), http.StatusCreated)
}

// ClearTable is POST /tables/{ref}/clear: force-closes the open session
// after a manual cleanup.
func (h *TableHandler) ClearTable(w http.ResponseWriter, r *http.Request) {
	venueID, err := venueScope(r)
	if err != nil {
		writeError(w, r.Context(), err)
		return
	}

	if err := h.sessions.Clear(r.Context(), venueID, r.PathValue("ref")); err != nil {
		writeError(w, r.Context(), err)
		return
	}
	utils.WriteJSON(w, map[string]string{"status": "cleared"}, http.StatusOK)
}
