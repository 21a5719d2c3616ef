package tablesession

import "time"

type Status string

const (
	StatusFree     Status = "FREE"
	StatusReserved Status = "RESERVED"
	StatusOccupied Status = "OCCUPIED"
)

// Session is the occupancy record for a physical or virtual table. At most
// one session per (venue, table_ref) may be open (closed_at IS NULL); the
// partial unique index in the schema backs that invariant.
type Session struct {
	ID           string
	VenueID      string
	TableRef     string
	Status       Status
	BoundOrderID *string
	OpenedAt     time.Time
	ClosedAt     *time.Time
}
