package staff

import "time"

// Member is a staff account. Staff sign in with their venue-scoped code and
// a PIN; the resulting token carries the venue every operation is bound to.
type Member struct {
	ID        string
	VenueID   string
	Code      string
	Name      string
	Role      string
	PINHash   string
	Active    bool
	CreatedAt time.Time
}
