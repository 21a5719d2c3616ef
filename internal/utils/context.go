package utils

import "context"

type contextKey string

const (
	StaffIDKey contextKey = "staff_id"
	VenueIDKey contextKey = "venue_id"
	RoleKey    contextKey = "role"
)

// Staff roles recognized by the engine.
const (
	RoleStaff   = "staff"
	RoleManager = "manager"
)

// SetStaffContext stores the authenticated staff identity (set by the auth
// middleware, read by the services for auditing and authorization).
func SetStaffContext(ctx context.Context, staffID, venueID, role string) context.Context {
	ctx = context.WithValue(ctx, StaffIDKey, staffID)
	ctx = context.WithValue(ctx, VenueIDKey, venueID)
	ctx = context.WithValue(ctx, RoleKey, role)
	return ctx
}

func GetStaffIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(StaffIDKey).(string)
	return id, ok && id != ""
}

func GetVenueIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(VenueIDKey).(string)
	return id, ok && id != ""
}

func GetRoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(RoleKey).(string)
	return role
}

// IsManager reports whether the context carries an elevated staff role.
func IsManager(ctx context.Context) bool {
	return GetRoleFromContext(ctx) == RoleManager
}
