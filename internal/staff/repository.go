package staff

import (
	"context"
	"database/sql"

	"tabletap-be/internal/errs"
)

type Repository interface {
	GetByCode(ctx context.Context, venueID, code string) (*Member, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByCode(ctx context.Context, venueID, code string) (*Member, error) {
	var m Member
	err := r.db.QueryRowContext(ctx, `
		SELECT id, venue_id, code, name, role, pin_hash, active, created_at
		FROM staff
		WHERE venue_id = $1 AND code = $2
	`, venueID, code).Scan(&m.ID, &m.VenueID, &m.Code, &m.Name, &m.Role,
		&m.PINHash, &m.Active, &m.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, errs.New(errs.KindNotFound, "staff member not found")
	}
	if err != nil {
		return nil, errs.Internal(err)
	}
	return &m, nil
}
