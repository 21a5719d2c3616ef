package venue

import (
	"context"
	"database/sql"

	"tabletap-be/internal/errs"
)

// Directory is the venue lookup surface the order engine depends on.
type Directory interface {
	Exists(ctx context.Context, venueID string) (bool, error)
	GetConfig(ctx context.Context, venueID string) (Config, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Directory {
	return &repository{db: db}
}

func (r *repository) Exists(ctx context.Context, venueID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM venues WHERE id = $1 AND active)
	`, venueID).Scan(&exists)
	if err != nil {
		return false, errs.Internal(err)
	}
	return exists, nil
}

func (r *repository) GetConfig(ctx context.Context, venueID string) (Config, error) {
	var cfg Config
	err := r.db.QueryRowContext(ctx, `
		SELECT allow_till_for_table_collection, allow_deferred_counter
		FROM venues
		WHERE id = $1
	`, venueID).Scan(&cfg.AllowTillForTableCollection, &cfg.AllowDeferredCounter)

	if err == sql.ErrNoRows {
		return Config{}, errs.New(errs.KindNotFound, "venue not found")
	}
	if err != nil {
		return Config{}, errs.Internal(err)
	}
	return cfg, nil
}
