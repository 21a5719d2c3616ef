package idempotency

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"tabletap-be/internal/errs"
	"tabletap-be/internal/logger"

	"go.uber.org/zap"
)

// DefaultTTL bounds storage growth. The processor's retry window closes
// well within a day, so expiry after that is safe.
const DefaultTTL = 24 * time.Hour

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CheckOrReserve atomically claims key for this caller. The insert either
// lands (unseen key, or an expired row reclaimed in place) and the caller
// proceeds, or the surviving row classifies the call as replay, conflict,
// or a still-running duplicate.
func (s *Store) CheckOrReserve(ctx context.Context, key, fingerprint string, ttl time.Duration) (Outcome, *Record, error) {
	now := time.Now().UTC()

	var claimed string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO idempotency_keys (key, fingerprint, status, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key) DO UPDATE
		SET fingerprint = EXCLUDED.fingerprint, status = EXCLUDED.status,
		    stored_response = NULL, stored_status = NULL,
		    created_at = EXCLUDED.created_at, expires_at = EXCLUDED.expires_at
		WHERE idempotency_keys.expires_at < EXCLUDED.created_at
		RETURNING key
	`, key, fingerprint, StatusInProgress, now, now.Add(ttl)).Scan(&claimed)
	if err == nil {
		return OutcomeProceed, nil, nil
	}
	if err != sql.ErrNoRows {
		return 0, nil, errs.Internal(err)
	}

	// A live row holds the key; classify against it.
	var (
		rec          Record
		storedStatus sql.NullInt64
	)
	err = s.db.QueryRowContext(ctx, `
		SELECT key, fingerprint, status, stored_response, stored_status, created_at, expires_at
		FROM idempotency_keys
		WHERE key = $1
	`, key).Scan(&rec.Key, &rec.Fingerprint, &rec.Status,
		&rec.StoredResponse, &storedStatus, &rec.CreatedAt, &rec.ExpiresAt)
	rec.StoredStatus = int(storedStatus.Int64)
	if err == sql.ErrNoRows {
		// The row expired and was deleted between our two statements.
		// Rare enough that pushing the retry to the caller is fine.
		return OutcomeInFlight, nil, nil
	}
	if err != nil {
		return 0, nil, errs.Internal(err)
	}

	if rec.Fingerprint != fingerprint {
		return OutcomeConflict, &rec, nil
	}
	if rec.Status != StatusDone {
		return OutcomeInFlight, &rec, nil
	}
	return OutcomeReplay, &rec, nil
}

// Commit stores the final outcome so replays return it without re-running
// side effects.
func (s *Store) Commit(ctx context.Context, key string, response []byte, statusCode int, ttl time.Duration) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE idempotency_keys
		SET status = $1, stored_response = $2, stored_status = $3, expires_at = $4
		WHERE key = $5
	`, StatusDone, response, statusCode, time.Now().UTC().Add(ttl), key)
	if err != nil {
		return errs.Internal(err)
	}
	return nil
}

// Release drops an in-progress reservation after the wrapped operation
// failed, so a corrected retry can run.
func (s *Store) Release(ctx context.Context, key string) {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM idempotency_keys WHERE key = $1 AND status = $2
	`, key, StatusInProgress)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to release idempotency key",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

// Do wraps a side-effecting operation: reserve, replay the cached response
// if one exists, otherwise execute fn and commit its result. fn returns the
// response body (marshalled to JSON for storage) and HTTP-ish status code.
func (s *Store) Do(ctx context.Context, key, fingerprint string, ttl time.Duration,
	fn func(ctx context.Context) (any, int, error)) ([]byte, int, error) {

	outcome, rec, err := s.CheckOrReserve(ctx, key, fingerprint, ttl)
	if err != nil {
		return nil, 0, err
	}

	switch outcome {
	case OutcomeReplay:
		logger.FromCtx(ctx).Info("idempotent replay served", zap.String("key", key))
		return rec.StoredResponse, rec.StoredStatus, nil
	case OutcomeConflict:
		return nil, 0, errs.New(errs.KindIdempotencyConflict,
			"idempotency key reused with a different payload")
	case OutcomeInFlight:
		return nil, 0, errs.New(errs.KindIdempotencyInFlight,
			"an identical request is already in progress")
	}

	body, statusCode, err := fn(ctx)
	if err != nil {
		s.Release(ctx, key)
		return nil, 0, err
	}

	raw, err := json.Marshal(body)
	if err != nil {
		s.Release(ctx, key)
		return nil, 0, errs.Internal(err)
	}

	if err := s.Commit(ctx, key, raw, statusCode, ttl); err != nil {
		// The key must not stay reserved forever on a failed finalize, or
		// the client's retry would be rejected as in-flight until expiry.
		s.Release(ctx, key)
		return nil, 0, err
	}
	return raw, statusCode, nil
}
