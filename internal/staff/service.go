package staff

import (
	"context"
	"time"

	"tabletap-be/internal/auth"
	"tabletap-be/internal/errs"
	"tabletap-be/internal/logger"

	"go.uber.org/zap"
)

// TokenTTL covers a full shift; staff re-enter their PIN the next day.
const TokenTTL = 12 * time.Hour

type Service interface {
	Login(ctx context.Context, venueID, code, pin string) (string, *Member, error)
}

type service struct {
	repo   Repository
	secret []byte
}

func NewService(repo Repository, secret []byte) Service {
	return &service{repo: repo, secret: secret}
}

// Login verifies a staff PIN and issues the venue-scoped access token.
// Unknown codes, inactive accounts, and wrong PINs all report the same
// error so the response does not reveal which codes exist.
func (s *service) Login(ctx context.Context, venueID, code, pin string) (string, *Member, error) {
	m, err := s.repo.GetByCode(ctx, venueID, code)
	if errs.Is(err, errs.KindNotFound) {
		return "", nil, errs.New(errs.KindUnauthorized, "invalid staff credentials")
	}
	if err != nil {
		return "", nil, err
	}

	if !m.Active || !auth.VerifyPIN(m.PINHash, pin) {
		return "", nil, errs.New(errs.KindUnauthorized, "invalid staff credentials")
	}

	token, err := auth.IssueToken(s.secret, m.ID, m.VenueID, m.Role, TokenTTL)
	if err != nil {
		return "", nil, errs.Internal(err)
	}

	logger.FromCtx(ctx).Info("staff logged in",
		zap.String("staff_id", m.ID),
		zap.String("venue_id", m.VenueID),
		zap.String("role", m.Role),
	)
	return token, m, nil
}
