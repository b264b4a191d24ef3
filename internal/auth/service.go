package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/frahmantamala/timesheet-invoicing/internal"
	"github.com/frahmantamala/timesheet-invoicing/internal/biller"
)

type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

type BillerReader interface {
	GetActive(ctx context.Context, id int64) (*biller.Biller, error)
}

type Service struct {
	tokens  TokenValidator
	billers BillerReader
	logger  *slog.Logger
}

func NewService(tokens TokenValidator, billers BillerReader, logger *slog.Logger) *Service {
	return &Service{tokens: tokens, billers: billers, logger: logger}
}

// Authenticate resolves a bearer token to the caller's identity. Role and
// email come from the stored biller, not from the token, so a demoted or
// deactivated account loses access on its next request.
func (s *Service) Authenticate(ctx context.Context, token string) (*internal.Identity, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, err
	}

	uid, err := claims.BillerID()
	if err != nil {
		return nil, ErrInvalidToken.Wrap(err)
	}

	b, err := s.billers.GetActive(ctx, uid)
	if err != nil {
		if errors.Is(err, biller.ErrNotFound) {
			return nil, ErrInvalidToken.Wrap(err)
		}
		if errors.Is(err, biller.ErrInactive) {
			return nil, err
		}
		s.logger.Error("failed to load biller for token", "error", err, "user_id", uid)
		return nil, err
	}

	return &internal.Identity{UserID: b.ID, Email: b.Email, Role: b.Role}, nil
}
