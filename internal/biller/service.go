package biller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

type Repository interface {
	GetByID(ctx context.Context, id int64) (*Biller, error)
	Create(ctx context.Context, b *Biller) error
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) GetByID(ctx context.Context, id int64) (*Biller, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		s.logger.Error("failed to get biller", "error", err, "biller_id", id)
		return nil, fmt.Errorf("failed to get biller by id: %w", err)
	}
	return b, nil
}

// GetActive is GetByID restricted to billers who may still invoice.
func (s *Service) GetActive(ctx context.Context, id int64) (*Biller, error) {
	b, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !b.IsActive {
		s.logger.Warn("inactive biller", "biller_id", id)
		return nil, ErrInactive
	}
	return b, nil
}
