package advance

import (
	"context"
	"errors"
	"log/slog"

	"github.com/frahmantamala/timesheet-invoicing/internal"
	"github.com/frahmantamala/timesheet-invoicing/internal/calendar"
)

type Repository interface {
	Create(ctx context.Context, a *Advance) error
	GetByID(ctx context.Context, id int64) (*Advance, error)
	ListByUser(ctx context.Context, userID int64, onlyOpen bool) ([]*Advance, error)
	// ListOpen returns unconsumed advances of userID dated on or before
	// the given date.
	ListOpen(ctx context.Context, userID int64, onOrBefore string) ([]*Advance, error)
	// DeleteOpen soft-deletes the advance unless it has been consumed.
	DeleteOpen(ctx context.Context, id int64) error
	// Consume links every advance in ids to invoiceID. It fails with
	// ErrAdvanceConsumed unless all of them were still open.
	Consume(ctx context.Context, userID, invoiceID int64, ids []int64) error
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) Create(ctx context.Context, dto CreateAdvanceDTO, actor *internal.Identity) (*Advance, error) {
	if !actor.IsAdmin() {
		return nil, internal.ErrUnauthorizedAccess
	}
	if err := dto.Validate(); err != nil {
		s.logger.Error("advance validation failed", "error", err)
		return nil, err
	}

	a := &Advance{
		UserID:      dto.UserID,
		Amount:      dto.Amount.Value().Round(2),
		AdvanceDate: calendar.NormalizeDate(dto.AdvanceDate),
		Note:        dto.Note,
		CreatedBy:   &actor.UserID,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		s.logger.Error("failed to create advance", "error", err, "user_id", dto.UserID)
		return nil, err
	}

	s.logger.Info("advance created", "advance_id", a.ID, "user_id", a.UserID, "amount", a.Amount.String())
	return a, nil
}

func (s *Service) List(ctx context.Context, userID int64, onlyOpen bool, actor *internal.Identity) ([]*Advance, error) {
	if !actor.CanActFor(userID) {
		return nil, internal.ErrUnauthorizedAccess
	}
	advances, err := s.repo.ListByUser(ctx, userID, onlyOpen)
	if err != nil {
		s.logger.Error("failed to list advances", "error", err, "user_id", userID)
		return nil, err
	}
	return advances, nil
}

func (s *Service) Delete(ctx context.Context, id int64, actor *internal.Identity) error {
	if !actor.IsAdmin() {
		return internal.ErrUnauthorizedAccess
	}
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !a.CanBeDeleted() {
		s.logger.Warn("refusing to delete consumed advance", "advance_id", id, "invoice_id", *a.InvoiceID)
		return ErrAdvanceConsumed
	}
	if err := s.repo.DeleteOpen(ctx, id); err != nil {
		if !errors.Is(err, ErrAdvanceConsumed) {
			s.logger.Error("failed to delete advance", "error", err, "advance_id", id)
		}
		return err
	}
	s.logger.Info("advance deleted", "advance_id", id)
	return nil
}

// Open returns the advances that a new invoice issued on issueDate would
// deduct.
func (s *Service) Open(ctx context.Context, userID int64, issueDate string) ([]*Advance, error) {
	advances, err := s.repo.ListOpen(ctx, userID, issueDate)
	if err != nil {
		s.logger.Error("failed to list open advances", "error", err, "user_id", userID)
		return nil, err
	}
	return advances, nil
}
