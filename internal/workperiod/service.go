package workperiod

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/frahmantamala/timesheet-invoicing/internal"
	"github.com/frahmantamala/timesheet-invoicing/internal/calendar"
)

// ErrDuplicate is returned by Repository.Create when a live closing for the
// same worker and week already exists.
var ErrDuplicate = errors.New("closing already exists")

type Repository interface {
	GetByID(ctx context.Context, id int64) (*Closing, error)
	FindByWeek(ctx context.Context, userID int64, week, year int) (*Closing, error)
	Create(ctx context.Context, c *Closing) error
	// Transition moves a closing to c.Status if it is currently in one of
	// from, writing the timestamp fields of c. It returns
	// ErrInvalidStatus when the row was not in an allowed status.
	Transition(ctx context.Context, c *Closing, from []string) error
}

type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

func (s *Service) GetByID(ctx context.Context, id int64) (*Closing, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrClosingNotFound) {
			s.logger.Error("failed to get closing", "error", err, "closing_id", id)
		}
		return nil, err
	}
	return c, nil
}

// Open returns the closing of userID for the week, creating an open one if
// there is none.
func (s *Service) Open(ctx context.Context, userID int64, dto OpenClosingDTO) (*Closing, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if dto.CalendarWeek > calendar.WeeksInYear(dto.Year) {
		return nil, internal.NewValidationFieldError("calendar_week", "calendar_week does not exist in year", internal.ErrCodeInvalidDate)
	}
	return s.findOrCreate(ctx, &Closing{
		UserID:       userID,
		CalendarWeek: dto.CalendarWeek,
		Year:         dto.Year,
		Status:       StatusOpen,
	})
}

func (s *Service) findOrCreate(ctx context.Context, c *Closing) (*Closing, error) {
	existing, err := s.repo.FindByWeek(ctx, c.UserID, c.CalendarWeek, c.Year)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrClosingNotFound) {
		s.logger.Error("failed to look up closing", "error", err, "user_id", c.UserID, "week", c.CalendarWeek, "year", c.Year)
		return nil, err
	}

	if err := s.repo.Create(ctx, c); err != nil {
		if errors.Is(err, ErrDuplicate) {
			// lost a concurrent create; the winner's row is the closing
			return s.repo.FindByWeek(ctx, c.UserID, c.CalendarWeek, c.Year)
		}
		s.logger.Error("failed to create closing", "error", err, "user_id", c.UserID, "week", c.CalendarWeek, "year", c.Year)
		return nil, err
	}

	s.logger.Info("closing created", "closing_id", c.ID, "user_id", c.UserID, "week", c.CalendarWeek, "year", c.Year, "status", c.Status)
	return c, nil
}

func (s *Service) Submit(ctx context.Context, id int64, actor *internal.Identity) (*Closing, error) {
	c, err := s.load(ctx, id, actor, false)
	if err != nil {
		return nil, err
	}
	now := s.now()
	c.SubmittedAt = &now
	return s.transition(ctx, c, StatusSubmitted)
}

func (s *Service) Approve(ctx context.Context, id int64, actor *internal.Identity) (*Closing, error) {
	c, err := s.load(ctx, id, actor, true)
	if err != nil {
		return nil, err
	}
	now := s.now()
	c.ApprovedAt = &now
	c.ApprovedBy = &actor.UserID
	c.ReturnReason = nil
	return s.transition(ctx, c, StatusApproved)
}

func (s *Service) Return(ctx context.Context, id int64, reason string, actor *internal.Identity) (*Closing, error) {
	c, err := s.load(ctx, id, actor, true)
	if err != nil {
		return nil, err
	}
	if reason != "" {
		c.ReturnReason = &reason
	}
	return s.transition(ctx, c, StatusReturned)
}

func (s *Service) Reopen(ctx context.Context, id int64, actor *internal.Identity) (*Closing, error) {
	c, err := s.load(ctx, id, actor, false)
	if err != nil {
		return nil, err
	}
	c.SubmittedAt = nil
	return s.transition(ctx, c, StatusOpen)
}

// EnsureApproved returns an approved closing for the week. An absent closing
// is created approved and a submitted one is approved; open or returned
// closings are still with the worker and are refused.
func (s *Service) EnsureApproved(ctx context.Context, userID int64, week, year int, approverID int64) (*Closing, error) {
	now := s.now()
	c, err := s.findOrCreate(ctx, &Closing{
		UserID:       userID,
		CalendarWeek: week,
		Year:         year,
		Status:       StatusApproved,
		SubmittedAt:  &now,
		ApprovedAt:   &now,
		ApprovedBy:   &approverID,
	})
	if err != nil {
		return nil, err
	}
	switch c.Status {
	case StatusApproved:
		return c, nil
	case StatusSubmitted:
	default:
		s.logger.Warn("closing not ready for approval", "closing_id", c.ID, "status", c.Status)
		return nil, ErrNotApproved
	}

	c.ApprovedAt = &now
	c.ApprovedBy = &approverID
	c.ReturnReason = nil
	approved, err := s.transition(ctx, c, StatusApproved)
	if errors.Is(err, ErrInvalidStatus) {
		// changed under us; approved by someone else is fine
		again, gerr := s.repo.GetByID(ctx, c.ID)
		if gerr == nil && again.IsApproved() {
			return again, nil
		}
		return nil, ErrNotApproved
	}
	return approved, err
}

func (s *Service) load(ctx context.Context, id int64, actor *internal.Identity, adminOnly bool) (*Closing, error) {
	if actor == nil {
		return nil, internal.ErrMissingIdentity
	}
	if adminOnly && !actor.IsAdmin() {
		s.logger.Warn("closing transition denied", "closing_id", id, "user_id", actor.UserID)
		return nil, internal.ErrUnauthorizedAccess
	}
	c, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanActFor(c.UserID) {
		s.logger.Warn("closing access denied", "closing_id", id, "user_id", actor.UserID, "owner_id", c.UserID)
		return nil, internal.ErrUnauthorizedAccess
	}
	return c, nil
}

func (s *Service) transition(ctx context.Context, c *Closing, to string) (*Closing, error) {
	if !c.CanTransitionTo(to) {
		s.logger.Warn("invalid closing transition", "closing_id", c.ID, "from", c.Status, "to", to)
		return nil, ErrInvalidStatus
	}
	from := transitions[to]
	previous := c.Status
	c.Status = to
	if err := s.repo.Transition(ctx, c, from); err != nil {
		if !errors.Is(err, ErrInvalidStatus) {
			s.logger.Error("failed to update closing status", "error", err, "closing_id", c.ID, "to", to)
		}
		return nil, err
	}
	s.logger.Info("closing status changed", "closing_id", c.ID, "from", previous, "to", to)
	return c, nil
}
