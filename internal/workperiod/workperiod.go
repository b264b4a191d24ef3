package workperiod

import (
	"time"

	"github.com/frahmantamala/timesheet-invoicing/internal"
	workperiodDatamodel "github.com/frahmantamala/timesheet-invoicing/internal/core/datamodel/workperiod"
)

const (
	StatusOpen      = "open"
	StatusSubmitted = "submitted"
	StatusApproved  = "approved"
	StatusReturned  = "returned"
)

var (
	ErrClosingNotFound = internal.ErrClosingNotFound
	ErrInvalidStatus   = internal.ErrInvalidClosingStatus
	ErrNotApproved     = internal.ErrClosingNotApproved
)

// Closing aggregates one worker's records for one ISO week.
type Closing struct {
	ID           int64      `json:"id"`
	UserID       int64      `json:"user_id"`
	CalendarWeek int        `json:"calendar_week"`
	Year         int        `json:"year"`
	Status       string     `json:"status"`
	SubmittedAt  *time.Time `json:"submitted_at,omitempty"`
	ApprovedAt   *time.Time `json:"approved_at,omitempty"`
	ApprovedBy   *int64     `json:"approved_by,omitempty"`
	ReturnReason *string    `json:"return_reason,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// transitions lists, per target status, the statuses it may be reached from.
var transitions = map[string][]string{
	StatusSubmitted: {StatusOpen},
	StatusApproved:  {StatusSubmitted},
	StatusReturned:  {StatusSubmitted},
	StatusOpen:      {StatusReturned},
}

func (c *Closing) CanTransitionTo(status string) bool {
	for _, from := range transitions[status] {
		if c.Status == from {
			return true
		}
	}
	return false
}

func (c *Closing) IsApproved() bool {
	return c.Status == StatusApproved
}

func ToDataModel(c *Closing) *workperiodDatamodel.Closing {
	return &workperiodDatamodel.Closing{
		ID:           c.ID,
		UserID:       c.UserID,
		CalendarWeek: c.CalendarWeek,
		Year:         c.Year,
		Status:       c.Status,
		SubmittedAt:  c.SubmittedAt,
		ApprovedAt:   c.ApprovedAt,
		ApprovedBy:   c.ApprovedBy,
		ReturnReason: c.ReturnReason,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func FromDataModel(c *workperiodDatamodel.Closing) *Closing {
	return &Closing{
		ID:           c.ID,
		UserID:       c.UserID,
		CalendarWeek: c.CalendarWeek,
		Year:         c.Year,
		Status:       c.Status,
		SubmittedAt:  c.SubmittedAt,
		ApprovedAt:   c.ApprovedAt,
		ApprovedBy:   c.ApprovedBy,
		ReturnReason: c.ReturnReason,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}
