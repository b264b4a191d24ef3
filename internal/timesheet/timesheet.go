package timesheet

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/frahmantamala/timesheet-invoicing/internal/calendar"
	"github.com/frahmantamala/timesheet-invoicing/internal/core/common/validation"
	timesheetDatamodel "github.com/frahmantamala/timesheet-invoicing/internal/core/datamodel/timesheet"
)

const (
	StatusDraft     = "draft"
	StatusSubmitted = "submitted"
	StatusApproved  = "approved"
	StatusReturned  = "returned"
)

const minutesPerDay = 24 * 60

var ErrInvalidShift = errors.New("invalid shift times")

type WorkRecord struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"user_id"`
	WorkDate        string          `json:"work_date"`
	StartTime       string          `json:"start_time"`
	EndTime         string          `json:"end_time"`
	Break1Start     *string         `json:"break1_start,omitempty"`
	Break1End       *string         `json:"break1_end,omitempty"`
	Break2Start     *string         `json:"break2_start,omitempty"`
	Break2End       *string         `json:"break2_end,omitempty"`
	NetHours        decimal.Decimal `json:"net_hours"`
	ProjectID       *int64          `json:"project_id,omitempty"`
	AccommodationID *int64          `json:"accommodation_id,omitempty"`
	Status          string          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type Accommodation struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	PricePerNight decimal.Decimal `json:"price_per_night"`
}

// NetHours is the shift length minus both breaks, in hours rounded to the
// cent. A shift or break whose end is before its start wraps past
// midnight. The result is never negative.
func NetHours(start, end string, break1Start, break1End, break2Start, break2End *string) (decimal.Decimal, error) {
	shift, err := span(start, end)
	if err != nil {
		return decimal.Zero, err
	}

	minutes := shift
	for _, b := range [][2]*string{{break1Start, break1End}, {break2Start, break2End}} {
		if b[0] == nil || b[1] == nil || *b[0] == "" || *b[1] == "" {
			continue
		}
		pause, err := span(*b[0], *b[1])
		if err != nil {
			return decimal.Zero, err
		}
		minutes -= pause
	}
	if minutes < 0 {
		minutes = 0
	}

	return decimal.NewFromInt(int64(minutes)).DivRound(decimal.NewFromInt(60), 2), nil
}

func span(from, to string) (int, error) {
	a, err := validation.ParseClock(from)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidShift, err)
	}
	b, err := validation.ParseClock(to)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidShift, err)
	}
	if b < a {
		b += minutesPerDay
	}
	return b - a, nil
}

func ToDataModel(r *WorkRecord) *timesheetDatamodel.WorkRecord {
	return &timesheetDatamodel.WorkRecord{
		ID:              r.ID,
		UserID:          r.UserID,
		WorkDate:        r.WorkDate,
		StartTime:       r.StartTime,
		EndTime:         r.EndTime,
		Break1Start:     r.Break1Start,
		Break1End:       r.Break1End,
		Break2Start:     r.Break2Start,
		Break2End:       r.Break2End,
		NetHours:        r.NetHours,
		ProjectID:       r.ProjectID,
		AccommodationID: r.AccommodationID,
		Status:          r.Status,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func FromDataModel(r *timesheetDatamodel.WorkRecord) *WorkRecord {
	return &WorkRecord{
		ID:              r.ID,
		UserID:          r.UserID,
		WorkDate:        calendar.NormalizeDate(r.WorkDate),
		StartTime:       r.StartTime,
		EndTime:         r.EndTime,
		Break1Start:     r.Break1Start,
		Break1End:       r.Break1End,
		Break2Start:     r.Break2Start,
		Break2End:       r.Break2End,
		NetHours:        r.NetHours,
		ProjectID:       r.ProjectID,
		AccommodationID: r.AccommodationID,
		Status:          r.Status,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func AccommodationFromDataModel(a *timesheetDatamodel.Accommodation) *Accommodation {
	return &Accommodation{ID: a.ID, Name: a.Name, PricePerNight: a.PricePerNight}
}
