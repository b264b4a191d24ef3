package workperiod

import (
	"github.com/frahmantamala/timesheet-invoicing/internal/core/common/validation"
)

type OpenClosingDTO struct {
	UserID       int64 `json:"user_id,omitempty" validate:"omitempty,gt=0"`
	CalendarWeek int   `json:"calendar_week" validate:"required,min=1,max=53"`
	Year         int   `json:"year" validate:"required,min=2000,max=2100"`
}

func (dto *OpenClosingDTO) Validate() error {
	return validation.Struct(dto)
}

type ReturnClosingDTO struct {
	Reason string `json:"reason" validate:"max=500"`
}
