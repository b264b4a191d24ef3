package timesheet

import (
	"github.com/frahmantamala/timesheet-invoicing/internal/core/common/validation"
)

type CreateWorkRecordDTO struct {
	WorkDate        string  `json:"work_date" validate:"required,localdate"`
	StartTime       string  `json:"start_time" validate:"required,clock"`
	EndTime         string  `json:"end_time" validate:"required,clock"`
	Break1Start     *string `json:"break1_start,omitempty" validate:"omitempty,clock"`
	Break1End       *string `json:"break1_end,omitempty" validate:"omitempty,clock"`
	Break2Start     *string `json:"break2_start,omitempty" validate:"omitempty,clock"`
	Break2End       *string `json:"break2_end,omitempty" validate:"omitempty,clock"`
	ProjectID       *int64  `json:"project_id,omitempty" validate:"omitempty,gt=0"`
	AccommodationID *int64  `json:"accommodation_id,omitempty" validate:"omitempty,gt=0"`
	Status          string  `json:"status,omitempty" validate:"omitempty,oneof=draft submitted approved returned"`
}

func (dto *CreateWorkRecordDTO) Validate() error {
	return validation.Struct(dto)
}
