package advance

import (
	"github.com/frahmantamala/timesheet-invoicing/internal"
	"github.com/frahmantamala/timesheet-invoicing/internal/core/common/validation"
	"github.com/frahmantamala/timesheet-invoicing/internal/money"
)

type CreateAdvanceDTO struct {
	UserID      int64       `json:"user_id" validate:"required,gt=0"`
	Amount      *money.Flex `json:"amount" validate:"required"`
	AdvanceDate string      `json:"advance_date" validate:"required,localdate"`
	Note        *string     `json:"note,omitempty" validate:"omitempty,max=500"`
}

func (dto *CreateAdvanceDTO) Validate() error {
	if err := validation.Struct(dto); err != nil {
		return err
	}
	if !dto.Amount.Value().IsPositive() {
		return internal.NewValidationFieldError("amount", "amount must be positive", internal.ErrCodeInvalidAmount)
	}
	return nil
}

type ListAdvancesResponse struct {
	Advances []*Advance `json:"advances"`
}
