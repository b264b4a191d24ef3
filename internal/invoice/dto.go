package invoice

import (
	"github.com/frahmantamala/timesheet-invoicing/internal"
	"github.com/frahmantamala/timesheet-invoicing/internal/core/common/validation"
	"github.com/frahmantamala/timesheet-invoicing/internal/money"
)

// DateOverrides replaces the derived issue or delivery date.
type DateOverrides struct {
	IssueDate    string `json:"issue_date,omitempty" validate:"omitempty,localdate"`
	DeliveryDate string `json:"delivery_date,omitempty" validate:"omitempty,localdate"`
}

// GenerateInvoiceRequest is the input of GenerateAndSave. Every nil field is
// derived: hours and lodging from the closing's work records, the rate from
// the biller, the advance deduction from the biller's open advances.
// Monetary fields accept numbers or numeric strings; anything else counts
// as zero.
type GenerateInvoiceRequest struct {
	BillerID            int64          `json:"biller_id"`
	ProjectID           *int64         `json:"project_id,omitempty"`
	WorkPeriodClosingID *int64         `json:"work_period_closing_id,omitempty"`
	TotalHours          *money.Flex    `json:"total_hours,omitempty"`
	HourlyRate          *money.Flex    `json:"hourly_rate,omitempty"`
	AdvanceDeduction    *money.Flex    `json:"advance_deduction,omitempty"`
	LodgingDeduction    *money.Flex    `json:"lodging_deduction,omitempty"`
	IsReverseCharge     *bool          `json:"is_reverse_charge,omitempty"`
	TransactionTaxRate  *money.Flex    `json:"transaction_tax_rate,omitempty"`
	Dates               *DateOverrides `json:"dates,omitempty"`
}

func (r *GenerateInvoiceRequest) Validate() error {
	if r.BillerID <= 0 {
		return internal.ErrMissingIdentity
	}
	if r.Dates != nil {
		if err := validation.Struct(r.Dates); err != nil {
			return err
		}
	}
	return nil
}

// RetainerRequest is the input of GenerateRetainer.
type RetainerRequest struct {
	BillerID     int64          `json:"biller_id" validate:"required,gt=0"`
	CalendarWeek int            `json:"calendar_week" validate:"required,min=1,max=53"`
	Year         int            `json:"year" validate:"required,min=2000,max=2100"`
	ProjectID    *int64         `json:"project_id,omitempty"`
	Dates        *DateOverrides `json:"dates,omitempty"`
}

func (r *RetainerRequest) Validate() error {
	return validation.Struct(r)
}

// GenerateResult is the uniform outcome of a generation. A document failure
// after a successful save yields Success=false with InvoiceID set.
type GenerateResult struct {
	Success       bool     `json:"success"`
	InvoiceID     *int64   `json:"invoice_id,omitempty"`
	InvoiceNumber string   `json:"invoice_number,omitempty"`
	Invoice       *Invoice `json:"invoice,omitempty"`
	ErrorCode     string   `json:"error_code,omitempty"`
	Message       string   `json:"message,omitempty"`
}

type ListFilter struct {
	UserID int64
	Year   int
	Status string
	Limit  int
	Offset int
}

// View adds the derived display status to an invoice.
type View struct {
	*Invoice
	DisplayStatus string `json:"display_status"`
}

type ListInvoicesResponse struct {
	Invoices []*View `json:"invoices"`
}

type UpdateTaxPaymentDTO struct {
	Status string `json:"status" validate:"required,oneof=confirmed verified"`
}

func (dto *UpdateTaxPaymentDTO) Validate() error {
	return validation.Struct(dto)
}
