package invoice

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/frahmantamala/timesheet-invoicing/internal"
	"github.com/frahmantamala/timesheet-invoicing/internal/calendar"
	invoiceDatamodel "github.com/frahmantamala/timesheet-invoicing/internal/core/datamodel/invoice"
)

const (
	StatusPending = "pending"
	StatusPaid    = "paid"
	StatusOverdue = "overdue"
	StatusVoid    = "void"

	// DisplayDueSoon is never stored.
	DisplayDueSoon = "due_soon"

	TaxPaymentPending   = "pending"
	TaxPaymentConfirmed = "confirmed"
	TaxPaymentVerified  = "verified"
)

var (
	ErrInvoiceNotFound         = internal.ErrInvoiceNotFound
	ErrAlreadyGenerated        = internal.ErrInvoiceAlreadyGenerated
	ErrNumberConflict          = internal.ErrInvoiceNumberConflict
	ErrPersistFailed           = internal.ErrInvoicePersistFailed
	ErrLocked                  = internal.ErrInvoiceLocked
	ErrInvalidStatus           = internal.ErrInvalidInvoiceStatus
	ErrInvalidTaxPaymentStatus = internal.ErrInvalidTaxPaymentStatus

	// ErrDuplicate is returned by a Repository when an insert hits one of the
	// live-row unique indexes.
	ErrDuplicate = errors.New("invoice: unique constraint violated")
	// ErrStale is returned by a Repository when a conditional update matched
	// no row.
	ErrStale = errors.New("invoice: state changed")
)

// taxPaymentNext maps each transaction tax payment status to the only status
// that may follow it.
var taxPaymentNext = map[string]string{
	TaxPaymentPending:   TaxPaymentConfirmed,
	TaxPaymentConfirmed: TaxPaymentVerified,
}

// Invoice owns its monetary fields once persisted. Dates are YYYY-MM-DD.
type Invoice struct {
	ID                     int64           `json:"id"`
	InvoiceNumber          string          `json:"invoice_number"`
	UserID                 int64           `json:"user_id"`
	ProjectID              *int64          `json:"project_id,omitempty"`
	WeekClosingID          *int64          `json:"week_closing_id,omitempty"`
	BillingClass           string          `json:"billing_class"`
	TotalHours             decimal.Decimal `json:"total_hours"`
	HourlyRate             decimal.Decimal `json:"hourly_rate"`
	Subtotal               decimal.Decimal `json:"subtotal"`
	VATAmount              decimal.Decimal `json:"vat_amount"`
	AdvanceDeduction       decimal.Decimal `json:"advance_deduction"`
	AccommodationDeduction decimal.Decimal `json:"accommodation_deduction"`
	TotalAmount            decimal.Decimal `json:"total_amount"`
	IssueDate              string          `json:"issue_date"`
	DeliveryDate           string          `json:"delivery_date"`
	DueDate                string          `json:"due_date"`
	Status                 string          `json:"status"`
	IsReverseCharge        bool            `json:"is_reverse_charge"`
	TransactionTaxRate     decimal.Decimal `json:"transaction_tax_rate"`
	TransactionTaxAmount   decimal.Decimal `json:"transaction_tax_amount"`
	TaxPaymentStatus       string          `json:"tax_payment_status"`
	PaidAt                 *time.Time      `json:"paid_at,omitempty"`
	IsLocked               bool            `json:"is_locked"`
	CreatedBy              *int64          `json:"created_by,omitempty"`
	CreatedAt              time.Time       `json:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"`
}

func (i *Invoice) IsVoid() bool {
	return i.Status == StatusVoid
}

func (i *Invoice) CanBePaid() bool {
	return i.Status == StatusPending || i.Status == StatusOverdue
}

func (i *Invoice) CanBeVoided() bool {
	return !i.IsLocked && (i.Status == StatusPending || i.Status == StatusOverdue)
}

// NextTaxPaymentStatus reports whether the transaction tax payment status may
// move to status.
func (i *Invoice) NextTaxPaymentStatus(status string) bool {
	return taxPaymentNext[i.TaxPaymentStatus] == status
}

// DisplayStatus derives overdue and due_soon from the due date. Only pending
// invoices are affected; the stored status is left alone.
func (i *Invoice) DisplayStatus(today time.Time, dueSoonDays int) string {
	if i.Status != StatusPending {
		return i.Status
	}
	now := calendar.FormatDateString(today)
	if i.DueDate < now {
		return StatusOverdue
	}
	if dueSoonDays > 0 && i.DueDate <= calendar.FormatDateString(calendar.AddDays(today, dueSoonDays)) {
		return DisplayDueSoon
	}
	return StatusPending
}

func ToDataModel(i *Invoice) *invoiceDatamodel.Invoice {
	return &invoiceDatamodel.Invoice{
		ID:                     i.ID,
		InvoiceNumber:          i.InvoiceNumber,
		UserID:                 i.UserID,
		ProjectID:              i.ProjectID,
		WeekClosingID:          i.WeekClosingID,
		BillingClass:           i.BillingClass,
		TotalHours:             i.TotalHours,
		HourlyRate:             i.HourlyRate,
		Subtotal:               i.Subtotal,
		VATAmount:              i.VATAmount,
		AdvanceDeduction:       i.AdvanceDeduction,
		AccommodationDeduction: i.AccommodationDeduction,
		TotalAmount:            i.TotalAmount,
		IssueDate:              i.IssueDate,
		DeliveryDate:           i.DeliveryDate,
		DueDate:                i.DueDate,
		Status:                 i.Status,
		IsReverseCharge:        i.IsReverseCharge,
		TransactionTaxRate:     i.TransactionTaxRate,
		TransactionTaxAmount:   i.TransactionTaxAmount,
		TaxPaymentStatus:       i.TaxPaymentStatus,
		PaidAt:                 i.PaidAt,
		IsLocked:               i.IsLocked,
		CreatedBy:              i.CreatedBy,
		CreatedAt:              i.CreatedAt,
		UpdatedAt:              i.UpdatedAt,
	}
}

func FromDataModel(row *invoiceDatamodel.Invoice) *Invoice {
	return &Invoice{
		ID:                     row.ID,
		InvoiceNumber:          row.InvoiceNumber,
		UserID:                 row.UserID,
		ProjectID:              row.ProjectID,
		WeekClosingID:          row.WeekClosingID,
		BillingClass:           row.BillingClass,
		TotalHours:             row.TotalHours,
		HourlyRate:             row.HourlyRate,
		Subtotal:               row.Subtotal,
		VATAmount:              row.VATAmount,
		AdvanceDeduction:       row.AdvanceDeduction,
		AccommodationDeduction: row.AccommodationDeduction,
		TotalAmount:            row.TotalAmount,
		IssueDate:              calendar.NormalizeDate(row.IssueDate),
		DeliveryDate:           calendar.NormalizeDate(row.DeliveryDate),
		DueDate:                calendar.NormalizeDate(row.DueDate),
		Status:                 row.Status,
		IsReverseCharge:        row.IsReverseCharge,
		TransactionTaxRate:     row.TransactionTaxRate,
		TransactionTaxAmount:   row.TransactionTaxAmount,
		TaxPaymentStatus:       row.TaxPaymentStatus,
		PaidAt:                 row.PaidAt,
		IsLocked:               row.IsLocked,
		CreatedBy:              row.CreatedBy,
		CreatedAt:              row.CreatedAt,
		UpdatedAt:              row.UpdatedAt,
	}
}
