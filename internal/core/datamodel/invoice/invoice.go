package invoice

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Invoice rows. Both partial unique indexes cover live rows only: void and
// soft-deleted invoices neither block a new invoice for the same closing nor
// hold on to their number.
type Invoice struct {
	ID                     int64           `gorm:"primaryKey"`
	InvoiceNumber          string          `gorm:"column:invoice_number;type:varchar(32);not null;uniqueIndex:idx_invoices_live_number,where:status <> 'void' AND deleted_at IS NULL"`
	UserID                 int64           `gorm:"column:user_id;not null;uniqueIndex:idx_invoices_live_number;uniqueIndex:idx_invoices_active_closing,where:status <> 'void' AND deleted_at IS NULL"`
	ProjectID              *int64          `gorm:"column:project_id"`
	WeekClosingID          *int64          `gorm:"column:week_closing_id;uniqueIndex:idx_invoices_active_closing"`
	BillingClass           string          `gorm:"column:billing_class;not null;default:standard"`
	TotalHours             decimal.Decimal `gorm:"column:total_hours;type:numeric(8,2);not null"`
	HourlyRate             decimal.Decimal `gorm:"column:hourly_rate;type:numeric(10,2);not null"`
	Subtotal               decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	VATAmount              decimal.Decimal `gorm:"column:vat_amount;type:numeric(12,2);not null"`
	AdvanceDeduction       decimal.Decimal `gorm:"column:advance_deduction;type:numeric(12,2);not null"`
	AccommodationDeduction decimal.Decimal `gorm:"column:accommodation_deduction;type:numeric(12,2);not null"`
	TotalAmount            decimal.Decimal `gorm:"column:total_amount;type:numeric(12,2);not null"`
	IssueDate              string          `gorm:"column:issue_date;type:date;not null"`
	DeliveryDate           string          `gorm:"column:delivery_date;type:date;not null"`
	DueDate                string          `gorm:"column:due_date;type:date;not null"`
	Status                 string          `gorm:"column:status;not null;default:pending"`
	IsReverseCharge        bool            `gorm:"column:is_reverse_charge;not null;default:false"`
	TransactionTaxRate     decimal.Decimal `gorm:"column:transaction_tax_rate;type:numeric(6,3);not null"`
	TransactionTaxAmount   decimal.Decimal `gorm:"column:transaction_tax_amount;type:numeric(12,2);not null"`
	TaxPaymentStatus       string          `gorm:"column:tax_payment_status;not null;default:pending"`
	PaidAt                 *time.Time      `gorm:"column:paid_at"`
	IsLocked               bool            `gorm:"column:is_locked;not null;default:false"`
	CreatedBy              *int64          `gorm:"column:created_by"`
	CreatedAt              time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time       `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt              gorm.DeletedAt  `gorm:"column:deleted_at;index"`
}

func (Invoice) TableName() string {
	return "invoices"
}
