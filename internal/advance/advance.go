package advance

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/frahmantamala/timesheet-invoicing/internal"
	"github.com/frahmantamala/timesheet-invoicing/internal/calendar"
	advanceDatamodel "github.com/frahmantamala/timesheet-invoicing/internal/core/datamodel/advance"
)

var (
	ErrAdvanceNotFound = internal.ErrAdvanceNotFound
	ErrAdvanceConsumed = internal.ErrAdvanceConsumed
)

// Advance is a prepayment to a biller. Once InvoiceID is set it has been
// deducted from that invoice and can neither be consumed again nor deleted.
type Advance struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	AdvanceDate string          `json:"advance_date"`
	Note        *string         `json:"note,omitempty"`
	InvoiceID   *int64          `json:"invoice_id,omitempty"`
	CreatedBy   *int64          `json:"created_by,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (a *Advance) IsConsumed() bool {
	return a.InvoiceID != nil
}

func (a *Advance) CanBeDeleted() bool {
	return !a.IsConsumed()
}

// Total sums the amounts of advances and returns their ids.
func Total(advances []*Advance) (decimal.Decimal, []int64) {
	sum := decimal.Zero
	ids := make([]int64, 0, len(advances))
	for _, a := range advances {
		sum = sum.Add(a.Amount)
		ids = append(ids, a.ID)
	}
	return sum, ids
}

func ToDataModel(a *Advance) *advanceDatamodel.Advance {
	return &advanceDatamodel.Advance{
		ID:          a.ID,
		UserID:      a.UserID,
		Amount:      a.Amount,
		AdvanceDate: a.AdvanceDate,
		Note:        a.Note,
		InvoiceID:   a.InvoiceID,
		CreatedBy:   a.CreatedBy,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func FromDataModel(a *advanceDatamodel.Advance) *Advance {
	return &Advance{
		ID:          a.ID,
		UserID:      a.UserID,
		Amount:      a.Amount,
		AdvanceDate: calendar.NormalizeDate(a.AdvanceDate),
		Note:        a.Note,
		InvoiceID:   a.InvoiceID,
		CreatedBy:   a.CreatedBy,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}
