package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	advancePostgres "github.com/frahmantamala/timesheet-invoicing/internal/advance/postgres"
	invoiceDatamodel "github.com/frahmantamala/timesheet-invoicing/internal/core/datamodel/invoice"
	"github.com/frahmantamala/timesheet-invoicing/internal/invoice"
)

// InvoiceRepository implements invoice.Repository using GORM. All reads
// skip soft-deleted rows through gorm's DeletedAt scope.
type InvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// LatestNumber returns the highest live number of the biller matching the
// LIKE pattern. Within one pattern every number has the same length, so
// text order is numeric order.
func (r *InvoiceRepository) LatestNumber(ctx context.Context, billerID int64, pattern string) (string, error) {
	var numbers []string
	err := r.db.WithContext(ctx).
		Model(&invoiceDatamodel.Invoice{}).
		Where("user_id = ? AND status <> ?", billerID, invoice.StatusVoid).
		Where("invoice_number LIKE ? ESCAPE '\\'", pattern).
		Order("invoice_number DESC").
		Limit(1).
		Pluck("invoice_number", &numbers).Error
	if err != nil {
		return "", err
	}
	if len(numbers) == 0 {
		return "", nil
	}
	return numbers[0], nil
}

func (r *InvoiceRepository) FindActiveForClosing(ctx context.Context, billerID, closingID int64) (*invoice.Invoice, error) {
	var rows []invoiceDatamodel.Invoice
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND week_closing_id = ? AND status <> ?", billerID, closingID, invoice.StatusVoid).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return invoice.FromDataModel(&rows[0]), nil
}

func (r *InvoiceRepository) Persist(ctx context.Context, inv *invoice.Invoice, advanceIDs []int64) error {
	row := invoice.ToDataModel(inv)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: %v", invoice.ErrDuplicate, err)
			}
			return err
		}
		return advancePostgres.NewAdvanceRepository(tx).Consume(ctx, inv.UserID, row.ID, advanceIDs)
	})
	if err != nil {
		return err
	}

	inv.ID = row.ID
	inv.CreatedAt = row.CreatedAt
	inv.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *InvoiceRepository) GetByID(ctx context.Context, id int64) (*invoice.Invoice, error) {
	var row invoiceDatamodel.Invoice
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invoice.ErrInvoiceNotFound
		}
		return nil, err
	}
	return invoice.FromDataModel(&row), nil
}

func (r *InvoiceRepository) List(ctx context.Context, filter invoice.ListFilter) ([]*invoice.Invoice, error) {
	q := r.db.WithContext(ctx).Model(&invoiceDatamodel.Invoice{})
	if filter.UserID != 0 {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.Year != 0 {
		q = q.Where("issue_date >= ? AND issue_date <= ?",
			fmt.Sprintf("%04d-01-01", filter.Year),
			fmt.Sprintf("%04d-12-31", filter.Year))
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var rows []*invoiceDatamodel.Invoice
	err := q.Order("issue_date DESC, invoice_number DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]*invoice.Invoice, len(rows))
	for i, row := range rows {
		out[i] = invoice.FromDataModel(row)
	}
	return out, nil
}

func (r *InvoiceRepository) Update(ctx context.Context, id int64, cond invoice.Condition, updates map[string]interface{}) error {
	q := r.db.WithContext(ctx).Model(&invoiceDatamodel.Invoice{}).Where("id = ?", id)
	if len(cond.Statuses) > 0 {
		q = q.Where("status IN ?", cond.Statuses)
	}
	if cond.Unlocked {
		q = q.Where("is_locked = ?", false)
	}
	if cond.TaxPaymentStatus != "" {
		q = q.Where("tax_payment_status = ?", cond.TaxPaymentStatus)
	}

	res := q.Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return invoice.ErrStale
	}
	return nil
}
