package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/frahmantamala/timesheet-invoicing/internal/advance"
	advanceDatamodel "github.com/frahmantamala/timesheet-invoicing/internal/core/datamodel/advance"
)

type AdvanceRepository struct {
	db *gorm.DB
}

// NewAdvanceRepository works on db, which may be a transaction.
func NewAdvanceRepository(db *gorm.DB) *AdvanceRepository {
	return &AdvanceRepository{db: db}
}

func (r *AdvanceRepository) Create(ctx context.Context, a *advance.Advance) error {
	row := advance.ToDataModel(a)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	a.ID = row.ID
	a.CreatedAt = row.CreatedAt
	a.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *AdvanceRepository) GetByID(ctx context.Context, id int64) (*advance.Advance, error) {
	var row advanceDatamodel.Advance
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, advance.ErrAdvanceNotFound
		}
		return nil, err
	}
	return advance.FromDataModel(&row), nil
}

func (r *AdvanceRepository) ListByUser(ctx context.Context, userID int64, onlyOpen bool) ([]*advance.Advance, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if onlyOpen {
		q = q.Where("invoice_id IS NULL")
	}
	var rows []*advanceDatamodel.Advance
	if err := q.Order("advance_date ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return fromRows(rows), nil
}

func (r *AdvanceRepository) ListOpen(ctx context.Context, userID int64, onOrBefore string) ([]*advance.Advance, error) {
	var rows []*advanceDatamodel.Advance
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND invoice_id IS NULL AND advance_date <= ?", userID, onOrBefore).
		Order("advance_date ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return fromRows(rows), nil
}

func (r *AdvanceRepository) DeleteOpen(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Where("id = ? AND invoice_id IS NULL", id).Delete(&advanceDatamodel.Advance{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return advance.ErrAdvanceConsumed
	}
	return nil
}

func (r *AdvanceRepository) Consume(ctx context.Context, userID, invoiceID int64, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).
		Model(&advanceDatamodel.Advance{}).
		Where("id IN ? AND user_id = ? AND invoice_id IS NULL", ids, userID).
		Update("invoice_id", invoiceID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != int64(len(ids)) {
		return advance.ErrAdvanceConsumed
	}
	return nil
}

func fromRows(rows []*advanceDatamodel.Advance) []*advance.Advance {
	out := make([]*advance.Advance, len(rows))
	for i, row := range rows {
		out[i] = advance.FromDataModel(row)
	}
	return out
}
