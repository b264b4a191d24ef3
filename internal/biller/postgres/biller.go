package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/frahmantamala/timesheet-invoicing/internal/biller"
	billerDatamodel "github.com/frahmantamala/timesheet-invoicing/internal/core/datamodel/biller"
)

// BillerRepository implements biller.Repository on the users table.
type BillerRepository struct {
	db *gorm.DB
}

func NewBillerRepository(db *gorm.DB) *BillerRepository {
	return &BillerRepository{db: db}
}

func (r *BillerRepository) GetByID(ctx context.Context, id int64) (*biller.Biller, error) {
	var row billerDatamodel.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, biller.ErrNotFound
		}
		return nil, err
	}
	return biller.FromDataModel(&row), nil
}

func (r *BillerRepository) Create(ctx context.Context, b *biller.Biller) error {
	row := biller.ToDataModel(b)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	b.ID = row.ID
	b.CreatedAt = row.CreatedAt
	b.UpdatedAt = row.UpdatedAt
	return nil
}

// GetByEmail is used by the seeder to keep seeding idempotent.
func (r *BillerRepository) GetByEmail(ctx context.Context, email string) (*biller.Biller, error) {
	var row billerDatamodel.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, biller.ErrNotFound
		}
		return nil, err
	}
	return biller.FromDataModel(&row), nil
}
