package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	workperiodDatamodel "github.com/frahmantamala/timesheet-invoicing/internal/core/datamodel/workperiod"
	"github.com/frahmantamala/timesheet-invoicing/internal/workperiod"
)

type ClosingRepository struct {
	db *gorm.DB
}

func NewClosingRepository(db *gorm.DB) *ClosingRepository {
	return &ClosingRepository{db: db}
}

func (r *ClosingRepository) GetByID(ctx context.Context, id int64) (*workperiod.Closing, error) {
	var row workperiodDatamodel.Closing
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, workperiod.ErrClosingNotFound
		}
		return nil, err
	}
	return workperiod.FromDataModel(&row), nil
}

func (r *ClosingRepository) FindByWeek(ctx context.Context, userID int64, week, year int) (*workperiod.Closing, error) {
	var row workperiodDatamodel.Closing
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND calendar_week = ? AND year = ?", userID, week, year).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, workperiod.ErrClosingNotFound
		}
		return nil, err
	}
	return workperiod.FromDataModel(&row), nil
}

func (r *ClosingRepository) Create(ctx context.Context, c *workperiod.Closing) error {
	row := workperiod.ToDataModel(c)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return workperiod.ErrDuplicate
		}
		return err
	}
	c.ID = row.ID
	c.CreatedAt = row.CreatedAt
	c.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *ClosingRepository) Transition(ctx context.Context, c *workperiod.Closing, from []string) error {
	res := r.db.WithContext(ctx).
		Model(&workperiodDatamodel.Closing{}).
		Where("id = ? AND status IN ?", c.ID, from).
		Updates(map[string]interface{}{
			"status":        c.Status,
			"submitted_at":  c.SubmittedAt,
			"approved_at":   c.ApprovedAt,
			"approved_by":   c.ApprovedBy,
			"return_reason": c.ReturnReason,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return workperiod.ErrInvalidStatus
	}
	return nil
}
