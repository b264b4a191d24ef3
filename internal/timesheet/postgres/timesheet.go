package postgres

import (
	"context"

	"gorm.io/gorm"

	timesheetDatamodel "github.com/frahmantamala/timesheet-invoicing/internal/core/datamodel/timesheet"
	"github.com/frahmantamala/timesheet-invoicing/internal/timesheet"
)

type TimesheetRepository struct {
	db *gorm.DB
}

func NewTimesheetRepository(db *gorm.DB) *TimesheetRepository {
	return &TimesheetRepository{db: db}
}

func (r *TimesheetRepository) Create(ctx context.Context, rec *timesheet.WorkRecord) error {
	row := timesheet.ToDataModel(rec)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	rec.ID = row.ID
	rec.CreatedAt = row.CreatedAt
	rec.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *TimesheetRepository) ListByUserBetween(ctx context.Context, userID int64, from, to string) ([]*timesheet.WorkRecord, error) {
	var rows []*timesheetDatamodel.WorkRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND work_date >= ? AND work_date <= ?", userID, from, to).
		Order("work_date ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]*timesheet.WorkRecord, len(rows))
	for i, row := range rows {
		out[i] = timesheet.FromDataModel(row)
	}
	return out, nil
}

func (r *TimesheetRepository) GetAccommodations(ctx context.Context, ids []int64) (map[int64]*timesheet.Accommodation, error) {
	var rows []*timesheetDatamodel.Accommodation
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[int64]*timesheet.Accommodation, len(rows))
	for _, row := range rows {
		out[row.ID] = timesheet.AccommodationFromDataModel(row)
	}
	return out, nil
}

// CreateAccommodation is used by the seeder; accommodations are managed
// elsewhere.
func (r *TimesheetRepository) CreateAccommodation(ctx context.Context, acc *timesheet.Accommodation) error {
	row := &timesheetDatamodel.Accommodation{Name: acc.Name, PricePerNight: acc.PricePerNight}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	acc.ID = row.ID
	return nil
}
