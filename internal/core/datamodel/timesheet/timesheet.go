package timesheet

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type WorkRecord struct {
	ID              int64           `gorm:"primaryKey"`
	UserID          int64           `gorm:"column:user_id;not null;index"`
	WorkDate        string          `gorm:"column:work_date;type:date;not null"`
	StartTime       string          `gorm:"column:start_time;type:varchar(5);not null"`
	EndTime         string          `gorm:"column:end_time;type:varchar(5);not null"`
	Break1Start     *string         `gorm:"column:break1_start;type:varchar(5)"`
	Break1End       *string         `gorm:"column:break1_end;type:varchar(5)"`
	Break2Start     *string         `gorm:"column:break2_start;type:varchar(5)"`
	Break2End       *string         `gorm:"column:break2_end;type:varchar(5)"`
	NetHours        decimal.Decimal `gorm:"column:net_hours;type:numeric(6,2);not null;default:0"`
	ProjectID       *int64          `gorm:"column:project_id"`
	AccommodationID *int64          `gorm:"column:accommodation_id"`
	Status          string          `gorm:"column:status;not null;default:draft"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt       gorm.DeletedAt  `gorm:"column:deleted_at;index"`
}

func (WorkRecord) TableName() string {
	return "work_records"
}

type Accommodation struct {
	ID            int64           `gorm:"primaryKey"`
	Name          string          `gorm:"column:name;not null"`
	PricePerNight decimal.Decimal `gorm:"column:price_per_night;type:numeric(10,2);not null;default:0"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (Accommodation) TableName() string {
	return "accommodations"
}
