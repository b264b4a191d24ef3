package workperiod

import (
	"time"

	"gorm.io/gorm"
)

type Closing struct {
	ID           int64          `gorm:"primaryKey"`
	UserID       int64          `gorm:"column:user_id;not null;uniqueIndex:idx_week_closings_active,where:deleted_at IS NULL"`
	CalendarWeek int            `gorm:"column:calendar_week;not null;uniqueIndex:idx_week_closings_active"`
	Year         int            `gorm:"column:year;not null;uniqueIndex:idx_week_closings_active"`
	Status       string         `gorm:"column:status;not null;default:open"`
	SubmittedAt  *time.Time     `gorm:"column:submitted_at"`
	ApprovedAt   *time.Time     `gorm:"column:approved_at"`
	ApprovedBy   *int64         `gorm:"column:approved_by"`
	ReturnReason *string        `gorm:"column:return_reason"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt    gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (Closing) TableName() string {
	return "week_closings"
}
