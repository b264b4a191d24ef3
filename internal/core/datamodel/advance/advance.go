package advance

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Advance struct {
	ID          int64           `gorm:"primaryKey"`
	UserID      int64           `gorm:"column:user_id;not null;index"`
	Amount      decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	AdvanceDate string          `gorm:"column:advance_date;type:date;not null"`
	Note        *string         `gorm:"column:note"`
	InvoiceID   *int64          `gorm:"column:invoice_id;index"`
	CreatedBy   *int64          `gorm:"column:created_by"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt   gorm.DeletedAt  `gorm:"column:deleted_at;index"`
}

func (Advance) TableName() string {
	return "advances"
}
