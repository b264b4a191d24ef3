package biller

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID              int64           `gorm:"primaryKey"`
	Email           string          `gorm:"column:email;uniqueIndex;not null"`
	DisplayName     string          `gorm:"column:display_name;not null"`
	Role            string          `gorm:"column:role;not null;default:worker"`
	HourlyRate      decimal.Decimal `gorm:"column:hourly_rate;type:numeric(10,2);not null;default:0"`
	IsVATPayer      bool            `gorm:"column:is_vat_payer;not null;default:false"`
	IsReverseCharge bool            `gorm:"column:is_reverse_charge;not null;default:false"`
	BillingClass    string          `gorm:"column:billing_class"`
	IsActive        bool            `gorm:"column:is_active;default:true"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}
