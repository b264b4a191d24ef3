package biller

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/frahmantamala/timesheet-invoicing/internal"
	billerDatamodel "github.com/frahmantamala/timesheet-invoicing/internal/core/datamodel/biller"
	"github.com/frahmantamala/timesheet-invoicing/internal/numbering"
)

// Biller is the worker or subcontractor on whose behalf invoices are issued.
type Biller struct {
	ID              int64           `json:"id"`
	Email           string          `json:"email"`
	DisplayName     string          `json:"display_name"`
	Role            string          `json:"role"`
	HourlyRate      decimal.Decimal `json:"hourly_rate"`
	IsVATPayer      bool            `json:"is_vat_payer"`
	IsReverseCharge bool            `json:"is_reverse_charge"`
	BillingClass    string          `json:"billing_class,omitempty"`
	IsActive        bool            `json:"is_active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

var (
	ErrNotFound = internal.ErrBillerNotFound
	ErrInactive = internal.ErrBillerInactive
)

func (b *Biller) IsAdmin() bool {
	return b.Role == internal.RoleAdmin
}

// Class resolves the billing class for one invocation.
func (b *Biller) Class(rules numbering.Rules) numbering.Class {
	return numbering.Classify(b.BillingClass, b.DisplayName, rules)
}

func ToDataModel(b *Biller) *billerDatamodel.User {
	return &billerDatamodel.User{
		ID:              b.ID,
		Email:           b.Email,
		DisplayName:     b.DisplayName,
		Role:            b.Role,
		HourlyRate:      b.HourlyRate,
		IsVATPayer:      b.IsVATPayer,
		IsReverseCharge: b.IsReverseCharge,
		BillingClass:    b.BillingClass,
		IsActive:        b.IsActive,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

func FromDataModel(u *billerDatamodel.User) *Biller {
	return &Biller{
		ID:              u.ID,
		Email:           u.Email,
		DisplayName:     u.DisplayName,
		Role:            u.Role,
		HourlyRate:      u.HourlyRate,
		IsVATPayer:      u.IsVATPayer,
		IsReverseCharge: u.IsReverseCharge,
		BillingClass:    u.BillingClass,
		IsActive:        u.IsActive,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}
