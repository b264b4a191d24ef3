package document

import (
	"time"

	"gorm.io/datatypes"
)

type InvoiceDocument struct {
	ID          int64          `gorm:"primaryKey"`
	InvoiceID   int64          `gorm:"column:invoice_id;not null;uniqueIndex:idx_invoice_documents_kind"`
	Kind        string         `gorm:"column:kind;not null;uniqueIndex:idx_invoice_documents_kind"`
	Path        string         `gorm:"column:path;not null"`
	Checksum    string         `gorm:"column:checksum;not null"`
	SizeBytes   int64          `gorm:"column:size_bytes;not null"`
	Metadata    datatypes.JSON `gorm:"column:metadata"`
	GeneratedAt time.Time      `gorm:"column:generated_at;not null"`
}

func (InvoiceDocument) TableName() string {
	return "invoice_documents"
}
