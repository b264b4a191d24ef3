package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/frahmantamala/timesheet-invoicing/internal"
	documentDatamodel "github.com/frahmantamala/timesheet-invoicing/internal/core/datamodel/document"
	invoiceDatamodel "github.com/frahmantamala/timesheet-invoicing/internal/core/datamodel/invoice"
	"github.com/frahmantamala/timesheet-invoicing/internal/document"
	"github.com/frahmantamala/timesheet-invoicing/internal/invoice"
)

var ErrDocumentNotFound = internal.ErrDocumentNotFound

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Upsert(ctx context.Context, d *document.Document) error {
	row, err := document.ToDataModel(d)
	if err != nil {
		return err
	}
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "invoice_id"}, {Name: "kind"}},
		DoUpdates: clause.AssignmentColumns([]string{"path", "checksum", "size_bytes", "metadata", "generated_at"}),
	}).Create(row).Error
	if err != nil {
		return err
	}

	stored, err := r.GetByInvoice(ctx, d.InvoiceID, d.Kind)
	if err != nil {
		return err
	}
	d.ID = stored.ID
	return nil
}

func (r *DocumentRepository) GetByInvoice(ctx context.Context, invoiceID int64, kind string) (*document.Document, error) {
	var row documentDatamodel.InvoiceDocument
	err := r.db.WithContext(ctx).Where("invoice_id = ? AND kind = ?", invoiceID, kind).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	return document.FromDataModel(&row), nil
}

func (r *DocumentRepository) InvoicesWithoutDocument(ctx context.Context, kind string, limit int) ([]*invoice.Invoice, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []*invoiceDatamodel.Invoice
	err := r.db.WithContext(ctx).
		Where("status <> ?", invoice.StatusVoid).
		Where("NOT EXISTS (SELECT 1 FROM invoice_documents d WHERE d.invoice_id = invoices.id AND d.kind = ?)", kind).
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]*invoice.Invoice, len(rows))
	for i, row := range rows {
		out[i] = invoice.FromDataModel(row)
	}
	return out, nil
}
