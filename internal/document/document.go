// Package document renders invoice documents from persisted invoices and
// keeps track of where they are stored.
package document

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	documentDatamodel "github.com/frahmantamala/timesheet-invoicing/internal/core/datamodel/document"
)

const KindPDF = "pdf"

// Document is the stored artifact of one invoice. There is one per
// (invoice, kind); regeneration overwrites it.
type Document struct {
	ID          int64                  `json:"id"`
	InvoiceID   int64                  `json:"invoice_id"`
	Kind        string                 `json:"kind"`
	Path        string                 `json:"path"`
	Checksum    string                 `json:"checksum"`
	SizeBytes   int64                  `json:"size_bytes"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	GeneratedAt time.Time              `json:"generated_at"`
}

func ToDataModel(d *Document) (*documentDatamodel.InvoiceDocument, error) {
	var meta datatypes.JSON
	if d.Metadata != nil {
		raw, err := json.Marshal(d.Metadata)
		if err != nil {
			return nil, err
		}
		meta = datatypes.JSON(raw)
	}
	return &documentDatamodel.InvoiceDocument{
		ID:          d.ID,
		InvoiceID:   d.InvoiceID,
		Kind:        d.Kind,
		Path:        d.Path,
		Checksum:    d.Checksum,
		SizeBytes:   d.SizeBytes,
		Metadata:    meta,
		GeneratedAt: d.GeneratedAt,
	}, nil
}

func FromDataModel(row *documentDatamodel.InvoiceDocument) *Document {
	d := &Document{
		ID:          row.ID,
		InvoiceID:   row.InvoiceID,
		Kind:        row.Kind,
		Path:        row.Path,
		Checksum:    row.Checksum,
		SizeBytes:   row.SizeBytes,
		GeneratedAt: row.GeneratedAt,
	}
	if len(row.Metadata) > 0 {
		// metadata is informational; a broken blob leaves it empty
		_ = json.Unmarshal(row.Metadata, &d.Metadata)
	}
	return d
}
