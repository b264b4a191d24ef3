package document

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/timesheet-invoicing/internal/biller"
	"github.com/frahmantamala/timesheet-invoicing/internal/invoice"
)

type Repository interface {
	// Upsert inserts or replaces the document of (InvoiceID, Kind).
	Upsert(ctx context.Context, d *Document) error
	GetByInvoice(ctx context.Context, invoiceID int64, kind string) (*Document, error)
	// InvoicesWithoutDocument lists live, non-void invoices lacking a
	// document of kind, oldest first.
	InvoicesWithoutDocument(ctx context.Context, kind string, limit int) ([]*invoice.Invoice, error)
}

type BillerReader interface {
	GetByID(ctx context.Context, id int64) (*biller.Biller, error)
}

type Service struct {
	repo     Repository
	storage  Storage
	billers  BillerReader
	customer Customer
	now      func() time.Time
	logger   *slog.Logger
}

func NewService(repo Repository, storage Storage, billers BillerReader, customer Customer, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		storage:  storage,
		billers:  billers,
		customer: customer,
		now:      time.Now,
		logger:   logger,
	}
}

// Generate renders the PDF of a persisted invoice, stores it and records it.
// It only reads the invoice, so it can be repeated at will.
func (s *Service) Generate(ctx context.Context, inv *invoice.Invoice) (*Document, error) {
	if inv == nil || inv.ID == 0 || inv.InvoiceNumber == "" {
		return nil, fmt.Errorf("document: invoice is not persisted")
	}

	b, err := s.billers.GetByID(ctx, inv.UserID)
	if err != nil {
		s.logger.Error("failed to load biller for document", "error", err, "invoice_id", inv.ID, "user_id", inv.UserID)
		return nil, err
	}

	data := RenderPDF(Lines(inv, b.DisplayName, s.customer))
	sum := sha256.Sum256(data)

	path, err := s.storage.Put(ctx, fmt.Sprintf("invoice-%d-%s.pdf", inv.UserID, inv.InvoiceNumber), data)
	if err != nil {
		s.logger.Error("failed to store invoice document", "error", err, "invoice_id", inv.ID)
		return nil, err
	}

	d := &Document{
		InvoiceID: inv.ID,
		Kind:      KindPDF,
		Path:      path,
		Checksum:  hex.EncodeToString(sum[:]),
		SizeBytes: int64(len(data)),
		Metadata: map[string]interface{}{
			"invoice_number": inv.InvoiceNumber,
			"billing_class":  inv.BillingClass,
			"total_amount":   inv.TotalAmount.StringFixed(2),
			"currency":       s.customer.Currency,
		},
		GeneratedAt: s.now(),
	}
	if err := s.repo.Upsert(ctx, d); err != nil {
		s.logger.Error("failed to record invoice document", "error", err, "invoice_id", inv.ID, "path", path)
		return nil, err
	}

	s.logger.Info("invoice document generated",
		"invoice_id", inv.ID,
		"invoice_number", inv.InvoiceNumber,
		"path", path,
		"size_bytes", d.SizeBytes)
	return d, nil
}

// GenerateDocument satisfies invoice.DocumentGenerator.
func (s *Service) GenerateDocument(ctx context.Context, inv *invoice.Invoice) error {
	_, err := s.Generate(ctx, inv)
	return err
}

func (s *Service) Get(ctx context.Context, invoiceID int64) (*Document, error) {
	return s.repo.GetByInvoice(ctx, invoiceID, KindPDF)
}

// Missing returns up to limit invoices that still need a document.
func (s *Service) Missing(ctx context.Context, limit int) ([]*invoice.Invoice, error) {
	return s.repo.InvoicesWithoutDocument(ctx, KindPDF, limit)
}
