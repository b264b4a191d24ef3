package document

import (
	"context"
	"net/http"
	"os"
	"path/filepath"

	"github.com/frahmantamala/timesheet-invoicing/internal"
	"github.com/frahmantamala/timesheet-invoicing/internal/invoice"
	"github.com/frahmantamala/timesheet-invoicing/internal/transport"
)

type ServiceAPI interface {
	Get(ctx context.Context, invoiceID int64) (*Document, error)
}

// InvoiceAccess answers whether the caller may see an invoice.
type InvoiceAccess interface {
	Get(ctx context.Context, id int64, actor *internal.Identity) (*invoice.View, error)
}

type Handler struct {
	*transport.BaseHandler
	Service  ServiceAPI
	Invoices InvoiceAccess
}

func NewHandler(base *transport.BaseHandler, svc ServiceAPI, invoices InvoiceAccess) *Handler {
	return &Handler{BaseHandler: base, Service: svc, Invoices: invoices}
}

// GetDocument handles GET /invoices/{id}/document
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.WriteJSON(w, http.StatusOK, doc)
}

// DownloadDocument handles GET /invoices/{id}/document/file
func (h *Handler) DownloadDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.lookup(w, r)
	if !ok {
		return
	}

	f, err := os.Open(doc.Path)
	if err != nil {
		h.Logger.Error("DownloadDocument: stored file unavailable", "invoice_id", doc.InvoiceID, "path", doc.Path, "error", err)
		h.HandleServiceError(w, internal.ErrDocumentNotFound)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(doc.Path)+`"`)
	http.ServeContent(w, r, filepath.Base(doc.Path), doc.GeneratedAt, f)
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*Document, bool) {
	actor, ok := internal.IdentityFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	id, ok := h.IDParam(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid invoice id")
		return nil, false
	}

	if _, err := h.Invoices.Get(r.Context(), id, actor); err != nil {
		h.HandleServiceError(w, err)
		return nil, false
	}

	doc, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.Logger.Error("failed to load invoice document", "invoice_id", id, "error", err)
		h.HandleServiceError(w, err)
		return nil, false
	}
	return doc, true
}
