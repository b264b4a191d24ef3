package invoice

import (
	"context"
	"net/http"

	"github.com/frahmantamala/timesheet-invoicing/internal"
	"github.com/frahmantamala/timesheet-invoicing/internal/transport"
)

type ServiceAPI interface {
	GenerateAndSave(ctx context.Context, req GenerateInvoiceRequest, actor *internal.Identity) (*GenerateResult, error)
	GenerateRetainer(ctx context.Context, req RetainerRequest, actor *internal.Identity) (*GenerateResult, error)
	Get(ctx context.Context, id int64, actor *internal.Identity) (*View, error)
	List(ctx context.Context, filter ListFilter, actor *internal.Identity) ([]*View, error)
	MarkPaid(ctx context.Context, id int64, actor *internal.Identity) (*View, error)
	Void(ctx context.Context, id int64, actor *internal.Identity) (*View, error)
	UpdateTaxPayment(ctx context.Context, id int64, dto UpdateTaxPaymentDTO, actor *internal.Identity) (*View, error)
	RegenerateDocument(ctx context.Context, id int64, actor *internal.Identity) (*View, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(base *transport.BaseHandler, svc ServiceAPI) *Handler {
	return &Handler{BaseHandler: base, Service: svc}
}

// GenerateInvoice handles POST /invoices. The body is always a
// GenerateResult; a failed document render still reports the saved
// invoice id.
func (h *Handler) GenerateInvoice(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.IdentityFromContext(r.Context())
	if !ok {
		h.Logger.Error("GenerateInvoice: identity not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req GenerateInvoiceRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.Logger.Error("GenerateInvoice: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.BillerID == 0 {
		req.BillerID = actor.UserID
	}

	res, err := h.Service.GenerateAndSave(r.Context(), req, actor)
	h.writeResult(w, res, err, http.StatusCreated)
}

// GenerateRetainer handles POST /invoices/retainer
func (h *Handler) GenerateRetainer(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.IdentityFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req RetainerRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.Logger.Error("GenerateRetainer: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.Service.GenerateRetainer(r.Context(), req, actor)
	h.writeResult(w, res, err, http.StatusCreated)
}

func (h *Handler) writeResult(w http.ResponseWriter, res *GenerateResult, err error, okStatus int) {
	if err == nil {
		h.WriteJSON(w, okStatus, res)
		return
	}
	if res == nil {
		h.HandleServiceError(w, err)
		return
	}

	status := http.StatusInternalServerError
	if appErr, ok := internal.IsAppError(err); ok && appErr.StatusCode != 0 {
		status = appErr.StatusCode
	}
	h.Logger.Error("invoice generation failed", "status", status, "error_code", res.ErrorCode, "error", err)
	h.WriteJSON(w, status, res)
}

// ListInvoices handles GET /invoices?user_id=&year=&status=&limit=&offset=
func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.IdentityFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	filter := ListFilter{
		UserID: int64(h.QueryInt(r, "user_id", 0)),
		Year:   h.QueryInt(r, "year", 0),
		Status: r.URL.Query().Get("status"),
		Limit:  h.QueryInt(r, "limit", 50),
		Offset: h.QueryInt(r, "offset", 0),
	}

	views, err := h.Service.List(r.Context(), filter, actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ListInvoicesResponse{Invoices: views})
}

// GetInvoice handles GET /invoices/{id}
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	h.withInvoice(w, r, h.Service.Get)
}

// MarkPaid handles PATCH /invoices/{id}/paid
func (h *Handler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	h.withInvoice(w, r, h.Service.MarkPaid)
}

// VoidInvoice handles PATCH /invoices/{id}/void
func (h *Handler) VoidInvoice(w http.ResponseWriter, r *http.Request) {
	h.withInvoice(w, r, h.Service.Void)
}

// RegenerateDocument handles POST /invoices/{id}/document
func (h *Handler) RegenerateDocument(w http.ResponseWriter, r *http.Request) {
	h.withInvoice(w, r, h.Service.RegenerateDocument)
}

// UpdateTaxPayment handles PATCH /invoices/{id}/tax-payment
func (h *Handler) UpdateTaxPayment(w http.ResponseWriter, r *http.Request) {
	var dto UpdateTaxPaymentDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.Logger.Error("UpdateTaxPayment: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.withInvoice(w, r, func(ctx context.Context, id int64, actor *internal.Identity) (*View, error) {
		return h.Service.UpdateTaxPayment(ctx, id, dto, actor)
	})
}

func (h *Handler) withInvoice(w http.ResponseWriter, r *http.Request, op func(context.Context, int64, *internal.Identity) (*View, error)) {
	actor, ok := internal.IdentityFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, ok := h.IDParam(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid invoice ID")
		return
	}

	v, err := op(r.Context(), id, actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, v)
}
