package biller

import (
	"context"
	"net/http"

	"github.com/frahmantamala/timesheet-invoicing/internal"
	"github.com/frahmantamala/timesheet-invoicing/internal/transport"
)

type ServiceAPI interface {
	GetByID(ctx context.Context, id int64) (*Biller, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(base *transport.BaseHandler, svc ServiceAPI) *Handler {
	return &Handler{BaseHandler: base, Service: svc}
}

// GetCurrentBiller handles GET /billers/me
func (h *Handler) GetCurrentBiller(w http.ResponseWriter, r *http.Request) {
	id, ok := internal.IdentityFromContext(r.Context())
	if !ok {
		h.Logger.Error("GetCurrentBiller: identity not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	b, err := h.Service.GetByID(r.Context(), id.UserID)
	if err != nil {
		h.Logger.Error("GetCurrentBiller: service error", "user_id", id.UserID, "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, b)
}
