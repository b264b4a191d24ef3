package advance

import (
	"context"
	"net/http"

	"github.com/frahmantamala/timesheet-invoicing/internal"
	"github.com/frahmantamala/timesheet-invoicing/internal/transport"
)

type ServiceAPI interface {
	Create(ctx context.Context, dto CreateAdvanceDTO, actor *internal.Identity) (*Advance, error)
	List(ctx context.Context, userID int64, onlyOpen bool, actor *internal.Identity) ([]*Advance, error)
	Delete(ctx context.Context, id int64, actor *internal.Identity) error
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(base *transport.BaseHandler, svc ServiceAPI) *Handler {
	return &Handler{BaseHandler: base, Service: svc}
}

// CreateAdvance handles POST /advances
func (h *Handler) CreateAdvance(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.IdentityFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CreateAdvanceDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.Logger.Error("CreateAdvance: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	a, err := h.Service.Create(r.Context(), dto, actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, a)
}

// ListAdvances handles GET /advances?user_id=&open=true
func (h *Handler) ListAdvances(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.IdentityFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	userID := int64(h.QueryInt(r, "user_id", int(actor.UserID)))
	onlyOpen := r.URL.Query().Get("open") == "true"

	advances, err := h.Service.List(r.Context(), userID, onlyOpen, actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ListAdvancesResponse{Advances: advances})
}

// DeleteAdvance handles DELETE /advances/{id}
func (h *Handler) DeleteAdvance(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.IdentityFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, ok := h.IDParam(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid advance ID")
		return
	}

	if err := h.Service.Delete(r.Context(), id, actor); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
