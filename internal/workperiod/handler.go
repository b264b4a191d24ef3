package workperiod

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/frahmantamala/timesheet-invoicing/internal"
	"github.com/frahmantamala/timesheet-invoicing/internal/transport"
)

type ServiceAPI interface {
	GetByID(ctx context.Context, id int64) (*Closing, error)
	Open(ctx context.Context, userID int64, dto OpenClosingDTO) (*Closing, error)
	Submit(ctx context.Context, id int64, actor *internal.Identity) (*Closing, error)
	Approve(ctx context.Context, id int64, actor *internal.Identity) (*Closing, error)
	Return(ctx context.Context, id int64, reason string, actor *internal.Identity) (*Closing, error)
	Reopen(ctx context.Context, id int64, actor *internal.Identity) (*Closing, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(base *transport.BaseHandler, svc ServiceAPI) *Handler {
	return &Handler{BaseHandler: base, Service: svc}
}

// OpenClosing handles POST /closings
func (h *Handler) OpenClosing(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.IdentityFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto OpenClosingDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.Logger.Error("OpenClosing: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID := actor.UserID
	if dto.UserID != 0 {
		if !actor.CanActFor(dto.UserID) {
			h.HandleServiceError(w, internal.ErrUnauthorizedAccess)
			return
		}
		userID = dto.UserID
	}

	c, err := h.Service.Open(r.Context(), userID, dto)
	if err != nil {
		h.Logger.Error("OpenClosing: service error", "error", err, "user_id", userID)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, c)
}

// GetClosing handles GET /closings/{id}
func (h *Handler) GetClosing(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.IdentityFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, ok := h.IDParam(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid closing ID")
		return
	}

	c, err := h.Service.GetByID(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if !actor.CanActFor(c.UserID) {
		h.HandleServiceError(w, internal.ErrUnauthorizedAccess)
		return
	}
	h.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) SubmitClosing(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "SubmitClosing", h.Service.Submit)
}

func (h *Handler) ApproveClosing(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "ApproveClosing", h.Service.Approve)
}

func (h *Handler) ReopenClosing(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "ReopenClosing", h.Service.Reopen)
}

// ReturnClosing handles POST /closings/{id}/return with an optional reason.
func (h *Handler) ReturnClosing(w http.ResponseWriter, r *http.Request) {
	var dto ReturnClosingDTO
	if err := h.DecodeJSON(r, &dto); err != nil && !errors.Is(err, io.EOF) {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.transition(w, r, "ReturnClosing", func(ctx context.Context, id int64, actor *internal.Identity) (*Closing, error) {
		return h.Service.Return(ctx, id, dto.Reason, actor)
	})
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, op string, fn func(context.Context, int64, *internal.Identity) (*Closing, error)) {
	actor, ok := internal.IdentityFromContext(r.Context())
	if !ok {
		h.Logger.Error(op + ": identity not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, ok := h.IDParam(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid closing ID")
		return
	}

	c, err := fn(r.Context(), id, actor)
	if err != nil {
		h.Logger.Error(op+": service error", "error", err, "closing_id", id, "user_id", actor.UserID)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, c)
}
