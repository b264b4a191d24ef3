package timesheet

import (
	"context"
	"net/http"

	"github.com/frahmantamala/timesheet-invoicing/internal"
	"github.com/frahmantamala/timesheet-invoicing/internal/calendar"
	"github.com/frahmantamala/timesheet-invoicing/internal/transport"
)

type ServiceAPI interface {
	CreateRecord(ctx context.Context, userID int64, dto CreateWorkRecordDTO) (*WorkRecord, error)
	RecordsForWeek(ctx context.Context, userID int64, week, year int) ([]*WorkRecord, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(base *transport.BaseHandler, svc ServiceAPI) *Handler {
	return &Handler{BaseHandler: base, Service: svc}
}

type ListRecordsResponse struct {
	Records []*WorkRecord `json:"records"`
}

// CreateRecord handles POST /records?user_id=. Workers record their own
// time; admins may record for anyone.
func (h *Handler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.IdentityFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	userID := int64(h.QueryInt(r, "user_id", int(actor.UserID)))
	if !actor.CanActFor(userID) {
		h.HandleServiceError(w, internal.ErrUnauthorizedAccess)
		return
	}

	var dto CreateWorkRecordDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.Logger.Error("CreateRecord: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := h.Service.CreateRecord(r.Context(), userID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, rec)
}

// ListRecords handles GET /records?user_id=&week=&year=, defaulting to the
// current ISO week.
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.IdentityFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	userID := int64(h.QueryInt(r, "user_id", int(actor.UserID)))
	if !actor.CanActFor(userID) {
		h.HandleServiceError(w, internal.ErrUnauthorizedAccess)
		return
	}

	today := calendar.Today()
	week := h.QueryInt(r, "week", calendar.ISOWeek(today))
	year := h.QueryInt(r, "year", calendar.ISOWeekYear(today))
	if week < 1 || week > calendar.WeeksInYear(year) {
		h.HandleServiceError(w, internal.NewValidationFieldError("week", "week is out of range for the year", internal.ErrCodeInvalidDate))
		return
	}

	records, err := h.Service.RecordsForWeek(r.Context(), userID, week, year)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ListRecordsResponse{Records: records})
}
