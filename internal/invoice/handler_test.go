package invoice_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/timesheet-invoicing/internal"
	"github.com/frahmantamala/timesheet-invoicing/internal/invoice"
	"github.com/frahmantamala/timesheet-invoicing/internal/transport"
)

type mockInvoiceService struct {
	lastRequest invoice.GenerateInvoiceRequest
	result      *invoice.GenerateResult
	err         error
	view        *invoice.View
}

func (m *mockInvoiceService) GenerateAndSave(_ context.Context, req invoice.GenerateInvoiceRequest, _ *internal.Identity) (*invoice.GenerateResult, error) {
	m.lastRequest = req
	return m.result, m.err
}

func (m *mockInvoiceService) GenerateRetainer(context.Context, invoice.RetainerRequest, *internal.Identity) (*invoice.GenerateResult, error) {
	return m.result, m.err
}

func (m *mockInvoiceService) Get(context.Context, int64, *internal.Identity) (*invoice.View, error) {
	return m.view, m.err
}

func (m *mockInvoiceService) List(context.Context, invoice.ListFilter, *internal.Identity) ([]*invoice.View, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []*invoice.View{m.view}, nil
}

func (m *mockInvoiceService) MarkPaid(context.Context, int64, *internal.Identity) (*invoice.View, error) {
	return m.view, m.err
}

func (m *mockInvoiceService) Void(context.Context, int64, *internal.Identity) (*invoice.View, error) {
	return m.view, m.err
}

func (m *mockInvoiceService) UpdateTaxPayment(context.Context, int64, invoice.UpdateTaxPaymentDTO, *internal.Identity) (*invoice.View, error) {
	return m.view, m.err
}

func (m *mockInvoiceService) RegenerateDocument(context.Context, int64, *internal.Identity) (*invoice.View, error) {
	return m.view, m.err
}

var _ = Describe("Invoice handler", func() {
	var (
		svc    *mockInvoiceService
		router chi.Router
		worker *internal.Identity
	)

	BeforeEach(func() {
		svc = &mockInvoiceService{}
		lg := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		h := invoice.NewHandler(transport.NewBaseHandler(lg), svc)

		router = chi.NewRouter()
		router.Post("/invoices", h.GenerateInvoice)
		router.Post("/invoices/retainer", h.GenerateRetainer)
		router.Get("/invoices/{id}", h.GetInvoice)
		router.Patch("/invoices/{id}/tax-payment", h.UpdateTaxPayment)
		worker = &internal.Identity{UserID: 7, Role: internal.RoleWorker}
	})

	do := func(method, target, body string, id *internal.Identity) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		if id != nil {
			req = req.WithContext(internal.ContextWithIdentity(req.Context(), id))
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	decode := func(w *httptest.ResponseRecorder) invoice.GenerateResult {
		var res invoice.GenerateResult
		Expect(json.Unmarshal(w.Body.Bytes(), &res)).To(Succeed())
		return res
	}

	It("returns 201 with the result on success", func() {
		id := int64(3)
		svc.result = &invoice.GenerateResult{Success: true, InvoiceID: &id, InvoiceNumber: "2026001"}

		w := do(http.MethodPost, "/invoices", `{"work_period_closing_id": 12, "total_hours": "40", "hourly_rate": 20}`, worker)
		Expect(w.Code).To(Equal(http.StatusCreated))
		Expect(decode(w).InvoiceNumber).To(Equal("2026001"))

		Expect(svc.lastRequest.BillerID).To(Equal(int64(7)))
		Expect(*svc.lastRequest.WorkPeriodClosingID).To(Equal(int64(12)))
		Expect(svc.lastRequest.TotalHours.Value().String()).To(Equal("40"))
	})

	It("tolerates garbage monetary input", func() {
		svc.result = &invoice.GenerateResult{Success: true}
		w := do(http.MethodPost, "/invoices", `{"total_hours": "abc", "advance_deduction": null}`, worker)
		Expect(w.Code).To(Equal(http.StatusCreated))
		Expect(svc.lastRequest.TotalHours.Value().IsZero()).To(BeTrue())
		Expect(svc.lastRequest.AdvanceDeduction).To(BeNil())
	})

	It("maps a duplicate to 409 with success=false", func() {
		svc.result = &invoice.GenerateResult{Success: false, ErrorCode: string(internal.ErrCodeInvoiceAlreadyGenerated)}
		svc.err = internal.ErrInvoiceAlreadyGenerated

		w := do(http.MethodPost, "/invoices", `{"work_period_closing_id": 12}`, worker)
		Expect(w.Code).To(Equal(http.StatusConflict))
		res := decode(w)
		Expect(res.Success).To(BeFalse())
		Expect(res.ErrorCode).To(Equal("INVOICE_ALREADY_GENERATED"))
	})

	It("still reports the saved invoice when its document failed", func() {
		id := int64(9)
		svc.result = &invoice.GenerateResult{Success: false, InvoiceID: &id, InvoiceNumber: "2026004", ErrorCode: string(internal.ErrCodeDocumentGenerationFailed)}
		svc.err = internal.ErrDocumentGenerationFailed.Wrap(errors.New("disk full"))

		w := do(http.MethodPost, "/invoices", `{}`, worker)
		Expect(w.Code).To(Equal(http.StatusInternalServerError))
		res := decode(w)
		Expect(*res.InvoiceID).To(Equal(int64(9)))
		Expect(res.InvoiceNumber).To(Equal("2026004"))
	})

	It("rejects unknown fields", func() {
		w := do(http.MethodPost, "/invoices", `{"amount": 1}`, worker)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("requires an identity", func() {
		w := do(http.MethodPost, "/invoices/retainer", `{}`, nil)
		Expect(w.Code).To(Equal(http.StatusUnauthorized))
	})

	It("maps service errors on reads", func() {
		svc.err = internal.ErrInvoiceNotFound
		w := do(http.MethodGet, "/invoices/5", "", worker)
		Expect(w.Code).To(Equal(http.StatusNotFound))

		w = do(http.MethodGet, "/invoices/abc", "", worker)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("returns the updated view", func() {
		svc.view = &invoice.View{Invoice: &invoice.Invoice{ID: 5, TaxPaymentStatus: invoice.TaxPaymentConfirmed}, DisplayStatus: invoice.StatusPending}
		w := do(http.MethodPatch, "/invoices/5/tax-payment", `{"status":"confirmed"}`, worker)
		Expect(w.Code).To(Equal(http.StatusOK))

		var v invoice.View
		Expect(json.Unmarshal(w.Body.Bytes(), &v)).To(Succeed())
		Expect(v.TaxPaymentStatus).To(Equal(invoice.TaxPaymentConfirmed))
		Expect(v.DisplayStatus).To(Equal(invoice.StatusPending))
	})
})
