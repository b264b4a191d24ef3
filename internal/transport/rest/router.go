package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/jmoiron/sqlx"

	"github.com/frahmantamala/timesheet-invoicing/internal/advance"
	"github.com/frahmantamala/timesheet-invoicing/internal/auth"
	"github.com/frahmantamala/timesheet-invoicing/internal/biller"
	"github.com/frahmantamala/timesheet-invoicing/internal/document"
	"github.com/frahmantamala/timesheet-invoicing/internal/invoice"
	"github.com/frahmantamala/timesheet-invoicing/internal/timesheet"
	"github.com/frahmantamala/timesheet-invoicing/internal/transport/middleware"
	"github.com/frahmantamala/timesheet-invoicing/internal/transport/swagger"
	"github.com/frahmantamala/timesheet-invoicing/internal/workperiod"
)

// Handlers groups everything the router mounts. A nil handler leaves its
// routes out.
type Handlers struct {
	Auth       *auth.Handler
	Biller     *biller.Handler
	Invoice    *invoice.Handler
	Document   *document.Handler
	Advance    *advance.Handler
	WorkPeriod *workperiod.Handler
	Timesheet  *timesheet.Handler
}

// OpenAPIPath is where the API document is read from, relative to the
// working directory.
var OpenAPIPath = "./api/openapi.yml"

func RegisterAllRoutes(router chi.Router, db *sqlx.DB, h Handlers, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, OpenAPIPath)
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		if h.Auth == nil {
			return
		}

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)
			admin := h.Auth.RequireAdmin

			if h.Biller != nil {
				pr.Get("/billers/me", h.Biller.GetCurrentBiller)
			}

			if h.Invoice != nil {
				pr.Route("/invoices", func(ir chi.Router) {
					ir.Post("/", h.Invoice.GenerateInvoice) // POST /invoices
					ir.Get("/", h.Invoice.ListInvoices)     // GET /invoices
					ir.Get("/{id}", h.Invoice.GetInvoice)   // GET /invoices/:id
					ir.Post("/{id}/document", h.Invoice.RegenerateDocument)
					ir.Patch("/{id}/tax-payment", h.Invoice.UpdateTaxPayment)

					if h.Document != nil {
						ir.Get("/{id}/document", h.Document.GetDocument)
						ir.Get("/{id}/document/file", h.Document.DownloadDocument)
					}

					ir.Group(func(ar chi.Router) {
						ar.Use(admin)
						ar.Post("/retainer", h.Invoice.GenerateRetainer)
						ar.Patch("/{id}/paid", h.Invoice.MarkPaid)
						ar.Patch("/{id}/void", h.Invoice.VoidInvoice)
					})
				})
			}

			if h.Advance != nil {
				pr.Route("/advances", func(ar chi.Router) {
					ar.Get("/", h.Advance.ListAdvances)
					ar.With(admin).Post("/", h.Advance.CreateAdvance)
					ar.With(admin).Delete("/{id}", h.Advance.DeleteAdvance)
				})
			}

			if h.Timesheet != nil {
				pr.Post("/records", h.Timesheet.CreateRecord)
				pr.Get("/records", h.Timesheet.ListRecords)
			}

			if h.WorkPeriod != nil {
				pr.Route("/closings", func(cr chi.Router) {
					cr.Post("/", h.WorkPeriod.OpenClosing)
					cr.Get("/{id}", h.WorkPeriod.GetClosing)
					cr.Post("/{id}/submit", h.WorkPeriod.SubmitClosing)
					cr.Post("/{id}/reopen", h.WorkPeriod.ReopenClosing)
					cr.With(admin).Post("/{id}/approve", h.WorkPeriod.ApproveClosing)
					cr.With(admin).Post("/{id}/return", h.WorkPeriod.ReturnClosing)
				})
			}
		})
	})
}
