package invoice_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/frahmantamala/timesheet-invoicing/internal"
	"github.com/frahmantamala/timesheet-invoicing/internal/advance"
	advancePostgres "github.com/frahmantamala/timesheet-invoicing/internal/advance/postgres"
	"github.com/frahmantamala/timesheet-invoicing/internal/biller"
	billerPostgres "github.com/frahmantamala/timesheet-invoicing/internal/biller/postgres"
	"github.com/frahmantamala/timesheet-invoicing/internal/calendar"
	billerDatamodel "github.com/frahmantamala/timesheet-invoicing/internal/core/datamodel/biller"
	invoiceDatamodel "github.com/frahmantamala/timesheet-invoicing/internal/core/datamodel/invoice"
	workperiodDatamodel "github.com/frahmantamala/timesheet-invoicing/internal/core/datamodel/workperiod"
	"github.com/frahmantamala/timesheet-invoicing/internal/core/events"
	"github.com/frahmantamala/timesheet-invoicing/internal/core/testdb"
	"github.com/frahmantamala/timesheet-invoicing/internal/invoice"
	invoicePostgres "github.com/frahmantamala/timesheet-invoicing/internal/invoice/postgres"
	"github.com/frahmantamala/timesheet-invoicing/internal/money"
	"github.com/frahmantamala/timesheet-invoicing/internal/numbering"
	"github.com/frahmantamala/timesheet-invoicing/internal/timesheet"
	timesheetPostgres "github.com/frahmantamala/timesheet-invoicing/internal/timesheet/postgres"
	"github.com/frahmantamala/timesheet-invoicing/internal/workperiod"
	workperiodPostgres "github.com/frahmantamala/timesheet-invoicing/internal/workperiod/postgres"
)

func TestInvoice(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Invoice Suite")
}

type fakeDocuments struct {
	mu     sync.Mutex
	fail   error
	calls  []string
	lookup func(id int64) error
}

func (f *fakeDocuments) GenerateDocument(ctx context.Context, inv *invoice.Invoice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, inv.InvoiceNumber)
	if f.lookup != nil {
		if err := f.lookup(inv.ID); err != nil {
			return err
		}
	}
	return f.fail
}

func (f *fakeDocuments) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type recordingPublisher struct {
	mu    sync.Mutex
	types []string
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.types = append(p.types, e.EventType())
	return nil
}

func (p *recordingPublisher) seen() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.types...)
}

// staleRepo answers the latest-number query as if the insert of a
// concurrent invocation had not landed yet.
type staleRepo struct {
	*invoicePostgres.InvoiceRepository
	staleCalls int32
	calls      atomic.Int32
}

func (r *staleRepo) LatestNumber(ctx context.Context, billerID int64, pattern string) (string, error) {
	if r.calls.Add(1) <= r.staleCalls {
		return "", nil
	}
	return r.InvoiceRepository.LatestNumber(ctx, billerID, pattern)
}

// failingClosings cannot provision closings.
type failingClosings struct {
	*workperiod.Service
	err error
}

func (f *failingClosings) EnsureApproved(context.Context, int64, int, int, int64) (*workperiod.Closing, error) {
	return nil, f.err
}

var _ = Describe("Invoice service", func() {
	var (
		ctx        context.Context
		db         *gorm.DB
		lg         *slog.Logger
		repo       invoice.Repository
		docs       *fakeDocuments
		published  *recordingPublisher
		service    *invoice.Service
		closings   *workperiod.Service
		sheets     *timesheet.Service
		sheetRepo  *timesheetPostgres.TimesheetRepository
		advances   *advance.Service
		admin      *internal.Identity
		worker     *internal.Identity
		workerID   int64
		otherID    int64
		retries    int
		issueClock time.Time
	)

	newService := func() *invoice.Service {
		return invoice.NewService(invoice.Deps{
			Repo:       repo,
			Billers:    biller.NewService(billerPostgres.NewBillerRepository(db), lg),
			Closings:   closings,
			Timesheets: sheets,
			Advances:   advances,
			Documents:  docs,
			Events:     published,
		}, invoice.Options{
			Rules:                numbering.Rules{RetainerNames: []string{"Retainer Crew"}},
			MaxAllocationRetries: retries,
			DueSoonDays:          3,
			RetainerHours:        decimal.NewFromInt(50),
			RetainerRate:         decimal.NewFromInt(20),
			Now:                  func() time.Time { return issueClock },
		}, lg)
	}

	createBiller := func(email, name, role string) int64 {
		b := &biller.Biller{Email: email, DisplayName: name, Role: role, HourlyRate: decimal.NewFromInt(20), IsActive: true}
		Expect(billerPostgres.NewBillerRepository(db).Create(ctx, b)).To(Succeed())
		return b.ID
	}

	approvedClosing := func(userID int64, week int) *workperiod.Closing {
		owner := &internal.Identity{UserID: userID, Role: internal.RoleWorker}
		c, err := closings.Open(ctx, userID, workperiod.OpenClosingDTO{CalendarWeek: week, Year: 2026})
		Expect(err).NotTo(HaveOccurred())
		c, err = closings.Submit(ctx, c.ID, owner)
		Expect(err).NotTo(HaveOccurred())
		c, err = closings.Approve(ctx, c.ID, admin)
		Expect(err).NotTo(HaveOccurred())
		return c
	}

	countInvoices := func() int64 {
		var n int64
		Expect(db.Model(&invoiceDatamodel.Invoice{}).Count(&n).Error).To(Succeed())
		return n
	}

	explicit := func(hours int64) invoice.GenerateInvoiceRequest {
		return invoice.GenerateInvoiceRequest{
			BillerID:         workerID,
			TotalHours:       money.NewFlex(hours),
			HourlyRate:       money.NewFlex(20),
			AdvanceDeduction: money.NewFlex(0),
		}
	}

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		db, err = testdb.Open()
		Expect(err).NotTo(HaveOccurred())

		lg = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		repo = invoicePostgres.NewInvoiceRepository(db)
		docs = &fakeDocuments{}
		published = &recordingPublisher{}
		closings = workperiod.NewService(workperiodPostgres.NewClosingRepository(db), lg)
		sheetRepo = timesheetPostgres.NewTimesheetRepository(db)
		sheets = timesheet.NewService(sheetRepo, lg)
		advances = advance.NewService(advancePostgres.NewAdvanceRepository(db), lg)
		retries = 3
		issueClock = time.Date(2026, time.March, 28, 9, 30, 0, 0, calendar.Location())

		adminID := createBiller("admin@example.com", "Office", internal.RoleAdmin)
		workerID = createBiller("jana@example.com", "Jana Novak", internal.RoleWorker)
		otherID = createBiller("peter@example.com", "Peter Horvath", internal.RoleWorker)
		admin = &internal.Identity{UserID: adminID, Role: internal.RoleAdmin}
		worker = &internal.Identity{UserID: workerID, Role: internal.RoleWorker}

		service = newService()
	})

	AfterEach(func() {
		Expect(testdb.Close(db)).To(Succeed())
	})

	Describe("GenerateAndSave from a closing", func() {
		var closing *workperiod.Closing

		BeforeEach(func() {
			acc := &timesheet.Accommodation{Name: "Hostel", PricePerNight: decimal.NewFromInt(37)}
			Expect(sheetRepo.CreateAccommodation(ctx, acc)).To(Succeed())
			for _, day := range []string{"2026-03-23", "2026-03-24", "2026-03-25"} {
				_, err := sheets.CreateRecord(ctx, workerID, timesheet.CreateWorkRecordDTO{
					WorkDate:        day,
					StartTime:       "08:00",
					EndTime:         "16:30",
					Break1Start:     ptr("12:00"),
					Break1End:       ptr("12:30"),
					AccommodationID: &acc.ID,
				})
				Expect(err).NotTo(HaveOccurred())
			}
			closing = approvedClosing(workerID, 13)
		})

		It("derives figures, dates and the first number of the year", func() {
			res, err := service.GenerateAndSave(ctx, invoice.GenerateInvoiceRequest{
				BillerID:            workerID,
				WorkPeriodClosingID: &closing.ID,
			}, worker)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Success).To(BeTrue())
			Expect(res.InvoiceNumber).To(Equal("2026001"))

			inv, err := repo.GetByID(ctx, *res.InvoiceID)
			Expect(err).NotTo(HaveOccurred())
			Expect(inv.TotalHours.StringFixed(2)).To(Equal("24.00"))
			Expect(inv.Subtotal.StringFixed(2)).To(Equal("480.00"))
			Expect(inv.VATAmount.StringFixed(2)).To(Equal("0.00"))
			Expect(inv.AccommodationDeduction.StringFixed(2)).To(Equal("111.00"))
			Expect(inv.TotalAmount.StringFixed(2)).To(Equal("369.00"))
			Expect(inv.TransactionTaxAmount.StringFixed(2)).To(Equal("1.48"))
			Expect(inv.IssueDate).To(Equal("2026-03-28"))
			Expect(inv.DeliveryDate).To(Equal("2026-03-29"))
			Expect(inv.DueDate).To(Equal("2026-04-18"))
			Expect(inv.BillingClass).To(Equal("standard"))
			Expect(*inv.WeekClosingID).To(Equal(closing.ID))

			Expect(docs.count()).To(Equal(1))
			Expect(published.seen()).To(ContainElement(events.EventTypeInvoiceGenerated))
		})

		It("generates at most one active invoice per closing", func() {
			req := invoice.GenerateInvoiceRequest{BillerID: workerID, WorkPeriodClosingID: &closing.ID}
			_, err := service.GenerateAndSave(ctx, req, worker)
			Expect(err).NotTo(HaveOccurred())

			res, err := service.GenerateAndSave(ctx, req, worker)
			Expect(err).To(MatchError(internal.ErrInvoiceAlreadyGenerated))
			Expect(res.Success).To(BeFalse())
			Expect(res.ErrorCode).To(Equal(string(internal.ErrCodeInvoiceAlreadyGenerated)))
			Expect(res.InvoiceID).To(BeNil())

			Expect(countInvoices()).To(Equal(int64(1)))
			Expect(docs.count()).To(Equal(1))
			Expect(published.seen()).To(ContainElement(events.EventTypeInvoiceGenerationFailed))
		})

		It("lets concurrent callers on one closing produce a single invoice", func() {
			req := invoice.GenerateInvoiceRequest{BillerID: workerID, WorkPeriodClosingID: &closing.ID}

			var (
				wg        sync.WaitGroup
				successes atomic.Int32
				dupes     atomic.Int32
			)
			for i := 0; i < 4; i++ {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					_, err := service.GenerateAndSave(ctx, req, worker)
					switch {
					case err == nil:
						successes.Add(1)
					case errors.Is(err, internal.ErrInvoiceAlreadyGenerated):
						dupes.Add(1)
					}
				}()
			}
			wg.Wait()

			Expect(successes.Load()).To(Equal(int32(1)))
			Expect(dupes.Load()).To(Equal(int32(3)))
			Expect(countInvoices()).To(Equal(int64(1)))
		})

		It("allows a new invoice once the previous one is voided", func() {
			req := invoice.GenerateInvoiceRequest{BillerID: workerID, WorkPeriodClosingID: &closing.ID}
			first, err := service.GenerateAndSave(ctx, req, worker)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Void(ctx, *first.InvoiceID, admin)
			Expect(err).NotTo(HaveOccurred())

			second, err := service.GenerateAndSave(ctx, req, worker)
			Expect(err).NotTo(HaveOccurred())
			Expect(*second.InvoiceID).NotTo(Equal(*first.InvoiceID))
			Expect(second.InvoiceNumber).To(Equal("2026001"))
		})

		It("deducts and consumes open advances up to the issue date", func() {
			early, err := advances.Create(ctx, advance.CreateAdvanceDTO{UserID: workerID, Amount: money.NewFlex(100), AdvanceDate: "2026-03-20"}, admin)
			Expect(err).NotTo(HaveOccurred())
			late, err := advances.Create(ctx, advance.CreateAdvanceDTO{UserID: workerID, Amount: money.NewFlex(50), AdvanceDate: "2026-04-02"}, admin)
			Expect(err).NotTo(HaveOccurred())

			res, err := service.GenerateAndSave(ctx, invoice.GenerateInvoiceRequest{BillerID: workerID, WorkPeriodClosingID: &closing.ID}, worker)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Invoice.AdvanceDeduction.StringFixed(2)).To(Equal("100.00"))
			Expect(res.Invoice.TotalAmount.StringFixed(2)).To(Equal("269.00"))

			open, err := advances.List(ctx, workerID, true, admin)
			Expect(err).NotTo(HaveOccurred())
			Expect(open).To(HaveLen(1))
			Expect(open[0].ID).To(Equal(late.ID))

			all, err := advances.List(ctx, workerID, false, admin)
			Expect(err).NotTo(HaveOccurred())
			for _, a := range all {
				if a.ID == early.ID {
					Expect(*a.InvoiceID).To(Equal(*res.InvoiceID))
				}
			}
		})

		It("refuses closings that are not approved", func() {
			c, err := closings.Open(ctx, workerID, workperiod.OpenClosingDTO{CalendarWeek: 14, Year: 2026})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.GenerateAndSave(ctx, invoice.GenerateInvoiceRequest{BillerID: workerID, WorkPeriodClosingID: &c.ID}, worker)
			Expect(err).To(MatchError(internal.ErrClosingNotApproved))
			Expect(countInvoices()).To(BeZero())
		})

		It("refuses closings of another biller", func() {
			c := approvedClosing(otherID, 13)
			_, err := service.GenerateAndSave(ctx, invoice.GenerateInvoiceRequest{BillerID: workerID, WorkPeriodClosingID: &c.ID}, worker)
			Expect(err).To(MatchError(internal.ErrClosingOwnerMismatch))
		})

		It("keeps the invoice when the document fails and regenerates it later", func() {
			docs.fail = errors.New("renderer crashed")

			res, err := service.GenerateAndSave(ctx, invoice.GenerateInvoiceRequest{BillerID: workerID, WorkPeriodClosingID: &closing.ID}, worker)
			Expect(err).To(MatchError(internal.ErrDocumentGenerationFailed))
			Expect(res.Success).To(BeFalse())
			Expect(res.InvoiceID).NotTo(BeNil())
			Expect(res.InvoiceNumber).To(Equal("2026001"))
			Expect(countInvoices()).To(Equal(int64(1)))
			Expect(published.seen()).To(ContainElement(events.EventTypeInvoiceDocumentFailed))

			docs.fail = nil
			v, err := service.RegenerateDocument(ctx, *res.InvoiceID, worker)
			Expect(err).NotTo(HaveOccurred())
			Expect(v.InvoiceNumber).To(Equal("2026001"))
			Expect(docs.count()).To(Equal(2))
		})
	})

	Describe("GenerateAndSave with explicit figures", func() {
		It("computes the statutory example", func() {
			res, err := service.GenerateAndSave(ctx, explicit(40), worker)
			Expect(err).NotTo(HaveOccurred())

			inv := res.Invoice
			Expect(inv.Subtotal.StringFixed(2)).To(Equal("800.00"))
			Expect(inv.TotalAmount.StringFixed(2)).To(Equal("800.00"))
			Expect(inv.TransactionTaxRate.String()).To(Equal("0.4"))
			Expect(inv.TransactionTaxAmount.StringFixed(2)).To(Equal("3.20"))
			Expect(inv.DeliveryDate).To(Equal(inv.IssueDate))
			Expect(inv.WeekClosingID).To(BeNil())
		})

		It("adds VAT for VAT payers unless reverse charge applies", func() {
			Expect(db.Model(&billerDatamodel.User{}).Where("id = ?", workerID).Update("is_vat_payer", true).Error).To(Succeed())

			res, err := service.GenerateAndSave(ctx, explicit(50), worker)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Invoice.VATAmount.StringFixed(2)).To(Equal("200.00"))
			Expect(res.Invoice.TotalAmount.StringFixed(2)).To(Equal("1200.00"))

			req := explicit(50)
			reverse := true
			req.IsReverseCharge = &reverse
			res, err = service.GenerateAndSave(ctx, req, worker)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Invoice.VATAmount.IsZero()).To(BeTrue())
			Expect(res.Invoice.IsReverseCharge).To(BeTrue())
		})

		It("numbers serial generations with increasing sequences", func() {
			var numbers []string
			for i := 0; i < 5; i++ {
				res, err := service.GenerateAndSave(ctx, explicit(8), worker)
				Expect(err).NotTo(HaveOccurred())
				numbers = append(numbers, res.InvoiceNumber)
			}
			Expect(numbers).To(Equal([]string{"2026001", "2026002", "2026003", "2026004", "2026005"}))
		})

		It("honours date overrides", func() {
			req := explicit(8)
			req.Dates = &invoice.DateOverrides{IssueDate: "2027-01-02", DeliveryDate: "2026-12-31"}
			res, err := service.GenerateAndSave(ctx, req, worker)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.InvoiceNumber).To(Equal("2027001"))
			Expect(res.Invoice.DueDate).To(Equal("2027-01-23"))
			Expect(res.Invoice.DeliveryDate).To(Equal("2026-12-31"))
		})

		It("rejects malformed date overrides", func() {
			req := explicit(8)
			req.Dates = &invoice.DateOverrides{IssueDate: "2026-02-30"}
			res, err := service.GenerateAndSave(ctx, req, worker)
			Expect(err).To(HaveOccurred())
			Expect(res.Success).To(BeFalse())
			Expect(countInvoices()).To(BeZero())
		})

		It("rejects date overrides with trailing text", func() {
			req := explicit(8)
			req.Dates = &invoice.DateOverrides{IssueDate: "2026-04-01Tgarbage"}
			res, err := service.GenerateAndSave(ctx, req, worker)

			var appErr *internal.AppError
			Expect(errors.As(err, &appErr)).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
			Expect(res.Success).To(BeFalse())
			Expect(countInvoices()).To(BeZero())
		})

		It("stores a transaction tax rate with three decimals", func() {
			req := explicit(100)
			req.TransactionTaxRate = money.NewFlex("0.125")
			res, err := service.GenerateAndSave(ctx, req, worker)
			Expect(err).NotTo(HaveOccurred())

			inv, err := repo.GetByID(ctx, *res.InvoiceID)
			Expect(err).NotTo(HaveOccurred())
			Expect(inv.TransactionTaxRate.StringFixed(3)).To(Equal("0.125"))
			Expect(inv.TransactionTaxAmount.StringFixed(2)).To(Equal("2.50"))
		})

		It("rejects a transaction tax rate the ledger cannot hold", func() {
			for _, rate := range []string{"0.1255", "1000", "-0.4"} {
				req := explicit(8)
				req.TransactionTaxRate = money.NewFlex(rate)
				_, err := service.GenerateAndSave(ctx, req, worker)

				var appErr *internal.AppError
				Expect(errors.As(err, &appErr)).To(BeTrue(), rate)
				Expect(appErr.Code).To(Equal(internal.ErrCodeValidationFailed), rate)
			}
			Expect(countInvoices()).To(BeZero())
		})

		It("fails without a biller identity", func() {
			req := explicit(8)
			req.BillerID = 0
			_, err := service.GenerateAndSave(ctx, req, worker)
			Expect(err).To(MatchError(internal.ErrMissingIdentity))

			_, err = service.GenerateAndSave(ctx, explicit(8), nil)
			Expect(err).To(MatchError(internal.ErrMissingIdentity))
		})

		It("keeps workers to their own invoices", func() {
			req := explicit(8)
			req.BillerID = otherID
			_, err := service.GenerateAndSave(ctx, req, worker)
			Expect(err).To(MatchError(internal.ErrUnauthorizedAccess))

			_, err = service.GenerateAndSave(ctx, req, admin)
			Expect(err).NotTo(HaveOccurred())
		})

		It("writes the invoice before rendering its document", func() {
			docs.lookup = func(id int64) error {
				_, err := repo.GetByID(ctx, id)
				return err
			}
			_, err := service.GenerateAndSave(ctx, explicit(8), worker)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("number race", func() {
		It("retries when a concurrent insert took the number", func() {
			_, err := service.GenerateAndSave(ctx, explicit(8), worker)
			Expect(err).NotTo(HaveOccurred())

			stale := &staleRepo{InvoiceRepository: invoicePostgres.NewInvoiceRepository(db), staleCalls: 1}
			repo = stale
			service = newService()

			res, err := service.GenerateAndSave(ctx, explicit(8), worker)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.InvoiceNumber).To(Equal("2026002"))
			Expect(stale.calls.Load()).To(Equal(int32(2)))
		})

		It("gives up after the configured attempts", func() {
			_, err := service.GenerateAndSave(ctx, explicit(8), worker)
			Expect(err).NotTo(HaveOccurred())

			repo = &staleRepo{InvoiceRepository: invoicePostgres.NewInvoiceRepository(db), staleCalls: 100}
			service = newService()

			res, err := service.GenerateAndSave(ctx, explicit(8), worker)
			Expect(err).To(MatchError(internal.ErrInvoiceNumberConflict))
			Expect(res.Success).To(BeFalse())
			Expect(countInvoices()).To(Equal(int64(1)))
		})

		It("hands distinct numbers to concurrent generations", func() {
			retries = 5
			service = newService()

			var (
				wg      sync.WaitGroup
				mu      sync.Mutex
				numbers []string
			)
			for i := 0; i < 5; i++ {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					res, err := service.GenerateAndSave(ctx, explicit(8), worker)
					Expect(err).NotTo(HaveOccurred())
					mu.Lock()
					numbers = append(numbers, res.InvoiceNumber)
					mu.Unlock()
				}()
			}
			wg.Wait()

			Expect(numbers).To(ConsistOf("2026001", "2026002", "2026003", "2026004", "2026005"))
		})
	})

	Describe("GenerateRetainer", func() {
		It("provisions an approved closing and bills the fixed fee", func() {
			res, err := service.GenerateRetainer(ctx, invoice.RetainerRequest{BillerID: workerID, CalendarWeek: 14, Year: 2026}, admin)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Success).To(BeTrue())
			Expect(res.InvoiceNumber).To(Equal("20260001"))

			inv := res.Invoice
			Expect(inv.BillingClass).To(Equal("retainer"))
			Expect(inv.Subtotal.StringFixed(2)).To(Equal("1000.00"))
			Expect(inv.TotalAmount.StringFixed(2)).To(Equal("1000.00"))
			Expect(inv.DueDate).To(Equal("2026-04-04"))
			Expect(inv.DeliveryDate).To(Equal("2026-04-05"))

			c, err := closings.GetByID(ctx, *inv.WeekClosingID)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.IsApproved()).To(BeTrue())
			Expect(c.CalendarWeek).To(Equal(14))
		})

		It("approves a submitted closing for the week", func() {
			c, err := closings.Open(ctx, workerID, workperiod.OpenClosingDTO{CalendarWeek: 14, Year: 2026})
			Expect(err).NotTo(HaveOccurred())
			_, err = closings.Submit(ctx, c.ID, worker)
			Expect(err).NotTo(HaveOccurred())

			res, err := service.GenerateRetainer(ctx, invoice.RetainerRequest{BillerID: workerID, CalendarWeek: 14, Year: 2026}, admin)
			Expect(err).NotTo(HaveOccurred())
			Expect(*res.Invoice.WeekClosingID).To(Equal(c.ID))
		})

		It("refuses a closing that was returned to the worker", func() {
			c, err := closings.Open(ctx, workerID, workperiod.OpenClosingDTO{CalendarWeek: 14, Year: 2026})
			Expect(err).NotTo(HaveOccurred())
			_, err = closings.Submit(ctx, c.ID, worker)
			Expect(err).NotTo(HaveOccurred())
			_, err = closings.Return(ctx, c.ID, "hours wrong", admin)
			Expect(err).NotTo(HaveOccurred())

			res, err := service.GenerateRetainer(ctx, invoice.RetainerRequest{BillerID: workerID, CalendarWeek: 14, Year: 2026}, admin)
			Expect(err).To(MatchError(workperiod.ErrNotApproved))
			Expect(res.Success).To(BeFalse())
			Expect(countInvoices()).To(BeZero())

			stored, err := closings.GetByID(ctx, c.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Status).To(Equal(workperiod.StatusReturned))
		})

		It("consumes no number when the closing cannot be provisioned", func() {
			counting := &staleRepo{InvoiceRepository: invoicePostgres.NewInvoiceRepository(db)}
			failing := invoice.NewService(invoice.Deps{
				Repo:       counting,
				Billers:    biller.NewService(billerPostgres.NewBillerRepository(db), lg),
				Closings:   &failingClosings{Service: closings, err: errors.New("connection reset")},
				Timesheets: sheets,
				Advances:   advances,
				Documents:  docs,
				Events:     published,
			}, invoice.Options{
				RetainerHours: decimal.NewFromInt(50),
				RetainerRate:  decimal.NewFromInt(20),
				Now:           func() time.Time { return issueClock },
			}, lg)

			res, err := failing.GenerateRetainer(ctx, invoice.RetainerRequest{BillerID: workerID, CalendarWeek: 14, Year: 2026}, admin)
			Expect(err).To(HaveOccurred())
			Expect(res.Success).To(BeFalse())
			Expect(res.InvoiceID).To(BeNil())

			Expect(counting.calls.Load()).To(BeZero())
			Expect(countInvoices()).To(BeZero())
			Expect(docs.count()).To(BeZero())
			Expect(published.seen()).To(ConsistOf(events.EventTypeInvoiceGenerationFailed))
		})

		It("keeps retainer and standard sequences apart", func() {
			_, err := service.GenerateRetainer(ctx, invoice.RetainerRequest{BillerID: workerID, CalendarWeek: 14, Year: 2026}, admin)
			Expect(err).NotTo(HaveOccurred())
			_, err = service.GenerateRetainer(ctx, invoice.RetainerRequest{BillerID: workerID, CalendarWeek: 15, Year: 2026}, admin)
			Expect(err).NotTo(HaveOccurred())

			res, err := service.GenerateAndSave(ctx, explicit(8), worker)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.InvoiceNumber).To(Equal("2026001"))
		})

		It("refuses a second retainer for the same week", func() {
			req := invoice.RetainerRequest{BillerID: workerID, CalendarWeek: 14, Year: 2026}
			_, err := service.GenerateRetainer(ctx, req, admin)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.GenerateRetainer(ctx, req, admin)
			Expect(err).To(MatchError(internal.ErrInvoiceAlreadyGenerated))
			Expect(countInvoices()).To(Equal(int64(1)))
		})

		It("aborts before provisioning when the caller is not an admin", func() {
			_, err := service.GenerateRetainer(ctx, invoice.RetainerRequest{BillerID: workerID, CalendarWeek: 14, Year: 2026}, worker)
			Expect(err).To(MatchError(internal.ErrUnauthorizedAccess))

			var n int64
			Expect(db.Model(&workperiodDatamodel.Closing{}).Count(&n).Error).To(Succeed())
			Expect(n).To(BeZero())
			Expect(countInvoices()).To(BeZero())
		})

		It("rejects weeks the year does not have", func() {
			_, err := service.GenerateRetainer(ctx, invoice.RetainerRequest{BillerID: workerID, CalendarWeek: 53, Year: 2025}, admin)
			Expect(err).To(HaveOccurred())
			Expect(countInvoices()).To(BeZero())
		})

		It("uses the retainer class for billers classified by name", func() {
			Expect(db.Model(&billerDatamodel.User{}).Where("id = ?", workerID).Update("display_name", "retainer crew").Error).To(Succeed())

			res, err := service.GenerateAndSave(ctx, explicit(8), worker)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.InvoiceNumber).To(Equal("20260001"))
			Expect(res.Invoice.DueDate).To(Equal("2026-04-04"))
		})
	})

	Describe("lifecycle", func() {
		var id int64

		BeforeEach(func() {
			res, err := service.GenerateAndSave(ctx, explicit(8), worker)
			Expect(err).NotTo(HaveOccurred())
			id = *res.InvoiceID
		})

		It("locks paid invoices against voiding", func() {
			v, err := service.MarkPaid(ctx, id, admin)
			Expect(err).NotTo(HaveOccurred())
			Expect(v.Status).To(Equal(invoice.StatusPaid))
			Expect(v.IsLocked).To(BeTrue())
			Expect(v.PaidAt).NotTo(BeNil())

			_, err = service.Void(ctx, id, admin)
			Expect(err).To(MatchError(internal.ErrInvoiceLocked))

			_, err = service.MarkPaid(ctx, id, admin)
			Expect(err).To(MatchError(internal.ErrInvalidInvoiceStatus))
		})

		It("lets only admins mark paid or void", func() {
			_, err := service.MarkPaid(ctx, id, worker)
			Expect(err).To(MatchError(internal.ErrUnauthorizedAccess))
			_, err = service.Void(ctx, id, worker)
			Expect(err).To(MatchError(internal.ErrUnauthorizedAccess))
		})

		It("walks the transaction tax payment status forward one step at a time", func() {
			_, err := service.UpdateTaxPayment(ctx, id, invoice.UpdateTaxPaymentDTO{Status: invoice.TaxPaymentVerified}, admin)
			Expect(err).To(MatchError(internal.ErrInvalidTaxPaymentStatus))

			v, err := service.UpdateTaxPayment(ctx, id, invoice.UpdateTaxPaymentDTO{Status: invoice.TaxPaymentConfirmed}, admin)
			Expect(err).NotTo(HaveOccurred())
			Expect(v.TaxPaymentStatus).To(Equal(invoice.TaxPaymentConfirmed))

			v, err = service.UpdateTaxPayment(ctx, id, invoice.UpdateTaxPaymentDTO{Status: invoice.TaxPaymentVerified}, admin)
			Expect(err).NotTo(HaveOccurred())
			Expect(v.TaxPaymentStatus).To(Equal(invoice.TaxPaymentVerified))
		})

		It("derives the display status from the clock", func() {
			v, err := service.Get(ctx, id, worker)
			Expect(err).NotTo(HaveOccurred())
			Expect(v.DisplayStatus).To(Equal(invoice.StatusPending))

			issueClock = time.Date(2026, time.April, 16, 12, 0, 0, 0, calendar.Location())
			v, err = service.Get(ctx, id, worker)
			Expect(err).NotTo(HaveOccurred())
			Expect(v.DisplayStatus).To(Equal(invoice.DisplayDueSoon))

			issueClock = time.Date(2026, time.April, 19, 12, 0, 0, 0, calendar.Location())
			v, err = service.Get(ctx, id, worker)
			Expect(err).NotTo(HaveOccurred())
			Expect(v.DisplayStatus).To(Equal(invoice.StatusOverdue))
			Expect(v.Status).To(Equal(invoice.StatusPending))
		})

		It("lists a worker's own invoices by year", func() {
			_, err := service.GenerateAndSave(ctx, func() invoice.GenerateInvoiceRequest {
				r := explicit(8)
				r.BillerID = otherID
				return r
			}(), admin)
			Expect(err).NotTo(HaveOccurred())

			views, err := service.List(ctx, invoice.ListFilter{Year: 2026}, worker)
			Expect(err).NotTo(HaveOccurred())
			Expect(views).To(HaveLen(1))
			Expect(views[0].UserID).To(Equal(workerID))

			views, err = service.List(ctx, invoice.ListFilter{Year: 2026}, admin)
			Expect(err).NotTo(HaveOccurred())
			Expect(views).To(HaveLen(2))

			views, err = service.List(ctx, invoice.ListFilter{Year: 2025}, admin)
			Expect(err).NotTo(HaveOccurred())
			Expect(views).To(BeEmpty())
		})

		It("hides other billers' invoices from workers", func() {
			other := &internal.Identity{UserID: otherID, Role: internal.RoleWorker}
			_, err := service.Get(ctx, id, other)
			Expect(err).To(MatchError(internal.ErrUnauthorizedAccess))
		})
	})
})

func ptr(s string) *string { return &s }
