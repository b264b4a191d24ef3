package invoice

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/frahmantamala/timesheet-invoicing/internal"
	"github.com/frahmantamala/timesheet-invoicing/internal/advance"
	"github.com/frahmantamala/timesheet-invoicing/internal/biller"
	"github.com/frahmantamala/timesheet-invoicing/internal/calendar"
	"github.com/frahmantamala/timesheet-invoicing/internal/core/events"
	"github.com/frahmantamala/timesheet-invoicing/internal/money"
	"github.com/frahmantamala/timesheet-invoicing/internal/numbering"
	"github.com/frahmantamala/timesheet-invoicing/internal/workperiod"
)

// Condition restricts a conditional update to invoices still in the
// expected state.
type Condition struct {
	Statuses         []string
	Unlocked         bool
	TaxPaymentStatus string
}

type Repository interface {
	numbering.Store
	ActiveFinder
	// Persist inserts inv and marks advanceIDs as consumed by it in one
	// transaction. A unique index hit yields ErrDuplicate, an advance that
	// is no longer open yields advance.ErrAdvanceConsumed.
	Persist(ctx context.Context, inv *Invoice, advanceIDs []int64) error
	GetByID(ctx context.Context, id int64) (*Invoice, error)
	List(ctx context.Context, filter ListFilter) ([]*Invoice, error)
	// Update applies updates when the invoice still matches cond and
	// returns ErrStale otherwise.
	Update(ctx context.Context, id int64, cond Condition, updates map[string]interface{}) error
}

type BillerReader interface {
	GetActive(ctx context.Context, id int64) (*biller.Biller, error)
}

type ClosingService interface {
	GetByID(ctx context.Context, id int64) (*workperiod.Closing, error)
	EnsureApproved(ctx context.Context, userID int64, week, year int, approverID int64) (*workperiod.Closing, error)
}

type TimesheetReader interface {
	NetHoursForWeek(ctx context.Context, userID int64, week, year int) (decimal.Decimal, error)
	LodgingDeductionForWeek(ctx context.Context, userID int64, week, year int) (decimal.Decimal, error)
}

type AdvanceReader interface {
	Open(ctx context.Context, userID int64, issueDate string) ([]*advance.Advance, error)
}

// DocumentGenerator renders the document of a persisted invoice. It only
// reads the invoice, so calling it again is safe.
type DocumentGenerator interface {
	GenerateDocument(ctx context.Context, inv *Invoice) error
}

type Deps struct {
	Repo       Repository
	Billers    BillerReader
	Closings   ClosingService
	Timesheets TimesheetReader
	Advances   AdvanceReader
	Documents  DocumentGenerator
	Events     events.Publisher
	Allocator  *numbering.Allocator
	Calculator *money.Calculator
}

type Options struct {
	Rules                numbering.Rules
	MaxAllocationRetries int
	DueSoonDays          int
	RetainerHours        decimal.Decimal
	RetainerRate         decimal.Decimal
	DocumentTimeout      time.Duration
	Now                  func() time.Time
}

type Service struct {
	repo       Repository
	billers    BillerReader
	closings   ClosingService
	timesheets TimesheetReader
	advances   AdvanceReader
	documents  DocumentGenerator
	events     events.Publisher
	allocator  *numbering.Allocator
	calc       *money.Calculator
	guard      *Guard
	opts       Options
	logger     *slog.Logger
}

func NewService(deps Deps, opts Options, logger *slog.Logger) *Service {
	if deps.Allocator == nil {
		deps.Allocator = numbering.NewAllocator(deps.Repo, nil)
	}
	if deps.Calculator == nil {
		deps.Calculator = money.DefaultCalculator()
	}
	if opts.MaxAllocationRetries < 1 {
		opts.MaxAllocationRetries = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		repo:       deps.Repo,
		billers:    deps.Billers,
		closings:   deps.Closings,
		timesheets: deps.Timesheets,
		advances:   deps.Advances,
		documents:  deps.Documents,
		events:     deps.Events,
		allocator:  deps.Allocator,
		calc:       deps.Calculator,
		guard:      NewGuard(deps.Repo, logger),
		opts:       opts,
		logger:     logger,
	}
}

// generation carries one invocation through the pipeline.
type generation struct {
	req     GenerateInvoiceRequest
	biller  *biller.Biller
	closing *workperiod.Closing
	class   numbering.Class
	actor   *internal.Identity
	// fixed skips every derivation from work records and advances.
	fixed bool
}

// GenerateAndSave turns a closing (or explicit figures) into a numbered,
// persisted invoice and then renders its document.
func (s *Service) GenerateAndSave(ctx context.Context, req GenerateInvoiceRequest, actor *internal.Identity) (*GenerateResult, error) {
	inv, err := s.generateAndSave(ctx, req, actor)
	return s.conclude(ctx, req.BillerID, req.WorkPeriodClosingID, inv, err)
}

func (s *Service) generateAndSave(ctx context.Context, req GenerateInvoiceRequest, actor *internal.Identity) (*Invoice, error) {
	if actor == nil {
		return nil, internal.ErrMissingIdentity
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !actor.CanActFor(req.BillerID) {
		s.logger.Warn("invoice generation denied", "user_id", actor.UserID, "biller_id", req.BillerID)
		return nil, internal.ErrUnauthorizedAccess
	}

	if req.WorkPeriodClosingID != nil {
		if err := s.guard.Check(ctx, req.BillerID, *req.WorkPeriodClosingID); err != nil {
			return nil, err
		}
	}

	b, err := s.billers.GetActive(ctx, req.BillerID)
	if err != nil {
		return nil, err
	}

	g := &generation{req: req, biller: b, class: b.Class(s.opts.Rules), actor: actor}
	if req.WorkPeriodClosingID != nil {
		c, err := s.closings.GetByID(ctx, *req.WorkPeriodClosingID)
		if err != nil {
			return nil, err
		}
		if c.UserID != b.ID {
			s.logger.Warn("closing belongs to another biller", "week_closing_id", c.ID, "owner_id", c.UserID, "biller_id", b.ID)
			return nil, internal.ErrClosingOwnerMismatch
		}
		if !c.IsApproved() {
			return nil, workperiod.ErrNotApproved
		}
		g.closing = c
	}

	return s.run(ctx, g)
}

// GenerateRetainer bills the fixed retainer hours for one ISO week. The
// week's closing is provisioned approved first; if that fails nothing else
// happens.
func (s *Service) GenerateRetainer(ctx context.Context, req RetainerRequest, actor *internal.Identity) (*GenerateResult, error) {
	inv, closingID, err := s.generateRetainer(ctx, req, actor)
	return s.conclude(ctx, req.BillerID, closingID, inv, err)
}

func (s *Service) generateRetainer(ctx context.Context, req RetainerRequest, actor *internal.Identity) (*Invoice, *int64, error) {
	if actor == nil {
		return nil, nil, internal.ErrMissingIdentity
	}
	if !actor.IsAdmin() {
		s.logger.Warn("retainer generation denied", "user_id", actor.UserID, "biller_id", req.BillerID)
		return nil, nil, internal.ErrUnauthorizedAccess
	}
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}
	if req.CalendarWeek > calendar.WeeksInYear(req.Year) {
		return nil, nil, internal.NewValidationFieldError("calendar_week", "year has no such ISO week", internal.ErrCodeInvalidDate)
	}

	b, err := s.billers.GetActive(ctx, req.BillerID)
	if err != nil {
		return nil, nil, err
	}

	c, err := s.closings.EnsureApproved(ctx, b.ID, req.CalendarWeek, req.Year, actor.UserID)
	if err != nil {
		s.logger.Error("failed to provision closing for retainer", "error", err, "biller_id", b.ID, "week", req.CalendarWeek, "year", req.Year)
		return nil, nil, err
	}
	closingID := c.ID

	if err := s.guard.Check(ctx, b.ID, c.ID); err != nil {
		return nil, &closingID, err
	}

	hours := money.NewFlex(s.opts.RetainerHours)
	rate := money.NewFlex(s.opts.RetainerRate)
	g := &generation{
		req: GenerateInvoiceRequest{
			BillerID:            b.ID,
			ProjectID:           req.ProjectID,
			WorkPeriodClosingID: &closingID,
			TotalHours:          hours,
			HourlyRate:          rate,
			Dates:               req.Dates,
		},
		biller:  b,
		closing: c,
		class:   numbering.ClassRetainer,
		actor:   actor,
		fixed:   true,
	}
	inv, err := s.run(ctx, g)
	return inv, &closingID, err
}

// run executes calculate, dates, allocate and persist.
func (s *Service) run(ctx context.Context, g *generation) (*Invoice, error) {
	policy, err := s.allocator.Policies().For(g.class)
	if err != nil {
		return nil, err
	}

	issue, delivery, err := s.dates(g)
	if err != nil {
		return nil, err
	}

	in, advanceIDs, err := s.inputs(ctx, g, issue)
	if err != nil {
		return nil, err
	}
	bd := s.calc.Calculate(in)

	var closingID *int64
	if g.closing != nil {
		id := g.closing.ID
		closingID = &id
	}
	createdBy := g.actor.UserID
	inv := &Invoice{
		UserID:                 g.biller.ID,
		ProjectID:              g.req.ProjectID,
		WeekClosingID:          closingID,
		BillingClass:           string(g.class),
		TotalHours:             bd.Hours,
		HourlyRate:             bd.Rate,
		Subtotal:               bd.Subtotal,
		VATAmount:              bd.VAT,
		AdvanceDeduction:       bd.AdvanceDeduction,
		AccommodationDeduction: bd.LodgingDeduction,
		TotalAmount:            bd.Total,
		IssueDate:              calendar.FormatDateString(issue),
		DeliveryDate:           calendar.FormatDateString(delivery),
		DueDate:                calendar.FormatDateString(policy.DueDate(issue)),
		Status:                 StatusPending,
		IsReverseCharge:        in.IsReverseCharge,
		TransactionTaxRate:     bd.TransactionTaxRate,
		TransactionTaxAmount:   bd.TransactionTax,
		TaxPaymentStatus:       TaxPaymentPending,
		CreatedBy:              &createdBy,
	}

	if err := s.persist(ctx, g, inv, issue.Year(), advanceIDs); err != nil {
		return nil, err
	}

	s.logger.Info("invoice saved",
		"invoice_id", inv.ID,
		"invoice_number", inv.InvoiceNumber,
		"user_id", inv.UserID,
		"billing_class", inv.BillingClass,
		"total_amount", inv.TotalAmount.String())
	return inv, nil
}

func (s *Service) dates(g *generation) (issue, delivery time.Time, err error) {
	issue = calendar.DateOf(s.opts.Now())
	if g.req.Dates != nil && g.req.Dates.IssueDate != "" {
		if issue, err = calendar.ParseLocalDate(g.req.Dates.IssueDate); err != nil {
			return issue, delivery, internal.NewValidationFieldError("dates.issue_date", "must be a valid YYYY-MM-DD date", internal.ErrCodeInvalidDate)
		}
	}

	switch {
	case g.req.Dates != nil && g.req.Dates.DeliveryDate != "":
		if delivery, err = calendar.ParseLocalDate(g.req.Dates.DeliveryDate); err != nil {
			return issue, delivery, internal.NewValidationFieldError("dates.delivery_date", "must be a valid YYYY-MM-DD date", internal.ErrCodeInvalidDate)
		}
	case g.closing != nil:
		delivery = calendar.WeekEnd(g.closing.CalendarWeek, g.closing.Year)
	default:
		delivery = issue
	}
	return issue, delivery, nil
}

// inputs assembles the calculator input, deriving what the request left out.
// The returned ids are the advances the invoice will consume.
func (s *Service) inputs(ctx context.Context, g *generation, issue time.Time) (money.Input, []int64, error) {
	req := g.req
	in := money.Input{
		Hours:            req.TotalHours.Value(),
		Rate:             req.HourlyRate.Value(),
		AdvanceDeduction: req.AdvanceDeduction.Value(),
		LodgingDeduction: req.LodgingDeduction.Value(),
		IsVATPayer:       g.biller.IsVATPayer,
		IsReverseCharge:  g.biller.IsReverseCharge,
	}
	if req.IsReverseCharge != nil {
		in.IsReverseCharge = *req.IsReverseCharge
	}
	if req.TransactionTaxRate != nil {
		rate := req.TransactionTaxRate.Value()
		if !validTaxRate(rate) {
			return in, nil, internal.NewValidationFieldError("transaction_tax_rate", "must be a percentage below 1000 with at most three decimals", internal.ErrCodeInvalidAmount)
		}
		in.TransactionTaxRate = &rate
	}
	if req.HourlyRate == nil {
		in.Rate = g.biller.HourlyRate
	}
	if g.fixed {
		return in, nil, nil
	}

	var err error
	if req.TotalHours == nil && g.closing != nil {
		in.Hours, err = s.timesheets.NetHoursForWeek(ctx, g.biller.ID, g.closing.CalendarWeek, g.closing.Year)
		if err != nil {
			s.logger.Error("failed to sum net hours", "error", err, "biller_id", g.biller.ID, "week_closing_id", g.closing.ID)
			return in, nil, err
		}
	}
	if req.LodgingDeduction == nil && g.closing != nil {
		in.LodgingDeduction, err = s.timesheets.LodgingDeductionForWeek(ctx, g.biller.ID, g.closing.CalendarWeek, g.closing.Year)
		if err != nil {
			s.logger.Error("failed to compute lodging deduction", "error", err, "biller_id", g.biller.ID, "week_closing_id", g.closing.ID)
			return in, nil, err
		}
	}

	var ids []int64
	if req.AdvanceDeduction == nil {
		open, err := s.advances.Open(ctx, g.biller.ID, calendar.FormatDateString(issue))
		if err != nil {
			return in, nil, err
		}
		in.AdvanceDeduction, ids = advance.Total(open)
	}
	return in, ids, nil
}

// persist allocates a number and inserts, retrying when another invocation
// took the number first.
func (s *Service) persist(ctx context.Context, g *generation, inv *Invoice, year int, advanceIDs []int64) error {
	scope := numbering.Scope{BillerID: inv.UserID, Year: year}

	for attempt := 1; ; attempt++ {
		number, err := s.allocator.Next(ctx, scope, g.class)
		if err != nil {
			s.logger.Error("failed to allocate invoice number", "error", err, "biller_id", scope.BillerID, "year", year, "class", g.class)
			if errors.Is(err, numbering.ErrSequenceExhausted) {
				return ErrNumberConflict.Wrap(err)
			}
			return ErrPersistFailed.Wrap(err)
		}
		inv.InvoiceNumber = number

		err = s.repo.Persist(ctx, inv, advanceIDs)
		if err == nil {
			return nil
		}
		if errors.Is(err, advance.ErrAdvanceConsumed) {
			s.logger.Warn("advance consumed by another invoice", "biller_id", inv.UserID, "advance_ids", advanceIDs)
			return err
		}
		if !errors.Is(err, ErrDuplicate) {
			s.logger.Error("failed to persist invoice", "error", err, "invoice_number", number, "biller_id", inv.UserID)
			return ErrPersistFailed.Wrap(err)
		}

		// Either the closing got its invoice meanwhile or the number is taken.
		if g.closing != nil {
			if err := s.guard.Check(ctx, inv.UserID, g.closing.ID); err != nil {
				return err
			}
		}
		if attempt >= s.opts.MaxAllocationRetries {
			s.logger.Error("gave up allocating invoice number", "biller_id", inv.UserID, "attempts", attempt, "last_number", number)
			return ErrNumberConflict
		}
		s.logger.Warn("invoice number taken, retrying", "invoice_number", number, "biller_id", inv.UserID, "attempt", attempt)
	}
}

// conclude renders the document of a saved invoice, publishes the outcome
// and shapes the result. Everything after the commit runs detached from the
// caller's cancellation.
func (s *Service) conclude(ctx context.Context, billerID int64, closingID *int64, inv *Invoice, err error) (*GenerateResult, error) {
	if err != nil {
		appErr := asAppError(err)
		s.publish(ctx, events.NewInvoiceGenerationFailedEvent(billerID, closingID, string(appErr.Code), appErr.Error()))
		return &GenerateResult{Success: false, ErrorCode: string(appErr.Code), Message: appErr.Message}, appErr
	}

	ctx = context.WithoutCancel(ctx)
	id := inv.ID
	if derr := s.renderDocument(ctx, inv); derr != nil {
		s.logger.Error("failed to generate invoice document", "error", derr, "invoice_id", inv.ID, "invoice_number", inv.InvoiceNumber)
		s.publish(ctx, events.NewInvoiceDocumentFailedEvent(inv.ID, inv.InvoiceNumber, inv.UserID, derr.Error()))
		appErr := internal.ErrDocumentGenerationFailed.Wrap(derr)
		return &GenerateResult{
			Success:       false,
			InvoiceID:     &id,
			InvoiceNumber: inv.InvoiceNumber,
			Invoice:       inv,
			ErrorCode:     string(appErr.Code),
			Message:       appErr.Message,
		}, appErr
	}

	s.publish(ctx, events.NewInvoiceGeneratedEvent(inv.ID, inv.InvoiceNumber, inv.UserID, inv.BillingClass, inv.TotalAmount.String()))
	return &GenerateResult{Success: true, InvoiceID: &id, InvoiceNumber: inv.InvoiceNumber, Invoice: inv}, nil
}

func (s *Service) renderDocument(ctx context.Context, inv *Invoice) error {
	if s.documents == nil {
		return nil
	}
	if s.opts.DocumentTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.DocumentTimeout)
		defer cancel()
	}
	return s.documents.GenerateDocument(ctx, inv)
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, e); err != nil {
		s.logger.Warn("failed to publish event", "error", err, "event_type", e.EventType())
	}
}

func asAppError(err error) *internal.AppError {
	if appErr, ok := internal.IsAppError(err); ok {
		return appErr
	}
	return internal.NewInternalError("invoice generation failed", err)
}

// Get returns one invoice with its display status.
func (s *Service) Get(ctx context.Context, id int64, actor *internal.Identity) (*View, error) {
	inv, err := s.load(ctx, id, actor, false)
	if err != nil {
		return nil, err
	}
	return s.view(inv), nil
}

func (s *Service) List(ctx context.Context, filter ListFilter, actor *internal.Identity) ([]*View, error) {
	if actor == nil {
		return nil, internal.ErrMissingIdentity
	}
	if filter.UserID == 0 && !actor.IsAdmin() {
		filter.UserID = actor.UserID
	}
	if filter.UserID != 0 && !actor.CanActFor(filter.UserID) {
		return nil, internal.ErrUnauthorizedAccess
	}
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}

	invoices, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list invoices", "error", err, "user_id", filter.UserID)
		return nil, err
	}
	views := make([]*View, len(invoices))
	for i, inv := range invoices {
		views[i] = s.view(inv)
	}
	return views, nil
}

// MarkPaid records payment and locks the invoice.
func (s *Service) MarkPaid(ctx context.Context, id int64, actor *internal.Identity) (*View, error) {
	inv, err := s.load(ctx, id, actor, true)
	if err != nil {
		return nil, err
	}
	if !inv.CanBePaid() {
		return nil, ErrInvalidStatus
	}

	paidAt := s.opts.Now()
	err = s.repo.Update(ctx, id, Condition{Statuses: []string{StatusPending, StatusOverdue}}, map[string]interface{}{
		"status":    StatusPaid,
		"paid_at":   paidAt,
		"is_locked": true,
	})
	if err != nil {
		return nil, s.updateError(err, "mark paid", id)
	}

	inv.Status = StatusPaid
	inv.PaidAt = &paidAt
	inv.IsLocked = true
	s.logger.Info("invoice marked paid", "invoice_id", id, "invoice_number", inv.InvoiceNumber)
	return s.view(inv), nil
}

// Void releases the invoice's closing for a new invoice. Paid or locked
// invoices cannot be voided.
func (s *Service) Void(ctx context.Context, id int64, actor *internal.Identity) (*View, error) {
	inv, err := s.load(ctx, id, actor, true)
	if err != nil {
		return nil, err
	}
	if inv.IsLocked {
		return nil, ErrLocked
	}
	if !inv.CanBeVoided() {
		return nil, ErrInvalidStatus
	}

	err = s.repo.Update(ctx, id, Condition{Statuses: []string{StatusPending, StatusOverdue}, Unlocked: true}, map[string]interface{}{
		"status": StatusVoid,
	})
	if err != nil {
		return nil, s.updateError(err, "void", id)
	}

	inv.Status = StatusVoid
	s.logger.Info("invoice voided", "invoice_id", id, "invoice_number", inv.InvoiceNumber)
	return s.view(inv), nil
}

// UpdateTaxPayment moves the transaction tax payment status one step along
// pending, confirmed, verified.
func (s *Service) UpdateTaxPayment(ctx context.Context, id int64, dto UpdateTaxPaymentDTO, actor *internal.Identity) (*View, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	inv, err := s.load(ctx, id, actor, true)
	if err != nil {
		return nil, err
	}
	if inv.IsVoid() || !inv.NextTaxPaymentStatus(dto.Status) {
		s.logger.Warn("invalid tax payment transition", "invoice_id", id, "from", inv.TaxPaymentStatus, "to", dto.Status)
		return nil, ErrInvalidTaxPaymentStatus
	}

	err = s.repo.Update(ctx, id, Condition{TaxPaymentStatus: inv.TaxPaymentStatus}, map[string]interface{}{
		"tax_payment_status": dto.Status,
	})
	if err != nil {
		if errors.Is(err, ErrStale) {
			return nil, ErrInvalidTaxPaymentStatus
		}
		return nil, s.updateError(err, "update tax payment status", id)
	}

	inv.TaxPaymentStatus = dto.Status
	return s.view(inv), nil
}

// RegenerateDocument renders the document of a saved invoice again.
func (s *Service) RegenerateDocument(ctx context.Context, id int64, actor *internal.Identity) (*View, error) {
	inv, err := s.load(ctx, id, actor, false)
	if err != nil {
		return nil, err
	}
	if inv.IsVoid() {
		return nil, ErrInvalidStatus
	}
	if err := s.renderDocument(context.WithoutCancel(ctx), inv); err != nil {
		s.logger.Error("failed to regenerate invoice document", "error", err, "invoice_id", id)
		s.publish(ctx, events.NewInvoiceDocumentFailedEvent(inv.ID, inv.InvoiceNumber, inv.UserID, err.Error()))
		return nil, internal.ErrDocumentGenerationFailed.Wrap(err)
	}
	s.logger.Info("invoice document regenerated", "invoice_id", id, "invoice_number", inv.InvoiceNumber)
	return s.view(inv), nil
}

func (s *Service) load(ctx context.Context, id int64, actor *internal.Identity, adminOnly bool) (*Invoice, error) {
	if actor == nil {
		return nil, internal.ErrMissingIdentity
	}
	if adminOnly && !actor.IsAdmin() {
		s.logger.Warn("invoice operation denied", "invoice_id", id, "user_id", actor.UserID)
		return nil, internal.ErrUnauthorizedAccess
	}
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanActFor(inv.UserID) {
		s.logger.Warn("invoice access denied", "invoice_id", id, "user_id", actor.UserID, "owner_id", inv.UserID)
		return nil, internal.ErrUnauthorizedAccess
	}
	return inv, nil
}

func (s *Service) updateError(err error, op string, id int64) error {
	if errors.Is(err, ErrStale) {
		s.logger.Warn("invoice changed concurrently", "op", op, "invoice_id", id)
		return ErrInvalidStatus
	}
	s.logger.Error("failed to "+op, "error", err, "invoice_id", id)
	return ErrPersistFailed.Wrap(err)
}

func (s *Service) view(inv *Invoice) *View {
	return &View{Invoice: inv, DisplayStatus: inv.DisplayStatus(calendar.DateOf(s.opts.Now()), s.opts.DueSoonDays)}
}

var maxTaxRate = decimal.NewFromInt(1000)

// validTaxRate reports whether rate fits the stored numeric(6,3) column.
func validTaxRate(rate decimal.Decimal) bool {
	return !rate.IsNegative() && rate.LessThan(maxTaxRate) && rate.Equal(rate.Truncate(3))
}
