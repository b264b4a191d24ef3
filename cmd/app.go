package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/frahmantamala/timesheet-invoicing/internal"
	"github.com/frahmantamala/timesheet-invoicing/internal/advance"
	advancePostgres "github.com/frahmantamala/timesheet-invoicing/internal/advance/postgres"
	"github.com/frahmantamala/timesheet-invoicing/internal/biller"
	billerPostgres "github.com/frahmantamala/timesheet-invoicing/internal/biller/postgres"
	"github.com/frahmantamala/timesheet-invoicing/internal/calendar"
	"github.com/frahmantamala/timesheet-invoicing/internal/core/events"
	"github.com/frahmantamala/timesheet-invoicing/internal/document"
	documentPostgres "github.com/frahmantamala/timesheet-invoicing/internal/document/postgres"
	"github.com/frahmantamala/timesheet-invoicing/internal/invoice"
	invoicePostgres "github.com/frahmantamala/timesheet-invoicing/internal/invoice/postgres"
	"github.com/frahmantamala/timesheet-invoicing/internal/money"
	"github.com/frahmantamala/timesheet-invoicing/internal/numbering"
	"github.com/frahmantamala/timesheet-invoicing/internal/timesheet"
	timesheetPostgres "github.com/frahmantamala/timesheet-invoicing/internal/timesheet/postgres"
	"github.com/frahmantamala/timesheet-invoicing/internal/workperiod"
	workperiodPostgres "github.com/frahmantamala/timesheet-invoicing/internal/workperiod/postgres"
	"github.com/frahmantamala/timesheet-invoicing/pkg/logger"
)

// App holds the wired services shared by the server and the CLI commands.
type App struct {
	Config *internal.Config
	Logger *slog.Logger
	SQL    *sqlx.DB
	DB     *gorm.DB
	Events *events.EventBus

	Billers     *biller.Service
	BillerRepo  *billerPostgres.BillerRepository
	Timesheets  *timesheet.Service
	SheetRepo   *timesheetPostgres.TimesheetRepository
	Closings    *workperiod.Service
	Advances    *advance.Service
	Invoices    *invoice.Service
	InvoiceRepo *invoicePostgres.InvoiceRepository
	Documents   *document.Service
	DocPool     *document.Pool
}

func newApp() (*App, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	lg := logger.LoggerWrapper()
	applyPoolFlags(&cfg.Documents)

	loc, err := cfg.Invoicing.Location()
	if err != nil {
		return nil, err
	}
	calendar.SetLocation(loc)

	sqlDB, err := initDB(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gdb, err := initGorm(sqlDB, cfg.Database)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	policies, err := policiesFromConfig(cfg.Invoicing)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	app := &App{
		Config: cfg,
		Logger: lg,
		SQL:    sqlDB,
		DB:     gdb,
		Events: events.NewEventBus(lg),
	}

	app.BillerRepo = billerPostgres.NewBillerRepository(gdb)
	app.Billers = biller.NewService(app.BillerRepo, lg)
	app.SheetRepo = timesheetPostgres.NewTimesheetRepository(gdb)
	app.Timesheets = timesheet.NewService(app.SheetRepo, lg)
	app.Closings = workperiod.NewService(workperiodPostgres.NewClosingRepository(gdb), lg)
	app.Advances = advance.NewService(advancePostgres.NewAdvanceRepository(gdb), lg)

	docCfg := cfg.Documents
	app.Documents = document.NewService(
		documentPostgres.NewDocumentRepository(gdb),
		document.NewFileStore(docCfg.StorageDir),
		app.Billers,
		document.Customer{Name: docCfg.CustomerName, Address: docCfg.CustomerAddress, Currency: docCfg.Currency},
		lg,
	)

	app.InvoiceRepo = invoicePostgres.NewInvoiceRepository(gdb)
	inv := cfg.Invoicing
	app.Invoices = invoice.NewService(invoice.Deps{
		Repo:       app.InvoiceRepo,
		Billers:    app.Billers,
		Closings:   app.Closings,
		Timesheets: app.Timesheets,
		Advances:   app.Advances,
		Documents:  app.Documents,
		Events:     app.Events,
		Allocator:  numbering.NewAllocator(app.InvoiceRepo, policies),
		Calculator: money.NewCalculator(
			inv.Decimal(inv.VATRate, money.DefaultVATRate),
			inv.Decimal(inv.TransactionTaxRate, money.DefaultTransactionTaxRate),
		),
	}, invoice.Options{
		Rules:                numbering.Rules{RetainerNames: inv.RetainerNames},
		MaxAllocationRetries: inv.MaxAllocationRetries,
		DueSoonDays:          inv.DueSoonDays,
		RetainerHours:        inv.Decimal(inv.RetainerHours, decimal.NewFromInt(50)),
		RetainerRate:         inv.Decimal(inv.RetainerRate, decimal.NewFromInt(20)),
		DocumentTimeout:      docCfg.GenerationTimeout,
	}, lg)

	app.DocPool = document.NewPool(document.PoolConfig{
		MaxWorkers:     docCfg.MaxWorkers,
		JobQueueSize:   docCfg.JobQueueSize,
		WorkerPoolSize: docCfg.WorkerPoolSize,
		Timeout:        docCfg.GenerationTimeout,
	}, app.InvoiceRepo, app.Documents, lg)

	return app, nil
}

// subscribe wires the invoice notifications: every event is logged and a
// failed document is queued for another attempt.
func (a *App) subscribe() {
	a.Events.SubscribeAll(func(ctx context.Context, e events.Event) error {
		a.Logger.Info("invoice event",
			"event_type", e.EventType(),
			"event_id", e.EventID(),
			"payload", e.Payload())
		return nil
	}, events.InvoiceEventTypes...)
	a.Events.Subscribe(events.EventTypeInvoiceDocumentFailed, a.DocPool.HandleDocumentFailed)
}

func (a *App) Close() {
	a.DocPool.Shutdown()
	a.Events.Wait()
	if err := a.SQL.Close(); err != nil {
		a.Logger.Error("database close error", "error", err)
	}
}

// systemActor resolves the admin on whose behalf a CLI command runs.
func (a *App) systemActor(ctx context.Context, id int64) (*internal.Identity, error) {
	b, err := a.Billers.GetActive(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load acting user %d: %w", id, err)
	}
	if !b.IsAdmin() {
		return nil, fmt.Errorf("acting user %d is not an admin", id)
	}
	return &internal.Identity{UserID: b.ID, Email: b.Email, Role: b.Role}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := dbConn.PingContext(ctx); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm shares the sqlx connection pool with gorm.
func initGorm(db *sqlx.DB, cfg internal.DatabaseConfig) (*gorm.DB, error) {
	level := gormLogger.Warn
	if cfg.LogQueries {
		level = gormLogger.Info
	}
	return gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(level),
		TranslateError: true,
	})
}

func policiesFromConfig(cfg internal.InvoicingConfig) (numbering.Policies, error) {
	policies := numbering.DefaultPolicies()
	for name, override := range cfg.Classes {
		class, err := numbering.ParseClass(name)
		if err != nil {
			return nil, fmt.Errorf("invoicing.classes: %w", err)
		}
		pol := policies[class]
		pol.Prefix = override.Prefix
		if override.Width > 0 {
			pol.Width = override.Width
		}
		if override.DueDays > 0 {
			pol.DueDays = override.DueDays
		}
		policies[class] = pol
	}
	if err := policies.Validate(); err != nil {
		return nil, fmt.Errorf("invoicing.classes: %w", err)
	}
	return policies, nil
}
