// Package testdb opens throwaway sqlite databases carrying the full schema,
// for repository and service tests.
package testdb

import (
	"fmt"
	"sync/atomic"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	advanceDatamodel "github.com/frahmantamala/timesheet-invoicing/internal/core/datamodel/advance"
	billerDatamodel "github.com/frahmantamala/timesheet-invoicing/internal/core/datamodel/biller"
	documentDatamodel "github.com/frahmantamala/timesheet-invoicing/internal/core/datamodel/document"
	invoiceDatamodel "github.com/frahmantamala/timesheet-invoicing/internal/core/datamodel/invoice"
	timesheetDatamodel "github.com/frahmantamala/timesheet-invoicing/internal/core/datamodel/timesheet"
	workperiodDatamodel "github.com/frahmantamala/timesheet-invoicing/internal/core/datamodel/workperiod"
)

var seq atomic.Int64

// Models lists every table of the schema.
func Models() []interface{} {
	return []interface{}{
		&billerDatamodel.User{},
		&timesheetDatamodel.Accommodation{},
		&timesheetDatamodel.WorkRecord{},
		&workperiodDatamodel.Closing{},
		&invoiceDatamodel.Invoice{},
		&advanceDatamodel.Advance{},
		&documentDatamodel.InvoiceDocument{},
	}
}

// Open returns a fresh in-memory database. Each call gets its own named
// shared-cache database so that concurrent goroutines in one test see the
// same data.
func Open() (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared&_busy_timeout=5000", seq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(Models()...); err != nil {
		return nil, err
	}
	return db, nil
}

// Close releases the database.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
