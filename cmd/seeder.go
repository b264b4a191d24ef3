package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/frahmantamala/timesheet-invoicing/internal"
	"github.com/frahmantamala/timesheet-invoicing/internal/advance"
	"github.com/frahmantamala/timesheet-invoicing/internal/auth"
	"github.com/frahmantamala/timesheet-invoicing/internal/biller"
	"github.com/frahmantamala/timesheet-invoicing/internal/calendar"
	"github.com/frahmantamala/timesheet-invoicing/internal/money"
	"github.com/frahmantamala/timesheet-invoicing/internal/numbering"
	"github.com/frahmantamala/timesheet-invoicing/internal/timesheet"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long: `Seed the database with sample billers, one closed week of work records
and an open advance for development and testing purposes. Prints a bearer
token for every seeded biller.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()
		return seed(context.Background(), app)
	},
}

var seedBillers = []biller.Biller{
	{
		Email:       "admin@mail.com",
		DisplayName: "Office Admin",
		Role:        internal.RoleAdmin,
		HourlyRate:  decimal.Zero,
	},
	{
		Email:       "jana@mail.com",
		DisplayName: "Jana Novak",
		Role:        internal.RoleWorker,
		HourlyRate:  decimal.NewFromInt(25),
		IsVATPayer:  true,
	},
	{
		Email:           "retainer@mail.com",
		DisplayName:     "Retainer Partner",
		Role:            internal.RoleWorker,
		HourlyRate:      decimal.NewFromInt(20),
		IsReverseCharge: true,
		BillingClass:    string(numbering.ClassRetainer),
	},
}

func seed(ctx context.Context, app *App) error {
	seeded := make([]*biller.Biller, 0, len(seedBillers))
	for i := range seedBillers {
		b, err := ensureBiller(ctx, app, seedBillers[i])
		if err != nil {
			return err
		}
		seeded = append(seeded, b)
	}
	admin, worker := seeded[0], seeded[1]
	actor := &internal.Identity{UserID: admin.ID, Email: admin.Email, Role: admin.Role}

	// the last complete week is the one a worker would invoice today
	lastWeek := calendar.AddDays(calendar.Today(), -7)
	week, year := calendar.ISOWeek(lastWeek), calendar.ISOWeekYear(lastWeek)

	existing, err := app.Timesheets.RecordsForWeek(ctx, worker.ID, week, year)
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}
	if len(existing) == 0 {
		acc := &timesheet.Accommodation{Name: "Pension Lipa", PricePerNight: decimal.NewFromInt(30)}
		if err := app.SheetRepo.CreateAccommodation(ctx, acc); err != nil {
			return fmt.Errorf("create accommodation: %w", err)
		}
		breakStart, breakEnd := "12:00", "12:30"
		start := calendar.WeekStart(week, year)
		for day := 0; day < 5; day++ {
			dto := timesheet.CreateWorkRecordDTO{
				WorkDate:    calendar.FormatDateString(calendar.AddDays(start, day)),
				StartTime:   "08:00",
				EndTime:     "16:30",
				Break1Start: &breakStart,
				Break1End:   &breakEnd,
				Status:      timesheet.StatusApproved,
			}
			if day < 2 {
				dto.AccommodationID = &acc.ID
			}
			if _, err := app.Timesheets.CreateRecord(ctx, worker.ID, dto); err != nil {
				return fmt.Errorf("create work record: %w", err)
			}
		}
		fmt.Printf("Seeded 5 work records for %s in week %d/%d\n", worker.Email, week, year)
	}

	closing, err := app.Closings.EnsureApproved(ctx, worker.ID, week, year, admin.ID)
	if err != nil {
		return fmt.Errorf("approve closing: %w", err)
	}
	fmt.Printf("Closing %d for week %d/%d is %s\n", closing.ID, week, year, closing.Status)

	advances, err := app.Advances.List(ctx, worker.ID, false, actor)
	if err != nil {
		return fmt.Errorf("list advances: %w", err)
	}
	if len(advances) == 0 {
		note := "seeded advance"
		_, err := app.Advances.Create(ctx, advance.CreateAdvanceDTO{
			UserID:      worker.ID,
			Amount:      money.NewFlex("100.00"),
			AdvanceDate: calendar.FormatDateString(calendar.WeekStart(week, year)),
			Note:        &note,
		}, actor)
		if err != nil {
			return fmt.Errorf("create advance: %w", err)
		}
		fmt.Println("Seeded advance of 100.00 for", worker.Email)
	}

	sec := app.Config.Security
	tokens := auth.NewJWTTokenGenerator(sec.JWTSecret, sec.JWTIssuer, sec.AccessTokenDuration)
	for _, b := range seeded {
		token, err := tokens.GenerateAccessToken(internal.Identity{UserID: b.ID, Email: b.Email, Role: b.Role})
		if err != nil {
			return fmt.Errorf("sign token for %s: %w", b.Email, err)
		}
		fmt.Printf("%s (id=%d, %s)\n  Bearer %s\n", b.Email, b.ID, b.Role, token)
	}
	return nil
}

func ensureBiller(ctx context.Context, app *App, b biller.Biller) (*biller.Biller, error) {
	found, err := app.BillerRepo.GetByEmail(ctx, b.Email)
	if err == nil {
		fmt.Println("biller already exists:", b.Email)
		return found, nil
	}
	if !errors.Is(err, biller.ErrNotFound) {
		return nil, fmt.Errorf("lookup %s: %w", b.Email, err)
	}

	b.IsActive = true
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	if err := app.BillerRepo.Create(ctx, &b); err != nil {
		return nil, fmt.Errorf("create %s: %w", b.Email, err)
	}
	fmt.Println("Seeded biller:", b.Email)
	return &b, nil
}
