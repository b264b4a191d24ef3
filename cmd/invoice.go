package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/timesheet-invoicing/internal"
	"github.com/frahmantamala/timesheet-invoicing/internal/invoice"
)

var invoiceCmd = &cobra.Command{
	Use:   "invoice",
	Short: "Generate invoices and documents from the command line",
	Long: `Run invoice operations on behalf of an administrator. Every subcommand
needs --as with the id of an active admin biller.`,
}

var invoiceGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate the invoice of an approved closing",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withActor(func(ctx context.Context, app *App) (any, error) {
			closing := invoiceClosingID
			return output(app.Invoices.GenerateAndSave(ctx, invoice.GenerateInvoiceRequest{
				BillerID:            invoiceBillerID,
				WorkPeriodClosingID: &closing,
			}, invoiceActor))
		})
	},
}

var invoiceRetainerCmd = &cobra.Command{
	Use:   "retainer",
	Short: "Generate the fixed retainer invoice for a week",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withActor(func(ctx context.Context, app *App) (any, error) {
			return output(app.Invoices.GenerateRetainer(ctx, invoice.RetainerRequest{
				BillerID:     invoiceBillerID,
				CalendarWeek: invoiceWeek,
				Year:         invoiceYear,
			}, invoiceActor))
		})
	},
}

var invoiceRegenerateCmd = &cobra.Command{
	Use:   "regenerate <invoice-id>",
	Short: "Render the document of an invoice again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid invoice id %q", args[0])
		}
		return withActor(func(ctx context.Context, app *App) (any, error) {
			return output(app.Invoices.RegenerateDocument(ctx, id, invoiceActor))
		})
	},
}

var (
	invoiceActorID   int64
	invoiceBillerID  int64
	invoiceClosingID int64
	invoiceWeek      int
	invoiceYear      int

	invoiceActor = &internal.Identity{}
)

// withActor builds the app, resolves --as and prints the operation result
// as JSON. A failed generation still prints its result before the error.
func withActor(run func(ctx context.Context, app *App) (any, error)) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()
	app.subscribe()

	ctx := context.Background()
	actor, err := app.systemActor(ctx, invoiceActorID)
	if err != nil {
		return err
	}
	*invoiceActor = *actor

	out, runErr := run(ctx, app)
	if out != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return err
		}
	}
	return runErr
}

func output[T any](v *T, err error) (any, error) {
	if v == nil {
		return nil, err
	}
	return v, err
}

func init() {
	invoiceCmd.PersistentFlags().Int64Var(&invoiceActorID, "as", 0, "id of the admin biller acting")
	_ = invoiceCmd.MarkPersistentFlagRequired("as")

	invoiceGenerateCmd.Flags().Int64Var(&invoiceBillerID, "biller", 0, "biller id")
	invoiceGenerateCmd.Flags().Int64Var(&invoiceClosingID, "closing", 0, "approved work-period closing id")
	_ = invoiceGenerateCmd.MarkFlagRequired("biller")
	_ = invoiceGenerateCmd.MarkFlagRequired("closing")

	invoiceRetainerCmd.Flags().Int64Var(&invoiceBillerID, "biller", 0, "biller id")
	invoiceRetainerCmd.Flags().IntVar(&invoiceWeek, "week", 0, "ISO calendar week")
	invoiceRetainerCmd.Flags().IntVar(&invoiceYear, "year", 0, "ISO week year")
	_ = invoiceRetainerCmd.MarkFlagRequired("biller")
	_ = invoiceRetainerCmd.MarkFlagRequired("week")
	_ = invoiceRetainerCmd.MarkFlagRequired("year")

	invoiceCmd.AddCommand(invoiceGenerateCmd, invoiceRetainerCmd, invoiceRegenerateCmd)
	rootCmd.AddCommand(invoiceCmd)
}
