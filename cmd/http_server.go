package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/spf13/cobra"

	"github.com/frahmantamala/timesheet-invoicing/internal/advance"
	"github.com/frahmantamala/timesheet-invoicing/internal/auth"
	"github.com/frahmantamala/timesheet-invoicing/internal/biller"
	"github.com/frahmantamala/timesheet-invoicing/internal/document"
	"github.com/frahmantamala/timesheet-invoicing/internal/invoice"
	"github.com/frahmantamala/timesheet-invoicing/internal/timesheet"
	"github.com/frahmantamala/timesheet-invoicing/internal/transport"
	"github.com/frahmantamala/timesheet-invoicing/internal/transport/middleware"
	"github.com/frahmantamala/timesheet-invoicing/internal/transport/rest"
	"github.com/frahmantamala/timesheet-invoicing/internal/workperiod"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

func startHTTPServer() {
	app, err := newApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	app.subscribe()
	app.DocPool.Start()

	router := chi.NewRouter()
	router.Use(middleware.CORS(app.Config.Server.AllowedOrigins))
	rest.RegisterAllRoutes(router, app.SQL, app.handlers(), app.Logger)

	addr := fmt.Sprintf(":%d", app.Config.Server.Port)
	app.Logger.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: app.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       app.Config.Server.ReadTimeout,
		WriteTimeout:      app.Config.Server.WriteTimeout,
		IdleTimeout:       app.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		app.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			app.Logger.Error("Server shutdown error", "error", err)
		}
		if err := app.DocPool.Drain(ctx); err != nil {
			app.Logger.Warn("document queue not drained", "error", err)
		}
		app.Close()
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.Logger.Error("Server failed to start", "error", err)
			app.Close()
			os.Exit(1)
		}
	}

	app.Logger.Info("Server stopped")
}

func (a *App) handlers() rest.Handlers {
	base := transport.NewBaseHandler(a.Logger)
	sec := a.Config.Security

	tokens := auth.NewJWTTokenGenerator(sec.JWTSecret, sec.JWTIssuer, sec.AccessTokenDuration)
	authService := auth.NewService(tokens, a.Billers, a.Logger)

	return rest.Handlers{
		Auth:       auth.NewHandler(authService),
		Biller:     biller.NewHandler(base, a.Billers),
		Invoice:    invoice.NewHandler(base, a.Invoices),
		Document:   document.NewHandler(base, a.Documents, a.Invoices),
		Advance:    advance.NewHandler(base, a.Advances),
		WorkPeriod: workperiod.NewHandler(base, a.Closings),
		Timesheet:  timesheet.NewHandler(base, a.Timesheets),
	}
}
