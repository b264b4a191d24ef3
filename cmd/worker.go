package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/timesheet-invoicing/internal"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start background workers that keep invoice artifacts up to date.`,
}

var documentWorkerCmd = &cobra.Command{
	Use:   "documents",
	Short: "Render missing invoice documents",
	Long: `Queue every persisted invoice without a rendered document into the
document worker pool. With --watch the scan repeats until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDocumentWorker(cmd.Context())
	},
}

var (
	maxWorkers     int
	jobQueueSize   int
	workerPoolSize int
	backfillLimit  int
	watchInterval  time.Duration
)

func runDocumentWorker(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app.subscribe()
	app.DocPool.Start()

	cfg := app.Config.Documents
	app.Logger.Info("starting document worker",
		"max_workers", cfg.MaxWorkers,
		"job_queue_size", cfg.JobQueueSize,
		"worker_pool_size", cfg.WorkerPoolSize,
		"storage_dir", cfg.StorageDir,
		"watch", watchInterval)

	for {
		queued, err := app.DocPool.EnqueueMissing(ctx, app.Documents, backfillLimit)
		if err != nil {
			app.Logger.Error("failed to queue missing documents", "error", err)
		}
		if err := app.DocPool.Drain(ctx); err != nil {
			app.Logger.Warn("document queue not drained", "error", err)
		}
		app.Logger.Info("document backfill pass complete", "queued", queued)

		if watchInterval <= 0 {
			return err
		}
		select {
		case <-ctx.Done():
			app.Logger.Info("document worker shutdown complete")
			return nil
		case <-time.After(watchInterval):
		}
	}
}

// applyPoolFlags lets command line flags win over config values.
func applyPoolFlags(cfg *internal.DocumentsConfig) {
	if maxWorkers > 0 {
		cfg.MaxWorkers = maxWorkers
	}
	if jobQueueSize > 0 {
		cfg.JobQueueSize = jobQueueSize
	}
	if workerPoolSize > 0 {
		cfg.WorkerPoolSize = workerPoolSize
	}
}

func init() {
	documentWorkerCmd.Flags().IntVar(&maxWorkers, "max-workers", 0, "Maximum number of workers (overrides config)")
	documentWorkerCmd.Flags().IntVar(&jobQueueSize, "job-queue-size", 0, "Job queue buffer size (overrides config)")
	documentWorkerCmd.Flags().IntVar(&workerPoolSize, "worker-pool-size", 0, "Worker pool channel size (overrides config)")
	documentWorkerCmd.Flags().IntVar(&backfillLimit, "limit", 100, "Maximum invoices queued per pass")
	documentWorkerCmd.Flags().DurationVar(&watchInterval, "watch", 0, "Repeat the scan at this interval until interrupted")

	workerCmd.AddCommand(documentWorkerCmd)
	rootCmd.AddCommand(workerCmd)
}
