package document

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/frahmantamala/timesheet-invoicing/internal/core/events"
	"github.com/frahmantamala/timesheet-invoicing/internal/invoice"
)

var ErrQueueFull = errors.New("document queue full, please try again later")

// Job asks for the document of one invoice to be (re)built.
type Job struct {
	InvoiceID int64
}

type InvoiceReader interface {
	GetByID(ctx context.Context, id int64) (*invoice.Invoice, error)
}

type Generator interface {
	Generate(ctx context.Context, inv *invoice.Invoice) (*Document, error)
}

type Worker struct {
	ID         int
	WorkerPool chan chan Job
	JobChannel chan Job
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan Job, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan Job),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, processFunc func(Job)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			select {
			case w.WorkerPool <- w.JobChannel:
			case <-ctx.Done():
				w.Logger.Debug("document worker shutting down", "worker_id", w.ID)
				return
			}

			select {
			case job := <-w.JobChannel:
				w.Logger.Debug("document worker processing job", "worker_id", w.ID, "invoice_id", job.InvoiceID)
				processFunc(job)
			case <-ctx.Done():
				w.Logger.Debug("document worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

type PoolConfig struct {
	MaxWorkers     int
	JobQueueSize   int
	WorkerPoolSize int
	// Timeout bounds one document build; zero means no limit.
	Timeout time.Duration
}

// Pool builds documents in the background. It is used for retries after a
// failed synchronous build and for backfilling invoices without a document.
type Pool struct {
	invoices  InvoiceReader
	generator Generator
	timeout   time.Duration
	logger    *slog.Logger

	jobQueue   chan Job
	workerPool chan chan Job
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once
	stopOnce   sync.Once
	pending    atomic.Int64

	// processed is called after every job; tests hook it.
	processed func(Job, error)
}

func NewPool(cfg PoolConfig, invoices InvoiceReader, generator Generator, logger *slog.Logger) *Pool {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := cfg.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 4
	}

	jobQueueSize := cfg.JobQueueSize
	if jobQueueSize <= 0 {
		jobQueueSize = 100
	}

	workerPoolSize := cfg.WorkerPoolSize
	if workerPoolSize <= 0 {
		workerPoolSize = maxWorkers
	}

	return &Pool{
		invoices:   invoices,
		generator:  generator,
		timeout:    cfg.Timeout,
		logger:     logger,
		maxWorkers: maxWorkers,
		jobQueue:   make(chan Job, jobQueueSize),
		workerPool: make(chan chan Job, workerPoolSize),
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (p *Pool) Start() {
	p.once.Do(func() {
		for i := 0; i < p.maxWorkers; i++ {
			worker := NewWorker(i, p.workerPool, p.logger)
			worker.Start(p.ctx, &p.wg, p.process)
		}

		p.wg.Add(1)
		go p.dispatch()

		p.logger.Info("document worker pool started",
			"max_workers", p.maxWorkers,
			"queue_size", cap(p.jobQueue))
	})
}

func (p *Pool) dispatch() {
	defer p.wg.Done()

	for {
		select {
		case job := <-p.jobQueue:
			select {
			case jobChannel := <-p.workerPool:
				select {
				case jobChannel <- job:
				case <-p.ctx.Done():
					p.logger.Info("document dispatcher shutting down")
					return
				}
			case <-p.ctx.Done():
				p.logger.Info("document dispatcher shutting down")
				return
			}
		case <-p.ctx.Done():
			p.logger.Info("document dispatcher shutting down")
			return
		}
	}
}

// Enqueue never blocks; a full queue is reported as ErrQueueFull.
func (p *Pool) Enqueue(job Job) error {
	p.pending.Add(1)
	select {
	case p.jobQueue <- job:
		p.logger.Info("document job queued", "invoice_id", job.InvoiceID, "queue_length", len(p.jobQueue))
		return nil
	default:
		p.pending.Add(-1)
		p.logger.Warn("document job queue full", "invoice_id", job.InvoiceID, "queue_capacity", cap(p.jobQueue))
		return ErrQueueFull
	}
}

// Drain waits until every accepted job has been processed, or ctx ends.
func (p *Pool) Drain(ctx context.Context) error {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		if p.pending.Load() == 0 {
			return nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (p *Pool) Shutdown() {
	p.stopOnce.Do(func() {
		p.logger.Info("shutting down document worker pool")
		p.cancel()
		p.wg.Wait()
		p.logger.Info("document worker pool shutdown complete")
	})
}

func (p *Pool) process(job Job) {
	ctx := p.ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	err := p.build(ctx, job)
	if err != nil {
		p.logger.Error("failed to build invoice document", "error", err, "invoice_id", job.InvoiceID)
	}
	if p.processed != nil {
		p.processed(job, err)
	}
	p.pending.Add(-1)
}

func (p *Pool) build(ctx context.Context, job Job) error {
	inv, err := p.invoices.GetByID(ctx, job.InvoiceID)
	if err != nil {
		return fmt.Errorf("load invoice: %w", err)
	}
	if inv.IsVoid() {
		p.logger.Info("skipping document for void invoice", "invoice_id", inv.ID)
		return nil
	}
	_, err = p.generator.Generate(ctx, inv)
	return err
}

// HandleDocumentFailed is an events.Handler that queues a rebuild for an
// invoice whose synchronous document build failed.
func (p *Pool) HandleDocumentFailed(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.InvoiceDocumentFailedEvent)
	if !ok {
		return fmt.Errorf("unexpected event %T for %s", event, event.EventType())
	}
	return p.Enqueue(Job{InvoiceID: e.InvoiceID})
}

// MissingLister finds invoices that have no stored document.
type MissingLister interface {
	Missing(ctx context.Context, limit int) ([]*invoice.Invoice, error)
}

// EnqueueMissing queues every invoice returned by lister and reports how
// many were accepted. It stops at the first full-queue rejection.
func (p *Pool) EnqueueMissing(ctx context.Context, lister MissingLister, limit int) (int, error) {
	invoices, err := lister.Missing(ctx, limit)
	if err != nil {
		return 0, err
	}

	queued := 0
	for _, inv := range invoices {
		if err := p.Enqueue(Job{InvoiceID: inv.ID}); err != nil {
			return queued, err
		}
		queued++
	}
	return queued, nil
}
