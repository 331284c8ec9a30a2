package scheduler

import (
	"context"
	"fmt"

	"scada_quote_backend/platform/apperr"
	"scada_quote_backend/platform/config"
	"scada_quote_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// QuoteExporter renders and stores a quote PDF.
type QuoteExporter interface {
	ExportPDF(ctx context.Context, id uuid.UUID) (string, error)
}

// QuoteExpirer persists time-based expiry.
type QuoteExpirer interface {
	ExpireOverdue(ctx context.Context) (int, error)
}

type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	exporter QuoteExporter
	expirer  QuoteExpirer
	log      *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, exporter QuoteExporter, expirer QuoteExpirer, log *logger.Logger) (*Worker, error) {
	opt, queue, err := connection(cfg)
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
			log.JobFailed(task.Type(), err)
		}),
	})

	w := newWorker(exporter, expirer, log)
	w.server = server
	return w, nil
}

func newWorker(exporter QuoteExporter, expirer QuoteExpirer, log *logger.Logger) *Worker {
	mux := asynq.NewServeMux()
	w := &Worker{
		mux:      mux,
		exporter: exporter,
		expirer:  expirer,
		log:      log,
	}

	mux.HandleFunc(TaskQuotePDFExport, w.handleQuotePDFExport)
	mux.HandleFunc(TaskQuoteExpirySweep, w.handleQuoteExpirySweep)
	return w
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleQuotePDFExport(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseQuotePDFExportPayload(task)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	quoteID, err := uuid.Parse(payload.QuoteID)
	if err != nil {
		return fmt.Errorf("invalid quote id %q: %w", payload.QuoteID, asynq.SkipRetry)
	}

	fileKey, err := w.exporter.ExportPDF(ctx, quoteID)
	if err != nil {
		// Deleted quotes never export.
		if apperr.Is(err, apperr.KindNotFound) {
			return fmt.Errorf("quote %s: %v: %w", quoteID, err, asynq.SkipRetry)
		}
		return err
	}

	w.log.Info("quote pdf export finished", "quoteId", quoteID, "fileKey", fileKey)
	return nil
}

func (w *Worker) handleQuoteExpirySweep(ctx context.Context, _ *asynq.Task) error {
	expired, err := w.expirer.ExpireOverdue(ctx)
	if err != nil {
		return err
	}
	if expired > 0 {
		w.log.Info("quote expiry sweep finished", "expired", expired)
	}
	return nil
}
