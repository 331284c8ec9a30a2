package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"scada_quote_backend/internal/adapters"
	"scada_quote_backend/internal/adapters/storage"
	"scada_quote_backend/internal/catalog"
	catalogsvc "scada_quote_backend/internal/catalog/service"
	"scada_quote_backend/internal/clients"
	"scada_quote_backend/internal/email"
	"scada_quote_backend/internal/events"
	"scada_quote_backend/internal/notification"
	"scada_quote_backend/internal/quotes"
	"scada_quote_backend/internal/scheduler"
	"scada_quote_backend/platform/config"
	"scada_quote_backend/platform/db"
	"scada_quote_backend/platform/logger"
	"scada_quote_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	if cfg.GetRedisURL() == "" {
		panic("REDIS_URL is required for the scheduler")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	// Worker-side quote wiring (no HTTP handlers required).
	var catalogCache catalogsvc.Cache = catalogsvc.NoopCache{}
	if cache, err := catalogsvc.NewRedisCacheFromURL(cfg.GetRedisURL(), cfg.GetCatalogCacheTTL()); err != nil {
		log.Warn("catalog cache disabled", "error", err)
	} else {
		catalogCache = cache
		defer func() { _ = cache.Close() }()
	}

	catalogModule := catalog.NewModule(pool, catalogCache, eventBus, val, log)
	clientsModule := clients.NewModule(pool, val, log)
	quotesModule := quotes.NewModule(pool, catalogModule.Service(), cfg, eventBus, val, log)

	quotesSvc := quotesModule.Service()
	quotesSvc.SetClientReader(adapters.NewQuotesClientReader(clientsModule.Service()))
	quotesSvc.SetPDFRenderer(adapters.NewQuotePDFRenderer(cfg.GetEmailFromName(), cfg.GetEmailFromAddress()))
	if cfg.IsMinIOEnabled() {
		storageSvc, err := storage.NewMinIOService(cfg)
		if err != nil {
			log.Error("failed to initialize storage service", "error", err)
			panic("failed to initialize storage service: " + err.Error())
		}
		quotesSvc.SetPDFStore(adapters.NewQuotePDFStore(storageSvc, cfg.GetMinioBucketQuotePDFs()))
	}

	notificationModule := notification.New(quotesSvc, email.NewSender(cfg, log), cfg.GetEmailFromAddress(), log)
	notificationModule.RegisterHandlers(eventBus)

	worker, err := scheduler.NewWorker(cfg, quotesSvc, quotesSvc, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	periodic, err := scheduler.NewPeriodic(cfg, log)
	if err != nil {
		log.Error("failed to initialize periodic scheduler", "error", err)
		panic("failed to initialize periodic scheduler: " + err.Error())
	}
	if periodic == nil {
		log.Warn("EXPIRY_SWEEP_CRON empty; quote expiry sweep disabled")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		worker.Run(gctx)
		return nil
	})
	g.Go(func() error {
		periodic.Run(gctx)
		return nil
	})
	_ = g.Wait()

	eventBus.Wait()
	log.Info("scheduler stopped")
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
