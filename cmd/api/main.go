package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
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
	apphttp "scada_quote_backend/internal/http"
	"scada_quote_backend/internal/http/router"
	"scada_quote_backend/internal/notification"
	"scada_quote_backend/internal/quotes"
	"scada_quote_backend/internal/scheduler"
	"scada_quote_backend/platform/config"
	"scada_quote_backend/platform/db"
	"scada_quote_backend/platform/logger"
	"scada_quote_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

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
	log.Info("database connection established")

	if cfg.MigrationsEnabled {
		if err := db.RunMigrations(ctx, pool); err != nil {
			log.Error("failed to run database migrations", "error", err)
			panic("failed to run database migrations: " + err.Error())
		}
		log.Info("database migrations complete")
	}

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	catalogCache, closeCache := initCatalogCache(cfg, log)
	if closeCache != nil {
		defer closeCache()
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	catalogModule := catalog.NewModule(pool, catalogCache, eventBus, val, log)
	if n, err := catalogModule.Service().Seed(ctx, cfg.GetCatalogSeedPath()); err != nil {
		log.Warn("catalog seed skipped", "path", cfg.GetCatalogSeedPath(), "error", err)
	} else if n > 0 {
		log.Info("catalog seed applied", "entries", n)
	}

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
		bucket := cfg.GetMinioBucketQuotePDFs()
		if err := withRetry(ctx, log, "ensure quote-pdfs bucket", 5, 2*time.Second, func() error {
			return storageSvc.EnsureBucketExists(ctx, bucket)
		}); err != nil {
			log.Error("failed to ensure storage bucket exists", "error", err, "bucket", bucket)
			panic("failed to ensure storage bucket exists: " + err.Error())
		}
		quotesSvc.SetPDFStore(adapters.NewQuotePDFStore(storageSvc, bucket))
		log.Info("storage service initialized", "quotePDFsBucket", bucket)
	} else {
		log.Warn("MINIO_ENDPOINT not configured; quote PDF export disabled")
	}

	exportQueue, closeQueue := initExportQueue(cfg, log)
	if closeQueue != nil {
		defer closeQueue()
	}
	if exportQueue != nil {
		quotesSvc.SetExportEnqueuer(exportQueue)
	}

	// Notification module subscribes to domain events (not HTTP-facing)
	sender := email.NewSender(cfg, log)
	notificationModule := notification.New(quotesSvc, sender, cfg.GetEmailFromAddress(), log)
	notificationModule.RegisterHandlers(eventBus)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config: cfg,
		Logger: log,
		Health: pool,
		Modules: []apphttp.Module{
			catalogModule,
			clientsModule,
			quotesModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initCatalogCache(cfg config.CatalogConfig, log *logger.Logger) (catalogsvc.Cache, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; catalog cache disabled")
		return catalogsvc.NoopCache{}, nil
	}

	cache, err := catalogsvc.NewRedisCacheFromURL(cfg.GetRedisURL(), cfg.GetCatalogCacheTTL())
	if err != nil {
		log.Error("failed to initialize catalog cache", "error", err)
		return catalogsvc.NoopCache{}, nil
	}

	return cache, func() {
		_ = cache.Close()
	}
}

func initExportQueue(cfg config.SchedulerConfig, log *logger.Logger) (*scheduler.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; quote PDF exports run inline")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize export queue client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
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
