// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"affiliation-validator/internal/common/config"
	"affiliation-validator/internal/common/database"
	"affiliation-validator/internal/common/logger"
	"affiliation-validator/internal/common/observability"
	"affiliation-validator/internal/directory"
	"affiliation-validator/internal/downloads"
	"affiliation-validator/internal/notify"
	"affiliation-validator/internal/orchestrator"
	"affiliation-validator/internal/pricing"
	"affiliation-validator/internal/renderer"
	"affiliation-validator/internal/resolver"
	"affiliation-validator/internal/server"
	"affiliation-validator/internal/store"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting affiliation validator...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Pricing matrix ---
	matrix, err := pricing.LoadMatrix(cfg.Pricing.MatrixPath)
	if err != nil {
		zapLog.Fatal("pricing matrix load failed", zap.Error(err))
	}

	// --- External collaborators ---
	tokens := directory.NewOAuthTokenProvider(
		cfg.Directory.Auth.TokenURL,
		cfg.Directory.Auth.ClientID,
		cfg.Directory.Auth.ClientSecret,
	)
	dirClient := directory.NewClient(cfg.Directory, tokens, log)
	dirAPI := directory.NewCachedAPI(
		dirClient,
		rdb.GetClient(),
		time.Duration(cfg.Jobs.MemberCacheTTL)*time.Minute,
		log,
	)

	rendererClient := renderer.NewClient(cfg.Renderer)

	var notifier notify.Notifier
	emailNotifier, err := notify.NewEmailNotifier(ctx, cfg.Notifications, log)
	if err != nil {
		zapLog.Fatal("email notifier init failed", zap.Error(err))
	}
	if emailNotifier != nil {
		notifier = emailNotifier
	}

	// --- Core services ---
	sqlStore := store.New(pg.GetDB(), cfg.StoreFields, log)
	res := resolver.New(dirAPI, log)
	downloadStore := downloads.New(rdb.GetClient(), time.Duration(cfg.Jobs.DownloadTTL)*time.Minute)

	orch := orchestrator.New(
		sqlStore,
		res,
		matrix,
		rendererClient,
		downloadStore,
		notifier,
		orchestrator.NewMemoryRegistry(),
		obs,
		log,
		orchestrator.Options{
			PacingDelay:     time.Duration(cfg.Jobs.PacingDelay) * time.Millisecond,
			DownloadBaseURL: cfg.Notifications.DownloadBaseURL,
		},
	)

	srv := server.New(orch, res, sqlStore, downloadStore, pg, rdb, log)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Routes(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Millisecond,
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining...")
	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Jobs.ShutdownTimeout)*time.Millisecond,
	)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}

	zapLog.Info("Affiliation validator stopped gracefully")
}
