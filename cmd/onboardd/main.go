package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/kiranafin/dsa-onboarding/internal/common"
	"github.com/kiranafin/dsa-onboarding/internal/notify"
	"github.com/kiranafin/dsa-onboarding/internal/repository"
	"github.com/kiranafin/dsa-onboarding/internal/server"
	"github.com/kiranafin/dsa-onboarding/internal/storage"
	"github.com/kiranafin/dsa-onboarding/internal/upload"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Local development convenience; production supplies real env.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("env.dotenv_load_failed", "error", err)
	}

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("config.invalid", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("db.open_failed", "error", err)
		os.Exit(1)
	}
	defer repository.Close(pool, logger)

	if err := repository.HealthCheck(ctx, pool, cfg.Database.DialTimeout, logger); err != nil {
		logger.Error("db.ping_failed", "error", err)
		os.Exit(1)
	}

	store, err := storage.NewS3Store(ctx, cfg.Storage.Region, cfg.Storage.Bucket, logger)
	if err != nil {
		logger.Error("storage.init_failed", "error", err)
		os.Exit(1)
	}

	orchestrator := upload.NewOrchestrator(store, cfg.Pipeline.UploadConcurrency, cfg.Storage.UploadTimeout, logger)
	mailer := notify.NewHTTPMailer(cfg.Mail.BaseURL, cfg.Mail.APIKey, cfg.Mail.SendTimeout, logger)
	dispatcher := notify.NewDispatcher(store, mailer, cfg.Mail.FromAddress, cfg.Mail.ReviewerInbox, cfg.Storage.SignedURLTTL, cfg.Storage.SignTimeout, logger)
	repo := repository.NewSubmissionRepository(pool, logger)

	srv := server.NewServer(cfg, store, orchestrator, repo, dispatcher, pool, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server.listening", "addr", cfg.Server.Addr)
		errCh <- srv.Start(cfg.Server.Addr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("server.shutdown_requested")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server.failed", "error", err)
			os.Exit(1)
		}
	}

	if err := srv.Shutdown(cfg.Server.ShutdownTimeout); err != nil {
		logger.Error("server.shutdown_failed", "error", err)
		os.Exit(1)
	}
	logger.Info("server.stopped")
}
