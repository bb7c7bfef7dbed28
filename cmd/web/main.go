package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"transcribeAnything/internal/compute"
	"transcribeAnything/internal/config"
	"transcribeAnything/internal/handlers"
	"transcribeAnything/internal/ledger"
	"transcribeAnything/internal/objectstore"
	"transcribeAnything/internal/transcribe"
	"transcribeAnything/internal/transcripts"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := objectstore.NewGCS(ctx, cfg.BucketName)
	if err != nil {
		logger.Error("storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	ctrl, err := compute.NewGCE(ctx, cfg.ProjectID, cfg.Zone, cfg.InstanceName)
	if err != nil {
		logger.Error("compute", "error", err)
		os.Exit(1)
	}

	submissions, err := ledger.NewSQLiteStore(cfg.LedgerPath)
	if err != nil {
		logger.Error("ledger", "error", err)
		os.Exit(1)
	}
	defer submissions.Close()

	events := handlers.NewEvents(logger)
	submitter := transcribe.NewSubmitter(logger, cfg, store, ctrl, submissions, events)
	catalog := transcripts.NewCatalog(logger, store)
	app := handlers.NewApp(logger, cfg, submitter, catalog, submissions, events)
	app.StartCleanupLoop(ctx, cfg.CleanupInterval, cfg.LedgerTTL)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           app.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("server started", "addr", cfg.ListenAddr, "bucket", cfg.BucketName, "instance", cfg.InstanceName, "zone", cfg.Zone)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutdown signal received")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		_ = srv.Close()
	}
	logger.Info("server stopped")
}
