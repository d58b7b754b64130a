package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ademidov/newspulse/app/api"
	"github.com/ademidov/newspulse/app/cfg"
	"github.com/ademidov/newspulse/app/database"
	"github.com/ademidov/newspulse/app/feed"
	"github.com/ademidov/newspulse/app/ingest"
	"github.com/ademidov/newspulse/app/ranker"
	"github.com/ademidov/newspulse/app/sources"
	"github.com/ademidov/newspulse/app/tasks"
	"github.com/ademidov/newspulse/app/vector"
)

func main() {
	config, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if config == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if config.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting NewsPulse server", "version", config.Version)

	db, err := database.NewConnection(config.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", config.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", config.DBPath, "schema_version", version, "dirty", dirty)

	sourceList, err := sources.Load(config.SourcesFile)
	if err != nil {
		slog.Error("Failed to load sources", "file", config.SourcesFile, "error", err)
		os.Exit(1)
	}
	slog.Info("Sources loaded", "total", len(sourceList), "enabled", len(sources.Enabled(sourceList)))

	itemRepo := database.NewItemRepository(db)
	userRepo := database.NewUserRepository(db)

	httpClient := &http.Client{Timeout: time.Duration(config.FetchTimeout) * time.Second}
	embedder := vector.NewClient(config.EmbeddingURL, config.EmbeddingModel, config.EmbeddingDim, httpClient)

	runner := ingest.NewRunner(ingest.Options{
		Sources:     sourceList,
		Parser:      feed.NewParser(),
		Extractor:   feed.NewExtractor(httpClient, config.UserAgent),
		Embedder:    embedder,
		Items:       itemRepo,
		HTTPClient:  httpClient,
		UserAgent:   config.UserAgent,
		WorkerCount: config.WorkerCount,
		Retention:   time.Duration(config.RetentionDays) * 24 * time.Hour,
		SourceDelay: time.Duration(config.SourceDelay) * time.Millisecond,
	})

	scheduler := tasks.NewScheduler(runner, time.Duration(config.ScrapeInterval)*time.Second)
	scheduler.Start()
	defer scheduler.Stop()

	rk := ranker.New(config.EmbeddingDim)

	// Background work triggered through the API stops with this context.
	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	handler := api.NewHandler(appCtx, itemRepo, userRepo, embedder, rk, runner, scheduler)
	engine := api.NewServer(handler, config.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      engine,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", config.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error, shutting down", "error", err)
	}

	// Stop manually triggered ingestion before closing the server.
	appCancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Scheduler is stopped via defer
	slog.Info("Shutdown complete")
}
