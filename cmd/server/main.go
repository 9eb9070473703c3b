package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"infinite-experiment/fmsuplink/internal/api"
	"infinite-experiment/fmsuplink/internal/config"
	"infinite-experiment/fmsuplink/internal/jobs"
	"infinite-experiment/fmsuplink/internal/logging"
	"infinite-experiment/fmsuplink/internal/metrics"
	"infinite-experiment/fmsuplink/internal/routes"
	"infinite-experiment/fmsuplink/internal/workers"
)

// @title FMS Uplink API
// @version 1.0
// @description Rebuilds flight management routes from operational flight plans.
// @host localhost:8080
// @BasePath /
func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	configPath := os.Getenv("FMSUPLINK_CONFIG")
	if configPath == "" {
		configPath = "fmsuplink.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	if err := logging.InitWithFile(cfg.AppEnv, logging.FileOptions{
		Path:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	}); err != nil {
		log.Fatalf("❌ Failed to initialize logger: %v", err)
	}
	defer logging.Close()

	logging.Info("fmsuplink starting up",
		"environment", cfg.AppEnv,
		"config", configPath,
		"timestamp", time.Now().Format(time.RFC3339),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricsReg := metrics.NewMetricsRegistry()

	deps, err := api.InitDependencies(ctx, cfg, metricsReg)
	if err != nil {
		logging.Fatal("Failed to initialize dependencies", "error", err)
	}
	defer deps.Close()

	upSince := time.Now()
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           routes.RegisterRoutes(deps, upSince),
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		logging.Info("Server starting", "port", cfg.Server.Port, "environment", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	eg.Go(func() error {
		<-egCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		logging.Info("Shutting down server")
		return srv.Shutdown(shutdownCtx)
	})

	var pruner jobs.HistoryPruner
	if deps.Repo.History != nil {
		pruner = deps.Repo.History
	}
	jobs.InitializeJobs(egCtx, pruner, cfg.History.Retention)

	if cfg.Worker.Enabled && deps.Services.Queue != nil {
		container := workers.InitWorkers(egCtx, cfg.Worker, deps.Services.Queue, deps.Services.Uplink, deps.Services.Jobs, metricsReg)
		eg.Go(func() error {
			container.Wait()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		logging.Error("Server stopped with error", "error", err)
		return
	}
	logging.Info("Server stopped")
}
