// Package main is the entry point for bagz, a personal crypto holdings tracker.
// It serves the ordered portfolio over HTTP, keeps the CoinGecko catalog and
// per-holding market data fresh in the background, and persists the holdings
// in a local SQLite settings database.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/bagz/internal/config"
	"github.com/aristath/bagz/internal/di"
	"github.com/aristath/bagz/internal/scheduler"
	"github.com/aristath/bagz/internal/server"
	"github.com/aristath/bagz/pkg/logger"
)

// main orchestrates startup:
// 1. Loads configuration from environment variables (.env supported)
// 2. Initializes logging
// 3. Wires databases, repositories and services
// 4. Loads the catalog and schedules the first market data cycle
// 5. Starts the scheduler and the HTTP server
// 6. Waits for a shutdown signal and shuts down in reverse order
func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})
	logger.SetGlobalLogger(log)

	log.Info().Str("data_dir", cfg.DataDir).Msg("Starting bagz")

	container, jobs, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	// Catalog failure is not fatal: the picker stays empty until the next scheduled refresh
	startupCtx, cancel := context.WithTimeout(context.Background(), cfg.CoinGecko.Timeout*2)
	if _, err := container.CatalogCache.Refresh(startupCtx); err != nil {
		log.Warn().Err(err).Msg("Initial catalog load failed, will retry on schedule")
	}
	cancel()

	seq := container.Portfolio.Resync()
	log.Info().
		Int("holdings", len(container.Portfolio.Holdings())).
		Uint64("seq", seq).
		Msg("Initial market data sync scheduled")

	sched := scheduler.New(log)
	schedules := map[string]string{
		"catalog_refresh":       cfg.CatalogSchedule,
		"price_refresh":         cfg.PriceSchedule,
		"client_data_cleanup":   cfg.CacheCleanupSchedule,
		"check_wal_checkpoints": "0 */15 * * * *",
		"weekly_maintenance":    cfg.MaintenanceSchedule,
		"r2_backup":             cfg.BackupSchedule,
	}
	for _, job := range jobs.All() {
		schedule, ok := schedules[job.Name()]
		if !ok {
			log.Fatal().Str("job", job.Name()).Msg("No schedule configured for job")
		}
		if err := sched.AddJob(schedule, job); err != nil {
			log.Fatal().Err(err).Str("job", job.Name()).Msg("Failed to register job")
		}
	}
	sched.Start()

	srv := server.New(server.Config{
		Log:       log,
		Config:    cfg,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
		Container: container,
	})
	srv.SetJobs(jobs.All()...)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	sched.Stop()

	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
