package di

import (
	"github.com/aristath/bagz/internal/clientdata"
	"github.com/aristath/bagz/internal/config"
	"github.com/aristath/bagz/internal/modules/catalog"
	"github.com/aristath/bagz/internal/modules/marketdata"
	"github.com/aristath/bagz/internal/reliability"
	"github.com/aristath/bagz/internal/scheduler"
	"github.com/rs/zerolog"
)

// RegisterJobs creates the background jobs. Scheduling them is left to the caller.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) *JobInstances {
	jobs := &JobInstances{
		CatalogRefresh:  catalog.NewRefreshJob(container.CatalogCache, log),
		PriceRefresh:    marketdata.NewSyncJob(container.Synchronizer, log),
		ClientDataClean: clientdata.NewCleanupJob(container.ClientDataRepo, container.ClientDataDB, log),
		WALCheckpoints:  scheduler.NewCheckWALCheckpointsJob(container.Databases(), log),
		Maintenance:     reliability.NewWeeklyMaintenanceJob(container.Databases(), log),
	}
	if container.R2BackupService != nil {
		jobs.Backup = reliability.NewBackupJob(container.R2BackupService, cfg.BackupRetentionDays, log)
	}
	return jobs
}
