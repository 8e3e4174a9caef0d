// Package di provides dependency injection type definitions.
//
// Container holds every long-lived dependency of the application. It is built
// by Wire() and handed to the server and the scheduler.
package di

import (
	"github.com/aristath/bagz/internal/clientdata"
	"github.com/aristath/bagz/internal/clients/coingecko"
	"github.com/aristath/bagz/internal/database"
	"github.com/aristath/bagz/internal/events"
	"github.com/aristath/bagz/internal/modules/catalog"
	"github.com/aristath/bagz/internal/modules/marketdata"
	"github.com/aristath/bagz/internal/modules/portfolio"
	"github.com/aristath/bagz/internal/modules/settings"
	"github.com/aristath/bagz/internal/reliability"
	"github.com/aristath/bagz/internal/scheduler"
)

// Container holds all dependencies for the application
type Container struct {
	// Databases
	ConfigDB     *database.DB // settings, including the persisted holdings
	ClientDataDB *database.DB // CoinGecko response cache

	// Repositories
	SettingsRepo   *settings.Repository
	ClientDataRepo *clientdata.Repository

	// Clients
	CoinGeckoClient *coingecko.Client

	// Services
	EventManager   *events.Manager
	CatalogCache   *catalog.Cache
	Synchronizer   *marketdata.Synchronizer
	PortfolioStore *portfolio.Store
	Portfolio      *portfolio.Controller

	// Reliability; R2BackupService is nil when R2 is not configured
	BackupService   *reliability.BackupService
	R2BackupService *reliability.R2BackupService
}

// Databases returns the open databases keyed by name.
func (c *Container) Databases() map[string]*database.DB {
	dbs := make(map[string]*database.DB, 2)
	if c.ConfigDB != nil {
		dbs[c.ConfigDB.Name()] = c.ConfigDB
	}
	if c.ClientDataDB != nil {
		dbs[c.ClientDataDB.Name()] = c.ClientDataDB
	}
	return dbs
}

// Close stops background synchronization and closes the databases.
func (c *Container) Close() {
	if c.Synchronizer != nil {
		c.Synchronizer.Stop()
	}
	if c.ClientDataDB != nil {
		_ = c.ClientDataDB.Close()
	}
	if c.ConfigDB != nil {
		_ = c.ConfigDB.Close()
	}
}

// JobInstances holds the background jobs so main can schedule and trigger them
type JobInstances struct {
	CatalogRefresh  *catalog.RefreshJob
	PriceRefresh    *marketdata.SyncJob
	ClientDataClean *clientdata.CleanupJob
	WALCheckpoints  *scheduler.CheckWALCheckpointsJob
	Maintenance     *reliability.WeeklyMaintenanceJob
	Backup          *reliability.BackupJob // nil when R2 is not configured
}

// All returns every created job
func (j *JobInstances) All() []scheduler.Job {
	jobs := []scheduler.Job{
		j.CatalogRefresh,
		j.PriceRefresh,
		j.ClientDataClean,
		j.WALCheckpoints,
		j.Maintenance,
	}
	if j.Backup != nil {
		jobs = append(jobs, j.Backup)
	}
	return jobs
}
