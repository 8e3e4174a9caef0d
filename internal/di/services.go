package di

import (
	"context"
	"fmt"

	"github.com/aristath/bagz/internal/clientdata"
	"github.com/aristath/bagz/internal/clients/coingecko"
	"github.com/aristath/bagz/internal/config"
	"github.com/aristath/bagz/internal/events"
	"github.com/aristath/bagz/internal/modules/catalog"
	"github.com/aristath/bagz/internal/modules/marketdata"
	"github.com/aristath/bagz/internal/modules/portfolio"
	"github.com/aristath/bagz/internal/modules/settings"
	"github.com/aristath/bagz/internal/reliability"
	"github.com/rs/zerolog"
)

// InitializeServices builds repositories, the CoinGecko client and the portfolio services.
// The holdings are loaded from config.db here; no network call is made.
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil || container.ConfigDB == nil || container.ClientDataDB == nil {
		return fmt.Errorf("databases must be initialized first")
	}

	container.SettingsRepo = settings.NewRepository(container.ConfigDB.Conn(), log)
	container.ClientDataRepo = clientdata.NewRepository(container.ClientDataDB.Conn())

	container.CoinGeckoClient = coingecko.NewClient(cfg.CoinGecko, container.ClientDataRepo, log)

	container.EventManager = events.NewManager(log)
	container.CatalogCache = catalog.NewCache(container.CoinGeckoClient, container.EventManager, log)
	container.Synchronizer = marketdata.NewSynchronizer(
		container.CoinGeckoClient,
		cfg.LogoConcurrency,
		container.EventManager,
		log,
	)

	container.PortfolioStore = portfolio.NewStore(container.SettingsRepo, log)
	container.Portfolio = portfolio.NewController(
		container.PortfolioStore,
		container.CatalogCache,
		container.Synchronizer,
		container.EventManager,
		cfg.ReferenceCoin,
		log,
	)

	container.BackupService = reliability.NewBackupService(container.Databases(), log)
	if cfg.R2.Enabled() {
		r2Client, err := reliability.NewR2Client(context.Background(), cfg.R2, log)
		if err != nil {
			return fmt.Errorf("failed to create r2 client: %w", err)
		}
		container.R2BackupService = reliability.NewR2BackupService(r2Client, container.BackupService, cfg.DataDir, log)
	} else {
		log.Info().Msg("R2 credentials not configured, off-site backups disabled")
	}

	log.Info().
		Int("holdings", len(container.Portfolio.Holdings())).
		Msg("Services initialized")

	return nil
}
