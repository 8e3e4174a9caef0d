package marketdata

import (
	"context"

	"github.com/rs/zerolog"
)

// SyncJob refreshes market data for the current holdings on a schedule.
type SyncJob struct {
	syncer *Synchronizer
	log    zerolog.Logger
}

// NewSyncJob creates a new price refresh job.
func NewSyncJob(syncer *Synchronizer, log zerolog.Logger) *SyncJob {
	return &SyncJob{
		syncer: syncer,
		log:    log.With().Str("job", "price_refresh").Logger(),
	}
}

// Run performs one synchronous cycle over the coins last handed to the
// synchronizer. Fetch failures are absorbed by the cycle.
func (j *SyncJob) Run() error {
	result := j.syncer.Refresh(context.Background())
	j.log.Debug().
		Uint64("seq", result.Seq).
		Int("coins", result.Coins).
		Bool("applied", result.Applied).
		Bool("prices_stale", result.PricesStale).
		Msg("Price refresh finished")
	return nil
}

// Name returns the job name for scheduling and logging.
func (j *SyncJob) Name() string {
	return "price_refresh"
}
