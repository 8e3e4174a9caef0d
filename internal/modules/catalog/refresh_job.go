package catalog

import (
	"context"

	"github.com/rs/zerolog"
)

// RefreshJob reloads the catalog on a schedule.
type RefreshJob struct {
	cache *Cache
	log   zerolog.Logger
}

// NewRefreshJob creates a new catalog refresh job.
func NewRefreshJob(cache *Cache, log zerolog.Logger) *RefreshJob {
	return &RefreshJob{
		cache: cache,
		log:   log.With().Str("job", "catalog_refresh").Logger(),
	}
}

// Run refreshes the catalog. A failed refresh keeps the previous catalog.
func (j *RefreshJob) Run() error {
	_, err := j.cache.Refresh(context.Background())
	return err
}

// Name returns the job name for scheduling and logging.
func (j *RefreshJob) Name() string {
	return "catalog_refresh"
}
