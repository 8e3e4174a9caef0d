// Package catalog holds the provider's coin list in memory, replaced wholesale on each refresh.
package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aristath/bagz/internal/domain"
	"github.com/aristath/bagz/internal/events"
	"github.com/aristath/bagz/internal/observability"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
)

// Cache is the market catalog. Readers always see a complete catalog:
// either the last successful refresh or nothing.
type Cache struct {
	mu             sync.RWMutex
	entries        []domain.CatalogEntry
	byID           map[string]int
	totalMarketCap float64
	refreshedAt    time.Time
	version        uint64

	provider     domain.CatalogProvider
	eventManager *events.Manager
	log          zerolog.Logger
}

// NewCache creates an empty catalog. eventManager may be nil.
func NewCache(provider domain.CatalogProvider, eventManager *events.Manager, log zerolog.Logger) *Cache {
	return &Cache{
		byID:         make(map[string]int),
		provider:     provider,
		eventManager: eventManager,
		log:          log.With().Str("service", "catalog").Logger(),
	}
}

// Refresh fetches the catalog and replaces the current one.
// On failure the current catalog is left untouched and the error is returned.
func (c *Cache) Refresh(ctx context.Context) ([]domain.CatalogEntry, error) {
	fetched, err := c.provider.GetCatalog(ctx)
	if err == nil && len(fetched) == 0 {
		err = fmt.Errorf("provider returned an empty catalog")
	}
	if err != nil {
		observability.RecordCatalogRefresh("error", 0)
		c.log.Warn().Err(err).Msg("Catalog unavailable, keeping previous catalog")
		if c.eventManager != nil {
			c.eventManager.EmitError("catalog", err, "refresh")
		}
		return nil, fmt.Errorf("failed to refresh catalog: %w", err)
	}

	entries := make([]domain.CatalogEntry, 0, len(fetched))
	byID := make(map[string]int, len(fetched))
	caps := make([]float64, 0, len(fetched))
	for _, e := range fetched {
		if e.ID == "" {
			continue
		}
		if _, dup := byID[e.ID]; dup {
			continue
		}
		byID[e.ID] = len(entries)
		entries = append(entries, e)
		caps = append(caps, e.MarketCap)
	}
	total := floats.Sum(caps)

	c.mu.Lock()
	c.entries = entries
	c.byID = byID
	c.totalMarketCap = total
	c.refreshedAt = time.Now()
	c.version++
	version := c.version
	c.mu.Unlock()

	observability.RecordCatalogRefresh("ok", len(entries))
	c.log.Info().
		Int("entries", len(entries)).
		Float64("total_market_cap", total).
		Uint64("version", version).
		Msg("Catalog refreshed")

	if c.eventManager != nil {
		c.eventManager.EmitTyped("catalog", &events.CatalogRefreshedData{
			Entries:        len(entries),
			TotalMarketCap: total,
			Version:        version,
		})
	}

	return c.Entries(), nil
}

// FindByID returns the entry with the given id.
func (c *Cache) FindByID(id string) (domain.CatalogEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	idx, ok := c.byID[id]
	if !ok {
		return domain.CatalogEntry{}, false
	}
	return c.entries[idx], true
}

// Dominance returns the reference coin's market cap and its share of the catalog total.
// It is withheld when the reference is not in the catalog or the total is zero.
func (c *Cache) Dominance(referenceID string) (domain.AggregateStat, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	idx, ok := c.byID[referenceID]
	if !ok || c.totalMarketCap <= 0 {
		return domain.AggregateStat{}, false
	}

	ref := c.entries[idx]
	return domain.AggregateStat{
		ReferenceID: ref.ID,
		MarketCap:   ref.MarketCap,
		Dominance:   ref.MarketCap / c.totalMarketCap,
	}, true
}

// Entries returns a copy of the catalog in provider order.
func (c *Cache) Entries() []domain.CatalogEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.CatalogEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len returns the number of catalog entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// RefreshedAt returns the time of the last successful refresh (zero if none).
func (c *Cache) RefreshedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refreshedAt
}

// Version counts successful refreshes.
func (c *Cache) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}
