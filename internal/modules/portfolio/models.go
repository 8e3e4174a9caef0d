package portfolio

import "github.com/aristath/bagz/internal/domain"

// Holding is a held coin enriched with whatever market data is currently known.
type Holding struct {
	ID    string                `json:"id"`
	Name  string                `json:"name"`
	Price *domain.PriceSnapshot `json:"price"`
	Logo  *string               `json:"logo"`
}

// View is the read model rendered by the presentation layer.
type View struct {
	Holdings  []Holding             `json:"holdings"`
	Reference *domain.AggregateStat `json:"reference"`
	// Mean24h is the average 24h change over holdings that have one.
	Mean24h *float64 `json:"mean_24h"`
	SyncSeq uint64   `json:"sync_seq"`
}

// CatalogLookup is the part of the market catalog the controller reads.
type CatalogLookup interface {
	FindByID(id string) (domain.CatalogEntry, bool)
	Entries() []domain.CatalogEntry
	Dominance(referenceID string) (domain.AggregateStat, bool)
}

// Synchronizer is the part of the market data synchronizer the controller drives.
type Synchronizer interface {
	Schedule(ids []string) uint64
	Prune(id string)
	Prices() map[string]domain.PriceSnapshot
	Logos() map[string]domain.LogoRef
	LastAppliedSeq() uint64
}
