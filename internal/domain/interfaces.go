package domain

import "context"

// CoinMarket is the subset of a provider market row the tracker consumes.
type CoinMarket struct {
	ID           string
	Name         string
	Symbol       string
	CurrentPrice float64
	MarketCap    float64
	Pct24h       *float64
	Pct7d        *float64
	Pct30d       *float64
}

// CatalogProvider fetches the full coin catalog (one bounded page).
type CatalogProvider interface {
	GetCatalog(ctx context.Context) ([]CatalogEntry, error)
}

// MarketDataProvider fetches live data for a set of held coins.
type MarketDataProvider interface {
	// GetMarkets issues one batched request for all ids. Rows returned alongside
	// an error are still valid; ids without a row are simply unknown.
	GetMarkets(ctx context.Context, ids []string) ([]CoinMarket, error)
	// GetLogo looks up the logo of a single coin.
	GetLogo(ctx context.Context, id string) (LogoRef, error)
}
