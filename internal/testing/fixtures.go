package testing

import "github.com/aristath/bagz/internal/domain"

// NewCatalogFixtures returns a small catalog, deliberately not sorted by market cap.
func NewCatalogFixtures() []domain.CatalogEntry {
	return []domain.CatalogEntry{
		{ID: "solana", Name: "Solana", Symbol: "sol", MarketCap: 60},
		{ID: "bitcoin", Name: "Bitcoin", Symbol: "btc", MarketCap: 800},
		{ID: "dogecoin", Name: "Dogecoin", Symbol: "doge", MarketCap: 20},
		{ID: "ethereum", Name: "Ethereum", Symbol: "eth", MarketCap: 120},
	}
}

// NewHoldingFixtures returns holdings in a user-chosen order.
func NewHoldingFixtures() []domain.HoldingRef {
	return []domain.HoldingRef{
		{ID: "ethereum", Name: "Ethereum"},
		{ID: "bitcoin", Name: "Bitcoin"},
		{ID: "solana", Name: "Solana"},
	}
}

// FloatPtr returns a pointer to f.
func FloatPtr(f float64) *float64 {
	return &f
}
