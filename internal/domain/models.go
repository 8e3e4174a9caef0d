// Package domain provides core domain models and types.
package domain

import (
	"fmt"
	"strings"
)

// CatalogEntry is one coin known to the market-data provider.
// Entries are immutable once fetched and replaced wholesale on catalog reload.
type CatalogEntry struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Symbol    string  `json:"symbol"`
	MarketCap float64 `json:"market_cap"`
}

// Label formats the entry the way the coin picker shows it: "Bitcoin (BTC)".
func (e CatalogEntry) Label() string {
	return fmt.Sprintf("%s (%s)", e.Name, strings.ToUpper(e.Symbol))
}

// HoldingRef is the durable reference to a held coin.
// IDs are unique within a portfolio; the order of the sequence is user-controlled.
type HoldingRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PriceSnapshot is the live market data for one held coin.
// Percent changes are nil when the provider has no value for the window.
type PriceSnapshot struct {
	Name         string   `json:"name"`
	Symbol       string   `json:"symbol"`
	CurrentPrice float64  `json:"current_price"`
	Pct24h       *float64 `json:"pct_24h"`
	Pct7d        *float64 `json:"pct_7d"`
	Pct30d       *float64 `json:"pct_30d"`
}

// LogoRef points at a coin's logo image.
type LogoRef struct {
	URL string `json:"url"`
}

// AggregateStat is the reference asset's market cap and its share of total catalog market cap.
type AggregateStat struct {
	ReferenceID string  `json:"reference_id"`
	MarketCap   float64 `json:"market_cap"`
	Dominance   float64 `json:"dominance"`
}

// SelectOption is one entry of the coin picker.
type SelectOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// HoldingIDs returns the ids of holdings in sequence order.
func HoldingIDs(holdings []HoldingRef) []string {
	ids := make([]string, len(holdings))
	for i, h := range holdings {
		ids[i] = h.ID
	}
	return ids
}

// SameIDSet reports whether a and b hold the same set of ids, ignoring order.
func SameIDSet(a, b []HoldingRef) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, h := range a {
		set[h.ID] = struct{}{}
	}
	for _, h := range b {
		if _, ok := set[h.ID]; !ok {
			return false
		}
	}
	return true
}
