package coingecko

import "github.com/aristath/bagz/internal/domain"

// marketRow is one element of the /coins/markets response.
type marketRow struct {
	ID           string   `json:"id"`
	Symbol       string   `json:"symbol"`
	Name         string   `json:"name"`
	CurrentPrice float64  `json:"current_price"`
	MarketCap    float64  `json:"market_cap"`
	Change24h    *float64 `json:"price_change_percentage_24h"`
	Change7d     *float64 `json:"price_change_percentage_7d_in_currency"`
	Change30d    *float64 `json:"price_change_percentage_30d_in_currency"`
}

func (r marketRow) toCatalogEntry() domain.CatalogEntry {
	return domain.CatalogEntry{
		ID:        r.ID,
		Name:      r.Name,
		Symbol:    r.Symbol,
		MarketCap: r.MarketCap,
	}
}

func (r marketRow) toCoinMarket() domain.CoinMarket {
	return domain.CoinMarket{
		ID:           r.ID,
		Name:         r.Name,
		Symbol:       r.Symbol,
		CurrentPrice: r.CurrentPrice,
		MarketCap:    r.MarketCap,
		Pct24h:       r.Change24h,
		Pct7d:        r.Change7d,
		Pct30d:       r.Change30d,
	}
}

// cachedCatalogEntry is the structure stored in the catalog cache
type cachedCatalogEntry struct {
	ID        string  `msgpack:"id"`
	Name      string  `msgpack:"name"`
	Symbol    string  `msgpack:"symbol"`
	MarketCap float64 `msgpack:"market_cap"`
}

// cachedLogo is the structure stored in the logo cache
type cachedLogo struct {
	URL string `msgpack:"url"`
}

// cachedMarket is the structure stored in the price cache
type cachedMarket struct {
	ID           string   `msgpack:"id"`
	Name         string   `msgpack:"name"`
	Symbol       string   `msgpack:"symbol"`
	CurrentPrice float64  `msgpack:"current_price"`
	MarketCap    float64  `msgpack:"market_cap"`
	Pct24h       *float64 `msgpack:"pct_24h"`
	Pct7d        *float64 `msgpack:"pct_7d"`
	Pct30d       *float64 `msgpack:"pct_30d"`
}

func toCachedMarket(m domain.CoinMarket) cachedMarket {
	return cachedMarket{
		ID:           m.ID,
		Name:         m.Name,
		Symbol:       m.Symbol,
		CurrentPrice: m.CurrentPrice,
		MarketCap:    m.MarketCap,
		Pct24h:       m.Pct24h,
		Pct7d:        m.Pct7d,
		Pct30d:       m.Pct30d,
	}
}

func (c cachedMarket) toCoinMarket() domain.CoinMarket {
	return domain.CoinMarket{
		ID:           c.ID,
		Name:         c.Name,
		Symbol:       c.Symbol,
		CurrentPrice: c.CurrentPrice,
		MarketCap:    c.MarketCap,
		Pct24h:       c.Pct24h,
		Pct7d:        c.Pct7d,
		Pct30d:       c.Pct30d,
	}
}
