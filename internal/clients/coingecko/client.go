// Package coingecko provides the CoinGecko v3 market-data client with persistent caching.
package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/aristath/bagz/internal/clientdata"
	"github.com/aristath/bagz/internal/config"
	"github.com/aristath/bagz/internal/domain"
	"github.com/aristath/bagz/internal/observability"
	"github.com/rs/zerolog"
)

const (
	// maxIDsPerRequest is the largest ids list /coins/markets answers in one page.
	maxIDsPerRequest = 250

	logoPath = "$.image.small"
)

// Client for the CoinGecko v3 API
type Client struct {
	baseURL    string
	apiKey     string
	vsCurrency string
	pageSize   int
	client     *http.Client
	log        zerolog.Logger
	cacheRepo  *clientdata.Repository
}

// NewClient creates a new CoinGecko client
// cacheRepo is optional - if nil, caching is disabled
func NewClient(cfg config.CoinGeckoConfig, cacheRepo *clientdata.Repository, log zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	vs := cfg.VsCurrency
	if vs == "" {
		vs = "usd"
	}
	pageSize := cfg.CatalogPageSize
	if pageSize <= 0 {
		pageSize = 500
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		vsCurrency: vs,
		pageSize:   pageSize,
		client:     &http.Client{Timeout: timeout},
		log:        log.With().Str("client", "coingecko").Logger(),
		cacheRepo:  cacheRepo,
	}
}

// GetCatalog fetches one page of coins ordered by market cap.
// Served from cache while fresh; if the API fails, stale cached data is returned when available.
func (c *Client) GetCatalog(ctx context.Context) ([]domain.CatalogEntry, error) {
	cacheKey := c.vsCurrency + ":" + strconv.Itoa(c.pageSize)

	var cached []cachedCatalogEntry
	if c.cacheRepo != nil {
		found, err := c.cacheRepo.GetIfFresh(clientdata.TableCatalog, cacheKey, &cached)
		if err == nil && found && len(cached) > 0 {
			c.log.Debug().Int("entries", len(cached)).Msg("Catalog cache hit")
			return fromCachedCatalog(cached), nil
		}
	}

	params := url.Values{}
	params.Set("vs_currency", c.vsCurrency)
	params.Set("order", "market_cap_desc")
	params.Set("per_page", strconv.Itoa(c.pageSize))
	params.Set("page", "1")

	var rows []marketRow
	if err := c.getJSON(ctx, "catalog", "/coins/markets", params, &rows); err != nil {
		if stale, ok := c.staleCatalog(cacheKey); ok {
			c.log.Warn().
				Err(err).
				Int("entries", len(stale)).
				Msg("API failed, using stale cached catalog")
			return stale, nil
		}
		return nil, fmt.Errorf("failed to fetch catalog: %w", err)
	}

	entries := make([]domain.CatalogEntry, 0, len(rows))
	for _, row := range rows {
		if row.ID == "" {
			continue
		}
		entries = append(entries, row.toCatalogEntry())
	}

	if len(entries) == 0 {
		if stale, ok := c.staleCatalog(cacheKey); ok {
			c.log.Warn().Msg("API returned empty catalog, using stale cached catalog")
			return stale, nil
		}
		return nil, fmt.Errorf("catalog response contained no coins")
	}

	if c.cacheRepo != nil {
		if err := c.cacheRepo.Store(clientdata.TableCatalog, cacheKey, toCachedCatalog(entries), clientdata.TTLCatalog); err != nil {
			c.log.Warn().Err(err).Msg("Failed to cache catalog")
		}
	}

	c.log.Info().Int("entries", len(entries)).Msg("Fetched catalog")
	return entries, nil
}

// GetMarkets fetches price and percent change data for ids.
// Lists larger than one provider page are split; a single page is one request.
// A failed page falls back to stale cached rows for its ids. When any page fails
// the rows gathered so far are returned together with the error.
func (c *Client) GetMarkets(ctx context.Context, ids []string) ([]domain.CoinMarket, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var (
		markets  = make([]domain.CoinMarket, 0, len(ids))
		failed   int
		firstErr error
	)
	for start := 0; start < len(ids); start += maxIDsPerRequest {
		end := start + maxIDsPerRequest
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]

		params := url.Values{}
		params.Set("vs_currency", c.vsCurrency)
		params.Set("ids", strings.Join(batch, ","))
		params.Set("price_change_percentage", "24h,7d,30d")
		params.Set("per_page", strconv.Itoa(maxIDsPerRequest))

		var rows []marketRow
		if err := c.getJSON(ctx, "markets", "/coins/markets", params, &rows); err != nil {
			stale := c.staleMarkets(batch)
			c.log.Warn().
				Err(err).
				Int("requested", len(batch)).
				Int("cached", len(stale)).
				Msg("API failed, using stale cached prices")
			markets = append(markets, stale...)
			failed += len(batch)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		for _, row := range rows {
			market := row.toCoinMarket()
			markets = append(markets, market)
			if c.cacheRepo != nil {
				if err := c.cacheRepo.Store(clientdata.TablePrices, market.ID, toCachedMarket(market), clientdata.TTLPrice); err != nil {
					c.log.Warn().Err(err).Str("coin", market.ID).Msg("Failed to cache price")
				}
			}
		}
	}

	if firstErr != nil {
		return markets, fmt.Errorf("failed to fetch markets for %d of %d coins: %w", failed, len(ids), firstErr)
	}

	c.log.Debug().Int("requested", len(ids)).Int("received", len(markets)).Msg("Fetched markets")
	return markets, nil
}

// GetLogo looks up the small logo url of a coin.
// Logos are cached for a week; a failed lookup falls back to a stale cached url.
func (c *Client) GetLogo(ctx context.Context, id string) (domain.LogoRef, error) {
	if c.cacheRepo != nil {
		var cached cachedLogo
		found, err := c.cacheRepo.GetIfFresh(clientdata.TableLogos, id, &cached)
		if err == nil && found && cached.URL != "" {
			return domain.LogoRef{URL: cached.URL}, nil
		}
	}

	logoURL, err := c.fetchLogo(ctx, id)
	if err != nil {
		if stale, ok := c.staleLogo(id); ok {
			c.log.Warn().Err(err).Str("coin", id).Msg("API failed, using stale cached logo")
			return stale, nil
		}
		return domain.LogoRef{}, err
	}

	if c.cacheRepo != nil {
		if err := c.cacheRepo.Store(clientdata.TableLogos, id, cachedLogo{URL: logoURL}, clientdata.TTLLogo); err != nil {
			c.log.Warn().Err(err).Str("coin", id).Msg("Failed to cache logo")
		}
	}

	return domain.LogoRef{URL: logoURL}, nil
}

func (c *Client) fetchLogo(ctx context.Context, id string) (string, error) {
	params := url.Values{}
	params.Set("localization", "false")
	params.Set("tickers", "false")
	params.Set("market_data", "false")
	params.Set("community_data", "false")
	params.Set("developer_data", "false")

	var jobj any
	if err := c.getJSON(ctx, "coin", "/coins/"+url.PathEscape(id), params, &jobj); err != nil {
		return "", fmt.Errorf("failed to fetch coin %s: %w", id, err)
	}

	jval, err := jsonpath.Get(logoPath, jobj)
	if err != nil {
		return "", fmt.Errorf("no logo for %s at %s: %w", id, logoPath, err)
	}
	if jlist, ok := jval.([]any); ok && len(jlist) > 0 {
		jval = jlist[0]
	}

	logoURL, ok := jval.(string)
	if !ok || logoURL == "" {
		return "", fmt.Errorf("no logo for %s: %v is not a url", id, jval)
	}
	return logoURL, nil
}

// getJSON performs a GET request and decodes the JSON body into out.
func (c *Client) getJSON(ctx context.Context, endpoint, path string, params url.Values, out interface{}) (err error) {
	start := time.Now()
	defer func() {
		observability.RecordProviderRequest(endpoint, time.Since(start).Seconds(), err)
	}()

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	c.log.Debug().Str("endpoint", endpoint).Str("url", reqURL).Msg("Requesting")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (c *Client) staleCatalog(cacheKey string) ([]domain.CatalogEntry, bool) {
	if c.cacheRepo == nil {
		return nil, false
	}

	var cached []cachedCatalogEntry
	found, err := c.cacheRepo.Get(clientdata.TableCatalog, cacheKey, &cached)
	if err != nil || !found || len(cached) == 0 {
		return nil, false
	}
	return fromCachedCatalog(cached), true
}

func (c *Client) staleMarkets(ids []string) []domain.CoinMarket {
	if c.cacheRepo == nil {
		return nil
	}

	var markets []domain.CoinMarket
	for _, id := range ids {
		var cached cachedMarket
		found, err := c.cacheRepo.Get(clientdata.TablePrices, id, &cached)
		if err != nil || !found {
			continue
		}
		markets = append(markets, cached.toCoinMarket())
	}
	return markets
}

func (c *Client) staleLogo(id string) (domain.LogoRef, bool) {
	if c.cacheRepo == nil {
		return domain.LogoRef{}, false
	}

	var cached cachedLogo
	found, err := c.cacheRepo.Get(clientdata.TableLogos, id, &cached)
	if err != nil || !found || cached.URL == "" {
		return domain.LogoRef{}, false
	}
	return domain.LogoRef{URL: cached.URL}, true
}

func toCachedCatalog(entries []domain.CatalogEntry) []cachedCatalogEntry {
	cached := make([]cachedCatalogEntry, len(entries))
	for i, e := range entries {
		cached[i] = cachedCatalogEntry{ID: e.ID, Name: e.Name, Symbol: e.Symbol, MarketCap: e.MarketCap}
	}
	return cached
}

func fromCachedCatalog(cached []cachedCatalogEntry) []domain.CatalogEntry {
	entries := make([]domain.CatalogEntry, len(cached))
	for i, e := range cached {
		entries[i] = domain.CatalogEntry{ID: e.ID, Name: e.Name, Symbol: e.Symbol, MarketCap: e.MarketCap}
	}
	return entries
}
