package testing

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/aristath/bagz/internal/domain"
)

// ErrMockUnavailable is returned by mocks configured to fail.
var ErrMockUnavailable = errors.New("mock provider unavailable")

// MockMarketDataProvider is a mock implementation of domain.MarketDataProvider
type MockMarketDataProvider struct {
	mu          sync.Mutex
	markets     map[string]domain.CoinMarket
	logos       map[string]string
	failMarkets bool
	partial     bool
	failLogos   map[string]bool

	// gate, when set, blocks GetMarkets until it is closed or receives
	gate chan struct{}

	marketCalls [][]string
	logoCalls   []string
}

// NewMockMarketDataProvider creates a new mock market data provider
func NewMockMarketDataProvider() *MockMarketDataProvider {
	return &MockMarketDataProvider{
		markets:   make(map[string]domain.CoinMarket),
		logos:     make(map[string]string),
		failLogos: make(map[string]bool),
	}
}

// SetMarket sets the market row returned for id
func (m *MockMarketDataProvider) SetMarket(market domain.CoinMarket) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markets[market.ID] = market
}

// SetLogo sets the logo url returned for id
func (m *MockMarketDataProvider) SetLogo(id, url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logos[id] = url
}

// SetGate makes subsequent GetMarkets calls block on gate (nil to stop blocking)
func (m *MockMarketDataProvider) SetGate(gate chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gate = gate
}

// RemoveMarket stops GetMarkets from returning a row for id
func (m *MockMarketDataProvider) RemoveMarket(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.markets, id)
}

// PartialMarkets makes GetMarkets return its rows together with an error
func (m *MockMarketDataProvider) PartialMarkets(partial bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.partial = partial
}

// FailMarkets makes GetMarkets fail (or succeed again)
func (m *MockMarketDataProvider) FailMarkets(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failMarkets = fail
}

// FailLogo makes GetLogo fail for id
func (m *MockMarketDataProvider) FailLogo(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failLogos[id] = true
}

// GetMarkets returns the configured rows for ids
func (m *MockMarketDataProvider) GetMarkets(ctx context.Context, ids []string) ([]domain.CoinMarket, error) {
	m.mu.Lock()
	gate := m.gate
	m.marketCalls = append(m.marketCalls, append([]string(nil), ids...))
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failMarkets {
		return nil, ErrMockUnavailable
	}

	result := make([]domain.CoinMarket, 0, len(ids))
	for _, id := range ids {
		if market, ok := m.markets[id]; ok {
			result = append(result, market)
		}
	}
	if m.partial {
		return result, ErrMockUnavailable
	}
	return result, nil
}

// GetLogo returns the configured logo for id
func (m *MockMarketDataProvider) GetLogo(ctx context.Context, id string) (domain.LogoRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logoCalls = append(m.logoCalls, id)

	if m.failLogos[id] {
		return domain.LogoRef{}, ErrMockUnavailable
	}
	url, ok := m.logos[id]
	if !ok {
		return domain.LogoRef{}, ErrMockUnavailable
	}
	return domain.LogoRef{URL: url}, nil
}

// MarketCalls returns the id sets GetMarkets was called with
func (m *MockMarketDataProvider) MarketCalls() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]string(nil), m.marketCalls...)
}

// LogoCalls returns the ids GetLogo was called with, sorted
func (m *MockMarketDataProvider) LogoCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := append([]string(nil), m.logoCalls...)
	sort.Strings(calls)
	return calls
}

// RequestCount returns the total number of provider calls
func (m *MockMarketDataProvider) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.marketCalls) + len(m.logoCalls)
}

// MockCatalogProvider is a mock implementation of domain.CatalogProvider
type MockCatalogProvider struct {
	mu      sync.Mutex
	entries []domain.CatalogEntry
	err     error
	calls   int
}

// NewMockCatalogProvider creates a new mock catalog provider
func NewMockCatalogProvider(entries []domain.CatalogEntry) *MockCatalogProvider {
	return &MockCatalogProvider{entries: entries}
}

// SetEntries replaces the catalog returned by GetCatalog
func (m *MockCatalogProvider) SetEntries(entries []domain.CatalogEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = entries
}

// SetError makes GetCatalog fail with err (nil to succeed again)
func (m *MockCatalogProvider) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// GetCatalog returns the configured catalog
func (m *MockCatalogProvider) GetCatalog(ctx context.Context) ([]domain.CatalogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return append([]domain.CatalogEntry(nil), m.entries...), nil
}

// Calls returns the number of GetCatalog calls
func (m *MockCatalogProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
