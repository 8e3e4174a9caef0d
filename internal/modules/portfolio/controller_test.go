package portfolio

import (
	"sync"
	"testing"

	"github.com/aristath/bagz/internal/domain"
	"github.com/aristath/bagz/internal/events"
	testhelpers "github.com/aristath/bagz/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	entries []domain.CatalogEntry
}

func (f *fakeCatalog) FindByID(id string) (domain.CatalogEntry, bool) {
	for _, e := range f.entries {
		if e.ID == id {
			return e, true
		}
	}
	return domain.CatalogEntry{}, false
}

func (f *fakeCatalog) Entries() []domain.CatalogEntry {
	return append([]domain.CatalogEntry(nil), f.entries...)
}

func (f *fakeCatalog) Dominance(referenceID string) (domain.AggregateStat, bool) {
	var total float64
	for _, e := range f.entries {
		total += e.MarketCap
	}
	ref, ok := f.FindByID(referenceID)
	if !ok || total == 0 {
		return domain.AggregateStat{}, false
	}
	return domain.AggregateStat{ReferenceID: ref.ID, MarketCap: ref.MarketCap, Dominance: ref.MarketCap / total}, true
}

type fakeSyncer struct {
	mu        sync.Mutex
	scheduled [][]string
	pruned    []string
	prices    map[string]domain.PriceSnapshot
	logos     map[string]domain.LogoRef
}

func newFakeSyncer() *fakeSyncer {
	return &fakeSyncer{
		prices: make(map[string]domain.PriceSnapshot),
		logos:  make(map[string]domain.LogoRef),
	}
}

func (f *fakeSyncer) Schedule(ids []string) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled = append(f.scheduled, ids)
	return uint64(len(f.scheduled))
}

func (f *fakeSyncer) Prune(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pruned = append(f.pruned, id)
	delete(f.prices, id)
	delete(f.logos, id)
}

func (f *fakeSyncer) Prices() map[string]domain.PriceSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]domain.PriceSnapshot, len(f.prices))
	for k, v := range f.prices {
		out[k] = v
	}
	return out
}

func (f *fakeSyncer) Logos() map[string]domain.LogoRef {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]domain.LogoRef, len(f.logos))
	for k, v := range f.logos {
		out[k] = v
	}
	return out
}

func (f *fakeSyncer) LastAppliedSeq() uint64 { return 0 }

func (f *fakeSyncer) scheduleCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.scheduled)
}

type controllerFixture struct {
	controller *Controller
	store      *Store
	syncer     *fakeSyncer
	catalog    *fakeCatalog
}

func newControllerFixture(t *testing.T, initial []domain.HoldingRef) controllerFixture {
	t.Helper()
	store, _ := newTestStore(t)
	if initial != nil {
		require.NoError(t, store.Save(initial))
	}

	catalog := &fakeCatalog{entries: testhelpers.NewCatalogFixtures()}
	syncer := newFakeSyncer()
	controller := NewController(store, catalog, syncer, events.NewManager(zerolog.Nop()), "bitcoin", zerolog.Nop())

	return controllerFixture{controller: controller, store: store, syncer: syncer, catalog: catalog}
}

func refs(ids ...string) []domain.HoldingRef {
	out := make([]domain.HoldingRef, len(ids))
	for i, id := range ids {
		out[i] = domain.HoldingRef{ID: id, Name: id}
	}
	return out
}

func TestController_AddCoin(t *testing.T) {
	f := newControllerFixture(t, nil)

	ok := f.controller.AddCoin(&domain.CatalogEntry{ID: "bitcoin", Name: "Bitcoin", Symbol: "btc"})
	require.True(t, ok)

	assert.Equal(t, []domain.HoldingRef{{ID: "bitcoin", Name: "Bitcoin"}}, f.controller.Holdings())
	assert.Equal(t, f.controller.Holdings(), f.store.Load())
	require.Equal(t, 1, f.syncer.scheduleCount())
	assert.Equal(t, []string{"bitcoin"}, f.syncer.scheduled[0])
}

func TestController_AddCoinUniqueness(t *testing.T) {
	f := newControllerFixture(t, nil)
	btc := &domain.CatalogEntry{ID: "bitcoin", Name: "Bitcoin"}

	assert.True(t, f.controller.AddCoin(btc))
	assert.False(t, f.controller.AddCoin(btc))
	assert.False(t, f.controller.AddCoin(nil))

	assert.Len(t, f.controller.Holdings(), 1)
	assert.Equal(t, 1, f.syncer.scheduleCount())
}

func TestController_AddCoinByID(t *testing.T) {
	f := newControllerFixture(t, nil)

	assert.True(t, f.controller.AddCoinByID("ethereum"))
	assert.False(t, f.controller.AddCoinByID("not-listed"))

	assert.Equal(t, []domain.HoldingRef{{ID: "ethereum", Name: "Ethereum"}}, f.controller.Holdings())
}

func TestController_RemoveCoin(t *testing.T) {
	f := newControllerFixture(t, refs("a", "b", "c"))
	f.syncer.prices["b"] = domain.PriceSnapshot{Name: "b", CurrentPrice: 1}
	f.syncer.logos["b"] = domain.LogoRef{URL: "b.png"}

	require.True(t, f.controller.RemoveCoin("b"))

	assert.Equal(t, refs("a", "c"), f.controller.Holdings())
	assert.Equal(t, refs("a", "c"), f.store.Load())
	assert.Equal(t, []string{"b"}, f.syncer.pruned)
	require.Equal(t, 1, f.syncer.scheduleCount())
	assert.Equal(t, []string{"a", "c"}, f.syncer.scheduled[0])

	view := f.controller.View()
	for _, h := range view.Holdings {
		assert.NotEqual(t, "b", h.ID)
	}
}

func TestController_RemoveCoinNotHeld(t *testing.T) {
	f := newControllerFixture(t, refs("a"))

	assert.False(t, f.controller.RemoveCoin("zzz"))
	assert.Equal(t, refs("a"), f.controller.Holdings())
	assert.Empty(t, f.syncer.pruned)
	assert.Equal(t, 0, f.syncer.scheduleCount())
}

func TestController_ReorderCoin(t *testing.T) {
	f := newControllerFixture(t, refs("w", "a", "y", "b", "z"))

	require.True(t, f.controller.ReorderCoin("a", "b"))

	assert.Equal(t, refs("w", "y", "b", "a", "z"), f.controller.Holdings())
	assert.Equal(t, refs("w", "y", "b", "a", "z"), f.store.Load())
	assert.Equal(t, 0, f.syncer.scheduleCount(), "reorder must not schedule a sync")
}

func TestController_ReorderCoinUpward(t *testing.T) {
	f := newControllerFixture(t, refs("w", "a", "y", "b", "z"))

	require.True(t, f.controller.ReorderCoin("z", "w"))
	assert.Equal(t, refs("z", "w", "a", "y", "b"), f.controller.Holdings())

	require.True(t, f.controller.ReorderCoin("z", "b"))
	assert.Equal(t, refs("w", "a", "y", "b", "z"), f.controller.Holdings())
}

func TestController_ReorderNoOps(t *testing.T) {
	f := newControllerFixture(t, refs("a", "b"))

	assert.False(t, f.controller.ReorderCoin("a", "a"))
	assert.False(t, f.controller.ReorderCoin("a", "missing"))
	assert.False(t, f.controller.ReorderCoin("missing", "b"))
	assert.Equal(t, refs("a", "b"), f.controller.Holdings())
}

func TestController_LoadNormalizesStoredHoldings(t *testing.T) {
	stored := []domain.HoldingRef{
		{ID: "a", Name: "A"},
		{ID: "", Name: "nameless"},
		{ID: "a", Name: "A again"},
		{ID: "b", Name: "B"},
	}
	f := newControllerFixture(t, stored)

	assert.Equal(t, []domain.HoldingRef{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}}, f.controller.Holdings())
}

func TestController_SelectableOptions(t *testing.T) {
	f := newControllerFixture(t, nil)

	options := f.controller.SelectableOptions()
	require.Len(t, options, 4)
	assert.Equal(t, domain.SelectOption{ID: "bitcoin", Label: "Bitcoin (BTC)"}, options[0])
	assert.Equal(t, "ethereum", options[1].ID)
	assert.Equal(t, "solana", options[2].ID)
	assert.Equal(t, "Dogecoin (DOGE)", options[3].Label)
}

func TestController_Resync(t *testing.T) {
	f := newControllerFixture(t, refs("a", "b"))

	f.controller.Resync()
	require.Equal(t, 1, f.syncer.scheduleCount())
	assert.Equal(t, []string{"a", "b"}, f.syncer.scheduled[0])
}

func TestController_View(t *testing.T) {
	f := newControllerFixture(t, refs("bitcoin", "ethereum", "solana"))
	f.syncer.prices["bitcoin"] = domain.PriceSnapshot{Name: "Bitcoin", CurrentPrice: 50000, Pct24h: testhelpers.FloatPtr(2)}
	f.syncer.prices["ethereum"] = domain.PriceSnapshot{Name: "Ethereum", CurrentPrice: 3000, Pct24h: testhelpers.FloatPtr(-1)}
	f.syncer.logos["bitcoin"] = domain.LogoRef{URL: "btc.png"}

	view := f.controller.View()

	require.Len(t, view.Holdings, 3)
	assert.Equal(t, "bitcoin", view.Holdings[0].ID)
	require.NotNil(t, view.Holdings[0].Price)
	assert.Equal(t, float64(50000), view.Holdings[0].Price.CurrentPrice)
	require.NotNil(t, view.Holdings[0].Logo)
	assert.Equal(t, "btc.png", *view.Holdings[0].Logo)

	assert.Nil(t, view.Holdings[1].Logo)
	assert.Nil(t, view.Holdings[2].Price, "holdings without data are still listed")

	require.NotNil(t, view.Mean24h)
	assert.InDelta(t, 0.5, *view.Mean24h, 1e-9)

	require.NotNil(t, view.Reference)
	assert.Equal(t, "bitcoin", view.Reference.ReferenceID)
	assert.InDelta(t, 0.8, view.Reference.Dominance, 1e-9)
}

func TestController_ViewWithoutReference(t *testing.T) {
	f := newControllerFixture(t, nil)
	f.catalog.entries = []domain.CatalogEntry{{ID: "x", MarketCap: 10}}

	view := f.controller.View()
	assert.Empty(t, view.Holdings)
	assert.Nil(t, view.Reference)
	assert.Nil(t, view.Mean24h)
}

func TestController_EmitsPortfolioChanged(t *testing.T) {
	store, _ := newTestStore(t)
	manager := events.NewManager(zerolog.Nop())

	var got []*events.PortfolioChangedData
	manager.Subscribe(events.PortfolioChanged, func(e events.EventWithData) {
		got = append(got, e.Data.(*events.PortfolioChangedData))
	})

	controller := NewController(store, &fakeCatalog{entries: testhelpers.NewCatalogFixtures()}, newFakeSyncer(), manager, "bitcoin", zerolog.Nop())
	controller.AddCoinByID("bitcoin")
	controller.AddCoinByID("solana")
	controller.ReorderCoin("solana", "bitcoin")

	require.Len(t, got, 3)
	assert.Equal(t, "add", got[0].Action)
	assert.True(t, got[0].Resync)
	assert.Equal(t, "reorder", got[2].Action)
	assert.False(t, got[2].Resync)
	assert.Equal(t, []string{"solana", "bitcoin"}, got[2].Holdings)
}

func TestMoveItem(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
		expected []domain.HoldingRef
	}{
		{"down", 1, 3, refs("w", "y", "b", "a", "z")},
		{"up", 3, 1, refs("w", "b", "a", "y", "z")},
		{"to end", 0, 4, refs("a", "y", "b", "z", "w")},
		{"to start", 4, 0, refs("z", "w", "a", "y", "b")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := refs("w", "a", "y", "b", "z")
			assert.Equal(t, tt.expected, moveItem(src, tt.from, tt.to))
			assert.Equal(t, refs("w", "a", "y", "b", "z"), src, "source must not be mutated")
		})
	}
}
