package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/aristath/bagz/internal/domain"
	"github.com/aristath/bagz/internal/events"
	testhelpers "github.com/aristath/bagz/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_EmptyBeforeRefresh(t *testing.T) {
	cache := NewCache(testhelpers.NewMockCatalogProvider(nil), nil, zerolog.Nop())

	assert.Empty(t, cache.Entries())
	assert.Equal(t, uint64(0), cache.Version())
	assert.True(t, cache.RefreshedAt().IsZero())

	_, ok := cache.FindByID("bitcoin")
	assert.False(t, ok)
	_, ok = cache.Dominance("bitcoin")
	assert.False(t, ok)
}

func TestCache_Refresh(t *testing.T) {
	cache := NewCache(testhelpers.NewMockCatalogProvider(testhelpers.NewCatalogFixtures()), nil, zerolog.Nop())

	entries, err := cache.Refresh(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 4)
	assert.Equal(t, 4, cache.Len())
	assert.Equal(t, uint64(1), cache.Version())
	assert.False(t, cache.RefreshedAt().IsZero())

	entry, ok := cache.FindByID("ethereum")
	require.True(t, ok)
	assert.Equal(t, "Ethereum", entry.Name)
}

func TestCache_Dominance(t *testing.T) {
	provider := testhelpers.NewMockCatalogProvider([]domain.CatalogEntry{
		{ID: "bitcoin", Name: "Bitcoin", Symbol: "btc", MarketCap: 800},
		{ID: "x", Name: "X", Symbol: "x", MarketCap: 200},
	})
	cache := NewCache(provider, nil, zerolog.Nop())
	_, err := cache.Refresh(context.Background())
	require.NoError(t, err)

	stat, ok := cache.Dominance("bitcoin")
	require.True(t, ok)
	assert.Equal(t, "bitcoin", stat.ReferenceID)
	assert.Equal(t, float64(800), stat.MarketCap)
	assert.InDelta(t, 0.8, stat.Dominance, 1e-12)

	_, ok = cache.Dominance("ethereum")
	assert.False(t, ok, "absent reference is withheld, not zero")
}

func TestCache_DominanceZeroTotal(t *testing.T) {
	provider := testhelpers.NewMockCatalogProvider([]domain.CatalogEntry{{ID: "bitcoin", MarketCap: 0}})
	cache := NewCache(provider, nil, zerolog.Nop())
	_, err := cache.Refresh(context.Background())
	require.NoError(t, err)

	_, ok := cache.Dominance("bitcoin")
	assert.False(t, ok)
}

func TestCache_RefreshFailureKeepsPrevious(t *testing.T) {
	provider := testhelpers.NewMockCatalogProvider(testhelpers.NewCatalogFixtures())
	cache := NewCache(provider, nil, zerolog.Nop())
	_, err := cache.Refresh(context.Background())
	require.NoError(t, err)

	provider.SetError(errors.New("rate limited"))
	_, err = cache.Refresh(context.Background())
	require.Error(t, err)

	assert.Equal(t, 4, cache.Len())
	assert.Equal(t, uint64(1), cache.Version())
	stat, ok := cache.Dominance("bitcoin")
	require.True(t, ok)
	assert.InDelta(t, 0.8, stat.Dominance, 1e-12)

	provider.SetError(nil)
	provider.SetEntries(nil)
	_, err = cache.Refresh(context.Background())
	require.Error(t, err, "an empty catalog is treated as unavailable")
	assert.Equal(t, 4, cache.Len())
}

func TestCache_RefreshReplacesWholesale(t *testing.T) {
	provider := testhelpers.NewMockCatalogProvider(testhelpers.NewCatalogFixtures())
	cache := NewCache(provider, nil, zerolog.Nop())
	_, err := cache.Refresh(context.Background())
	require.NoError(t, err)

	provider.SetEntries([]domain.CatalogEntry{
		{ID: "bitcoin", Name: "Bitcoin", MarketCap: 500},
		{ID: "bitcoin", Name: "Duplicate", MarketCap: 1},
		{ID: "", Name: "No id", MarketCap: 1},
		{ID: "cardano", Name: "Cardano", MarketCap: 500},
	})
	_, err = cache.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, cache.Len())
	_, ok := cache.FindByID("ethereum")
	assert.False(t, ok)

	stat, ok := cache.Dominance("bitcoin")
	require.True(t, ok)
	assert.InDelta(t, 0.5, stat.Dominance, 1e-12)
}

func TestCache_EntriesIsCopy(t *testing.T) {
	cache := NewCache(testhelpers.NewMockCatalogProvider(testhelpers.NewCatalogFixtures()), nil, zerolog.Nop())
	_, err := cache.Refresh(context.Background())
	require.NoError(t, err)

	entries := cache.Entries()
	entries[0].Name = "mutated"

	entry, _ := cache.FindByID(entries[0].ID)
	assert.NotEqual(t, "mutated", entry.Name)
}

func TestCache_EmitsRefreshed(t *testing.T) {
	manager := events.NewManager(zerolog.Nop())
	var got *events.CatalogRefreshedData
	manager.Subscribe(events.CatalogRefreshed, func(e events.EventWithData) {
		got = e.Data.(*events.CatalogRefreshedData)
	})

	cache := NewCache(testhelpers.NewMockCatalogProvider(testhelpers.NewCatalogFixtures()), manager, zerolog.Nop())
	_, err := cache.Refresh(context.Background())
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, 4, got.Entries)
	assert.Equal(t, float64(1000), got.TotalMarketCap)
}

func TestRefreshJob(t *testing.T) {
	provider := testhelpers.NewMockCatalogProvider(testhelpers.NewCatalogFixtures())
	cache := NewCache(provider, nil, zerolog.Nop())
	job := NewRefreshJob(cache, zerolog.Nop())

	assert.Equal(t, "catalog_refresh", job.Name())
	require.NoError(t, job.Run())
	assert.Equal(t, 1, provider.Calls())

	provider.SetError(errors.New("down"))
	assert.Error(t, job.Run())
}
