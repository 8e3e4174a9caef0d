package portfolio

import (
	"errors"
	"testing"

	"github.com/aristath/bagz/internal/domain"
	"github.com/aristath/bagz/internal/modules/settings"
	testhelpers "github.com/aristath/bagz/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *settings.Repository) {
	t.Helper()
	db, cleanup := testhelpers.NewTestDB(t, "config")
	t.Cleanup(cleanup)

	repo := settings.NewRepository(db.Conn(), zerolog.Nop())
	return NewStore(repo, zerolog.Nop()), repo
}

func TestStore_LoadEmpty(t *testing.T) {
	store, _ := newTestStore(t)

	holdings := store.Load()
	assert.NotNil(t, holdings)
	assert.Empty(t, holdings)
}

func TestStore_RoundTrip(t *testing.T) {
	store, repo := newTestStore(t)

	want := testhelpers.NewHoldingFixtures()
	require.NoError(t, store.Save(want))
	assert.Equal(t, want, store.Load())

	raw, err := repo.Get(settings.PortfolioKey)
	require.NoError(t, err)
	require.NotNil(t, raw)
	assert.JSONEq(t, `[{"id":"ethereum","name":"Ethereum"},{"id":"bitcoin","name":"Bitcoin"},{"id":"solana","name":"Solana"}]`, *raw)
}

func TestStore_SaveEmptyWritesEmptyList(t *testing.T) {
	store, repo := newTestStore(t)

	require.NoError(t, store.Save(nil))

	raw, err := repo.Get(settings.PortfolioKey)
	require.NoError(t, err)
	assert.Equal(t, "[]", *raw)
	assert.Empty(t, store.Load())
}

func TestStore_LoadCorruptSlot(t *testing.T) {
	store, repo := newTestStore(t)

	for _, value := range []string{"{not json", `{"id":"bitcoin"}`, `"bitcoin"`} {
		require.NoError(t, repo.Set(settings.PortfolioKey, value, nil))
		assert.Empty(t, store.Load(), "value %q", value)
	}

	// The corrupt record stays until the next save overwrites it
	raw, err := repo.Get(settings.PortfolioKey)
	require.NoError(t, err)
	assert.Equal(t, `"bitcoin"`, *raw)

	require.NoError(t, store.Save([]domain.HoldingRef{{ID: "bitcoin", Name: "Bitcoin"}}))
	assert.Len(t, store.Load(), 1)
}

type failingSlot struct{}

func (failingSlot) Get(string) (*string, error)       { return nil, errors.New("disk gone") }
func (failingSlot) Set(string, string, *string) error { return errors.New("disk gone") }

func TestStore_SlotErrors(t *testing.T) {
	store := NewStore(failingSlot{}, zerolog.Nop())

	assert.Empty(t, store.Load())
	err := store.Save([]domain.HoldingRef{{ID: "bitcoin"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save portfolio")
}
