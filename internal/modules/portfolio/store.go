// Package portfolio provides the user's ordered coin holdings: the durable store and the controller
// that mutates it and drives market data synchronization.
package portfolio

import (
	"encoding/json"
	"fmt"

	"github.com/aristath/bagz/internal/domain"
	"github.com/aristath/bagz/internal/modules/settings"
	"github.com/rs/zerolog"
)

// Slot is the single key-value slot the store persists into.
type Slot interface {
	Get(key string) (*string, error)
	Set(key string, value string, description *string) error
}

// Store persists the ordered holdings sequence as one JSON value.
type Store struct {
	slot Slot
	key  string
	log  zerolog.Logger
}

// NewStore creates a store writing to the settings key "your_bags".
func NewStore(slot Slot, log zerolog.Logger) *Store {
	return &Store{
		slot: slot,
		key:  settings.PortfolioKey,
		log:  log.With().Str("repository", "portfolio_store").Logger(),
	}
}

// Load returns the persisted sequence. A missing, unreadable or malformed slot
// yields an empty sequence; the problem is logged and never returned.
func (s *Store) Load() []domain.HoldingRef {
	raw, err := s.slot.Get(s.key)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to read portfolio, starting empty")
		return []domain.HoldingRef{}
	}
	if raw == nil || *raw == "" {
		return []domain.HoldingRef{}
	}

	var holdings []domain.HoldingRef
	if err := json.Unmarshal([]byte(*raw), &holdings); err != nil {
		s.log.Warn().Err(err).Msg("Stored portfolio is malformed, starting empty")
		return []domain.HoldingRef{}
	}
	if holdings == nil {
		holdings = []domain.HoldingRef{}
	}
	return holdings
}

// Save overwrites the slot with holdings. No validation or dedup is done here.
func (s *Store) Save(holdings []domain.HoldingRef) error {
	if holdings == nil {
		holdings = []domain.HoldingRef{}
	}

	data, err := json.Marshal(holdings)
	if err != nil {
		return fmt.Errorf("failed to encode portfolio: %w", err)
	}

	if err := s.slot.Set(s.key, string(data), settings.DescriptionFor(s.key)); err != nil {
		return fmt.Errorf("failed to save portfolio: %w", err)
	}
	return nil
}
