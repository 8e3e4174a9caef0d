package portfolio

import (
	"sort"
	"sync"

	"github.com/aristath/bagz/internal/domain"
	"github.com/aristath/bagz/internal/events"
	"github.com/aristath/bagz/internal/observability"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
)

// Controller owns the in-memory holdings sequence. Every mutation is persisted
// through the Store and, when the set of ids changes, schedules a sync cycle.
type Controller struct {
	mu       sync.RWMutex
	holdings []domain.HoldingRef

	store        *Store
	catalog      CatalogLookup
	syncer       Synchronizer
	eventManager *events.Manager
	referenceID  string
	log          zerolog.Logger
}

// NewController loads the persisted holdings and returns a controller over them.
// eventManager may be nil.
func NewController(
	store *Store,
	catalog CatalogLookup,
	syncer Synchronizer,
	eventManager *events.Manager,
	referenceID string,
	log zerolog.Logger,
) *Controller {
	c := &Controller{
		store:        store,
		catalog:      catalog,
		syncer:       syncer,
		eventManager: eventManager,
		referenceID:  referenceID,
		log:          log.With().Str("service", "portfolio").Logger(),
	}
	c.holdings = c.normalize(store.Load())
	observability.SetHoldings(len(c.holdings))
	return c
}

// normalize drops entries without an id and repeated ids, keeping the first occurrence.
func (c *Controller) normalize(loaded []domain.HoldingRef) []domain.HoldingRef {
	seen := make(map[string]struct{}, len(loaded))
	holdings := make([]domain.HoldingRef, 0, len(loaded))
	for _, h := range loaded {
		if h.ID == "" {
			c.log.Warn().Str("name", h.Name).Msg("Dropping stored holding without id")
			continue
		}
		if _, dup := seen[h.ID]; dup {
			c.log.Warn().Str("coin", h.ID).Msg("Dropping duplicate stored holding")
			continue
		}
		seen[h.ID] = struct{}{}
		holdings = append(holdings, h)
	}
	return holdings
}

// AddCoin appends candidate to the portfolio. A nil candidate or an id that is
// already held leaves the portfolio untouched and returns false.
func (c *Controller) AddCoin(candidate *domain.CatalogEntry) bool {
	if candidate == nil || candidate.ID == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.indexOf(candidate.ID) >= 0 {
		return false
	}

	before := c.holdings
	after := make([]domain.HoldingRef, len(before), len(before)+1)
	copy(after, before)
	after = append(after, domain.HoldingRef{ID: candidate.ID, Name: candidate.Name})

	c.commit("add", candidate.ID, before, after)
	return true
}

// AddCoinByID resolves id through the catalog and adds it. Unknown ids are a no-op.
func (c *Controller) AddCoinByID(id string) bool {
	entry, ok := c.catalog.FindByID(id)
	if !ok {
		c.log.Debug().Str("coin", id).Msg("Ignoring add of coin not in catalog")
		return false
	}
	return c.AddCoin(&entry)
}

// RemoveCoin removes id from the portfolio and drops its market data at once.
// Returns false when id is not held.
func (c *Controller) RemoveCoin(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexOf(id)
	if idx < 0 {
		return false
	}

	before := c.holdings
	after := make([]domain.HoldingRef, 0, len(before)-1)
	after = append(after, before[:idx]...)
	after = append(after, before[idx+1:]...)

	c.syncer.Prune(id)
	c.commit("remove", id, before, after)
	return true
}

// ReorderCoin moves fromID into toID's current position; items in between shift by one.
// Returns false when either id is not held or they are equal.
func (c *Controller) ReorderCoin(fromID, toID string) bool {
	if fromID == toID {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	from := c.indexOf(fromID)
	to := c.indexOf(toID)
	if from < 0 || to < 0 {
		return false
	}

	before := c.holdings
	c.commit("reorder", fromID, before, moveItem(before, from, to))
	return true
}

// moveItem returns a copy of s with the element at from moved to index to.
func moveItem(s []domain.HoldingRef, from, to int) []domain.HoldingRef {
	moved := s[from]
	out := make([]domain.HoldingRef, 0, len(s))
	out = append(out, s[:from]...)
	out = append(out, s[from+1:]...)

	out = append(out, domain.HoldingRef{})
	copy(out[to+1:], out[to:])
	out[to] = moved
	return out
}

// commit installs after, persists it and schedules a sync if the id set changed.
// Must be called with c.mu held.
func (c *Controller) commit(action, coinID string, before, after []domain.HoldingRef) {
	c.holdings = after

	if err := c.store.Save(after); err != nil {
		c.log.Error().Err(err).Str("action", action).Msg("Failed to persist portfolio")
		if c.eventManager != nil {
			c.eventManager.EmitError("portfolio", err, action)
		}
	}

	resync := !domain.SameIDSet(before, after)
	if resync {
		c.syncer.Schedule(domain.HoldingIDs(after))
	}

	observability.SetHoldings(len(after))

	c.log.Info().
		Str("action", action).
		Str("coin", coinID).
		Int("holdings", len(after)).
		Bool("resync", resync).
		Msg("Portfolio changed")

	if c.eventManager != nil {
		c.eventManager.EmitTyped("portfolio", &events.PortfolioChangedData{
			Action:   action,
			CoinID:   coinID,
			Holdings: domain.HoldingIDs(after),
			Resync:   resync,
		})
	}
}

func (c *Controller) indexOf(id string) int {
	for i, h := range c.holdings {
		if h.ID == id {
			return i
		}
	}
	return -1
}

// Holdings returns a copy of the current sequence.
func (c *Controller) Holdings() []domain.HoldingRef {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.HoldingRef, len(c.holdings))
	copy(out, c.holdings)
	return out
}

// Resync schedules a sync cycle for the current holdings.
// The lock is held across Schedule so a concurrent removal cannot be undone
// by an older id snapshot.
func (c *Controller) Resync() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.syncer.Schedule(domain.HoldingIDs(c.holdings))
}

// SelectableOptions lists the catalog by market cap, largest first.
func (c *Controller) SelectableOptions() []domain.SelectOption {
	entries := c.catalog.Entries()
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].MarketCap > entries[j].MarketCap
	})

	options := make([]domain.SelectOption, len(entries))
	for i, e := range entries {
		options[i] = domain.SelectOption{ID: e.ID, Label: e.Label()}
	}
	return options
}

// View returns the holdings in order, each with its price snapshot and logo when known.
func (c *Controller) View() View {
	holdings := c.Holdings()
	prices := c.syncer.Prices()
	logos := c.syncer.Logos()

	view := View{
		Holdings: make([]Holding, len(holdings)),
		SyncSeq:  c.syncer.LastAppliedSeq(),
	}

	changes := make([]float64, 0, len(holdings))
	for i, h := range holdings {
		item := Holding{ID: h.ID, Name: h.Name}
		if snap, ok := prices[h.ID]; ok {
			snap := snap
			item.Price = &snap
			if snap.Pct24h != nil {
				changes = append(changes, *snap.Pct24h)
			}
		}
		if logo, ok := logos[h.ID]; ok {
			url := logo.URL
			item.Logo = &url
		}
		view.Holdings[i] = item
	}

	if len(changes) > 0 {
		mean := floats.Sum(changes) / float64(len(changes))
		view.Mean24h = &mean
	}

	if stat, ok := c.catalog.Dominance(c.referenceID); ok {
		view.Reference = &stat
	}

	return view
}
