// Package marketdata keeps live price and logo data for the coins currently held.
package marketdata

import (
	"context"
	"sync"
	"time"

	"github.com/aristath/bagz/internal/domain"
	"github.com/aristath/bagz/internal/events"
	"github.com/aristath/bagz/internal/observability"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// CycleResult describes one finished sync cycle.
type CycleResult struct {
	CycleID string
	Seq     uint64
	Coins   int
	// Applied is false when a newer cycle had already been applied.
	Applied bool
	Prices  int
	Logos   int
	// PricesStale is set when the price fetch failed and last-known-good prices were kept.
	PricesStale  bool
	LogoFailures []string
	Duration     time.Duration
}

// Synchronizer fetches market data for a set of coin ids and owns the resulting
// price and logo maps. Every cycle gets a sequence number; a cycle's results are
// applied only if no newer cycle has been applied, and only for ids that are still
// in the most recently requested set.
//
// The id set is owned by the caller of Schedule and Sync. Refresh only re-fetches
// the set last handed over, so periodic refreshes never widen it.
type Synchronizer struct {
	mu         sync.RWMutex
	prices     map[string]domain.PriceSnapshot
	logos      map[string]domain.LogoRef
	scope      map[string]struct{}
	scopeIDs   []string
	nextSeq    uint64
	appliedSeq uint64
	lastSync   time.Time

	provider     domain.MarketDataProvider
	sem          *semaphore.Weighted
	eventManager *events.Manager
	log          zerolog.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	lifeMu  sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

// NewSynchronizer creates a synchronizer. logoConcurrency bounds concurrent logo
// lookups across all cycles. eventManager may be nil.
func NewSynchronizer(provider domain.MarketDataProvider, logoConcurrency int, eventManager *events.Manager, log zerolog.Logger) *Synchronizer {
	if logoConcurrency <= 0 {
		logoConcurrency = 1
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Synchronizer{
		prices:       make(map[string]domain.PriceSnapshot),
		logos:        make(map[string]domain.LogoRef),
		scope:        make(map[string]struct{}),
		provider:     provider,
		sem:          semaphore.NewWeighted(int64(logoConcurrency)),
		eventManager: eventManager,
		log:          log.With().Str("service", "marketdata").Logger(),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Schedule starts a cycle for ids in the background and returns its sequence number.
// Returns 0 once the synchronizer is stopped.
func (s *Synchronizer) Schedule(ids []string) uint64 {
	if !s.enter() {
		return 0
	}

	ids = append([]string(nil), ids...)
	seq := s.begin(ids)

	go func() {
		defer s.wg.Done()
		s.run(s.ctx, seq, ids)
	}()

	return seq
}

// Sync runs one cycle for ids and returns when it has settled.
// Once the synchronizer is stopped it returns a zero result without fetching.
func (s *Synchronizer) Sync(ctx context.Context, ids []string) CycleResult {
	if !s.enter() {
		return CycleResult{}
	}
	defer s.wg.Done()

	ids = append([]string(nil), ids...)
	seq := s.begin(ids)

	ctx, cancel := s.bind(ctx)
	defer cancel()
	return s.run(ctx, seq, ids)
}

// Refresh runs one cycle for the current scope and returns when it has settled.
func (s *Synchronizer) Refresh(ctx context.Context) CycleResult {
	if !s.enter() {
		return CycleResult{}
	}
	defer s.wg.Done()

	s.mu.Lock()
	s.nextSeq++
	seq := s.nextSeq
	ids := append([]string(nil), s.scopeIDs...)
	s.mu.Unlock()

	ctx, cancel := s.bind(ctx)
	defer cancel()
	return s.run(ctx, seq, ids)
}

// enter registers a cycle with the wait group unless Stop has been called.
func (s *Synchronizer) enter() bool {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()

	if s.stopped {
		return false
	}
	s.wg.Add(1)
	return true
}

// bind derives a context that is also cancelled by Stop.
func (s *Synchronizer) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// begin assigns the next sequence number and makes ids the current scope.
func (s *Synchronizer) begin(ids []string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSeq++
	scope := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		scope[id] = struct{}{}
	}
	s.scope = scope
	s.scopeIDs = ids
	return s.nextSeq
}

func (s *Synchronizer) run(ctx context.Context, seq uint64, ids []string) CycleResult {
	start := time.Now()
	result := CycleResult{CycleID: uuid.NewString(), Seq: seq, Coins: len(ids)}
	log := s.log.With().Str("cycle_id", result.CycleID).Uint64("seq", seq).Logger()

	if len(ids) == 0 {
		result.Applied = s.apply(seq, nil, nil, nil)
		result.Duration = time.Since(start)
		outcome := "empty"
		if !result.Applied {
			outcome = "discarded"
		}
		s.finish(log, result, outcome)
		return result
	}

	var (
		markets  []domain.CoinMarket
		priceErr error
		wg       sync.WaitGroup
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		markets, priceErr = s.provider.GetMarkets(ctx, ids)
	}()

	logos, failed := s.fetchLogos(ctx, ids)
	wg.Wait()

	if priceErr != nil {
		observability.RecordFetchError("prices")
		log.Warn().
			Err(priceErr).
			Int("coins", len(ids)).
			Int("received", len(markets)).
			Msg("Price fetch failed, keeping last known prices")
		if s.eventManager != nil {
			s.eventManager.EmitError("marketdata", priceErr, "fetch_prices")
		}
	}
	for _, id := range failed {
		observability.RecordFetchError("logo")
		log.Debug().Str("coin", id).Msg("Logo lookup failed")
	}
	if len(failed) > 0 {
		log.Warn().Strs("coins", failed).Msg("Some logo lookups failed")
	}

	prices := make(map[string]domain.PriceSnapshot, len(markets))
	for _, m := range markets {
		prices[m.ID] = toSnapshot(m)
	}

	result.Applied = s.apply(seq, ids, prices, logos)
	result.PricesStale = priceErr != nil
	result.LogoFailures = failed
	result.Duration = time.Since(start)

	outcome := "applied"
	if !result.Applied {
		outcome = "discarded"
	}
	if result.Applied {
		s.mu.RLock()
		result.Prices = len(s.prices)
		result.Logos = len(s.logos)
		s.mu.RUnlock()
	}
	s.finish(log, result, outcome)
	return result
}

// fetchLogos looks up every id concurrently, bounded by the semaphore.
// Failed ids are returned separately and left out of the map.
func (s *Synchronizer) fetchLogos(ctx context.Context, ids []string) (map[string]domain.LogoRef, []string) {
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		logos  = make(map[string]domain.LogoRef, len(ids))
		failed []string
	)

	for _, id := range ids {
		if err := s.sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			failed = append(failed, id)
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			defer s.sem.Release(1)

			logo, err := s.provider.GetLogo(ctx, id)

			mu.Lock()
			defer mu.Unlock()
			if err != nil || logo.URL == "" {
				failed = append(failed, id)
				return
			}
			logos[id] = logo
		}(id)
	}

	wg.Wait()
	return logos, failed
}

// apply installs a cycle's results if it is newer than the last applied cycle.
// Requested ids the cycle got no price for keep their previous price.
func (s *Synchronizer) apply(seq uint64, ids []string, prices map[string]domain.PriceSnapshot, logos map[string]domain.LogoRef) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq <= s.appliedSeq {
		return false
	}
	s.appliedSeq = seq
	s.lastSync = time.Now()

	nextPrices := make(map[string]domain.PriceSnapshot, len(ids))
	nextLogos := make(map[string]domain.LogoRef, len(logos))
	for _, id := range ids {
		if _, ok := s.scope[id]; !ok {
			continue
		}
		if p, ok := prices[id]; ok {
			nextPrices[id] = p
		} else if p, ok := s.prices[id]; ok {
			nextPrices[id] = p
		}
		if l, ok := logos[id]; ok {
			nextLogos[id] = l
		}
	}

	s.prices = nextPrices
	s.logos = nextLogos
	return true
}

func (s *Synchronizer) finish(log zerolog.Logger, result CycleResult, outcome string) {
	observability.RecordSyncCycle(outcome, result.Duration.Seconds())

	if !result.Applied {
		s.mu.RLock()
		applied := s.appliedSeq
		s.mu.RUnlock()

		log.Debug().Uint64("applied_seq", applied).Msg("Discarding results of superseded sync cycle")
		if s.eventManager != nil {
			s.eventManager.EmitTyped("marketdata", &events.SyncDiscardedData{
				CycleID:    result.CycleID,
				Seq:        result.Seq,
				AppliedSeq: applied,
			})
		}
		return
	}

	log.Info().
		Int("prices", result.Prices).
		Int("logos", result.Logos).
		Bool("prices_stale", result.PricesStale).
		Dur("duration", result.Duration).
		Msg("Sync cycle applied")

	if s.eventManager != nil {
		s.eventManager.EmitTyped("marketdata", &events.SyncCompletedData{
			CycleID:     result.CycleID,
			Seq:         result.Seq,
			Coins:       result.Coins,
			Prices:      result.Prices,
			Logos:       result.Logos,
			PricesStale: result.PricesStale,
			Duration:    result.Duration.Seconds(),
		})
	}
}

// Prune drops id from the maps and from the current scope so that cycles
// still in flight cannot bring it back.
func (s *Synchronizer) Prune(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.prices, id)
	delete(s.logos, id)
	delete(s.scope, id)

	ids := make([]string, 0, len(s.scopeIDs))
	for _, scoped := range s.scopeIDs {
		if scoped != id {
			ids = append(ids, scoped)
		}
	}
	s.scopeIDs = ids
}

// Prices returns a copy of the price map.
func (s *Synchronizer) Prices() map[string]domain.PriceSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]domain.PriceSnapshot, len(s.prices))
	for id, p := range s.prices {
		out[id] = p
	}
	return out
}

// Logos returns a copy of the logo map.
func (s *Synchronizer) Logos() map[string]domain.LogoRef {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]domain.LogoRef, len(s.logos))
	for id, l := range s.logos {
		out[id] = l
	}
	return out
}

// Snapshot returns the price snapshot for id.
func (s *Synchronizer) Snapshot(id string) (domain.PriceSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prices[id]
	return p, ok
}

// Logo returns the logo for id.
func (s *Synchronizer) Logo(id string) (domain.LogoRef, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.logos[id]
	return l, ok
}

// LastAppliedSeq returns the sequence number of the last applied cycle.
func (s *Synchronizer) LastAppliedSeq() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.appliedSeq
}

// LastSync returns when a cycle was last applied (zero if never).
func (s *Synchronizer) LastSync() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSync
}

// Stop cancels in-flight cycles and waits for them to settle.
func (s *Synchronizer) Stop() {
	s.lifeMu.Lock()
	s.stopped = true
	s.lifeMu.Unlock()

	s.cancel()
	s.wg.Wait()
}

func toSnapshot(m domain.CoinMarket) domain.PriceSnapshot {
	return domain.PriceSnapshot{
		Name:         m.Name,
		Symbol:       m.Symbol,
		CurrentPrice: m.CurrentPrice,
		Pct24h:       m.Pct24h,
		Pct7d:        m.Pct7d,
		Pct30d:       m.Pct30d,
	}
}
