// Package targets owns the durable symbol -> target price mapping.
//
// The mapping is independent of quote data and survives watchlist rebuilds.
// Read failures degrade to an empty mapping; write failures are returned to
// the caller as PERSISTENCE_FAILED for it to log, never to act on.
package targets

import (
	"context"
	"sort"
	"sync"

	"github.com/newthinker/radar/internal/core"
	"github.com/newthinker/radar/internal/storage/prefs"
	"go.uber.org/zap"
)

// Store caches the persisted mapping in memory after the first load.
type Store struct {
	prefs  prefs.Preferences
	logger *zap.Logger

	mu      sync.Mutex
	loaded  bool
	targets map[string]float64

	// saveMu orders writes; each Save carries the mapping as of its turn.
	saveMu sync.Mutex
}

// New creates a store backed by p.
func New(p prefs.Preferences, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{prefs: p, logger: logger}
}

// ensureLoaded must be called with mu held.
func (s *Store) ensureLoaded(ctx context.Context) {
	if s.loaded {
		return
	}
	s.loaded = true
	s.targets = make(map[string]float64)

	stored, err := s.prefs.Load(ctx)
	if err != nil {
		s.logger.Warn("target prices unavailable, starting empty", zap.Error(err))
		return
	}
	for sym, price := range stored {
		norm, err := core.NormalizeSymbol(sym)
		if err != nil || price < 0 {
			s.logger.Warn("skipping stored target price",
				zap.String("symbol", sym),
				zap.Float64("price", price),
			)
			continue
		}
		s.targets[norm] = price
	}
}

// Get returns the stored target for symbol.
func (s *Store) Get(ctx context.Context, symbol string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded(ctx)

	v, ok := s.targets[symbol]
	return v, ok
}

// All returns a copy of the whole mapping.
func (s *Store) All(ctx context.Context) map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded(ctx)

	out := make(map[string]float64, len(s.targets))
	for k, v := range s.targets {
		out[k] = v
	}
	return out
}

// Symbols returns the stored symbols in ascending order.
func (s *Store) Symbols(ctx context.Context) []string {
	all := s.All(ctx)
	out := make([]string, 0, len(all))
	for sym := range all {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Set stores price for symbol, or deletes it when price is nil. The in-memory
// mapping changes even when persisting fails.
func (s *Store) Set(ctx context.Context, symbol string, price *float64) error {
	s.mu.Lock()
	s.ensureLoaded(ctx)

	if price == nil {
		delete(s.targets, symbol)
	} else {
		s.targets[symbol] = *price
	}
	s.mu.Unlock()

	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if err := s.prefs.Save(ctx, s.All(ctx)); err != nil {
		return core.WrapError(core.ErrPersistenceFailed, err)
	}
	return nil
}
