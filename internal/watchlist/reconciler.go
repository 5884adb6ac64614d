// Package watchlist reconciles fetched quotes with the tracked symbol list.
//
// The list is copy-on-write: every mutation builds a new slice and publishes it
// under the write lock, so readers never observe a partially applied update.
// Quote fetch failures never leave the Reconciler; they degrade the affected
// entry to its last known state and are reported through LastError.
package watchlist

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/newthinker/radar/internal/clock"
	"github.com/newthinker/radar/internal/collector"
	"github.com/newthinker/radar/internal/core"
	"github.com/newthinker/radar/internal/metrics"
	"github.com/newthinker/radar/internal/quotecache"
	"github.com/newthinker/radar/internal/sorting"
	"github.com/newthinker/radar/internal/targets"
	"github.com/newthinker/radar/internal/valuation"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DefaultConcurrency bounds parallel fetches during a full refresh.
const DefaultConcurrency = 8

// Config controls reconciler behavior.
type Config struct {
	Baseline     []BaselineItem
	Concurrency  int
	Dedupe       bool // share one in-flight fetch per symbol
	FetchTimeout time.Duration
	SortMode     sorting.Mode
	DefaultSort  sorting.Config
}

// Reconciler owns the watchlist.
type Reconciler struct {
	cfg     Config
	source  collector.QuoteSource
	cache   *quotecache.Cache
	targets *targets.Store
	clock   clock.Clock
	logger  *zap.Logger
	metrics *metrics.Registry
	flights singleflight.Group

	mu      sync.RWMutex
	entries []core.WatchEntry
	sortCfg sorting.Config
	lastErr error

	loading atomic.Int32
}

// New creates a reconciler with an empty list. Call InitializeList to load
// the baseline.
func New(cfg Config, source collector.QuoteSource, cache *quotecache.Cache, store *targets.Store, clk clock.Clock, logger *zap.Logger) *Reconciler {
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = quotecache.New(clk, 0)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.SortMode == "" {
		cfg.SortMode = sorting.ModeToggle
	}
	if cfg.DefaultSort.Field == "" {
		cfg.DefaultSort = sorting.DefaultConfig()
	}
	return &Reconciler{
		cfg:     cfg,
		source:  source,
		cache:   cache,
		targets: store,
		clock:   clk,
		logger:  logger,
		sortCfg: cfg.DefaultSort,
	}
}

// SetMetrics enables metrics recording.
func (r *Reconciler) SetMetrics(m *metrics.Registry) {
	r.metrics = m
}

// InitializeList builds the list from the baseline and stored targets, then
// fills quotes from the cache or, for stale symbols, a concurrent fetch.
func (r *Reconciler) InitializeList(ctx context.Context) {
	r.beginLoad()
	defer r.endLoad()
	start := time.Now()

	r.mu.RLock()
	before := make(map[string]bool, len(r.entries))
	for _, e := range r.entries {
		before[e.Symbol] = true
	}
	r.mu.RUnlock()

	stored := r.targets.All(ctx)
	seen := make(map[string]bool)
	var list []core.WatchEntry

	for _, item := range r.cfg.Baseline {
		sym, err := core.NormalizeSymbol(item.Symbol)
		if err != nil {
			r.logger.Warn("skipping baseline symbol", zap.String("symbol", item.Symbol), zap.Error(err))
			continue
		}
		if seen[sym] {
			continue
		}
		seen[sym] = true

		target := item.Target
		if v, ok := stored[sym]; ok {
			target = &v
		}
		e := core.NewPlaceholder(sym, target)
		if item.Name != "" {
			e.Name = item.Name
		}
		list = append(list, e)
	}
	for _, sym := range r.targets.Symbols(ctx) {
		if seen[sym] {
			continue
		}
		seen[sym] = true
		v := stored[sym]
		list = append(list, core.NewPlaceholder(sym, &v))
	}

	var stale []string
	for i := range list {
		if q, ok := r.cachedQuote(list[i].Symbol); ok {
			list[i] = r.merge(list[i], q)
			continue
		}
		stale = append(stale, list[i].Symbol)
	}

	quotes := r.fetchAll(ctx, stale)
	for i := range list {
		if q, ok := quotes[list[i].Symbol]; ok {
			list[i] = r.merge(list[i], q)
		}
	}

	// Edits made while fetching are already in r.entries and win over the
	// snapshot. A symbol removed meanwhile stays removed.
	r.mu.Lock()
	current := r.copyEntries()
	merged := make([]core.WatchEntry, 0, len(list)+len(current))
	inList := make(map[string]bool, len(list))
	for _, e := range list {
		inList[e.Symbol] = true
		i := indexOf(current, e.Symbol)
		if i < 0 && before[e.Symbol] {
			continue
		}
		if i >= 0 {
			c := current[i]
			if q, ok := quotes[e.Symbol]; ok {
				c = r.merge(c, q)
			}
			e = c
		}
		merged = append(merged, e)
	}
	for _, c := range current {
		if !inList[c.Symbol] {
			merged = append(merged, c)
		}
	}
	r.publish(merged)
	r.mu.Unlock()

	r.metrics.RecordRefresh("init", time.Since(start).Seconds())
	r.logger.Info("watchlist initialized",
		zap.Int("symbols", len(list)),
		zap.Int("fetched", len(quotes)),
		zap.Int("stale", len(stale)-len(quotes)),
	)
}

// AddSymbol tracks symbol with an optional target. An existing symbol keeps its
// target unless it has none. A failed fetch for a new symbol still adds a
// placeholder so the symbol is not lost.
func (r *Reconciler) AddSymbol(ctx context.Context, symbol, targetInput string) (core.WatchEntry, error) {
	sym, err := core.NormalizeSymbol(symbol)
	if err != nil {
		return core.WatchEntry{}, err
	}
	target, err := ParseTarget(targetInput)
	if err != nil {
		return core.WatchEntry{}, err
	}

	r.beginLoad()
	defer r.endLoad()

	q, fetchErr := r.quote(ctx, sym)
	if fetchErr != nil {
		r.recordFailure(sym, fetchErr)
	}

	r.mu.Lock()
	list := r.copyEntries()
	var entry core.WatchEntry
	if i := indexOf(list, sym); i >= 0 {
		entry = list[i].Clone()
		if entry.TargetPrice == nil || *entry.TargetPrice == 0 {
			entry.TargetPrice = core.CopyPrice(target)
		}
		if fetchErr == nil {
			entry = r.merge(entry, q)
		}
		list[i] = entry
	} else {
		entry = core.NewPlaceholder(sym, target)
		if fetchErr == nil {
			entry = r.merge(entry, q)
		}
		list = append(list, entry)
	}
	r.publish(list)
	r.mu.Unlock()

	r.persist(ctx, sym, entry.TargetPrice)
	r.logger.Info("symbol added", zap.String("symbol", sym), zap.Bool("quoted", fetchErr == nil))
	return entry.Clone(), nil
}

// RefreshOne re-fetches an existing symbol. A failed fetch leaves the entry
// unchanged and is reported through LastError, not returned.
func (r *Reconciler) RefreshOne(ctx context.Context, symbol string) error {
	sym, err := core.NormalizeSymbol(symbol)
	if err != nil {
		return err
	}
	if _, ok := r.Get(sym); !ok {
		return core.WrapError(core.ErrSymbolNotFound, fmt.Errorf("%s is not in the watchlist", sym))
	}

	r.beginLoad()
	defer r.endLoad()
	start := time.Now()
	defer func() { r.metrics.RecordRefresh("one", time.Since(start).Seconds()) }()

	q, err := r.fetch(ctx, sym)
	if err != nil {
		r.recordFailure(sym, err)
		return nil
	}
	r.clearError()

	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.copyEntries()
	// The symbol may have been removed while fetching
	if i := indexOf(list, sym); i >= 0 {
		list[i] = r.merge(list[i], q)
		r.publish(list)
	}
	return nil
}

// RefreshAll re-fetches every symbol concurrently and publishes once the whole
// batch has finished. Failed symbols keep their last known entry.
func (r *Reconciler) RefreshAll(ctx context.Context) {
	r.beginLoad()
	defer r.endLoad()
	start := time.Now()

	r.mu.RLock()
	symbols := make([]string, len(r.entries))
	for i, e := range r.entries {
		symbols[i] = e.Symbol
	}
	r.mu.RUnlock()

	quotes := r.fetchAll(ctx, symbols)
	if len(quotes) == len(symbols) {
		r.clearError()
	}

	r.mu.Lock()
	list := r.copyEntries()
	for i := range list {
		if q, ok := quotes[list[i].Symbol]; ok {
			list[i] = r.merge(list[i], q)
		}
	}
	r.publish(list)
	r.mu.Unlock()

	r.metrics.RecordRefresh("all", time.Since(start).Seconds())
	r.logger.Debug("watchlist refreshed",
		zap.Int("symbols", len(symbols)),
		zap.Int("updated", len(quotes)),
		zap.Duration("duration", time.Since(start)),
	)
}

// UpdateTargetPrice sets or, with nil, clears the target of an existing symbol.
// No other field changes.
func (r *Reconciler) UpdateTargetPrice(ctx context.Context, symbol string, price *float64) error {
	sym, err := core.NormalizeSymbol(symbol)
	if err != nil {
		return err
	}
	if err := validateTarget(price); err != nil {
		return err
	}

	r.mu.Lock()
	list := r.copyEntries()
	i := indexOf(list, sym)
	if i < 0 {
		r.mu.Unlock()
		return core.WrapError(core.ErrSymbolNotFound, fmt.Errorf("%s is not in the watchlist", sym))
	}
	list[i].TargetPrice = core.CopyPrice(price)
	r.publish(list)
	r.mu.Unlock()

	r.persist(ctx, sym, price)
	return nil
}

// RemoveSymbol stops tracking symbol and deletes its stored target.
func (r *Reconciler) RemoveSymbol(ctx context.Context, symbol string) bool {
	sym, err := core.NormalizeSymbol(symbol)
	if err != nil {
		return false
	}

	r.mu.Lock()
	list := r.copyEntries()
	i := indexOf(list, sym)
	if i < 0 {
		r.mu.Unlock()
		return false
	}
	list = append(list[:i], list[i+1:]...)
	r.publish(list)
	r.mu.Unlock()

	r.persist(ctx, sym, nil)
	r.logger.Info("symbol removed", zap.String("symbol", sym))
	return true
}

// Entries returns a copy of the list in natural (insertion) order.
func (r *Reconciler) Entries() []core.WatchEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.copyEntries()
}

// Get returns a copy of the entry for symbol.
func (r *Reconciler) Get(symbol string) (core.WatchEntry, bool) {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := indexOf(r.entries, sym); i >= 0 {
		return r.entries[i].Clone(), true
	}
	return core.WatchEntry{}, false
}

// Sorted returns the list ordered by the active sort config.
func (r *Reconciler) Sorted() []core.WatchEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sorting.Sort(r.entries, r.sortCfg)
}

// SortConfig returns the active sort config.
func (r *Reconciler) SortConfig() sorting.Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortCfg
}

// ToggleSort applies a header selection to the active sort config.
func (r *Reconciler) ToggleSort(field sorting.Field) sorting.Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sortCfg = r.sortCfg.Toggle(field, r.cfg.SortMode)
	return r.sortCfg
}

// SetSort replaces the active sort config.
func (r *Reconciler) SetSort(cfg sorting.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sortCfg = cfg
}

// Loading reports whether any fetching operation is in progress.
func (r *Reconciler) Loading() bool {
	return r.loading.Load() > 0
}

// LastError returns the most recent fetch failure, or nil after a fully
// successful refresh.
func (r *Reconciler) LastError() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastErr
}

// ParseTarget parses user target input. Empty input means no target.
func ParseTarget(input string) (*float64, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, core.WrapError(core.ErrValidation, fmt.Errorf("target price is not a number: %q", input))
	}
	v := d.InexactFloat64()
	if err := validateTarget(&v); err != nil {
		return nil, err
	}
	return &v, nil
}

// validateTarget rejects negative and non-finite targets. A nil target is valid.
func validateTarget(price *float64) error {
	if price == nil {
		return nil
	}
	v := *price
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return core.WrapError(core.ErrValidation, fmt.Errorf("target price out of range: %v", v))
	}
	if v < 0 {
		return core.WrapError(core.ErrValidation, fmt.Errorf("target price cannot be negative: %v", v))
	}
	return nil
}

// quote returns a fresh cached quote or fetches one.
func (r *Reconciler) quote(ctx context.Context, symbol string) (core.Quote, error) {
	if q, ok := r.cachedQuote(symbol); ok {
		return q, nil
	}
	return r.fetch(ctx, symbol)
}

func (r *Reconciler) cachedQuote(symbol string) (core.Quote, bool) {
	q, ok := r.cache.Get(symbol)
	r.metrics.RecordCacheLookup(ok)
	return q, ok
}

// fetch always goes to the source and caches the result. With Dedupe,
// concurrent callers for the same symbol share one request.
func (r *Reconciler) fetch(ctx context.Context, symbol string) (core.Quote, error) {
	if !r.cfg.Dedupe {
		return r.fetchSource(ctx, symbol)
	}
	// The shared fetch outlives any single caller; each caller still stops
	// waiting when its own ctx ends.
	ch := r.flights.DoChan(symbol, func() (any, error) {
		shared := context.WithoutCancel(ctx)
		if r.cfg.FetchTimeout <= 0 {
			var cancel context.CancelFunc
			shared, cancel = context.WithTimeout(shared, collector.DefaultTimeout)
			defer cancel()
		}
		return r.fetchSource(shared, symbol)
	})
	select {
	case <-ctx.Done():
		return core.Quote{}, core.WrapError(core.ErrCollectorTimeout, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return core.Quote{}, res.Err
		}
		return res.Val.(core.Quote), nil
	}
}

func (r *Reconciler) fetchSource(ctx context.Context, symbol string) (core.Quote, error) {
	if r.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.FetchTimeout)
		defer cancel()
	}

	q, err := r.source.Fetch(ctx, symbol)
	var out core.Quote
	if err == nil && q != nil {
		out = *q
		out.Symbol = symbol
	}
	if err == nil && !out.IsValid() {
		err = core.WrapError(core.ErrNoData, fmt.Errorf("empty quote for %s", symbol))
	}
	if err != nil {
		r.metrics.RecordQuoteFetch(r.source.Name(), errorCode(err))
		return core.Quote{}, err
	}
	r.metrics.RecordQuoteFetch(r.source.Name(), "ok")

	out.Trend = append([]float64(nil), q.Trend...)
	r.cache.Put(symbol, out)
	return out, nil
}

// fetchAll fetches symbols with bounded concurrency. Failed symbols are absent
// from the result.
func (r *Reconciler) fetchAll(ctx context.Context, symbols []string) map[string]core.Quote {
	results := make([]*core.Quote, len(symbols))

	var g errgroup.Group
	g.SetLimit(r.cfg.Concurrency)
	for i, sym := range symbols {
		g.Go(func() error {
			q, err := r.fetch(ctx, sym)
			if err != nil {
				r.recordFailure(sym, err)
				return nil
			}
			results[i] = &q
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]core.Quote, len(symbols))
	for i, q := range results {
		if q != nil {
			out[symbols[i]] = *q
		}
	}
	return out
}

// merge replaces the quote-owned fields of e. The target is never touched.
func (r *Reconciler) merge(e core.WatchEntry, q core.Quote) core.WatchEntry {
	n := e.Clone()
	if q.CompanyName != "" {
		n.Name = q.CompanyName
	}
	n.Price = q.Price
	n.Change = q.Change
	n.ChangePercent = q.ChangePercent
	n.VolumeValue = q.Volume
	n.Volume = valuation.FormatCompact(q.Volume)
	n.MarketCapValue = q.MarketCap
	n.MarketCap = "N/A"
	if q.MarketCap > 0 {
		n.MarketCap = valuation.FormatCompact(q.MarketCap)
	}
	n.PE = q.PE
	n.DividendYield = q.DividendYield
	n.RevenueGrowth = q.RevenueGrowth
	n.ProfitMargin = q.ProfitMargin

	if len(q.Trend) > 0 {
		n.Trend = lastN(q.Trend, core.TrendLength)
	} else {
		n.Trend = lastN(append(n.Trend, q.Price), core.TrendLength)
	}
	n.UpdatedAt = r.clock.Now()
	return n
}

// persist saves a target. Failures are logged and dropped.
func (r *Reconciler) persist(ctx context.Context, symbol string, price *float64) {
	if err := r.targets.Set(ctx, symbol, price); err != nil {
		r.metrics.RecordPersistenceFailure()
		r.logger.Warn("target price not persisted", zap.String("symbol", symbol), zap.Error(err))
	}
}

// publish must be called with mu held.
func (r *Reconciler) publish(list []core.WatchEntry) {
	r.entries = list

	signals := 0
	for _, e := range list {
		if valuation.BuyTriggered(e.Price, e.TargetPrice) {
			signals++
		}
	}
	r.metrics.SetWatchlistSize(len(list))
	r.metrics.SetBuySignals(signals)
}

// copyEntries must be called with mu held.
func (r *Reconciler) copyEntries() []core.WatchEntry {
	out := make([]core.WatchEntry, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Clone()
	}
	return out
}

func (r *Reconciler) recordFailure(symbol string, err error) {
	if core.IsFetchError(err) {
		r.logger.Warn("quote fetch failed", zap.String("symbol", symbol), zap.Error(err))
	} else {
		// Cancellation or a source that does not classify its errors
		r.logger.Error("quote fetch aborted", zap.String("symbol", symbol), zap.Error(err))
	}
	r.mu.Lock()
	r.lastErr = fmt.Errorf("%s: %w", symbol, err)
	r.mu.Unlock()
}

func (r *Reconciler) clearError() {
	r.mu.Lock()
	r.lastErr = nil
	r.mu.Unlock()
}

func (r *Reconciler) beginLoad() { r.loading.Add(1) }
func (r *Reconciler) endLoad()   { r.loading.Add(-1) }

func indexOf(list []core.WatchEntry, symbol string) int {
	for i := range list {
		if list[i].Symbol == symbol {
			return i
		}
	}
	return -1
}

func lastN(v []float64, n int) []float64 {
	if len(v) > n {
		v = v[len(v)-n:]
	}
	return append([]float64(nil), v...)
}

func errorCode(err error) string {
	if code, ok := core.CodeOf(err); ok {
		return code
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return core.ErrCollectorTimeout.Code
	}
	return core.ErrFetchFailed.Code
}
