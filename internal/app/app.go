package app

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/newthinker/radar/internal/api/job"
	"github.com/newthinker/radar/internal/clock"
	"github.com/newthinker/radar/internal/collector"
	"github.com/newthinker/radar/internal/collector/alpaca"
	"github.com/newthinker/radar/internal/collector/finnhub"
	"github.com/newthinker/radar/internal/collector/yahoo"
	"github.com/newthinker/radar/internal/config"
	"github.com/newthinker/radar/internal/metrics"
	"github.com/newthinker/radar/internal/quotecache"
	"github.com/newthinker/radar/internal/sorting"
	"github.com/newthinker/radar/internal/storage/prefs"
	"github.com/newthinker/radar/internal/targets"
	"github.com/newthinker/radar/internal/watchlist"
	"go.uber.org/zap"
)

// App is the main application orchestrator
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	sources   *collector.Registry
	prefs     prefs.Preferences
	cache     *quotecache.Cache
	watchlist *watchlist.Reconciler
	jobs      *job.Store
	metrics   *metrics.Registry
	interval  time.Duration

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
}

type options struct {
	source  collector.QuoteSource
	prefs   prefs.Preferences
	clock   clock.Clock
	metrics *metrics.Registry
}

// Option overrides a component New would otherwise build from config.
type Option func(*options)

// WithSource replaces the configured providers.
func WithSource(s collector.QuoteSource) Option {
	return func(o *options) { o.source = s }
}

// WithPreferences replaces the configured storage backend.
func WithPreferences(p prefs.Preferences) Option {
	return func(o *options) { o.prefs = p }
}

// WithClock sets the clock used by the cache and the watchlist.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithMetrics records watchlist metrics to reg.
func WithMetrics(reg *metrics.Registry) Option {
	return func(o *options) { o.metrics = reg }
}

// New wires the watchlist from cfg. The list is empty until Start or
// Initialize runs.
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := options{clock: clock.Real{}}
	for _, opt := range opts {
		opt(&o)
	}

	sources := collector.NewRegistry()
	if o.source != nil {
		sources.Register(o.source)
	} else {
		for _, name := range cfg.Quotes.Providers {
			s, err := NewSource(name, cfg.Quotes)
			if err != nil {
				return nil, err
			}
			sources.Register(s)
		}
	}

	p := o.prefs
	if p == nil {
		var err error
		if p, err = NewPreferences(cfg.Storage); err != nil {
			return nil, fmt.Errorf("creating storage: %w", err)
		}
	}

	baseline, err := Baseline(cfg.Watchlist)
	if err != nil {
		return nil, err
	}

	sortCfg, err := cfg.Sort.Config()
	if err != nil {
		return nil, err
	}
	mode := sorting.ModeToggle
	if cfg.Sort.Mode != "" {
		if mode, err = sorting.ParseMode(cfg.Sort.Mode); err != nil {
			return nil, err
		}
	}

	cache := quotecache.New(o.clock, cfg.Quotes.Freshness)
	r := watchlist.New(watchlist.Config{
		Baseline:     baseline,
		Concurrency:  cfg.Quotes.Concurrency,
		Dedupe:       cfg.Quotes.Dedupe,
		FetchTimeout: cfg.Quotes.Timeout,
		SortMode:     mode,
		DefaultSort:  sortCfg,
	}, sources, cache, targets.New(p, logger), o.clock, logger)
	r.SetMetrics(o.metrics)

	maxJobs := cfg.Server.MaxJobs
	if maxJobs <= 0 {
		maxJobs = 100
	}
	ttl := time.Duration(cfg.Server.JobTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &App{
		cfg:       cfg,
		logger:    logger,
		sources:   sources,
		prefs:     p,
		cache:     cache,
		watchlist: r,
		jobs:      job.NewStore(maxJobs, ttl),
		metrics:   o.metrics,
		interval:  cfg.Refresh.Interval,
	}, nil
}

// NewSource builds a named quote provider.
func NewSource(name string, cfg config.QuotesConfig) (collector.QuoteSource, error) {
	conf := func(p config.ProviderConfig) collector.Config {
		return collector.Config{
			BaseURL:   p.BaseURL,
			APIKey:    p.APIKey,
			APISecret: p.APISecret,
			Feed:      p.Feed,
			Timeout:   cfg.Timeout,
		}
	}
	switch name {
	case "finnhub":
		return finnhub.New(conf(cfg.Finnhub)), nil
	case "yahoo":
		return yahoo.New(conf(cfg.Yahoo)), nil
	case "alpaca":
		return alpaca.New(conf(cfg.Alpaca)), nil
	default:
		return nil, fmt.Errorf("unknown quote provider %q", name)
	}
}

// NewPreferences opens the configured target price backend.
func NewPreferences(cfg config.StorageConfig) (prefs.Preferences, error) {
	switch cfg.Type {
	case "memory":
		return prefs.NewMemory(), nil
	case "file", "":
		f, err := prefs.NewFile(cfg.Path)
		if err != nil {
			return nil, err
		}
		return f, nil
	case "s3":
		s, err := prefs.NewS3(prefs.S3Config{
			Bucket:    cfg.S3.Bucket,
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Prefix:    cfg.S3.Prefix,
			Key:       cfg.S3.Key,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case "sqlite":
		db, err := prefs.NewSQLite(cfg.SQLite.DSN)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

// Baseline returns the inline items followed by the items in the watchlist
// file, if one is configured.
func Baseline(cfg config.WatchlistConfig) ([]watchlist.BaselineItem, error) {
	items := make([]watchlist.BaselineItem, 0, len(cfg.Items))
	for _, it := range cfg.Items {
		items = append(items, watchlist.BaselineItem{Symbol: it.Symbol, Name: it.Name, Target: it.Target})
	}
	if cfg.File != "" {
		fromFile, err := watchlist.LoadBaseline(cfg.File)
		if err != nil {
			return nil, err
		}
		items = append(items, fromFile...)
	}
	return items, nil
}

// Watchlist returns the reconciler.
func (a *App) Watchlist() *watchlist.Reconciler {
	return a.watchlist
}

// Jobs returns the background job store.
func (a *App) Jobs() *job.Store {
	return a.jobs
}

// Metrics returns the metrics registry, nil when disabled.
func (a *App) Metrics() *metrics.Registry {
	return a.metrics
}

// Sources returns the quote providers in fallback order.
func (a *App) Sources() []collector.QuoteSource {
	return a.sources.GetAll()
}

// Initialize loads the baseline list once, without starting the refresh loop.
func (a *App) Initialize(ctx context.Context) {
	a.watchlist.InitializeList(ctx)
}

// Start loads the list and refreshes it every refresh interval until ctx is
// cancelled or Stop is called. A zero interval disables periodic refresh.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("app already running")
	}
	a.running = true

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
	}()

	a.logger.Info("watchlist starting",
		zap.Int("sources", len(a.sources.GetAll())),
		zap.Duration("interval", a.interval),
	)

	a.watchlist.InitializeList(ctx)
	a.logger.Info("watchlist loaded", zap.Int("symbols", len(a.watchlist.Entries())))

	if a.interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("watchlist shutting down")
			return ctx.Err()
		case <-ticker.C:
			a.watchlist.RefreshAll(ctx)
			if err := a.watchlist.LastError(); err != nil {
				a.logger.Warn("periodic refresh incomplete", zap.Error(err))
			}
		}
	}
}

// Stop stops the refresh loop
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
	}
}

// Close releases the storage backend.
func (a *App) Close() error {
	if c, ok := a.prefs.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// GetStats returns application statistics
func (a *App) GetStats() map[string]any {
	a.mu.RLock()
	running := a.running
	a.mu.RUnlock()

	return map[string]any{
		"running":   running,
		"watchlist": len(a.watchlist.Entries()),
		"sources":   len(a.sources.GetAll()),
		"cached":    a.cache.Len(),
		"sort":      a.watchlist.SortConfig(),
	}
}
