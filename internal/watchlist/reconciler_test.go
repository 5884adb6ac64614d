package watchlist

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/newthinker/radar/internal/clock"
	"github.com/newthinker/radar/internal/collector/mock"
	"github.com/newthinker/radar/internal/core"
	"github.com/newthinker/radar/internal/metrics"
	"github.com/newthinker/radar/internal/quotecache"
	"github.com/newthinker/radar/internal/sorting"
	"github.com/newthinker/radar/internal/storage/prefs"
	"github.com/newthinker/radar/internal/targets"
	"github.com/newthinker/radar/internal/valuation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	r      *Reconciler
	source *mock.Source
	prefs  *prefs.Memory
	cache  *quotecache.Cache
	clock  *clock.Fake
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	clk := clock.NewFake(time.Date(2026, 1, 5, 14, 30, 0, 0, time.UTC))
	f := &fixture{
		source: mock.New(),
		prefs:  prefs.NewMemory(),
		clock:  clk,
	}
	f.cache = quotecache.New(clk, 10*time.Minute)
	f.r = New(cfg, f.source, f.cache, targets.New(f.prefs, nil), clk, nil)
	return f
}

func (f *fixture) stored(t *testing.T) map[string]float64 {
	t.Helper()
	m, err := f.prefs.Load(context.Background())
	require.NoError(t, err)
	return m
}

func TestAddSymbol_NewSymbol(t *testing.T) {
	f := newFixture(t, Config{})
	f.source.SetQuote(core.Quote{Symbol: "TSLA", CompanyName: "Tesla, Inc.", Price: 300, Volume: 1_500_000, MarketCap: 950e9})

	e, err := f.r.AddSymbol(context.Background(), "tsla", "250")
	require.NoError(t, err)

	assert.Equal(t, "TSLA", e.Symbol)
	assert.Equal(t, "Tesla, Inc.", e.Name)
	assert.Equal(t, 300.0, e.Price)
	assert.Equal(t, 250.0, e.Target())
	assert.Equal(t, "1.5M", e.Volume)
	assert.Equal(t, "950B", e.MarketCap)

	m := valuation.Compute(e)
	require.NotNil(t, m.Difference)
	assert.InDelta(t, 50.0, *m.Difference, 1e-9)
	assert.False(t, m.BuyTriggered)

	require.Len(t, f.r.Entries(), 1)
	assert.Equal(t, map[string]float64{"TSLA": 250}, f.stored(t))
}

func TestAddSymbol_Validation(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	tests := []struct {
		name   string
		symbol string
		target string
	}{
		{"empty symbol", "   ", ""},
		{"bad symbol", "AA PL", ""},
		{"non-numeric target", "AAPL", "abc"},
		{"negative target", "AAPL", "-5"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.r.AddSymbol(ctx, tc.symbol, tc.target)
			assert.True(t, errors.Is(err, core.ErrValidation), "got %v", err)
		})
	}

	assert.Equal(t, 0, f.source.TotalCalls(), "validation must happen before any fetch")
	assert.Empty(t, f.r.Entries())
}

func TestAddSymbol_TwiceKeepsFirstTarget(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	f.source.SetQuote(core.Quote{Symbol: "AAPL", Price: 140})

	_, err := f.r.AddSymbol(ctx, "AAPL", "180")
	require.NoError(t, err)

	// Expire the cache so the second add fetches new data
	f.clock.Advance(11 * time.Minute)
	f.source.SetQuote(core.Quote{Symbol: "AAPL", Price: 145.5})

	e, err := f.r.AddSymbol(ctx, "aapl", "")
	require.NoError(t, err)
	assert.Equal(t, 145.5, e.Price)
	assert.Equal(t, 180.0, e.Target())

	// Explicit input does not override an existing target either
	e, err = f.r.AddSymbol(ctx, "AAPL", "200")
	require.NoError(t, err)
	assert.Equal(t, 180.0, e.Target())

	require.Len(t, f.r.Entries(), 1)
	assert.Equal(t, map[string]float64{"AAPL": 180}, f.stored(t))
}

func TestAddSymbol_ExistingWithoutTargetTakesNewOne(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	f.source.SetQuote(core.Quote{Symbol: "MSFT", Price: 400})

	_, err := f.r.AddSymbol(ctx, "MSFT", "")
	require.NoError(t, err)
	e, err := f.r.AddSymbol(ctx, "MSFT", "350")
	require.NoError(t, err)

	assert.Equal(t, 350.0, e.Target())
}

func TestAddSymbol_FetchFailureAddsPlaceholder(t *testing.T) {
	f := newFixture(t, Config{})
	f.source.SetError("NEWCO", core.WrapError(core.ErrFetchFailed, errors.New("connection refused")))

	e, err := f.r.AddSymbol(context.Background(), "newco", "12.5")
	require.NoError(t, err)

	assert.Equal(t, "NEWCO", e.Symbol)
	assert.Equal(t, 0.0, e.Price)
	assert.Equal(t, "0", e.Volume)
	assert.Equal(t, "N/A", e.MarketCap)
	assert.Equal(t, make([]float64, core.TrendLength), e.Trend)
	assert.Equal(t, 12.5, e.Target())

	require.Error(t, f.r.LastError())
	assert.True(t, errors.Is(f.r.LastError(), core.ErrFetchFailed))
	assert.Equal(t, map[string]float64{"NEWCO": 12.5}, f.stored(t))
}

func TestAddSymbol_UsesFreshCache(t *testing.T) {
	f := newFixture(t, Config{})
	f.cache.Put("AAPL", core.Quote{Symbol: "AAPL", Price: 150})

	e, err := f.r.AddSymbol(context.Background(), "AAPL", "")
	require.NoError(t, err)

	assert.Equal(t, 150.0, e.Price)
	assert.Equal(t, 0, f.source.Calls("AAPL"))
}

func TestAddSymbol_PersistenceFailureIsSwallowed(t *testing.T) {
	f := newFixture(t, Config{})
	f.prefs.SaveErr = errors.New("disk full")
	f.source.SetQuote(core.Quote{Symbol: "AAPL", Price: 150})

	reg := metrics.NewRegistry()
	f.r.SetMetrics(reg)

	e, err := f.r.AddSymbol(context.Background(), "AAPL", "180")
	require.NoError(t, err)
	assert.Equal(t, 180.0, e.Target())
	assert.NoError(t, f.r.LastError())
}

func TestRefreshOne(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	f.source.SetQuote(core.Quote{Symbol: "AAPL", Price: 140, Trend: []float64{1, 2, 3, 4, 5, 6, 7, 8}})
	_, err := f.r.AddSymbol(ctx, "AAPL", "180")
	require.NoError(t, err)

	f.source.SetQuote(core.Quote{Symbol: "AAPL", Price: 141})
	require.NoError(t, f.r.RefreshOne(ctx, "aapl"))

	e, ok := f.r.Get("AAPL")
	require.True(t, ok)
	assert.Equal(t, 141.0, e.Price)
	assert.Equal(t, 180.0, e.Target())
	// Rolling trend when the quote carries none
	assert.Equal(t, []float64{3, 4, 5, 6, 7, 8, 141}, e.Trend)
	// Refresh bypasses the cache
	assert.Equal(t, 2, f.source.Calls("AAPL"))
}

func TestRefreshOne_FailureLeavesEntryUnchanged(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	f.source.SetQuote(core.Quote{Symbol: "AAPL", CompanyName: "Apple Inc.", Price: 145.5, Volume: 5e7})
	_, err := f.r.AddSymbol(ctx, "AAPL", "180")
	require.NoError(t, err)
	before, _ := f.r.Get("AAPL")

	f.clock.Advance(time.Minute)
	f.source.SetError("AAPL", core.WrapError(core.ErrRateLimited, nil))
	assert.NoError(t, f.r.RefreshOne(ctx, "AAPL"))

	after, _ := f.r.Get("AAPL")
	assert.Equal(t, before, after)
	assert.True(t, errors.Is(f.r.LastError(), core.ErrRateLimited))
}

func TestRefreshOne_UnknownSymbol(t *testing.T) {
	f := newFixture(t, Config{})

	err := f.r.RefreshOne(context.Background(), "NOPE")
	assert.True(t, errors.Is(err, core.ErrSymbolNotFound))
	assert.Equal(t, 0, f.source.TotalCalls())
}

func TestRefreshAll_BestEffortPerSymbol(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	for _, sym := range []string{"AAPL", "MSFT", "TSLA"} {
		f.source.SetQuote(core.Quote{Symbol: sym, Price: 100})
		_, err := f.r.AddSymbol(ctx, sym, "")
		require.NoError(t, err)
	}

	f.source.SetQuote(core.Quote{Symbol: "AAPL", Price: 110})
	f.source.SetError("MSFT", errors.New("timeout"))
	f.source.SetQuote(core.Quote{Symbol: "TSLA", Price: 120})

	f.r.RefreshAll(ctx)

	entries := f.r.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"AAPL", "MSFT", "TSLA"}, symbols(entries))
	assert.Equal(t, 110.0, entries[0].Price)
	assert.Equal(t, 100.0, entries[1].Price)
	assert.Equal(t, 120.0, entries[2].Price)
	assert.Error(t, f.r.LastError())

	f.source.SetQuote(core.Quote{Symbol: "MSFT", Price: 105})
	f.r.RefreshAll(ctx)
	assert.NoError(t, f.r.LastError())
	assert.False(t, f.r.Loading())
}

func TestRefreshAll_PublishesOnce(t *testing.T) {
	f := newFixture(t, Config{Concurrency: 4})
	ctx := context.Background()
	for _, sym := range []string{"A", "B"} {
		f.source.SetQuote(core.Quote{Symbol: sym, Price: 1})
		_, err := f.r.AddSymbol(ctx, sym, "")
		require.NoError(t, err)
	}

	release := make(chan struct{})
	f.source.SetResponder(func(ctx context.Context, symbol string, call int) (*core.Quote, error) {
		if symbol == "B" {
			<-release
		}
		return &core.Quote{Symbol: symbol, Price: 2}, nil
	})

	done := make(chan struct{})
	go func() {
		f.r.RefreshAll(ctx)
		close(done)
	}()

	// A has completed but must not be visible until B finishes
	require.Eventually(t, func() bool { return f.source.TotalCalls() == 2 }, time.Second, time.Millisecond)
	assert.True(t, f.r.Loading())
	a, _ := f.r.Get("A")
	assert.Equal(t, 1.0, a.Price)

	close(release)
	<-done
	a, _ = f.r.Get("A")
	assert.Equal(t, 2.0, a.Price)
}

func TestRefresh_LastWriteWins(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	f.source.SetQuote(core.Quote{Symbol: "AAPL", Price: 100})
	_, err := f.r.AddSymbol(ctx, "AAPL", "")
	require.NoError(t, err)
	base := f.source.TotalCalls()

	release := make(chan struct{})
	f.source.SetResponder(func(ctx context.Context, symbol string, call int) (*core.Quote, error) {
		if call == base+1 {
			<-release
			return &core.Quote{Symbol: symbol, Price: 2}, nil
		}
		return &core.Quote{Symbol: symbol, Price: 1}, nil
	})

	done := make(chan struct{})
	go func() {
		f.r.RefreshAll(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool { return f.source.TotalCalls() == base+1 }, time.Second, time.Millisecond)

	// RefreshOne starts later but lands first
	require.NoError(t, f.r.RefreshOne(ctx, "AAPL"))
	e, _ := f.r.Get("AAPL")
	assert.Equal(t, 1.0, e.Price)

	close(release)
	<-done
	e, _ = f.r.Get("AAPL")
	assert.Equal(t, 2.0, e.Price)
}

func TestRefresh_DedupeSharesFetch(t *testing.T) {
	f := newFixture(t, Config{Dedupe: true})
	ctx := context.Background()
	f.source.SetQuote(core.Quote{Symbol: "AAPL", Price: 100})
	_, err := f.r.AddSymbol(ctx, "AAPL", "")
	require.NoError(t, err)
	base := f.source.TotalCalls()

	release := make(chan struct{})
	f.source.SetResponder(func(ctx context.Context, symbol string, call int) (*core.Quote, error) {
		<-release
		return &core.Quote{Symbol: symbol, Price: 5}, nil
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		f.r.RefreshAll(ctx)
	}()
	require.Eventually(t, func() bool { return f.source.TotalCalls() == base+1 }, time.Second, time.Millisecond)
	go func() {
		defer wg.Done()
		_ = f.r.RefreshOne(ctx, "AAPL")
	}()
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, base+1, f.source.TotalCalls())
	e, _ := f.r.Get("AAPL")
	assert.Equal(t, 5.0, e.Price)
}

func TestRefresh_DedupeSurvivesCanceledCaller(t *testing.T) {
	f := newFixture(t, Config{Dedupe: true})
	ctx := context.Background()
	f.source.SetQuote(core.Quote{Symbol: "AAPL", Price: 100})
	_, err := f.r.AddSymbol(ctx, "AAPL", "")
	require.NoError(t, err)
	base := f.source.TotalCalls()

	release := make(chan struct{})
	f.source.SetResponder(func(ctx context.Context, symbol string, call int) (*core.Quote, error) {
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return &core.Quote{Symbol: symbol, Price: 7}, nil
	})

	firstCtx, cancel := context.WithCancel(ctx)
	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		_ = f.r.RefreshOne(firstCtx, "AAPL")
	}()
	require.Eventually(t, func() bool { return f.source.TotalCalls() == base+1 }, time.Second, time.Millisecond)

	secondDone := make(chan struct{})
	go func() {
		defer close(secondDone)
		_ = f.r.RefreshOne(ctx, "AAPL")
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	select {
	case <-firstDone:
	case <-time.After(time.Second):
		t.Fatal("canceled caller kept waiting on the shared fetch")
	}
	close(release)
	<-secondDone

	assert.Equal(t, base+1, f.source.TotalCalls())
	e, _ := f.r.Get("AAPL")
	assert.Equal(t, 7.0, e.Price)
}

func TestRefreshOne_ZeroPriceIsNoData(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	f.source.SetQuote(core.Quote{Symbol: "AAPL", Price: 100})
	_, err := f.r.AddSymbol(ctx, "AAPL", "")
	require.NoError(t, err)

	f.source.SetQuote(core.Quote{Symbol: "AAPL", Price: 0})
	require.NoError(t, f.r.RefreshOne(ctx, "AAPL"))

	assert.True(t, errors.Is(f.r.LastError(), core.ErrNoData))
	e, _ := f.r.Get("AAPL")
	assert.Equal(t, 100.0, e.Price)
}

func TestRefresh_FetchTimeout(t *testing.T) {
	f := newFixture(t, Config{FetchTimeout: 20 * time.Millisecond})
	ctx := context.Background()
	f.source.SetQuote(core.Quote{Symbol: "AAPL", Price: 100})
	_, err := f.r.AddSymbol(ctx, "AAPL", "")
	require.NoError(t, err)

	f.source.SetResponder(func(ctx context.Context, symbol string, call int) (*core.Quote, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	require.NoError(t, f.r.RefreshOne(ctx, "AAPL"))

	assert.True(t, errors.Is(f.r.LastError(), context.DeadlineExceeded))
	e, _ := f.r.Get("AAPL")
	assert.Equal(t, 100.0, e.Price)
}

func TestUpdateTargetPrice(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	f.source.SetQuote(core.Quote{Symbol: "AAPL", Price: 145.5, Volume: 1e6})
	_, err := f.r.AddSymbol(ctx, "AAPL", "180")
	require.NoError(t, err)
	before, _ := f.r.Get("AAPL")

	require.NoError(t, f.r.UpdateTargetPrice(ctx, "aapl", core.Price(0)))
	e, _ := f.r.Get("AAPL")
	require.NotNil(t, e.TargetPrice, "zero is a value, not a clear")
	assert.Equal(t, 0.0, *e.TargetPrice)
	assert.Equal(t, map[string]float64{"AAPL": 0}, f.stored(t))

	require.NoError(t, f.r.UpdateTargetPrice(ctx, "AAPL", nil))
	e, _ = f.r.Get("AAPL")
	assert.Nil(t, e.TargetPrice)
	assert.Empty(t, f.stored(t))

	// Nothing but the target changed
	e.TargetPrice = before.TargetPrice
	assert.Equal(t, before, e)
}

func TestUpdateTargetPrice_Errors(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	err := f.r.UpdateTargetPrice(ctx, "NOPE", core.Price(1))
	assert.True(t, errors.Is(err, core.ErrSymbolNotFound))

	f.source.SetQuote(core.Quote{Symbol: "AAPL", Price: 1})
	_, _ = f.r.AddSymbol(ctx, "AAPL", "")
	err = f.r.UpdateTargetPrice(ctx, "AAPL", core.Price(-1))
	assert.True(t, errors.Is(err, core.ErrValidation))
}

func TestUpdateTargetPrice_NonFiniteRejected(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	f.source.SetQuote(core.Quote{Symbol: "AAPL", Price: 100})
	_, err := f.r.AddSymbol(ctx, "AAPL", "90")
	require.NoError(t, err)

	for _, v := range []float64{math.Inf(1), math.Inf(-1), math.NaN()} {
		err := f.r.UpdateTargetPrice(ctx, "AAPL", core.Price(v))
		assert.True(t, errors.Is(err, core.ErrValidation), "%v", v)
	}

	// The list is still usable and unchanged.
	require.NoError(t, f.r.UpdateTargetPrice(ctx, "AAPL", core.Price(95)))
	e, ok := f.r.Get("AAPL")
	require.True(t, ok)
	assert.Equal(t, 95.0, e.Target())
	assert.Equal(t, map[string]float64{"AAPL": 95}, f.stored(t))
}

func TestAddSymbol_OutOfRangeTargetRejected(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	f.source.SetQuote(core.Quote{Symbol: "AAPL", Price: 100})

	_, err := f.r.AddSymbol(ctx, "AAPL", "1e400")
	assert.True(t, errors.Is(err, core.ErrValidation))
	assert.Equal(t, 0, f.source.TotalCalls())
	assert.Empty(t, f.r.Entries())
	assert.Empty(t, f.stored(t))
}

func TestRemoveSymbol(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	f.source.SetQuote(core.Quote{Symbol: "AAPL", Price: 1})
	_, _ = f.r.AddSymbol(ctx, "AAPL", "5")

	assert.True(t, f.r.RemoveSymbol(ctx, "aapl"))
	assert.False(t, f.r.RemoveSymbol(ctx, "AAPL"))
	assert.Empty(t, f.r.Entries())
	assert.Empty(t, f.stored(t))
}

func TestInitializeList(t *testing.T) {
	f := newFixture(t, Config{
		Baseline: []BaselineItem{
			{Symbol: "aapl", Name: "Apple", Target: core.Price(150)},
			{Symbol: "MSFT"},
			{Symbol: "bad symbol!"},
			{Symbol: "AAPL"},
		},
	})
	ctx := context.Background()
	require.NoError(t, f.prefs.Save(ctx, map[string]float64{"AAPL": 180, "ZM": 60, "NVDA": 500}))

	f.cache.Put("MSFT", core.Quote{Symbol: "MSFT", CompanyName: "Microsoft", Price: 410})
	f.source.SetQuote(core.Quote{Symbol: "AAPL", Price: 145.5})
	f.source.SetQuote(core.Quote{Symbol: "NVDA", Price: 480})
	f.source.SetError("ZM", errors.New("provider down"))

	f.r.InitializeList(ctx)

	entries := f.r.Entries()
	assert.Equal(t, []string{"AAPL", "MSFT", "NVDA", "ZM"}, symbols(entries))

	// Stored target overrides the baseline default
	assert.Equal(t, 180.0, entries[0].Target())
	assert.Equal(t, 145.5, entries[0].Price)
	assert.Nil(t, entries[1].TargetPrice)
	assert.Equal(t, 410.0, entries[1].Price)
	assert.Equal(t, 0, f.source.Calls("MSFT"), "cache-fresh symbols are not fetched")
	assert.Equal(t, 500.0, entries[2].Target())
	// Failed fetch keeps the placeholder
	assert.Equal(t, 0.0, entries[3].Price)
	assert.Equal(t, 60.0, entries[3].Target())
	assert.Error(t, f.r.LastError())
}

// blockSymbol makes fetches of symbol wait until release is closed. started is
// closed when the first such fetch begins.
func blockSymbol(f *fixture, symbol string, price float64) (started, release chan struct{}) {
	started = make(chan struct{})
	release = make(chan struct{})
	var once sync.Once
	f.source.SetResponder(func(ctx context.Context, sym string, call int) (*core.Quote, error) {
		if sym == symbol {
			once.Do(func() { close(started) })
			<-release
			return &core.Quote{Symbol: sym, Price: price}, nil
		}
		return &core.Quote{Symbol: sym, Price: 50}, nil
	})
	return started, release
}

func TestInitializeList_KeepsConcurrentAdd(t *testing.T) {
	f := newFixture(t, Config{Baseline: []BaselineItem{{Symbol: "AAPL"}}})
	ctx := context.Background()
	started, release := blockSymbol(f, "AAPL", 145)

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.r.InitializeList(ctx)
	}()
	<-started

	_, err := f.r.AddSymbol(ctx, "MSFT", "90")
	require.NoError(t, err)
	close(release)
	<-done

	entries := f.r.Entries()
	assert.Equal(t, []string{"AAPL", "MSFT"}, symbols(entries))
	assert.Equal(t, 145.0, entries[0].Price)
	assert.Equal(t, 90.0, entries[1].Target())
	assert.Equal(t, 50.0, entries[1].Price)
	assert.Equal(t, map[string]float64{"MSFT": 90}, f.stored(t))
}

func TestInitializeList_KeepsConcurrentTargetUpdate(t *testing.T) {
	f := newFixture(t, Config{Baseline: []BaselineItem{{Symbol: "AAPL", Target: core.Price(150)}}})
	ctx := context.Background()
	f.source.SetQuote(core.Quote{Symbol: "AAPL", Price: 140})
	f.r.InitializeList(ctx)
	f.clock.Advance(time.Hour)

	started, release := blockSymbol(f, "AAPL", 145)
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.r.InitializeList(ctx)
	}()
	<-started

	require.NoError(t, f.r.UpdateTargetPrice(ctx, "AAPL", core.Price(120)))
	close(release)
	<-done

	e, ok := f.r.Get("AAPL")
	require.True(t, ok)
	assert.Equal(t, 120.0, e.Target())
	assert.Equal(t, 145.0, e.Price)
}

func TestInitializeList_KeepsConcurrentRemove(t *testing.T) {
	f := newFixture(t, Config{Baseline: []BaselineItem{{Symbol: "AAPL"}, {Symbol: "MSFT"}}})
	ctx := context.Background()
	f.source.SetQuote(core.Quote{Symbol: "AAPL", Price: 140})
	f.source.SetQuote(core.Quote{Symbol: "MSFT", Price: 400})
	f.r.InitializeList(ctx)
	f.clock.Advance(time.Hour)

	started, release := blockSymbol(f, "AAPL", 145)
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.r.InitializeList(ctx)
	}()
	<-started

	assert.True(t, f.r.RemoveSymbol(ctx, "MSFT"))
	close(release)
	<-done

	assert.Equal(t, []string{"AAPL"}, symbols(f.r.Entries()))
}

func TestInitializeList_StoreUnavailable(t *testing.T) {
	f := newFixture(t, Config{Baseline: []BaselineItem{{Symbol: "AAPL", Target: core.Price(150)}}})
	f.prefs.LoadErr = errors.New("corrupt")
	f.source.SetQuote(core.Quote{Symbol: "AAPL", Price: 140})

	f.r.InitializeList(context.Background())

	entries := f.r.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, 150.0, entries[0].Target())
}

func TestSortingViews(t *testing.T) {
	f := newFixture(t, Config{SortMode: sorting.ModeCycle})
	ctx := context.Background()
	for sym, price := range map[string]float64{"MSFT": 400, "AAPL": 150, "TSLA": 300} {
		f.source.SetQuote(core.Quote{Symbol: sym, Price: price})
	}
	for _, sym := range []string{"TSLA", "AAPL", "MSFT"} {
		_, err := f.r.AddSymbol(ctx, sym, "")
		require.NoError(t, err)
	}

	assert.Equal(t, sorting.DefaultConfig(), f.r.SortConfig())
	assert.Equal(t, []string{"AAPL", "MSFT", "TSLA"}, symbols(f.r.Sorted()))

	cfg := f.r.ToggleSort(sorting.FieldPrice)
	assert.Equal(t, sorting.Config{Field: sorting.FieldPrice, Direction: sorting.DirectionAsc}, cfg)
	assert.Equal(t, []string{"AAPL", "TSLA", "MSFT"}, symbols(f.r.Sorted()))

	f.r.ToggleSort(sorting.FieldPrice)
	assert.Equal(t, []string{"MSFT", "TSLA", "AAPL"}, symbols(f.r.Sorted()))

	// Cycle mode returns to natural order
	f.r.ToggleSort(sorting.FieldPrice)
	assert.Equal(t, []string{"TSLA", "AAPL", "MSFT"}, symbols(f.r.Sorted()))

	// Natural order is untouched by sorting
	assert.Equal(t, []string{"TSLA", "AAPL", "MSFT"}, symbols(f.r.Entries()))
}

func TestView(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	f.source.SetQuote(core.Quote{Symbol: "AAPL", Price: 145.5})
	f.source.SetQuote(core.Quote{Symbol: "TSLA", Price: 300})
	_, _ = f.r.AddSymbol(ctx, "TSLA", "250")
	_, _ = f.r.AddSymbol(ctx, "AAPL", "180")

	override := sorting.Config{Field: sorting.FieldDifference, Direction: sorting.DirectionAsc}
	v := f.r.View(&override)

	require.Len(t, v.Items, 2)
	assert.Equal(t, "AAPL", v.Items[0].Symbol)
	require.NotNil(t, v.Items[0].Difference)
	assert.InDelta(t, -34.5, *v.Items[0].Difference, 1e-9)
	assert.True(t, v.Items[0].BuyTriggered)
	assert.Equal(t, override, v.Sort)
	assert.Empty(t, v.LastError)

	// The override does not stick
	assert.Equal(t, sorting.DefaultConfig(), f.r.SortConfig())
	assert.Equal(t, "AAPL", f.r.View(nil).Items[0].Symbol)
}

func TestParseTarget(t *testing.T) {
	p, err := ParseTarget("")
	assert.NoError(t, err)
	assert.Nil(t, p)

	p, err = ParseTarget(" 180.25 ")
	require.NoError(t, err)
	assert.Equal(t, 180.25, *p)

	p, err = ParseTarget("0")
	require.NoError(t, err)
	assert.Equal(t, 0.0, *p)

	_, err = ParseTarget("12abc")
	assert.True(t, errors.Is(err, core.ErrValidation))

	for _, in := range []string{"1e400", "-1e400", "Inf", "NaN", "-5"} {
		_, err = ParseTarget(in)
		assert.True(t, errors.Is(err, core.ErrValidation), in)
	}
}

func symbols(entries []core.WatchEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Symbol
	}
	return out
}
