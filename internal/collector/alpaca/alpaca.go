// Package alpaca implements a quote source on the Alpaca market data API.
package alpaca

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/newthinker/radar/internal/collector"
	"github.com/newthinker/radar/internal/core"
)

// snapshotClient is the subset of *marketdata.Client used here
type snapshotClient interface {
	GetSnapshot(symbol string, req marketdata.GetSnapshotRequest) (*marketdata.Snapshot, error)
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

// Alpaca fetches snapshots and recent daily bars
type Alpaca struct {
	client snapshotClient
	feed   marketdata.Feed
}

// New creates an Alpaca source. Feed defaults to the free "iex" feed.
func New(cfg collector.Config) *Alpaca {
	opts := marketdata.ClientOpts{
		APIKey:     cfg.APIKey,
		APISecret:  cfg.APISecret,
		HTTPClient: cfg.HTTPClient(),
		RetryLimit: 1,
	}
	if cfg.BaseURL != "" {
		opts.BaseURL = cfg.BaseURL
	}
	feed := marketdata.Feed(cfg.Feed)
	if feed == "" {
		feed = marketdata.IEX
	}
	return &Alpaca{
		client: marketdata.NewClient(opts),
		feed:   feed,
	}
}

func (a *Alpaca) Name() string {
	return "alpaca"
}

// Fetch runs the blocking SDK calls in a goroutine so ctx can abandon them.
func (a *Alpaca) Fetch(ctx context.Context, symbol string) (*core.Quote, error) {
	type result struct {
		q   *core.Quote
		err error
	}
	ch := make(chan result, 1)

	go func() {
		q, err := a.fetch(symbol)
		ch <- result{q, err}
	}()

	select {
	case <-ctx.Done():
		return nil, collector.TransportError("alpaca", ctx.Err())
	case r := <-ch:
		return r.q, r.err
	}
}

func (a *Alpaca) fetch(symbol string) (*core.Quote, error) {
	snap, err := a.client.GetSnapshot(symbol, marketdata.GetSnapshotRequest{Feed: a.feed})
	if err != nil {
		return nil, classify(err)
	}
	if snap == nil {
		return nil, core.WrapError(core.ErrSymbolNotFound, fmt.Errorf("alpaca: no snapshot for %s", symbol))
	}

	q, err := fromSnapshot(symbol, snap)
	if err != nil {
		return nil, err
	}

	// Trend is best effort
	bars, err := a.client.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     time.Now().AddDate(0, 0, -14),
		Feed:      a.feed,
	})
	if err == nil {
		q.Trend = trendFromBars(bars)
	}
	return q, nil
}

// fromSnapshot maps a snapshot to a quote. The latest trade wins over the
// daily bar close.
func fromSnapshot(symbol string, snap *marketdata.Snapshot) (*core.Quote, error) {
	q := &core.Quote{
		Symbol:      symbol,
		CompanyName: symbol,
		Source:      "alpaca",
	}

	if snap.DailyBar != nil {
		q.Price = snap.DailyBar.Close
		q.Open = snap.DailyBar.Open
		q.High = snap.DailyBar.High
		q.Low = snap.DailyBar.Low
		q.Volume = float64(snap.DailyBar.Volume)
		q.Time = snap.DailyBar.Timestamp
	}
	if snap.LatestTrade != nil && snap.LatestTrade.Price > 0 {
		q.Price = snap.LatestTrade.Price
		q.Time = snap.LatestTrade.Timestamp
	}
	if snap.PrevDailyBar != nil {
		q.PreviousClose = snap.PrevDailyBar.Close
	}

	if q.Price == 0 {
		return nil, core.WrapError(core.ErrSymbolNotFound, fmt.Errorf("alpaca: no price for %s", symbol))
	}
	if q.PreviousClose > 0 {
		q.Change = q.Price - q.PreviousClose
		q.ChangePercent = q.Change / q.PreviousClose * 100
	}
	return q, nil
}

func trendFromBars(bars []marketdata.Bar) []float64 {
	if len(bars) > core.TrendLength {
		bars = bars[len(bars)-core.TrendLength:]
	}
	trend := make([]float64, 0, len(bars))
	for _, b := range bars {
		trend = append(trend, b.Close)
	}
	return trend
}

func classify(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "too many requests"):
		return core.WrapError(core.ErrRateLimited, err)
	case strings.Contains(msg, "not found") || strings.Contains(msg, "invalid symbol"):
		return core.WrapError(core.ErrSymbolNotFound, err)
	default:
		return collector.TransportError("alpaca", err)
	}
}
