// Package finnhub implements a quote source backed by the Finnhub REST API.
package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/newthinker/radar/internal/collector"
	"github.com/newthinker/radar/internal/core"
	"golang.org/x/sync/errgroup"
)

const defaultBaseURL = "https://finnhub.io/api/v1"

// Finnhub fetches quote, company profile and basic financials
type Finnhub struct {
	client  *http.Client
	baseURL string
	token   string
	// fundamentals enables the /stock/metric request
	fundamentals bool
}

// New creates a new Finnhub source
func New(cfg collector.Config) *Finnhub {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	return &Finnhub{
		client:       cfg.HTTPClient(),
		baseURL:      base,
		token:        cfg.APIKey,
		fundamentals: true,
	}
}

// WithoutFundamentals skips the basic financials request
func (f *Finnhub) WithoutFundamentals() *Finnhub {
	f.fundamentals = false
	return f
}

func (f *Finnhub) Name() string {
	return "finnhub"
}

// Fetch requests /quote and /stock/profile2 concurrently. Fundamentals are
// best effort and never fail the fetch.
func (f *Finnhub) Fetch(ctx context.Context, symbol string) (*core.Quote, error) {
	var (
		q       quoteResponse
		profile profileResponse
		metric  metricResponse
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return f.get(gctx, "/quote", symbol, nil, &q)
	})
	g.Go(func() error {
		return f.get(gctx, "/stock/profile2", symbol, nil, &profile)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if q.Current == 0 && q.PreviousClose == 0 {
		return nil, core.WrapError(core.ErrSymbolNotFound, fmt.Errorf("finnhub: no quote for %s", symbol))
	}

	if f.fundamentals {
		// Ignored on failure, free-tier keys often lack this endpoint
		_ = f.get(ctx, "/stock/metric", symbol, url.Values{"metric": {"all"}}, &metric)
	}

	name := profile.Name
	if name == "" {
		name = symbol
	}

	ts := time.Now()
	if q.Timestamp > 0 {
		ts = time.Unix(q.Timestamp, 0)
	}

	return &core.Quote{
		Symbol:        symbol,
		CompanyName:   name,
		Price:         q.Current,
		Change:        q.Change,
		ChangePercent: q.ChangePercent,
		PreviousClose: q.PreviousClose,
		Open:          q.Open,
		High:          q.High,
		Low:           q.Low,
		// profile2 reports market cap in millions
		MarketCap:     profile.MarketCapitalization * 1e6,
		PE:            metric.Metric.PE,
		DividendYield: metric.Metric.DividendYield,
		RevenueGrowth: metric.Metric.RevenueGrowth,
		ProfitMargin:  metric.Metric.NetProfitMargin,
		Time:          ts,
		Source:        f.Name(),
	}, nil
}

func (f *Finnhub) get(ctx context.Context, endpoint, symbol string, params url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("symbol", symbol)
	params.Set("token", f.token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return core.WrapError(core.ErrFetchFailed, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return collector.TransportError("finnhub "+endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return collector.StatusError("finnhub "+endpoint, resp.StatusCode, apiErr.Error)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return core.WrapError(core.ErrFetchFailed, fmt.Errorf("decoding %s: %w", endpoint, err))
	}
	return nil
}

// Finnhub API response types
type quoteResponse struct {
	Current       float64 `json:"c"`
	Change        float64 `json:"d"`
	ChangePercent float64 `json:"dp"`
	High          float64 `json:"h"`
	Low           float64 `json:"l"`
	Open          float64 `json:"o"`
	PreviousClose float64 `json:"pc"`
	Timestamp     int64   `json:"t"`
}

type profileResponse struct {
	Country              string  `json:"country"`
	Currency             string  `json:"currency"`
	Exchange             string  `json:"exchange"`
	Industry             string  `json:"finnhubIndustry"`
	MarketCapitalization float64 `json:"marketCapitalization"`
	Name                 string  `json:"name"`
	ShareOutstanding     float64 `json:"shareOutstanding"`
	Ticker               string  `json:"ticker"`
}

type metricResponse struct {
	Metric struct {
		PE              float64 `json:"peTTM"`
		DividendYield   float64 `json:"dividendYieldIndicatedAnnual"`
		RevenueGrowth   float64 `json:"revenueGrowthTTMYoy"`
		NetProfitMargin float64 `json:"netProfitMarginTTM"`
	} `json:"metric"`
}

type errorResponse struct {
	Error string `json:"error"`
}
