package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/newthinker/radar/internal/collector"
	"github.com/newthinker/radar/internal/core"
)

const (
	defaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"
)

// Yahoo implements a quote source on the Yahoo Finance chart API
type Yahoo struct {
	client  *http.Client
	baseURL string
}

// New creates a new Yahoo source
func New(cfg collector.Config) *Yahoo {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	return &Yahoo{
		client:  cfg.HTTPClient(),
		baseURL: base,
	}
}

func (y *Yahoo) Name() string {
	return "yahoo"
}

// toYahooSymbol converts internal symbol format to Yahoo format
func (y *Yahoo) toYahooSymbol(symbol string) string {
	// Shanghai stocks: 600519.SH -> 600519.SS
	if strings.HasSuffix(symbol, ".SH") {
		return strings.TrimSuffix(symbol, ".SH") + ".SS"
	}
	// Class shares: BRK.B -> BRK-B
	if i := strings.LastIndex(symbol, "."); i > 0 && len(symbol)-i == 2 {
		return symbol[:i] + "-" + symbol[i+1:]
	}
	return symbol
}

// Fetch requests a one month daily chart and uses the last closes as trend
func (y *Yahoo) Fetch(ctx context.Context, symbol string) (*core.Quote, error) {
	url := fmt.Sprintf("%s/%s?interval=1d&range=1mo", y.baseURL, y.toYahooSymbol(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, core.WrapError(core.ErrFetchFailed, err)
	}
	// Yahoo rejects requests without a browser-like agent
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, collector.TransportError("yahoo", err)
	}
	defer resp.Body.Close()

	var result chartResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&result)

	if resp.StatusCode != http.StatusOK {
		detail := ""
		if decodeErr == nil && result.Chart.Error != nil {
			detail = result.Chart.Error.Description
		}
		return nil, collector.StatusError("yahoo", resp.StatusCode, detail)
	}
	if decodeErr != nil {
		return nil, core.WrapError(core.ErrFetchFailed, fmt.Errorf("decoding response: %w", decodeErr))
	}

	if result.Chart.Error != nil {
		return nil, core.WrapError(core.ErrFetchFailed, fmt.Errorf("yahoo error: %s", result.Chart.Error.Description))
	}

	if len(result.Chart.Result) == 0 || result.Chart.Result[0].Meta.RegularMarketPrice == 0 {
		return nil, core.WrapError(core.ErrSymbolNotFound, fmt.Errorf("no data for symbol: %s", symbol))
	}

	r := result.Chart.Result[0]
	meta := r.Meta

	prev := meta.ChartPreviousClose
	closes := r.closes()
	if n := len(closes); n >= 2 {
		prev = closes[n-2]
	}

	var change, changePct float64
	if prev > 0 {
		change = meta.RegularMarketPrice - prev
		changePct = change / prev * 100
	}

	name := meta.LongName
	if name == "" {
		name = meta.ShortName
	}
	if name == "" {
		name = symbol
	}

	return &core.Quote{
		Symbol:        symbol,
		CompanyName:   name,
		Price:         meta.RegularMarketPrice,
		Change:        change,
		ChangePercent: changePct,
		Volume:        float64(meta.RegularMarketVolume),
		PreviousClose: prev,
		High:          meta.RegularMarketDayHigh,
		Low:           meta.RegularMarketDayLow,
		Trend:         lastN(closes, core.TrendLength),
		Time:          time.Unix(int64(meta.RegularMarketTime), 0),
		Source:        y.Name(),
	}, nil
}

// closes returns the non-null daily closes, oldest first
func (r chartResult) closes() []float64 {
	if len(r.Indicators.Quote) == 0 {
		return nil
	}
	raw := r.Indicators.Quote[0].Close
	out := make([]float64, 0, len(raw))
	for _, c := range raw {
		if c == nil {
			continue // Skip missing data
		}
		out = append(out, *c)
	}
	return out
}

func lastN(v []float64, n int) []float64 {
	if len(v) == 0 {
		return nil
	}
	if len(v) > n {
		v = v[len(v)-n:]
	}
	return append([]float64(nil), v...)
}

// Yahoo API response types
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta       chartMeta  `json:"meta"`
	Timestamp  []int      `json:"timestamp"`
	Indicators indicators `json:"indicators"`
}

type chartMeta struct {
	Symbol               string  `json:"symbol"`
	LongName             string  `json:"longName"`
	ShortName            string  `json:"shortName"`
	RegularMarketPrice   float64 `json:"regularMarketPrice"`
	RegularMarketVolume  int64   `json:"regularMarketVolume"`
	RegularMarketTime    int     `json:"regularMarketTime"`
	RegularMarketDayHigh float64 `json:"regularMarketDayHigh"`
	RegularMarketDayLow  float64 `json:"regularMarketDayLow"`
	ChartPreviousClose   float64 `json:"chartPreviousClose"`
}

type indicators struct {
	Quote []quoteIndicator `json:"quote"`
}

type quoteIndicator struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}
