package core

import "time"

// TrendLength is the number of recent prices kept in a trend sample.
const TrendLength = 7

// Quote is the quote data returned by a quote source for one symbol
type Quote struct {
	Symbol        string
	CompanyName   string
	Price         float64
	Change        float64
	ChangePercent float64
	Volume        float64 // shares
	MarketCap     float64 // absolute currency units
	PreviousClose float64
	Open          float64
	Low           float64
	High          float64

	// Fundamentals, zero when the source does not provide them
	PE            float64
	DividendYield float64 // percent
	RevenueGrowth float64 // percent
	ProfitMargin  float64 // percent

	Trend  []float64 // oldest first, optional
	Time   time.Time
	Source string
}

// IsValid checks if the quote has required fields
func (q Quote) IsValid() bool {
	return q.Symbol != "" && q.Price > 0
}

// WatchEntry is one tracked symbol in the watchlist.
type WatchEntry struct {
	Symbol         string    `json:"symbol"`
	Name           string    `json:"name"`
	Price          float64   `json:"price"`
	Change         float64   `json:"change"`
	ChangePercent  float64   `json:"change_percent"`
	Volume         string    `json:"volume"`
	VolumeValue    float64   `json:"volume_value"`
	MarketCap      string    `json:"market_cap"`
	MarketCapValue float64   `json:"market_cap_value"`
	PE             float64   `json:"pe"`
	DividendYield  float64   `json:"dividend_yield"`
	RevenueGrowth  float64   `json:"revenue_growth"`
	ProfitMargin   float64   `json:"profit_margin"`
	Trend          []float64 `json:"trend"`
	TargetPrice    *float64  `json:"target_price"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewPlaceholder returns an entry with zeroed quote fields, used until the first
// successful fetch.
func NewPlaceholder(symbol string, target *float64) WatchEntry {
	return WatchEntry{
		Symbol:      symbol,
		Name:        symbol,
		Volume:      "0",
		MarketCap:   "N/A",
		Trend:       make([]float64, TrendLength),
		TargetPrice: CopyPrice(target),
	}
}

// HasTarget reports whether a target price is set.
func (e WatchEntry) HasTarget() bool {
	return e.TargetPrice != nil
}

// Target returns the target price, or 0 when none is set.
func (e WatchEntry) Target() float64 {
	if e.TargetPrice == nil {
		return 0
	}
	return *e.TargetPrice
}

// Clone returns a deep copy so callers never share the trend slice or target pointer.
func (e WatchEntry) Clone() WatchEntry {
	c := e
	if e.Trend != nil {
		c.Trend = append([]float64(nil), e.Trend...)
	}
	c.TargetPrice = CopyPrice(e.TargetPrice)
	return c
}

// CopyPrice copies an optional price.
func CopyPrice(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Price returns a pointer to v.
func Price(v float64) *float64 {
	return &v
}
