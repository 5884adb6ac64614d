// Package valuation computes the derived buy/sell fields of a watchlist entry.
//
// Every function here is pure: the same entry always yields the same metrics,
// so callers compute them on demand instead of storing them.
package valuation

import (
	"math"

	"github.com/newthinker/radar/internal/core"
	"github.com/shopspring/decimal"
)

// Reference ceilings used to normalize score inputs to 0-100.
const (
	DistanceCap = 50.0 // percent below target
	DividendCap = 7.0  // percent yield
	GrowthCap   = 35.0 // percent revenue growth
	MarginCap   = 35.0 // percent profit margin
)

// Score weights, summing to 1.
const (
	WeightPrice    = 0.4
	WeightDividend = 0.2
	WeightGrowth   = 0.2
	WeightMargin   = 0.2
)

var hundred = decimal.NewFromInt(100)

// Metrics holds the values derived from one entry. Nil pointers mean the value
// is undefined (no target set, or the quote is not initialized yet).
type Metrics struct {
	Difference       *float64 `json:"difference"`
	PercentToTarget  *float64 `json:"percent_to_target"`
	DistanceToTarget *float64 `json:"distance_to_target"`
	BuyTriggered     bool     `json:"buy_triggered"`
	Score            float64  `json:"score"`
}

// Compute derives all metrics for e.
func Compute(e core.WatchEntry) Metrics {
	var m Metrics
	if d, ok := PriceDifference(e.Price, e.TargetPrice); ok {
		m.Difference = &d
		m.BuyTriggered = d <= 0
	}
	if p, ok := PercentToTarget(e.Price, e.TargetPrice); ok {
		m.PercentToTarget = &p
	}
	if p, ok := DistanceToTarget(e.Price, e.TargetPrice); ok {
		m.DistanceToTarget = &p
	}
	m.Score = Score(e)
	return m
}

// signal reports whether price and target are usable for a comparison. A zero
// price is an uninitialized quote, not a real price. Non-finite values have no
// decimal form and never compare.
func signal(price float64, target *float64) bool {
	return target != nil && *target > 0 && price != 0 && finite(price) && finite(*target)
}

func finite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}

// PriceDifference returns current - target.
func PriceDifference(price float64, target *float64) (float64, bool) {
	if !signal(price, target) {
		return 0, false
	}
	d := decimal.NewFromFloat(price).Sub(decimal.NewFromFloat(*target))
	return d.InexactFloat64(), true
}

// PercentToTarget returns (current - target) / current * 100.
func PercentToTarget(price float64, target *float64) (float64, bool) {
	if !signal(price, target) {
		return 0, false
	}
	p := decimal.NewFromFloat(price)
	pct := p.Sub(decimal.NewFromFloat(*target)).Div(p).Mul(hundred)
	return pct.InexactFloat64(), true
}

// DistanceToTarget returns (target - current) / current * 100, the upside left
// before the price reaches the target.
func DistanceToTarget(price float64, target *float64) (float64, bool) {
	pct, ok := PercentToTarget(price, target)
	if !ok {
		return 0, false
	}
	return -pct, true
}

// BuyTriggered reports whether the price has reached or fallen below target.
func BuyTriggered(price float64, target *float64) bool {
	d, ok := PriceDifference(price, target)
	return ok && d <= 0
}

// Score blends distance-to-target, dividend yield, revenue growth and profit
// margin into a 0-100 ranking number.
func Score(e core.WatchEntry) float64 {
	priceScore := 0.0
	if dist, ok := DistanceToTarget(e.Price, e.TargetPrice); ok && dist > 0 {
		priceScore = capped(dist / DistanceCap * 100)
	}
	dividendScore := capped(e.DividendYield / DividendCap * 100)
	growthScore := clamp(e.RevenueGrowth/GrowthCap*100, 0, 100)
	marginScore := capped(e.ProfitMargin / MarginCap * 100)

	score := priceScore*WeightPrice +
		dividendScore*WeightDividend +
		growthScore*WeightGrowth +
		marginScore*WeightMargin

	return clamp(score, 0, 100)
}

func capped(v float64) float64 {
	if v > 100 {
		return 100
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
