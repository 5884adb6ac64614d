// Package sorting orders watchlist entries by a selectable field.
package sorting

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/newthinker/radar/internal/core"
	"github.com/newthinker/radar/internal/valuation"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Field is a sortable column.
type Field string

const (
	FieldSymbol          Field = "symbol"
	FieldName            Field = "name"
	FieldPrice           Field = "price"
	FieldTargetPrice     Field = "targetPrice"
	FieldDifference      Field = "difference"
	FieldPercentToTarget Field = "percentToTarget"
	FieldChange          Field = "change"
	FieldChangePercent   Field = "changePercent"
	FieldVolume          Field = "volume"
	FieldMarketCap       Field = "marketCap"
	FieldPE              Field = "pe"
	FieldScore           Field = "score"
)

// Fields lists every sortable field in display order.
var Fields = []Field{
	FieldSymbol, FieldName, FieldPrice, FieldTargetPrice, FieldDifference,
	FieldPercentToTarget, FieldChange, FieldChangePercent, FieldVolume,
	FieldMarketCap, FieldPE, FieldScore,
}

// ParseField resolves a field name case-insensitively; "target_price" style
// names are accepted too.
func ParseField(s string) (Field, error) {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", ""))
	for _, f := range Fields {
		if strings.ToLower(string(f)) == key {
			return f, nil
		}
	}
	return "", core.WrapError(core.ErrValidation, fmt.Errorf("unknown sort field: %q", s))
}

// Direction is the sort order. DirectionNone keeps natural watchlist order.
type Direction string

const (
	DirectionAsc  Direction = "asc"
	DirectionDesc Direction = "desc"
	DirectionNone Direction = "none"
)

// ParseDirection resolves a direction name.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case DirectionAsc, "":
		return DirectionAsc, nil
	case DirectionDesc:
		return DirectionDesc, nil
	case DirectionNone:
		return DirectionNone, nil
	}
	return "", core.WrapError(core.ErrValidation, fmt.Errorf("unknown sort direction: %q", s))
}

// Mode selects how repeated clicks on the active field cycle direction.
type Mode string

const (
	// ModeToggle flips asc <-> desc.
	ModeToggle Mode = "toggle"
	// ModeCycle goes asc -> desc -> none -> asc.
	ModeCycle Mode = "cycle"
)

// ParseMode resolves a mode name, defaulting to ModeToggle.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeToggle, "":
		return ModeToggle, nil
	case ModeCycle:
		return ModeCycle, nil
	}
	return "", core.WrapError(core.ErrValidation, fmt.Errorf("unknown sort mode: %q", s))
}

// Config is the active field and direction.
type Config struct {
	Field     Field     `json:"field"`
	Direction Direction `json:"direction"`
}

// DefaultConfig sorts by symbol ascending.
func DefaultConfig() Config {
	return Config{Field: FieldSymbol, Direction: DirectionAsc}
}

// Toggle returns the config after the user selects field. Selecting a new
// field always starts ascending.
func (c Config) Toggle(field Field, mode Mode) Config {
	if c.Field != field {
		return Config{Field: field, Direction: DirectionAsc}
	}
	switch c.Direction {
	case DirectionAsc:
		return Config{Field: field, Direction: DirectionDesc}
	case DirectionDesc:
		if mode == ModeCycle {
			return Config{Field: field, Direction: DirectionNone}
		}
		return Config{Field: field, Direction: DirectionAsc}
	default:
		return Config{Field: field, Direction: DirectionAsc}
	}
}

// Ordering is the result of comparing two entries.
type Ordering int

const (
	Less    Ordering = -1
	Equal   Ordering = 0
	Greater Ordering = 1
)

func (o Ordering) reverse() Ordering { return -o }

// comparator compares two entries on one field.
type comparator func(a, b *core.WatchEntry) Ordering

func numeric(key func(e *core.WatchEntry) float64) comparator {
	return func(a, b *core.WatchEntry) Ordering {
		return Ordering(cmp.Compare(key(a), key(b)))
	}
}

func text(col *collate.Collator, key func(e *core.WatchEntry) string) comparator {
	return func(a, b *core.WatchEntry) Ordering {
		return Ordering(col.CompareString(key(a), key(b)))
	}
}

// displayValue prefers the parsed numeric value and falls back to the
// display string for entries that only carry the formatted form.
func displayValue(v float64, display string) float64 {
	if v != 0 {
		return v
	}
	return valuation.ParseNumeric(display)
}

func comparatorFor(field Field, col *collate.Collator) comparator {
	switch field {
	case FieldSymbol:
		return text(col, func(e *core.WatchEntry) string { return e.Symbol })
	case FieldName:
		return text(col, func(e *core.WatchEntry) string { return e.Name })
	case FieldPrice:
		return numeric(func(e *core.WatchEntry) float64 { return e.Price })
	case FieldTargetPrice:
		return numeric(func(e *core.WatchEntry) float64 { return e.Target() })
	case FieldDifference:
		// No target sorts as a zero difference
		return numeric(func(e *core.WatchEntry) float64 {
			d, _ := valuation.PriceDifference(e.Price, e.TargetPrice)
			return d
		})
	case FieldPercentToTarget:
		return numeric(func(e *core.WatchEntry) float64 {
			p, _ := valuation.PercentToTarget(e.Price, e.TargetPrice)
			return p
		})
	case FieldChange:
		return numeric(func(e *core.WatchEntry) float64 { return e.Change })
	case FieldChangePercent:
		return numeric(func(e *core.WatchEntry) float64 { return e.ChangePercent })
	case FieldVolume:
		return numeric(func(e *core.WatchEntry) float64 { return displayValue(e.VolumeValue, e.Volume) })
	case FieldMarketCap:
		return numeric(func(e *core.WatchEntry) float64 { return displayValue(e.MarketCapValue, e.MarketCap) })
	case FieldPE:
		return numeric(func(e *core.WatchEntry) float64 { return e.PE })
	case FieldScore:
		return numeric(func(e *core.WatchEntry) float64 { return valuation.Score(*e) })
	}
	return nil
}

// Sort returns a new, stably ordered slice. list is never modified. An unknown
// field or DirectionNone yields a copy in the original order.
func Sort(list []core.WatchEntry, cfg Config) []core.WatchEntry {
	out := make([]core.WatchEntry, len(list))
	for i := range list {
		out[i] = list[i].Clone()
	}
	if cfg.Direction == DirectionNone {
		return out
	}

	// Collators keep internal buffers and are not safe to share
	cmpFn := comparatorFor(cfg.Field, collate.New(language.English))
	if cmpFn == nil {
		return out
	}

	desc := cfg.Direction == DirectionDesc
	slices.SortStableFunc(out, func(a, b core.WatchEntry) int {
		o := cmpFn(&a, &b)
		if desc {
			o = o.reverse()
		}
		return int(o)
	})
	return out
}
