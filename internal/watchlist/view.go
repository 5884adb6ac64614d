package watchlist

import (
	"github.com/newthinker/radar/internal/core"
	"github.com/newthinker/radar/internal/sorting"
	"github.com/newthinker/radar/internal/valuation"
)

// Item is an entry together with its derived metrics.
type Item struct {
	core.WatchEntry
	valuation.Metrics
}

// View is the presentation snapshot of the watchlist.
type View struct {
	Items     []Item         `json:"items"`
	Sort      sorting.Config `json:"sort"`
	Loading   bool           `json:"loading"`
	LastError string         `json:"last_error,omitempty"`
}

// Items attaches metrics to each entry, keeping order.
func Items(entries []core.WatchEntry) []Item {
	items := make([]Item, len(entries))
	for i, e := range entries {
		items[i] = Item{WatchEntry: e, Metrics: valuation.Compute(e)}
	}
	return items
}

// View returns the list sorted by cfg, or by the active config when cfg is nil.
// Passing cfg does not change the active config.
func (r *Reconciler) View(cfg *sorting.Config) View {
	r.mu.RLock()
	active := r.sortCfg
	if cfg != nil {
		active = *cfg
	}
	sorted := sorting.Sort(r.entries, active)
	lastErr := r.lastErr
	r.mu.RUnlock()

	v := View{
		Items:   Items(sorted),
		Sort:    active,
		Loading: r.Loading(),
	}
	if lastErr != nil {
		v.LastError = lastErr.Error()
	}
	return v
}
