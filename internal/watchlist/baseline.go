package watchlist

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BaselineItem is a symbol tracked from startup, with an optional default
// target that a stored target overrides.
type BaselineItem struct {
	Symbol string   `yaml:"symbol" mapstructure:"symbol"`
	Name   string   `yaml:"name" mapstructure:"name"`
	Target *float64 `yaml:"target" mapstructure:"target"`
}

// baselineNode is either an item or a named group holding a nested list.
type baselineNode struct {
	Symbol    string         `yaml:"symbol"`
	Sym       string         `yaml:"sym"`
	Name      string         `yaml:"name"`
	Target    *float64       `yaml:"target"`
	Watchlist []baselineNode `yaml:"watchlist"`
}

type baselineFile struct {
	Watchlist []baselineNode `yaml:"watchlist"`
}

// LoadBaseline reads a YAML watchlist file. Groups are flattened in file order:
//
//	watchlist:
//	  - symbol: AAPL
//	    target: 180
//	  - name: banks
//	    watchlist:
//	      - sym: JPM
func LoadBaseline(path string) ([]BaselineItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading baseline: %w", err)
	}
	return ParseBaseline(data)
}

// ParseBaseline parses the YAML watchlist format.
func ParseBaseline(data []byte) ([]BaselineItem, error) {
	var f baselineFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing baseline: %w", err)
	}

	var items []BaselineItem
	var walk func(nodes []baselineNode)
	walk = func(nodes []baselineNode) {
		for _, n := range nodes {
			if len(n.Watchlist) > 0 {
				walk(n.Watchlist)
				continue
			}
			sym := n.Symbol
			if sym == "" {
				sym = n.Sym
			}
			if sym == "" {
				continue
			}
			items = append(items, BaselineItem{Symbol: sym, Name: n.Name, Target: n.Target})
		}
	}
	walk(f.Watchlist)
	return items, nil
}
