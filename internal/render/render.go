// Package render prints watchlist views for the command line.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/newthinker/radar/internal/watchlist"
)

// Options controls table output.
type Options struct {
	Color bool
}

var header = table.Row{"SYMBOL", "NAME", "PRICE", "CHG%", "VOLUME", "MKT CAP", "TARGET", "DIFF", "TO TARGET", "SIGNAL", "TREND"}

// Table writes the view as a borderless table. Buy signals are marked in the
// SIGNAL column and, with Color set, highlighted in green.
func Table(w io.Writer, v watchlist.View, opts Options) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	if opts.Color {
		tw.SetStyle(table.StyleColoredDark)
	} else {
		tw.SetStyle(table.StyleLight)
	}
	tw.Style().Options.DrawBorder = false
	tw.Style().Options.SeparateRows = false
	tw.Style().Options.SeparateColumns = false

	tw.AppendHeader(header)

	cfgs := make([]table.ColumnConfig, 0, len(header))
	for i := range header {
		cfg := table.ColumnConfig{Number: i + 1}
		if i >= 2 && i <= 8 {
			cfg.Align = text.AlignRight
			cfg.AlignHeader = text.AlignRight
		}
		if i == 1 {
			cfg.WidthMax = 24
		}
		cfgs = append(cfgs, cfg)
	}
	tw.SetColumnConfigs(cfgs)

	for _, it := range v.Items {
		row := table.Row{
			it.Symbol,
			it.Name,
			fmt.Sprintf("%.2f", it.Price),
			signed(it.ChangePercent, opts.Color),
			it.Volume,
			it.MarketCap,
			optional(it.TargetPrice, "%.2f"),
			optional(it.Difference, "%+.2f"),
			optional(it.PercentToTarget, "%+.2f%%"),
			"",
			Sparkline(it.Trend),
		}
		if it.BuyTriggered {
			row[9] = "BUY"
			if opts.Color {
				row[0] = text.Colors{text.FgGreen, text.Bold}.Sprint(it.Symbol)
				row[9] = text.Colors{text.FgGreen, text.Bold}.Sprint("BUY")
			}
		}
		tw.AppendRow(row)
	}

	tw.AppendFooter(table.Row{"", fmt.Sprintf("%d symbols", len(v.Items)), "", "", "", "", "", "", "", fmt.Sprintf("sort %s %s", v.Sort.Field, v.Sort.Direction)})
	tw.Render()

	if v.LastError != "" {
		fmt.Fprintf(w, "\nlast error: %s\n", v.LastError)
	}
}

// JSON writes the view as JSON.
func JSON(w io.Writer, v watchlist.View, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

var sparks = []rune("▁▂▃▄▅▆▇█")

// Sparkline draws the trend with block characters scaled between its minimum
// and maximum. Zero samples are placeholders and draw as spaces.
func Sparkline(trend []float64) string {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range trend {
		if p == 0 {
			continue
		}
		lo = math.Min(lo, p)
		hi = math.Max(hi, p)
	}
	if math.IsInf(lo, 1) {
		return ""
	}

	var b strings.Builder
	for _, p := range trend {
		switch {
		case p == 0:
			b.WriteRune(' ')
		case hi == lo:
			b.WriteRune(sparks[len(sparks)/2])
		default:
			idx := int((p - lo) / (hi - lo) * float64(len(sparks)-1))
			b.WriteRune(sparks[idx])
		}
	}
	return b.String()
}

func optional(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}

func signed(v float64, color bool) string {
	s := fmt.Sprintf("%+.2f%%", v)
	if !color || v == 0 {
		return s
	}
	if v < 0 {
		return text.Colors{text.FgRed}.Sprint(s)
	}
	return text.Colors{text.FgGreen}.Sprint(s)
}
