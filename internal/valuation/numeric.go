package valuation

import (
	"math"
	"strconv"
	"strings"
)

var magnitudes = map[byte]float64{
	'K': 1e3,
	'M': 1e6,
	'B': 1e9,
	'T': 1e12,
}

// ParseNumeric extracts a number from a display string such as "12.3M",
// "$45.6B" or "1,234". Everything except digits and dots is dropped; a trailing
// K/M/B/T scales the result. Unparseable input yields 0.
func ParseNumeric(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	mult := 1.0
	if m, ok := magnitudes[strings.ToUpper(s[len(s)-1:])[0]]; ok {
		mult = m
	}

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= '0' && c <= '9') || c == '.' {
			b.WriteByte(c)
		}
	}

	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0
	}
	return v * mult
}

// FormatCompact renders v with a magnitude suffix, e.g. 12300000 -> "12.3M".
func FormatCompact(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1e12:
		return trimFloat(v/1e12) + "T"
	case abs >= 1e9:
		return trimFloat(v/1e9) + "B"
	case abs >= 1e6:
		return trimFloat(v/1e6) + "M"
	case abs >= 1e3:
		return trimFloat(v/1e3) + "K"
	default:
		return trimFloat(v)
	}
}

func trimFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', 1, 64)
	return strings.TrimSuffix(s, ".0")
}
