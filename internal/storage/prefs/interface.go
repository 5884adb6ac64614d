// internal/storage/prefs/interface.go
package prefs

import (
	"context"
	"encoding/json"
	"fmt"
)

// Preferences persists the symbol -> target price mapping outside the process.
// A backend with nothing stored yet returns an empty mapping, not an error.
type Preferences interface {
	// Load returns every stored target price
	Load(ctx context.Context) (map[string]float64, error)

	// Save replaces the stored mapping with targets
	Save(ctx context.Context, targets map[string]float64) error
}

// document is the JSON shape shared by the file and S3 backends.
type document struct {
	Version int                `json:"version"`
	Targets map[string]float64 `json:"targets"`
}

const documentVersion = 1

func encode(targets map[string]float64) ([]byte, error) {
	if targets == nil {
		targets = map[string]float64{}
	}
	return json.MarshalIndent(document{Version: documentVersion, Targets: targets}, "", "  ")
}

func decode(data []byte) (map[string]float64, error) {
	if len(data) == 0 {
		return map[string]float64{}, nil
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding preferences: %w", err)
	}
	if doc.Targets == nil {
		doc.Targets = map[string]float64{}
	}
	return doc.Targets, nil
}

func clone(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
