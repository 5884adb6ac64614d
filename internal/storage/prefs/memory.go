package prefs

import (
	"context"
	"sync"
)

// Memory keeps preferences in process memory. It does not survive restarts and
// is used for tests and the "memory" storage type.
type Memory struct {
	mu      sync.RWMutex
	targets map[string]float64

	// LoadErr and SaveErr, when set, are returned by Load and Save.
	LoadErr error
	SaveErr error
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{targets: make(map[string]float64)}
}

func (m *Memory) Load(ctx context.Context) (map[string]float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	return clone(m.targets), nil
}

func (m *Memory) Save(ctx context.Context, targets map[string]float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.targets = clone(targets)
	return nil
}
