package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/newthinker/radar/internal/core"
)

// Registry holds quote sources in priority order. It is itself a QuoteSource
// that falls back to the next source when one fails.
type Registry struct {
	mu      sync.RWMutex
	sources []QuoteSource
}

// NewRegistry creates a new source registry
func NewRegistry(sources ...QuoteSource) *Registry {
	r := &Registry{}
	for _, s := range sources {
		r.Register(s)
	}
	return r
}

// Register appends a source, replacing any source with the same name in place
func (r *Registry) Register(s QuoteSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.sources {
		if existing.Name() == s.Name() {
			r.sources[i] = s
			return
		}
	}
	r.sources = append(r.sources, s)
}

// Get retrieves a source by name
func (r *Registry) Get(name string) (QuoteSource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sources {
		if s.Name() == name {
			return s, true
		}
	}
	return nil, false
}

// GetAll returns all registered sources in priority order
func (r *Registry) GetAll() []QuoteSource {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]QuoteSource, len(r.sources))
	copy(result, r.sources)
	return result
}

func (r *Registry) Name() string {
	return "registry"
}

// Fetch tries each source in order and returns the first success.
func (r *Registry) Fetch(ctx context.Context, symbol string) (*core.Quote, error) {
	sources := r.GetAll()
	if len(sources) == 0 {
		return nil, core.WrapError(core.ErrFetchFailed, fmt.Errorf("no quote sources registered"))
	}

	var errs []error
	for _, s := range sources {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		q, err := s.Fetch(ctx, symbol)
		if err == nil {
			return q, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
	}

	if len(errs) == 1 {
		if _, ok := core.CodeOf(errs[0]); ok {
			return nil, errs[0]
		}
	}
	return nil, core.WrapError(core.ErrFetchFailed, errors.Join(errs...))
}
