// Package mock provides a scripted QuoteSource for tests.
package mock

import (
	"context"
	"sync"

	"github.com/newthinker/radar/internal/core"
)

// Responder produces the result for the n-th call (1-based, counted across
// all symbols). It may block, e.g. on a channel, to order concurrent calls.
type Responder func(ctx context.Context, symbol string, call int) (*core.Quote, error)

// Source returns configured quotes or errors per symbol.
type Source struct {
	name string

	mu        sync.Mutex
	quotes    map[string]core.Quote
	errs      map[string]error
	calls     map[string]int
	total     int
	responder Responder
}

// New creates an empty mock source.
func New() *Source {
	return &Source{
		name:   "mock",
		quotes: make(map[string]core.Quote),
		errs:   make(map[string]error),
		calls:  make(map[string]int),
	}
}

// WithName sets the source name.
func (s *Source) WithName(name string) *Source {
	s.name = name
	return s
}

func (s *Source) Name() string { return s.name }

// SetQuote makes Fetch(q.Symbol) return q and clears any configured error.
func (s *Source) SetQuote(q core.Quote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes[q.Symbol] = q
	delete(s.errs, q.Symbol)
}

// SetError makes Fetch(symbol) fail with err.
func (s *Source) SetError(symbol string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[symbol] = err
}

// SetResponder overrides the configured quotes and errors.
func (s *Source) SetResponder(r Responder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responder = r
}

// Calls returns how many times symbol was fetched.
func (s *Source) Calls(symbol string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[symbol]
}

// TotalCalls returns the number of Fetch calls for all symbols.
func (s *Source) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

func (s *Source) Fetch(ctx context.Context, symbol string) (*core.Quote, error) {
	s.mu.Lock()
	s.calls[symbol]++
	s.total++
	call := s.total
	responder := s.responder
	q, hasQuote := s.quotes[symbol]
	err := s.errs[symbol]
	s.mu.Unlock()

	if responder != nil {
		return responder(ctx, symbol, call)
	}
	if err != nil {
		return nil, err
	}
	if !hasQuote {
		return nil, core.WrapError(core.ErrSymbolNotFound, nil)
	}
	q.Trend = append([]float64(nil), q.Trend...)
	return &q, nil
}
