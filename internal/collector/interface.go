package collector

import (
	"context"
	"net/http"
	"time"

	"github.com/newthinker/radar/internal/core"
)

// DefaultTimeout bounds a single provider HTTP request.
const DefaultTimeout = 10 * time.Second

// QuoteSource fetches current quote data for a symbol
type QuoteSource interface {
	// Name identifies the source in logs and metrics
	Name() string

	// Fetch returns the quote or a FETCH_FAILED / SYMBOL_NOT_FOUND /
	// RATE_LIMITED / COLLECTOR_TIMEOUT error
	Fetch(ctx context.Context, symbol string) (*core.Quote, error)
}

// Config holds provider configuration
type Config struct {
	BaseURL   string
	APIKey    string
	APISecret string
	Feed      string
	Timeout   time.Duration
}

// HTTPClient returns a client with the configured timeout
func (c Config) HTTPClient() *http.Client {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}
