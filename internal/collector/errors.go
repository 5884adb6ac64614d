package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/newthinker/radar/internal/core"
)

// TransportError classifies a failed HTTP round trip as COLLECTOR_TIMEOUT or
// FETCH_FAILED.
func TransportError(source string, err error) error {
	var t interface{ Timeout() bool }
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &t) && t.Timeout()) {
		return core.WrapError(core.ErrCollectorTimeout, fmt.Errorf("%s: %w", source, err))
	}
	return core.WrapError(core.ErrFetchFailed, fmt.Errorf("%s: %w", source, err))
}

// StatusError maps a non-200 provider response to a core error.
func StatusError(source string, status int, detail string) error {
	cause := fmt.Errorf("%s: unexpected status %d", source, status)
	if detail != "" {
		cause = fmt.Errorf("%s: %d %s", source, status, detail)
	}
	switch status {
	case http.StatusTooManyRequests:
		return core.WrapError(core.ErrRateLimited, cause)
	case http.StatusNotFound:
		return core.WrapError(core.ErrSymbolNotFound, cause)
	default:
		return core.WrapError(core.ErrFetchFailed, cause)
	}
}
