package metrics

import (
	"net/http"
	"time"
)

// unmatchedRoute labels requests no route pattern matched, so unknown paths
// cannot grow the label set.
const unmatchedRoute = "unmatched"

// responseWriter records the status code written by the wrapped handler.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMiddleware records request count, duration and in-flight gauge. Requests
// are labelled by the ServeMux pattern that served them ("GET
// /api/v1/watchlist/{symbol}/refresh"), not the raw path.
func HTTPMiddleware(reg *Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reg.InFlightInc()
			defer reg.InFlightDec()

			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)

			reg.RecordRequest(r.Method, route(r), rw.statusCode, time.Since(start).Seconds())
		})
	}
}

// route returns the pattern the mux matched. The mux sets it on the request
// while serving, so it is only available after next.ServeHTTP returns.
func route(r *http.Request) string {
	if r.Pattern == "" {
		return unmatchedRoute
	}
	return r.Pattern
}
