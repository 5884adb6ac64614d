package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Watchlist metrics
	quoteFetches        *prometheus.CounterVec
	cacheLookups        *prometheus.CounterVec
	refreshDuration     *prometheus.HistogramVec
	persistenceFailures prometheus.Counter
	jobsActive          *prometheus.GaugeVec
	watchlistSymbols    prometheus.Gauge
	buySignals          prometheus.Gauge
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	// Watchlist metrics
	r.quoteFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radar_quote_fetches_total",
			Help: "Total number of quote fetches",
		},
		[]string{"source", "status"},
	)
	r.cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radar_cache_lookups_total",
			Help: "Total number of quote cache lookups",
		},
		[]string{"result"},
	)
	r.refreshDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "radar_refresh_duration_seconds",
			Help:    "Watchlist refresh duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"scope"},
	)
	r.persistenceFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "radar_persistence_failures_total",
			Help: "Total number of failed target price saves",
		},
	)
	r.jobsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "radar_jobs_active",
			Help: "Number of active jobs",
		},
		[]string{"type"},
	)
	r.watchlistSymbols = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "radar_watchlist_symbols",
			Help: "Number of symbols in watchlist",
		},
	)
	r.buySignals = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "radar_buy_signals",
			Help: "Number of symbols at or below their target price",
		},
	)

	reg.MustRegister(r.quoteFetches)
	reg.MustRegister(r.cacheLookups)
	reg.MustRegister(r.refreshDuration)
	reg.MustRegister(r.persistenceFailures)
	reg.MustRegister(r.jobsActive)
	reg.MustRegister(r.watchlistSymbols)
	reg.MustRegister(r.buySignals)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// The watchlist recorders below accept a nil receiver so components can run
// without metrics.

// RecordQuoteFetch records a quote fetch outcome ("ok" or an error code).
func (r *Registry) RecordQuoteFetch(source, status string) {
	if r == nil {
		return
	}
	r.quoteFetches.WithLabelValues(source, status).Inc()
}

// RecordCacheLookup records a cache hit or miss.
func (r *Registry) RecordCacheLookup(hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}

// RecordRefresh records a refresh of one symbol or the whole list.
func (r *Registry) RecordRefresh(scope string, duration float64) {
	if r == nil {
		return
	}
	r.refreshDuration.WithLabelValues(scope).Observe(duration)
}

// RecordPersistenceFailure records a failed target price save.
func (r *Registry) RecordPersistenceFailure() {
	if r == nil {
		return
	}
	r.persistenceFailures.Inc()
}

// SetJobsActive sets the number of active jobs of a type.
func (r *Registry) SetJobsActive(jobType string, count int) {
	if r == nil {
		return
	}
	r.jobsActive.WithLabelValues(jobType).Set(float64(count))
}

// SetWatchlistSize sets the watchlist size.
func (r *Registry) SetWatchlistSize(size int) {
	if r == nil {
		return
	}
	r.watchlistSymbols.Set(float64(size))
}

// SetBuySignals sets the number of triggered buy signals.
func (r *Registry) SetBuySignals(count int) {
	if r == nil {
		return
	}
	r.buySignals.Set(float64(count))
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
