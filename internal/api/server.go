// internal/api/server.go
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	apihandler "github.com/newthinker/radar/internal/api/handler/api"
	"github.com/newthinker/radar/internal/api/job"
	"github.com/newthinker/radar/internal/api/response"
	"github.com/newthinker/radar/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server represents the HTTP server for the watchlist API
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
}

// Config holds server configuration
type Config struct {
	Host        string
	Port        int
	MetricsPath string // empty disables the metrics endpoint
}

// Dependencies holds the components the routes are served from.
type Dependencies struct {
	Watchlist apihandler.WatchlistApp
	Jobs      *job.Store
	Metrics   *metrics.Registry // optional
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if deps.Watchlist == nil {
		return nil, fmt.Errorf("watchlist is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Jobs == nil {
		deps.Jobs = job.NewStore(100, time.Hour)
	}

	mux := http.NewServeMux()
	s := &Server{
		logger: logger,
		mux:    mux,
	}
	s.setupRoutes(cfg, deps)

	var handler http.Handler = mux
	if deps.Metrics != nil {
		handler = metrics.HTTPMiddleware(deps.Metrics)(handler)
	}
	handler = metrics.LoggingMiddleware(logger)(handler)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 3 * time.Minute, // synchronous full refresh
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg Config, deps Dependencies) {
	watchlist := apihandler.NewWatchlistHandler(deps.Watchlist)
	refresh := apihandler.NewRefreshHandler(deps.Watchlist, deps.Jobs, deps.Metrics, s.logger)

	s.mux.HandleFunc("GET /api/v1/watchlist", watchlist.List)
	s.mux.HandleFunc("POST /api/v1/watchlist", watchlist.Add)
	s.mux.HandleFunc("POST /api/v1/watchlist/refresh", refresh.RefreshAll)
	s.mux.HandleFunc("POST /api/v1/watchlist/sort/{field}", watchlist.ToggleSort)
	s.mux.HandleFunc("DELETE /api/v1/watchlist/{symbol}", watchlist.Remove)
	s.mux.HandleFunc("PUT /api/v1/watchlist/{symbol}/target", watchlist.SetTarget)
	s.mux.HandleFunc("POST /api/v1/watchlist/{symbol}/refresh", watchlist.Refresh)
	s.mux.HandleFunc("GET /api/v1/jobs/{id}", refresh.GetJob)
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	if deps.Metrics != nil && cfg.MetricsPath != "" {
		s.mux.Handle("GET "+cfg.MetricsPath, promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}
}

// Handler returns the root handler including middleware.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
