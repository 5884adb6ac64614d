package api

import (
	"context"
	"net/http"
	"time"

	"github.com/newthinker/radar/internal/api/job"
	"github.com/newthinker/radar/internal/api/response"
	"github.com/newthinker/radar/internal/metrics"
	"go.uber.org/zap"
)

const refreshTimeout = 2 * time.Minute

const jobTypeRefresh = "refresh"

// RefreshHandler runs full watchlist refreshes, synchronously or as jobs.
type RefreshHandler struct {
	app      WatchlistApp
	jobStore *job.Store
	metrics  *metrics.Registry
	logger   *zap.Logger
}

// NewRefreshHandler creates a new refresh handler.
func NewRefreshHandler(app WatchlistApp, jobStore *job.Store, reg *metrics.Registry, logger *zap.Logger) *RefreshHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RefreshHandler{app: app, jobStore: jobStore, metrics: reg, logger: logger}
}

// RefreshAll handles POST /api/v1/watchlist/refresh[?async=true]
func (h *RefreshHandler) RefreshAll(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("async") != "true" {
		h.app.RefreshAll(r.Context())
		view := h.app.View(nil)
		response.List(w, http.StatusOK, view, len(view.Items))
		return
	}

	j := h.jobStore.Create(jobTypeRefresh)
	h.metrics.SetJobsActive(jobTypeRefresh, h.jobStore.Active(jobTypeRefresh))

	go h.run(j.ID)

	response.JSON(w, http.StatusAccepted, map[string]any{
		"job_id": j.ID,
		"status": j.Status,
	})
}

func (h *RefreshHandler) run(jobID string) {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	h.jobStore.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusRunning
	})

	h.app.RefreshAll(ctx)
	view := h.app.View(nil)

	h.jobStore.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusComplete
		j.Progress = 100
		j.Result = map[string]any{
			"symbols":    len(view.Items),
			"last_error": view.LastError,
		}
	})
	h.metrics.SetJobsActive(jobTypeRefresh, h.jobStore.Active(jobTypeRefresh))
	h.logger.Debug("refresh job complete", zap.String("job_id", jobID))
}

// GetJob handles GET /api/v1/jobs/{id}
func (h *RefreshHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	j, err := h.jobStore.Get(r.PathValue("id"))
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, j)
}
