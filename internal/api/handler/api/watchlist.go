// internal/api/handler/api/watchlist.go
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/newthinker/radar/internal/api/response"
	"github.com/newthinker/radar/internal/core"
	"github.com/newthinker/radar/internal/sorting"
	"github.com/newthinker/radar/internal/watchlist"
)

// WatchlistApp defines the watchlist operations the handlers need.
type WatchlistApp interface {
	View(cfg *sorting.Config) watchlist.View
	Get(symbol string) (core.WatchEntry, bool)
	AddSymbol(ctx context.Context, symbol, targetInput string) (core.WatchEntry, error)
	RemoveSymbol(ctx context.Context, symbol string) bool
	UpdateTargetPrice(ctx context.Context, symbol string, price *float64) error
	RefreshOne(ctx context.Context, symbol string) error
	RefreshAll(ctx context.Context)
	ToggleSort(field sorting.Field) sorting.Config
}

// WatchlistHandler handles watchlist API requests.
type WatchlistHandler struct {
	app WatchlistApp
}

// NewWatchlistHandler creates a new watchlist handler.
func NewWatchlistHandler(app WatchlistApp) *WatchlistHandler {
	return &WatchlistHandler{app: app}
}

// AddRequest is the request body for adding a symbol. TargetPrice accepts a
// number or a numeric string.
type AddRequest struct {
	Symbol      string          `json:"symbol"`
	TargetPrice json.RawMessage `json:"target_price,omitempty"`
}

// TargetRequest is the request body for setting a target. A null target
// clears it.
type TargetRequest struct {
	TargetPrice json.RawMessage `json:"target_price"`
}

// List handles GET /api/v1/watchlist?sort=<field>&direction=<dir>
func (h *WatchlistHandler) List(w http.ResponseWriter, r *http.Request) {
	var override *sorting.Config
	q := r.URL.Query()
	if field := q.Get("sort"); field != "" {
		f, err := sorting.ParseField(field)
		if err != nil {
			response.Fail(w, err)
			return
		}
		d, err := sorting.ParseDirection(q.Get("direction"))
		if err != nil {
			response.Fail(w, err)
			return
		}
		override = &sorting.Config{Field: f, Direction: d}
	}

	view := h.app.View(override)
	response.List(w, http.StatusOK, view, len(view.Items))
}

// Add handles POST /api/v1/watchlist
func (h *WatchlistHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req AddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrValidation, err))
		return
	}

	target, err := targetInput(req.TargetPrice)
	if err != nil {
		response.Fail(w, err)
		return
	}

	entry, err := h.app.AddSymbol(r.Context(), req.Symbol, target)
	if err != nil {
		response.Fail(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, watchlist.Items([]core.WatchEntry{entry})[0])
}

// Remove handles DELETE /api/v1/watchlist/{symbol}
func (h *WatchlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	if !h.app.RemoveSymbol(r.Context(), symbol) {
		response.Error(w, http.StatusNotFound,
			core.WrapError(core.ErrSymbolNotFound, fmt.Errorf("%s is not in the watchlist", symbol)))
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"symbol":  strings.ToUpper(symbol),
		"removed": true,
	})
}

// SetTarget handles PUT /api/v1/watchlist/{symbol}/target
func (h *WatchlistHandler) SetTarget(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")

	var req TargetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrValidation, err))
		return
	}
	if len(req.TargetPrice) == 0 {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrValidation, fmt.Errorf("target_price is required, use null to clear")))
		return
	}

	var price *float64
	if err := json.Unmarshal(req.TargetPrice, &price); err != nil {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrValidation, fmt.Errorf("target_price must be a number or null")))
		return
	}

	if err := h.app.UpdateTargetPrice(r.Context(), symbol, price); err != nil {
		response.Fail(w, err)
		return
	}
	h.writeEntry(w, symbol)
}

// Refresh handles POST /api/v1/watchlist/{symbol}/refresh
func (h *WatchlistHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	if err := h.app.RefreshOne(r.Context(), symbol); err != nil {
		response.Fail(w, err)
		return
	}
	h.writeEntry(w, symbol)
}

// ToggleSort handles POST /api/v1/watchlist/sort/{field}
func (h *WatchlistHandler) ToggleSort(w http.ResponseWriter, r *http.Request) {
	field, err := sorting.ParseField(r.PathValue("field"))
	if err != nil {
		response.Fail(w, err)
		return
	}

	h.app.ToggleSort(field)
	view := h.app.View(nil)
	response.List(w, http.StatusOK, view, len(view.Items))
}

func (h *WatchlistHandler) writeEntry(w http.ResponseWriter, symbol string) {
	entry, ok := h.app.Get(symbol)
	if !ok {
		response.Error(w, http.StatusNotFound, core.WrapError(core.ErrSymbolNotFound, nil))
		return
	}
	response.JSON(w, http.StatusOK, watchlist.Items([]core.WatchEntry{entry})[0])
}

// targetInput converts a JSON number, numeric string or null to the text the
// watchlist parses.
func targetInput(raw json.RawMessage) (string, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return "", nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return "", core.WrapError(core.ErrValidation, err)
		}
		return str, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", core.WrapError(core.ErrValidation, fmt.Errorf("target_price must be a number"))
	}
	return n.String(), nil
}
