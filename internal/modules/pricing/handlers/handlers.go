// Package handlers provides HTTP handlers for price operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ewanhart/nestegg/internal/domain"
	"github.com/ewanhart/nestegg/internal/modules/holdings"
	"github.com/ewanhart/nestegg/internal/modules/pricing"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles price HTTP requests
type Handler struct {
	router   *pricing.Router
	updater  *pricing.Updater
	holdings *holdings.Repository
	log      zerolog.Logger
}

// NewHandler creates a new pricing handler
func NewHandler(router *pricing.Router, updater *pricing.Updater, holdingsRepo *holdings.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		router:   router,
		updater:  updater,
		holdings: holdingsRepo,
		log:      log.With().Str("handler", "pricing").Logger(),
	}
}

// RegisterRoutes mounts the pricing routes on a router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/prices/{identifier}", h.HandleGetPrice)
	r.Post("/prices/refresh", h.HandleRefresh)
	r.Get("/holdings", h.HandleGetHoldings)
}

// HandleGetPrice handles GET /api/prices/{identifier}?platform=
func (h *Handler) HandleGetPrice(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "identifier")
	platform := r.URL.Query().Get("platform")

	quote, err := h.router.GetPrice(r.Context(), identifier, platform)
	if err != nil {
		var routeErr *domain.RouteError
		switch {
		case errors.As(err, &routeErr):
			writeJSON(w, http.StatusBadGateway, map[string]interface{}{
				"error":      "all price sources exhausted",
				"identifier": routeErr.Identifier,
				"class":      routeErr.Class,
				"attempts":   routeErr.Attempts,
			})
		case errors.Is(err, domain.ErrNoAdapters):
			writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
				"error":      "identifier could not be classified to a priceable asset class",
				"identifier": identifier,
			})
		default:
			h.log.Error().Err(err).Str("identifier", identifier).Msg("Price lookup failed")
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
				"error": "price lookup failed",
			})
		}
		return
	}

	writeJSON(w, http.StatusOK, quote)
}

// HandleRefresh handles POST /api/prices/refresh
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	state, err := h.updater.UpdateAll(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Manual price refresh failed")
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error": "price refresh failed",
		})
		return
	}

	writeJSON(w, http.StatusOK, state)
}

// HandleGetHoldings handles GET /api/holdings
func (h *Handler) HandleGetHoldings(w http.ResponseWriter, r *http.Request) {
	all, err := h.holdings.GetCurrentHoldings()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load holdings")
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error": "failed to load holdings",
		})
		return
	}
	if all == nil {
		all = []domain.Holding{}
	}

	writeJSON(w, http.StatusOK, all)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
