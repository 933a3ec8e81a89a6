// Package handlers provides HTTP handlers for snapshot operations.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/ewanhart/nestegg/internal/domain"
	"github.com/ewanhart/nestegg/internal/modules/history"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles snapshot HTTP requests
type Handler struct {
	repo      *history.Repository
	recorder  *history.Recorder
	compactor *history.Compactor
	log       zerolog.Logger
}

// NewHandler creates a new snapshot handler
func NewHandler(repo *history.Repository, recorder *history.Recorder, compactor *history.Compactor, log zerolog.Logger) *Handler {
	return &Handler{
		repo:      repo,
		recorder:  recorder,
		compactor: compactor,
		log:       log.With().Str("handler", "snapshots").Logger(),
	}
}

// RegisterRoutes mounts the snapshot routes on a router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/snapshots/compact", h.HandleCompact)
	r.Post("/snapshots/{tier}/record", h.HandleRecord)
	r.Get("/snapshots/{tier}", h.HandleQuery)
}

// HandleRecord handles POST /api/snapshots/{tier}/record. Off-boundary calls
// succeed without writing, mirroring the scheduled path.
func (h *Handler) HandleRecord(w http.ResponseWriter, r *http.Request) {
	tier, ok := domain.ParseTier(chi.URLParam(r, "tier"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": "unknown snapshot tier",
		})
		return
	}

	recorded, err := h.recorder.Record(tier)
	if err != nil {
		h.log.Error().Err(err).Str("tier", string(tier)).Msg("Manual snapshot failed")
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error": "snapshot failed",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tier":     tier,
		"recorded": recorded,
	})
}

// HandleCompact handles POST /api/snapshots/compact
func (h *Handler) HandleCompact(w http.ResponseWriter, r *http.Request) {
	if err := h.compactor.Compact(); err != nil {
		h.log.Error().Err(err).Msg("Manual compaction failed")
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error": "compaction failed",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
	})
}

// HandleQuery handles GET /api/snapshots/{tier}?hours=N
func (h *Handler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	tier, ok := domain.ParseTier(chi.URLParam(r, "tier"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": "unknown snapshot tier",
		})
		return
	}

	hours := 24
	if raw := r.URL.Query().Get("hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"error": "hours must be a positive integer",
			})
			return
		}
		hours = parsed
	}

	now := time.Now()
	snapshots, err := h.repo.QueryRange(tier, now.Add(-time.Duration(hours)*time.Hour), now)
	if err != nil {
		h.log.Error().Err(err).Str("tier", string(tier)).Msg("Snapshot query failed")
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error": "snapshot query failed",
		})
		return
	}
	if snapshots == nil {
		snapshots = []domain.Snapshot{}
	}

	writeJSON(w, http.StatusOK, snapshots)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
