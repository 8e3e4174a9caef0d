// Package handlers provides HTTP handlers for the market catalog.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/aristath/bagz/internal/domain"
	"github.com/aristath/bagz/internal/modules/catalog"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// OptionSource provides the coin picker options.
type OptionSource interface {
	SelectableOptions() []domain.SelectOption
}

// Handler handles catalog HTTP requests
type Handler struct {
	cache       *catalog.Cache
	options     OptionSource
	referenceID string
	log         zerolog.Logger
}

// NewHandler creates a new catalog handler
func NewHandler(cache *catalog.Cache, options OptionSource, referenceID string, log zerolog.Logger) *Handler {
	return &Handler{
		cache:       cache,
		options:     options,
		referenceID: referenceID,
		log:         log.With().Str("handler", "catalog").Logger(),
	}
}

// RegisterRoutes registers all catalog routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/catalog", func(r chi.Router) {
		r.Get("/options", h.HandleGetOptions)     // Coin picker options
		r.Get("/dominance", h.HandleGetDominance) // Reference coin market cap share
		r.Post("/refresh", h.HandleRefresh)       // On-demand catalog reload
	})
}

// HandleGetOptions returns the catalog as picker options, largest market cap first
func (h *Handler) HandleGetOptions(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.options.SelectableOptions())
}

// HandleGetDominance returns the reference coin's dominance, or 204 when withheld
func (h *Handler) HandleGetDominance(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("ref")
	if ref == "" {
		ref = h.referenceID
	}

	stat, ok := h.cache.Dominance(ref)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.writeJSON(w, http.StatusOK, stat)
}

// HandleRefresh reloads the catalog from the provider
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	entries, err := h.cache.Refresh(r.Context())
	if err != nil {
		h.log.Warn().Err(err).Msg("On-demand catalog refresh failed")
		h.writeJSON(w, http.StatusBadGateway, map[string]interface{}{
			"refreshed": false,
			"entries":   h.cache.Len(),
			"error":     err.Error(),
		})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"refreshed": true,
		"entries":   len(entries),
		"version":   h.cache.Version(),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
