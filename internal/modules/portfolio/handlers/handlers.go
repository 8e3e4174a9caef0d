// Package handlers provides HTTP handlers for portfolio management.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/aristath/bagz/internal/modules/portfolio"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles portfolio HTTP requests
type Handler struct {
	controller *portfolio.Controller
	log        zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(controller *portfolio.Controller, log zerolog.Logger) *Handler {
	return &Handler{
		controller: controller,
		log:        log.With().Str("handler", "portfolio").Logger(),
	}
}

type addCoinRequest struct {
	ID string `json:"id"`
}

type reorderRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type mutationResponse struct {
	Changed  bool        `json:"changed"`
	Holdings interface{} `json:"holdings"`
}

// HandleGetPortfolio returns the holdings enriched with market data
func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.controller.View())
}

// HandleAddCoin adds a catalog coin to the portfolio
func (h *Handler) HandleAddCoin(w http.ResponseWriter, r *http.Request) {
	var req addCoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ID == "" {
		h.writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	changed := h.controller.AddCoinByID(req.ID)
	h.writeMutation(w, changed)
}

// HandleRemoveCoin removes a coin from the portfolio
func (h *Handler) HandleRemoveCoin(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	changed := h.controller.RemoveCoin(id)
	h.writeMutation(w, changed)
}

// HandleReorder moves one holding into another's position
func (h *Handler) HandleReorder(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.From == "" || req.To == "" {
		h.writeError(w, http.StatusBadRequest, "from and to are required")
		return
	}

	changed := h.controller.ReorderCoin(req.From, req.To)
	h.writeMutation(w, changed)
}

// HandleSync schedules an on-demand market data refresh
func (h *Handler) HandleSync(w http.ResponseWriter, r *http.Request) {
	seq := h.controller.Resync()
	h.writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"scheduled": true,
		"seq":       seq,
	})
}

func (h *Handler) writeMutation(w http.ResponseWriter, changed bool) {
	h.writeJSON(w, http.StatusOK, mutationResponse{
		Changed:  changed,
		Holdings: h.controller.Holdings(),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
