package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all portfolio routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/portfolio", func(r chi.Router) {
		r.Get("/", h.HandleGetPortfolio)            // Holdings with prices and logos
		r.Post("/coins", h.HandleAddCoin)           // Add a catalog coin
		r.Delete("/coins/{id}", h.HandleRemoveCoin) // Remove a holding
		r.Post("/reorder", h.HandleReorder)         // Drag-reorder
		r.Post("/sync", h.HandleSync)               // On-demand market data refresh
	})
}
