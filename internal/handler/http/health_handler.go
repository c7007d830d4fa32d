package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type HealthHandler struct {
	db Pinger
}

func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) RegisterRoutes(router chi.Router) {
	router.Get("/health", h.handleHealth)
}

func (h *HealthHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		log.Error().Err(err).Msg("Health check: database ping failed")
		respondWithJSON(w, http.StatusServiceUnavailable, Response{
			Success: false,
			Message: "Database unavailable",
			Data:    map[string]string{"status": "DOWN", "database": "DOWN"},
		})
		return
	}

	respondWithData(w, http.StatusOK, "OK", map[string]string{"status": "UP", "database": "UP"})
}
