package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/itchan-dev/prepublish/shared/api"
	"github.com/itchan-dev/prepublish/shared/logger"
	"github.com/itchan-dev/prepublish/shared/utils"
)

// Health is the liveness probe.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, api.HealthResponse{Status: "ok", Time: time.Now().UTC()})
}

// Ready answers 503 while the document store does not respond.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.health.Ping(ctx); err != nil {
		logger.Component("http").Warn("readiness check failed", "error", err)
		utils.WriteJSON(w, http.StatusServiceUnavailable, api.HealthResponse{
			Status: "unavailable", Storage: "unreachable", Time: time.Now().UTC(),
		})
		return
	}
	utils.WriteJSON(w, http.StatusOK, api.HealthResponse{Status: "ok", Storage: "ok", Time: time.Now().UTC()})
}
