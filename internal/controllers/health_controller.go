package controllers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/RealZimboGuy/flowstudio/internal/util"
	"github.com/RealZimboGuy/flowstudio/pkg/flowstudio/models"
)

type HealthController struct {
	Ping func(ctx context.Context) error
}

func NewHealthController(ping func(ctx context.Context) error) *HealthController {
	return &HealthController{Ping: ping}
}

func (c *HealthController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", send(c.handleHealth))
}

func (c *HealthController) handleHealth(w http.ResponseWriter, r *http.Request) error {
	if err := c.Ping(r.Context()); err != nil {
		slog.WarnContext(r.Context(), "Health check failed", "error", err)
		util.WriteJSONResponse(w, http.StatusServiceUnavailable, models.HealthResponse{Status: "unavailable"})
		return nil
	}
	util.WriteJSONResponse(w, http.StatusOK, models.HealthResponse{Status: "ok"})
	return nil
}
