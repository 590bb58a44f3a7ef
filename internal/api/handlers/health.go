package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Fantasim/crowdfund/internal/config"
	"github.com/Fantasim/crowdfund/internal/db"
	"github.com/Fantasim/crowdfund/internal/events"
	"github.com/Fantasim/crowdfund/internal/httputil"
	"github.com/Fantasim/crowdfund/internal/models"
)

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status           string          `json:"status"`
	Version          string          `json:"version"`
	Network          string          `json:"network"`
	Contract         string          `json:"contract"`
	TrackedCampaigns int             `json:"trackedCampaigns"`
	LastSync         *models.SyncRun `json:"lastSync"`
	SSEClients       int             `json:"sseClients"`
}

// HealthHandler returns a handler for the GET /api/health endpoint.
// The status is "degraded" when the snapshot store cannot be read.
func HealthHandler(cfg *config.Config, version string, database *db.DB, hub *events.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Debug("health check requested", "remoteAddr", r.RemoteAddr)

		resp := HealthResponse{
			Status:     "ok",
			Version:    version,
			Network:    cfg.Network,
			Contract:   cfg.ContractAddress,
			SSEClients: hub.ClientCount(),
		}

		count, err := database.CountCampaigns()
		if err != nil {
			slog.Error("health: count campaigns failed", "error", err)
			resp.Status = "degraded"
		}
		resp.TrackedCampaigns = count

		run, err := database.LatestSyncRun()
		if err != nil {
			slog.Error("health: latest sync run failed", "error", err)
			resp.Status = "degraded"
		}
		resp.LastSync = run

		httputil.JSON(w, http.StatusOK, resp)
	}
}
