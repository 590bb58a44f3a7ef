package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Fantasim/crowdfund/internal/config"
	"github.com/Fantasim/crowdfund/internal/db"
	"github.com/Fantasim/crowdfund/internal/httputil"
)

// GetProviderHealth returns a handler for GET /api/health/providers.
// Rows come from the provider_health table, one per upstream (rpc, ipfs).
func GetProviderHealth(database *db.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Debug("provider health requested", "remoteAddr", r.RemoteAddr)

		rows, err := database.GetAllProviderHealth()
		if err != nil {
			slog.Error("failed to get provider health", "error", err)
			httputil.Error(w, http.StatusInternalServerError, config.ErrorDatabase, "failed to fetch provider health")
			return
		}
		if rows == nil {
			rows = []db.ProviderHealthRow{}
		}

		slog.Debug("provider health response", "providerCount", len(rows))
		httputil.JSON(w, http.StatusOK, rows)
	}
}
