package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Fantasim/crowdfund/internal/config"
	"github.com/Fantasim/crowdfund/internal/db"
	"github.com/Fantasim/crowdfund/internal/httputil"
	"github.com/Fantasim/crowdfund/internal/models"
)

// CampaignRefresher re-reads a single campaign from the chain into the store.
type CampaignRefresher interface {
	RefreshCampaign(ctx context.Context, id string) (*models.CampaignRecord, error)
}

// RefreshCampaign handles POST /api/campaigns/{id}/refresh.
// On success it returns the freshly stored detail view for the anonymous viewer.
func RefreshCampaign(refresher CampaignRefresher, database *db.DB, cfg *config.Config, clock Clock) http.HandlerFunc {
	detail := GetCampaign(database, nil, cfg, clock)

	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := campaignIDParam(w, r)
		if !ok {
			return
		}

		slog.Info("campaign refresh requested", "campaignID", id, "remoteAddr", r.RemoteAddr)

		if _, err := refresher.RefreshCampaign(r.Context(), id); err != nil {
			writeRefreshError(w, id, err)
			return
		}

		// Serve the stored snapshot through the detail handler so both endpoints agree.
		r.URL.RawQuery = ""
		detail(w, r)
	}
}

func writeRefreshError(w http.ResponseWriter, id string, err error) {
	switch {
	case errors.Is(err, config.ErrInvalidInput):
		httputil.Error(w, http.StatusBadRequest, config.ErrorInvalidCampaignID, err.Error())
	case errors.Is(err, config.ErrRefreshInProgress):
		httputil.Error(w, http.StatusConflict, config.ErrorRefreshInProgress, "a refresh of campaign "+id+" is already running")
	case errors.Is(err, config.ErrCampaignNotFound):
		httputil.Error(w, http.StatusNotFound, config.ErrorCampaignNotFound, "campaign "+id+" not found on chain")
	case errors.Is(err, config.ErrCircuitOpen):
		httputil.Unavailable(w, config.ErrorCircuitOpen, "rpc provider temporarily disabled", config.GetRetryAfter(err))
	case config.IsTransient(err):
		slog.Warn("campaign refresh failed", "campaignID", id, "error", err)
		httputil.Error(w, http.StatusBadGateway, config.ErrorProviderUnavailable, err.Error())
	default:
		slog.Error("campaign refresh failed", "campaignID", id, "error", err)
		httputil.Error(w, http.StatusInternalServerError, config.ErrorRefreshFailed, err.Error())
	}
}
