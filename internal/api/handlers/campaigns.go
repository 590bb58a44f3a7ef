package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Fantasim/crowdfund/internal/campaign"
	"github.com/Fantasim/crowdfund/internal/config"
	"github.com/Fantasim/crowdfund/internal/db"
	"github.com/Fantasim/crowdfund/internal/httputil"
	"github.com/Fantasim/crowdfund/internal/models"
	"github.com/Fantasim/crowdfund/internal/price"
	"github.com/Fantasim/crowdfund/internal/validate"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// Clock returns the current time. Handlers sample it once per request.
type Clock func() time.Time

// PriceSource provides the ETH/USD quote used for display-only estimates.
type PriceSource interface {
	ETHPrice(ctx context.Context) (decimal.Decimal, error)
}

// ListCampaigns handles GET /api/campaigns?viewer=.
func ListCampaigns(database *db.DB, cfg *config.Config, clock Clock) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer, ok := viewerParam(w, r)
		if !ok {
			return
		}
		now := clock().Unix()

		records, err := database.ListCampaigns()
		if err != nil {
			slog.Error("failed to list campaigns", "error", err)
			httputil.Error(w, http.StatusInternalServerError, config.ErrorDatabase, "failed to list campaigns")
			return
		}

		cards := make([]CampaignCard, 0, len(records))
		for i := range records {
			// Cards only need progress and time left, so contributions are not loaded.
			view, err := campaign.DeriveView(&records[i], nil, viewer, now)
			if err != nil {
				slog.Warn("skipping campaign with invalid snapshot",
					"campaignID", records[i].ID,
					"error", err,
				)
				continue
			}
			cards = append(cards, newCard(view, cfg.CurrencySymbol))
		}

		slog.Debug("campaigns listed", "count", len(cards), "viewer", viewer)
		httputil.JSON(w, http.StatusOK, cards)
	}
}

// GetCampaign handles GET /api/campaigns/{id}?viewer=.
// prices may be nil, in which case no USD estimate is attached.
func GetCampaign(database *db.DB, prices PriceSource, cfg *config.Config, clock Clock) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := campaignIDParam(w, r)
		if !ok {
			return
		}
		viewer, ok := viewerParam(w, r)
		if !ok {
			return
		}
		now := clock().Unix()

		rec, contributions, ok := loadCampaign(w, database, id)
		if !ok {
			return
		}

		view, err := campaign.DeriveView(rec, contributions, viewer, now)
		if err != nil {
			writeDeriveError(w, id, err)
			return
		}

		var md *models.Metadata
		if rec.MetadataHash != "" {
			md, err = database.GetMetadata(rec.MetadataHash)
			if err != nil {
				slog.Warn("failed to load metadata", "campaignID", id, "hash", rec.MetadataHash, "error", err)
			}
		}

		detail := newDetail(view, cfg.CurrencySymbol, md)
		if prices != nil {
			detail.USD = usdEstimate(r.Context(), prices, rec)
		}

		httputil.JSON(w, http.StatusOK, detail)
	}
}

// GetContributors handles GET /api/campaigns/{id}/contributors?viewer=.
func GetContributors(database *db.DB, clock Clock) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := campaignIDParam(w, r)
		if !ok {
			return
		}
		viewer, ok := viewerParam(w, r)
		if !ok {
			return
		}
		now := clock().Unix()

		rec, contributions, ok := loadCampaign(w, database, id)
		if !ok {
			return
		}

		view, err := campaign.DeriveView(rec, contributions, viewer, now)
		if err != nil {
			writeDeriveError(w, id, err)
			return
		}

		httputil.JSON(w, http.StatusOK, ContributorsResponse{
			CampaignID:             rec.ID,
			RaisedAmount:           rec.RaisedAmount.String(),
			ViewerContribution:     view.ViewerContribution.String(),
			Contributors:           newContributorEntries(view),
			Contributions:          newContributionEntries(view.SortedContributions()),
			TotalContributionCount: view.TotalContributionCount,
		})
	}
}

// loadCampaign reads a snapshot and its contributions. It writes the error
// response itself and returns ok=false when the handler should stop.
func loadCampaign(w http.ResponseWriter, database *db.DB, id string) (*models.CampaignRecord, []models.ContributionEvent, bool) {
	rec, err := database.GetCampaign(id)
	if err != nil {
		slog.Error("failed to get campaign", "campaignID", id, "error", err)
		httputil.Error(w, http.StatusInternalServerError, config.ErrorDatabase, "failed to get campaign")
		return nil, nil, false
	}
	if rec == nil {
		httputil.Error(w, http.StatusNotFound, config.ErrorCampaignNotFound, "campaign "+id+" not found")
		return nil, nil, false
	}

	contributions, err := database.ListContributions(id)
	if err != nil {
		slog.Error("failed to list contributions", "campaignID", id, "error", err)
		httputil.Error(w, http.StatusInternalServerError, config.ErrorDatabase, "failed to list contributions")
		return nil, nil, false
	}
	return rec, contributions, true
}

func writeDeriveError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, config.ErrInvalidInput) {
		slog.Warn("campaign snapshot rejected", "campaignID", id, "error", err)
		httputil.Error(w, http.StatusUnprocessableEntity, config.ErrorInvalidInput, err.Error())
		return
	}
	slog.Error("failed to derive campaign view", "campaignID", id, "error", err)
	httputil.Error(w, http.StatusInternalServerError, config.ErrorInternal, "failed to derive campaign view")
}

// usdEstimate returns nil when the price is unavailable; the estimate is optional.
func usdEstimate(ctx context.Context, prices PriceSource, rec *models.CampaignRecord) *USDEstimate {
	quote, err := prices.ETHPrice(ctx)
	if err != nil {
		slog.Warn("usd estimate unavailable", "campaignID", rec.ID, "error", err)
		return nil
	}
	return &USDEstimate{
		ETHPrice: quote.StringFixed(2),
		Target:   price.USDValue(rec.TargetAmount, quote),
		Raised:   price.USDValue(rec.RaisedAmount, quote),
	}
}

func campaignIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := chi.URLParam(r, "id")
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, config.ErrorInvalidCampaignID, "campaign id must be a non-negative integer")
		return "", false
	}
	return strconv.FormatUint(n, 10), true
}

func viewerParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	viewer := r.URL.Query().Get("viewer")
	if viewer == "" {
		return "", true
	}
	if err := validate.Address(viewer); err != nil {
		httputil.Error(w, http.StatusBadRequest, config.ErrorInvalidAddress, err.Error())
		return "", false
	}
	return viewer, true
}
