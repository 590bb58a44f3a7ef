package handlers

import (
	"math/big"

	"github.com/Fantasim/crowdfund/internal/campaign"
	"github.com/Fantasim/crowdfund/internal/config"
	"github.com/Fantasim/crowdfund/internal/models"
)

// CampaignCard is the list-view rendering of a campaign.
type CampaignCard struct {
	ID              string  `json:"id"`
	Creator         string  `json:"creator"`
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	MetadataHash    string  `json:"metadataHash"`
	TargetAmount    string  `json:"targetAmount"`
	RaisedAmount    string  `json:"raisedAmount"`
	TargetDisplay   string  `json:"targetDisplay"`
	RaisedDisplay   string  `json:"raisedDisplay"`
	Currency        string  `json:"currency"`
	Deadline        int64   `json:"deadline"`
	CreatedAt       int64   `json:"createdAt"`
	Active          bool    `json:"active"`
	Withdrawn       bool    `json:"withdrawn"`
	ProgressPercent string  `json:"progressPercent"`
	ProgressLabel   string  `json:"progressLabel"` // clamped to [0, 100]
	ProgressBar     float64 `json:"progressBar"`
	Expired         bool    `json:"expired"`
	RemainingSecs   int64   `json:"remainingSeconds"`
	DaysLeft        int64   `json:"daysLeft"`
	TimeLeftLabel   string  `json:"timeLeftLabel"`
	IsSuccessful    bool    `json:"isSuccessful"`
	IsCreator       bool    `json:"isCreator"`
}

// ContributorEntry is one leaderboard row.
type ContributorEntry struct {
	Address           string `json:"address"`
	TotalAmount       string `json:"totalAmount"`
	TotalDisplay      string `json:"totalDisplay"`
	ContributionCount int    `json:"contributionCount"`
	LastContribution  *int64 `json:"lastContribution"`
	SharePercent      string `json:"sharePercent"`
}

// ContributionEntry is one row of the recent contributions list.
type ContributionEntry struct {
	Contributor   string `json:"contributor"`
	Amount        string `json:"amount"`
	AmountDisplay string `json:"amountDisplay"`
	Timestamp     *int64 `json:"timestamp"`
	Pending       bool   `json:"pending"`
}

// USDEstimate is a display-only valuation of the campaign amounts.
type USDEstimate struct {
	ETHPrice string `json:"ethPrice"`
	Target   string `json:"target"`
	Raised   string `json:"raised"`
}

// CampaignDetail is the full derived view of a single campaign.
type CampaignDetail struct {
	CampaignCard
	Metadata               *models.Metadata    `json:"metadata"`
	ViewerContribution     string              `json:"viewerContribution"`
	ViewerDisplay          string              `json:"viewerContributionDisplay"`
	CanWithdraw            bool                `json:"canWithdraw"`
	CanGetRefund           bool                `json:"canGetRefund"`
	CanContribute          bool                `json:"canContribute"`
	Contributors           []ContributorEntry  `json:"contributors"`
	RecentContributions    []ContributionEntry `json:"recentContributions"`
	ShowRecent             bool                `json:"showRecent"`
	TotalContributionCount int                 `json:"totalContributionCount"`
	PendingCount           int                 `json:"pendingCount"`
	USD                    *USDEstimate        `json:"usd,omitempty"`
}

// ContributorsResponse is the body of GET /api/campaigns/{id}/contributors.
type ContributorsResponse struct {
	CampaignID             string              `json:"campaignId"`
	RaisedAmount           string              `json:"raisedAmount"`
	ViewerContribution     string              `json:"viewerContribution"`
	Contributors           []ContributorEntry  `json:"contributors"`
	Contributions          []ContributionEntry `json:"contributions"` // full log, most recent first
	TotalContributionCount int                 `json:"totalContributionCount"`
}

func displayAmount(wei *big.Int) string {
	return campaign.FormatAmount(wei, config.WeiDecimals, config.AmountDisplayPlaces)
}

func newCard(v *campaign.View, currency string) CampaignCard {
	c := v.Campaign
	return CampaignCard{
		ID:              c.ID,
		Creator:         c.Creator,
		Title:           c.Title,
		Description:     c.Description,
		MetadataHash:    c.MetadataHash,
		TargetAmount:    c.TargetAmount.String(),
		RaisedAmount:    c.RaisedAmount.String(),
		TargetDisplay:   displayAmount(c.TargetAmount),
		RaisedDisplay:   displayAmount(c.RaisedAmount),
		Currency:        currency,
		Deadline:        c.Deadline,
		CreatedAt:       c.CreatedAt,
		Active:          c.Active,
		Withdrawn:       c.Withdrawn,
		ProgressPercent: campaign.Percent(v.Progress, config.PercentPrecision),
		ProgressLabel:   campaign.ClampedPercent(v.Progress, config.PercentPrecision),
		ProgressBar:     campaign.PercentFloat(v.Progress),
		Expired:         v.TimeLeft.Expired,
		RemainingSecs:   v.TimeLeft.RemainingSeconds,
		DaysLeft:        campaign.DaysLeft(v.TimeLeft),
		TimeLeftLabel:   campaign.FormatTimeLeft(v.TimeLeft),
		IsSuccessful:    v.IsSuccessful,
		IsCreator:       v.IsCreator,
	}
}

func newContributorEntries(v *campaign.View) []ContributorEntry {
	out := make([]ContributorEntry, 0, len(v.Contributors))
	for _, s := range v.Contributors {
		out = append(out, ContributorEntry{
			Address:           s.Address,
			TotalAmount:       s.TotalAmount.String(),
			TotalDisplay:      displayAmount(s.TotalAmount),
			ContributionCount: s.ContributionCount,
			LastContribution:  s.LastContribution,
			SharePercent:      campaign.Percent(s.Share(v.Campaign.RaisedAmount), config.PercentPrecision),
		})
	}
	return out
}

func newContributionEntries(events []models.ContributionEvent) []ContributionEntry {
	out := make([]ContributionEntry, 0, len(events))
	for _, ev := range events {
		out = append(out, ContributionEntry{
			Contributor:   ev.Contributor,
			Amount:        ev.Amount.String(),
			AmountDisplay: displayAmount(ev.Amount),
			Timestamp:     ev.Timestamp,
			Pending:       ev.Timestamp == nil,
		})
	}
	return out
}

func newDetail(v *campaign.View, currency string, md *models.Metadata) CampaignDetail {
	return CampaignDetail{
		CampaignCard:           newCard(v, currency),
		Metadata:               md,
		ViewerContribution:     v.ViewerContribution.String(),
		ViewerDisplay:          displayAmount(v.ViewerContribution),
		CanWithdraw:            v.CanWithdraw,
		CanGetRefund:           v.CanGetRefund,
		CanContribute:          v.CanContribute,
		Contributors:           newContributorEntries(v),
		RecentContributions:    newContributionEntries(v.RecentContributions),
		ShowRecent:             v.ShowRecent(),
		TotalContributionCount: v.TotalContributionCount,
		PendingCount:           v.PendingCount(),
	}
}
