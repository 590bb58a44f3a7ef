// Package campaign derives the view model of a crowdfunding campaign from the
// on-chain campaign record and its contribution list.
//
// Everything here is a pure function of its arguments: the caller supplies the
// viewer address and the reference time, nothing is read from the environment,
// and inputs are never modified. All currency arithmetic uses math/big.
package campaign

import (
	"math/big"

	"github.com/Fantasim/crowdfund/internal/config"
	"github.com/Fantasim/crowdfund/internal/models"
)

// TimeLeft describes the remaining funding window relative to a reference instant.
type TimeLeft struct {
	Expired          bool
	RemainingSeconds int64
}

// View is the derived, render-ready model of one campaign for one viewer.
type View struct {
	Campaign *models.CampaignRecord

	// Progress is RaisedAmount / TargetAmount, unclamped so over-funding is visible.
	// It is zero when the target is zero.
	Progress *big.Rat

	TimeLeft     TimeLeft
	IsSuccessful bool
	IsCreator    bool

	// ViewerContribution is the viewer's summed contributions; zero when absent.
	ViewerContribution *big.Int

	CanWithdraw   bool
	CanGetRefund  bool
	CanContribute bool

	Contributors           []ContributorSummary
	RecentContributions    []models.ContributionEvent
	TotalContributionCount int

	sortedEvents []models.ContributionEvent
}

// ComputeTimeLeft returns the funding window remaining at now.
func ComputeTimeLeft(deadline, now int64) TimeLeft {
	remaining := deadline - now
	if remaining < 0 {
		remaining = 0
	}
	return TimeLeft{
		Expired:          now >= deadline,
		RemainingSeconds: remaining,
	}
}

// ComputeProgress returns raised/target as an exact fraction.
// A zero target yields zero instead of dividing by zero.
func ComputeProgress(raised, target *big.Int) *big.Rat {
	if target == nil || target.Sign() == 0 || raised == nil {
		return new(big.Rat)
	}
	return new(big.Rat).SetFrac(raised, target)
}

// DeriveView builds the View of c for viewer at the Unix time now.
//
// viewer may be empty when no wallet is connected. contributions may be in any
// order. A nil campaign, a nil or negative amount on the campaign, or a nil or
// negative contribution amount is reported as *InvalidInputError.
//
// A zero target is accepted: Progress is zero and IsSuccessful follows the
// literal raised >= target rule, so a zero-target campaign with nothing raised
// counts as successful.
func DeriveView(c *models.CampaignRecord, contributions []models.ContributionEvent, viewer string, now int64) (*View, error) {
	if c == nil {
		return nil, invalid("campaign", "missing")
	}
	if c.TargetAmount == nil {
		return nil, invalid("campaign.targetAmount", "missing")
	}
	if c.TargetAmount.Sign() < 0 {
		return nil, invalid("campaign.targetAmount", "negative amount "+c.TargetAmount.String())
	}
	if c.RaisedAmount == nil {
		return nil, invalid("campaign.raisedAmount", "missing")
	}
	if c.RaisedAmount.Sign() < 0 {
		return nil, invalid("campaign.raisedAmount", "negative amount "+c.RaisedAmount.String())
	}

	summaries, index, err := summarize(contributions)
	if err != nil {
		return nil, err
	}

	timeLeft := ComputeTimeLeft(c.Deadline, now)
	successful := c.RaisedAmount.Cmp(c.TargetAmount) >= 0
	isCreator := SameAddress(viewer, c.Creator)

	viewerTotal := new(big.Int)
	if viewer != "" {
		if pos, ok := index[NormalizeAddress(viewer)]; ok {
			viewerTotal.Set(summaries[pos].TotalAmount)
		}
	}

	sorted := sortByRecency(contributions)
	n := len(sorted)
	if n > config.RecentContributionsLimit {
		n = config.RecentContributionsLimit
	}
	recent := make([]models.ContributionEvent, n)
	copy(recent, sorted)

	return &View{
		Campaign:               c,
		Progress:               ComputeProgress(c.RaisedAmount, c.TargetAmount),
		TimeLeft:               timeLeft,
		IsSuccessful:           successful,
		IsCreator:              isCreator,
		ViewerContribution:     viewerTotal,
		CanWithdraw:            isCreator && timeLeft.Expired && successful && !c.Withdrawn,
		CanGetRefund:           !isCreator && timeLeft.Expired && !successful && viewerTotal.Sign() > 0,
		CanContribute:          viewer != "" && !isCreator && c.Active && !timeLeft.Expired,
		Contributors:           rankContributors(summaries),
		RecentContributions:    recent,
		TotalContributionCount: len(contributions),
		sortedEvents:           sorted,
	}, nil
}

// SortedContributions returns every contribution ordered most recent first,
// pending entries last.
func (v *View) SortedContributions() []models.ContributionEvent {
	out := make([]models.ContributionEvent, len(v.sortedEvents))
	copy(out, v.sortedEvents)
	return out
}

// ShowRecent reports whether a separate recent-contributions list adds anything
// over the contributor leaderboard, i.e. somebody contributed more than once.
func (v *View) ShowRecent() bool {
	return v.TotalContributionCount > len(v.Contributors)
}

// PendingCount returns the number of contributions without a timestamp.
func (v *View) PendingCount() int {
	n := 0
	for _, ev := range v.sortedEvents {
		if ev.Timestamp == nil {
			n++
		}
	}
	return n
}

// ContributedTotal returns the exact sum of all contribution amounts.
func (v *View) ContributedTotal() *big.Int {
	total := new(big.Int)
	for _, s := range v.Contributors {
		total.Add(total, s.TotalAmount)
	}
	return total
}
