package campaign

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/Fantasim/crowdfund/internal/models"
)

// ContributorSummary aggregates every contribution made by one account.
type ContributorSummary struct {
	// Address is the spelling seen on the contributor's first event.
	Address           string
	TotalAmount       *big.Int
	ContributionCount int
	LastContribution  *int64
}

// Share returns TotalAmount / raised as an exact fraction, or zero when raised is zero.
func (s ContributorSummary) Share(raised *big.Int) *big.Rat {
	if raised == nil || raised.Sign() <= 0 {
		return new(big.Rat)
	}
	return new(big.Rat).SetFrac(s.TotalAmount, raised)
}

// summarize groups events by normalized contributor address in a single pass.
// The returned slice is in first-appearance order; the index maps a normalized
// address to its position in that slice.
func summarize(events []models.ContributionEvent) ([]ContributorSummary, map[string]int, error) {
	summaries := make([]ContributorSummary, 0)
	index := make(map[string]int)

	for i, ev := range events {
		if ev.Amount == nil {
			return nil, nil, invalid(fmt.Sprintf("contributions[%d].amount", i), "missing")
		}
		if ev.Amount.Sign() < 0 {
			return nil, nil, invalid(fmt.Sprintf("contributions[%d].amount", i), "negative amount "+ev.Amount.String())
		}

		key := NormalizeAddress(ev.Contributor)
		pos, ok := index[key]
		if !ok {
			// The first event seeds LastContribution, even when its timestamp is nil.
			summaries = append(summaries, ContributorSummary{
				Address:          ev.Contributor,
				TotalAmount:      new(big.Int),
				LastContribution: copyTimestamp(ev.Timestamp),
			})
			pos = len(summaries) - 1
			index[key] = pos
		} else if ev.Timestamp != nil {
			last := summaries[pos].LastContribution
			if last == nil || *ev.Timestamp > *last {
				summaries[pos].LastContribution = copyTimestamp(ev.Timestamp)
			}
		}

		summaries[pos].TotalAmount.Add(summaries[pos].TotalAmount, ev.Amount)
		summaries[pos].ContributionCount++
	}

	return summaries, index, nil
}

// rankContributors returns a copy of summaries ordered by TotalAmount descending.
// Equal totals keep their first-appearance order.
func rankContributors(summaries []ContributorSummary) []ContributorSummary {
	ranked := make([]ContributorSummary, len(summaries))
	copy(ranked, summaries)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].TotalAmount.Cmp(ranked[j].TotalAmount) > 0
	})
	return ranked
}

// sortByRecency returns a copy of events ordered by timestamp descending.
// Pending events (nil timestamp) go last; ties keep input order.
func sortByRecency(events []models.ContributionEvent) []models.ContributionEvent {
	sorted := make([]models.ContributionEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Timestamp, sorted[j].Timestamp
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a > *b
		}
	})
	return sorted
}

func copyTimestamp(ts *int64) *int64 {
	if ts == nil {
		return nil
	}
	v := *ts
	return &v
}
