package campaign

import (
	"math/big"

	"github.com/Fantasim/crowdfund/internal/models"
)

const (
	creatorAddr = "0xAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAa"
	aliceAddr   = "0xB0B0b0b0B0b0b0b0B0b0b0b0B0b0b0b0B0b0b0b0"
	bobAddr     = "0xC0c0C0c0c0C0c0c0C0c0c0c0C0c0c0c0C0c0c0C0"
	carolAddr   = "0xD0d0d0d0d0d0d0d0d0d0d0d0d0d0d0d0d0d0d0d0"
)

const testNow int64 = 1_700_000_000

func amount(v int64) *big.Int { return big.NewInt(v) }

func ts(v int64) *int64 { return &v }

func event(contributor string, amt int64, timestamp *int64) models.ContributionEvent {
	return models.ContributionEvent{Contributor: contributor, Amount: amount(amt), Timestamp: timestamp}
}

func newCampaign(target, raised, deadline int64) *models.CampaignRecord {
	return &models.CampaignRecord{
		ID:           "1",
		Creator:      creatorAddr,
		Title:        "Community garden",
		Description:  "Raised beds for the neighbourhood",
		MetadataHash: "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG",
		TargetAmount: amount(target),
		RaisedAmount: amount(raised),
		Deadline:     deadline,
		CreatedAt:    deadline - 30*86400,
		Active:       true,
	}
}
