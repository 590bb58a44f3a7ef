package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/Fantasim/crowdfund/internal/campaign"
	"github.com/Fantasim/crowdfund/internal/config"
	"github.com/Fantasim/crowdfund/internal/events"
	"github.com/Fantasim/crowdfund/internal/models"
	"github.com/google/uuid"
)

// SyncResult summarizes one sync cycle.
type SyncResult struct {
	SyncID    string
	Total     uint64
	Refreshed int
	Failures  int
	Duration  time.Duration
}

// SyncOnce runs one full sync cycle: read the campaign count, then refresh the
// most recent MaxTrackedCampaigns campaigns. Per-campaign failures are recorded
// and skipped; only a failed count read fails the cycle.
func (w *Watcher) SyncOnce(ctx context.Context) (*SyncResult, error) {
	w.cycleMu.Lock()
	defer w.cycleMu.Unlock()

	start := time.Now()
	result := &SyncResult{SyncID: uuid.New().String()}

	if err := w.db.StartSyncRun(result.SyncID); err != nil {
		return nil, err
	}

	slog.Info("sync cycle started", "syncID", result.SyncID)

	total, err := w.reader.CampaignCount(ctx)
	if err != nil {
		w.recordProvider(err)
		w.recordError(config.ErrorSeverityError, config.ErrorCategoryProvider,
			"campaign count read failed", err.Error())
		if finishErr := w.db.FinishSyncRun(result.SyncID, 0, 0, err.Error()); finishErr != nil {
			slog.Error("failed to finish sync run", "syncID", result.SyncID, "error", finishErr)
		}
		return nil, fmt.Errorf("sync %s: %w", result.SyncID, err)
	}
	result.Total = total

	var lastErr error
	for _, id := range w.trackedIDs(total) {
		if ctx.Err() != nil {
			break
		}

		_, skipped, err := w.refreshOne(ctx, result.SyncID, id, false)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			result.Failures++
			lastErr = err
			slog.Warn("campaign refresh failed",
				"syncID", result.SyncID,
				"campaignID", id,
				"error", err,
			)
			w.recordError(config.ErrorSeverityWarn, config.ErrorCategoryProvider,
				fmt.Sprintf("campaign %d refresh failed", id), err.Error())
			continue
		}
		if !skipped {
			result.Refreshed++
		}
	}
	w.recordProvider(lastErr)

	result.Duration = time.Since(start)

	errMsg := ""
	if ctx.Err() != nil {
		errMsg = ctx.Err().Error()
	}
	if err := w.db.FinishSyncRun(result.SyncID, result.Refreshed, result.Failures, errMsg); err != nil {
		slog.Error("failed to finish sync run", "syncID", result.SyncID, "error", err)
	}

	w.hub.Broadcast(events.Event{
		Type: config.EventSyncComplete,
		Data: events.SyncCompleteData{
			SyncID:    result.SyncID,
			Campaigns: result.Refreshed,
			Failures:  result.Failures,
			Duration:  result.Duration.Round(time.Millisecond).String(),
		},
	})

	slog.Info("sync cycle complete",
		"syncID", result.SyncID,
		"total", total,
		"refreshed", result.Refreshed,
		"failures", result.Failures,
		"elapsed", result.Duration.Round(time.Millisecond),
	)
	return result, nil
}

// trackedIDs returns the ids of the newest campaigns, newest first.
func (w *Watcher) trackedIDs(total uint64) []uint64 {
	n := total
	if n > uint64(w.maxTracked) {
		n = uint64(w.maxTracked)
	}

	ids := make([]uint64, 0, n)
	for i := uint64(0); i < n; i++ {
		ids = append(ids, w.firstID+total-1-i)
	}
	return ids
}

// refreshOne reads a campaign and its contributions, stores them and announces
// changes. skipped is true when the id holds no campaign. force broadcasts even
// when nothing changed.
func (w *Watcher) refreshOne(ctx context.Context, syncID string, id uint64, force bool) (*models.CampaignRecord, bool, error) {
	rec, err := w.reader.GetCampaign(ctx, id)
	if errors.Is(err, config.ErrCampaignNotFound) {
		if force {
			return nil, true, err
		}
		slog.Debug("campaign id empty, skipping", "campaignID", id)
		return nil, true, nil
	}
	if err != nil {
		return nil, false, err
	}

	contributions, err := w.reader.GetContributions(ctx, id)
	if err != nil {
		return nil, false, err
	}

	idStr := strconv.FormatUint(id, 10)

	prev, err := w.db.GetCampaign(idStr)
	if err != nil {
		return nil, false, err
	}
	prevCount := 0
	if prev != nil {
		stored, err := w.db.ListContributions(idStr)
		if err != nil {
			return nil, false, err
		}
		prevCount = len(stored)
	}

	if err := w.db.SaveSnapshot(*rec, contributions); err != nil {
		return nil, false, err
	}

	changed := force || hasChanged(prev, prevCount, rec, len(contributions))
	w.ensureMetadata(ctx, rec.MetadataHash, changed)

	if changed {
		w.checkDiscrepancy(ctx, id, rec, contributions)
		w.hub.Broadcast(events.Event{
			Type: config.EventCampaignUpdated,
			Data: events.CampaignUpdatedData{
				CampaignID:        idStr,
				RaisedAmount:      rec.RaisedAmount.String(),
				TargetAmount:      rec.TargetAmount.String(),
				Active:            rec.Active,
				Withdrawn:         rec.Withdrawn,
				ContributionCount: len(contributions),
				SyncID:            syncID,
			},
		})
	}

	slog.Debug("campaign refreshed",
		"syncID", syncID,
		"campaignID", idStr,
		"contributions", len(contributions),
	)
	return rec, false, nil
}

// checkDiscrepancy records a warning when the contribution log does not add up
// to the raised amount reported by the contract, or when the log is unusable.
// On a mismatch the largest contributors are checked against getContribution.
func (w *Watcher) checkDiscrepancy(ctx context.Context, id uint64, rec *models.CampaignRecord, contributions []models.ContributionEvent) {
	view, err := campaign.DeriveView(rec, contributions, "", time.Now().Unix())
	if err != nil {
		w.recordError(config.ErrorSeverityWarn, config.ErrorCategoryWatcher,
			fmt.Sprintf("campaign %s has invalid on-chain data", rec.ID), err.Error())
		return
	}

	sum := view.ContributedTotal()
	if sum.Cmp(rec.RaisedAmount) == 0 {
		return
	}

	details := fmt.Sprintf("contributions sum %s, contract reports %s", sum, rec.RaisedAmount)
	if differing := w.contributorMismatches(ctx, id, view.Contributors); len(differing) > 0 {
		details += "; per-contributor totals differ: " + strings.Join(differing, ", ")
	}
	w.recordError(config.ErrorSeverityWarn, config.ErrorCategoryWatcher,
		fmt.Sprintf("campaign %s raised amount mismatch", rec.ID), details)
}

// contributorMismatches compares logged totals with the contract's running total
// per contributor, largest contributors first.
func (w *Watcher) contributorMismatches(ctx context.Context, id uint64, summaries []campaign.ContributorSummary) []string {
	var out []string
	for i, s := range summaries {
		if i >= config.DiscrepancyCheckLimit {
			break
		}
		onChain, err := w.reader.GetContribution(ctx, id, s.Address)
		if err != nil {
			slog.Warn("contributor cross-check failed",
				"campaignID", id,
				"contributor", s.Address,
				"error", err,
			)
			break
		}
		if onChain.Cmp(s.TotalAmount) != 0 {
			out = append(out, fmt.Sprintf("%s (log %s, contract %s)", s.Address, s.TotalAmount, onChain))
		}
	}
	return out
}

// ensureMetadata fetches and stores the metadata document the first time a hash is seen.
// Failures are only recorded when report is set, so an unreachable document is not
// logged again on every cycle.
func (w *Watcher) ensureMetadata(ctx context.Context, hash string, report bool) {
	if w.metadata == nil || hash == "" {
		return
	}

	existing, err := w.db.GetMetadata(hash)
	if err != nil {
		slog.Error("metadata lookup failed", "hash", hash, "error", err)
		return
	}
	if existing != nil {
		return
	}

	md, err := w.metadata.Fetch(ctx, hash)
	if err != nil {
		slog.Debug("metadata fetch failed", "hash", hash, "error", err)
		if report && ctx.Err() == nil {
			w.recordError(config.ErrorSeverityWarn, config.ErrorCategoryMetadata,
				fmt.Sprintf("metadata %s unavailable", hash), err.Error())
		}
		return
	}

	if err := w.db.SaveMetadata(hash, md); err != nil {
		slog.Error("metadata save failed", "hash", hash, "error", err)
	}
}

func (w *Watcher) recordError(severity, category, message, details string) {
	if _, err := w.db.InsertError(severity, category, message, details); err != nil {
		slog.Error("failed to record system error", "message", message, "error", err)
	}
}
