package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"sync"
	"time"

	"github.com/Fantasim/crowdfund/internal/config"
	"github.com/Fantasim/crowdfund/internal/db"
	"github.com/Fantasim/crowdfund/internal/events"
	"github.com/Fantasim/crowdfund/internal/models"
)

// ContractReader is the part of the chain reader the watcher depends on.
type ContractReader interface {
	CampaignCount(ctx context.Context) (uint64, error)
	GetCampaign(ctx context.Context, id uint64) (*models.CampaignRecord, error)
	GetContributions(ctx context.Context, id uint64) ([]models.ContributionEvent, error)
	GetContribution(ctx context.Context, id uint64, contributor string) (*big.Int, error)
	CircuitState() string
}

// MetadataFetcher resolves metadata hashes to documents.
type MetadataFetcher interface {
	Fetch(ctx context.Context, hash string) (*models.Metadata, error)
}

// Watcher keeps the local snapshot of on-chain campaigns fresh.
// A single goroutine runs one sync cycle per poll interval; RefreshCampaign
// refreshes one campaign on demand.
type Watcher struct {
	db       *db.DB
	reader   ContractReader
	metadata MetadataFetcher
	hub      *events.Hub

	interval   time.Duration
	maxTracked int
	firstID    uint64

	cycleMu sync.Mutex // one sync cycle at a time

	mu         sync.Mutex
	cancel     context.CancelFunc
	refreshing map[uint64]struct{}
	wg         sync.WaitGroup
}

// New creates a Watcher. metadata may be nil, in which case metadata is never fetched.
func New(database *db.DB, reader ContractReader, metadata MetadataFetcher, hub *events.Hub, cfg *config.Config) *Watcher {
	w := &Watcher{
		db:         database,
		reader:     reader,
		metadata:   metadata,
		hub:        hub,
		interval:   time.Duration(cfg.PollIntervalSec) * time.Second,
		maxTracked: cfg.MaxTrackedCampaigns,
		firstID:    cfg.FirstCampaignID,
		refreshing: make(map[uint64]struct{}),
	}

	slog.Info("watcher initialized",
		"pollInterval", w.interval,
		"maxTrackedCampaigns", w.maxTracked,
		"firstCampaignID", w.firstID,
	)
	return w
}

// Start launches the poll loop. The first cycle runs immediately.
func (w *Watcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	w.mu.Lock()
	w.cancel = cancel
	w.mu.Unlock()

	w.wg.Add(1)
	go w.run(ctx)
}

func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	slog.Info("watcher loop started", "interval", w.interval)

	for {
		if _, err := w.SyncOnce(ctx); err != nil && ctx.Err() == nil {
			slog.Error("sync cycle failed", "error", err)
		}

		select {
		case <-ctx.Done():
			slog.Info("watcher loop stopped", "reason", ctx.Err())
			return
		case <-ticker.C:
		}
	}
}

// Stop cancels the poll loop and waits for it to finish, up to ShutdownTimeout.
func (w *Watcher) Stop() {
	slog.Info("watcher stopping")

	w.mu.Lock()
	if w.cancel != nil {
		w.cancel()
	}
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("watcher stopped")
	case <-time.After(config.ShutdownTimeout):
		slog.Warn("watcher shutdown timed out", "timeout", config.ShutdownTimeout)
	}
}

// RefreshCampaign re-reads one campaign from the chain and stores it.
// Concurrent refreshes of the same campaign are rejected with ErrRefreshInProgress.
func (w *Watcher) RefreshCampaign(ctx context.Context, id string) (*models.CampaignRecord, error) {
	numericID, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: campaign id %q", config.ErrInvalidInput, id)
	}

	w.mu.Lock()
	if _, busy := w.refreshing[numericID]; busy {
		w.mu.Unlock()
		return nil, fmt.Errorf("%w: campaign %s", config.ErrRefreshInProgress, id)
	}
	w.refreshing[numericID] = struct{}{}
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		delete(w.refreshing, numericID)
		w.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, config.RefreshCampaignTimeout)
	defer cancel()

	slog.Info("on-demand campaign refresh", "campaignID", id)

	rec, _, err := w.refreshOne(ctx, "manual", numericID, true)
	if err != nil {
		w.recordProvider(err)
		return nil, err
	}
	w.recordProvider(nil)
	return rec, nil
}

// recordProvider stores the RPC circuit state in provider_health.
func (w *Watcher) recordProvider(err error) {
	state := w.reader.CircuitState()
	var dbErr error
	if err == nil {
		dbErr = w.db.RecordProviderSuccess("rpc", state)
	} else if config.IsTransient(err) {
		dbErr = w.db.RecordProviderFailure("rpc", state, err.Error())
	}
	if dbErr != nil {
		slog.Error("failed to record provider health", "error", dbErr)
	}
}

// hasChanged reports whether a fresh read differs from the stored snapshot.
func hasChanged(prev *models.CampaignRecord, prevCount int, rec *models.CampaignRecord, count int) bool {
	if prev == nil {
		return true
	}
	return prevCount != count ||
		prev.Active != rec.Active ||
		prev.Withdrawn != rec.Withdrawn ||
		cmpAmount(prev.RaisedAmount, rec.RaisedAmount) != 0 ||
		cmpAmount(prev.TargetAmount, rec.TargetAmount) != 0 ||
		prev.Deadline != rec.Deadline ||
		prev.MetadataHash != rec.MetadataHash
}

func cmpAmount(a, b *big.Int) int {
	if a == nil || b == nil {
		if a == b {
			return 0
		}
		return 1
	}
	return a.Cmp(b)
}
