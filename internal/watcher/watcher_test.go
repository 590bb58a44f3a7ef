package watcher

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/Fantasim/crowdfund/internal/config"
	"github.com/Fantasim/crowdfund/internal/events"
	"github.com/Fantasim/crowdfund/internal/models"
)

func TestSyncOnce_StoresSnapshot(t *testing.T) {
	env := setupWatcher(t, 10)
	env.reader.put(0, 1000, contribution(aliceAddr, 100, 10), contribution(bobAddr, 50, 20))
	env.reader.put(1, 500)

	res, err := env.watcher.SyncOnce(context.Background())
	if err != nil {
		t.Fatalf("SyncOnce() error = %v", err)
	}
	if res.Total != 2 || res.Refreshed != 2 || res.Failures != 0 {
		t.Errorf("result = %+v", res)
	}

	stored, err := env.db.GetCampaign("0")
	if err != nil || stored == nil {
		t.Fatalf("GetCampaign(0) = %v, %v", stored, err)
	}
	if stored.RaisedAmount.Int64() != 150 {
		t.Errorf("raised = %s, want 150", stored.RaisedAmount)
	}

	contribs, _ := env.db.ListContributions("0")
	if len(contribs) != 2 || contribs[0].Contributor != aliceAddr {
		t.Errorf("contributions = %+v", contribs)
	}

	run, _ := env.db.LatestSyncRun()
	if run == nil || run.ID != res.SyncID || run.Status != models.SyncStatusCompleted || run.Campaigns != 2 {
		t.Errorf("sync run = %+v", run)
	}

	evs := env.drain()
	if got := countType(evs, config.EventCampaignUpdated); got != 2 {
		t.Errorf("campaign_updated events = %d, want 2", got)
	}
	if got := countType(evs, config.EventSyncComplete); got != 1 {
		t.Errorf("sync_complete events = %d, want 1", got)
	}

	md, _ := env.db.GetMetadata(testCID)
	if md == nil || md.Category != "education" {
		t.Errorf("metadata = %+v", md)
	}
}

func TestSyncOnce_NoChangeNoBroadcast(t *testing.T) {
	env := setupWatcher(t, 10)
	env.reader.put(0, 1000, contribution(aliceAddr, 100, 10))

	if _, err := env.watcher.SyncOnce(context.Background()); err != nil {
		t.Fatalf("first SyncOnce() error = %v", err)
	}
	env.drain()

	if _, err := env.watcher.SyncOnce(context.Background()); err != nil {
		t.Fatalf("second SyncOnce() error = %v", err)
	}
	evs := env.drain()
	if got := countType(evs, config.EventCampaignUpdated); got != 0 {
		t.Errorf("campaign_updated events = %d, want 0", got)
	}

	env.reader.put(0, 1000, contribution(aliceAddr, 100, 10), contribution(bobAddr, 7, 11))
	if _, err := env.watcher.SyncOnce(context.Background()); err != nil {
		t.Fatalf("third SyncOnce() error = %v", err)
	}
	evs = env.drain()
	if got := countType(evs, config.EventCampaignUpdated); got != 1 {
		t.Fatalf("campaign_updated events = %d, want 1", got)
	}
	for _, ev := range evs {
		if data, ok := ev.Data.(events.CampaignUpdatedData); ok {
			if data.ContributionCount != 2 || data.RaisedAmount != "107" {
				t.Errorf("payload = %+v", data)
			}
		}
	}

	if env.metadata.calls != 1 {
		t.Errorf("metadata fetches = %d, want 1", env.metadata.calls)
	}
}

func TestSyncOnce_TracksNewestOnly(t *testing.T) {
	env := setupWatcher(t, 2)
	for id := uint64(0); id < 5; id++ {
		env.reader.put(id, 100)
	}

	res, err := env.watcher.SyncOnce(context.Background())
	if err != nil {
		t.Fatalf("SyncOnce() error = %v", err)
	}
	if res.Refreshed != 2 {
		t.Errorf("refreshed = %d, want 2", res.Refreshed)
	}

	for _, id := range []uint64{0, 1, 2} {
		if env.reader.readsOf(id) != 0 {
			t.Errorf("campaign %d should not be read", id)
		}
	}
	for _, id := range []uint64{3, 4} {
		if env.reader.readsOf(id) != 1 {
			t.Errorf("campaign %d reads = %d, want 1", id, env.reader.readsOf(id))
		}
	}
}

func TestTrackedIDs_FirstID(t *testing.T) {
	env := setupWatcher(t, 3)
	env.watcher.firstID = 1

	got := env.watcher.trackedIDs(4)
	want := []uint64{4, 3, 2}
	if len(got) != len(want) {
		t.Fatalf("trackedIDs = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("trackedIDs = %v, want %v", got, want)
			break
		}
	}

	if ids := env.watcher.trackedIDs(0); len(ids) != 0 {
		t.Errorf("trackedIDs(0) = %v, want empty", ids)
	}
}

func TestSyncOnce_CountFailure(t *testing.T) {
	env := setupWatcher(t, 10)
	env.reader.countErr = config.NewTransientError(config.ErrProviderUnavailable)

	if _, err := env.watcher.SyncOnce(context.Background()); !errors.Is(err, config.ErrProviderUnavailable) {
		t.Fatalf("SyncOnce() error = %v, want ErrProviderUnavailable", err)
	}

	run, _ := env.db.LatestSyncRun()
	if run == nil || run.Status != models.SyncStatusFailed {
		t.Errorf("sync run = %+v, want FAILED", run)
	}

	errs, _ := env.db.ListUnresolved()
	if len(errs) != 1 || errs[0].Category != config.ErrorCategoryProvider {
		t.Errorf("system errors = %+v", errs)
	}

	health, _ := env.db.GetAllProviderHealth()
	if len(health) != 1 || health[0].ConsecutiveFails != 1 {
		t.Errorf("provider health = %+v", health)
	}
}

func TestSyncOnce_PartialFailureContinues(t *testing.T) {
	env := setupWatcher(t, 10)
	env.reader.put(0, 100)
	env.reader.put(1, 100)
	env.reader.put(2, 100)
	env.reader.campaignErr[1] = config.NewTransientError(errors.New("timeout"))

	res, err := env.watcher.SyncOnce(context.Background())
	if err != nil {
		t.Fatalf("SyncOnce() error = %v", err)
	}
	if res.Refreshed != 2 || res.Failures != 1 {
		t.Errorf("result = %+v", res)
	}

	if c, _ := env.db.GetCampaign("1"); c != nil {
		t.Error("failed campaign should not be stored")
	}
	if c, _ := env.db.GetCampaign("0"); c == nil {
		t.Error("campaign 0 should be stored")
	}
}

func TestSyncOnce_SkipsEmptyIDs(t *testing.T) {
	env := setupWatcher(t, 10)
	env.reader.put(2, 100)

	res, err := env.watcher.SyncOnce(context.Background())
	if err != nil {
		t.Fatalf("SyncOnce() error = %v", err)
	}
	if res.Refreshed != 1 || res.Failures != 0 {
		t.Errorf("result = %+v", res)
	}
}

func TestSyncOnce_RecordsDiscrepancy(t *testing.T) {
	env := setupWatcher(t, 10)
	env.reader.put(0, 100, contribution(aliceAddr, 10, 1))
	env.reader.campaigns[0].RaisedAmount = big.NewInt(999)

	if _, err := env.watcher.SyncOnce(context.Background()); err != nil {
		t.Fatalf("SyncOnce() error = %v", err)
	}

	errs, _ := env.db.ListUnresolved()
	if len(errs) != 1 || errs[0].Category != config.ErrorCategoryWatcher || !strings.Contains(errs[0].Message, "mismatch") {
		t.Fatalf("system errors = %+v", errs)
	}
	if strings.Contains(errs[0].Details, "per-contributor") {
		t.Errorf("details = %q, want no per-contributor difference when the log matches getContribution", errs[0].Details)
	}
}

func TestSyncOnce_DiscrepancyNamesContributor(t *testing.T) {
	env := setupWatcher(t, 10)
	env.reader.put(0, 100, contribution(aliceAddr, 10, 1), contribution(bobAddr, 20, 2))
	env.reader.campaigns[0].RaisedAmount = big.NewInt(45)
	env.reader.totals[0] = map[string]*big.Int{aliceAddr: big.NewInt(25)}

	if _, err := env.watcher.SyncOnce(context.Background()); err != nil {
		t.Fatalf("SyncOnce() error = %v", err)
	}

	errs, _ := env.db.ListUnresolved()
	if len(errs) != 1 {
		t.Fatalf("system errors = %+v", errs)
	}
	if !strings.Contains(errs[0].Details, aliceAddr+" (log 10, contract 25)") {
		t.Errorf("details = %q, want alice named with both totals", errs[0].Details)
	}
	if strings.Contains(errs[0].Details, bobAddr) {
		t.Errorf("details = %q, bob's totals agree and must not be listed", errs[0].Details)
	}
}

func TestSyncOnce_MetadataFailureRecorded(t *testing.T) {
	env := setupWatcher(t, 10)
	env.metadata.err = config.ErrMetadataFetchFailed
	env.reader.put(0, 100)

	res, err := env.watcher.SyncOnce(context.Background())
	if err != nil {
		t.Fatalf("SyncOnce() error = %v", err)
	}
	if res.Failures != 0 {
		t.Errorf("metadata failure must not fail the campaign, result = %+v", res)
	}

	errs, _ := env.db.ListUnresolved()
	if len(errs) != 1 || errs[0].Category != config.ErrorCategoryMetadata {
		t.Errorf("system errors = %+v", errs)
	}
}

func TestRefreshCampaign(t *testing.T) {
	env := setupWatcher(t, 10)
	env.reader.put(3, 100, contribution(aliceAddr, 40, 5))

	rec, err := env.watcher.RefreshCampaign(context.Background(), "3")
	if err != nil {
		t.Fatalf("RefreshCampaign() error = %v", err)
	}
	if rec.ID != "3" || rec.RaisedAmount.Int64() != 40 {
		t.Errorf("record = %+v", rec)
	}

	if _, err := env.watcher.RefreshCampaign(context.Background(), "3"); err != nil {
		t.Fatalf("second RefreshCampaign() error = %v", err)
	}
	if got := countType(env.drain(), config.EventCampaignUpdated); got != 2 {
		t.Errorf("on-demand refresh should always broadcast, got %d events", got)
	}
}

func TestRefreshCampaign_Errors(t *testing.T) {
	env := setupWatcher(t, 10)

	if _, err := env.watcher.RefreshCampaign(context.Background(), "abc"); !errors.Is(err, config.ErrInvalidInput) {
		t.Errorf("invalid id error = %v, want ErrInvalidInput", err)
	}
	if _, err := env.watcher.RefreshCampaign(context.Background(), "8"); !errors.Is(err, config.ErrCampaignNotFound) {
		t.Errorf("missing campaign error = %v, want ErrCampaignNotFound", err)
	}

	env.watcher.refreshing[5] = struct{}{}
	if _, err := env.watcher.RefreshCampaign(context.Background(), "5"); !errors.Is(err, config.ErrRefreshInProgress) {
		t.Errorf("busy error = %v, want ErrRefreshInProgress", err)
	}
}

func TestStartStop(t *testing.T) {
	env := setupWatcher(t, 10)
	env.reader.put(0, 100)

	env.watcher.Start(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for {
		run, _ := env.db.LatestSyncRun()
		if run != nil && run.Status == models.SyncStatusCompleted {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("first sync cycle did not complete")
		}
		time.Sleep(10 * time.Millisecond)
	}

	stopped := make(chan struct{})
	go func() {
		env.watcher.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(config.ShutdownTimeout + time.Second):
		t.Fatal("Stop() did not return")
	}
}
