package watcher

import (
	"context"
	"math/big"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/Fantasim/crowdfund/internal/config"
	"github.com/Fantasim/crowdfund/internal/db"
	"github.com/Fantasim/crowdfund/internal/events"
	"github.com/Fantasim/crowdfund/internal/models"
)

const (
	creatorAddr = "0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359"
	aliceAddr   = "0xdbf03b407c01e7cd3cbea99509d93f8dddc8c6fb"
	bobAddr     = "0xd1220a0cf47c7b9be7a2e6ba89f429762e7b9adb"
	testCID     = "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"
)

// fakeReader is an in-memory ContractReader.
type fakeReader struct {
	mu            sync.Mutex
	count         uint64
	countErr      error
	campaigns     map[uint64]*models.CampaignRecord
	contributions map[uint64][]models.ContributionEvent
	campaignErr   map[uint64]error
	reads         map[uint64]int
	totals        map[uint64]map[string]*big.Int // overrides getContribution
}

func newFakeReader() *fakeReader {
	return &fakeReader{
		campaigns:     make(map[uint64]*models.CampaignRecord),
		contributions: make(map[uint64][]models.ContributionEvent),
		campaignErr:   make(map[uint64]error),
		reads:         make(map[uint64]int),
		totals:        make(map[uint64]map[string]*big.Int),
	}
}

func (f *fakeReader) CampaignCount(_ context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count, f.countErr
}

func (f *fakeReader) GetCampaign(_ context.Context, id uint64) (*models.CampaignRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads[id]++
	if err := f.campaignErr[id]; err != nil {
		return nil, err
	}
	c, ok := f.campaigns[id]
	if !ok {
		return nil, config.ErrCampaignNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeReader) GetContributions(_ context.Context, id uint64) ([]models.ContributionEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.ContributionEvent(nil), f.contributions[id]...), nil
}

// GetContribution sums the stored log unless an explicit total was set.
func (f *fakeReader) GetContribution(_ context.Context, id uint64, contributor string) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.totals[id][contributor]; ok {
		return new(big.Int).Set(v), nil
	}
	total := new(big.Int)
	for _, c := range f.contributions[id] {
		if c.Contributor == contributor {
			total.Add(total, c.Amount)
		}
	}
	return total, nil
}

func (f *fakeReader) CircuitState() string { return config.CircuitClosed }

// put stores a campaign whose raised amount equals the sum of its contributions.
func (f *fakeReader) put(id uint64, target int64, contributions ...models.ContributionEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()

	raised := new(big.Int)
	for _, c := range contributions {
		raised.Add(raised, c.Amount)
	}
	f.campaigns[id] = &models.CampaignRecord{
		ID:           strconv.FormatUint(id, 10),
		Creator:      creatorAddr,
		Title:        "campaign",
		MetadataHash: testCID,
		TargetAmount: big.NewInt(target),
		RaisedAmount: raised,
		Deadline:     1_800_000_000,
		CreatedAt:    1_700_000_000 + int64(id),
		Active:       true,
	}
	f.contributions[id] = contributions
	if id+1 > f.count {
		f.count = id + 1
	}
}

func (f *fakeReader) readsOf(id uint64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads[id]
}

// fakeMetadata counts fetches and returns a fixed document.
type fakeMetadata struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeMetadata) Fetch(_ context.Context, hash string) (*models.Metadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &models.Metadata{Category: "education", Tags: []string{hash[:4]}}, nil
}

func contribution(addr string, amount int64, ts int64) models.ContributionEvent {
	return models.ContributionEvent{Contributor: addr, Amount: big.NewInt(amount), Timestamp: models.Int64Ptr(ts)}
}

type testEnv struct {
	db       *db.DB
	hub      *events.Hub
	reader   *fakeReader
	metadata *fakeMetadata
	watcher  *Watcher
	sub      chan events.Event
}

func setupWatcher(t *testing.T, maxTracked int) *testEnv {
	t.Helper()

	database, err := db.New(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatalf("db.New() error = %v", err)
	}
	if err := database.RunMigrations(); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })

	hub := events.NewHub()
	sub := hub.Subscribe()
	t.Cleanup(func() { hub.Unsubscribe(sub) })

	reader := newFakeReader()
	md := &fakeMetadata{}
	cfg := &config.Config{PollIntervalSec: config.MinPollIntervalSec, MaxTrackedCampaigns: maxTracked}

	return &testEnv{
		db:       database,
		hub:      hub,
		reader:   reader,
		metadata: md,
		watcher:  New(database, reader, md, hub, cfg),
		sub:      sub,
	}
}

// drain returns every event currently buffered on the subscription.
func (e *testEnv) drain() []events.Event {
	var out []events.Event
	for {
		select {
		case ev := <-e.sub:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func countType(evs []events.Event, typ string) int {
	n := 0
	for _, ev := range evs {
		if ev.Type == typ {
			n++
		}
	}
	return n
}
