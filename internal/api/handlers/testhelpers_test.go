package handlers

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Fantasim/crowdfund/internal/config"
	"github.com/Fantasim/crowdfund/internal/db"
	"github.com/Fantasim/crowdfund/internal/events"
	"github.com/Fantasim/crowdfund/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

const (
	creatorAddr = "0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359"
	aliceAddr   = "0xdbf03b407c01e7cd3cbea99509d93f8dddc8c6fb"
	bobAddr     = "0xd1220a0cf47c7b9be7a2e6ba89f429762e7b9adb"
	testCID     = "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"

	// testNow is the fixed request time used by every handler test.
	testNow int64 = 1_700_000_000
)

// ether returns n * 10^18 wei.
func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

type fakeRefresher struct {
	mu    sync.Mutex
	err   error
	calls []string
}

func (f *fakeRefresher) RefreshCampaign(_ context.Context, id string) (*models.CampaignRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, id)
	if f.err != nil {
		return nil, f.err
	}
	return &models.CampaignRecord{ID: id}, nil
}

type fakePrices struct {
	price decimal.Decimal
	err   error
}

func (f *fakePrices) ETHPrice(_ context.Context) (decimal.Decimal, error) {
	return f.price, f.err
}

type testDeps struct {
	db        *db.DB
	hub       *events.Hub
	cfg       *config.Config
	refresher *fakeRefresher
	prices    *fakePrices
	router    http.Handler
}

func setupTestDeps(t *testing.T) *testDeps {
	t.Helper()

	database, err := db.New(filepath.Join(t.TempDir(), "test_api.sqlite"))
	if err != nil {
		t.Fatalf("db.New() error = %v", err)
	}
	if err := database.RunMigrations(); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })

	cfg := &config.Config{
		Network:         "sepolia",
		ContractAddress: "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		CurrencySymbol:  "SepoliaETH",
	}

	d := &testDeps{
		db:        database,
		hub:       events.NewHub(),
		cfg:       cfg,
		refresher: &fakeRefresher{},
		prices:    &fakePrices{price: decimal.NewFromInt(2000)},
	}

	clock := func() time.Time { return time.Unix(testNow, 0) }

	r := chi.NewRouter()
	r.Get("/api/health", HealthHandler(cfg, "test", database, d.hub))
	r.Get("/api/health/providers", GetProviderHealth(database))
	r.Get("/api/campaigns", ListCampaigns(database, cfg, clock))
	r.Get("/api/campaigns/{id}", GetCampaign(database, d.prices, cfg, clock))
	r.Get("/api/campaigns/{id}/contributors", GetContributors(database, clock))
	r.Post("/api/campaigns/{id}/refresh", RefreshCampaign(d.refresher, database, cfg, clock))
	r.Get("/api/errors", ListSystemErrors(database))
	r.Post("/api/errors/{id}/resolve", ResolveSystemError(database))
	r.Get("/api/events", SSEEvents(d.hub, database))
	d.router = r

	return d
}

// seedCampaign stores a campaign and its contributions. raised is the sum of the amounts.
func (d *testDeps) seedCampaign(t *testing.T, id string, target *big.Int, deadline, createdAt int64, contributions ...models.ContributionEvent) models.CampaignRecord {
	t.Helper()

	raised := new(big.Int)
	for _, c := range contributions {
		raised.Add(raised, c.Amount)
	}

	rec := models.CampaignRecord{
		ID:           id,
		Creator:      creatorAddr,
		Title:        "Campaign " + id,
		Description:  "A test campaign",
		MetadataHash: testCID,
		TargetAmount: target,
		RaisedAmount: raised,
		Deadline:     deadline,
		CreatedAt:    createdAt,
		Active:       true,
	}
	if err := d.db.UpsertCampaign(rec); err != nil {
		t.Fatalf("UpsertCampaign() error = %v", err)
	}
	if err := d.db.ReplaceContributions(id, contributions); err != nil {
		t.Fatalf("ReplaceContributions() error = %v", err)
	}
	return rec
}

func contribution(addr string, amount *big.Int, ts int64) models.ContributionEvent {
	ev := models.ContributionEvent{Contributor: addr, Amount: amount}
	if ts != 0 {
		ev.Timestamp = models.Int64Ptr(ts)
	}
	return ev
}

func (d *testDeps) do(t *testing.T, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	d.router.ServeHTTP(w, req)
	return w
}

// decodeData unmarshals the {"data": ...} envelope into out.
func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to parse response: %v. body: %s", err, w.Body.String())
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("failed to parse data: %v. body: %s", err, w.Body.String())
	}
}

// errorCode returns the code of the {"error": ...} envelope.
func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to parse error response: %v. body: %s", err, w.Body.String())
	}
	return env.Error.Code
}
