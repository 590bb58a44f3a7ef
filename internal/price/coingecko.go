package price

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/Fantasim/crowdfund/internal/config"
	"github.com/shopspring/decimal"
)

// PriceService fetches and caches the ETH/USD price from CoinGecko.
// The price only feeds display estimates and never reaches campaign arithmetic.
type PriceService struct {
	client   *http.Client
	baseURL  string
	cached   decimal.Decimal
	cachedAt time.Time
	mu       sync.RWMutex
}

// NewPriceService creates a new PriceService with default configuration.
func NewPriceService() *PriceService {
	slog.Info("price service initialized",
		"baseURL", config.CoinGeckoBaseURL,
		"cacheDuration", config.PriceCacheDuration,
	)
	return NewPriceServiceWithURL(config.CoinGeckoBaseURL)
}

// NewPriceServiceWithURL creates a PriceService with a custom base URL (for testing).
func NewPriceServiceWithURL(baseURL string) *PriceService {
	return &PriceService{
		client: &http.Client{
			Timeout: config.APITimeout,
		},
		baseURL: baseURL,
	}
}

// ETHPrice returns the current ETH price in USD, served from cache while fresh.
func (ps *PriceService) ETHPrice(ctx context.Context) (decimal.Decimal, error) {
	ps.mu.RLock()
	if !ps.cachedAt.IsZero() && time.Since(ps.cachedAt) < config.PriceCacheDuration {
		price := ps.cached
		age := time.Since(ps.cachedAt)
		ps.mu.RUnlock()

		slog.Debug("price cache hit", "age", age.Round(time.Second))
		return price, nil
	}
	ps.mu.RUnlock()

	price, err := ps.fetchPrice(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	ps.mu.Lock()
	ps.cached = price
	ps.cachedAt = time.Now()
	ps.mu.Unlock()

	return price, nil
}

// coinGeckoResponse represents the CoinGecko /simple/price response.
type coinGeckoResponse map[string]map[string]float64

func (ps *PriceService) fetchPrice(ctx context.Context) (decimal.Decimal, error) {
	url := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", ps.baseURL, config.CoinGeckoIDETH)

	slog.Info("fetching price from CoinGecko", "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("create price request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := ps.client.Do(req)
	if err != nil {
		slog.Error("CoinGecko request failed",
			"error", err,
			"elapsed", time.Since(start).Round(time.Millisecond),
		)
		return decimal.Zero, fmt.Errorf("%w: %v", config.ErrPriceFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Error("CoinGecko non-200 response",
			"status", resp.StatusCode,
			"elapsed", time.Since(start).Round(time.Millisecond),
		)
		return decimal.Zero, fmt.Errorf("%w: HTTP %d", config.ErrPriceFetchFailed, resp.StatusCode)
	}

	var cgResp coinGeckoResponse
	if err := json.NewDecoder(resp.Body).Decode(&cgResp); err != nil {
		return decimal.Zero, fmt.Errorf("%w: decode error: %v", config.ErrPriceFetchFailed, err)
	}

	usd, ok := cgResp[config.CoinGeckoIDETH]["usd"]
	if !ok || usd <= 0 {
		return decimal.Zero, fmt.Errorf("%w: no usd quote for %s", config.ErrPriceFetchFailed, config.CoinGeckoIDETH)
	}

	price := decimal.NewFromFloat(usd)
	slog.Info("price fetched",
		"ETH", price.String(),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return price, nil
}

// USDValue converts a wei amount to a USD string with two decimals.
func USDValue(wei *big.Int, price decimal.Decimal) string {
	if wei == nil {
		return "0.00"
	}
	return decimal.NewFromBigInt(wei, -config.WeiDecimals).Mul(price).StringFixed(2)
}
