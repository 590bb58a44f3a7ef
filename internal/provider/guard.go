package provider

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Fantasim/crowdfund/internal/config"
)

// Guard pairs a rate limiter with a circuit breaker for one upstream endpoint.
type Guard struct {
	name    string
	limiter *RateLimiter
	breaker *CircuitBreaker
}

// NewGuard creates a Guard using the configured circuit breaker settings.
func NewGuard(name string, rps int) *Guard {
	return &Guard{
		name:    name,
		limiter: NewRateLimiter(name, rps),
		breaker: NewCircuitBreaker(config.CircuitBreakerThreshold, config.CircuitBreakerCooldown),
	}
}

// Name returns the upstream name.
func (g *Guard) Name() string { return g.name }

// Breaker exposes the circuit breaker, mainly for health reporting.
func (g *Guard) Breaker() *CircuitBreaker { return g.breaker }

// Do runs fn once if the circuit allows it, after waiting for the rate limiter.
// Failures of fn are recorded on the breaker unless ctx itself was cancelled.
func (g *Guard) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if !g.breaker.Allow() {
		slog.Debug("provider circuit open, skipping", "provider", g.name)
		return fmt.Errorf("%w: %s", config.ErrCircuitOpen, g.name)
	}

	if _, err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter cancelled for %s: %w", g.name, err)
	}

	if err := fn(ctx); err != nil {
		if ctx.Err() == nil {
			g.breaker.RecordFailure()
		}
		return err
	}

	g.breaker.RecordSuccess()
	return nil
}

// NewHTTPClient creates a configured HTTP client for upstream use.
func NewHTTPClient() *http.Client {
	transport := &http.Transport{
		MaxConnsPerHost:     config.HTTPMaxConnsPerHost,
		MaxIdleConnsPerHost: config.HTTPMaxIdleConnsPerHost,
		MaxIdleConns:        config.HTTPMaxIdleConns,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   config.ProviderRequestTimeout,
	}
}
