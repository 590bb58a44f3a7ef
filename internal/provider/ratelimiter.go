package provider

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/Fantasim/crowdfund/internal/config"
)

// RateLimiter paces calls to one upstream (rpc or ipfs).
// An rps of zero or less disables pacing for that upstream.
type RateLimiter struct {
	limiter *rate.Limiter
	name    string
}

// NewRateLimiter creates a rate limiter allowing rps requests per second
// with a burst of config.RateLimitBurst.
func NewRateLimiter(name string, rps int) *RateLimiter {
	limit := rate.Limit(rps)
	burst := config.RateLimitBurst
	if rps <= 0 {
		limit = rate.Inf
		burst = 0
	}
	slog.Debug("rate limiter created",
		"provider", name,
		"rps", rps,
		"burst", burst,
		"unlimited", limit == rate.Inf,
	)
	return &RateLimiter{
		limiter: rate.NewLimiter(limit, burst),
		name:    name,
	}
}

// Wait blocks until the upstream allows another request or ctx is cancelled.
// It returns how long the caller was held back.
func (rl *RateLimiter) Wait(ctx context.Context) (time.Duration, error) {
	if rl.Unlimited() {
		return 0, ctx.Err()
	}

	start := time.Now()
	if err := rl.limiter.Wait(ctx); err != nil {
		slog.Warn("rate limiter wait cancelled",
			"provider", rl.name,
			"error", err,
		)
		return time.Since(start), err
	}

	waited := time.Since(start)
	if waited >= config.RateLimitSlowWait {
		slog.Debug("upstream throttled",
			"provider", rl.name,
			"waited", waited,
			"rps", float64(rl.limiter.Limit()),
		)
	}
	return waited, nil
}

// Unlimited reports whether pacing is disabled for this upstream.
func (rl *RateLimiter) Unlimited() bool {
	return rl.limiter.Limit() == rate.Inf
}

// Name returns the upstream name this limiter is associated with.
func (rl *RateLimiter) Name() string {
	return rl.name
}
