package ports

import (
	"context"
	"time"

	"github.com/odoodash/gateway/core"
)

// RateLimiter tracks request counts per key within fixed windows.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (core.RateDecision, error)
}
