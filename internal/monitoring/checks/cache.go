package checks

import (
	"context"
	"time"

	"github.com/charlesng35/studyhall/internal/cache"
	"github.com/charlesng35/studyhall/internal/monitoring"
)

const defaultCacheTimeout = 2 * time.Second

type healthChecker interface {
	Health(ctx context.Context) error
}

// CodeCache returns a readiness probe for the one-time password cache. Stores without a
// remote backend always report up.
func CodeCache(store cache.Store, timeout time.Duration) monitoring.Check {
	return monitoring.NewCheck("code_cache", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if store == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "cache not configured"}
		}

		remote, ok := store.(healthChecker)
		if !ok {
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "in-memory"}
		}

		probeCtx, cancel := context.WithTimeout(ctx, chooseTimeout(timeout, defaultCacheTimeout))
		defer cancel()

		return monitoring.ResultFromError("code_cache", remote.Health(probeCtx), time.Since(start))
	})
}
