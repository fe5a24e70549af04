package checks

import (
	"context"
	"time"

	"github.com/mdnaeem95/halaltech/internal/monitoring"
)

// RedisPinger represents the minimal interface required to probe a redis connection.
type RedisPinger interface {
	Ping(ctx context.Context) error
}

// Redis returns a readiness probe for the shared cache. A disabled cache
// reports up so operators can run without redis.
func Redis(client RedisPinger, enabled bool) monitoring.Check {
	return monitoring.NewCheck("redis", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if !enabled {
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "redis disabled"}
		}
		if client == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDegraded, Details: "redis unavailable"}
		}
		return monitoring.ResultFromError("redis", client.Ping(ctx), time.Since(start))
	})
}
