package checks

import (
	"context"
	"strconv"

	"github.com/mdnaeem95/halaltech/internal/monitoring"
)

// RealtimeObserver exposes the minimal state required to evaluate realtime health.
type RealtimeObserver interface {
	ActiveConnections() int64
}

// Realtime reports the websocket hub's connection count.
func Realtime(observer RealtimeObserver) monitoring.Check {
	return monitoring.NewCheck("realtime", func(context.Context) monitoring.ProbeResult {
		if observer == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDegraded, Details: "realtime hub unavailable"}
		}
		count := observer.ActiveConnections()
		if count < 0 {
			return monitoring.ProbeResult{Status: monitoring.StatusDegraded, Details: "negative connection count"}
		}
		return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: strconv.FormatInt(count, 10) + " connections"}
	})
}
