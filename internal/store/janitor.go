package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/m3rciful/unilinkup/core/logger"
)

// JanitorOptions configure periodic eviction. A zero max age disables that eviction.
type JanitorOptions struct {
	Interval      time.Duration
	SessionMaxAge time.Duration
	PingMaxAge    time.Duration
}

// Sweep runs one eviction pass and returns the number of sessions and pings removed.
func (s *Store) Sweep(ctx context.Context, opts JanitorOptions) (int, int) {
	var sessions, pings int
	if opts.SessionMaxAge > 0 {
		sessions = s.EvictInactiveSessions(opts.SessionMaxAge)
	}
	if opts.PingMaxAge > 0 {
		pings = s.EvictPingsOlderThan(opts.PingMaxAge)
	}
	if sessions > 0 || pings > 0 {
		logger.Info(ctx, "store", "janitor.evicted",
			slog.Int("sessions", sessions),
			slog.Int("pings", pings),
		)
	}
	return sessions, pings
}

// RunJanitor sweeps every Interval until ctx is done.
func (s *Store) RunJanitor(ctx context.Context, opts JanitorOptions) {
	if opts.Interval <= 0 {
		return
	}
	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx, opts)
		}
	}
}
