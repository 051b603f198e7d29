// Package retention periodically deletes contact edges past the retention
// horizon. The propagation engine also clamps its queries to the same
// horizon, so the sweep is a storage-hygiene measure, not a correctness one.
package retention

import (
	"context"
	"log/slog"
	"time"

	"chainalert/internal/contact"
)

// Sweeper deletes expired edges on a fixed interval until its context ends.
type Sweeper struct {
	store         contact.Store
	logger        *slog.Logger
	retentionDays int
	interval      time.Duration
}

func NewSweeper(store contact.Store, logger *slog.Logger, retentionDays int, interval time.Duration) *Sweeper {
	return &Sweeper{
		store:         store,
		logger:        logger,
		retentionDays: retentionDays,
		interval:      interval,
	}
}

// Run blocks until ctx is done. Sweep failures are logged and retried on the
// next tick; an unreachable store must not take the server down.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)
	deleted, err := s.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.ErrorContext(ctx, "retention sweep failed", "error", err)
		return
	}
	if deleted > 0 {
		s.logger.InfoContext(ctx, "retention sweep removed expired edges",
			"deleted", deleted,
			"cutoff", cutoff,
		)
	}
}
