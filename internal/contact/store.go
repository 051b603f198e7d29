package contact

import (
	"context"
	"time"
)

// Store is interface-driven to keep the traversal logic testable and to allow
// swapping in-memory and postgres persistence without rewiring the engine.
type Store interface {
	// Append records a new edge. Edges are append-only.
	Append(ctx context.Context, edge Edge) error

	// FindByPartner returns edges whose partner is the given graph ID with
	// RecordedAt in [from, to] inclusive, newest first. This is the only
	// query shape the propagation engine may use: it surfaces edges other
	// people recorded about the subject, never the subject's own claims.
	FindByPartner(ctx context.Context, partnerGraphID string, from, to time.Time) ([]Edge, error)

	// DeleteOlderThan removes edges recorded before the cutoff and returns
	// how many were deleted. Used by the retention sweep.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}
