package report

import "context"

// Store persists submitted reports.
//
// Implementations return sentinel.ErrNotFound for missing IDs.
type Store interface {
	Save(ctx context.Context, r Report) error
	FindByID(ctx context.Context, id string) (Report, error)
	// FindByOwner returns the caller's own reports, newest first.
	FindByOwner(ctx context.Context, ownerReportID string) ([]Report, error)
	// SetNotifiedCount records the fan-out result after propagation.
	SetNotifiedCount(ctx context.Context, id string, count int) error
}
