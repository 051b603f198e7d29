package notification

import "context"

// Store persists notification entries. Upsert is the only write path the
// propagation engine uses; it must serialize concurrent merges on the same
// (report, recipient) key.
type Store interface {
	FindByID(ctx context.Context, id string) (Entry, error)
	FindByReportAndRecipient(ctx context.Context, reportID, recipientID string) (Entry, error)
	FindByRecipient(ctx context.Context, recipientID string) ([]Entry, error)

	// FindByChainMember returns every entry whose stored paths include the
	// given chain-domain hash.
	FindByChainMember(ctx context.Context, chainHash string) ([]Entry, error)

	// Upsert inserts the entry if (ReportID, RecipientID) is new, otherwise
	// merges it into the existing row under a per-key lock. Returns the
	// stored entry and whether it was created.
	Upsert(ctx context.Context, entry Entry) (Entry, bool, error)

	// Mutate reloads the entry under the same per-row lock Upsert takes,
	// applies mutate, and persists the result when mutate reports a
	// change. Status rewrites go through here so they can never clobber
	// a concurrently merged path.
	Mutate(ctx context.Context, id string, mutate func(*Entry) bool) (bool, error)

	MarkRead(ctx context.Context, id string) error
}
