package retention

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chainalert/internal/contact"
)

func TestSweeperRemovesExpiredEdges(t *testing.T) {
	store := contact.NewInMemoryStore()
	ctx := context.Background()

	old := contact.Edge{
		OwnerGraphID:   "owner-a",
		PartnerGraphID: "partner-x",
		RecordedAt:     time.Now().AddDate(0, 0, -200),
	}
	fresh := contact.Edge{
		OwnerGraphID:   "owner-b",
		PartnerGraphID: "partner-x",
		RecordedAt:     time.Now().AddDate(0, 0, -1),
	}
	require.NoError(t, store.Append(ctx, old))
	require.NoError(t, store.Append(ctx, fresh))

	sweeper := NewSweeper(store, slog.New(slog.DiscardHandler), 180, 10*time.Millisecond)

	runCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	err := sweeper.Run(runCtx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	edges, err := store.FindByPartner(ctx, "partner-x", time.Now().AddDate(-1, 0, 0), time.Now())
	require.NoError(t, err)
	require.Len(t, edges, 1)
	require.Equal(t, "owner-b", edges[0].OwnerGraphID)
}
