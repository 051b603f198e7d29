//go:build integration

package contact_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"chainalert/internal/contact"
	"chainalert/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *contact.PostgresStore
	now      time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = contact.NewPostgresStore(s.postgres.DB)
	s.now = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "contact_edges"))
}

func (s *PostgresStoreSuite) append(owner, partner string, at time.Time) {
	s.Require().NoError(s.store.Append(context.Background(), contact.Edge{
		OwnerGraphID:       owner,
		PartnerGraphID:     partner,
		PartnerDisplayName: partner,
		RecordedAt:         at,
	}))
}

func (s *PostgresStoreSuite) TestFindByPartnerWindowIsInclusive() {
	ctx := context.Background()
	from := s.now.AddDate(0, 0, -30)

	// Window boundaries are inclusive on both ends.
	s.append("bob", "alice", from)
	s.append("carol", "alice", s.now)
	s.append("dave", "alice", from.Add(-time.Second))
	s.append("erin", "other", s.now.Add(-time.Hour))

	edges, err := s.store.FindByPartner(ctx, "alice", from, s.now)
	s.Require().NoError(err)
	s.Require().Len(edges, 2)
	s.Equal("carol", edges[0].OwnerGraphID, "newest first")
	s.Equal("bob", edges[1].OwnerGraphID)
}

// The store must only answer "who claims to have met X", never "who does X
// claim to have met".
func (s *PostgresStoreSuite) TestOwnerDirectionIsNotQueryable() {
	ctx := context.Background()
	s.append("alice", "bob", s.now)

	edges, err := s.store.FindByPartner(ctx, "alice", s.now.AddDate(0, 0, -30), s.now)
	s.Require().NoError(err)
	s.Empty(edges)
}

func (s *PostgresStoreSuite) TestDeleteOlderThan() {
	ctx := context.Background()
	s.append("bob", "alice", s.now.AddDate(0, 0, -200))
	s.append("carol", "alice", s.now.AddDate(0, 0, -10))

	deleted, err := s.store.DeleteOlderThan(ctx, s.now.AddDate(0, 0, -180))
	s.Require().NoError(err)
	s.Equal(1, deleted)

	edges, err := s.store.FindByPartner(ctx, "alice", s.now.AddDate(0, 0, -365), s.now)
	s.Require().NoError(err)
	s.Len(edges, 1)
	s.Equal("carol", edges[0].OwnerGraphID)
}
