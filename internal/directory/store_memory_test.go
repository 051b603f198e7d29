package directory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"chainalert/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
}

func (s *InMemoryStoreSuite) TestLookups() {
	ctx := context.Background()
	user := User{
		GraphID:        "graph-1",
		NotificationID: "notif-1",
		DisplayName:    "Alex",
		PushToken:      "token-1",
	}
	s.Require().NoError(s.store.Save(ctx, user))

	s.Run("find by graph ID", func() {
		got, err := s.store.FindByGraphID(ctx, "graph-1")
		s.NoError(err)
		s.Equal(user, got)
	})

	s.Run("find by notification ID", func() {
		got, err := s.store.FindByNotificationID(ctx, "notif-1")
		s.NoError(err)
		s.Equal(user, got)
	})

	s.Run("missing entries return sentinel", func() {
		_, err := s.store.FindByGraphID(ctx, "missing")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemoryStoreSuite) TestFindByGraphIDs() {
	ctx := context.Background()
	s.Require().NoError(s.store.Save(ctx, User{GraphID: "graph-1", NotificationID: "notif-1"}))
	s.Require().NoError(s.store.Save(ctx, User{GraphID: "graph-2", NotificationID: "notif-2"}))

	s.Run("batch resolves known IDs and skips unknown ones", func() {
		found, err := s.store.FindByGraphIDs(ctx, []string{"graph-1", "graph-2", "graph-3"})
		s.NoError(err)
		s.Len(found, 2)
		s.Contains(found, "graph-1")
		s.Contains(found, "graph-2")
		s.NotContains(found, "graph-3")
	})

	s.Run("empty batch returns empty map", func() {
		found, err := s.store.FindByGraphIDs(ctx, nil)
		s.NoError(err)
		s.Empty(found)
	})
}
