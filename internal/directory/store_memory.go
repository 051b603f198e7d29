package directory

import (
	"context"
	"sync"

	"chainalert/pkg/platform/sentinel"
)

// InMemoryStore keeps directory entries under both join keys. Default for
// development and tests.
type InMemoryStore struct {
	mu             sync.RWMutex
	byGraphID      map[string]User
	byNotification map[string]User
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byGraphID:      make(map[string]User),
		byNotification: make(map[string]User),
	}
}

func (s *InMemoryStore) Save(_ context.Context, user User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byGraphID[user.GraphID] = user
	s.byNotification[user.NotificationID] = user
	return nil
}

func (s *InMemoryStore) FindByGraphID(_ context.Context, graphID string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if user, ok := s.byGraphID[graphID]; ok {
		return user, nil
	}
	return User{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindByGraphIDs(_ context.Context, graphIDs []string) (map[string]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	found := make(map[string]User, len(graphIDs))
	for _, id := range graphIDs {
		if user, ok := s.byGraphID[id]; ok {
			found[id] = user
		}
	}
	return found, nil
}

func (s *InMemoryStore) FindByNotificationID(_ context.Context, notificationID string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if user, ok := s.byNotification[notificationID]; ok {
		return user, nil
	}
	return User{}, sentinel.ErrNotFound
}
