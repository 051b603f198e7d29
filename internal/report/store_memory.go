package report

import (
	"context"
	"sort"
	"sync"

	"chainalert/pkg/platform/sentinel"
)

// InMemoryStore is the default for development and tests.
type InMemoryStore struct {
	mu   sync.RWMutex
	byID map[string]Report
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byID: make(map[string]Report)}
}

func (s *InMemoryStore) Save(_ context.Context, r Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[r.ID]; exists {
		return sentinel.ErrConflict
	}
	s.byID[r.ID] = r
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[id]
	if !ok {
		return Report{}, sentinel.ErrNotFound
	}
	return r, nil
}

func (s *InMemoryStore) FindByOwner(_ context.Context, ownerReportID string) ([]Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []Report
	for _, r := range s.byID {
		if r.OwnerReportID == ownerReportID {
			matches = append(matches, r)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	return matches, nil
}

func (s *InMemoryStore) SetNotifiedCount(_ context.Context, id string, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byID[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	r.NotifiedCount = count
	s.byID[id] = r
	return nil
}
