package contact

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore keeps edges in a per-partner index. It intentionally favors
// clarity over performance and is the default for development and tests.
type InMemoryStore struct {
	mu        sync.RWMutex
	byPartner map[string][]Edge
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byPartner: make(map[string][]Edge)}
}

func (s *InMemoryStore) Append(_ context.Context, edge Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if edge.ID == "" {
		edge.ID = uuid.NewString()
	}
	s.byPartner[edge.PartnerGraphID] = append(s.byPartner[edge.PartnerGraphID], edge)
	return nil
}

func (s *InMemoryStore) FindByPartner(_ context.Context, partnerGraphID string, from, to time.Time) ([]Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []Edge
	for _, edge := range s.byPartner[partnerGraphID] {
		if edge.RecordedAt.Before(from) || edge.RecordedAt.After(to) {
			continue
		}
		matches = append(matches, edge)
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].RecordedAt.After(matches[j].RecordedAt)
	})
	return matches, nil
}

func (s *InMemoryStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for partner, edges := range s.byPartner {
		kept := edges[:0]
		for _, edge := range edges {
			if edge.RecordedAt.Before(cutoff) {
				deleted++
				continue
			}
			kept = append(kept, edge)
		}
		if len(kept) == 0 {
			delete(s.byPartner, partner)
			continue
		}
		s.byPartner[partner] = kept
	}
	return deleted, nil
}
