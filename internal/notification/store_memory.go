package notification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"chainalert/pkg/platform/sentinel"
)

// InMemoryStore keeps entries under a single mutex, which trivially gives the
// per-key serialization Upsert requires. Default for development and tests.
type InMemoryStore struct {
	mu    sync.RWMutex
	byID  map[string]*Entry
	byKey map[string]*Entry // reportID + "/" + recipientID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:  make(map[string]*Entry),
		byKey: make(map[string]*Entry),
	}
}

func key(reportID, recipientID string) string { return reportID + "/" + recipientID }

func (s *InMemoryStore) FindByID(_ context.Context, id string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.byID[id]; ok {
		return *e, nil
	}
	return Entry{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindByReportAndRecipient(_ context.Context, reportID, recipientID string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.byKey[key(reportID, recipientID)]; ok {
		return *e, nil
	}
	return Entry{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindByRecipient(_ context.Context, recipientID string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var entries []Entry
	for _, e := range s.byID {
		if e.RecipientID == recipientID {
			entries = append(entries, *e)
		}
	}
	return entries, nil
}

func (s *InMemoryStore) FindByChainMember(_ context.Context, chainHash string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var entries []Entry
	for _, e := range s.byID {
		for _, m := range e.ChainMembers() {
			if m == chainHash {
				entries = append(entries, *e)
				break
			}
		}
	}
	return entries, nil
}

func (s *InMemoryStore) Upsert(_ context.Context, entry Entry) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(entry.ReportID, entry.RecipientID)
	if existing, ok := s.byKey[k]; ok {
		existing.Merge(entry, time.Now())
		return *existing, false, nil
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now()
	if entry.ReceivedAt.IsZero() {
		entry.ReceivedAt = now
	}
	entry.UpdatedAt = now
	stored := entry
	s.byID[stored.ID] = &stored
	s.byKey[k] = &stored
	return stored, true, nil
}

func (s *InMemoryStore) Mutate(_ context.Context, id string, mutate func(*Entry) bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.byID[id]
	if !ok {
		return false, sentinel.ErrNotFound
	}
	if !mutate(existing) {
		return false, nil
	}
	existing.UpdatedAt = time.Now()
	return true, nil
}

func (s *InMemoryStore) MarkRead(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.byID[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	existing.IsRead = true
	existing.UpdatedAt = time.Now()
	return nil
}
