package migration

import (
	"context"
	"strings"
	"sync"
	"time"

	"enrolld/pkg/domain"
)

// MemoryStore is an in-memory Store for tests.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func entryKey(email string, batchID domain.BatchID) string {
	return strings.ToLower(email) + "|" + batchID.String()
}

func (s *MemoryStore) Upsert(_ context.Context, email string, batchID domain.BatchID, state EntryState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entryKey(email, batchID)] = Entry{
		Email:     email,
		BatchID:   batchID,
		State:     state,
		UpdatedAt: time.Now(),
	}
	return nil
}

func (s *MemoryStore) ListByBatch(_ context.Context, batchID domain.BatchID) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Entry
	for _, e := range s.entries {
		if e.BatchID == batchID {
			out = append(out, e)
		}
	}
	return out, nil
}

// State returns the recorded state for one entry.
func (s *MemoryStore) State(email string, batchID domain.BatchID) (EntryState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[entryKey(email, batchID)]
	return e.State, ok
}
