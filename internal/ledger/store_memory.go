package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for tests.
type MemoryStore struct {
	mu      sync.Mutex
	records []Record
	// FailInsert forces Insert to fail, for exercising the never-throw
	// contract.
	FailInsert error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Insert(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailInsert != nil {
		return s.FailInsert
	}
	now := time.Now()
	record.CreatedAt, record.UpdatedAt = now, now
	s.records = append(s.records, record)
	return nil
}

func (s *MemoryStore) ListUnresolved(_ context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Record
	for _, r := range s.records {
		if r.Status == StatusNew || r.Status == StatusRetried {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemoryStore) MarkResolved(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].ID == id {
			s.records[i].Status = StatusResolved
			s.records[i].UpdatedAt = time.Now()
		}
	}
	return nil
}

// Records returns a copy of everything inserted so far.
func (s *MemoryStore) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}
