package repository

import (
	"context"
	"sync"

	"github.com/smallbiznis/checkoutrelay/internal/eligibility/domain"
)

// MemoryStore keeps records in process memory. It backs tests and local runs
// without Clerk credentials.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]domain.Eligibility
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]domain.Eligibility{}}
}

func (s *MemoryStore) Get(ctx context.Context, userID string) (domain.Eligibility, error) {
	if err := ctx.Err(); err != nil {
		return domain.Eligibility{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[userID], nil
}

func (s *MemoryStore) Put(ctx context.Context, userID string, record domain.Eligibility) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[userID] = record
	return nil
}
