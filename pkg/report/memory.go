package report

import (
	"context"
	"sync"

	"github.com/ethpandaops/eip3074-protection/pkg/runner"
)

// MemoryStore keeps the most recent results in process. It is used when no
// redis is configured.
type MemoryStore struct {
	mu         sync.RWMutex
	results    []*runner.Result
	maxEntries int
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(maxEntries int) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = 1
	}

	return &MemoryStore{maxEntries: maxEntries}
}

func (s *MemoryStore) Save(_ context.Context, result *runner.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results = append([]*runner.Result{result}, s.results...)

	if len(s.results) > s.maxEntries {
		s.results = s.results[:s.maxEntries]
	}

	return nil
}

func (s *MemoryStore) Latest(_ context.Context) (*runner.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.results) == 0 {
		return nil, ErrNoResults
	}

	return s.results[0], nil
}

func (s *MemoryStore) List(_ context.Context, limit int64) ([]*runner.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		return nil, nil
	}

	if limit > int64(len(s.results)) {
		limit = int64(len(s.results))
	}

	return append([]*runner.Result{}, s.results[:limit]...), nil
}
