package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/domain"
	"github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/storage"
)

// IngestRunStore is an in-memory implementation of storage.IngestRunStore.
type IngestRunStore struct {
	mu   sync.RWMutex
	runs []*domain.IngestRun
	ids  map[string]struct{}
}

// NewIngestRunStore creates a new in-memory ingest run store.
func NewIngestRunStore() *IngestRunStore {
	return &IngestRunStore{
		ids: make(map[string]struct{}),
	}
}

// Verify interface compliance at compile time.
var _ storage.IngestRunStore = (*IngestRunStore)(nil)

// Insert appends a run row. Returns ErrDuplicateKey if run_id exists.
func (s *IngestRunStore) Insert(_ context.Context, r *domain.IngestRun) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ids[r.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	runCopy := *r
	s.runs = append(s.runs, &runCopy)
	s.ids[r.RunID] = struct{}{}
	return nil
}

// GetRecent retrieves the most recent runs, newest first.
func (s *IngestRunStore) GetRecent(_ context.Context, limit int) ([]*domain.IngestRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.IngestRun, 0, len(s.runs))
	for _, r := range s.runs {
		runCopy := *r
		result = append(result, &runCopy)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].RunTimestamp > result[j].RunTimestamp
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Count returns the total number of runs.
func (s *IngestRunStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.runs)), nil
}
