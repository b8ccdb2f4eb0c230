package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/domain"
	"github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/storage"
)

// DecisionStore is an in-memory implementation of storage.DecisionStore.
type DecisionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.DecisionRecord // keyed by message_hash
}

// NewDecisionStore creates a new in-memory decision store.
func NewDecisionStore() *DecisionStore {
	return &DecisionStore{
		data: make(map[string]*domain.DecisionRecord),
	}
}

// Verify interface compliance at compile time.
var _ storage.DecisionStore = (*DecisionStore)(nil)

// Insert adds a new decision. Returns ErrDuplicateKey if message_hash exists.
func (s *DecisionStore) Insert(_ context.Context, d *domain.DecisionRecord) error {
	if d == nil || d.MessageHash == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[d.MessageHash]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	recCopy := *d
	s.data[d.MessageHash] = &recCopy
	return nil
}

// Update replaces the row for d.MessageHash. Returns ErrNotFound if absent.
func (s *DecisionStore) Update(_ context.Context, d *domain.DecisionRecord) error {
	if d == nil || d.MessageHash == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[d.MessageHash]; !exists {
		return storage.ErrNotFound
	}

	recCopy := *d
	s.data[d.MessageHash] = &recCopy
	return nil
}

// GetByHash retrieves a decision by its hash. Returns ErrNotFound if absent.
func (s *DecisionStore) GetByHash(_ context.Context, messageHash string) (*domain.DecisionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, exists := s.data[messageHash]
	if !exists {
		return nil, storage.ErrNotFound
	}

	recCopy := *d
	return &recCopy, nil
}

// GetByModelTimeRange retrieves decisions for a model within [start, end].
func (s *DecisionStore) GetByModelTimeRange(_ context.Context, modelName, start, end string) ([]*domain.DecisionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DecisionRecord
	for _, d := range s.data {
		if d.ModelName != modelName {
			continue
		}
		if d.Timestamp < start || d.Timestamp > end {
			continue
		}
		recCopy := *d
		result = append(result, &recCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp < result[j].Timestamp
	})

	return result, nil
}

// GetAll retrieves all decisions ordered by scraped_at ASC.
func (s *DecisionStore) GetAll(_ context.Context) ([]*domain.DecisionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.DecisionRecord, 0, len(s.data))
	for _, d := range s.data {
		recCopy := *d
		result = append(result, &recCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].ScrapedAt != result[j].ScrapedAt {
			return result[i].ScrapedAt < result[j].ScrapedAt
		}
		return result[i].MessageHash < result[j].MessageHash
	})

	return result, nil
}

// Count returns the total number of rows.
func (s *DecisionStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.data)), nil
}

// CountByModel returns row counts grouped by model_name.
func (s *DecisionStore) CountByModel(_ context.Context) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int64)
	for _, d := range s.data {
		counts[d.ModelName]++
	}
	return counts, nil
}
