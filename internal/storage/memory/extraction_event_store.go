package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/domain"
	"github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/storage"
)

// ExtractionEventStore is an in-memory implementation of
// storage.ExtractionEventStore.
type ExtractionEventStore struct {
	mu     sync.RWMutex
	events []*domain.ExtractionEvent
}

// NewExtractionEventStore creates a new in-memory extraction event store.
func NewExtractionEventStore() *ExtractionEventStore {
	return &ExtractionEventStore{}
}

// Verify interface compliance at compile time.
var _ storage.ExtractionEventStore = (*ExtractionEventStore)(nil)

// InsertBulk appends extraction events.
func (s *ExtractionEventStore) InsertBulk(_ context.Context, events []*domain.ExtractionEvent) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range events {
		if e == nil || e.MessageHash == "" {
			return storage.ErrInvalidInput
		}
		eventCopy := *e
		s.events = append(s.events, &eventCopy)
	}
	return nil
}

// GetByHash retrieves all events for a message hash, ordered by timestamp ASC.
func (s *ExtractionEventStore) GetByHash(_ context.Context, messageHash string) ([]*domain.ExtractionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ExtractionEvent
	for _, e := range s.events {
		if e.MessageHash == messageHash {
			eventCopy := *e
			result = append(result, &eventCopy)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result, nil
}
