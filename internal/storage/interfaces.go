package storage

import (
	"context"

	"github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/domain"
)

// DecisionStore provides access to the canonical decisions table.
// Rows are identified by message_hash; they are inserted once and then only
// ever updated through the consolidation engine's merge.
type DecisionStore interface {
	// Insert adds a new decision. Returns ErrDuplicateKey if message_hash exists.
	Insert(ctx context.Context, d *domain.DecisionRecord) error

	// Update replaces the row for d.MessageHash. Returns ErrNotFound if absent.
	Update(ctx context.Context, d *domain.DecisionRecord) error

	// GetByHash retrieves a decision by its hash. Returns ErrNotFound if absent.
	GetByHash(ctx context.Context, messageHash string) (*domain.DecisionRecord, error)

	// GetByModelTimeRange retrieves decisions for a model with capture
	// timestamp within [start, end] (inclusive, ISO-8601 ordering),
	// ordered by timestamp ASC.
	GetByModelTimeRange(ctx context.Context, modelName, start, end string) ([]*domain.DecisionRecord, error)

	// GetAll retrieves all decisions ordered by scraped_at ASC.
	GetAll(ctx context.Context) ([]*domain.DecisionRecord, error)

	// Count returns the total number of rows.
	Count(ctx context.Context) (int64, error)

	// CountByModel returns row counts grouped by model_name.
	CountByModel(ctx context.Context) (map[string]int64, error)
}

// IngestRunStore provides access to the append-only ingest_runs table.
// One row per accepted ingestion batch; rows are never updated.
type IngestRunStore interface {
	// Insert appends a run row. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.IngestRun) error

	// GetRecent retrieves the most recent runs, newest first.
	GetRecent(ctx context.Context, limit int) ([]*domain.IngestRun, error)

	// Count returns the total number of runs.
	Count(ctx context.Context) (int64, error)
}

// ExtractionEventStore provides access to the append-only extraction
// analytics stream.
type ExtractionEventStore interface {
	// InsertBulk appends extraction events.
	InsertBulk(ctx context.Context, events []*domain.ExtractionEvent) error

	// GetByHash retrieves all events recorded for a message hash,
	// ordered by timestamp ASC.
	GetByHash(ctx context.Context, messageHash string) ([]*domain.ExtractionEvent, error)
}
