package postgres

import (
	"context"
	"fmt"

	"github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/domain"
	"github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/storage"
)

// IngestRunStore implements storage.IngestRunStore using PostgreSQL.
// The table is append-only; no update path exists.
type IngestRunStore struct {
	pool *Pool
}

// NewIngestRunStore creates a new IngestRunStore.
func NewIngestRunStore(pool *Pool) *IngestRunStore {
	return &IngestRunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.IngestRunStore = (*IngestRunStore)(nil)

// Insert appends a run row. Returns ErrDuplicateKey if run_id exists.
func (s *IngestRunStore) Insert(ctx context.Context, r *domain.IngestRun) error {
	query := `
		INSERT INTO ingest_runs (
			run_id, run_timestamp, events_processed, rows_inserted, error_summary
		) VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.pool.Exec(ctx, query,
		r.RunID,
		r.RunTimestamp,
		r.EventsProcessed,
		r.RowsInserted,
		r.ErrorSummary,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert ingest run: %w", err)
	}
	return nil
}

// GetRecent retrieves the most recent runs, newest first.
func (s *IngestRunStore) GetRecent(ctx context.Context, limit int) ([]*domain.IngestRun, error) {
	query := `
		SELECT run_id, run_timestamp, events_processed, rows_inserted, error_summary
		FROM ingest_runs
		ORDER BY run_timestamp DESC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent ingest runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.IngestRun
	for rows.Next() {
		var r domain.IngestRun
		err := rows.Scan(
			&r.RunID,
			&r.RunTimestamp,
			&r.EventsProcessed,
			&r.RowsInserted,
			&r.ErrorSummary,
		)
		if err != nil {
			return nil, fmt.Errorf("scan ingest run row: %w", err)
		}
		runs = append(runs, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ingest run rows: %w", err)
	}

	return runs, nil
}

// Count returns the total number of runs.
func (s *IngestRunStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM ingest_runs`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count ingest runs: %w", err)
	}
	return count, nil
}
