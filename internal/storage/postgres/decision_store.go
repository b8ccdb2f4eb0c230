package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/domain"
	"github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/storage"
)

// DecisionStore implements storage.DecisionStore using PostgreSQL.
type DecisionStore struct {
	pool *Pool
}

// NewDecisionStore creates a new DecisionStore.
func NewDecisionStore(pool *Pool) *DecisionStore {
	return &DecisionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DecisionStore = (*DecisionStore)(nil)

const decisionColumns = `
	model_name, timestamp, message_hash, reasoning, action,
	confidence, positions, market_data, raw_content, scraped_at
`

// Insert adds a new decision. Returns ErrDuplicateKey if message_hash exists.
func (s *DecisionStore) Insert(ctx context.Context, d *domain.DecisionRecord) error {
	query := `
		INSERT INTO decisions (` + decisionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.pool.Exec(ctx, query,
		d.ModelName,
		d.Timestamp,
		d.MessageHash,
		d.Reasoning,
		d.Action,
		d.Confidence,
		d.Positions,
		d.MarketData,
		d.RawContent,
		d.ScrapedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert decision: %w", err)
	}
	return nil
}

// Update replaces the row for d.MessageHash. Returns ErrNotFound if absent.
func (s *DecisionStore) Update(ctx context.Context, d *domain.DecisionRecord) error {
	query := `
		UPDATE decisions SET
			model_name = $1, reasoning = $2, action = $3, confidence = $4,
			positions = $5, market_data = $6, raw_content = $7, scraped_at = $8
		WHERE message_hash = $9
	`

	tag, err := s.pool.Exec(ctx, query,
		d.ModelName,
		d.Reasoning,
		d.Action,
		d.Confidence,
		d.Positions,
		d.MarketData,
		d.RawContent,
		d.ScrapedAt,
		d.MessageHash,
	)
	if err != nil {
		return fmt.Errorf("update decision: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetByHash retrieves a decision by its hash. Returns ErrNotFound if absent.
func (s *DecisionStore) GetByHash(ctx context.Context, messageHash string) (*domain.DecisionRecord, error) {
	query := `
		SELECT ` + decisionColumns + `
		FROM decisions
		WHERE message_hash = $1
	`

	row := s.pool.QueryRow(ctx, query, messageHash)
	d, err := scanDecision(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get decision by hash: %w", err)
	}
	return d, nil
}

// GetByModelTimeRange retrieves decisions for a model within [start, end].
func (s *DecisionStore) GetByModelTimeRange(ctx context.Context, modelName, start, end string) ([]*domain.DecisionRecord, error) {
	query := `
		SELECT ` + decisionColumns + `
		FROM decisions
		WHERE model_name = $1 AND timestamp >= $2 AND timestamp <= $3
		ORDER BY timestamp ASC, message_hash ASC
	`

	rows, err := s.pool.Query(ctx, query, modelName, start, end)
	if err != nil {
		return nil, fmt.Errorf("get decisions by model and time range: %w", err)
	}
	defer rows.Close()

	return scanDecisions(rows)
}

// GetAll retrieves all decisions ordered by scraped_at ASC.
func (s *DecisionStore) GetAll(ctx context.Context) ([]*domain.DecisionRecord, error) {
	query := `
		SELECT ` + decisionColumns + `
		FROM decisions
		ORDER BY scraped_at ASC, message_hash ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all decisions: %w", err)
	}
	defer rows.Close()

	return scanDecisions(rows)
}

// Count returns the total number of rows.
func (s *DecisionStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM decisions`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count decisions: %w", err)
	}
	return count, nil
}

// CountByModel returns row counts grouped by model_name.
func (s *DecisionStore) CountByModel(ctx context.Context) (map[string]int64, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT model_name, COUNT(*)
		FROM decisions
		GROUP BY model_name
	`)
	if err != nil {
		return nil, fmt.Errorf("count decisions by model: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var model string
		var count int64
		if err := rows.Scan(&model, &count); err != nil {
			return nil, fmt.Errorf("scan model count row: %w", err)
		}
		counts[model] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate model count rows: %w", err)
	}

	return counts, nil
}

// scanDecision scans a single row into a DecisionRecord.
func scanDecision(row pgx.Row) (*domain.DecisionRecord, error) {
	var d domain.DecisionRecord

	err := row.Scan(
		&d.ModelName,
		&d.Timestamp,
		&d.MessageHash,
		&d.Reasoning,
		&d.Action,
		&d.Confidence,
		&d.Positions,
		&d.MarketData,
		&d.RawContent,
		&d.ScrapedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// scanDecisions scans multiple rows into a slice of DecisionRecord.
func scanDecisions(rows pgx.Rows) ([]*domain.DecisionRecord, error) {
	var decisions []*domain.DecisionRecord

	for rows.Next() {
		var d domain.DecisionRecord

		err := rows.Scan(
			&d.ModelName,
			&d.Timestamp,
			&d.MessageHash,
			&d.Reasoning,
			&d.Action,
			&d.Confidence,
			&d.Positions,
			&d.MarketData,
			&d.RawContent,
			&d.ScrapedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan decision row: %w", err)
		}

		decisions = append(decisions, &d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decision rows: %w", err)
	}

	return decisions, nil
}
