package clickhouse

import (
	"context"
	"fmt"

	"github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/domain"
	"github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/storage"
)

// ExtractionEventStore implements storage.ExtractionEventStore using
// ClickHouse. MergeTree does not enforce uniqueness; the stream is
// append-only by contract.
type ExtractionEventStore struct {
	conn *Conn
}

// NewExtractionEventStore creates a new ExtractionEventStore.
func NewExtractionEventStore(conn *Conn) *ExtractionEventStore {
	return &ExtractionEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ExtractionEventStore = (*ExtractionEventStore)(nil)

// InsertBulk appends extraction events.
func (s *ExtractionEventStore) InsertBulk(ctx context.Context, events []*domain.ExtractionEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO extraction_events (
			message_hash, origin, model_name, action, confidence,
			path, trigger, content_len, timestamp_ms
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range events {
		err = batch.Append(
			e.MessageHash, e.Origin, e.ModelName, e.Action, e.Confidence,
			e.Path, e.Trigger, uint32(e.ContentLen), uint64(e.TimestampMs),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByHash retrieves all events for a message hash, ordered by timestamp ASC.
func (s *ExtractionEventStore) GetByHash(ctx context.Context, messageHash string) ([]*domain.ExtractionEvent, error) {
	query := `
		SELECT message_hash, origin, model_name, action, confidence,
		       path, trigger, content_len, timestamp_ms
		FROM extraction_events
		WHERE message_hash = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, messageHash)
	if err != nil {
		return nil, fmt.Errorf("query by message hash: %w", err)
	}
	defer rows.Close()

	return scanExtractionEvents(rows)
}

// scanExtractionEvents scans multiple rows.
func scanExtractionEvents(rows chRows) ([]*domain.ExtractionEvent, error) {
	var events []*domain.ExtractionEvent

	for rows.Next() {
		var e domain.ExtractionEvent
		var contentLen uint32
		var timestampMs uint64

		err := rows.Scan(
			&e.MessageHash, &e.Origin, &e.ModelName, &e.Action, &e.Confidence,
			&e.Path, &e.Trigger, &contentLen, &timestampMs,
		)
		if err != nil {
			return nil, fmt.Errorf("scan extraction event row: %w", err)
		}

		e.ContentLen = int(contentLen)
		e.TimestampMs = int64(timestampMs)
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate extraction event rows: %w", err)
	}

	return events, nil
}
