// Package consolidate turns extracted decision drafts into canonical rows:
// one content-addressed row per observed decision, converged via
// insert-or-merge.
package consolidate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"
	"unicode/utf8"

	"github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/domain"
	"github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/extract"
	"github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/observability"
	"github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/storage"
)

// Outcome reports what a Persist call did to the store.
type Outcome int

const (
	// OutcomeInserted means a new row was created.
	OutcomeInserted Outcome = iota
	// OutcomeMerged means an existing row with the same hash was merged.
	OutcomeMerged
)

// Input is one draft plus its originating raw content and identity.
type Input struct {
	Draft      domain.DecisionDraft
	RawContent string
	Hash       string
	Origin     string
	Path       string // domain.PathBuffered | domain.PathFastPath
	Trigger    string // flush trigger, or "fastpath"
	CapturedAt time.Time
}

// Engine performs the insert-or-merge against the decision store and feeds
// the extraction analytics stream.
type Engine struct {
	decisions storage.DecisionStore
	events    storage.ExtractionEventStore
	logger    *log.Logger
}

// New creates an engine. The extraction event store may be nil; analytics
// are best-effort and never fail a persist.
func New(decisions storage.DecisionStore, events storage.ExtractionEventStore, logger *log.Logger) *Engine {
	return &Engine{decisions: decisions, events: events, logger: logger}
}

// Persist converts one input into exactly one durable row, merged with any
// prior row sharing the hash.
func (e *Engine) Persist(ctx context.Context, in Input) (Outcome, error) {
	record, err := buildRecord(in)
	if err != nil {
		return 0, fmt.Errorf("build record: %w", err)
	}

	outcome := OutcomeInserted
	started := time.Now()
	err = e.decisions.Insert(ctx, record)
	observability.ObserveDBQuery("insert", time.Since(started).Seconds())
	if errors.Is(err, storage.ErrDuplicateKey) {
		existing, getErr := e.decisions.GetByHash(ctx, in.Hash)
		if getErr != nil {
			return 0, fmt.Errorf("load existing row %s: %w", in.Hash, getErr)
		}
		merged := Merge(existing, record, in.Path)
		started = time.Now()
		updErr := e.decisions.Update(ctx, merged)
		observability.ObserveDBQuery("update", time.Since(started).Seconds())
		if updErr != nil {
			return 0, fmt.Errorf("merge row %s: %w", in.Hash, updErr)
		}
		record = merged
		outcome = OutcomeMerged
	} else if err != nil {
		return 0, fmt.Errorf("insert row %s: %w", in.Hash, err)
	}

	e.recordExtractionEvent(ctx, in, record)

	if record.ModelName == domain.DefaultModelName {
		observability.RecordExtractionMiss("model_name")
	}
	if record.Action == nil {
		observability.RecordExtractionMiss("action")
	}
	if record.Confidence == nil {
		observability.RecordExtractionMiss("confidence")
	}

	if outcome == OutcomeInserted {
		observability.RecordRowInserted()
	} else {
		observability.RecordRowMerged()
	}
	return outcome, nil
}

// buildRecord materializes a draft into a persistable row.
func buildRecord(in Input) (*domain.DecisionRecord, error) {
	positions, err := json.Marshal(in.Draft.Positions)
	if err != nil {
		return nil, fmt.Errorf("marshal positions: %w", err)
	}
	if in.Draft.Positions == nil {
		positions = []byte("[]")
	}

	market := []byte("{}")
	if len(in.Draft.MarketFields) > 0 {
		market, err = json.Marshal(in.Draft.MarketFields)
		if err != nil {
			return nil, fmt.Errorf("marshal market fields: %w", err)
		}
	}

	ts := in.CapturedAt.UTC().Format(time.RFC3339)

	return &domain.DecisionRecord{
		ModelName:   extract.ModelName(in.Draft),
		Timestamp:   ts,
		MessageHash: in.Hash,
		Reasoning:   truncate(in.Draft.ReasoningText, domain.MaxReasoningLen),
		Action:      in.Draft.Action,
		Confidence:  in.Draft.Confidence,
		Positions:   string(positions),
		MarketData:  string(market),
		RawContent:  in.RawContent,
		ScrapedAt:   ts,
	}, nil
}

// recordExtractionEvent appends one analytics row. Failures are logged, not
// propagated: the canonical row is already durable.
func (e *Engine) recordExtractionEvent(ctx context.Context, in Input, record *domain.DecisionRecord) {
	if e.events == nil {
		return
	}

	action := ""
	if record.Action != nil {
		action = *record.Action
	}
	confidence := 0.0
	if record.Confidence != nil {
		confidence = *record.Confidence
	}

	event := &domain.ExtractionEvent{
		MessageHash: in.Hash,
		Origin:      in.Origin,
		ModelName:   record.ModelName,
		Action:      action,
		Confidence:  confidence,
		Path:        in.Path,
		Trigger:     in.Trigger,
		ContentLen:  len(in.RawContent),
		TimestampMs: in.CapturedAt.UnixMilli(),
	}

	if err := e.events.InsertBulk(ctx, []*domain.ExtractionEvent{event}); err != nil && e.logger != nil {
		e.logger.Printf("extraction event append failed for %s: %v", in.Hash, err)
	}
}

// truncate cuts s to at most max bytes without splitting a multi-byte rune;
// the stores reject invalid UTF-8.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
