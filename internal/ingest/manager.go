// Package ingest implements the capture ingestion pipeline: envelope
// validation, per-origin buffering, flush policy and fast-path routing.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/consolidate"
	"github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/domain"
	"github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/extract"
	"github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/idhash"
	"github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/observability"
	"github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/storage"
)

// BatchResult summarizes what one batch (or manual flush) did. RowsInserted
// and RowsMerged cover both paths; FastPathRows is the subset that bypassed
// the buffers.
type BatchResult struct {
	EventsProcessed int
	RowsInserted    int
	RowsMerged      int
	FastPathRows    int
	Flushes         int
	Discarded       int
	Errors          []string
}

// Options configures a Manager. Runs, Clock and Logger may be left unset.
type Options struct {
	Buffers *BufferStore
	Engine  *consolidate.Engine
	Runs    storage.IngestRunStore
	Clock   Clock
	Logger  *log.Logger
}

// Manager owns the batch lifecycle. It serializes all batch processing
// behind one mutex: events within a batch are ordered, and buffers never see
// interleaved writers.
type Manager struct {
	mu      sync.Mutex
	buffers *BufferStore
	engine  *consolidate.Engine
	runs    storage.IngestRunStore
	clock   Clock
	logger  *log.Logger
}

// NewManager creates a manager from options, filling in a system clock and
// the default logger where unset.
func NewManager(opts Options) *Manager {
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		buffers: opts.Buffers,
		engine:  opts.Engine,
		runs:    opts.Runs,
		clock:   clock,
		logger:  logger,
	}
}

// ProcessBatch validates and processes one ingestion batch. A batch that
// fails envelope validation is rejected whole, before any buffer or store is
// touched; an accepted batch always produces one ingest run row, even when
// individual events error.
func (m *Manager) ProcessBatch(ctx context.Context, batch *Batch) (BatchResult, error) {
	if err := batch.Validate(); err != nil {
		observability.RecordBatchRejected()
		return BatchResult{}, err
	}
	observability.RecordBatchAccepted()

	m.mu.Lock()
	defer m.mu.Unlock()

	var res BatchResult
	for i := range batch.Events {
		m.processEvent(ctx, &batch.Events[i], &res)
		res.EventsProcessed++
	}
	observability.SetBufferedOrigins(m.buffers.Len())

	m.recordRun(ctx, res)
	return res, nil
}

// FlushAll force-flushes every non-empty buffer. Used by the manual flush
// endpoint and by graceful shutdown. The minimum-content rule still applies.
func (m *Manager) FlushAll(ctx context.Context) BatchResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	var res BatchResult
	for _, origin := range m.buffers.Origins() {
		b := m.buffers.Get(origin)
		if b.Empty() {
			continue
		}
		m.flush(ctx, b, TriggerManual, &res)
	}
	return res
}

// BufferedOrigins returns the origins currently tracked, sorted.
func (m *Manager) BufferedOrigins() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buffers.Origins()
}

// processEvent routes one event. Quiet-period eligibility is checked before
// the event touches its buffer, so a stale accumulation flushes as-is rather
// than absorbing unrelated new content.
func (m *Manager) processEvent(ctx context.Context, ev *Event, res *BatchResult) {
	now := m.clock.Now()
	ce := ev.Captured(now)
	b := m.buffers.Get(ce.Origin)

	if trigger := m.buffers.Policy().EvaluateArrival(b, now); trigger != TriggerNone {
		m.flush(ctx, b, trigger, res)
	}

	observability.RecordEventRouted(string(ce.Kind))

	switch ce.Kind {
	case domain.PayloadJSON:
		if decisions := probeConversationBatch(ce.Payload); decisions != nil {
			m.persistFastPath(ctx, ce.Origin, decisions, res)
			return
		}
		if modelID := probeModelID(ce.Payload); modelID != "" {
			if b.CurrentModelID != "" && b.CurrentModelID != modelID {
				m.flush(ctx, b, TriggerModelSwitch, res)
			}
			b.CurrentModelID = modelID
		}
		b.JSONChunks = append(b.JSONChunks, ce.Payload)
	case domain.PayloadVisibleText:
		// Snapshots are cumulative page renders; only the latest matters.
		b.VisibleText = ce.Payload
	}

	b.LastUpdateAt = now
	if trigger := m.buffers.Policy().EvaluateAfterRoute(b); trigger != TriggerNone {
		m.flush(ctx, b, trigger, res)
	}
}

// persistFastPath writes each self-contained decision directly, bypassing
// the origin buffer entirely.
func (m *Manager) persistFastPath(ctx context.Context, origin string, decisions []fastPathDecision, res *BatchResult) {
	for _, d := range decisions {
		in := consolidate.Input{
			Draft:      extract.Extract([]string{d.Raw}, ""),
			RawContent: d.Raw,
			Hash:       idhash.FastPathHash(d.ID),
			Origin:     origin,
			Path:       domain.PathFastPath,
			Trigger:    domain.PathFastPath,
			CapturedAt: m.clock.Now(),
		}
		outcome, err := m.engine.Persist(ctx, in)
		if err != nil {
			m.logger.Printf("[ingest] fastpath persist failed origin=%s id=%s: %v", origin, d.ID, err)
			res.Errors = append(res.Errors, fmt.Sprintf("fastpath %s: %v", d.ID, err))
			continue
		}
		if outcome == consolidate.OutcomeMerged {
			res.RowsMerged++
		} else {
			res.RowsInserted++
		}
		res.FastPathRows++
		observability.RecordFastPathRow()
	}
}

// flush extracts and persists one buffer's accumulated content, then resets
// the buffer. Content below the minimum length is discarded, not persisted.
func (m *Manager) flush(ctx context.Context, b *OriginBuffer, trigger FlushTrigger, res *BatchResult) {
	defer b.Reset()

	// Same metric as the size ceiling: payload length, joiners excluded.
	if b.ContentLen() < m.buffers.Policy().MinContentLen {
		res.Discarded++
		observability.RecordFlushDropped()
		return
	}
	content := b.Combined()

	started := time.Now()
	in := consolidate.Input{
		Draft:      extract.Extract(b.JSONChunks, b.VisibleText),
		RawContent: content,
		Hash:       idhash.MessageHash(content),
		Origin:     b.Origin,
		Path:       domain.PathBuffered,
		Trigger:    string(trigger),
		CapturedAt: m.clock.Now(),
	}
	outcome, err := m.engine.Persist(ctx, in)
	observability.ObservePersist(time.Since(started).Seconds())
	if err != nil {
		m.logger.Printf("[ingest] flush persist failed origin=%s trigger=%s: %v", b.Origin, trigger, err)
		res.Errors = append(res.Errors, fmt.Sprintf("flush %s (%s): %v", b.Origin, trigger, err))
		return
	}

	res.Flushes++
	observability.RecordFlush(string(trigger))
	if outcome == consolidate.OutcomeMerged {
		res.RowsMerged++
	} else {
		res.RowsInserted++
	}
}

// recordRun appends the batch's ingest run row. Append-only, one row per
// accepted batch; failures are logged and do not fail the batch.
func (m *Manager) recordRun(ctx context.Context, res BatchResult) {
	if m.runs == nil {
		return
	}

	var summary *string
	if len(res.Errors) > 0 {
		if encoded, err := json.Marshal(res.Errors); err == nil {
			s := string(encoded)
			summary = &s
		}
	}

	run := &domain.IngestRun{
		RunID:           uuid.NewString(),
		RunTimestamp:    m.clock.Now().UTC().Format(time.RFC3339),
		EventsProcessed: res.EventsProcessed,
		RowsInserted:    res.RowsInserted,
		ErrorSummary:    summary,
	}
	if err := m.runs.Insert(ctx, run); err != nil {
		m.logger.Printf("[ingest] run log append failed run=%s: %v", run.RunID, err)
	}
}
