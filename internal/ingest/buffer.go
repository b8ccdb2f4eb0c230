package ingest

import (
	"sort"
	"strings"
	"time"
)

// BufferState is the explicit per-origin accumulation state. A buffer cycles
// accumulating → flush-eligible → accumulating; the transition guards live in
// FlushPolicy so they can be unit-tested with a fake clock.
type BufferState int

const (
	// StateAccumulating means the buffer is collecting fragments.
	StateAccumulating BufferState = iota
	// StateFlushEligible means a flush trigger condition holds.
	StateFlushEligible
)

// FlushTrigger identifies which policy condition fired a flush.
type FlushTrigger string

const (
	TriggerNone        FlushTrigger = ""
	TriggerQuiet       FlushTrigger = "quiet_period"
	TriggerChunkCount  FlushTrigger = "chunk_count"
	TriggerSize        FlushTrigger = "size_ceiling"
	TriggerModelSwitch FlushTrigger = "model_switch"
	TriggerManual      FlushTrigger = "manual"
)

// FlushPolicy holds the flush trigger thresholds.
type FlushPolicy struct {
	// QuietPeriod flushes a buffer that has received no update for this
	// long. Evaluated lazily, on the next event for the origin or on a
	// manual flush; there is no background timer.
	QuietPeriod time.Duration

	// MaxChunks flushes once this many json chunks accumulated since the
	// last flush.
	MaxChunks int

	// MaxContentLen flushes once combined visible-text plus json-chunk
	// length reaches this many characters.
	MaxContentLen int

	// MinContentLen discards a flush whose visible-text plus json-chunk
	// length is below this; such flushes are noise, not decisions.
	MinContentLen int
}

// DefaultFlushPolicy returns the production thresholds.
func DefaultFlushPolicy() FlushPolicy {
	return FlushPolicy{
		QuietPeriod:   500 * time.Millisecond,
		MaxChunks:     15,
		MaxContentLen: 5000,
		MinContentLen: 20,
	}
}

// EvaluateArrival checks the quiet-period condition for a buffer at the
// moment a new event for its origin arrives, before the buffer is touched.
func (p FlushPolicy) EvaluateArrival(b *OriginBuffer, now time.Time) FlushTrigger {
	if b.Empty() {
		return TriggerNone
	}
	if now.Sub(b.LastUpdateAt) >= p.QuietPeriod {
		return TriggerQuiet
	}
	return TriggerNone
}

// EvaluateAfterRoute checks the ceiling conditions after an event has been
// routed into the buffer.
func (p FlushPolicy) EvaluateAfterRoute(b *OriginBuffer) FlushTrigger {
	if len(b.JSONChunks) >= p.MaxChunks {
		return TriggerChunkCount
	}
	if b.ContentLen() >= p.MaxContentLen {
		return TriggerSize
	}
	return TriggerNone
}

// State reports the buffer's explicit state at the given instant.
func (p FlushPolicy) State(b *OriginBuffer, now time.Time) BufferState {
	if p.EvaluateArrival(b, now) != TriggerNone || p.EvaluateAfterRoute(b) != TriggerNone {
		return StateFlushEligible
	}
	return StateAccumulating
}

// OriginBuffer accumulates fragments for one logical source between flushes.
// Created lazily on first event; reset after every flush; lives for the
// process lifetime.
type OriginBuffer struct {
	Origin         string
	VisibleText    string // latest snapshot, overwritten not appended
	JSONChunks     []string
	LastUpdateAt   time.Time
	CurrentModelID string
}

// Empty reports whether the buffer holds no content.
func (b *OriginBuffer) Empty() bool {
	return b.VisibleText == "" && len(b.JSONChunks) == 0
}

// ContentLen is the combined visible-text plus json-chunk length.
func (b *OriginBuffer) ContentLen() int {
	n := len(b.VisibleText)
	for _, c := range b.JSONChunks {
		n += len(c)
	}
	return n
}

// Combined renders the buffer's accumulated content as one blob: the json
// chunks in arrival order, then the visible-text snapshot. This exact text
// is what gets hashed and persisted as raw_content.
func (b *OriginBuffer) Combined() string {
	parts := make([]string, 0, len(b.JSONChunks)+1)
	parts = append(parts, b.JSONChunks...)
	if b.VisibleText != "" {
		parts = append(parts, b.VisibleText)
	}
	return strings.Join(parts, "\n\n")
}

// Reset empties the buffer after a flush, including the model marker.
func (b *OriginBuffer) Reset() {
	b.VisibleText = ""
	b.JSONChunks = nil
	b.CurrentModelID = ""
}

// BufferStore owns the origin→buffer map. It is an injectable component, not
// a singleton, so tests can construct isolated instances and inspect buffer
// contents directly. All mutation happens on the manager's single-writer
// path.
type BufferStore struct {
	policy  FlushPolicy
	clock   Clock
	buffers map[string]*OriginBuffer
}

// NewBufferStore creates a buffer store with the given policy and clock.
func NewBufferStore(policy FlushPolicy, clock Clock) *BufferStore {
	return &BufferStore{
		policy:  policy,
		clock:   clock,
		buffers: make(map[string]*OriginBuffer),
	}
}

// Policy returns the store's flush policy.
func (s *BufferStore) Policy() FlushPolicy { return s.policy }

// Get returns the buffer for an origin, creating it on first use.
func (s *BufferStore) Get(origin string) *OriginBuffer {
	b, ok := s.buffers[origin]
	if !ok {
		b = &OriginBuffer{Origin: origin, LastUpdateAt: s.clock.Now()}
		s.buffers[origin] = b
	}
	return b
}

// Origins returns all known origins in sorted order.
func (s *BufferStore) Origins() []string {
	origins := make([]string, 0, len(s.buffers))
	for origin := range s.buffers {
		origins = append(origins, origin)
	}
	sort.Strings(origins)
	return origins
}

// Len returns the number of tracked origins. Buffers are never destroyed, so
// this grows with origin cardinality for the process lifetime.
func (s *BufferStore) Len() int { return len(s.buffers) }
