package domain

// DefaultModelName is used when no model identifier could be extracted.
const DefaultModelName = "unknown-model"

// DecisionRecord is the canonical persisted row for one observed trading
// decision. Corresponds to the decisions table in PostgreSQL.
//
// MessageHash is the sole uniqueness constraint: a deterministic function of
// RawContent in the buffered path, or of the per-decision identifier in the
// fast-path. Rows are never deleted; updates are monotonic merges.
type DecisionRecord struct {
	ModelName   string   // default "unknown-model"
	Timestamp   string   // ISO-8601 capture time, set at insert, never updated
	MessageHash string   // PRIMARY KEY, 16-char hex digest
	Reasoning   string   // truncated to MaxReasoningLen
	Action      *string  // nullable
	Confidence  *float64 // nullable
	Positions   string   // serialized JSON list
	MarketData  string   // serialized JSON map
	RawContent  string   // full pre-extraction blob, kept for forensic replay
	ScrapedAt   string   // ISO-8601 write time, updated on every merge
}

// MaxReasoningLen caps the persisted reasoning text.
const MaxReasoningLen = 10000
