package domain

// IngestRun is one row of the append-only ingest run log. One row is written
// per accepted ingestion batch; rows are never updated. Downstream analytics
// depend on this contract.
type IngestRun struct {
	RunID           string // uuid
	RunTimestamp    string // ISO-8601
	EventsProcessed int
	RowsInserted    int
	ErrorSummary    *string // nullable, serialized JSON list of error strings
}

// ExtractionEvent is one row of the append-only extraction analytics stream
// (ClickHouse). One row is written per persisted flush or fast-path decision.
type ExtractionEvent struct {
	MessageHash string
	Origin      string
	ModelName   string
	Action      string // empty when extraction found none
	Confidence  float64
	Path        string // "buffered" | "fastpath"
	Trigger     string // flush trigger that produced the row
	ContentLen  int
	TimestampMs int64
}

// Extraction paths.
const (
	PathBuffered = "buffered"
	PathFastPath = "fastpath"
)
