package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/domain"
)

// ErrInvalidBatch is returned when a batch envelope fails schema validation.
// The whole batch is rejected; no buffer or store is touched.
var ErrInvalidBatch = errors.New("invalid batch envelope")

// Batch is the ingestion envelope posted by the capture agent.
type Batch struct {
	Events []Event `json:"events"`
}

// Event is one captured observation inside a batch.
type Event struct {
	URL     string  `json:"url"`
	Payload Payload `json:"payload"`
}

// Payload carries the captured data. Data may arrive as a JSON string
// (rendered text, raw stream fragment) or as an already-parsed object.
type Payload struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// Validate checks the envelope shape. It fails on the first malformed event
// so a bad batch cannot partially corrupt buffers.
func (b *Batch) Validate() error {
	if b.Events == nil {
		return fmt.Errorf("%w: missing events list", ErrInvalidBatch)
	}
	for i, ev := range b.Events {
		if ev.URL == "" {
			return fmt.Errorf("%w: event %d: missing url", ErrInvalidBatch, i)
		}
		switch domain.PayloadKind(ev.Payload.Kind) {
		case domain.PayloadJSON, domain.PayloadVisibleText:
		default:
			return fmt.Errorf("%w: event %d: unrecognized payload kind %q", ErrInvalidBatch, i, ev.Payload.Kind)
		}
		if len(ev.Payload.Data) == 0 {
			return fmt.Errorf("%w: event %d: missing payload data", ErrInvalidBatch, i)
		}
	}
	return nil
}

// Captured normalizes the wire event into the domain observation the router
// works on: payload text decoded, origin derived from the page URL.
func (e *Event) Captured(now time.Time) domain.CapturedEvent {
	return domain.CapturedEvent{
		Kind:       domain.PayloadKind(e.Payload.Kind),
		Origin:     originFromURL(e.URL),
		Payload:    e.Payload.Text(),
		ReceivedAt: now.UnixMilli(),
	}
}

// Text returns the payload data as text: JSON strings are unquoted, any
// other JSON value is kept as its raw encoding.
func (p Payload) Text() string {
	var s string
	if err := json.Unmarshal(p.Data, &s); err == nil {
		return s
	}
	return string(p.Data)
}
