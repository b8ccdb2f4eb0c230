package ingest

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/domain"
)

func TestEventCaptured(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	ev := Event{
		URL:     "https://nof1.ai/arena?tab=live#positions",
		Payload: Payload{Kind: "json_payload", Data: json.RawMessage(`{"model_id": "gpt-5"}`)},
	}
	ce := ev.Captured(now)

	if ce.Kind != domain.PayloadJSON {
		t.Errorf("Kind = %q, want %q", ce.Kind, domain.PayloadJSON)
	}
	if ce.Origin != "https://nof1.ai/arena" {
		t.Errorf("Origin = %q, want query and fragment stripped", ce.Origin)
	}
	if ce.Payload != `{"model_id": "gpt-5"}` {
		t.Errorf("Payload = %q", ce.Payload)
	}
	if ce.ReceivedAt != now.UnixMilli() {
		t.Errorf("ReceivedAt = %d, want %d", ce.ReceivedAt, now.UnixMilli())
	}

	// Snapshot payloads arrive JSON-quoted and must come back as plain text.
	quoted, _ := json.Marshal("the rendered arena page")
	snap := Event{
		URL:     "https://nof1.ai/arena",
		Payload: Payload{Kind: "visible_text_snapshot", Data: quoted},
	}
	ce = snap.Captured(now)
	if ce.Kind != domain.PayloadVisibleText || ce.Payload != "the rendered arena page" {
		t.Errorf("snapshot captured as %q/%q", ce.Kind, ce.Payload)
	}
}
