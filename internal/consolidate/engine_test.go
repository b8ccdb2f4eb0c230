package consolidate

import (
	"context"
	"io"
	"log"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/domain"
	"github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/idhash"
	"github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/storage/memory"
)

func newTestEngine() (*Engine, *memory.DecisionStore, *memory.ExtractionEventStore) {
	decisions := memory.NewDecisionStore()
	events := memory.NewExtractionEventStore()
	return New(decisions, events, log.New(io.Discard, "", 0)), decisions, events
}

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func draftInput(raw string, at time.Time) Input {
	return Input{
		Draft: domain.DecisionDraft{
			ModelID:       strPtr("gpt-5"),
			Action:        strPtr(domain.ActionBuy),
			Confidence:    floatPtr(0.8),
			ReasoningText: "btc is trending and the book is thin on the offer side",
		},
		RawContent: raw,
		Hash:       idhash.MessageHash(raw),
		Origin:     "https://nof1.ai/arena",
		Path:       domain.PathBuffered,
		Trigger:    "quiet_period",
		CapturedAt: at,
	}
}

func TestEngine_InsertThenMergeIdempotent(t *testing.T) {
	engine, decisions, _ := newTestEngine()
	ctx := context.Background()

	raw := "some captured decision content worth persisting"
	t1 := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	outcome, err := engine.Persist(ctx, draftInput(raw, t1))
	if err != nil {
		t.Fatalf("Persist failed: %v", err)
	}
	if outcome != OutcomeInserted {
		t.Fatalf("outcome = %v, want inserted", outcome)
	}

	first, err := decisions.GetByHash(ctx, idhash.MessageHash(raw))
	if err != nil {
		t.Fatalf("GetByHash failed: %v", err)
	}

	// Same content again, later: must converge on the same row, moving only
	// scraped_at.
	t2 := t1.Add(5 * time.Minute)
	outcome, err = engine.Persist(ctx, draftInput(raw, t2))
	if err != nil {
		t.Fatalf("Persist (2) failed: %v", err)
	}
	if outcome != OutcomeMerged {
		t.Fatalf("outcome = %v, want merged", outcome)
	}

	count, _ := decisions.Count(ctx)
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}

	second, err := decisions.GetByHash(ctx, idhash.MessageHash(raw))
	if err != nil {
		t.Fatalf("GetByHash (2) failed: %v", err)
	}
	if second.Timestamp != first.Timestamp {
		t.Errorf("timestamp moved on merge: %s -> %s", first.Timestamp, second.Timestamp)
	}
	if second.ScrapedAt == first.ScrapedAt {
		t.Error("scraped_at must advance on merge")
	}
	if second.ModelName != first.ModelName || second.Reasoning != first.Reasoning {
		t.Error("identity fields changed on idempotent re-submit")
	}
}

func TestEngine_DefaultsForEmptyDraft(t *testing.T) {
	engine, decisions, _ := newTestEngine()
	ctx := context.Background()

	raw := "unextractable blob of page noise long enough to persist"
	in := Input{
		Draft:      domain.DecisionDraft{},
		RawContent: raw,
		Hash:       idhash.MessageHash(raw),
		Origin:     "https://nof1.ai/arena",
		Path:       domain.PathBuffered,
		Trigger:    "manual",
		CapturedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	if _, err := engine.Persist(ctx, in); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}

	row, err := decisions.GetByHash(ctx, in.Hash)
	if err != nil {
		t.Fatalf("GetByHash failed: %v", err)
	}
	if row.ModelName != domain.DefaultModelName {
		t.Errorf("ModelName = %q, want %q", row.ModelName, domain.DefaultModelName)
	}
	if row.Positions != "[]" {
		t.Errorf("Positions = %q, want []", row.Positions)
	}
	if row.MarketData != "{}" {
		t.Errorf("MarketData = %q, want {}", row.MarketData)
	}
	if row.Action != nil || row.Confidence != nil {
		t.Error("empty draft must persist null action and confidence")
	}
}

func TestEngine_ReasoningTruncated(t *testing.T) {
	engine, decisions, _ := newTestEngine()
	ctx := context.Background()

	long := make([]byte, domain.MaxReasoningLen+500)
	for i := range long {
		long[i] = 'r'
	}

	raw := "raw content for the oversized reasoning capture"
	in := Input{
		Draft:      domain.DecisionDraft{ReasoningText: string(long)},
		RawContent: raw,
		Hash:       idhash.MessageHash(raw),
		Origin:     "https://nof1.ai/arena",
		Path:       domain.PathBuffered,
		Trigger:    "size_ceiling",
		CapturedAt: time.Now(),
	}
	if _, err := engine.Persist(ctx, in); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}

	row, _ := decisions.GetByHash(ctx, in.Hash)
	if len(row.Reasoning) != domain.MaxReasoningLen {
		t.Errorf("reasoning length = %d, want %d", len(row.Reasoning), domain.MaxReasoningLen)
	}
}

func TestEngine_ReasoningTruncationKeepsValidUTF8(t *testing.T) {
	engine, decisions, _ := newTestEngine()
	ctx := context.Background()

	// A two-byte rune straddles the cutoff: its first byte sits at the last
	// position inside the limit.
	reasoning := strings.Repeat("r", domain.MaxReasoningLen-1) + "é" + strings.Repeat("x", 200)

	raw := "raw content for the multibyte boundary capture"
	in := Input{
		Draft:      domain.DecisionDraft{ReasoningText: reasoning},
		RawContent: raw,
		Hash:       idhash.MessageHash(raw),
		Origin:     "https://nof1.ai/arena",
		Path:       domain.PathBuffered,
		Trigger:    "size_ceiling",
		CapturedAt: time.Now(),
	}
	if _, err := engine.Persist(ctx, in); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}

	row, _ := decisions.GetByHash(ctx, in.Hash)
	if !utf8.ValidString(row.Reasoning) {
		t.Fatalf("persisted reasoning is not valid UTF-8 (len=%d)", len(row.Reasoning))
	}
	if len(row.Reasoning) != domain.MaxReasoningLen-1 {
		t.Errorf("reasoning length = %d, want %d (cut backed off the split rune)",
			len(row.Reasoning), domain.MaxReasoningLen-1)
	}
}

func TestEngine_ExtractionEventRecorded(t *testing.T) {
	engine, _, events := newTestEngine()
	ctx := context.Background()

	raw := "captured content that should produce one analytics row"
	in := draftInput(raw, time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	if _, err := engine.Persist(ctx, in); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}

	recorded, err := events.GetByHash(ctx, in.Hash)
	if err != nil {
		t.Fatalf("GetByHash failed: %v", err)
	}
	if len(recorded) != 1 {
		t.Fatalf("got %d extraction events, want 1", len(recorded))
	}
	ev := recorded[0]
	if ev.Path != domain.PathBuffered || ev.Trigger != "quiet_period" {
		t.Errorf("event path/trigger = %s/%s", ev.Path, ev.Trigger)
	}
	if ev.ContentLen != len(raw) {
		t.Errorf("ContentLen = %d, want %d", ev.ContentLen, len(raw))
	}
	if ev.ModelName != "gpt-5" || ev.Action != domain.ActionBuy {
		t.Errorf("event model/action = %s/%s", ev.ModelName, ev.Action)
	}
}
