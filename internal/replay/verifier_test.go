package replay

import (
	"context"
	"errors"
	"testing"

	"github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/domain"
	"github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/idhash"
	"github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/storage/memory"
)

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func TestVerifier_MatchingRow(t *testing.T) {
	store := memory.NewDecisionStore()
	ctx := context.Background()

	raw := `{"model_id": "gpt-5", "action": "buy", "confidence": 0.8, "reasoning": "the trend and the funding both support adding risk here"}`
	d := &domain.DecisionRecord{
		ModelName:   "gpt-5",
		Timestamp:   "2026-08-01T12:00:00Z",
		MessageHash: idhash.MessageHash(raw),
		Reasoning:   "the trend and the funding both support adding risk here",
		Action:      strPtr(domain.ActionBuy),
		Confidence:  floatPtr(0.8),
		Positions:   "[]",
		MarketData:  "{}",
		RawContent:  raw,
		ScrapedAt:   "2026-08-01T12:00:00Z",
	}
	if err := store.Insert(ctx, d); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	verifier := NewVerifier(store)
	result, err := verifier.VerifyDecision(ctx, d.MessageHash)
	if err != nil {
		t.Fatalf("VerifyDecision failed: %v", err)
	}
	if !result.Match {
		t.Errorf("expected a match, got divergences %+v", result.Divergences)
	}
}

func TestVerifier_DetectsDivergence(t *testing.T) {
	store := memory.NewDecisionStore()
	ctx := context.Background()

	// The stored action contradicts what the raw content reproduces.
	raw := `{"model_id": "grok-4", "action": "sell", "confidence": 0.6}`
	d := &domain.DecisionRecord{
		ModelName:   "grok-4",
		MessageHash: idhash.MessageHash(raw),
		Action:      strPtr(domain.ActionBuy),
		Confidence:  floatPtr(0.6),
		Positions:   "[]",
		MarketData:  "{}",
		RawContent:  raw,
	}
	if err := store.Insert(ctx, d); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	verifier := NewVerifier(store)
	report, err := verifier.VerifyAll(ctx)
	if err != nil {
		t.Fatalf("VerifyAll failed: %v", err)
	}
	if report.TotalDecisions != 1 || report.DivergentDecisions != 1 {
		t.Fatalf("report = %+v, want 1 divergent of 1", report)
	}

	found := false
	for _, div := range report.Results[0].Divergences {
		if div.Field == "action" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an action divergence, got %+v", report.Results[0].Divergences)
	}
}

func TestVerifier_MultiChunkRawContent(t *testing.T) {
	store := memory.NewDecisionStore()
	ctx := context.Background()

	// Two chunks joined the way the buffer writes them.
	raw := `{"model_id": "qwen3-max"}` + "\n\n" + `{"action": "hold", "confidence": 0.5}`
	d := &domain.DecisionRecord{
		ModelName:   "qwen3-max",
		MessageHash: idhash.MessageHash(raw),
		Action:      strPtr(domain.ActionHold),
		Confidence:  floatPtr(0.5),
		Positions:   "[]",
		MarketData:  "{}",
		RawContent:  raw,
	}
	if err := store.Insert(ctx, d); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	verifier := NewVerifier(store)
	result, err := verifier.VerifyDecision(ctx, d.MessageHash)
	if err != nil {
		t.Fatalf("VerifyDecision failed: %v", err)
	}
	if !result.Match {
		t.Errorf("chunk boundaries must be recovered, got divergences %+v", result.Divergences)
	}
}

func TestVerifier_UnknownHash(t *testing.T) {
	verifier := NewVerifier(memory.NewDecisionStore())

	_, err := verifier.VerifyDecision(context.Background(), "does-not-exist")
	if !errors.Is(err, ErrDecisionNotFound) {
		t.Fatalf("err = %v, want ErrDecisionNotFound", err)
	}
}
