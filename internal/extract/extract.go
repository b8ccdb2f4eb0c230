// Package extract turns raw buffered capture content into a DecisionDraft.
//
// Extraction is a best-effort fallback chain: a structured pass probes parsed
// JSON chunks with ranked candidate key lists, then a visible-text pass runs
// regex probes over the rendered snapshot. First non-nil wins per field, not
// per source, so different fields of one flush may come from different
// passes. The package never returns an error; a draft with every field
// defaulted is a valid outcome.
package extract

import (
	"unicode"

	"github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/domain"
)

// minReasoningFragmentLen is the minimum alphanumeric length for a structured
// string value to qualify as a reasoning fragment.
const minReasoningFragmentLen = 20

// minSnapshotReasoningLen is the minimum length for the raw visible-text
// snapshot to serve as the reasoning fallback.
const minSnapshotReasoningLen = 50

// Extract runs the full fallback chain over a flush's accumulated content.
func Extract(jsonChunks []string, visibleText string) domain.DecisionDraft {
	structured := structuredPass(jsonChunks)
	text := textPass(visibleText)

	draft := domain.DecisionDraft{
		ModelID:    firstString(structured.modelID, text.modelID),
		Action:     firstString(structured.action, text.action),
		Confidence: firstFloat(structured.confidence, text.confidence),
	}

	// Positions from both passes are accumulated as observed evidence, not
	// deduplicated here.
	draft.Positions = append(draft.Positions, structured.positions...)
	draft.Positions = append(draft.Positions, text.positions...)

	draft.MarketFields = mergeMarketFields(structured.market, text.market)

	if structured.reasoning != "" {
		draft.ReasoningText = structured.reasoning
	} else if text.reasoning != "" {
		draft.ReasoningText = text.reasoning
	}

	return draft
}

// ModelName resolves the persisted model name for a draft.
func ModelName(draft domain.DecisionDraft) string {
	if draft.ModelID != nil && *draft.ModelID != "" {
		return *draft.ModelID
	}
	return domain.DefaultModelName
}

func firstString(candidates ...*string) *string {
	for _, c := range candidates {
		if c != nil && *c != "" {
			return c
		}
	}
	return nil
}

func firstFloat(candidates ...*float64) *float64 {
	for _, c := range candidates {
		if c != nil {
			return c
		}
	}
	return nil
}

// mergeMarketFields merges maps with first-seen-wins per key, in pass order.
func mergeMarketFields(maps ...map[string]any) map[string]any {
	merged := make(map[string]any)
	for _, m := range maps {
		for k, v := range m {
			if _, seen := merged[k]; !seen {
				merged[k] = v
			}
		}
	}
	return merged
}

// alphanumericLen counts letters and digits in s.
func alphanumericLen(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			n++
		}
	}
	return n
}
