package consolidate

import "github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/domain"

// Merge applies the non-destructive merge of an incoming record onto the
// existing row sharing its hash. A field already populated is never
// overwritten with an empty or null value from a later capture; this is the
// central correctness property of the whole pipeline, since one logical
// decision is routinely captured in fragments across multiple flushes.
//
// Known ambiguity, preserved from the source: an empty positions list or
// market map is treated as "no new information", so a capture legitimately
// observing zero positions is indistinguishable from a failed positions
// extraction.
func Merge(existing, incoming *domain.DecisionRecord, path string) *domain.DecisionRecord {
	merged := *existing

	if incoming.ModelName != "" && incoming.ModelName != domain.DefaultModelName &&
		(merged.ModelName == "" || merged.ModelName == domain.DefaultModelName) {
		merged.ModelName = incoming.ModelName
	}

	if incoming.Reasoning != "" {
		merged.Reasoning = incoming.Reasoning
	}

	if incoming.Action != nil {
		merged.Action = incoming.Action
	}
	if incoming.Confidence != nil {
		merged.Confidence = incoming.Confidence
	}

	if !trivialJSONList(incoming.Positions) {
		merged.Positions = incoming.Positions
	}
	if !trivialJSONMap(incoming.MarketData) {
		merged.MarketData = incoming.MarketData
	}

	// Buffered-path raw content is replaced wholesale by the text that
	// produced the current extraction; fast-path raw content is immutable
	// once first written.
	if path == domain.PathBuffered && incoming.RawContent != "" {
		merged.RawContent = incoming.RawContent
	}

	// scraped_at tracks "last touched", not "first seen"; timestamp is set
	// only at insert and never moves.
	merged.ScrapedAt = incoming.ScrapedAt

	return &merged
}

func trivialJSONList(s string) bool {
	switch s {
	case "", "[]", "null":
		return true
	}
	return false
}

func trivialJSONMap(s string) bool {
	switch s {
	case "", "{}", "null":
		return true
	}
	return false
}
