package extract

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/domain"
)

// Candidate key lists, in probe order. First hit wins per field.
var (
	modelKeys      = []string{"model_id", "model_name", "model", "agent", "llm"}
	reasoningKeys  = []string{"reasoning", "chain_of_thought", "thinking", "analysis", "rationale", "content"}
	actionKeys     = []string{"action", "decision", "signal", "side", "recommendation"}
	confidenceKeys = []string{"confidence", "conviction", "probability", "score"}
	positionKeys   = []string{"positions", "position", "trading_decisions", "trades", "orders", "holdings"}

	// containerKeys are nested objects probed one level deep.
	containerKeys = []string{"data", "message", "payload", "decision"}

	// marketObjectKeys hold a nested market object merged wholesale.
	marketObjectKeys = []string{"market", "market_data"}
)

// marketScalarKeys is the allow-list of scalar keys lifted into market fields.
var marketScalarKeys = []string{
	"symbol", "current_price", "price", "volume",
	"funding_rate", "open_interest",
	"current_rsi", "rsi", "current_macd", "macd",
	"account_value", "total_return", "sharpe_ratio",
}

// passResult carries one pass's findings into the merge.
type passResult struct {
	modelID    *string
	action     *string
	confidence *float64
	positions  []domain.Position
	market     map[string]any
	reasoning  string
}

// structuredPass iterates parsed JSON chunks in arrival order, probing each
// object for decision fields. Reasoning fragments from every chunk are
// concatenated; the remaining fields keep the first value found.
func structuredPass(chunks []string) passResult {
	res := passResult{market: make(map[string]any)}
	var reasoningParts []string

	for _, chunk := range chunks {
		var parsed any
		if err := json.Unmarshal([]byte(chunk), &parsed); err != nil {
			continue // not valid JSON, the text pass may still recover fields
		}

		for _, obj := range candidateObjects(parsed) {
			if res.modelID == nil {
				res.modelID = probeString(obj, modelKeys)
			}
			reasoningParts = append(reasoningParts, probeReasoning(obj)...)
			if res.action == nil {
				if raw := probeString(obj, actionKeys); raw != nil {
					canon := CanonicalizeAction(*raw)
					res.action = &canon
				}
			}
			if res.confidence == nil {
				res.confidence = probeNumber(obj, confidenceKeys)
			}
			res.positions = append(res.positions, probePositions(obj)...)
			probeMarket(obj, res.market)
		}
	}

	res.reasoning = strings.Join(reasoningParts, "\n\n")
	return res
}

// candidateObjects flattens a parsed payload into the objects worth probing:
// the top-level object, its array elements, and one level of known container
// keys.
func candidateObjects(parsed any) []map[string]any {
	var objs []map[string]any

	switch v := parsed.(type) {
	case map[string]any:
		objs = append(objs, v)
		for _, key := range containerKeys {
			if nested, ok := v[key].(map[string]any); ok {
				objs = append(objs, nested)
			}
		}
	case []any:
		for _, elem := range v {
			if m, ok := elem.(map[string]any); ok {
				objs = append(objs, m)
			}
		}
	}

	return objs
}

// probeString returns the first non-empty string value among candidate keys.
func probeString(obj map[string]any, keys []string) *string {
	for _, key := range keys {
		if s, ok := obj[key].(string); ok {
			s = strings.TrimSpace(s)
			if s != "" {
				return &s
			}
		}
	}
	return nil
}

// probeReasoning collects every qualifying reasoning fragment from an object.
// A fragment qualifies when its alphanumeric length exceeds the minimum;
// short values under generic keys like "content" are routing noise.
func probeReasoning(obj map[string]any) []string {
	var parts []string
	for _, key := range reasoningKeys {
		if s, ok := obj[key].(string); ok {
			if alphanumericLen(s) > minReasoningFragmentLen {
				parts = append(parts, strings.TrimSpace(s))
			}
		}
	}
	return parts
}

// probeNumber returns the first numeric value among candidate keys.
func probeNumber(obj map[string]any, keys []string) *float64 {
	for _, key := range keys {
		if f := asFloat(obj[key]); f != nil {
			return f
		}
	}
	return nil
}

// probePositions normalizes whatever shape sits under a position key.
func probePositions(obj map[string]any) []domain.Position {
	for _, key := range positionKeys {
		v, ok := obj[key]
		if !ok {
			continue
		}
		if positions := normalizePositionValue(v); len(positions) > 0 {
			return positions
		}
	}
	return nil
}

// probeMarket lifts allow-listed scalars and nested market objects into the
// accumulated market map, first-seen-wins per key.
func probeMarket(obj map[string]any, market map[string]any) {
	for _, key := range marketScalarKeys {
		v, ok := obj[key]
		if !ok {
			continue
		}
		if !isScalar(v) {
			continue
		}
		if _, seen := market[key]; !seen {
			market[key] = v
		}
	}

	for _, key := range marketObjectKeys {
		nested, ok := obj[key].(map[string]any)
		if !ok {
			continue
		}
		for k, v := range nested {
			if !isScalar(v) {
				continue
			}
			if _, seen := market[k]; !seen {
				market[k] = v
			}
		}
	}
}

func isScalar(v any) bool {
	switch v.(type) {
	case string, float64, bool:
		return true
	}
	return false
}

// asFloat coerces a JSON value to a float, accepting numbers and numeric
// strings (with stray "%", "$" and thousands separators stripped).
func asFloat(v any) *float64 {
	switch n := v.(type) {
	case float64:
		f := n
		return &f
	case string:
		cleaned := strings.TrimSpace(n)
		cleaned = strings.Trim(cleaned, "%$")
		cleaned = strings.ReplaceAll(cleaned, ",", "")
		if cleaned == "" {
			return nil
		}
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return nil
		}
		return &f
	}
	return nil
}
