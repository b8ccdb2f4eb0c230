package extract

import (
	"strings"

	"github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/domain"
)

// CanonicalizeAction maps a raw action string into the canonical action set
// via substring matching. Unrecognized strings pass through verbatim.
//
// Close is checked before buy/sell so "close long position" canonicalizes to
// close rather than buy.
func CanonicalizeAction(raw string) string {
	lower := strings.ToLower(strings.TrimSpace(raw))
	if lower == "" {
		return raw
	}

	switch {
	case strings.Contains(lower, "close"), strings.Contains(lower, "flat"):
		return domain.ActionClose
	case strings.Contains(lower, "hold"), strings.Contains(lower, "wait"):
		return domain.ActionHold
	case strings.Contains(lower, "buy"), strings.Contains(lower, "long"), strings.Contains(lower, "accumulate"):
		return domain.ActionBuy
	case strings.Contains(lower, "sell"), strings.Contains(lower, "short"):
		return domain.ActionSell
	}

	return raw
}
