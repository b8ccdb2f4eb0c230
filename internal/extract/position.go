package extract

import (
	"strings"

	"github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/domain"
)

// Field-name synonyms observed across the source's payload shapes. Probe
// order within each list is significant: the more specific name wins.
var (
	symbolAliases     = []string{"symbol", "ticker", "coin", "asset", "pair", "instrument"}
	sideAliases       = []string{"side", "direction", "position_side"}
	sizeAliases       = []string{"size", "quantity", "qty", "amount", "position_size", "units"}
	leverageAliases   = []string{"leverage", "lev"}
	entryAliases      = []string{"entry", "entry_price", "open_price", "avg_price"}
	stopAliases       = []string{"stop", "stop_loss", "sl", "stop_price"}
	takeProfitAliases = []string{"take_profit", "tp", "target", "target_price", "profit_target"}
)

// normalizePositionValue turns whatever sits under a position key into
// canonical positions: an array of objects, a single object, or a map keyed
// by symbol.
func normalizePositionValue(v any) []domain.Position {
	switch val := v.(type) {
	case []any:
		var positions []domain.Position
		for _, elem := range val {
			if m, ok := elem.(map[string]any); ok {
				if p := normalizePosition(m); !isEmptyPosition(p) {
					positions = append(positions, p)
				}
			}
		}
		return positions

	case map[string]any:
		// A single position object carries at least one alias key directly.
		if hasPositionAlias(val) {
			p := normalizePosition(val)
			if isEmptyPosition(p) {
				return nil
			}
			return []domain.Position{p}
		}

		// Otherwise treat it as a symbol-keyed map of position objects.
		var positions []domain.Position
		for symbol, elem := range val {
			m, ok := elem.(map[string]any)
			if !ok {
				continue
			}
			p := normalizePosition(m)
			if p.Symbol == nil {
				s := strings.ToUpper(symbol)
				p.Symbol = &s
			}
			if !isEmptyPosition(p) {
				positions = append(positions, p)
			}
		}
		return positions
	}

	return nil
}

// normalizePosition resolves alias keys into the canonical Position shape.
// Every field stays nil when no alias matches; partial capture is expected.
func normalizePosition(obj map[string]any) domain.Position {
	var p domain.Position

	if s := probeString(obj, symbolAliases); s != nil {
		upper := strings.ToUpper(*s)
		p.Symbol = &upper
	}
	if s := probeString(obj, sideAliases); s != nil {
		p.Side = normalizeSide(*s)
	}
	p.Size = probeNumber(obj, sizeAliases)
	p.Leverage = probeNumber(obj, leverageAliases)
	p.Entry = probeNumber(obj, entryAliases)
	p.Stop = probeNumber(obj, stopAliases)
	p.TakeProfit = probeNumber(obj, takeProfitAliases)

	return p
}

// normalizeSide maps raw side strings to LONG/SHORT; anything else drops.
func normalizeSide(raw string) *string {
	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "long"), strings.Contains(lower, "buy"):
		side := domain.SideLong
		return &side
	case strings.Contains(lower, "short"), strings.Contains(lower, "sell"):
		side := domain.SideShort
		return &side
	}
	return nil
}

func hasPositionAlias(obj map[string]any) bool {
	for _, aliases := range [][]string{
		symbolAliases, sideAliases, sizeAliases,
		leverageAliases, entryAliases, stopAliases, takeProfitAliases,
	} {
		for _, key := range aliases {
			if _, ok := obj[key]; ok {
				return true
			}
		}
	}
	return false
}

func isEmptyPosition(p domain.Position) bool {
	return p.Symbol == nil && p.Side == nil && p.Size == nil &&
		p.Leverage == nil && p.Entry == nil && p.Stop == nil && p.TakeProfit == nil
}
