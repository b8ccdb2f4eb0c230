package domain

// Canonical action values. Raw action strings that do not canonicalize to
// one of these pass through verbatim.
const (
	ActionBuy   = "buy"
	ActionSell  = "sell"
	ActionHold  = "hold"
	ActionClose = "close"
)

// Position sides.
const (
	SideLong  = "LONG"
	SideShort = "SHORT"
)

// Position is the canonical shape for an observed position mention.
// All fields are optional; a Position with every field nil is still valid,
// partial capture is expected.
type Position struct {
	Symbol     *string  `json:"symbol,omitempty"`
	Side       *string  `json:"side,omitempty"` // LONG | SHORT
	Size       *float64 `json:"size,omitempty"`
	Leverage   *float64 `json:"leverage,omitempty"`
	Entry      *float64 `json:"entry,omitempty"`
	Stop       *float64 `json:"stop,omitempty"`
	TakeProfit *float64 `json:"take_profit,omitempty"`
}

// DecisionDraft is the intermediate record produced by extraction, before
// consolidation into a canonical row. Every field defaults to nil/empty;
// extraction never fails outright.
type DecisionDraft struct {
	ModelID       *string
	Action        *string
	Confidence    *float64
	Positions     []Position
	MarketFields  map[string]any
	ReasoningText string
}
