package domain

// PayloadKind identifies the shape of a captured payload.
type PayloadKind string

const (
	// PayloadJSON is a structured JSON/stream fragment. Push-delivered,
	// polled and intercepted-response payloads all arrive as this kind.
	PayloadJSON PayloadKind = "json_payload"

	// PayloadVisibleText is a rendered full-page text snapshot.
	PayloadVisibleText PayloadKind = "visible_text_snapshot"
)

// CapturedEvent is one network/DOM observation forwarded by the capture
// agent. Ephemeral; never persisted as-is.
type CapturedEvent struct {
	Kind       PayloadKind
	Origin     string // logical source key derived from the captured page URL
	Payload    string // payload text (raw JSON or rendered text)
	ReceivedAt int64  // Unix timestamp in milliseconds
}
