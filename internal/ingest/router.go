package ingest

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// originFromURL resolves the logical origin key from a captured page URL:
// scheme, host and path, with query and fragment stripped. Unparseable URLs
// fall back to the raw string so events are still routed consistently.
func originFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	origin := u.Scheme + "://" + u.Host + u.Path
	return strings.TrimSuffix(origin, "/")
}

// modelProbeRe finds a model identifier in a raw json chunk without a full
// parse. This probe runs on every chunk, so it must stay cheaper than
// extraction.
var modelProbeRe = regexp.MustCompile(`"model(?:_id|_name)?"\s*:\s*"([^"]+)"`)

// probeModelID returns the chunk's model identifier, or "" when none is
// visible.
func probeModelID(chunk string) string {
	m := modelProbeRe.FindStringSubmatch(chunk)
	if m == nil {
		return ""
	}
	return m[1]
}

// fastPathDecision is one self-contained decision recognized by the
// fast-path probe: a stable identifier plus the element's own JSON text.
type fastPathDecision struct {
	ID  string
	Raw string
}

// conversationListKeys name the containers the source uses when it delivers
// complete decisions in one shot.
var conversationListKeys = []string{"conversations", "messages"}

// probeConversationBatch recognizes a payload that is a self-contained list
// of complete decision records, each carrying its own stable identifier.
// Such payloads bypass buffering entirely: they are already whole, and
// holding them would only add latency and merge risk.
//
// Recognized shapes: a top-level array of objects with an "id" field, or an
// object with a "conversations"/"messages" array of the same.
func probeConversationBatch(chunk string) []fastPathDecision {
	var parsed any
	if err := json.Unmarshal([]byte(chunk), &parsed); err != nil {
		return nil
	}

	switch v := parsed.(type) {
	case []any:
		return decisionList(v)
	case map[string]any:
		for _, key := range conversationListKeys {
			if list, ok := v[key].([]any); ok {
				if decisions := decisionList(list); decisions != nil {
					return decisions
				}
			}
		}
	}
	return nil
}

// decisionList validates that every element is an object with a stable id.
// One element without an id disqualifies the whole list; the payload then
// takes the buffered path like any other fragment.
func decisionList(list []any) []fastPathDecision {
	if len(list) == 0 {
		return nil
	}

	decisions := make([]fastPathDecision, 0, len(list))
	for _, elem := range list {
		obj, ok := elem.(map[string]any)
		if !ok {
			return nil
		}
		id := stableID(obj)
		if id == "" {
			return nil
		}
		raw, err := json.Marshal(obj)
		if err != nil {
			return nil
		}
		decisions = append(decisions, fastPathDecision{ID: id, Raw: string(raw)})
	}
	return decisions
}

func stableID(obj map[string]any) string {
	switch id := obj["id"].(type) {
	case string:
		return id
	case float64:
		return fmt.Sprintf("%.0f", id)
	}
	return ""
}
