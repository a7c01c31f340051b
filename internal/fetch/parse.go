package fetch

import (
	"encoding/json"
	"fmt"
	"strings"
)

const maxSuggestionBytes = 200

// ParseError signals a response that was HTTP 200 but did not carry the
// expected suggestion payload shape.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed suggestion response: %s", e.Reason)
}

// ParseSuggestions decodes the endpoint's response: a JSON array whose
// element at index 1 is the suggestion list. Non-string entries inside the
// list are discarded, any other shape is a ParseError.
func ParseSuggestions(body []byte) ([]string, error) {
	var payload []json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &ParseError{Reason: "response is not a JSON array"}
	}
	if len(payload) < 2 {
		return nil, &ParseError{Reason: "response array has no suggestion element"}
	}

	var entries []any
	if err := json.Unmarshal(payload[1], &entries); err != nil {
		return nil, &ParseError{Reason: "suggestion element is not an array"}
	}

	suggestions := make([]string, 0, len(entries))
	for _, entry := range entries {
		if s, ok := entry.(string); ok {
			suggestions = append(suggestions, s)
		}
	}
	return CleanSuggestions(suggestions), nil
}

// CleanSuggestions enforces the suggestion invariants: trimmed, non-empty,
// capped at 200 bytes, free of markup-breaking characters, deduplicated
// case-insensitively with first-seen casing and order preserved.
func CleanSuggestions(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" || len(s) > maxSuggestionBytes {
			continue
		}
		if strings.ContainsAny(s, `<>&"'`) {
			continue
		}
		key := strings.ToLower(s)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}
