package stream

import "strings"

// FieldMarker prefixes the payload of an event.
const FieldMarker = "data:"

// Extract maps a framed event to its content fragment.
// Blank events and marker-only events carry no content. Unmarked events pass through unchanged.
func Extract(event string) (string, bool) {
	if strings.TrimSpace(event) == "" {
		return "", false
	}
	content := event
	if rest, ok := strings.CutPrefix(content, FieldMarker); ok {
		content = strings.TrimPrefix(rest, " ")
	}
	return content, content != ""
}
