// Package personatext holds small text heuristics applied to model output
// and user input. Everything here is pure and must never fail.
package personatext

import "strings"

// FallbackName is used when the synthesized persona carries no Name field.
const FallbackName = "Unknown AI"

const nameMarker = "Name"

// StopWord ends a standalone chat turn without a model call. Matched after
// the input has already been lowercased.
const StopWord = "stop"

// ExtractName pulls the persona's name out of the synthesized Markdown:
// the text after the first "Name" marker through the next line break,
// stripped of surrounding decoration. Falls back to FallbackName rather
// than failing.
func ExtractName(text string) string {
	idx := strings.Index(text, nameMarker)
	if idx < 0 {
		return FallbackName
	}

	rest := text[idx+len(nameMarker):]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[:nl]
	}

	name := strings.Trim(rest, "*:：# \t\r")
	if name == "" {
		return FallbackName
	}
	return name
}

// Sanitize strips literal role tokens that leak out of malformed replies
// and trims surrounding whitespace.
func Sanitize(text string) string {
	text = strings.ReplaceAll(text, "role - user", "")
	text = strings.ReplaceAll(text, "role - model", "")
	return strings.TrimSpace(text)
}

// IsStop reports whether the input is the stop sentinel.
func IsStop(input string) bool {
	return strings.ToLower(strings.TrimSpace(input)) == StopWord
}
