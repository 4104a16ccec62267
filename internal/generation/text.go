package generation

import (
	"strings"
	"unicode/utf8"
)

// TruncateUTF8 safely truncates text to approximately maxLen bytes
// without splitting multi-byte UTF-8 characters. Adds "..." if truncated.
func TruncateUTF8(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}

	// Find the last valid UTF-8 character boundary before maxLen
	validLen := maxLen
	for validLen > 0 && !utf8.RuneStart(text[validLen]) {
		validLen--
	}

	if validLen == 0 {
		return ""
	}

	return text[:validLen] + "..."
}

// ExtractJSON returns the JSON object embedded in a model response,
// stripping markdown code fences and surrounding prose.
func ExtractJSON(response string) string {
	text := strings.TrimSpace(response)

	if strings.HasPrefix(text, "```") {
		text = extractFromCodeBlock(text)
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return text
	}
	return text[start : end+1]
}

// extractFromCodeBlock extracts content from a markdown code block.
func extractFromCodeBlock(text string) string {
	lines := strings.Split(text, "\n")
	if len(lines) < 2 {
		return text
	}

	// Remove first line (```json or ```)
	start := 1
	// Remove last line if it's ```
	end := len(lines)
	if strings.TrimSpace(lines[len(lines)-1]) == "```" {
		end = len(lines) - 1
	}

	return strings.Join(lines[start:end], "\n")
}
