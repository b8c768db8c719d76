package utils

import "strings"

// CountWords returns the number of whitespace-separated words, matching
// the way the dataset word-count columns are derived.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// CountChars returns the length of text in runes.
func CountChars(text string) int {
	return len([]rune(text))
}

// Truncate shortens text to at most limit runes, appending "..." when cut.
func Truncate(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}
