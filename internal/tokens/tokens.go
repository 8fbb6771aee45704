// Package tokens estimates model token counts for budgeting decisions.
package tokens

import "unicode/utf8"

// CharsPerToken is the rough character-to-token ratio used throughout.
// OpenAI embedding and chat models average about four characters per token
// for English prose.
const CharsPerToken = 4

// Count estimates the number of tokens in s.
// The estimate is deterministic and errs slightly high for short strings so
// that budget checks stay conservative.
func Count(s string) int {
	if s == "" {
		return 0
	}
	n := utf8.RuneCountInString(s)
	return (n + CharsPerToken - 1) / CharsPerToken
}

// Truncate returns s cut down to at most maxTokens estimated tokens,
// discarding excess trailing content. Multi-byte runes are never split.
func Truncate(s string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	maxRunes := maxTokens * CharsPerToken
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxRunes])
}
