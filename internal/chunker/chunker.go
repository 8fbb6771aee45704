// Package chunker splits raw text into token-bounded segments along line
// boundaries. Splitting is lossless: concatenating the returned chunks in
// order reproduces the input exactly.
package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/docgrep/docgrep/internal/tokens"
)

const (
	// DefaultSeparator is the line separator used when none is given.
	DefaultSeparator = "\n"

	// DefaultTokensPerChunk is the per-chunk token budget used when none
	// is given.
	DefaultTokensPerChunk = 1000
)

// Split breaks content into an ordered sequence of chunks. Consecutive lines
// (including their trailing separator) are accumulated into the current chunk
// until its estimated token count reaches tokensPerChunk, at which point the
// chunk is closed and a new one started. Lines are never broken mid-line, so
// a single line larger than the budget yields one oversized chunk.
//
// Empty content yields no chunks. Split is pure and deterministic.
func Split(content, separator string, tokensPerChunk int) []string {
	if content == "" {
		return nil
	}
	if separator == "" {
		separator = DefaultSeparator
	}
	if tokensPerChunk <= 0 {
		tokensPerChunk = DefaultTokensPerChunk
	}

	// SplitAfter keeps each line's trailing separator, which is what makes
	// in-order concatenation lossless.
	lines := strings.SplitAfter(content, separator)

	var chunks []string
	var current strings.Builder
	runeCount := 0

	for _, line := range lines {
		if line == "" {
			// Trailing empty element when content ends with the separator.
			continue
		}
		current.WriteString(line)
		runeCount += utf8.RuneCountInString(line)
		if estimate(runeCount) >= tokensPerChunk {
			chunks = append(chunks, current.String())
			current.Reset()
			runeCount = 0
		}
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

func estimate(runes int) int {
	return (runes + tokens.CharsPerToken - 1) / tokens.CharsPerToken
}
