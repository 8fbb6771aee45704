package chunker

import (
	"strings"
	"testing"
)

// TestSplit_RoundTrip verifies chunking is lossless: concatenating chunks in
// order must reproduce the input byte-for-byte.
func TestSplit_RoundTrip(t *testing.T) {
	inputs := []string{
		"single line",
		"line1\nline2\nline3",
		"trailing newline\nsecond\n",
		"\n\n\nblank heavy\n\n",
		strings.Repeat("some words on a line\n", 500),
	}

	for _, input := range inputs {
		chunks := Split(input, "\n", 50)
		joined := strings.Join(chunks, "")
		if joined != input {
			t.Errorf("round trip failed for input of %d bytes: got %d bytes back",
				len(input), len(joined))
		}
	}
}

func TestSplit_EmptyContent(t *testing.T) {
	if chunks := Split("", "\n", 1000); len(chunks) != 0 {
		t.Errorf("expected zero chunks for empty content, got %d", len(chunks))
	}
}

// TestSplit_BudgetBoundary checks the greedy close-on-reach behavior: a chunk
// closes as soon as its token estimate reaches the budget.
func TestSplit_BudgetBoundary(t *testing.T) {
	// Each line is 40 runes incl. newline = 10 tokens.
	line := strings.Repeat("x", 39) + "\n"
	content := strings.Repeat(line, 10) // 100 tokens total

	chunks := Split(content, "\n", 30)
	// Lines accumulate 10, 20, 30 -> close. Three full chunks plus a final
	// one-line remainder? 10 lines / 3 per chunk = 3 chunks of 3 + 1 of 1.
	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d", len(chunks))
	}
	for i, c := range chunks[:3] {
		if got := strings.Count(c, "\n"); got != 3 {
			t.Errorf("chunk %d has %d lines, want 3", i, got)
		}
	}
	if got := strings.Count(chunks[3], "\n"); got != 1 {
		t.Errorf("final chunk has %d lines, want 1", got)
	}
}

// TestSplit_OversizedLine verifies a single line larger than the budget is
// returned as one oversized chunk rather than split mid-line.
func TestSplit_OversizedLine(t *testing.T) {
	long := strings.Repeat("y", 10_000)
	content := "short\n" + long + "\nshort again"

	chunks := Split(content, "\n", 100)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if !strings.Contains(chunks[0], long) {
		t.Errorf("oversized line was split across chunks")
	}
}

func TestSplit_CustomSeparator(t *testing.T) {
	content := "alpha|beta|gamma"
	chunks := Split(content, "|", 1)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if strings.Join(chunks, "") != content {
		t.Errorf("custom separator round trip failed")
	}
}

func TestSplit_Defaults(t *testing.T) {
	// Zero/empty arguments fall back to defaults instead of panicking.
	chunks := Split("a\nb", "", 0)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
}
