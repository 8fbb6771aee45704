// Package matcher answers semantic relevance queries: it embeds the query,
// scores every stored chunk embedding by cosine similarity, resolves each
// match's parent document, and selects a token-budgeted subset in rank order.
package matcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/docgrep/docgrep/internal/store"
	"github.com/docgrep/docgrep/internal/tokens"
)

const (
	// DefaultMaxQueryTokens caps the query text passed to the embedding
	// model. Longer queries are truncated, never rejected.
	DefaultMaxQueryTokens = 8000

	// DefaultMaxTotalTokens is TakeTop's selection budget.
	DefaultMaxTotalTokens = 8000
)

// Match is one scored chunk from a query. Text is fetched lazily so callers
// that only need the ranking never touch the text store.
type Match struct {
	Similarity float64
	ChunkKey   string
	DocumentID string

	texts *store.TextStore
}

// Text fetches the chunk's content. Fails with store.ErrNotFound for
// orphaned chunks.
func (m *Match) Text(ctx context.Context) (string, error) {
	return m.texts.Get(ctx, m.ChunkKey)
}

// Selection is a match admitted by TakeTop, with its rendered text and the
// token count it charged against the budget.
type Selection struct {
	Match  Match
	Text   string
	Tokens int
}

// Matcher runs relevance queries against the stores. It performs no writes.
type Matcher struct {
	embeds *store.EmbeddingStore
	index  *store.ChunkIndex
	texts  *store.TextStore
	gen    store.Generator
	logger *slog.Logger

	maxQueryTokens int
}

// New creates a matcher over the given stores and query-embedding generator.
// maxQueryTokens caps query truncation; 0 means DefaultMaxQueryTokens.
func New(embeds *store.EmbeddingStore, index *store.ChunkIndex, texts *store.TextStore, gen store.Generator, maxQueryTokens int, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	if maxQueryTokens <= 0 {
		maxQueryTokens = DefaultMaxQueryTokens
	}
	return &Matcher{
		embeds:         embeds,
		index:          index,
		texts:          texts,
		gen:            gen,
		logger:         logger,
		maxQueryTokens: maxQueryTokens,
	}
}

// Query returns every stored chunk scored against queryText, ordered by
// similarity descending with ties broken by chunk key. Chunks whose parent
// document cannot be resolved are skipped and logged, not fatal.
func (m *Matcher) Query(ctx context.Context, queryText string) ([]Match, error) {
	truncated := tokens.Truncate(queryText, m.maxQueryTokens)

	queryVector, err := m.gen.Generate(ctx, truncated)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", store.ErrEmbeddingFailed, err)
	}

	scored, err := m.embeds.Score(ctx, queryVector)
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(scored))
	for _, s := range scored {
		parent, err := m.index.Parent(ctx, s.Record.Key)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				m.logger.Warn("orphaned chunk: no parent document", "key", s.Record.Key)
				continue
			}
			return nil, err
		}
		matches = append(matches, Match{
			Similarity: s.Similarity,
			ChunkKey:   s.Record.Key,
			DocumentID: parent,
			texts:      m.texts,
		})
	}
	return matches, nil
}

// RelevantItems returns the distinct parent document ids of the query's
// matches, in rank order.
func (m *Matcher) RelevantItems(ctx context.Context, queryText string) ([]string, error) {
	matches, err := m.Query(ctx, queryText)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(matches))
	var ids []string
	for _, match := range matches {
		if seen[match.DocumentID] {
			continue
		}
		seen[match.DocumentID] = true
		ids = append(ids, match.DocumentID)
	}
	return ids, nil
}

// TakeTop walks matches in rank order, fetching each chunk's text and
// accumulating rendered selections while the running token total stays
// within maxTotalTokens. Selection stops at the first match that would
// exceed the budget: first-fit-by-rank, never best-fit. Orphaned chunks
// (index entry without a text record) are skipped and logged.
func (m *Matcher) TakeTop(ctx context.Context, matches []Match, maxTotalTokens int) ([]Selection, error) {
	if maxTotalTokens <= 0 {
		maxTotalTokens = DefaultMaxTotalTokens
	}

	var selections []Selection
	total := 0
	for _, match := range matches {
		text, err := match.Text(ctx)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				m.logger.Warn("orphaned chunk: no text record", "key", match.ChunkKey)
				continue
			}
			return nil, err
		}
		rendered := Render(match, text)
		cost := tokens.Count(rendered)
		if total+cost > maxTotalTokens {
			break
		}
		total += cost
		selections = append(selections, Selection{Match: match, Text: rendered, Tokens: cost})
	}
	return selections, nil
}

// Render formats a match for downstream consumption: a fixed header naming
// the parent document and chunk key, then the chunk text. The header counts
// against TakeTop's token budget.
func Render(match Match, text string) string {
	return fmt.Sprintf("[%s] (%s)\n%s\n", match.DocumentID, match.ChunkKey, text)
}
