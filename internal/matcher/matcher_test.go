package matcher

import (
	"context"
	"strings"
	"testing"

	"github.com/docgrep/docgrep/internal/backend/memory"
	"github.com/docgrep/docgrep/internal/store"
)

// vectorTable maps chunk text to a fixed embedding, so tests control the
// similarity geometry exactly. The query text gets its own entry.
type vectorTable map[string][]float32

func (v vectorTable) Generate(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := v[text]; ok {
		return vec, nil
	}
	return []float32{0, 0, 1}, nil
}

type fixture struct {
	matcher *Matcher
	texts   *store.TextStore
	index   *store.ChunkIndex
	embeds  *store.EmbeddingStore
}

func newFixture(t *testing.T, vectors vectorTable) *fixture {
	t.Helper()
	texts := store.NewTextStore(memory.New())
	index := store.NewChunkIndex(memory.New())
	embeds := store.NewEmbeddingStore(store.NewKVVectorRepo(memory.New()), vectors, nil)
	return &fixture{
		matcher: New(embeds, index, texts, vectors, 0, nil),
		texts:   texts,
		index:   index,
		embeds:  embeds,
	}
}

// addChunk stores a chunk's text, embedding and index entry under parent.
func (f *fixture) addChunk(t *testing.T, parent, key, text string) {
	t.Helper()
	ctx := context.Background()
	if err := f.texts.Put(ctx, key, text); err != nil {
		t.Fatalf("put text %q: %v", key, err)
	}
	if err := f.embeds.StoreEmbedding(ctx, key, text); err != nil {
		t.Fatalf("store embedding %q: %v", key, err)
	}
	keys, _ := f.index.Get(ctx, parent)
	if err := f.index.Store(ctx, parent, append(keys, key)); err != nil {
		t.Fatalf("index %q: %v", key, err)
	}
}

func TestQuery_RanksBySimilarityAndResolvesParents(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, vectorTable{
		"the query":     {1, 0, 0},
		"exact topic":   {1, 0, 0},
		"related topic": {1, 1, 0},
		"off topic":     {0, 1, 0},
	})
	f.addChunk(t, "guides/a", "guides/a", "exact topic")
	f.addChunk(t, "guides/b", "guides/b", "related topic")
	f.addChunk(t, "misc/c", "misc/c", "off topic")

	matches, err := f.matcher.Query(ctx, "the query")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("matches: got %d, want 3", len(matches))
	}

	wantOrder := []string{"guides/a", "guides/b", "misc/c"}
	for i, want := range wantOrder {
		if matches[i].ChunkKey != want {
			t.Errorf("rank %d: got %q, want %q", i, matches[i].ChunkKey, want)
		}
		if matches[i].DocumentID != want {
			t.Errorf("rank %d parent: got %q", i, matches[i].DocumentID)
		}
	}
	if !(matches[0].Similarity > matches[1].Similarity && matches[1].Similarity > matches[2].Similarity) {
		t.Errorf("similarities not strictly descending: %f %f %f",
			matches[0].Similarity, matches[1].Similarity, matches[2].Similarity)
	}
}

func TestQuery_ChunkKeysResolveToParentDocument(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, vectorTable{
		"the query": {1, 0, 0},
		"part one":  {1, 0, 0},
		"part two":  {1, 1, 0},
	})
	f.addChunk(t, "big", "big chunk 0", "part one")
	f.addChunk(t, "big", "big chunk 1", "part two")

	matches, err := f.matcher.Query(ctx, "the query")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	for _, m := range matches {
		if m.DocumentID != "big" {
			t.Errorf("chunk %q resolved to %q, want big", m.ChunkKey, m.DocumentID)
		}
	}
}

func TestQuery_OrphanedChunkWithoutParentSkipped(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, vectorTable{
		"the query": {1, 0, 0},
		"indexed":   {1, 0, 0},
		"orphan":    {1, 0, 0},
	})
	f.addChunk(t, "doc", "doc", "indexed")
	// An embedding with no index entry: skipped, never fatal.
	if err := f.embeds.StoreEmbedding(ctx, "lost", "orphan"); err != nil {
		t.Fatalf("store orphan embedding: %v", err)
	}

	matches, err := f.matcher.Query(ctx, "the query")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(matches) != 1 || matches[0].ChunkKey != "doc" {
		t.Errorf("expected only the indexed chunk, got %+v", matches)
	}
}

func TestRelevantItems_DistinctDocsInRankOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, vectorTable{
		"the query": {1, 0, 0},
		"best":      {1, 0, 0},
		"second":    {2, 1, 0},
		"also best": {3, 1, 0},
	})
	f.addChunk(t, "alpha", "alpha chunk 0", "best")
	f.addChunk(t, "alpha", "alpha chunk 1", "also best")
	f.addChunk(t, "beta", "beta", "second")

	ids, err := f.matcher.RelevantItems(ctx, "the query")
	if err != nil {
		t.Fatalf("relevant items: %v", err)
	}
	if len(ids) != 2 || ids[0] != "alpha" || ids[1] != "beta" {
		t.Errorf("relevant docs: got %v, want [alpha beta]", ids)
	}
}

func TestTakeTop_StopsAtFirstBudgetOverflow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, vectorTable{
		"the query": {1, 0, 0},
		// Descending similarity: a, then b, then c.
		"aaaa": {1, 0, 0},
		"bbbb": {4, 1, 0},
		"cccc": {2, 1, 0},
	})
	f.addChunk(t, "a", "a", "aaaa")
	f.addChunk(t, "b", "b", strings.Repeat("b", 4)) // same text as vector key
	f.addChunk(t, "c", "c", "cccc")

	// Make b's stored text long so it cannot fit, while c (ranked below b)
	// would: first-fit-by-rank must stop at b, not skip to c.
	if err := f.texts.Put(ctx, "b", strings.Repeat("long line of text\n", 40)); err != nil {
		t.Fatalf("put: %v", err)
	}

	matches, err := f.matcher.Query(ctx, "the query")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(matches) != 3 || matches[0].ChunkKey != "a" || matches[1].ChunkKey != "b" {
		t.Fatalf("unexpected ranking: %+v", matches)
	}

	selections, err := f.matcher.TakeTop(ctx, matches, 10)
	if err != nil {
		t.Fatalf("take top: %v", err)
	}
	if len(selections) != 1 || selections[0].Match.ChunkKey != "a" {
		t.Errorf("expected only the top match selected, got %+v", selections)
	}
	if selections[0].Tokens <= 0 || selections[0].Tokens > 10 {
		t.Errorf("selection cost out of budget: %d", selections[0].Tokens)
	}
}

func TestTakeTop_SkipsOrphanedText(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, vectorTable{
		"the query": {1, 0, 0},
		"present":   {1, 1, 0},
		"gone":      {1, 0, 0},
	})
	f.addChunk(t, "keep", "keep", "present")
	f.addChunk(t, "drop", "drop", "gone")
	// Simulate an orphan: the text record vanished after indexing.
	if err := f.texts.Delete(ctx, "drop"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	matches, err := f.matcher.Query(ctx, "the query")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	selections, err := f.matcher.TakeTop(ctx, matches, 1000)
	if err != nil {
		t.Fatalf("take top: %v", err)
	}
	if len(selections) != 1 || selections[0].Match.ChunkKey != "keep" {
		t.Errorf("expected the orphan skipped, got %+v", selections)
	}
}

func TestRender_Format(t *testing.T) {
	got := Render(Match{DocumentID: "docs/a", ChunkKey: "docs/a chunk 1"}, "body")
	want := "[docs/a] (docs/a chunk 1)\nbody\n"
	if got != want {
		t.Errorf("render: got %q, want %q", got, want)
	}
}
