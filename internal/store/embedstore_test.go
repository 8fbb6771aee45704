package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
)

// mapKV is an in-memory KV for tests.
type mapKV struct {
	mu sync.Mutex
	m  map[string][]byte
}

func newMapKV() *mapKV {
	return &mapKV{m: make(map[string][]byte)}
}

func (kv *mapKV) Get(ctx context.Context, key string) ([]byte, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	data, ok := kv.m[key]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

func (kv *mapKV) Put(ctx context.Context, key string, value []byte) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.m[key] = value
	return nil
}

func (kv *mapKV) Delete(ctx context.Context, key string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	if _, ok := kv.m[key]; !ok {
		return ErrNotFound
	}
	delete(kv.m, key)
	return nil
}

func (kv *mapKV) Keys(ctx context.Context) ([]string, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	keys := make([]string, 0, len(kv.m))
	for k := range kv.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// stubGenerator returns canned vectors per text and counts provider calls.
type stubGenerator struct {
	vectors map[string][]float32
	dim     int
	calls   int
	err     error
}

func (g *stubGenerator) Generate(ctx context.Context, text string) ([]float32, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	if v, ok := g.vectors[text]; ok {
		return v, nil
	}
	dim := g.dim
	if dim == 0 {
		dim = 3
	}
	// Deterministic fallback so distinct texts get distinct vectors.
	v := make([]float32, dim)
	for i := range v {
		v[i] = float32((len(text)+i)%7) + 1
	}
	return v, nil
}

func TestStoreEmbedding_SkipsUnchangedText(t *testing.T) {
	ctx := context.Background()
	gen := &stubGenerator{}
	s := NewEmbeddingStore(NewKVVectorRepo(newMapKV()), gen, nil)

	if err := s.StoreEmbedding(ctx, "doc", "hello world"); err != nil {
		t.Fatalf("first store: %v", err)
	}
	if gen.calls != 1 {
		t.Fatalf("expected 1 provider call, got %d", gen.calls)
	}

	// Same text again: checksum matches, no provider call.
	if err := s.StoreEmbedding(ctx, "doc", "hello world"); err != nil {
		t.Fatalf("second store: %v", err)
	}
	if gen.calls != 1 {
		t.Errorf("unchanged text triggered a provider call (%d total)", gen.calls)
	}

	// Changed text: one more call.
	if err := s.StoreEmbedding(ctx, "doc", "hello moon"); err != nil {
		t.Fatalf("third store: %v", err)
	}
	if gen.calls != 2 {
		t.Errorf("expected 2 provider calls after change, got %d", gen.calls)
	}
}

func TestStoreEmbedding_ProviderFailureLeavesStoreUnchanged(t *testing.T) {
	ctx := context.Background()
	gen := &stubGenerator{}
	s := NewEmbeddingStore(NewKVVectorRepo(newMapKV()), gen, nil)

	if err := s.StoreEmbedding(ctx, "doc", "original"); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	before, err := s.Get(ctx, "doc")
	if err != nil {
		t.Fatalf("get seeded record: %v", err)
	}

	gen.err = fmt.Errorf("provider down")
	err = s.StoreEmbedding(ctx, "doc", "changed")
	if !errors.Is(err, ErrEmbeddingFailed) {
		t.Fatalf("expected ErrEmbeddingFailed, got %v", err)
	}

	after, err := s.Get(ctx, "doc")
	if err != nil {
		t.Fatalf("get after failure: %v", err)
	}
	if after.Checksum != before.Checksum {
		t.Errorf("failed store mutated the record: checksum %q -> %q", before.Checksum, after.Checksum)
	}
}

func TestStoreEmbedding_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	gen := &stubGenerator{vectors: map[string][]float32{
		"a": {1, 0, 0},
		"b": {1, 0},
	}}
	s := NewEmbeddingStore(NewKVVectorRepo(newMapKV()), gen, nil)

	if err := s.StoreEmbedding(ctx, "a", "a"); err != nil {
		t.Fatalf("store a: %v", err)
	}
	err := s.StoreEmbedding(ctx, "b", "b")
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestScore_OrderAndTieBreak(t *testing.T) {
	ctx := context.Background()
	gen := &stubGenerator{vectors: map[string][]float32{
		"east":       {1, 0},
		"north":      {0, 1},
		"northeast":  {1, 1},
		"northeast2": {2, 2}, // same direction as northeast: exact tie
	}}
	s := NewEmbeddingStore(NewKVVectorRepo(newMapKV()), gen, nil)
	for _, key := range []string{"east", "north", "northeast", "northeast2"} {
		if err := s.StoreEmbedding(ctx, key, key); err != nil {
			t.Fatalf("store %s: %v", key, err)
		}
	}

	scored, err := s.Score(ctx, []float32{1, 0})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	got := make([]string, len(scored))
	for i, sc := range scored {
		got[i] = sc.Record.Key
		if sc.Similarity < -1.0001 || sc.Similarity > 1.0001 {
			t.Errorf("similarity for %s out of range: %f", sc.Record.Key, sc.Similarity)
		}
	}

	// east is parallel (1.0), the two northeast vectors tie at cos(45°) and
	// sort by key, north is orthogonal (0.0).
	want := []string{"east", "northeast", "northeast2", "north"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rank %d: got %s, want %s (full order %v)", i, got[i], want[i], got)
		}
	}
}

func TestScore_Deterministic(t *testing.T) {
	ctx := context.Background()
	gen := &stubGenerator{dim: 8}
	s := NewEmbeddingStore(NewKVVectorRepo(newMapKV()), gen, nil)
	for i := 0; i < 100; i++ {
		if err := s.StoreEmbedding(ctx, fmt.Sprintf("k%03d", i), fmt.Sprintf("text %d", i)); err != nil {
			t.Fatalf("store: %v", err)
		}
	}
	query := []float32{1, 2, 3, 4, 5, 6, 7, 8}

	first, err := s.Score(ctx, query)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	for run := 0; run < 5; run++ {
		again, err := s.Score(ctx, query)
		if err != nil {
			t.Fatalf("score run %d: %v", run, err)
		}
		for i := range first {
			if again[i].Record.Key != first[i].Record.Key || again[i].Similarity != first[i].Similarity {
				t.Fatalf("run %d diverged at rank %d", run, i)
			}
		}
	}
}

func TestCosineSimilarity(t *testing.T) {
	cases := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"parallel", []float32{1, 2, 3}, []float32{2, 4, 6}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
	}
	for _, tc := range cases {
		got := CosineSimilarity(tc.a, tc.b)
		if got < tc.want-1e-9 || got > tc.want+1e-9 {
			t.Errorf("%s: got %f, want %f", tc.name, got, tc.want)
		}
	}
}
