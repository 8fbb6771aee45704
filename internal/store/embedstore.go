package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sort"
	"sync"
)

// Generator produces a fixed-length embedding vector for a piece of text.
// Implementations wrap external providers and own their retry policy; the
// embedding store never retries.
type Generator interface {
	Generate(ctx context.Context, text string) ([]float32, error)
}

// Scored pairs an embedding record with its similarity to a query vector.
type Scored struct {
	Similarity float64
	Record     *EmbeddingRecord
}

// EmbeddingStore persists one embedding record per chunk key and skips
// regeneration when the source text is unchanged, detected via a SHA-256
// checksum of the text. Vector dimensionality is fixed per store instance
// and enforced from the first insert onward.
type EmbeddingStore struct {
	repo   VectorRepo
	gen    Generator
	logger *slog.Logger

	mu  sync.Mutex
	dim int // 0 until the first vector is seen
}

// NewEmbeddingStore creates an embedding store over the given record
// repository and generator.
func NewEmbeddingStore(repo VectorRepo, gen Generator, logger *slog.Logger) *EmbeddingStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmbeddingStore{repo: repo, gen: gen, logger: logger}
}

// Checksum returns the hex-encoded SHA-256 hash of text, the change-detection
// fingerprint used by StoreEmbedding.
func Checksum(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// StoreEmbedding ensures an up-to-date embedding record exists for key. When
// an existing record already carries the checksum of text, the expensive
// provider call is skipped entirely. A provider failure is returned as
// ErrEmbeddingFailed and leaves the store unchanged.
func (s *EmbeddingStore) StoreEmbedding(ctx context.Context, key, text string) error {
	sum := Checksum(text)

	existing, err := s.repo.Get(ctx, key)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if existing != nil && existing.Checksum == sum {
		s.logger.Debug("embedding unchanged", "key", key)
		return nil
	}

	vector, err := s.gen.Generate(ctx, text)
	if err != nil {
		return fmt.Errorf("%w: key %q: %v", ErrEmbeddingFailed, key, err)
	}
	if err := s.checkDimension(len(vector)); err != nil {
		return fmt.Errorf("%w: key %q has %d dimensions", err, key, len(vector))
	}

	return s.repo.Put(ctx, &EmbeddingRecord{Key: key, Checksum: sum, Vector: vector})
}

// Delete removes the record for key. Returns ErrNotFound when absent.
func (s *EmbeddingStore) Delete(ctx context.Context, key string) error {
	return s.repo.Delete(ctx, key)
}

// Get returns the record for key, or ErrNotFound.
func (s *EmbeddingStore) Get(ctx context.Context, key string) (*EmbeddingRecord, error) {
	return s.repo.Get(ctx, key)
}

func (s *EmbeddingStore) checkDimension(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dim == 0 {
		s.dim = n
		return nil
	}
	if n != s.dim {
		return ErrDimensionMismatch
	}
	return nil
}

// Score computes the cosine similarity of query against every stored record
// and returns the results ordered by similarity descending, ties broken by
// key ascending. Scoring is parallelized across cores but the output order
// is identical to sequential scoring.
func (s *EmbeddingStore) Score(ctx context.Context, query []float32) ([]Scored, error) {
	records, err := s.repo.All(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	scored := make([]Scored, len(records))
	workers := runtime.GOMAXPROCS(0)
	if workers > len(records) {
		workers = len(records)
	}
	per := (len(records) + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		lo := w * per
		hi := min(lo+per, len(records))
		if lo >= hi {
			break
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				scored[i] = Scored{
					Similarity: CosineSimilarity(query, records[i].Vector),
					Record:     records[i],
				}
			}
		}(lo, hi)
	}
	wg.Wait()

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Similarity != scored[j].Similarity {
			return scored[i].Similarity > scored[j].Similarity
		}
		return scored[i].Record.Key < scored[j].Record.Key
	})
	return scored, nil
}

// CosineSimilarity returns dot(a,b) / (|a|*|b|) in [-1, 1], accumulating in
// float64 for precision. Zero-magnitude vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
