//go:build integration

package qdrant

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docgrep/docgrep/internal/store"
)

// setupTestRepo connects to a local Qdrant with a throwaway collection.
// Skips if Qdrant is not running.
func setupTestRepo(t *testing.T) *Repo {
	repo, err := New("localhost", 6334, "docgrep-test-"+uuid.New().String()[:8])
	if err != nil {
		t.Skipf("Qdrant not available: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestRecordRoundTrip(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	rec := &store.EmbeddingRecord{
		Key:      "notes chunk 0",
		Checksum: "abc123",
		Vector:   []float32{0.1, 0.2, 0.3, 0.4},
	}
	require.NoError(t, repo.Put(ctx, rec))

	got, err := repo.Get(ctx, "notes chunk 0")
	require.NoError(t, err)
	assert.Equal(t, rec.Key, got.Key)
	assert.Equal(t, rec.Checksum, got.Checksum)
	assert.Equal(t, rec.Vector, got.Vector)

	// Overwrite under the same key replaces, never duplicates.
	rec.Checksum = "def456"
	require.NoError(t, repo.Put(ctx, rec))
	got, err = repo.Get(ctx, "notes chunk 0")
	require.NoError(t, err)
	assert.Equal(t, "def456", got.Checksum)

	require.NoError(t, repo.Delete(ctx, "notes chunk 0"))
	_, err = repo.Get(ctx, "notes chunk 0")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestAllScrollsEveryRecord(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	const n = 600 // beyond one scroll batch
	for i := 0; i < n; i++ {
		rec := &store.EmbeddingRecord{
			Key:      fmt.Sprintf("doc chunk %d", i),
			Checksum: fmt.Sprintf("sum%d", i),
			Vector:   []float32{float32(i), 1, 0, 0},
		}
		require.NoError(t, repo.Put(ctx, rec))
	}

	recs, err := repo.All(ctx)
	require.NoError(t, err)
	assert.Len(t, recs, n)

	// Scroll pagination must not repeat the boundary point of a full page.
	seen := make(map[string]bool, len(recs))
	for _, rec := range recs {
		assert.False(t, seen[rec.Key], "record %q returned twice", rec.Key)
		seen[rec.Key] = true
	}
}
