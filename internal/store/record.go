package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// EmbeddingRecord is a persisted vector embedding for a chunk key, together
// with the checksum of the text it was derived from. A record whose checksum
// no longer matches the current text is stale and gets recomputed, never
// deleted.
type EmbeddingRecord struct {
	Key      string    `json:"key"`
	Checksum string    `json:"checksum"`
	Vector   []float32 `json:"vector"`
}

// VectorRepo is the persistence boundary for embedding records. Memory, flat
// file and SQLite backends are adapted through NewKVVectorRepo; the Qdrant
// backend implements it natively.
type VectorRepo interface {
	Get(ctx context.Context, key string) (*EmbeddingRecord, error)
	Put(ctx context.Context, rec *EmbeddingRecord) error
	Delete(ctx context.Context, key string) error
	All(ctx context.Context) ([]*EmbeddingRecord, error)
}

// kvVectorRepo stores embedding records as JSON values in a KV backend.
type kvVectorRepo struct {
	kv KV
}

// NewKVVectorRepo adapts a KV backend into a VectorRepo.
func NewKVVectorRepo(kv KV) VectorRepo {
	return &kvVectorRepo{kv: kv}
}

func (r *kvVectorRepo) Get(ctx context.Context, key string) (*EmbeddingRecord, error) {
	data, err := r.kv.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var rec EmbeddingRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode embedding record %q: %w", key, err)
	}
	return &rec, nil
}

func (r *kvVectorRepo) Put(ctx context.Context, rec *EmbeddingRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode embedding record %q: %w", rec.Key, err)
	}
	return r.kv.Put(ctx, rec.Key, data)
}

func (r *kvVectorRepo) Delete(ctx context.Context, key string) error {
	return r.kv.Delete(ctx, key)
}

func (r *kvVectorRepo) All(ctx context.Context) ([]*EmbeddingRecord, error) {
	keys, err := r.kv.Keys(ctx)
	if err != nil {
		return nil, err
	}
	recs := make([]*EmbeddingRecord, 0, len(keys))
	for _, key := range keys {
		rec, err := r.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// DocumentMetadata describes a stored document. It is created once per Store
// call and fully replaced, never merged, on re-store.
type DocumentMetadata struct {
	ID           string            `json:"id"`
	OriginalPath string            `json:"original_path,omitempty"`
	MimeType     string            `json:"mime_type"`
	SizeBytes    int64             `json:"size_bytes"`
	CreatedAt    time.Time         `json:"created_at"`
	IsBinary     bool              `json:"is_binary"`
	Summary      string            `json:"summary,omitempty"`
	Tags         map[string]string `json:"tags,omitempty"`
}

// SearchableText renders the metadata as plain text suitable for embedding,
// one "field: value" line per populated field. Tag keys are sorted so the
// rendering (and therefore its checksum) is deterministic.
func (m *DocumentMetadata) SearchableText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "id: %s\n", m.ID)
	if m.OriginalPath != "" {
		fmt.Fprintf(&b, "path: %s\n", m.OriginalPath)
	}
	fmt.Fprintf(&b, "type: %s\n", m.MimeType)
	fmt.Fprintf(&b, "size: %d\n", m.SizeBytes)
	fmt.Fprintf(&b, "created: %s\n", m.CreatedAt.UTC().Format(time.RFC3339))
	if m.Summary != "" {
		fmt.Fprintf(&b, "summary: %s\n", m.Summary)
	}
	tagKeys := make([]string, 0, len(m.Tags))
	for k := range m.Tags {
		tagKeys = append(tagKeys, k)
	}
	sort.Strings(tagKeys)
	for _, k := range tagKeys {
		fmt.Fprintf(&b, "%s: %s\n", k, m.Tags[k])
	}
	return b.String()
}
