// Package qdrant provides a Qdrant-backed embedding record repository.
// Records live in one collection: the chunk key and text checksum travel in
// the point payload, the embedding as the point vector. Point ids are
// UUIDv5 values derived from the chunk key, so writes stay idempotent.
package qdrant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/docgrep/docgrep/internal/store"
)

var _ store.VectorRepo = (*Repo)(nil)

// DefaultCollection is the collection name used when none is configured.
const DefaultCollection = "embeddings"

var errVectorNotFound = errors.New("point not found")

// Repo implements store.VectorRepo over a Qdrant collection.
type Repo struct {
	client     *qdrant.Client
	collection string
}

// New connects to Qdrant and verifies health with exponential backoff,
// failing fast when the server stays unreachable.
func New(host string, port int, collection string) (*Repo, error) {
	if collection == "" {
		collection = DefaultCollection
	}
	client, err := qdrant.NewClient(&qdrant.Config{Host: host, Port: port})
	if err != nil {
		return nil, fmt.Errorf("creating qdrant client: %w", err)
	}

	r := &Repo{client: client, collection: collection}
	if err := r.healthCheckWithRetry(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", store.ErrBackendUnreachable, err)
	}
	return r, nil
}

// Close closes the client connection.
func (r *Repo) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

func (r *Repo) healthCheckWithRetry(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		return r.Health(ctx)
	}, backoff.WithContext(b, ctx))
}

// Health performs a single health check against Qdrant.
func (r *Repo) Health(ctx context.Context) error {
	result, err := r.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// pointID derives the stable UUIDv5 point id for a chunk key.
func pointID(key string) *qdrant.PointId {
	u := uuid.NewSHA1(uuid.NameSpaceURL, []byte("docgrep://"+key))
	return qdrant.NewIDUUID(u.String())
}

// ensureCollection creates the collection on first use, sized to the first
// vector seen. Dimension enforcement happens in the embedding store; Qdrant
// additionally rejects mismatched vectors at upsert.
func (r *Repo) ensureCollection(ctx context.Context, dim int) error {
	collections, err := r.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("listing collections: %w", err)
	}
	for _, name := range collections {
		if name == r.collection {
			return nil
		}
	}
	err = r.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: r.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection %q: %w", r.collection, err)
	}
	return nil
}

// Put stores rec, overwriting any record for the same key.
func (r *Repo) Put(ctx context.Context, rec *store.EmbeddingRecord) error {
	if err := r.ensureCollection(ctx, len(rec.Vector)); err != nil {
		return err
	}

	point := &qdrant.PointStruct{
		Id:      pointID(rec.Key),
		Vectors: qdrant.NewVectors(rec.Vector...),
		Payload: qdrant.NewValueMap(map[string]any{
			"key":      rec.Key,
			"checksum": rec.Checksum,
		}),
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		_, err := r.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: r.collection,
			Points:         []*qdrant.PointStruct{point},
		})
		return err
	}, backoff.WithContext(b, ctx))
}

// Get returns the record for key, or store.ErrNotFound.
func (r *Repo) Get(ctx context.Context, key string) (*store.EmbeddingRecord, error) {
	points, err := r.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: r.collection,
		Ids:            []*qdrant.PointId{pointID(key)},
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		// A missing collection means nothing was ever stored.
		return nil, fmt.Errorf("%q: %w", key, store.ErrNotFound)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%q: %w", key, store.ErrNotFound)
	}
	rec, err := recordFromPoint(points[0].Payload, points[0].Vectors)
	if err != nil {
		return nil, fmt.Errorf("point for %q: %w", key, err)
	}
	return rec, nil
}

// Delete removes the record for key. Returns store.ErrNotFound when absent.
func (r *Repo) Delete(ctx context.Context, key string) error {
	if _, err := r.Get(ctx, key); err != nil {
		return err
	}
	_, err := r.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: r.collection,
		Points:         qdrant.NewPointsSelector(pointID(key)),
	})
	if err != nil {
		return fmt.Errorf("deleting %q: %w", key, err)
	}
	return nil
}

// All scrolls the whole collection and returns every stored record.
func (r *Repo) All(ctx context.Context) ([]*store.EmbeddingRecord, error) {
	collections, err := r.client.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	exists := false
	for _, name := range collections {
		if name == r.collection {
			exists = true
			break
		}
	}
	if !exists {
		return nil, nil
	}

	var records []*store.EmbeddingRecord
	var offset *qdrant.PointId
	batchSize := uint32(256)

	for {
		points, err := r.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: r.collection,
			Limit:          qdrant.PtrOf(batchSize),
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayload(true),
			WithVectors:    qdrant.NewWithVectors(true),
		})
		if err != nil {
			return nil, fmt.Errorf("scrolling collection: %w", err)
		}
		for _, point := range points {
			// The scroll offset is inclusive: the boundary point of the
			// previous page comes back first and must not be re-appended.
			if offset != nil && point.Id.GetUuid() == offset.GetUuid() {
				continue
			}
			rec, err := recordFromPoint(point.Payload, point.Vectors)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
		}
		if uint32(len(points)) < batchSize {
			break
		}
		offset = points[len(points)-1].Id
	}
	return records, nil
}

func recordFromPoint(payload map[string]*qdrant.Value, vectors *qdrant.VectorsOutput) (*store.EmbeddingRecord, error) {
	key := payload["key"].GetStringValue()
	if key == "" {
		return nil, fmt.Errorf("point payload missing chunk key")
	}
	vec := vectors.GetVector()
	if vec == nil {
		return nil, fmt.Errorf("%w for %q", errVectorNotFound, key)
	}
	return &store.EmbeddingRecord{
		Key:      key,
		Checksum: payload["checksum"].GetStringValue(),
		Vector:   vec.Data,
	}, nil
}
