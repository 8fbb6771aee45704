// Package embedding adapts the OpenAI embeddings API to the store.Generator
// contract. Retry policy for rate limits lives here, on the provider side;
// the stores themselves never retry.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"

	"github.com/docgrep/docgrep/internal/store"
)

const (
	// Model is the OpenAI embedding model.
	Model = "text-embedding-3-small"

	// Dimension is the vector dimension produced by Model.
	Dimension = 1536
)

var _ store.Generator = (*Generator)(nil)

// Generator generates embeddings using OpenAI, retrying rate-limited calls
// with exponential backoff. Other provider errors fail immediately.
type Generator struct {
	client *Client
	model  string
}

// NewGenerator creates a Generator with the given client. An empty model
// falls back to Model.
func NewGenerator(client *Client, model string) *Generator {
	if model == "" {
		model = Model
	}
	return &Generator{client: client, model: model}
}

// Generate returns the embedding vector for text.
func (g *Generator) Generate(ctx context.Context, text string) ([]float32, error) {
	var vector []float32

	operation := func() error {
		resp, err := g.client.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{
				OfArrayOfStrings: []string{text},
			},
			Model: g.model,
		})
		if err != nil {
			if isRateLimitError(err) {
				return err // retried with backoff
			}
			return backoff.Permanent(err)
		}
		if len(resp.Data) == 0 {
			return backoff.Permanent(fmt.Errorf("provider returned no embedding"))
		}
		vector = toFloat32(resp.Data[0].Embedding)
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return vector, nil
}

// isRateLimitError checks for HTTP 429 from the provider.
func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

// toFloat32 narrows the provider's float64 vector for storage.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
