// Package embedding maps text to fixed-width vectors for nearest-neighbor
// retrieval.
package embedding

import (
	"context"
	"fmt"
)

// Embedder encodes a batch of texts into vectors of one fixed dimension.
// Identical input must yield identical output within a process.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbedAll encodes texts in batches of at most batchSize and returns one
// vector per text, in input order
func EmbedAll(ctx context.Context, e Embedder, texts []string, batchSize int) ([][]float32, error) {
	if batchSize <= 0 || batchSize > len(texts) {
		batchSize = len(texts)
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := e.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(batch), end-start)
		}
		vectors = append(vectors, batch...)
	}

	return vectors, nil
}
