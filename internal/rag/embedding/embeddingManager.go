package embedding

import "context"

// Embedder turns text into vectors of one fixed dimension.
// GetEmbedding is for queries, BatchEmbedding for document chunks; the result keeps the input
// order and a nil vector marks a chunk the provider could not embed.
type Embedder interface {
	GetEmbedding(ctx context.Context, query string) ([]float32, error)
	BatchEmbedding(ctx context.Context, chunks []string, isHugeDataSet bool) ([][]float32, error)
}
