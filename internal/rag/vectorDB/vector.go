package vectorDB

import (
	"context"

	"github.com/akolanti/CampusRAG/internal/domain/commonModels"
)

// Index is the single live chunk store. One handle is created at startup and shared.
//
// Add replaces every chunk of the sources it receives (upsert by source), inside one
// writer section, and the result is visible to the next read.
type Index interface {
	Add(ctx context.Context, chunks []commonModels.Chunk) error
	SimilaritySearch(ctx context.Context, embedding []float32, k int) ([]commonModels.SearchResult, error)
	ListSources(ctx context.Context, offset int, limit int) (commonModels.SourcePage, error)
	GetSourceChunks(ctx context.Context, sourceID string, offset int, limit int) (commonModels.ChunkPage, error)
	SourceExists(ctx context.Context, sourceID string) (bool, error)
	DeleteSource(ctx context.Context, sourceID string) (int, error)
	Stats(ctx context.Context) (commonModels.Stats, error)
	// Reset drops and recreates the collection, everything must be ingested again.
	Reset(ctx context.Context) error
}
