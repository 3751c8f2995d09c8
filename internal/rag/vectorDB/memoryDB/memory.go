package memoryDB

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/akolanti/CampusRAG/internal/config"
	"github.com/akolanti/CampusRAG/internal/domain/commonModels"
	"github.com/akolanti/CampusRAG/internal/rag/vectorDB"
	"github.com/akolanti/CampusRAG/pkg/logger_i"
)

// Index keeps every chunk in process memory. It backs the tests and replaces qdrant
// when it is offline; nothing survives a restart.
type Index struct {
	mu        sync.RWMutex
	chunks    []commonModels.Chunk
	dimension int
	seq       vectorDB.Sequencer
	logger    *logger_i.Logger
}

// New returns an empty index. A dimension of 0 is fixed by the first Add.
func New(dimension int) *Index {
	return &Index{dimension: dimension, logger: logger_i.NewLogger("MemoryIndex")}
}

func (idx *Index) Add(ctx context.Context, chunks []commonModels.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := vectorDB.ValidateChunks(chunks, idx.dimension); err != nil {
		return err
	}
	if idx.dimension == 0 {
		idx.dimension = len(chunks[0].Embedding)
	}

	replaced := make(map[string]bool)
	for _, c := range chunks {
		replaced[c.SourceID] = true
	}
	kept := idx.chunks[:0]
	for _, c := range idx.chunks {
		if !replaced[c.SourceID] {
			kept = append(kept, c)
		}
	}
	idx.chunks = kept

	base := idx.seq.Next(len(chunks))
	for i, c := range chunks {
		c.Seq = base + int64(i)
		c.Embedding = append([]float32(nil), c.Embedding...)
		idx.chunks = append(idx.chunks, c)
	}
	logger_i.FromContext(ctx, "MemoryIndex").Debug("Added chunks", "chunks", len(chunks), "sources", len(replaced))
	return nil
}

func (idx *Index) SimilaritySearch(ctx context.Context, embedding []float32, k int) ([]commonModels.SearchResult, error) {
	if k <= 0 {
		return []commonModels.SearchResult{}, nil
	}
	if len(embedding) == 0 {
		return nil, errors.New("empty query embedding")
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.dimension != 0 && len(embedding) != idx.dimension {
		return nil, fmt.Errorf("query embedding dimension %d, index expects %d", len(embedding), idx.dimension)
	}

	results := make([]commonModels.SearchResult, 0, len(idx.chunks))
	for _, c := range idx.chunks {
		results = append(results, commonModels.SearchResult{
			Chunk: c,
			Score: vectorDB.CosineToUnit(vectorDB.Cosine(embedding, c.Embedding)),
		})
	}
	vectorDB.SortResults(results)
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (idx *Index) ListSources(ctx context.Context, offset int, limit int) (commonModels.SourcePage, error) {
	offset, limit = vectorDB.NormalizePage(offset, limit)

	idx.mu.RLock()
	sources := vectorDB.CollectSources(idx.chunks)
	idx.mu.RUnlock()

	start, end, more := vectorDB.PageBounds(len(sources), offset, limit)
	return commonModels.SourcePage{
		Sources: append([]commonModels.Source{}, sources[start:end]...),
		Total:   len(sources),
		HasMore: more,
	}, nil
}

func (idx *Index) GetSourceChunks(ctx context.Context, sourceID string, offset int, limit int) (commonModels.ChunkPage, error) {
	offset, limit = vectorDB.NormalizePage(offset, limit)

	idx.mu.RLock()
	var chunks []commonModels.Chunk
	for _, c := range idx.chunks {
		if c.SourceID == sourceID {
			chunks = append(chunks, c)
		}
	}
	idx.mu.RUnlock()

	vectorDB.SortChunks(chunks)
	start, end, more := vectorDB.PageBounds(len(chunks), offset, limit)
	return commonModels.ChunkPage{
		Chunks:  append([]commonModels.Chunk{}, chunks[start:end]...),
		Total:   len(chunks),
		HasMore: more,
	}, nil
}

func (idx *Index) SourceExists(ctx context.Context, sourceID string) (bool, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	for _, c := range idx.chunks {
		if c.SourceID == sourceID {
			return true, nil
		}
	}
	return false, nil
}

func (idx *Index) DeleteSource(ctx context.Context, sourceID string) (int, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	kept := idx.chunks[:0]
	removed := 0
	for _, c := range idx.chunks {
		if c.SourceID == sourceID {
			removed++
			continue
		}
		kept = append(kept, c)
	}
	idx.chunks = kept
	return removed, nil
}

func (idx *Index) Stats(ctx context.Context) (commonModels.Stats, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return commonModels.Stats{
		DocumentCount: len(idx.chunks),
		SourceCount:   len(vectorDB.CollectSources(idx.chunks)),
		Status:        vectorDB.StatusFor(len(idx.chunks)),
		Collection:    config.CollectionName + " (memory)",
	}, nil
}

func (idx *Index) Reset(ctx context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.chunks = nil
	idx.logger.Info("Memory index reset")
	return nil
}
