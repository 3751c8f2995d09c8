package qdrantDB

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/akolanti/CampusRAG/internal/config"
	"github.com/akolanti/CampusRAG/internal/domain/commonModels"
	"github.com/akolanti/CampusRAG/internal/domain/ragErrors"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDimension = 4

// newTestIndex opens a throwaway collection on the qdrant at QDRANT_HOST.
func newTestIndex(t *testing.T) (*Index, *qdrant.Client) {
	t.Helper()
	host := os.Getenv("QDRANT_HOST")
	if host == "" {
		t.Skip("QDRANT_HOST not set")
	}
	port := config.QdrantGrpcPort
	if p, err := strconv.Atoi(os.Getenv("QDRANT_PORT")); err == nil {
		port = p
	}

	client, err := qdrant.NewClient(&qdrant.Config{Host: host, Port: port})
	require.NoError(t, err)
	collection := "campusrag_test_" + uuid.NewString()[:8]
	t.Cleanup(func() {
		_ = client.DeleteCollection(context.Background(), collection)
		_ = client.Close()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	idx, err := NewIndex(ctx, client, collection, testDimension)
	require.NoError(t, err)
	return idx, client
}

func makeChunks(sourceID string, n int, vector []float32) []commonModels.Chunk {
	chunks := make([]commonModels.Chunk, n)
	for i := range chunks {
		chunks[i] = commonModels.Chunk{
			Id:          uuid.NewString(),
			SourceID:    sourceID,
			ChunkIndex:  i,
			TotalChunks: n,
			Text:        fmt.Sprintf("%s part %d", sourceID, i),
			Embedding:   vector,
			Title:       sourceID,
			FileType:    commonModels.HTML,
			Origin:      commonModels.OriginCrawl,
			IngestedAt:  time.Now(),
		}
	}
	return chunks
}

func TestQdrantIndex_AddStatsAndPages(t *testing.T) {
	idx, _ := newTestIndex(t)
	ctx := context.Background()
	// several scroll pages per read
	idx.scrollPage = 7

	for i := 0; i < 12; i++ {
		require.NoError(t, idx.Add(ctx, makeChunks(fmt.Sprintf("https://www.esilv.fr/p%02d", i), 5, []float32{1, 0, 0, 0})))
	}

	stats, err := idx.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 60, stats.DocumentCount)
	assert.Equal(t, 12, stats.SourceCount)
	assert.Equal(t, commonModels.StatusActive, stats.Status)

	page, err := idx.ListSources(ctx, 10, 5)
	require.NoError(t, err)
	assert.Equal(t, 12, page.Total)
	require.Len(t, page.Sources, 2)
	assert.Equal(t, "https://www.esilv.fr/p10", page.Sources[0].SourceID)
	assert.Equal(t, 5, page.Sources[0].ChunkCount)
	assert.False(t, page.HasMore)

	chunks, err := idx.GetSourceChunks(ctx, "https://www.esilv.fr/p03", 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, chunks.Total)
	require.Len(t, chunks.Chunks, 2)
	assert.Equal(t, 2, chunks.Chunks[0].ChunkIndex)
	assert.Equal(t, 3, chunks.Chunks[1].ChunkIndex)
	assert.True(t, chunks.HasMore)
}

func TestQdrantIndex_ReplaceSource(t *testing.T) {
	idx, _ := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, makeChunks("page", 5, []float32{1, 0, 0, 0})))
	require.NoError(t, idx.Add(ctx, makeChunks("other", 1, []float32{0, 1, 0, 0})))
	require.NoError(t, idx.Add(ctx, makeChunks("page", 2, []float32{0, 0, 1, 0})))

	chunks, err := idx.GetSourceChunks(ctx, "page", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, chunks.Total)
	require.Len(t, chunks.Chunks, 2)
	for i, c := range chunks.Chunks {
		assert.Equal(t, i, c.ChunkIndex)
		assert.Equal(t, 2, c.TotalChunks)
	}

	stats, err := idx.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.DocumentCount)
	assert.Equal(t, 2, stats.SourceCount)
}

func TestQdrantIndex_FailedAddKeepsPreviousVersion(t *testing.T) {
	idx, _ := newTestIndex(t)
	ctx := context.Background()
	require.NoError(t, idx.Add(ctx, makeChunks("page", 3, []float32{1, 0, 0, 0})))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	require.Error(t, idx.Add(cancelled, makeChunks("page", 1, []float32{0, 1, 0, 0})))

	chunks, err := idx.GetSourceChunks(ctx, "page", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, chunks.Total)

	results, err := idx.SimilaritySearch(ctx, []float32{0, 1, 0, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestQdrantIndex_SearchTiesFollowInsertion(t *testing.T) {
	idx, _ := newTestIndex(t)
	ctx := context.Background()
	for i := 0; i < 6; i++ {
		require.NoError(t, idx.Add(ctx, makeChunks(fmt.Sprintf("s%d", i), 1, []float32{1, 1, 0, 0})))
	}

	results, err := idx.SimilaritySearch(ctx, []float32{1, 1, 0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, []string{"s0", "s1", "s2"}, []string{results[0].Chunk.SourceID, results[1].Chunk.SourceID, results[2].Chunk.SourceID})
}

func TestQdrantIndex_DeleteAndReset(t *testing.T) {
	idx, _ := newTestIndex(t)
	ctx := context.Background()
	require.NoError(t, idx.Add(ctx, makeChunks("a", 2, []float32{1, 0, 0, 0})))
	require.NoError(t, idx.Add(ctx, makeChunks("b", 1, []float32{1, 0, 0, 0})))

	removed, err := idx.DeleteSource(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	exists, err := idx.SourceExists(ctx, "a")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, idx.Reset(ctx))
	stats, err := idx.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.DocumentCount)
	assert.Equal(t, commonModels.StatusEmpty, stats.Status)

	require.NoError(t, idx.Add(ctx, makeChunks("c", 1, []float32{1, 0, 0, 0})))
	stats, err = idx.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DocumentCount)
}

func TestQdrantIndex_CollectionDroppedBehindHandle(t *testing.T) {
	idx, client := newTestIndex(t)
	ctx := context.Background()
	require.NoError(t, idx.Add(ctx, makeChunks("a", 2, []float32{1, 0, 0, 0})))
	_, err := idx.Stats(ctx)
	require.NoError(t, err)

	require.NoError(t, client.DeleteCollection(ctx, idx.collection))

	stats, err := idx.Stats(ctx)
	assert.ErrorIs(t, err, ragErrors.ErrIndexCorruption)
	assert.Equal(t, commonModels.StatusCorrupted, stats.Status)
}
