package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/akolanti/CampusRAG/internal/domain/commonModels"
	"github.com/akolanti/CampusRAG/internal/domain/ragErrors"
	"github.com/akolanti/CampusRAG/internal/rag/vectorDB/memoryDB"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockEmbedder struct {
	OnBatchEmbedding func(ctx context.Context, chunks []string, isHuge bool) ([][]float32, error)
	calls            atomic.Int32
}

func (m *mockEmbedder) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (m *mockEmbedder) BatchEmbedding(ctx context.Context, chunks []string, isHuge bool) ([][]float32, error) {
	m.calls.Add(1)
	if m.OnBatchEmbedding != nil {
		return m.OnBatchEmbedding(ctx, chunks, isHuge)
	}
	vectors := make([][]float32, len(chunks))
	for i := range vectors {
		vectors[i] = []float32{1, float32(i)}
	}
	return vectors, nil
}

func doc(id string, text string) commonModels.Document {
	return commonModels.Document{SourceID: id, Title: id, Text: text, Origin: commonModels.OriginCrawl, FileType: commonModels.HTML}
}

func TestIngestDocuments_IndexesAll(t *testing.T) {
	ctx := context.Background()
	index := memoryDB.New(2)
	p := NewPipeline(NewChunker(WithChunkSize(20), WithOverlap(5)), &mockEmbedder{}, index)

	report, err := p.IngestDocuments(ctx, []commonModels.Document{
		doc("https://x/a", "Admissions are open for the engineering cycle this year."),
		doc("https://x/b", "Short page"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, report.PagesIndexed)
	assert.Empty(t, report.Failures)

	stats, err := index.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, report.ChunksIndexed, stats.DocumentCount)
	assert.Equal(t, 2, stats.SourceCount)
}

func TestIngestDocuments_EmbeddingFailureSkipsOnlyThatDocument(t *testing.T) {
	ctx := context.Background()
	index := memoryDB.New(2)
	emb := &mockEmbedder{OnBatchEmbedding: func(ctx context.Context, chunks []string, _ bool) ([][]float32, error) {
		if strings.Contains(strings.Join(chunks, " "), "broken") {
			return nil, errors.New("provider rejected input")
		}
		vectors := make([][]float32, len(chunks))
		for i := range vectors {
			vectors[i] = []float32{0, 1}
		}
		return vectors, nil
	}}
	p := NewPipeline(nil, emb, index)

	report, err := p.IngestDocuments(ctx, []commonModels.Document{
		doc("bad", "this page is broken"),
		doc("good", "this page is fine"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.PagesIndexed)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "bad", report.Failures[0].Item)
	assert.Equal(t, StageEmbed, report.Failures[0].Stage)

	exists, err := index.SourceExists(ctx, "bad")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestIngestDocuments_MissingVectorIsEmbeddingError(t *testing.T) {
	emb := &mockEmbedder{OnBatchEmbedding: func(ctx context.Context, chunks []string, _ bool) ([][]float32, error) {
		return make([][]float32, len(chunks)), nil
	}}
	p := NewPipeline(nil, emb, memoryDB.New(2))

	chunks := p.chunker.Process(doc("s", "some text"))
	err := p.embedChunks(context.Background(), chunks)

	var embErr *ragErrors.EmbeddingError
	require.True(t, errors.As(err, &embErr))
	assert.Equal(t, "s", embErr.SourceID)
}

func TestIngestDocuments_EmbedsInBatches(t *testing.T) {
	emb := &mockEmbedder{}
	p := NewPipeline(NewChunker(WithChunkSize(1), WithOverlap(0), WithUnit(Tokens)), emb, memoryDB.New(2))

	words := make([]string, 250)
	for i := range words {
		words[i] = "w"
	}
	report, err := p.IngestDocuments(context.Background(), []commonModels.Document{doc("big", strings.Join(words, " "))})
	require.NoError(t, err)
	assert.Equal(t, 250, report.ChunksIndexed)
	assert.Equal(t, int32(3), emb.calls.Load())
}

func TestIngestDocuments_ReingestReplacesChunks(t *testing.T) {
	ctx := context.Background()
	index := memoryDB.New(2)
	p := NewPipeline(NewChunker(WithChunkSize(2), WithOverlap(0), WithUnit(Tokens)), &mockEmbedder{}, index)

	_, err := p.IngestDocuments(ctx, []commonModels.Document{doc("page", "a b c d e f")})
	require.NoError(t, err)
	_, err = p.IngestDocuments(ctx, []commonModels.Document{doc("page", "a b")})
	require.NoError(t, err)

	page, err := index.GetSourceChunks(ctx, "page", 0, 10)
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, "a b", page.Chunks[0].Text)
}

func TestIngestDocuments_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := NewPipeline(nil, &mockEmbedder{}, memoryDB.New(2))

	_, err := p.IngestDocuments(ctx, []commonModels.Document{doc("a", "text")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIngestFile(t *testing.T) {
	ctx := context.Background()
	index := memoryDB.New(2)
	p := NewPipeline(nil, &mockEmbedder{}, index)
	dir := t.TempDir()

	path := filepath.Join(dir, "upload-123")
	require.NoError(t, os.WriteFile(path, []byte("Le programme grande école dure cinq ans."), 0o600))

	_, err := p.IngestFile(ctx, path, "brochure.png")
	assert.ErrorIs(t, err, ragErrors.ErrUnsupportedFile)

	txtPath := filepath.Join(dir, "brochure.txt")
	require.NoError(t, os.Rename(path, txtPath))
	report, err := p.IngestFile(ctx, txtPath, "brochure.txt")
	require.NoError(t, err)
	assert.Equal(t, 1, report.PagesIndexed)

	sources, err := index.ListSources(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, sources.Sources, 1)
	assert.Equal(t, "brochure.txt", sources.Sources[0].SourceID)
	assert.Equal(t, "brochure", sources.Sources[0].Title)
	assert.Equal(t, commonModels.OriginUpload, sources.Sources[0].Origin)
}

func TestGetDocType(t *testing.T) {
	tests := []struct {
		path     string
		expected commonModels.DocType
	}{
		{"test.pdf", commonModels.PDF},
		{"DOC.DOCX", commonModels.DOCX},
		{"notes.txt", commonModels.TXT},
		{"readme.md", commonModels.TXT},
		{"image.png", commonModels.ERR},
	}

	for _, tt := range tests {
		if got := getDocType(tt.path); got != tt.expected {
			t.Errorf("getDocType(%s) = %v; want %v", tt.path, got, tt.expected)
		}
	}
}
