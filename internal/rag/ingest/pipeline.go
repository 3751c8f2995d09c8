package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akolanti/CampusRAG/internal/config"
	"github.com/akolanti/CampusRAG/internal/domain/commonModels"
	"github.com/akolanti/CampusRAG/internal/domain/ragErrors"
	"github.com/akolanti/CampusRAG/internal/metrics"
	"github.com/akolanti/CampusRAG/internal/rag/embedding"
	"github.com/akolanti/CampusRAG/internal/rag/vectorDB"
	"github.com/akolanti/CampusRAG/pkg/logger_i"
)

const (
	StageExtract = "extract"
	StageChunk   = "chunk"
	StageEmbed   = "embed"
	StageIndex   = "index"
)

// Pipeline chunks, embeds and indexes documents one at a time.
type Pipeline struct {
	chunker  *Chunker
	embedder embedding.Embedder
	index    vectorDB.Index
}

func NewPipeline(chunker *Chunker, embedder embedding.Embedder, index vectorDB.Index) *Pipeline {
	if chunker == nil {
		chunker = NewChunker()
	}
	return &Pipeline{chunker: chunker, embedder: embedder, index: index}
}

// IngestDocuments indexes every document it can. A document that fails is listed in the
// report and the next one is processed. The error is only set when continuing makes no
// sense: cancelled context or a corrupted index.
func (p *Pipeline) IngestDocuments(ctx context.Context, docs []commonModels.Document) (commonModels.IngestReport, error) {
	log := logger_i.FromContext(ctx, "Pipeline")
	var report commonModels.IngestReport

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		chunks, stage, err := p.ingestOne(ctx, doc)
		if err != nil {
			metrics.CountIngestFailure(stage)
			report.Failures = append(report.Failures, commonModels.ItemFailure{
				Item:    doc.SourceID,
				Stage:   stage,
				Message: err.Error(),
			})
			log.Warn("Document not indexed", "source", doc.SourceID, "stage", stage, "error", err)
			if ragErrors.IsIndexCorruption(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return report, err
			}
			continue
		}

		report.PagesIndexed++
		report.ChunksIndexed += chunks
		metrics.CountChunksIndexed(string(doc.Origin), chunks)
	}

	log.Info("Ingestion finished", "documents", len(docs), "indexed", report.PagesIndexed, "chunks", report.ChunksIndexed, "failures", len(report.Failures))
	return report, nil
}

func (p *Pipeline) ingestOne(ctx context.Context, doc commonModels.Document) (int, string, error) {
	chunks := p.chunker.Process(doc)
	if len(chunks) == 0 {
		return 0, StageChunk, errors.New("document has no text")
	}

	if err := p.embedChunks(ctx, chunks); err != nil {
		return 0, StageEmbed, err
	}

	start := time.Now()
	err := p.index.Add(ctx, chunks)
	metrics.CaptureExecutionMetrics("index_add", time.Since(start))
	if err != nil {
		return 0, StageIndex, err
	}
	return len(chunks), "", nil
}

func (p *Pipeline) embedChunks(ctx context.Context, chunks []commonModels.Chunk) error {
	isHugeDataSet := len(chunks) > config.HugeDataSetChunks

	for from := 0; from < len(chunks); from += config.EmbeddingBatchSize {
		to := min(from+config.EmbeddingBatchSize, len(chunks))
		batch := chunks[from:to]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		vectors, err := p.embedder.BatchEmbedding(ctx, texts, isHugeDataSet)
		if err != nil {
			return &ragErrors.EmbeddingError{SourceID: batch[0].SourceID, ChunkIndex: batch[0].ChunkIndex, Err: err}
		}
		if len(vectors) != len(batch) {
			return &ragErrors.EmbeddingError{
				SourceID:   batch[0].SourceID,
				ChunkIndex: batch[0].ChunkIndex,
				Err:        fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(batch)),
			}
		}
		for i := range batch {
			if len(vectors[i]) == 0 {
				return &ragErrors.EmbeddingError{SourceID: batch[i].SourceID, ChunkIndex: batch[i].ChunkIndex, Err: errors.New("provider returned no vector")}
			}
			batch[i].Embedding = vectors[i]
		}
	}
	return nil
}

// IngestFile extracts an uploaded file and indexes it under its original name.
func (p *Pipeline) IngestFile(ctx context.Context, path string, name string) (commonModels.IngestReport, error) {
	doc, err := ExtractFile(ctx, path, name)
	if err != nil {
		metrics.CountIngestFailure(StageExtract)
		return commonModels.IngestReport{
			Failures: []commonModels.ItemFailure{{Item: name, Stage: StageExtract, Message: err.Error()}},
		}, err
	}
	return p.IngestDocuments(ctx, []commonModels.Document{doc})
}

// IngestText indexes raw text, used for pasted content.
func (p *Pipeline) IngestText(ctx context.Context, sourceID string, title string, text string) (commonModels.IngestReport, error) {
	if title == "" {
		title = sourceID
	}
	return p.IngestDocuments(ctx, []commonModels.Document{{
		SourceID: sourceID,
		Title:    title,
		Text:     text,
		Origin:   commonModels.OriginUpload,
		FileType: commonModels.TXT,
	}})
}
