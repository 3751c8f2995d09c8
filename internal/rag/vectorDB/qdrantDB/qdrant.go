package qdrantDB

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/akolanti/CampusRAG/internal/config"
	"github.com/akolanti/CampusRAG/internal/domain/commonModels"
	"github.com/akolanti/CampusRAG/internal/domain/ragErrors"
	"github.com/akolanti/CampusRAG/internal/metrics"
	"github.com/akolanti/CampusRAG/internal/rag/vectorDB"
	"github.com/akolanti/CampusRAG/pkg/logger_i"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// payload keys
const (
	fieldChunkID     = "chunk_id"
	fieldSourceID    = "source_id"
	fieldChunkIndex  = "chunk_index"
	fieldTotalChunks = "total_chunks"
	fieldContent     = "content"
	fieldStart       = "start"
	fieldEnd         = "end"
	fieldTitle       = "title"
	fieldFileType    = "file_type"
	fieldOrigin      = "origin"
	fieldIngestedAt  = "ingested_at"
	fieldSeq         = "seq"
	fieldImages      = "images_json"
	fieldVersion     = "version"
	fieldPending     = "pending"
)

var logger = logger_i.NewLogger("Qdrant")
var quadrantInstance *qdrant.Client
var once sync.Once

// GetQuadrantClient connects once and closes the client when ctx is done.
// It returns nil when qdrant cannot be reached.
func GetQuadrantClient(ctx context.Context, settings config.QdrantSettings) *qdrant.Client {
	once.Do(func() {
		client, err := qdrant.NewClient(&qdrant.Config{
			Host:     settings.Host,
			Port:     settings.Port,
			APIKey:   settings.APIKey,
			UseTLS:   settings.UseTLS,
			PoolSize: uint(config.QdrantPoolSize),
		})
		if err != nil {
			logger.Error("could not instantiate", "error", err)
			return
		}

		healthCtx, cancel := context.WithTimeout(ctx, config.QdrantConnectionTimeout)
		defer cancel()
		if _, err := client.HealthCheck(healthCtx); err != nil {
			logger.Error("Qdrant is offline", "host", settings.Host, "port", settings.Port, "error", err)
			_ = client.Close()
			return
		}

		quadrantInstance = client
		go closeQdrant(ctx, client)
	})
	return quadrantInstance
}

func closeQdrant(ctx context.Context, qi *qdrant.Client) {
	<-ctx.Done()
	logger.Info("Shutting down Qdrant")
	if err := qi.Close(); err != nil {
		logger.Error("could not close Qdrant", "error", err)
	}
	logger.Info("Closed Qdrant")
}

// Index stores one point per chunk, the chunk fields live in the payload.
//
// Add writes its points as pending under a fresh version, then swaps them in with
// one batch request that deletes the older versions of the same sources. Every read
// skips pending points, so a failed or running Add is never visible.
type Index struct {
	client     *qdrant.Client
	collection string
	dimension  uint64
	scrollPage uint32

	writeMu sync.Mutex
	seq     vectorDB.Sequencer
	guard   vectorDB.CorruptionGuard
	logger  *logger_i.Logger
}

func NewIndex(ctx context.Context, client *qdrant.Client, collection string, dimension int) (*Index, error) {
	if client == nil {
		return nil, errors.New("nil qdrant client")
	}
	idx := &Index{
		client:     client,
		collection: collection,
		dimension:  uint64(dimension),
		scrollPage: config.QdrantScrollPageSize,
		logger:     logger_i.NewLogger("QdrantIndex"),
	}
	if err := idx.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return idx, nil
}

func (idx *Index) ensureCollection(ctx context.Context) error {
	if idx.collection == "" {
		return errors.New("empty collection name")
	}

	exists, err := idx.client.CollectionExists(ctx, idx.collection)
	if err != nil {
		return err
	}
	if !exists {
		err = idx.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: idx.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     idx.dimension,
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("create collection %s: %w", idx.collection, err)
		}
		idx.logger.Info("Created collection", "collection", idx.collection, "dimension", idx.dimension)
	}

	fieldIndexes := map[string]qdrant.FieldType{
		fieldSourceID:   qdrant.FieldType_FieldTypeKeyword,
		fieldChunkIndex: qdrant.FieldType_FieldTypeInteger,
		fieldSeq:        qdrant.FieldType_FieldTypeInteger,
		fieldVersion:    qdrant.FieldType_FieldTypeKeyword,
		fieldPending:    qdrant.FieldType_FieldTypeBool,
	}
	for field, fieldType := range fieldIndexes {
		_, err := idx.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: idx.collection,
			FieldName:      field,
			FieldType:      fieldType.Enum(),
			Wait:           qdrant.PtrOf(true),
		})
		if err != nil {
			idx.logger.Warn("Could not create payload index", "field", field, "error", err)
		}
	}
	return nil
}

func (idx *Index) Add(ctx context.Context, chunks []commonModels.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := vectorDB.ValidateChunks(chunks, int(idx.dimension)); err != nil {
		return err
	}
	log := logger_i.FromContext(ctx, "QdrantIndex")

	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()

	var sourceIDs []string
	seen := make(map[string]bool)
	for _, c := range chunks {
		if !seen[c.SourceID] {
			seen[c.SourceID] = true
			sourceIDs = append(sourceIDs, c.SourceID)
		}
	}

	version := uuid.NewString()
	base := idx.seq.Next(len(chunks))
	start := time.Now()
	if err := idx.upsertPending(ctx, chunks, base, version); err != nil {
		idx.discard(ctx, version)
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}
	_, err := idx.client.UpdateBatch(ctx, &qdrant.UpdateBatchPoints{
		CollectionName: idx.collection,
		Wait:           qdrant.PtrOf(true),
		Operations:     replaceOperations(sourceIDs, version),
	})
	if err != nil {
		idx.discard(ctx, version)
		return fmt.Errorf("replace sources: %w", idx.mapError(err))
	}
	metrics.CaptureExecutionMetrics("qdrant_upsert", time.Since(start))
	idx.guard.MarkWritten()

	log.Debug("Upserted chunks", "chunks", len(chunks), "sources", len(sourceIDs))
	return nil
}

func (idx *Index) upsertPending(ctx context.Context, chunks []commonModels.Chunk, base int64, version string) error {
	for from := 0; from < len(chunks); from += config.QdrantUpsertBatchSize {
		to := min(from+config.QdrantUpsertBatchSize, len(chunks))
		points := make([]*qdrant.PointStruct, 0, to-from)
		for i := from; i < to; i++ {
			point, err := toPoint(chunks[i], base+int64(i), version)
			if err != nil {
				return err
			}
			points = append(points, point)
		}

		_, err := idx.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: idx.collection,
			Points:         points,
			Wait:           qdrant.PtrOf(true),
		})
		if err != nil {
			return idx.mapError(err)
		}
	}
	return nil
}

// replaceOperations drops every other version of the sources, then publishes version.
func replaceOperations(sourceIDs []string, version string) []*qdrant.PointsUpdateOperation {
	older := &qdrant.Filter{
		Must:    []*qdrant.Condition{qdrant.NewMatchKeywords(fieldSourceID, sourceIDs...)},
		MustNot: []*qdrant.Condition{qdrant.NewMatchKeyword(fieldVersion, version)},
	}
	return []*qdrant.PointsUpdateOperation{
		qdrant.NewPointsUpdateDeletePoints(&qdrant.PointsUpdateOperation_DeletePoints{
			Points: qdrant.NewPointsSelectorFilter(older),
		}),
		qdrant.NewPointsUpdateSetPayload(&qdrant.PointsUpdateOperation_SetPayload{
			Payload:        qdrant.NewValueMap(map[string]any{fieldPending: false}),
			PointsSelector: qdrant.NewPointsSelectorFilter(versionFilter(version)),
		}),
	}
}

// discard removes the pending points of a failed Add, the previous version stays.
// It runs even when ctx is already cancelled.
func (idx *Index) discard(ctx context.Context, version string) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), config.QdrantCleanupTimeout)
	defer cancel()
	_, err := idx.client.Delete(cleanupCtx, &qdrant.DeletePoints{
		CollectionName: idx.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelectorFilter(versionFilter(version)),
	})
	if err != nil {
		idx.logger.Warn("Could not discard pending chunks, reads skip them", "version", version, "error", err)
	}
}

func toPoint(c commonModels.Chunk, seq int64, version string) (*qdrant.PointStruct, error) {
	images := "[]"
	if len(c.Images) > 0 {
		data, err := json.Marshal(c.Images)
		if err != nil {
			return nil, err
		}
		images = string(data)
	}
	return &qdrant.PointStruct{
		Id:      qdrant.NewID(c.Id),
		Vectors: qdrant.NewVectors(c.Embedding...),
		Payload: qdrant.NewValueMap(map[string]any{
			fieldChunkID:     c.Id,
			fieldSourceID:    c.SourceID,
			fieldChunkIndex:  int64(c.ChunkIndex),
			fieldTotalChunks: int64(c.TotalChunks),
			fieldContent:     c.Text,
			fieldStart:       int64(c.Start),
			fieldEnd:         int64(c.End),
			fieldTitle:       c.Title,
			fieldFileType:    string(c.FileType),
			fieldOrigin:      string(c.Origin),
			fieldIngestedAt:  c.IngestedAt.Unix(),
			fieldSeq:         seq,
			fieldImages:      images,
			fieldVersion:     version,
			fieldPending:     true,
		}),
	}, nil
}

func fromPayload(payload map[string]*qdrant.Value) commonModels.Chunk {
	c := commonModels.Chunk{
		Id:          payload[fieldChunkID].GetStringValue(),
		SourceID:    payload[fieldSourceID].GetStringValue(),
		ChunkIndex:  int(payload[fieldChunkIndex].GetIntegerValue()),
		TotalChunks: int(payload[fieldTotalChunks].GetIntegerValue()),
		Text:        payload[fieldContent].GetStringValue(),
		Start:       int(payload[fieldStart].GetIntegerValue()),
		End:         int(payload[fieldEnd].GetIntegerValue()),
		Title:       payload[fieldTitle].GetStringValue(),
		FileType:    commonModels.DocType(payload[fieldFileType].GetStringValue()),
		Origin:      commonModels.Origin(payload[fieldOrigin].GetStringValue()),
		IngestedAt:  time.Unix(payload[fieldIngestedAt].GetIntegerValue(), 0).UTC(),
		Seq:         payload[fieldSeq].GetIntegerValue(),
	}
	if raw := payload[fieldImages].GetStringValue(); raw != "" && raw != "[]" {
		if err := json.Unmarshal([]byte(raw), &c.Images); err != nil {
			logger.Warn("Bad images payload", "chunk", c.Id, "error", err)
		}
	}
	return c
}

func (idx *Index) SimilaritySearch(ctx context.Context, embedding []float32, k int) ([]commonModels.SearchResult, error) {
	if k <= 0 {
		return []commonModels.SearchResult{}, nil
	}
	if uint64(len(embedding)) != idx.dimension {
		return nil, fmt.Errorf("query embedding dimension %d, index expects %d", len(embedding), idx.dimension)
	}
	log := logger_i.FromContext(ctx, "QdrantIndex")

	start := time.Now()
	hits, err := idx.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: idx.collection,
		Query:          qdrant.NewQuery(embedding...),
		Filter:         visible(),
		Limit:          qdrant.PtrOf(uint64(k + config.QdrantTieSlack)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	metrics.CaptureExecutionMetrics("qdrant_query", time.Since(start))
	if err != nil {
		log.Error("Error querying Qdrant", "error", err)
		return nil, idx.mapError(err)
	}

	results := make([]commonModels.SearchResult, 0, len(hits))
	for _, hit := range hits {
		results = append(results, commonModels.SearchResult{
			Chunk: fromPayload(hit.GetPayload()),
			Score: vectorDB.CosineToUnit(float64(hit.GetScore())),
		})
	}
	results = vectorDB.TopK(results, k)
	log.Debug("Found matches", "count", len(results))
	return results, nil
}

// visible matches published points only, plus conds.
func visible(conds ...*qdrant.Condition) *qdrant.Filter {
	return &qdrant.Filter{
		Must:    conds,
		MustNot: []*qdrant.Condition{qdrant.NewMatchBool(fieldPending, true)},
	}
}

func versionFilter(version string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{qdrant.NewMatchKeyword(fieldVersion, version)},
	}
}

// scrollEach hands every point matching filter to fn, one page of scrollPage points per request.
func (idx *Index) scrollEach(ctx context.Context, filter *qdrant.Filter, fields []string, fn func(commonModels.Chunk)) error {
	withPayload := qdrant.NewWithPayload(true)
	if len(fields) > 0 {
		withPayload = qdrant.NewWithPayloadInclude(fields...)
	}

	var offset *qdrant.PointId
	for {
		points, next, err := idx.client.ScrollAndOffset(ctx, &qdrant.ScrollPoints{
			CollectionName: idx.collection,
			Filter:         filter,
			Offset:         offset,
			Limit:          qdrant.PtrOf(idx.scrollPage),
			WithPayload:    withPayload,
		})
		if err != nil {
			return idx.mapError(err)
		}
		for _, p := range points {
			fn(fromPayload(p.GetPayload()))
		}
		if next == nil || len(points) == 0 {
			return nil
		}
		offset = next
	}
}

func (idx *Index) count(ctx context.Context, conds ...*qdrant.Condition) (int, error) {
	n, err := idx.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: idx.collection,
		Filter:         visible(conds...),
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, idx.mapError(err)
	}
	return int(n), nil
}

func matchSource(sourceID string) *qdrant.Condition {
	return qdrant.NewMatchKeyword(fieldSourceID, sourceID)
}

// chunkRange selects the chunk indexes [offset, offset+limit).
func chunkRange(offset int, limit int) *qdrant.Condition {
	return qdrant.NewRange(fieldChunkIndex, &qdrant.Range{
		Gte: qdrant.PtrOf(float64(offset)),
		Lt:  qdrant.PtrOf(float64(offset + limit)),
	})
}

func (idx *Index) ListSources(ctx context.Context, offset int, limit int) (commonModels.SourcePage, error) {
	offset, limit = vectorDB.NormalizePage(offset, limit)
	var collector vectorDB.SourceCollector
	err := idx.scrollEach(ctx, visible(), []string{fieldSourceID, fieldTitle, fieldFileType, fieldOrigin, fieldSeq}, collector.Add)
	if err != nil {
		return commonModels.SourcePage{}, err
	}
	sources := collector.Sources()
	start, end, more := vectorDB.PageBounds(len(sources), offset, limit)
	return commonModels.SourcePage{
		Sources: append([]commonModels.Source{}, sources[start:end]...),
		Total:   len(sources),
		HasMore: more,
	}, nil
}

// GetSourceChunks reads one page by chunk index. The pipeline writes whole documents,
// so the chunk indexes of a source run from 0 to total-1.
func (idx *Index) GetSourceChunks(ctx context.Context, sourceID string, offset int, limit int) (commonModels.ChunkPage, error) {
	offset, limit = vectorDB.NormalizePage(offset, limit)
	total, err := idx.count(ctx, matchSource(sourceID))
	if err != nil {
		return commonModels.ChunkPage{}, err
	}
	page := commonModels.ChunkPage{Chunks: []commonModels.Chunk{}, Total: total}
	if offset >= total {
		return page, nil
	}

	err = idx.scrollEach(ctx, visible(matchSource(sourceID), chunkRange(offset, limit)), nil, func(c commonModels.Chunk) {
		page.Chunks = append(page.Chunks, c)
	})
	if err != nil {
		return commonModels.ChunkPage{}, err
	}
	vectorDB.SortChunks(page.Chunks)
	page.HasMore = offset+len(page.Chunks) < total
	return page, nil
}

func (idx *Index) SourceExists(ctx context.Context, sourceID string) (bool, error) {
	n, err := idx.count(ctx, matchSource(sourceID))
	return n > 0, err
}

func (idx *Index) DeleteSource(ctx context.Context, sourceID string) (int, error) {
	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()

	n, err := idx.count(ctx, matchSource(sourceID))
	if err != nil || n == 0 {
		return 0, err
	}
	_, err = idx.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: idx.collection,
		Wait:           qdrant.PtrOf(true),
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{matchSource(sourceID)},
		}),
	})
	if err != nil {
		return 0, idx.mapError(err)
	}
	idx.guard.MarkDeleted()
	return n, nil
}

func (idx *Index) Stats(ctx context.Context) (commonModels.Stats, error) {
	total, err := idx.count(ctx)
	if err != nil {
		return commonModels.Stats{Status: commonModels.StatusCorrupted, Collection: idx.collection}, err
	}
	if err := idx.guard.Observe(total); err != nil {
		idx.logger.Error("Index reports no chunks after holding data", "collection", idx.collection)
		return commonModels.Stats{Status: commonModels.StatusCorrupted, Collection: idx.collection}, err
	}

	sources := 0
	if total > 0 {
		if sources, err = idx.sourceCount(ctx, total); err != nil {
			return commonModels.Stats{}, err
		}
	}
	return commonModels.Stats{
		DocumentCount: total,
		SourceCount:   sources,
		Status:        vectorDB.StatusFor(total),
		Collection:    idx.collection,
	}, nil
}

// sourceCount asks the source_id keyword index for its distinct values. Without the
// index the facet fails and the points are scrolled instead.
func (idx *Index) sourceCount(ctx context.Context, total int) (int, error) {
	hits, err := idx.client.Facet(ctx, &qdrant.FacetCounts{
		CollectionName: idx.collection,
		Key:            fieldSourceID,
		Filter:         visible(),
		Limit:          qdrant.PtrOf(uint64(total)),
		Exact:          qdrant.PtrOf(true),
	})
	if err == nil {
		return len(hits), nil
	}
	idx.logger.Warn("Facet on source ids failed, scrolling", "error", err)

	var collector vectorDB.SourceCollector
	if err := idx.scrollEach(ctx, visible(), []string{fieldSourceID, fieldSeq}, collector.Add); err != nil {
		return 0, err
	}
	return collector.Len(), nil
}

func (idx *Index) Reset(ctx context.Context) error {
	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()

	if err := idx.client.DeleteCollection(ctx, idx.collection); err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("drop collection %s: %w", idx.collection, err)
	}
	idx.guard.MarkDeleted()
	idx.logger.Warn("Collection dropped, recreating", "collection", idx.collection)
	return idx.ensureCollection(ctx)
}

// a collection that vanished under a handle that saw data is corruption, not an empty index
func (idx *Index) mapError(err error) error {
	if status.Code(err) == codes.NotFound && idx.guard.Seen() {
		return fmt.Errorf("%w: %v", ragErrors.ErrIndexCorruption, err)
	}
	return err
}
