package cachedEmbedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/akolanti/CampusRAG/internal/config"
	"github.com/akolanti/CampusRAG/internal/data/redisStore"
	"github.com/akolanti/CampusRAG/internal/rag/embedding"
	"github.com/akolanti/CampusRAG/pkg/logger_i"
)

// cached keeps query embeddings in redis. Document batches are never cached,
// a chunk is embedded once per ingestion anyway.
type cached struct {
	next   embedding.Embedder
	store  *redisStore.Store
	model  string
	logger *logger_i.Logger
}

// New wraps next. A nil store (redis offline) returns next unchanged.
func New(next embedding.Embedder, store *redisStore.Store, model string) embedding.Embedder {
	if store == nil {
		return next
	}
	return &cached{next: next, store: store, model: model, logger: logger_i.NewLogger("embedding_cache")}
}

func (c *cached) key(query string) string {
	sum := sha256.Sum256([]byte(c.model + "\x00" + query))
	return "emb:" + hex.EncodeToString(sum[:])
}

func (c *cached) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	log := logger_i.FromContext(ctx, "embedding_cache")
	key := c.key(query)

	val, err := c.store.Get(ctx, key)
	if err == nil {
		var vector []float32
		if jsonErr := json.Unmarshal([]byte(val), &vector); jsonErr == nil && len(vector) > 0 {
			log.Debug("Embedding cache hit")
			return vector, nil
		}
	} else if !c.store.IsNil(err) {
		log.Warn("Embedding cache read failed", "error", err)
	}

	vector, err := c.next.GetEmbedding(ctx, query)
	if err != nil {
		return nil, err
	}
	if data, jsonErr := json.Marshal(vector); jsonErr == nil {
		if setErr := c.store.Set(ctx, key, data, config.RedisEmbeddingCacheTTL); setErr != nil {
			log.Warn("Embedding cache write failed", "error", setErr)
		}
	}
	return vector, nil
}

func (c *cached) BatchEmbedding(ctx context.Context, chunks []string, isHugeDataSet bool) ([][]float32, error) {
	return c.next.BatchEmbedding(ctx, chunks, isHugeDataSet)
}
