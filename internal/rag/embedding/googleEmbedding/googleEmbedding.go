package googleEmbedding

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/akolanti/CampusRAG/internal/adapter/utils"
	"github.com/akolanti/CampusRAG/internal/config"
	"github.com/akolanti/CampusRAG/internal/domain/ragErrors"
	"github.com/akolanti/CampusRAG/internal/metrics"
	"github.com/akolanti/CampusRAG/internal/rag/embedding"
	"github.com/akolanti/CampusRAG/pkg/logger_i"
	"google.golang.org/genai"
)

const (
	taskDocument = "RETRIEVAL_DOCUMENT"
	taskQuery    = "RETRIEVAL_QUERY"
)

var logger = logger_i.NewLogger("google_embedding")
var once sync.Once
var embeddingClient *client

type client struct {
	genAi     *genai.Client
	model     string
	dimension int32
}

func newGoogleEmbedder(ctx context.Context, modelName string, apikey string, dimension int32) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apikey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		logger.Error("Error creating Google Embedding client", "error", err)
		return
	}
	embeddingClient = &client{
		genAi:     c,
		model:     modelName,
		dimension: dimension,
	}
	logger.Info("Google Embedding client created", "model", modelName, "dimension", dimension)
	go closeClient(ctx)
}

func closeClient(ctx context.Context) {
	<-ctx.Done()
	logger.Info("Closing Google Embedding client")
}

// GetGoogleEmbeddingClient returns nil when the client cannot be created.
func GetGoogleEmbeddingClient(ctx context.Context, modelName string, apikey string, dimension int32) embedding.Embedder {
	once.Do(func() {
		if dimension <= 0 {
			dimension = config.EmbeddingOutputDimensionality
		}
		newGoogleEmbedder(ctx, modelName, apikey, dimension)
	})

	if embeddingClient == nil {
		return nil
	}
	return &client{genAi: embeddingClient.genAi, model: embeddingClient.model, dimension: embeddingClient.dimension}
}

func (c *client) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	log := logger_i.FromContext(ctx, "google_embedding")
	start := time.Now()
	result, err := c.genAi.Models.EmbedContent(ctx, c.model, genai.Text(query), c.embedConfig(taskQuery))
	metrics.CaptureExecutionMetrics("embedding_query", time.Since(start))
	if err != nil {
		log.Error("Error getting query embedding from Google", "error", err)
		return nil, c.mapError(err)
	}
	if len(result.Embeddings) == 0 || result.Embeddings[0] == nil {
		return nil, errors.New("empty embedding response")
	}
	return result.Embeddings[0].Values, nil
}

func (c *client) BatchEmbedding(ctx context.Context, chunks []string, isLargeDataSet bool) ([][]float32, error) {
	log := logger_i.FromContext(ctx, "batch_embedding")

	if !isLargeDataSet {
		res, err := c.doCall(ctx, getContent(chunks))
		if err != nil && doRetry(err, log) {
			log.Debug("Retrying in 5 seconds")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(config.EmbeddingRetryDelay):
			}
			res, err = c.doCall(ctx, getContent(chunks))
		}
		if err != nil {
			log.Error("Error getting Embeddings from Google", "error", err)
			return nil, c.mapError(err)
		}

		embeddingResults := make([][]float32, len(chunks))
		for i, r := range res.Embeddings {
			if i < len(embeddingResults) && r != nil {
				embeddingResults[i] = r.Values
			}
		}
		return embeddingResults, nil
	}

	source := genai.EmbeddingsBatchJobSource{InlinedRequests: c.getInlinedBatchRequests(chunks)}
	batchJobName := utils.GetNewUUID()

	log = log.With("batchJobName", batchJobName, "chunks", len(chunks))
	conf := genai.CreateEmbeddingsBatchJobConfig{DisplayName: batchJobName}
	created, err := c.genAi.Batches.CreateEmbeddings(ctx, &c.model, &source, &conf)
	if err != nil {
		log.Error("Error creating batch embedding job", "error", err)
		return nil, c.mapError(err)
	}

	answer, err := c.pollForAnswer(ctx, created.Name, log)
	if err != nil {
		return nil, err
	}
	return downloadAnswerFromClient(answer, len(chunks), log), nil
}

func (c *client) doCall(ctx context.Context, content []*genai.Content) (*genai.EmbedContentResponse, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("embedding_batch", time.Since(start)) }()
	return c.genAi.Models.EmbedContent(ctx, c.model, content, c.embedConfig(taskDocument))
}

func (c *client) embedConfig(task string) *genai.EmbedContentConfig {
	dimension := c.dimension
	return &genai.EmbedContentConfig{OutputDimensionality: &dimension, TaskType: task}
}

func (c *client) mapError(err error) error {
	code := apiErrorCode(err)
	if code == http.StatusNotFound || code == http.StatusUnauthorized || code == http.StatusForbidden {
		return &ragErrors.ModelUnavailableError{
			Provider: config.LLMProviderGemini,
			Model:    c.model,
			Hint:     "check embedding.model and the Google API key",
			Err:      err,
		}
	}
	return err
}

func apiErrorCode(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code
	}
	return 0
}
