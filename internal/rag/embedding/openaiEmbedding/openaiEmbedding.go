package openaiEmbedding

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/akolanti/CampusRAG/internal/config"
	"github.com/akolanti/CampusRAG/internal/customHttpClient"
	"github.com/akolanti/CampusRAG/internal/domain/ragErrors"
	"github.com/akolanti/CampusRAG/internal/metrics"
	"github.com/akolanti/CampusRAG/internal/rag/embedding"
	"github.com/akolanti/CampusRAG/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// client talks to any OpenAI compatible /embeddings endpoint (OpenAI, Ollama, vLLM).
type client struct {
	api       openai.Client
	model     string
	dimension int
	// only the OpenAI hosted models accept a requested dimension
	sendDimension bool
	logger        *logger_i.Logger
}

func NewOpenAIEmbedder(model string, apiKey string, baseURL string, dimension int) embedding.Embedder {
	if model == "" {
		model = config.OpenAIEmbeddingModel
	}
	if apiKey == "" {
		// ollama ignores the key but the sdk wants one
		apiKey = "ollama"
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(customHttpClient.NewClient(0)),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &client{
		api:           openai.NewClient(opts...),
		model:         model,
		dimension:     dimension,
		sendDimension: baseURL == "",
		logger:        logger_i.NewLogger("openai_embedding"),
	}
}

func (c *client) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	vectors, err := c.embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 || vectors[0] == nil {
		return nil, errors.New("empty embedding response")
	}
	return vectors[0], nil
}

// the openai api has no asynchronous batch path for embeddings, large sets go through the same call
func (c *client) BatchEmbedding(ctx context.Context, chunks []string, _ bool) ([][]float32, error) {
	return c.embed(ctx, chunks)
}

func (c *client) embed(ctx context.Context, texts []string) ([][]float32, error) {
	log := logger_i.FromContext(ctx, "openai_embedding")
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(c.model),
	}
	if c.sendDimension && c.dimension > 0 {
		params.Dimensions = openai.Int(int64(c.dimension))
	}

	start := time.Now()
	resp, err := c.api.Embeddings.New(ctx, params)
	metrics.CaptureExecutionMetrics("embedding_openai", time.Since(start))
	if err != nil {
		log.Error("Error getting embeddings", "model", c.model, "error", err)
		return nil, mapError(c.model, err)
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(vectors) {
			continue
		}
		vec := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}
		vectors[d.Index] = vec
	}
	return vectors, nil
}

func mapError(model string, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return &ragErrors.ModelUnavailableError{
			Provider: config.LLMProviderOpenAI,
			Model:    model,
			Hint:     fmt.Sprintf("pull the model first, e.g. `ollama pull %s`", model),
			Err:      err,
		}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &ragErrors.ModelUnavailableError{
			Provider: config.LLMProviderOpenAI,
			Model:    model,
			Hint:     "the embedding server is not reachable, check embedding.base_url",
			Err:      err,
		}
	}
	return err
}
