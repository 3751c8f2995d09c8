// Package bootstrap builds the knowledge base from Settings. The API server,
// the CLI and the MCP server all start from here.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/akolanti/CampusRAG/internal/config"
	"github.com/akolanti/CampusRAG/internal/customHttpClient"
	"github.com/akolanti/CampusRAG/internal/data/redisStore"
	"github.com/akolanti/CampusRAG/internal/data/store"
	"github.com/akolanti/CampusRAG/internal/domain/commonModels"
	"github.com/akolanti/CampusRAG/internal/domain/jobModel"
	"github.com/akolanti/CampusRAG/internal/rag"
	"github.com/akolanti/CampusRAG/internal/rag/crawler"
	"github.com/akolanti/CampusRAG/internal/rag/embedding"
	"github.com/akolanti/CampusRAG/internal/rag/embedding/cachedEmbedding"
	"github.com/akolanti/CampusRAG/internal/rag/embedding/googleEmbedding"
	"github.com/akolanti/CampusRAG/internal/rag/embedding/openaiEmbedding"
	"github.com/akolanti/CampusRAG/internal/rag/ingest"
	"github.com/akolanti/CampusRAG/internal/rag/llm"
	"github.com/akolanti/CampusRAG/internal/rag/llm/gemini"
	"github.com/akolanti/CampusRAG/internal/rag/llm/openaiLLM"
	"github.com/akolanti/CampusRAG/internal/rag/orchestrator"
	"github.com/akolanti/CampusRAG/internal/rag/retrieval"
	"github.com/akolanti/CampusRAG/internal/rag/vectorDB"
	"github.com/akolanti/CampusRAG/internal/rag/vectorDB/memoryDB"
	"github.com/akolanti/CampusRAG/internal/rag/vectorDB/qdrantDB"
	"github.com/akolanti/CampusRAG/pkg/logger_i"
)

type App struct {
	Settings *config.Settings
	Service  rag.Service
	JobStore jobModel.JobStore
	Provider llm.Provider

	closers []func()
}

// Close releases the headless browser. Network clients close with the ctx given to New.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// New wires every component. Redis and qdrant fall back to memory when offline;
// a missing embedding or generation client is an error.
func New(ctx context.Context, settings *config.Settings) (*App, error) {
	log := logger_i.NewLogger("bootstrap")
	app := &App{Settings: settings}

	redisStore.Configure(settings.Redis.Addr, settings.Redis.Password)
	jobStore, contacts := stores(ctx, log)
	app.JobStore = jobStore

	embedder, err := newEmbedder(ctx, settings.Embedding)
	if err != nil {
		return nil, err
	}
	if settings.Embedding.Cache {
		embedder = cachedEmbedding.New(embedder, redisStore.GetRedisStore(ctx, config.RedisEmbeddingCache), settings.Embedding.Model)
	}

	index, err := newIndex(ctx, settings, log)
	if err != nil {
		return nil, err
	}

	provider, err := newProvider(ctx, settings.LLM)
	if err != nil {
		return nil, err
	}
	app.Provider = provider

	fetcher, closeFetcher := NewFetcher(settings.Crawler)
	app.closers = append(app.closers, closeFetcher)
	webCrawler := crawler.New(fetcher, crawler.WithFetchTimeout(settings.Crawler.FetchTimeout))

	search := retrieval.NewService(embedder, index)
	chat := orchestrator.New(
		NewClassifier(settings.LLM, provider),
		provider,
		settings.LLM.SystemPrompt,
		orchestrator.NewRetrievalCapability(search, config.DefaultSearchK),
		orchestrator.NewNewsCapability(webCrawler, settings.Crawler.NewsURLs),
		orchestrator.NewContactCapability(contacts),
	)

	app.Service = rag.NewService(rag.Dependencies{
		Index:                index,
		Pipeline:             ingest.NewPipeline(NewChunker(settings.Chunker), embedder, index),
		Crawler:              webCrawler,
		Retrieval:            search,
		Orchestrator:         chat,
		Provider:             provider,
		Contacts:             contacts,
		DefaultExclude:       settings.Crawler.ExcludePatterns,
		DefaultMaxConcurrent: settings.Crawler.MaxConcurrent,
	})
	log.Info("Knowledge base ready", "llm", provider.Name(), "model", provider.DefaultModel(), "embedding", settings.Embedding.Provider)
	return app, nil
}

func stores(ctx context.Context, log *logger_i.Logger) (jobModel.JobStore, commonModels.ContactStore) {
	var jobStore jobModel.JobStore
	var contacts commonModels.ContactStore
	if s := store.GetRedisJobStore(ctx); s != nil {
		jobStore = s
	}
	if s := store.GetRedisContactStore(ctx); s != nil {
		contacts = s
	}
	if jobStore == nil || contacts == nil {
		if !config.FALLBACK_REDIS_TO_INTERNALSTORE {
			log.Error("Redis stores are offline and the fallback is disabled")
		} else {
			log.Warn("Redis stores are offline, using in-memory stores")
		}
		if jobStore == nil {
			jobStore = store.InitInMemoryJobStore()
		}
		if contacts == nil {
			contacts = store.InitInMemoryContactStore()
		}
	}
	return jobStore, contacts
}

func newEmbedder(ctx context.Context, s config.EmbeddingSettings) (embedding.Embedder, error) {
	var embedder embedding.Embedder
	switch s.Provider {
	case config.LLMProviderOpenAI:
		embedder = openaiEmbedding.NewOpenAIEmbedder(s.Model, s.APIKey, s.BaseURL, s.Dimension)
	default:
		embedder = googleEmbedding.GetGoogleEmbeddingClient(ctx, s.Model, s.APIKey, int32(s.Dimension))
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedding client %q could not be created", s.Provider)
	}
	return embedder, nil
}

func newProvider(ctx context.Context, s config.LLMSettings) (llm.Provider, error) {
	var provider llm.Provider
	switch s.Provider {
	case config.LLMProviderOpenAI:
		provider = openaiLLM.NewOpenAIProvider(s.Model, s.APIKey, s.BaseURL)
	default:
		provider = gemini.GetGeminiClient(ctx, s.Model, s.APIKey)
	}
	if provider == nil {
		return nil, fmt.Errorf("llm client %q could not be created", s.Provider)
	}
	return provider, nil
}

func newIndex(ctx context.Context, settings *config.Settings, log *logger_i.Logger) (vectorDB.Index, error) {
	client := qdrantDB.GetQuadrantClient(ctx, settings.Qdrant)
	if client != nil {
		index, err := qdrantDB.NewIndex(ctx, client, settings.Qdrant.Collection, settings.Embedding.Dimension)
		if err == nil {
			return index, nil
		}
		log.Error("Could not open the collection", "collection", settings.Qdrant.Collection, "error", err)
	}
	if !config.FALLBACK_QDRANT_TO_MEMORY {
		return nil, errors.New("qdrant is offline")
	}
	log.Warn("Qdrant is offline, using the in-memory index")
	return memoryDB.New(settings.Embedding.Dimension), nil
}

// NewFetcher returns the page fetcher and a func releasing it. With rendering on,
// headless chrome is tried first and a plain GET is the fallback.
func NewFetcher(s config.CrawlerSettings) (crawler.Fetcher, func()) {
	static := crawler.NewStaticFetcher(customHttpClient.NewClient(s.FetchTimeout), s.UserAgent)
	if !s.Render {
		return crawler.NewFallbackFetcher(static, nil, s.Retries), func() {}
	}
	render := crawler.NewRenderFetcher(s.UserAgent)
	return crawler.NewFallbackFetcher(render, static, s.Retries), render.Close
}

func NewChunker(s config.ChunkerSettings) *ingest.Chunker {
	return ingest.NewChunker(
		ingest.WithChunkSize(s.Size),
		ingest.WithOverlap(s.Overlap),
		ingest.WithUnit(ingest.Unit(s.Unit)),
	)
}

func NewClassifier(s config.LLMSettings, provider llm.Provider) orchestrator.Classifier {
	if s.LLMClassifier {
		return orchestrator.NewLLMClassifier(provider, orchestrator.KeywordClassifier{})
	}
	return orchestrator.KeywordClassifier{}
}
