package rag_test

import (
	"context"
	"strings"

	"github.com/akolanti/CampusRAG/internal/rag/crawler"
	"github.com/akolanti/CampusRAG/internal/rag/llm"
	"github.com/akolanti/CampusRAG/internal/rag/orchestrator"
)

// MockEmbedder maps texts mentioning "admission" to one axis and everything else to the other.
type MockEmbedder struct {
	OnGetEmbedding   func(ctx context.Context, text string) ([]float32, error)
	OnBatchEmbedding func(ctx context.Context, chunks []string, isHuge bool) ([][]float32, error)
}

func vectorFor(text string) []float32 {
	if strings.Contains(strings.ToLower(text), "admission") {
		return []float32{1, 0}
	}
	return []float32{0, 1}
}

func (m *MockEmbedder) BatchEmbedding(ctx context.Context, chunks []string, isHuge bool) ([][]float32, error) {
	if m.OnBatchEmbedding != nil {
		return m.OnBatchEmbedding(ctx, chunks, isHuge)
	}
	vectors := make([][]float32, len(chunks))
	for i, c := range chunks {
		vectors[i] = vectorFor(c)
	}
	return vectors, nil
}

func (m *MockEmbedder) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	if m.OnGetEmbedding != nil {
		return m.OnGetEmbedding(ctx, query)
	}
	return vectorFor(query), nil
}

// MockCrawler implements rag.Crawler
type MockCrawler struct {
	OnCrawl func(ctx context.Context, seeds []string, exclude []string, maxConcurrent int) (crawler.Result, error)
	Seeds   []string
	Exclude []string
	Max     int
}

func (m *MockCrawler) Crawl(ctx context.Context, seeds []string, exclude []string, maxConcurrent int) (crawler.Result, error) {
	m.Seeds, m.Exclude, m.Max = seeds, exclude, maxConcurrent
	if m.OnCrawl != nil {
		return m.OnCrawl(ctx, seeds, exclude, maxConcurrent)
	}
	return crawler.Result{}, nil
}

// MockChatter implements rag.Chatter
type MockChatter struct {
	OnAnswer func(ctx context.Context, req orchestrator.Request) (orchestrator.Response, error)
}

func (m *MockChatter) Answer(ctx context.Context, req orchestrator.Request) (orchestrator.Response, error) {
	if m.OnAnswer != nil {
		return m.OnAnswer(ctx, req)
	}
	return orchestrator.Response{Answer: "mocked answer"}, nil
}

func (m *MockChatter) Stream(ctx context.Context, req orchestrator.Request) (<-chan orchestrator.Event, error) {
	events := make(chan orchestrator.Event, 1)
	events <- orchestrator.Event{Type: orchestrator.EventDone}
	close(events)
	return events, nil
}

// MockLLM implements llm.Provider
type MockLLM struct {
	OnModels func(ctx context.Context) ([]string, error)
}

func (m *MockLLM) Name() string         { return "mock" }
func (m *MockLLM) DefaultModel() string { return "mock-model" }

func (m *MockLLM) Generate(ctx context.Context, prompt llm.Prompt) (string, error) {
	return "mocked llm response", nil
}

func (m *MockLLM) Stream(ctx context.Context, prompt llm.Prompt) (<-chan llm.Token, error) {
	tokens := make(chan llm.Token)
	close(tokens)
	return tokens, nil
}

func (m *MockLLM) CheckModel(ctx context.Context, model string) error { return nil }

func (m *MockLLM) Models(ctx context.Context) ([]string, error) {
	if m.OnModels != nil {
		return m.OnModels(ctx)
	}
	return []string{"mock-model"}, nil
}
