package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	s, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Server.ListenAddr != ServerListenAddr {
		t.Errorf("listen addr = %q, want %q", s.Server.ListenAddr, ServerListenAddr)
	}
	if s.Crawler.MaxConcurrent != DefaultMaxConcurrentFetches {
		t.Errorf("max concurrent = %d, want %d", s.Crawler.MaxConcurrent, DefaultMaxConcurrentFetches)
	}
	if s.Crawler.FetchTimeout != DefaultFetchTimeout {
		t.Errorf("fetch timeout = %v, want %v", s.Crawler.FetchTimeout, DefaultFetchTimeout)
	}
	if len(s.Crawler.ExcludePatterns) != 1 || s.Crawler.ExcludePatterns[0] != DefaultExcludePattern {
		t.Errorf("exclude patterns = %v", s.Crawler.ExcludePatterns)
	}
	if s.Chunker.Size != DefaultChunkSize || s.Chunker.Overlap != DefaultChunkOverlap {
		t.Errorf("chunker = %+v", s.Chunker)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CAMPUSRAG_QDRANT_HOST", "qdrant.internal")
	t.Setenv("CAMPUSRAG_CRAWLER_MAX_CONCURRENT", "2")
	t.Setenv("CAMPUSRAG_CRAWLER_FETCH_TIMEOUT", "5s")
	t.Setenv("CAMPUSRAG_LLM_PROVIDER", "openai")

	s, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Qdrant.Host != "qdrant.internal" {
		t.Errorf("qdrant host = %q", s.Qdrant.Host)
	}
	if s.Crawler.MaxConcurrent != 2 {
		t.Errorf("max concurrent = %d, want 2", s.Crawler.MaxConcurrent)
	}
	if s.Crawler.FetchTimeout != 5*time.Second {
		t.Errorf("fetch timeout = %v, want 5s", s.Crawler.FetchTimeout)
	}
	if s.LLM.Provider != LLMProviderOpenAI {
		t.Errorf("llm provider = %q", s.LLM.Provider)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "campus.yaml")
	content := "chunker:\n  size: 300\n  overlap: 30\n  unit: tokens\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Chunker.Size != 300 || s.Chunker.Overlap != 30 || s.Chunker.Unit != "tokens" {
		t.Errorf("chunker = %+v", s.Chunker)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *Settings)
		wantErr bool
	}{
		{name: "valid", mutate: func(s *Settings) {}},
		{name: "unknown provider", mutate: func(s *Settings) { s.LLM.Provider = "mystery" }, wantErr: true},
		{name: "overlap equals size", mutate: func(s *Settings) { s.Chunker.Overlap = s.Chunker.Size }, wantErr: true},
		{name: "bad unit", mutate: func(s *Settings) { s.Chunker.Unit = "words" }, wantErr: true},
		{name: "zero concurrency", mutate: func(s *Settings) { s.Crawler.MaxConcurrent = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Settings{
				LLM:       LLMSettings{Provider: LLMProviderGemini},
				Embedding: EmbeddingSettings{Provider: LLMProviderGemini, Dimension: 768},
				Chunker:   ChunkerSettings{Size: 100, Overlap: 10, Unit: "characters"},
				Crawler:   CrawlerSettings{MaxConcurrent: 5},
				Qdrant:    QdrantSettings{Collection: CollectionName},
			}
			tt.mutate(&s)
			if err := s.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
