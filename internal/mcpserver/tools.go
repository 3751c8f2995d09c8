package mcpserver

import (
	"context"

	"github.com/akolanti/CampusRAG/internal/config"
	"github.com/akolanti/CampusRAG/internal/domain/commonModels"
	"github.com/akolanti/CampusRAG/internal/rag/orchestrator"
	"github.com/akolanti/CampusRAG/internal/rag/retrieval"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type SearchInput struct {
	Query string `json:"query" jsonschema:"the question or keywords to look up"`
	K     int    `json:"k,omitempty" jsonschema:"number of passages to return (default 4)"`
}

type SearchOutput struct {
	Results []retrieval.Passage `json:"results"`
	Count   int                 `json:"count"`
}

type StatsInput struct{}

type PageInput struct {
	Offset int `json:"offset,omitempty" jsonschema:"number of items to skip"`
	Limit  int `json:"limit,omitempty" jsonschema:"page size (default 20, at most 100)"`
}

type SourceInput struct {
	SourceID string `json:"source_id" jsonschema:"the URL or file name the source was indexed under"`
	Offset   int    `json:"offset,omitempty" jsonschema:"number of chunks to skip"`
	Limit    int    `json:"limit,omitempty" jsonschema:"page size (default 20, at most 100)"`
}

type ChatInput struct {
	Message string                          `json:"message" jsonschema:"the user message"`
	History []commonModels.ConversationTurn `json:"history,omitempty" jsonschema:"previous turns, oldest first"`
	Model   string                          `json:"model,omitempty" jsonschema:"model override"`
}

type CrawlInput struct {
	SeedURLs        []string `json:"seed_urls" jsonschema:"pages to fetch and index"`
	ExcludePatterns []string `json:"exclude_patterns,omitempty" jsonschema:"url substrings to skip, defaults to the configured list"`
	MaxConcurrent   int      `json:"max_concurrent,omitempty" jsonschema:"parallel fetches"`
	SkipExisting    bool     `json:"skip_existing,omitempty" jsonschema:"skip urls already indexed"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Semantic search over the indexed ESILV pages and documents",
	}, s.handleSearch)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "stats",
		Description: "Chunk and source counts of the knowledge base",
	}, s.handleStats)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_sources",
		Description: "List indexed sources with their chunk counts",
	}, s.handleListSources)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_source",
		Description: "Read the chunks of one source in order",
	}, s.handleGetSource)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "chat",
		Description: "Ask the ESILV assistant, answers are grounded on the knowledge base and school news",
	}, s.handleChat)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest_crawl",
		Description: "Fetch web pages and add them to the knowledge base",
	}, s.handleCrawl)
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	k := input.K
	if k <= 0 {
		k = config.DefaultSearchK
	}
	passages, err := s.service.Search(ctx, input.Query, k)
	if err != nil {
		return nil, SearchOutput{}, err
	}
	if passages == nil {
		passages = []retrieval.Passage{}
	}
	return nil, SearchOutput{Results: passages, Count: len(passages)}, nil
}

func (s *Server) handleStats(ctx context.Context, _ *mcp.CallToolRequest, _ StatsInput) (*mcp.CallToolResult, commonModels.Stats, error) {
	stats, err := s.service.Stats(ctx)
	return nil, stats, err
}

func (s *Server) handleListSources(ctx context.Context, _ *mcp.CallToolRequest, input PageInput) (*mcp.CallToolResult, commonModels.SourcePage, error) {
	page, err := s.service.ListSources(ctx, input.Offset, pageLimit(input.Limit))
	return nil, page, err
}

func (s *Server) handleGetSource(ctx context.Context, _ *mcp.CallToolRequest, input SourceInput) (*mcp.CallToolResult, commonModels.ChunkPage, error) {
	page, err := s.service.GetSource(ctx, input.SourceID, input.Offset, pageLimit(input.Limit))
	return nil, page, err
}

func (s *Server) handleChat(ctx context.Context, _ *mcp.CallToolRequest, input ChatInput) (*mcp.CallToolResult, orchestrator.Response, error) {
	resp, err := s.service.Chat(ctx, orchestrator.Request{Message: input.Message, History: input.History, Model: input.Model})
	if err != nil {
		s.logger.Warn("Chat tool failed", "err", err)
	}
	return nil, resp, err
}

func (s *Server) handleCrawl(ctx context.Context, _ *mcp.CallToolRequest, input CrawlInput) (*mcp.CallToolResult, commonModels.IngestReport, error) {
	report, err := s.service.IngestCrawl(ctx, commonModels.CrawlRequest{
		SeedURLs:        input.SeedURLs,
		ExcludePatterns: input.ExcludePatterns,
		MaxConcurrent:   input.MaxConcurrent,
		SkipExisting:    input.SkipExisting,
	})
	return nil, report, err
}

func pageLimit(limit int) int {
	if limit <= 0 {
		return config.DefaultPageLimit
	}
	return min(limit, config.MaxPageLimit)
}
