package rag

import (
	"context"
	"strings"
	"time"

	"github.com/akolanti/CampusRAG/internal/config"
	"github.com/akolanti/CampusRAG/internal/domain/commonModels"
	"github.com/akolanti/CampusRAG/internal/domain/jobModel"
	"github.com/akolanti/CampusRAG/internal/domain/ragErrors"
	"github.com/akolanti/CampusRAG/internal/metrics"
	"github.com/akolanti/CampusRAG/internal/rag/crawler"
	"github.com/akolanti/CampusRAG/internal/rag/ingest"
	"github.com/akolanti/CampusRAG/internal/rag/llm"
	"github.com/akolanti/CampusRAG/internal/rag/orchestrator"
	"github.com/akolanti/CampusRAG/internal/rag/retrieval"
	"github.com/akolanti/CampusRAG/internal/rag/vectorDB"
	"github.com/akolanti/CampusRAG/pkg/logger_i"
)

/*
ARCHITECTURE NOTE: OPAQUE INTERFACE PATTERN

Service is the public contract used by the HTTP handlers, the worker pool,
the CLI and the MCP server. service is the private struct holding the index,
the pipeline, the crawler and the model clients, so callers never reach
them directly and tests can hand in a memory index and mocks.
*/

// Service is the knowledge base as seen from every surface.
type Service interface {
	Search(ctx context.Context, query string, k int) ([]retrieval.Passage, error)
	Stats(ctx context.Context) (commonModels.Stats, error)
	ListSources(ctx context.Context, offset int, limit int) (commonModels.SourcePage, error)
	GetSource(ctx context.Context, sourceID string, offset int, limit int) (commonModels.ChunkPage, error)
	DeleteSource(ctx context.Context, sourceID string) (int, error)

	Chat(ctx context.Context, req orchestrator.Request) (orchestrator.Response, error)
	ChatStream(ctx context.Context, req orchestrator.Request) (<-chan orchestrator.Event, error)
	Models(ctx context.Context) ([]string, error)

	IngestUpload(ctx context.Context, path string, name string) (commonModels.IngestReport, error)
	IngestText(ctx context.Context, sourceID string, title string, text string) (commonModels.IngestReport, error)
	IngestCrawl(ctx context.Context, req commonModels.CrawlRequest) (commonModels.IngestReport, error)
	RepairIndex(ctx context.Context) error
	Contacts(ctx context.Context) ([]commonModels.Contact, error)

	// ProcessJob runs a queued crawl or upload and returns the job in its final state.
	ProcessJob(ctx context.Context, job jobModel.Job) jobModel.Job
}

type Crawler interface {
	Crawl(ctx context.Context, seeds []string, exclude []string, maxConcurrent int) (crawler.Result, error)
}

type Chatter interface {
	Answer(ctx context.Context, req orchestrator.Request) (orchestrator.Response, error)
	Stream(ctx context.Context, req orchestrator.Request) (<-chan orchestrator.Event, error)
}

// Dependencies is what NewService wires together. Contacts may be nil.
type Dependencies struct {
	Index        vectorDB.Index
	Pipeline     *ingest.Pipeline
	Crawler      Crawler
	Retrieval    *retrieval.Service
	Orchestrator Chatter
	Provider     llm.Provider
	Contacts     commonModels.ContactStore

	DefaultExclude       []string
	DefaultMaxConcurrent int
}

type service struct {
	index        vectorDB.Index
	pipeline     *ingest.Pipeline
	crawler      Crawler
	retrieval    *retrieval.Service
	orchestrator Chatter
	provider     llm.Provider
	contacts     commonModels.ContactStore

	defaultExclude       []string
	defaultMaxConcurrent int
	logger               *logger_i.Logger
}

func NewService(deps Dependencies) Service {
	maxConcurrent := deps.DefaultMaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = config.DefaultMaxConcurrentFetches
	}
	return &service{
		index:                deps.Index,
		pipeline:             deps.Pipeline,
		crawler:              deps.Crawler,
		retrieval:            deps.Retrieval,
		orchestrator:         deps.Orchestrator,
		provider:             deps.Provider,
		contacts:             deps.Contacts,
		defaultExclude:       deps.DefaultExclude,
		defaultMaxConcurrent: maxConcurrent,
		logger:               logger_i.NewLogger("RAG Service"),
	}
}

func (s *service) Search(ctx context.Context, query string, k int) ([]retrieval.Passage, error) {
	return s.retrieval.Search(ctx, query, k)
}

func (s *service) Stats(ctx context.Context) (commonModels.Stats, error) {
	return s.index.Stats(ctx)
}

func (s *service) ListSources(ctx context.Context, offset int, limit int) (commonModels.SourcePage, error) {
	return s.index.ListSources(ctx, offset, limit)
}

func (s *service) GetSource(ctx context.Context, sourceID string, offset int, limit int) (commonModels.ChunkPage, error) {
	page, err := s.index.GetSourceChunks(ctx, sourceID, offset, limit)
	if err != nil {
		return page, err
	}
	if page.Total == 0 {
		return page, ragErrors.ErrSourceNotFound
	}
	return page, nil
}

func (s *service) DeleteSource(ctx context.Context, sourceID string) (int, error) {
	removed, err := s.index.DeleteSource(ctx, sourceID)
	if err != nil {
		return 0, err
	}
	if removed == 0 {
		return 0, ragErrors.ErrSourceNotFound
	}
	logger_i.FromContext(ctx, "RAG Service").Info("Source deleted", "source", sourceID, "chunks", removed)
	return removed, nil
}

func (s *service) Chat(ctx context.Context, req orchestrator.Request) (orchestrator.Response, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("chat", time.Since(start)) }()
	return s.orchestrator.Answer(ctx, req)
}

func (s *service) ChatStream(ctx context.Context, req orchestrator.Request) (<-chan orchestrator.Event, error) {
	return s.orchestrator.Stream(ctx, req)
}

func (s *service) Models(ctx context.Context) ([]string, error) {
	return s.provider.Models(ctx)
}

func (s *service) IngestUpload(ctx context.Context, path string, name string) (commonModels.IngestReport, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("document_ingestion", time.Since(start)) }()
	return s.pipeline.IngestFile(ctx, path, name)
}

func (s *service) IngestText(ctx context.Context, sourceID string, title string, text string) (commonModels.IngestReport, error) {
	sourceID = strings.TrimSpace(sourceID)
	if sourceID == "" || strings.TrimSpace(text) == "" {
		return commonModels.IngestReport{}, ragErrors.ErrEmptyQuery
	}
	return s.pipeline.IngestText(ctx, sourceID, title, text)
}

// IngestCrawl fetches the seeds and indexes every page that could be extracted.
// Fetch failures end up in the report, only pattern errors and cancellation are returned.
func (s *service) IngestCrawl(ctx context.Context, req commonModels.CrawlRequest) (commonModels.IngestReport, error) {
	log := logger_i.FromContext(ctx, "RAG Service")
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("crawl_ingestion", time.Since(start)) }()

	var report commonModels.IngestReport
	seeds, err := s.pendingSeeds(ctx, req, &report)
	if err != nil {
		return report, err
	}
	if len(seeds) == 0 {
		log.Info("Nothing to crawl", "skipped", len(report.Skipped))
		return report, nil
	}

	exclude := req.ExcludePatterns
	if exclude == nil {
		exclude = s.defaultExclude
	}
	maxConcurrent := req.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = s.defaultMaxConcurrent
	}

	result, err := s.crawler.Crawl(ctx, seeds, exclude, maxConcurrent)
	if err != nil {
		return report, err
	}
	report.Skipped = append(report.Skipped, result.Skipped...)
	for _, f := range result.Failures {
		report.Failures = append(report.Failures, commonModels.ItemFailure{Item: f.URL, Stage: "fetch", Message: f.Error()})
	}

	indexed, err := s.pipeline.IngestDocuments(ctx, result.Documents)
	report.Merge(indexed)
	log.Info("Crawl ingested", "seeds", len(seeds), "pages", report.PagesIndexed, "chunks", report.ChunksIndexed, "failures", len(report.Failures))
	return report, err
}

func (s *service) pendingSeeds(ctx context.Context, req commonModels.CrawlRequest, report *commonModels.IngestReport) ([]string, error) {
	seen := make(map[string]bool)
	var seeds []string
	for _, seed := range req.SeedURLs {
		seed = strings.TrimSpace(seed)
		if seed == "" || seen[seed] {
			continue
		}
		seen[seed] = true
		if req.SkipExisting {
			exists, err := s.index.SourceExists(ctx, seed)
			if err != nil {
				return nil, err
			}
			if exists {
				report.Skipped = append(report.Skipped, seed)
				continue
			}
		}
		seeds = append(seeds, seed)
	}
	if len(seen) == 0 {
		return nil, ragErrors.ErrNoSeeds
	}
	return seeds, nil
}

// RepairIndex drops and recreates the collection. Everything must be ingested again.
func (s *service) RepairIndex(ctx context.Context) error {
	if err := s.index.Reset(ctx); err != nil {
		return err
	}
	logger_i.FromContext(ctx, "RAG Service").Warn("Index reset, re-ingestion required")
	return nil
}

func (s *service) Contacts(ctx context.Context) ([]commonModels.Contact, error) {
	if s.contacts == nil {
		return []commonModels.Contact{}, nil
	}
	return s.contacts.ListContacts(ctx)
}

func (s *service) ProcessJob(ctx context.Context, job jobModel.Job) jobModel.Job {
	log := s.logger.With("traceId", logger_i.TraceID(ctx), "JobId", job.Id)

	var (
		report commonModels.IngestReport
		err    error
	)
	switch job.JobType {
	case jobModel.JobTypeCrawl:
		job = logOutput(job, jobModel.CrawlFetching, log)
		if job.JobPayload.Crawl == nil {
			return s.jobError(job, ragErrors.ErrNoSeeds, "CRAWL_FAILURE")
		}
		report, err = s.IngestCrawl(ctx, *job.JobPayload.Crawl)
	case jobModel.JobTypeUpload:
		job = logOutput(job, jobModel.Extracting, log)
		report, err = s.IngestUpload(ctx, job.JobPayload.UploadPath, job.JobPayload.UploadName)
		removeUpload(job.JobPayload.UploadPath, log)
	default:
		return s.jobError(job, errUnknownJobType(job.JobType), "UNKNOWN_JOB")
	}

	job.JobPayload.Report = &report
	if err != nil {
		return s.jobError(job, err, "INGESTION_FAILURE")
	}
	return returnOutput(job)
}
