package handlers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/akolanti/CampusRAG/internal/api"
	"github.com/akolanti/CampusRAG/internal/data/store"
	"github.com/akolanti/CampusRAG/internal/domain/commonModels"
	"github.com/akolanti/CampusRAG/internal/domain/jobModel"
	"github.com/akolanti/CampusRAG/internal/domain/ragErrors"
	"github.com/akolanti/CampusRAG/internal/job"
	"github.com/akolanti/CampusRAG/internal/rag/orchestrator"
	"github.com/akolanti/CampusRAG/internal/rag/retrieval"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockService struct {
	OnSearch       func(ctx context.Context, query string, k int) ([]retrieval.Passage, error)
	OnGetSource    func(ctx context.Context, id string, offset, limit int) (commonModels.ChunkPage, error)
	OnDeleteSource func(ctx context.Context, id string) (int, error)
	OnListSources  func(ctx context.Context, offset, limit int) (commonModels.SourcePage, error)
	OnChat         func(ctx context.Context, req orchestrator.Request) (orchestrator.Response, error)
	OnChatStream   func(ctx context.Context, req orchestrator.Request) (<-chan orchestrator.Event, error)
	OnIngestUpload func(ctx context.Context, path, name string) (commonModels.IngestReport, error)
	OnIngestCrawl  func(ctx context.Context, req commonModels.CrawlRequest) (commonModels.IngestReport, error)
}

func (m *mockService) Search(ctx context.Context, query string, k int) ([]retrieval.Passage, error) {
	if m.OnSearch != nil {
		return m.OnSearch(ctx, query, k)
	}
	return nil, nil
}

func (m *mockService) Stats(ctx context.Context) (commonModels.Stats, error) {
	return commonModels.Stats{DocumentCount: 3, SourceCount: 1, Status: commonModels.StatusActive}, nil
}

func (m *mockService) ListSources(ctx context.Context, offset, limit int) (commonModels.SourcePage, error) {
	if m.OnListSources != nil {
		return m.OnListSources(ctx, offset, limit)
	}
	return commonModels.SourcePage{}, nil
}

func (m *mockService) GetSource(ctx context.Context, id string, offset, limit int) (commonModels.ChunkPage, error) {
	if m.OnGetSource != nil {
		return m.OnGetSource(ctx, id, offset, limit)
	}
	return commonModels.ChunkPage{}, nil
}

func (m *mockService) DeleteSource(ctx context.Context, id string) (int, error) {
	if m.OnDeleteSource != nil {
		return m.OnDeleteSource(ctx, id)
	}
	return 0, nil
}

func (m *mockService) Chat(ctx context.Context, req orchestrator.Request) (orchestrator.Response, error) {
	if m.OnChat != nil {
		return m.OnChat(ctx, req)
	}
	return orchestrator.Response{Answer: "ok"}, nil
}

func (m *mockService) ChatStream(ctx context.Context, req orchestrator.Request) (<-chan orchestrator.Event, error) {
	return m.OnChatStream(ctx, req)
}

func (m *mockService) Models(ctx context.Context) ([]string, error) { return nil, nil }

func (m *mockService) IngestUpload(ctx context.Context, path, name string) (commonModels.IngestReport, error) {
	if m.OnIngestUpload != nil {
		return m.OnIngestUpload(ctx, path, name)
	}
	return commonModels.IngestReport{}, nil
}

func (m *mockService) IngestText(ctx context.Context, id, title, text string) (commonModels.IngestReport, error) {
	return commonModels.IngestReport{PagesIndexed: 1, ChunksIndexed: 1}, nil
}

func (m *mockService) IngestCrawl(ctx context.Context, req commonModels.CrawlRequest) (commonModels.IngestReport, error) {
	if m.OnIngestCrawl != nil {
		return m.OnIngestCrawl(ctx, req)
	}
	return commonModels.IngestReport{}, nil
}

func (m *mockService) RepairIndex(ctx context.Context) error { return nil }

func (m *mockService) Contacts(ctx context.Context) ([]commonModels.Contact, error) {
	return []commonModels.Contact{{Email: "jane@doe.fr"}}, nil
}

func (m *mockService) ProcessJob(ctx context.Context, j jobModel.Job) jobModel.Job { return j }

func jsonBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(raw)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) api.JobOutgoingError {
	t.Helper()
	var resp api.JobResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotNil(t, resp.Error)
	return *resp.Error
}

func TestSearchHandler(t *testing.T) {
	InitRagHandler(&mockService{OnSearch: func(ctx context.Context, query string, k int) ([]retrieval.Passage, error) {
		assert.Equal(t, 2, k)
		return []retrieval.Passage{{Content: "Admissions open in January", Score: 0.91, Source: "https://www.esilv.fr/admissions"}}, nil
	}})

	rec := httptest.NewRecorder()
	SearchHandler(rec, httptest.NewRequest(http.MethodPost, "/search", jsonBody(t, api.SearchRequest{Query: "admissions", K: 2})))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp api.SearchResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "https://www.esilv.fr/admissions", resp.Results[0].Source)

	rec = httptest.NewRecorder()
	SearchHandler(rec, httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{"query":"  "}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatHandler_ModelUnavailableIs503WithHint(t *testing.T) {
	InitRagHandler(&mockService{OnChat: func(ctx context.Context, req orchestrator.Request) (orchestrator.Response, error) {
		assert.Equal(t, "mistral", req.Model)
		return orchestrator.Response{}, &ragErrors.ModelUnavailableError{
			Provider: "openai", Model: "mistral", Hint: "Run: ollama pull mistral", Err: errors.New("404 model not found"),
		}
	}})

	rec := httptest.NewRecorder()
	ChatHandler(rec, httptest.NewRequest(http.MethodPost, "/chat", jsonBody(t, api.ChatRequest{Message: "bonjour", Model: "mistral"})))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	errBody := decodeError(t, rec)
	assert.Equal(t, "Run: ollama pull mistral", errBody.Hint)
	assert.NotContains(t, errBody.Message, "404 model not found")
}

func TestChatHandler_InternalErrorIsNotLeaked(t *testing.T) {
	InitRagHandler(&mockService{OnChat: func(ctx context.Context, req orchestrator.Request) (orchestrator.Response, error) {
		return orchestrator.Response{}, errors.New("qdrant: connection refused at 10.1.2.3")
	}})

	rec := httptest.NewRecorder()
	ChatHandler(rec, httptest.NewRequest(http.MethodPost, "/chat", jsonBody(t, api.ChatRequest{Message: "hi"})))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, decodeError(t, rec).Message, "10.1.2.3")
}

func TestChatStreamHandler_WritesEventsInOrder(t *testing.T) {
	InitRagHandler(&mockService{OnChatStream: func(ctx context.Context, req orchestrator.Request) (<-chan orchestrator.Event, error) {
		events := make(chan orchestrator.Event, 4)
		events <- orchestrator.Event{Type: orchestrator.EventMetadata, Data: &orchestrator.Metadata{Capabilities: []orchestrator.Kind{orchestrator.KindRetrieve}}}
		events <- orchestrator.Event{Type: orchestrator.EventChunk, Content: "Bon"}
		events <- orchestrator.Event{Type: orchestrator.EventChunk, Content: "jour"}
		events <- orchestrator.Event{Type: orchestrator.EventDone}
		close(events)
		return events, nil
	}})

	rec := httptest.NewRecorder()
	ChatStreamHandler(rec, httptest.NewRequest(http.MethodPost, "/chat/stream", jsonBody(t, api.ChatRequest{Message: "hello"})))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	var types []orchestrator.EventType
	var text string
	scanner := bufio.NewScanner(rec.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev orchestrator.Event
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev))
		types = append(types, ev.Type)
		text += ev.Content
	}
	assert.Equal(t, []orchestrator.EventType{orchestrator.EventMetadata, orchestrator.EventChunk, orchestrator.EventChunk, orchestrator.EventDone}, types)
	assert.Equal(t, "Bonjour", text)
}

func TestChatStreamHandler_SetupErrorIsJSON(t *testing.T) {
	InitRagHandler(&mockService{OnChatStream: func(ctx context.Context, req orchestrator.Request) (<-chan orchestrator.Event, error) {
		return nil, &ragErrors.ModelUnavailableError{Hint: "Start Ollama"}
	}})

	rec := httptest.NewRecorder()
	ChatStreamHandler(rec, httptest.NewRequest(http.MethodPost, "/chat/stream", jsonBody(t, api.ChatRequest{Message: "hello"})))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "Start Ollama", decodeError(t, rec).Hint)
}

func TestSourceHandlers(t *testing.T) {
	InitRagHandler(&mockService{
		OnGetSource: func(ctx context.Context, id string, offset, limit int) (commonModels.ChunkPage, error) {
			if id != "known" {
				return commonModels.ChunkPage{}, ragErrors.ErrSourceNotFound
			}
			assert.Equal(t, 5, offset)
			assert.Equal(t, 2, limit)
			return commonModels.ChunkPage{Chunks: []commonModels.Chunk{{SourceID: "known"}}, Total: 7, HasMore: false}, nil
		},
		OnDeleteSource: func(ctx context.Context, id string) (int, error) { return 4, nil },
	})

	tests := []struct {
		name   string
		method string
		target string
		call   http.HandlerFunc
		code   int
	}{
		{"chunks", http.MethodGet, "/sources/chunks?id=known&offset=5&limit=2", GetSourceHandler, http.StatusOK},
		{"chunks missing id", http.MethodGet, "/sources/chunks", GetSourceHandler, http.StatusBadRequest},
		{"chunks unknown", http.MethodGet, "/sources/chunks?id=ghost", GetSourceHandler, http.StatusNotFound},
		{"chunks bad offset", http.MethodGet, "/sources/chunks?id=known&offset=x", GetSourceHandler, http.StatusBadRequest},
		{"list", http.MethodGet, "/sources?limit=10", ListSourcesHandler, http.StatusOK},
		{"list bad limit", http.MethodGet, "/sources?limit=ten", ListSourcesHandler, http.StatusBadRequest},
		{"delete", http.MethodDelete, "/sources?id=known", DeleteSourceHandler, http.StatusOK},
		{"delete missing id", http.MethodDelete, "/sources", DeleteSourceHandler, http.StatusBadRequest},
		{"stats", http.MethodGet, "/stats", StatsHandler, http.StatusOK},
		{"contacts", http.MethodGet, "/admin/contacts", ContactsHandler, http.StatusOK},
		{"repair", http.MethodPost, "/admin/repair", RepairHandler, http.StatusOK},
		{"health", http.MethodGet, "/health", GetHandler, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.call(rec, httptest.NewRequest(tt.method, tt.target, nil))
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}
}

func multipartUpload(t *testing.T, fields map[string]string, filename string, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	part, err := writer.CreateFormFile("document", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/ingest/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestPostIngestUploadHandler_Sync(t *testing.T) {
	t.Chdir(t.TempDir())
	var storedPath string
	InitRagHandler(&mockService{OnIngestUpload: func(ctx context.Context, path, name string) (commonModels.IngestReport, error) {
		storedPath = path
		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "Le programme dure cinq ans.", string(raw))
		assert.Equal(t, "brochure.txt", name)
		return commonModels.IngestReport{PagesIndexed: 1, ChunksIndexed: 1}, nil
	}})

	rec := httptest.NewRecorder()
	PostIngestUploadHandler(rec, multipartUpload(t, nil, "brochure.txt", "Le programme dure cinq ans."))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	_, err := os.Stat(storedPath)
	assert.True(t, os.IsNotExist(err), "temporary upload must be removed")
}

func TestPostIngestUploadHandler_Unsupported(t *testing.T) {
	t.Chdir(t.TempDir())
	InitRagHandler(&mockService{OnIngestUpload: func(ctx context.Context, path, name string) (commonModels.IngestReport, error) {
		return commonModels.IngestReport{}, ragErrors.ErrUnsupportedFile
	}})

	rec := httptest.NewRecorder()
	PostIngestUploadHandler(rec, multipartUpload(t, map[string]string{"document_name": "logo.png"}, "logo.png", "x"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAsyncJobs_QueueAndStatus(t *testing.T) {
	t.Chdir(t.TempDir())
	jobStore := store.InitInMemoryJobStore()
	jobService := job.InitJobService(job.ServiceConfig{
		JobChannel:        make(chan jobModel.Job, 4),
		DispatcherChannel: make(chan bool, 1),
		JobStore:          jobStore,
	})
	InitJobHandler(jobService)
	InitRagHandler(&mockService{OnIngestCrawl: func(ctx context.Context, req commonModels.CrawlRequest) (commonModels.IngestReport, error) {
		t.Error("async crawl must not run inline")
		return commonModels.IngestReport{}, nil
	}})

	router := chi.NewRouter()
	router.Get("/status/{id}", GetStatusHandler)

	rec := httptest.NewRecorder()
	PostIngestCrawlHandler(rec, httptest.NewRequest(http.MethodPost, "/ingest/crawl",
		strings.NewReader(`{"seed_urls":["https://www.esilv.fr/admissions"],"async":true}`)))
	require.Equal(t, http.StatusAccepted, rec.Code)

	var accepted api.InitJobResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&accepted))
	assert.Equal(t, "status/"+accepted.Id, accepted.StatusURL)

	queued := <-jobService.JobChannel
	assert.Equal(t, jobModel.JobTypeCrawl, queued.JobType)
	require.NotNil(t, queued.JobPayload.Crawl)
	assert.Equal(t, []string{"https://www.esilv.fr/admissions"}, queued.JobPayload.Crawl.SeedURLs)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status/"+accepted.Id, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var status api.JobResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.Equal(t, string(jobModel.JobStatusQueued), status.Result.Status)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	PostIngestUploadHandler(rec, multipartUpload(t, map[string]string{"async": "true"}, "notes.md", "# Notes"))
	require.Equal(t, http.StatusAccepted, rec.Code)
	upload := <-jobService.JobChannel
	assert.Equal(t, jobModel.JobTypeUpload, upload.JobType)
	assert.Equal(t, "notes.md", upload.JobPayload.UploadName)
	_, err := os.Stat(upload.JobPayload.UploadPath)
	assert.NoError(t, err, "queued upload must stay on disk for the worker")
}

func TestPostIngestCrawlHandler_Validation(t *testing.T) {
	InitRagHandler(&mockService{})
	rec := httptest.NewRecorder()
	PostIngestCrawlHandler(rec, httptest.NewRequest(http.MethodPost, "/ingest/crawl", strings.NewReader(`{"seed_urls":[]}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
