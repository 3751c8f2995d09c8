package api

import (
	"time"

	"github.com/akolanti/CampusRAG/internal/domain/commonModels"
	"github.com/akolanti/CampusRAG/internal/rag/retrieval"
)

type JobExternalStatus string

const (
	JobStatusError JobExternalStatus = "Error"
)

// JobResponse is also the error envelope of every endpoint.
type JobResponse struct {
	Id        string            `json:"id" example:"job_cz109"`
	JobType   string            `json:"job_type,omitempty" example:"Crawl"`
	Result    Result            `json:"result"`
	Error     *JobOutgoingError `json:"error,omitempty"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time,omitempty"`
}

type JobOutgoingError struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"Job not found"`
	Retry   bool   `json:"can_retry" example:"false"`
	Hint    string `json:"hint,omitempty" example:"Run: ollama pull mistral"`
}

type Result struct {
	Status      string                     `json:"status"`
	CurrentStep string                     `json:"current_step,omitempty"`
	Report      *commonModels.IngestReport `json:"report,omitempty"`
}

type InitJobResponse struct {
	Id        string `json:"id"`
	StatusURL string `json:"status_url"`
}

// requests---------------------

type SearchRequest struct {
	Query string `json:"query" validate:"required" example:"admission requirements"`
	K     int    `json:"k,omitempty" example:"4"`
}

type ChatRequest struct {
	Message string                          `json:"message" validate:"required"`
	History []commonModels.ConversationTurn `json:"history,omitempty"`
	Model   string                          `json:"model,omitempty"`
}

type IngestTextRequest struct {
	SourceID string `json:"source_id" validate:"required" example:"faq-admissions"`
	Title    string `json:"title,omitempty"`
	Text     string `json:"text" validate:"required"`
}

type CrawlRequest struct {
	commonModels.CrawlRequest
	Async bool `json:"async,omitempty"`
}

// responses---------------------

type SearchResponse struct {
	Query   string              `json:"query"`
	Results []retrieval.Passage `json:"results"`
}

type DeleteSourceResponse struct {
	SourceID      string `json:"source_id"`
	ChunksDeleted int    `json:"chunks_deleted"`
}

type ModelsResponse struct {
	Models []string `json:"models"`
}

type ContactsResponse struct {
	Contacts []commonModels.Contact `json:"contacts"`
	Total    int                    `json:"total"`
}

type StatusMessage struct {
	Status  string `json:"status" example:"ok"`
	Message string `json:"message,omitempty"`
}
