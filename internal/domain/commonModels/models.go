package commonModels

import (
	"context"
	"time"
)

type DocType string

var HTML DocType = "html"
var PDF DocType = "pdf"
var DOCX DocType = "docx"
var TXT DocType = "txt"
var ERR DocType = "error"

type Origin string

const (
	OriginUpload Origin = "upload"
	OriginCrawl  Origin = "crawl"
)

type IndexStatus string

const (
	StatusActive    IndexStatus = "active"
	StatusEmpty     IndexStatus = "empty"
	StatusCorrupted IndexStatus = "corrupted"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Document is one crawled page or uploaded file before chunking.
type Document struct {
	SourceID string  `json:"source_id"`
	Title    string  `json:"title"`
	Text     string  `json:"text"`
	Origin   Origin  `json:"origin"`
	FileType DocType `json:"file_type"`
	Images   []Image `json:"images,omitempty"`
}

// Image keeps its rune offset in Document.Text so the chunker can place it.
type Image struct {
	URL      string `json:"url"`
	Alt      string `json:"alt,omitempty"`
	Context  string `json:"context,omitempty"`
	Position int    `json:"position"`
}

type Chunk struct {
	Id          string    `json:"chunk_id"`
	SourceID    string    `json:"source_id"`
	ChunkIndex  int       `json:"chunk_index"`
	TotalChunks int       `json:"total_chunks"`
	Text        string    `json:"content"`
	Start       int       `json:"start"`
	End         int       `json:"end"`
	Embedding   []float32 `json:"-"`
	Images      []Image   `json:"images,omitempty"`
	Title       string    `json:"title"`
	FileType    DocType   `json:"file_type"`
	Origin      Origin    `json:"origin"`
	IngestedAt  time.Time `json:"ingested_at"`
	// Seq is assigned by the index on insertion and orders sources and ties.
	Seq int64 `json:"seq"`
}

// Source is derived from the stored chunks, it is never written on its own.
type Source struct {
	SourceID   string  `json:"source_id"`
	Title      string  `json:"title"`
	ChunkCount int     `json:"chunk_count"`
	FileType   DocType `json:"file_type"`
	Origin     Origin  `json:"origin"`
}

type SearchResult struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

type SourcePage struct {
	Sources []Source `json:"sources"`
	Total   int      `json:"total"`
	HasMore bool     `json:"has_more"`
}

type ChunkPage struct {
	Chunks  []Chunk `json:"chunks"`
	Total   int     `json:"total_chunks"`
	HasMore bool    `json:"has_more"`
}

type Stats struct {
	DocumentCount int         `json:"document_count"`
	SourceCount   int         `json:"source_count"`
	Status        IndexStatus `json:"status"`
	Collection    string      `json:"collection"`
}

type ConversationTurn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

type CrawlRequest struct {
	SeedURLs        []string `json:"seed_urls"`
	ExcludePatterns []string `json:"exclude_patterns,omitempty"`
	MaxConcurrent   int      `json:"max_concurrent,omitempty"`
	SkipExisting    bool     `json:"skip_existing,omitempty"`
}

type ItemFailure struct {
	Item    string `json:"item"`
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

type IngestReport struct {
	PagesIndexed  int           `json:"pages_indexed"`
	ChunksIndexed int           `json:"chunks_indexed"`
	Failures      []ItemFailure `json:"failures,omitempty"`
	Skipped       []string      `json:"skipped,omitempty"`
}

func (r *IngestReport) Merge(other IngestReport) {
	r.PagesIndexed += other.PagesIndexed
	r.ChunksIndexed += other.ChunksIndexed
	r.Failures = append(r.Failures, other.Failures...)
	r.Skipped = append(r.Skipped, other.Skipped...)
}

type Contact struct {
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Interest  string    `json:"interest,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type ContactStore interface {
	SaveContact(ctx context.Context, contact Contact) error
	ListContacts(ctx context.Context) ([]Contact, error)
}

type NewsItem struct {
	Title   string  `json:"title"`
	Summary string  `json:"summary,omitempty"`
	Link    string  `json:"link,omitempty"`
	Score   float64 `json:"score,omitempty"`
}
