package retrieval

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/akolanti/CampusRAG/internal/config"
	"github.com/akolanti/CampusRAG/internal/domain/commonModels"
	"github.com/akolanti/CampusRAG/internal/domain/ragErrors"
	"github.com/akolanti/CampusRAG/internal/metrics"
	"github.com/akolanti/CampusRAG/internal/rag/embedding"
	"github.com/akolanti/CampusRAG/internal/rag/vectorDB"
	"github.com/akolanti/CampusRAG/pkg/logger_i"
)

// NoDocumentationNote is what the model gets when the index has nothing relevant.
const NoDocumentationNote = "Aucune documentation pertinente trouvée dans la base de connaissances. " +
	"Vous pouvez utiliser vos connaissances générales pour répondre à la question."

type Passage struct {
	Content    string               `json:"content"`
	Score      float64              `json:"score"`
	Source     string               `json:"source"`
	Title      string               `json:"title,omitempty"`
	ChunkIndex int                  `json:"chunk_index"`
	Images     []commonModels.Image `json:"images,omitempty"`
}

type Service struct {
	embedder embedding.Embedder
	index    vectorDB.Index
}

func NewService(embedder embedding.Embedder, index vectorDB.Index) *Service {
	return &Service{embedder: embedder, index: index}
}

// ClampK keeps k inside [1, MaxSearchK], zero or negative means the default.
func ClampK(k int) int {
	if k <= 0 {
		return config.DefaultSearchK
	}
	return min(k, config.MaxSearchK)
}

// Search embeds the query and returns the k closest passages, best first.
func (s *Service) Search(ctx context.Context, query string, k int) ([]Passage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ragErrors.ErrEmptyQuery
	}
	k = ClampK(k)
	log := logger_i.FromContext(ctx, "Retrieval")

	start := time.Now()
	vector, err := s.embedder.GetEmbedding(ctx, query)
	metrics.CaptureExecutionMetrics("embedding", time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	start = time.Now()
	results, err := s.index.SimilaritySearch(ctx, vector, k)
	metrics.CaptureExecutionMetrics("vector_search", time.Since(start))
	if err != nil {
		return nil, err
	}

	passages := make([]Passage, 0, len(results))
	for _, r := range results {
		passages = append(passages, ToPassage(r))
	}
	log.Debug("Search done", "k", k, "results", len(passages))
	return passages, nil
}

func ToPassage(r commonModels.SearchResult) Passage {
	return Passage{
		Content:    TrimContent(r.Chunk.Text, config.MaxPassageChars),
		Score:      math.Round(r.Score*10000) / 10000,
		Source:     r.Chunk.SourceID,
		Title:      r.Chunk.Title,
		ChunkIndex: r.Chunk.ChunkIndex,
		Images:     r.Chunk.Images,
	}
}

// TrimContent cuts text to at most limit runes, at the last word boundary, and adds "...".
func TrimContent(text string, limit int) string {
	text = strings.TrimSpace(text)
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	full := []rune(text)
	runes := full[:limit]
	cut := limit
	if !unicode.IsSpace(full[limit]) {
		for i := limit - 1; i > 0; i-- {
			if unicode.IsSpace(runes[i]) {
				cut = i
				break
			}
		}
	}
	return strings.TrimRightFunc(string(runes[:cut]), unicode.IsSpace) + "..."
}

// FormatContext renders passages as numbered blocks for the prompt.
func FormatContext(passages []Passage) string {
	if len(passages) == 0 {
		return NoDocumentationNote
	}
	var sb strings.Builder
	for i, p := range passages {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "[Document %d] (source: %s", i+1, p.Source)
		if p.Title != "" {
			fmt.Fprintf(&sb, ", title: %s", p.Title)
		}
		sb.WriteString(")\n")
		sb.WriteString(p.Content)
		if len(p.Images) > 0 {
			sb.WriteString("\nImages:")
			for _, img := range p.Images {
				sb.WriteString("\n- ")
				sb.WriteString(img.URL)
				if desc := firstNonEmpty(img.Alt, img.Context); desc != "" {
					sb.WriteString(" (")
					sb.WriteString(desc)
					sb.WriteString(")")
				}
			}
		}
	}
	return sb.String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
