package vectorDB

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/akolanti/CampusRAG/internal/config"
	"github.com/akolanti/CampusRAG/internal/domain/commonModels"
	"github.com/akolanti/CampusRAG/internal/domain/ragErrors"
)

// NormalizePage clamps pagination input to sane values.
func NormalizePage(offset int, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = config.DefaultPageLimit
	}
	if limit > config.MaxPageLimit {
		limit = config.MaxPageLimit
	}
	return offset, limit
}

// PageBounds returns the slice bounds of a page over total items and whether more follow.
func PageBounds(total int, offset int, limit int) (int, int, bool) {
	if offset >= total {
		return total, total, false
	}
	end := min(offset+limit, total)
	return offset, end, end < total
}

// CosineToUnit maps a cosine similarity from [-1,1] to a score in [0,1].
func CosineToUnit(cosine float64) float64 {
	score := (cosine + 1) / 2
	return math.Max(0, math.Min(1, score))
}

func Cosine(a []float32, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// SortResults orders by score, ties go to the earlier inserted chunk.
func SortResults(results []commonModels.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return insertedBefore(results[i].Chunk, results[j].Chunk)
	})
}

// TopK sorts results and keeps the best k.
func TopK(results []commonModels.SearchResult, k int) []commonModels.SearchResult {
	SortResults(results)
	if len(results) > k {
		results = results[:k]
	}
	return results
}

func insertedBefore(a commonModels.Chunk, b commonModels.Chunk) bool {
	if a.Seq != b.Seq {
		return a.Seq < b.Seq
	}
	return a.ChunkIndex < b.ChunkIndex
}

// SortChunks orders chunks of one source by index.
func SortChunks(chunks []commonModels.Chunk) {
	sort.SliceStable(chunks, func(i, j int) bool {
		if chunks[i].ChunkIndex != chunks[j].ChunkIndex {
			return chunks[i].ChunkIndex < chunks[j].ChunkIndex
		}
		return chunks[i].Seq < chunks[j].Seq
	})
}

// CollectSources derives the distinct sources from chunks, in insertion order.
func CollectSources(chunks []commonModels.Chunk) []commonModels.Source {
	var collector SourceCollector
	for _, c := range chunks {
		collector.Add(c)
	}
	return collector.Sources()
}

type sourceEntry struct {
	source   commonModels.Source
	firstSeq int64
}

// SourceCollector aggregates chunks into sources one at a time, so a store can
// stream its pages through it without holding every chunk.
type SourceCollector struct {
	bySource map[string]*sourceEntry
}

func (sc *SourceCollector) Add(c commonModels.Chunk) {
	if sc.bySource == nil {
		sc.bySource = make(map[string]*sourceEntry)
	}
	e, ok := sc.bySource[c.SourceID]
	if !ok {
		e = &sourceEntry{
			source: commonModels.Source{
				SourceID: c.SourceID,
				Title:    c.Title,
				FileType: c.FileType,
				Origin:   c.Origin,
			},
			firstSeq: c.Seq,
		}
		sc.bySource[c.SourceID] = e
	}
	e.source.ChunkCount++
	if c.Seq < e.firstSeq {
		e.firstSeq = c.Seq
	}
}

func (sc *SourceCollector) Len() int {
	return len(sc.bySource)
}

// Sources returns the collected sources ordered by their first inserted chunk.
func (sc *SourceCollector) Sources() []commonModels.Source {
	entries := make([]*sourceEntry, 0, len(sc.bySource))
	for _, e := range sc.bySource {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].firstSeq != entries[j].firstSeq {
			return entries[i].firstSeq < entries[j].firstSeq
		}
		return entries[i].source.SourceID < entries[j].source.SourceID
	})

	sources := make([]commonModels.Source, len(entries))
	for i, e := range entries {
		sources[i] = e.source
	}
	return sources
}

// ValidateChunks checks every chunk carries a vector of the index dimension.
// A dimension of 0 accepts the first vector length it sees.
func ValidateChunks(chunks []commonModels.Chunk, dimension int) error {
	for _, c := range chunks {
		if c.SourceID == "" {
			return errors.New("chunk without source id")
		}
		if len(c.Embedding) == 0 {
			return &ragErrors.EmbeddingError{SourceID: c.SourceID, ChunkIndex: c.ChunkIndex, Err: errors.New("missing embedding")}
		}
		if dimension == 0 {
			dimension = len(c.Embedding)
		}
		if len(c.Embedding) != dimension {
			return &ragErrors.EmbeddingError{
				SourceID:   c.SourceID,
				ChunkIndex: c.ChunkIndex,
				Err:        fmt.Errorf("embedding dimension %d, index expects %d", len(c.Embedding), dimension),
			}
		}
	}
	return nil
}

// Sequencer hands out increasing insertion numbers that stay above earlier runs.
type Sequencer struct {
	mu   sync.Mutex
	last int64
}

// Next reserves n consecutive numbers and returns the first.
func (s *Sequencer) Next(n int) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	base := max(s.last+1, time.Now().UnixNano())
	s.last = base + int64(n) - 1
	return base
}

// CorruptionGuard remembers that this handle saw a non empty index. A store reporting
// zero chunks afterwards, with no delete in between, is treated as corrupted.
type CorruptionGuard struct {
	mu   sync.Mutex
	seen bool
}

func (g *CorruptionGuard) Observe(count int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if count > 0 {
		g.seen = true
		return nil
	}
	if g.seen {
		return ragErrors.ErrIndexCorruption
	}
	return nil
}

func (g *CorruptionGuard) MarkWritten() {
	g.mu.Lock()
	g.seen = true
	g.mu.Unlock()
}

// MarkDeleted forgets what was seen, the next count is trusted again.
func (g *CorruptionGuard) MarkDeleted() {
	g.mu.Lock()
	g.seen = false
	g.mu.Unlock()
}

func (g *CorruptionGuard) Seen() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seen
}

func StatusFor(count int) commonModels.IndexStatus {
	if count == 0 {
		return commonModels.StatusEmpty
	}
	return commonModels.StatusActive
}
