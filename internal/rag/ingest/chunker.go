package ingest

import (
	"sort"
	"time"
	"unicode"

	"github.com/akolanti/CampusRAG/internal/adapter/utils"
	"github.com/akolanti/CampusRAG/internal/config"
	"github.com/akolanti/CampusRAG/internal/domain/commonModels"
)

type Unit string

const (
	Characters Unit = "characters"
	Tokens     Unit = "tokens"
)

// boundary ranks, higher wins inside the tolerance window
const (
	noBoundary = iota
	wordBoundary
	sentenceBoundary
	lineBoundary
	paragraphBoundary
)

// Chunker splits a normalized document into overlapping windows.
// Offsets are in runes of the normalized text.
type Chunker struct {
	size      int
	overlap   int
	unit      Unit
	tolerance int
	maxImages int
	now       func() time.Time
}

type Option func(*Chunker)

func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.size = size
		}
	}
}

func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

func WithUnit(unit Unit) Option {
	return func(c *Chunker) {
		if unit == Characters || unit == Tokens {
			c.unit = unit
		}
	}
}

// WithTolerance sets how far before the target cut a boundary may be used (characters only).
func WithTolerance(tolerance int) Option {
	return func(c *Chunker) {
		if tolerance >= 0 {
			c.tolerance = tolerance
		}
	}
}

func WithMaxImages(n int) Option {
	return func(c *Chunker) {
		if n >= 0 {
			c.maxImages = n
		}
	}
}

func NewChunker(opts ...Option) *Chunker {
	c := &Chunker{
		size:      config.DefaultChunkSize,
		overlap:   config.DefaultChunkOverlap,
		unit:      Characters,
		tolerance: -1,
		maxImages: config.MaxImagesPerChunk,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.overlap >= c.size {
		c.overlap = c.size / 4
	}
	if c.tolerance < 0 {
		c.tolerance = max(c.size/10, 1)
	}
	return c
}

type span struct {
	start int
	end   int
}

// Process normalizes the document text and cuts it into chunks carrying the document metadata.
// Same text and options always give the same boundaries and indexes.
func (c *Chunker) Process(doc commonModels.Document) []commonModels.Chunk {
	text, images := Normalize(doc.Text, doc.Images)
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	var spans []span
	if c.unit == Tokens {
		spans = c.tokenSpans(runes)
	} else {
		spans = c.characterSpans(runes)
	}
	perChunk := assignImages(spans, images, c.maxImages)

	ingestedAt := c.now().UTC()
	chunks := make([]commonModels.Chunk, len(spans))
	for i, s := range spans {
		chunks[i] = commonModels.Chunk{
			Id:          utils.GetNewUUID(),
			SourceID:    doc.SourceID,
			ChunkIndex:  i,
			TotalChunks: len(spans),
			Text:        string(runes[s.start:s.end]),
			Start:       s.start,
			End:         s.end,
			Images:      perChunk[i],
			Title:       doc.Title,
			FileType:    doc.FileType,
			Origin:      doc.Origin,
			IngestedAt:  ingestedAt,
		}
	}
	return chunks
}

func (c *Chunker) characterSpans(runes []rune) []span {
	n := len(runes)
	var spans []span
	start := 0
	for {
		if n-start <= c.size {
			return append(spans, span{start, n})
		}
		end := c.cutPoint(runes, start, start+c.size)
		spans = append(spans, span{start, end})
		start = end - c.overlap
	}
}

// cutPoint looks for the best ranked boundary in [target-tolerance, target], closest to target.
// Cuts at or before start+overlap are ignored so the next chunk always moves forward.
func (c *Chunker) cutPoint(runes []rune, start, target int) int {
	lo := max(target-c.tolerance, start+c.overlap+1)
	best, bestRank := target, noBoundary
	for p := target; p >= lo; p-- {
		if rank := boundaryRank(runes, p); rank > bestRank {
			best, bestRank = p, rank
		}
	}
	return best
}

// boundaryRank tells what kind of separator ends right before position p.
func boundaryRank(runes []rune, p int) int {
	if p <= 0 || p > len(runes) {
		return noBoundary
	}
	prev := runes[p-1]
	switch {
	case prev == '\n' && p >= 2 && runes[p-2] == '\n':
		return paragraphBoundary
	case prev == '\n':
		return lineBoundary
	case unicode.IsSpace(prev) && p >= 2 && isSentenceEnd(runes[p-2]):
		return sentenceBoundary
	case unicode.IsSpace(prev):
		return wordBoundary
	}
	return noBoundary
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func (c *Chunker) tokenSpans(runes []rune) []span {
	tokens := tokenize(runes)
	if len(tokens) == 0 {
		return []span{{0, len(runes)}}
	}

	stride := c.size - c.overlap
	var spans []span
	for i := 0; i < len(tokens); i += stride {
		j := min(i+c.size, len(tokens))
		start := tokens[i].start
		if c.overlap == 0 && len(spans) > 0 {
			start = spans[len(spans)-1].end
		}
		spans = append(spans, span{start, tokens[j-1].end})
		if j == len(tokens) {
			break
		}
	}
	return spans
}

// tokenize returns the maximal runs of non whitespace runes.
func tokenize(runes []rune) []span {
	var tokens []span
	start := -1
	for i, r := range runes {
		if unicode.IsSpace(r) {
			if start >= 0 {
				tokens = append(tokens, span{start, i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		tokens = append(tokens, span{start, len(runes)})
	}
	return tokens
}

// assignImages gives every image to the chunks whose window holds its position, or to the
// nearest chunk. A chunk keeps the maxImages closest to its middle, listed in document order.
func assignImages(spans []span, images []commonModels.Image, maxImages int) [][]commonModels.Image {
	perChunk := make([][]commonModels.Image, len(spans))
	if len(images) == 0 || maxImages == 0 {
		return perChunk
	}

	ordered := make([]commonModels.Image, len(images))
	copy(ordered, images)
	sort.SliceStable(ordered, func(a, b int) bool { return ordered[a].Position < ordered[b].Position })

	candidates := make([][]int, len(spans))
	for k, img := range ordered {
		placed := false
		for i, s := range spans {
			if img.Position >= s.start && img.Position < s.end {
				candidates[i] = append(candidates[i], k)
				placed = true
			}
		}
		if placed {
			continue
		}
		nearest, bestDist := 0, -1
		for i, s := range spans {
			d := distance(img.Position, s)
			if bestDist < 0 || d < bestDist {
				nearest, bestDist = i, d
			}
		}
		candidates[nearest] = append(candidates[nearest], k)
	}

	for i, s := range spans {
		picked := candidates[i]
		if len(picked) > maxImages {
			mid := (s.start + s.end) / 2
			sort.SliceStable(picked, func(a, b int) bool {
				return abs(ordered[picked[a]].Position-mid) < abs(ordered[picked[b]].Position-mid)
			})
			picked = picked[:maxImages]
			sort.Ints(picked)
		}
		for _, k := range picked {
			perChunk[i] = append(perChunk[i], ordered[k])
		}
	}
	return perChunk
}

func distance(pos int, s span) int {
	if pos < s.start {
		return s.start - pos
	}
	return pos - s.end + 1
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Normalize converts line endings to \n, strips blanks around every line, keeps at most one
// empty line in a row and trims the text. Image positions follow the removed runes.
func Normalize(text string, images []commonModels.Image) (string, []commonModels.Image) {
	src := []rune(text)
	runes := make([]rune, 0, len(src))
	origin := make([]int, 0, len(src))
	for i := 0; i < len(src); i++ {
		r := src[i]
		if r == '\r' {
			if i+1 < len(src) && src[i+1] == '\n' {
				continue
			}
			r = '\n'
		}
		runes = append(runes, r)
		origin = append(origin, i)
	}

	keep := make([]bool, len(runes))
	lineStart := 0
	for i := 0; i <= len(runes); i++ {
		if i < len(runes) && runes[i] != '\n' {
			continue
		}
		lo, hi := lineStart, i
		for lo < hi && isBlank(runes[lo]) {
			lo++
		}
		for hi > lo && isBlank(runes[hi-1]) {
			hi--
		}
		for j := lo; j < hi; j++ {
			keep[j] = true
		}
		if i < len(runes) {
			keep[i] = true
		}
		lineStart = i + 1
	}
	runes, origin = compact(runes, origin, keep)

	keep = make([]bool, len(runes))
	newlines := 0
	for i, r := range runes {
		if r == '\n' {
			newlines++
			keep[i] = newlines <= 2
			continue
		}
		newlines = 0
		keep[i] = true
	}
	runes, origin = compact(runes, origin, keep)

	lo, hi := 0, len(runes)
	for lo < hi && unicode.IsSpace(runes[lo]) {
		lo++
	}
	for hi > lo && unicode.IsSpace(runes[hi-1]) {
		hi--
	}
	runes, origin = runes[lo:hi], origin[lo:hi]

	var remapped []commonModels.Image
	if len(images) > 0 {
		remapped = make([]commonModels.Image, len(images))
		for i, img := range images {
			img.Position = min(sort.SearchInts(origin, img.Position), len(runes))
			remapped[i] = img
		}
	}
	return string(runes), remapped
}

func isBlank(r rune) bool {
	return r != '\n' && unicode.IsSpace(r)
}

func compact(runes []rune, origin []int, keep []bool) ([]rune, []int) {
	outRunes := runes[:0]
	outOrigin := origin[:0]
	for i := range runes {
		if keep[i] {
			outRunes = append(outRunes, runes[i])
			outOrigin = append(outOrigin, origin[i])
		}
	}
	return outRunes, outOrigin
}
