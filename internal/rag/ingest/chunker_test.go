package ingest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/akolanti/CampusRAG/internal/domain/commonModels"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func texts(chunks []commonModels.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}

func reconstruct(chunks []commonModels.Chunk) string {
	out := []rune(chunks[0].Text)
	prevEnd := chunks[0].End
	for _, c := range chunks[1:] {
		r := []rune(c.Text)
		out = append(out, r[prevEnd-c.Start:]...)
		prevEnd = c.End
	}
	return string(out)
}

func sampleText() string {
	var sb strings.Builder
	for p := 0; p < 6; p++ {
		fmt.Fprintf(&sb, "## Section %d\n\n", p)
		for s := 0; s < 5; s++ {
			fmt.Fprintf(&sb, "L'école propose le programme numéro %d.%d avec des cours d'ingénierie! ", p, s)
		}
		sb.WriteString("\n- premier point\n- second point\r\n\n\n\n")
	}
	return sb.String()
}

func TestTokenChunks_Example(t *testing.T) {
	c := NewChunker(WithChunkSize(3), WithOverlap(1), WithUnit(Tokens))
	chunks := c.Process(commonModels.Document{SourceID: "s", Text: "A B C D E F"})

	require.Len(t, chunks, 3)
	assert.Equal(t, []string{"A B C", "C D E", "E F"}, texts(chunks))
	for i, ch := range chunks {
		assert.Equal(t, i, ch.ChunkIndex)
		assert.Equal(t, 3, ch.TotalChunks)
		assert.Equal(t, "s", ch.SourceID)
		assert.NotEmpty(t, ch.Id)
	}
}

func TestChunks_ReconstructNormalizedText(t *testing.T) {
	text := sampleText()
	normalized, _ := Normalize(text, nil)
	normRunes := []rune(normalized)

	grid := []struct{ size, overlap int }{
		{1, 0}, {5, 0}, {10, 3}, {37, 36}, {50, 10}, {100, 20}, {1000, 200}, {5000, 0},
	}
	for _, unit := range []Unit{Characters, Tokens} {
		for _, g := range grid {
			t.Run(fmt.Sprintf("%s/%d/%d", unit, g.size, g.overlap), func(t *testing.T) {
				c := NewChunker(WithChunkSize(g.size), WithOverlap(g.overlap), WithUnit(unit))
				chunks := c.Process(commonModels.Document{SourceID: "doc", Text: text})
				require.NotEmpty(t, chunks)

				assert.Equal(t, normalized, reconstruct(chunks))
				for i, ch := range chunks {
					assert.Equal(t, string(normRunes[ch.Start:ch.End]), ch.Text)
					assert.Equal(t, i, ch.ChunkIndex)
					if i > 0 {
						assert.Greater(t, ch.Start, chunks[i-1].Start)
						assert.LessOrEqual(t, ch.Start, chunks[i-1].End)
					}
				}
			})
		}
	}
}

func TestCharacterChunks_RespectSize(t *testing.T) {
	c := NewChunker(WithChunkSize(100), WithOverlap(20))
	for _, ch := range c.Process(commonModels.Document{SourceID: "doc", Text: sampleText()}) {
		assert.LessOrEqual(t, ch.End-ch.Start, 100)
	}
}

func TestChunks_Deterministic(t *testing.T) {
	c := NewChunker(WithChunkSize(120), WithOverlap(30))
	doc := commonModels.Document{SourceID: "doc", Text: sampleText()}

	first := c.Process(doc)
	second := c.Process(doc)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Start, second[i].Start)
		assert.Equal(t, first[i].End, second[i].End)
		assert.Equal(t, first[i].Text, second[i].Text)
		assert.Equal(t, first[i].ChunkIndex, second[i].ChunkIndex)
	}
}

func TestCharacterChunks_BoundaryPreference(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		size      int
		overlap   int
		tolerance int
		want      []string
	}{
		{
			name:      "paragraph",
			text:      "aaaa bbbb cccc.\n\ndddd eeee ffff gggg hhhh iiii",
			size:      30,
			tolerance: 15,
			want:      []string{"aaaa bbbb cccc.\n\n", "dddd eeee ffff gggg hhhh iiii"},
		},
		{
			name:      "sentence over word",
			text:      "Word word word. Next next next next next next",
			size:      20,
			tolerance: 10,
			want:      []string{"Word word word. ", "Next next next next ", "next next"},
		},
		{
			name:      "hard cut",
			text:      "abcdefghijklmnopqrstuvwxyz",
			size:      10,
			overlap:   2,
			tolerance: 3,
			want:      []string{"abcdefghij", "ijklmnopqr", "qrstuvwxyz"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChunker(WithChunkSize(tt.size), WithOverlap(tt.overlap), WithTolerance(tt.tolerance))
			chunks := c.Process(commonModels.Document{SourceID: "s", Text: tt.text})
			assert.Equal(t, tt.want, texts(chunks))
		})
	}
}

func TestProcess_EmptyDocument(t *testing.T) {
	c := NewChunker()
	assert.Empty(t, c.Process(commonModels.Document{SourceID: "s", Text: " \n\r\n\t "}))
}

func TestNewChunker_InvalidOptions(t *testing.T) {
	c := NewChunker(WithChunkSize(-4), WithOverlap(-1), WithUnit("pages"))
	assert.Equal(t, 1000, c.size)
	assert.Equal(t, 200, c.overlap)
	assert.Equal(t, Characters, c.unit)
	assert.Equal(t, 100, c.tolerance)

	c = NewChunker(WithChunkSize(8), WithOverlap(8))
	assert.Equal(t, 2, c.overlap)
	assert.Equal(t, 1, c.tolerance)
}

func TestNormalize(t *testing.T) {
	text := "  Line one  \r\nLine two\t\n\n\n\n\nLine three \r\n"
	images := []commonModels.Image{{URL: "http://x/a.png", Position: 28}}

	got, remapped := Normalize(text, images)
	assert.Equal(t, "Line one\nLine two\n\nLine three", got)
	require.Len(t, remapped, 1)
	assert.Equal(t, 19, remapped[0].Position)
	assert.Equal(t, 28, images[0].Position)
}

func TestImages_AssignedToContainingOrNearestChunk(t *testing.T) {
	c := NewChunker(WithChunkSize(50), WithOverlap(10))
	doc := commonModels.Document{
		SourceID: "s",
		Text:     strings.Repeat("a", 100),
		Images: []commonModels.Image{
			{URL: "end", Position: 100},
			{URL: "overlap", Position: 45},
			{URL: "last", Position: 95},
		},
	}
	chunks := c.Process(doc)
	require.Len(t, chunks, 3)

	urls := func(ch commonModels.Chunk) []string {
		var out []string
		for _, img := range ch.Images {
			out = append(out, img.URL)
		}
		return out
	}
	assert.Equal(t, []string{"overlap"}, urls(chunks[0]))
	assert.Equal(t, []string{"overlap"}, urls(chunks[1]))
	assert.Equal(t, []string{"last", "end"}, urls(chunks[2]))
}

func TestImages_CappedClosestToMiddle(t *testing.T) {
	c := NewChunker()
	var images []commonModels.Image
	for _, pos := range []int{0, 10, 20, 48, 52, 90, 99} {
		images = append(images, commonModels.Image{URL: fmt.Sprint(pos), Position: pos})
	}
	chunks := c.Process(commonModels.Document{SourceID: "s", Text: strings.Repeat("a", 100), Images: images})
	require.Len(t, chunks, 1)

	var got []string
	for _, img := range chunks[0].Images {
		got = append(got, img.URL)
	}
	assert.Equal(t, []string{"10", "20", "48", "52", "90"}, got)
}

func TestProcess_CarriesDocumentMetadata(t *testing.T) {
	c := NewChunker(WithChunkSize(10), WithOverlap(0))
	chunks := c.Process(commonModels.Document{
		SourceID: "https://www.esilv.fr/formations",
		Title:    "Formations",
		Text:     "one two three four five six",
		Origin:   commonModels.OriginCrawl,
		FileType: commonModels.HTML,
	})
	require.NotEmpty(t, chunks)
	for _, ch := range chunks {
		assert.Equal(t, "Formations", ch.Title)
		assert.Equal(t, commonModels.OriginCrawl, ch.Origin)
		assert.Equal(t, commonModels.HTML, ch.FileType)
		assert.Equal(t, len(chunks), ch.TotalChunks)
		assert.False(t, ch.IngestedAt.IsZero())
	}
}
