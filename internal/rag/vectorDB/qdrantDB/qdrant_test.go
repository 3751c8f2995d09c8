package qdrantDB

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/akolanti/CampusRAG/internal/domain/commonModels"
	"github.com/akolanti/CampusRAG/internal/domain/ragErrors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestPointPayload_RoundTrip(t *testing.T) {
	chunk := commonModels.Chunk{
		Id:          uuid.NewString(),
		SourceID:    "https://www.esilv.fr/admissions",
		ChunkIndex:  2,
		TotalChunks: 5,
		Text:        "Les admissions post-bac passent par le concours Puissance Alpha.",
		Start:       120,
		End:         185,
		Embedding:   []float32{0.1, 0.2, 0.3},
		Images: []commonModels.Image{
			{URL: "https://www.esilv.fr/img/campus.jpg", Alt: "Campus", Context: "Le campus", Position: 130},
		},
		Title:      "Admissions",
		FileType:   commonModels.HTML,
		Origin:     commonModels.OriginCrawl,
		IngestedAt: time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC),
	}

	point, err := toPoint(chunk, 42, "v1")
	require.NoError(t, err)
	assert.Equal(t, "v1", point.GetPayload()[fieldVersion].GetStringValue())
	assert.True(t, point.GetPayload()[fieldPending].GetBoolValue())

	got := fromPayload(point.GetPayload())
	assert.True(t, chunk.IngestedAt.Equal(got.IngestedAt))
	assert.Equal(t, int64(42), got.Seq)
	assert.Equal(t, chunk.Images, got.Images)

	want := chunk
	want.Embedding = nil
	want.Seq = 42
	want.IngestedAt, got.IngestedAt = time.Time{}, time.Time{}
	assert.Equal(t, want, got)
}

func TestPointPayload_NoImages(t *testing.T) {
	point, err := toPoint(commonModels.Chunk{Id: uuid.NewString(), SourceID: "notes.txt", Embedding: []float32{1}}, 1, "v")
	require.NoError(t, err)
	assert.Equal(t, "[]", point.GetPayload()[fieldImages].GetStringValue())
	assert.Nil(t, fromPayload(point.GetPayload()).Images)
}

func TestReplaceOperations(t *testing.T) {
	ops := replaceOperations([]string{"a", "b"}, "v2")
	require.Len(t, ops, 2)

	older := ops[0].GetDeletePoints().GetPoints().GetFilter()
	require.NotNil(t, older)
	require.Len(t, older.GetMust(), 1)
	assert.Equal(t, fieldSourceID, older.GetMust()[0].GetField().GetKey())
	assert.Equal(t, []string{"a", "b"}, older.GetMust()[0].GetField().GetMatch().GetKeywords().GetStrings())
	require.Len(t, older.GetMustNot(), 1)
	assert.Equal(t, "v2", older.GetMustNot()[0].GetField().GetMatch().GetKeyword())

	publish := ops[1].GetSetPayload()
	require.NotNil(t, publish)
	assert.False(t, publish.GetPayload()[fieldPending].GetBoolValue())
	cond := publish.GetPointsSelector().GetFilter().GetMust()[0].GetField()
	assert.Equal(t, fieldVersion, cond.GetKey())
	assert.Equal(t, "v2", cond.GetMatch().GetKeyword())
}

func TestVisibleFilter_SkipsPending(t *testing.T) {
	f := visible(matchSource("a"), chunkRange(20, 10))
	require.Len(t, f.GetMust(), 2)
	require.Len(t, f.GetMustNot(), 1)
	pending := f.GetMustNot()[0].GetField()
	assert.Equal(t, fieldPending, pending.GetKey())
	assert.True(t, pending.GetMatch().GetBoolean())

	r := f.GetMust()[1].GetField().GetRange()
	assert.Equal(t, 20.0, r.GetGte())
	assert.Equal(t, 30.0, r.GetLt())
}

func TestMapError(t *testing.T) {
	notFound := status.Error(codes.NotFound, "collection campus_docs not found")

	idx := &Index{}
	assert.Equal(t, notFound, idx.mapError(notFound), "a fresh handle trusts a missing collection")

	idx.guard.MarkWritten()
	assert.ErrorIs(t, idx.mapError(notFound), ragErrors.ErrIndexCorruption)
	assert.ErrorIs(t, idx.mapError(fmt.Errorf("Count() failed: %w", notFound)), ragErrors.ErrIndexCorruption)

	unavailable := status.Error(codes.Unavailable, "connection refused")
	assert.False(t, errors.Is(idx.mapError(unavailable), ragErrors.ErrIndexCorruption))

	idx.guard.MarkDeleted()
	assert.False(t, errors.Is(idx.mapError(notFound), ragErrors.ErrIndexCorruption))
}
