package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/promorag/internal/corpus"
	"github.com/fyrsmithlabs/promorag/internal/logging"
)

const testDim = 4

func testChunks() ([]corpus.Chunk, [][]float32) {
	chunks := []corpus.Chunk{
		{ID: "c1", Text: "SLA на ответ 24 часа", Meta: corpus.Metadata{DocumentName: "sla.pdf", Page: 2, SLA: []string{"24 часа"}}},
		{ID: "c2", Text: "Контакт: @promo_lead", Meta: corpus.Metadata{DocumentName: "team.docx", Type: "contact"}},
		{ID: "c3", Text: "Форма заявки", Meta: corpus.Metadata{DocumentName: "forms.xlsx", SourceType: "excel_row_chunk"}},
	}
	vectors := [][]float32{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0.6, 0.8, 0, 0},
	}
	return chunks, vectors
}

func newMemoryChromem(t *testing.T) (*Chromem, *logging.TestLogger) {
	t.Helper()
	logger := logging.NewTestLogger()
	idx, err := NewChromem(ChromemConfig{Dimension: testDim}, logger.Underlying())
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx, logger
}

func TestChromem_AddSearch(t *testing.T) {
	ctx := context.Background()
	idx, _ := newMemoryChromem(t)
	chunks, vectors := testChunks()

	require.NoError(t, idx.Add(ctx, chunks, vectors))

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, testDim, idx.Dimension())

	hits, err := idx.Search(ctx, []float32{1, 0, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, "c1", hits[0].Chunk.ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-5)
	assert.Equal(t, "SLA на ответ 24 часа", hits[0].Chunk.Text)
	assert.Equal(t, chunks[0].Meta, hits[0].Chunk.Meta)

	assert.Equal(t, "c3", hits[1].Chunk.ID)
	assert.InDelta(t, 0.6, hits[1].Score, 1e-5)
	assert.Equal(t, "excel_row_chunk", hits[1].Chunk.Meta.SourceType)
}

func TestChromem_SearchCapsKAtCount(t *testing.T) {
	ctx := context.Background()
	idx, _ := newMemoryChromem(t)
	chunks, vectors := testChunks()
	require.NoError(t, idx.Add(ctx, chunks, vectors))

	hits, err := idx.Search(ctx, []float32{0, 1, 0, 0}, 20)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}
}

func TestChromem_SearchEdgeCases(t *testing.T) {
	ctx := context.Background()

	t.Run("empty index", func(t *testing.T) {
		idx, _ := newMemoryChromem(t)
		hits, err := idx.Search(ctx, []float32{1, 0, 0, 0}, 5)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("dimension mismatch logs and returns nothing", func(t *testing.T) {
		idx, logger := newMemoryChromem(t)
		chunks, vectors := testChunks()
		require.NoError(t, idx.Add(ctx, chunks, vectors))

		hits, err := idx.Search(ctx, []float32{1, 0}, 5)
		require.NoError(t, err)
		assert.Empty(t, hits)
		logger.AssertLogged(t, zapcore.ErrorLevel, "dimension mismatch")
	})

	t.Run("non-positive k", func(t *testing.T) {
		idx, _ := newMemoryChromem(t)
		chunks, vectors := testChunks()
		require.NoError(t, idx.Add(ctx, chunks, vectors))

		hits, err := idx.Search(ctx, []float32{1, 0, 0, 0}, 0)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})
}

func TestChromem_AddValidation(t *testing.T) {
	ctx := context.Background()
	idx, _ := newMemoryChromem(t)
	chunks, vectors := testChunks()

	err := idx.Add(ctx, chunks, vectors[:2])
	assert.ErrorIs(t, err, ErrLengthMismatch)

	bad := [][]float32{{1, 0, 0, 0}, {1, 0}, {0, 0, 1, 0}}
	err = idx.Add(ctx, chunks, bad)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "rejected batches store nothing")

	require.NoError(t, idx.Add(ctx, nil, nil))
}

func TestChromem_ReAddReplaces(t *testing.T) {
	ctx := context.Background()
	idx, _ := newMemoryChromem(t)
	chunks, vectors := testChunks()

	require.NoError(t, idx.Add(ctx, chunks, vectors))
	require.NoError(t, idx.Add(ctx, chunks, vectors))

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestChromem_Reset(t *testing.T) {
	ctx := context.Background()
	idx, _ := newMemoryChromem(t)
	chunks, vectors := testChunks()
	require.NoError(t, idx.Add(ctx, chunks, vectors))

	require.NoError(t, idx.Reset(ctx))

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, idx.Add(ctx, chunks[:1], vectors[:1]))
	n, err = idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestChromem_Persistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := ChromemConfig{Path: dir, Dimension: testDim, Collection: "persist_test"}

	idx, err := NewChromem(cfg, nil)
	require.NoError(t, err)
	chunks, vectors := testChunks()
	require.NoError(t, idx.Add(ctx, chunks, vectors))
	require.NoError(t, idx.Close())

	reopened, err := NewChromem(cfg, nil)
	require.NoError(t, err)
	defer reopened.Close()

	n, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	hits, err := reopened.Search(ctx, []float32{0, 1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "c2", hits[0].Chunk.ID)
	assert.Equal(t, "contact", hits[0].Chunk.Meta.Type)
}

func TestChromemConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ChromemConfig
		wantErr error
	}{
		{"valid", ChromemConfig{Dimension: 8, Collection: "chunks"}, nil},
		{"zero dimension", ChromemConfig{Collection: "chunks"}, ErrInvalidConfig},
		{"bad collection", ChromemConfig{Dimension: 8, Collection: "../etc"}, ErrInvalidCollectionName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
