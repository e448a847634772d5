package index

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amitakki/ocr-chatqa/ai/mock"
	"github.com/amitakki/ocr-chatqa/core"
	"github.com/amitakki/ocr-chatqa/storage"
	"github.com/amitakki/ocr-chatqa/storage/badger"
)

func newTestManager(t *testing.T, model string) (*Manager, storage.ChunkIndex, *mock.MockEmbedder) {
	t.Helper()

	registry, chunkIndex, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() {
		registry.Close()
		backend.Close()
	})

	embedder := mock.NewMockEmbedder()
	provider := mock.NewMockProviderWithEmbedder(embedder, model)
	manager := NewManager(chunkIndex, provider, WithRetryDelay(time.Millisecond))
	return manager, chunkIndex, embedder
}

func makeChunks(docID core.ID, texts ...string) []*core.Chunk {
	chunks := make([]*core.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = &core.Chunk{
			Id:         core.IDFromContent(fmt.Sprintf("%d:%d:%s", docID, i, text)),
			DocumentId: docID,
			Seq:        i,
			Page:       1,
			Text:       text,
		}
	}
	return chunks
}

func TestManagerUpsertAndQuery(t *testing.T) {
	manager, _, _ := newTestManager(t, "m1")
	ctx := context.Background()

	require.NoError(t, manager.Upsert(ctx, 1, makeChunks(1,
		"Wind turbine blade inspection procedure.",
		"Gearbox oil sampling intervals and thresholds.",
	)))
	require.NoError(t, manager.Upsert(ctx, 2, makeChunks(2,
		"Office catering menu for the quarterly meeting.",
	)))

	// The mock embedder is deterministic: querying with a chunk's exact
	// text embeds to the same vector, so that chunk scores highest.
	results, err := manager.Query(ctx, "Gearbox oil sampling intervals and thresholds.", 3, nil)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "Gearbox oil sampling intervals and thresholds.", results[0].Chunk.Text)
	assert.Equal(t, core.ID(1), results[0].Chunk.DocumentId)
}

func TestManagerUpsertEmbeddingFailure(t *testing.T) {
	manager, chunkIndex, embedder := newTestManager(t, "m1")
	ctx := context.Background()

	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("service unavailable")
	}

	err := manager.Upsert(ctx, 5, makeChunks(5, "some text"))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrEmbeddingFailed)

	// Nothing was committed
	count, err := chunkIndex.Count(ctx, 5)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestManagerUpsertCountMismatch(t *testing.T) {
	manager, _, embedder := newTestManager(t, "m1")

	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{1, 0}}, nil
	}

	err := manager.Upsert(context.Background(), 5, makeChunks(5, "one", "two"))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrEmbeddingFailed)
	assert.ErrorIs(t, err, ErrEmbeddingCountMismatch)
}

func TestManagerDeleteIdempotent(t *testing.T) {
	manager, chunkIndex, _ := newTestManager(t, "m1")
	ctx := context.Background()

	require.NoError(t, manager.Upsert(ctx, 3, makeChunks(3, "to be removed")))
	require.NoError(t, manager.Delete(ctx, 3))

	count, err := chunkIndex.Count(ctx, 3)
	require.NoError(t, err)
	assert.Zero(t, count)

	// Deleting an absent document is a no-op
	require.NoError(t, manager.Delete(ctx, 3))
	require.NoError(t, manager.Delete(ctx, 999))
}

func TestManagerNeedsRebuild(t *testing.T) {
	ctx := context.Background()

	registry, chunkIndex, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	defer func() { registry.Close(); backend.Close() }()

	oldProvider := mock.NewMockProviderWithEmbedder(mock.NewMockEmbedder(), "model-a")
	oldManager := NewManager(chunkIndex, oldProvider, WithRetryDelay(time.Millisecond))

	// Empty index never needs a rebuild
	needs, err := oldManager.NeedsRebuild(ctx)
	require.NoError(t, err)
	assert.False(t, needs)

	require.NoError(t, oldManager.Upsert(ctx, 1, makeChunks(1, "indexed under model-a")))

	needs, err = oldManager.NeedsRebuild(ctx)
	require.NoError(t, err)
	assert.False(t, needs, "same model, no rebuild")

	newProvider := mock.NewMockProviderWithEmbedder(mock.NewMockEmbedder(), "model-b")
	newManager := NewManager(chunkIndex, newProvider, WithRetryDelay(time.Millisecond))

	needs, err = newManager.NeedsRebuild(ctx)
	require.NoError(t, err)
	assert.True(t, needs, "model changed, rebuild required")
}

func TestRebuilderRun(t *testing.T) {
	ctx := context.Background()

	registry, chunkIndex, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	defer func() { registry.Close(); backend.Close() }()

	oldProvider := mock.NewMockProviderWithEmbedder(mock.NewMockEmbedder(), "model-a")
	oldManager := NewManager(chunkIndex, oldProvider, WithRetryDelay(time.Millisecond))

	require.NoError(t, oldManager.Upsert(ctx, 1, makeChunks(1, "first document", "first document continued")))
	require.NoError(t, oldManager.Upsert(ctx, 2, makeChunks(2, "second document")))

	newProvider := mock.NewMockProviderWithEmbedder(mock.NewMockEmbedder(), "model-b")
	newManager := NewManager(chunkIndex, newProvider, WithRetryDelay(time.Millisecond))

	rebuilder := NewRebuilder(newManager, io.Discard)
	require.NoError(t, rebuilder.Run(ctx))

	// All chunk sets survive under the new model identity
	needs, err := newManager.NeedsRebuild(ctx)
	require.NoError(t, err)
	assert.False(t, needs)

	count, err := chunkIndex.Count(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = chunkIndex.Count(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRebuilderEmptyIndex(t *testing.T) {
	manager, _, _ := newTestManager(t, "m1")

	rebuilder := NewRebuilder(manager, io.Discard)
	require.NoError(t, rebuilder.Run(context.Background()))
}
