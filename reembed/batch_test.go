package reembed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allanbutler/kg-rag-grocery/ai/mock"
	"github.com/allanbutler/kg-rag-grocery/core"
)

func TestBatchProcessor_Process(t *testing.T) {
	stores := setupStores(t)
	ctx := context.Background()
	products := addProducts(t, stores, 2)

	processor := NewBatchProcessor(stores.Embeddings, unnormalized(), 3, time.Millisecond, 0)
	require.NoError(t, processor.Process(ctx, products))

	fps, err := stores.Embeddings.Fingerprints(ctx)
	require.NoError(t, err)
	assert.Len(t, fps, 2)
}

func TestBatchProcessor_EmptyBatch(t *testing.T) {
	stores := setupStores(t)
	embedder := unnormalized()

	processor := NewBatchProcessor(stores.Embeddings, embedder, 3, time.Millisecond, 0)
	require.NoError(t, processor.Process(context.Background(), []*core.Product{}))
	assert.Zero(t, embedder.CallCount(), "should not call embedder for empty batch")
}

func TestBatchProcessor_RetriesTransientErrors(t *testing.T) {
	stores := setupStores(t)
	products := addProducts(t, stores, 2)

	attempts := 0
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("temporary error")
		}
		return [][]float32{{1, 0}, {0, 1}}, nil
	}

	processor := NewBatchProcessor(stores.Embeddings, embedder, 3, time.Millisecond, 0)
	require.NoError(t, processor.Process(context.Background(), products))
	assert.Equal(t, 3, attempts)
}

func TestBatchProcessor_CountMismatch(t *testing.T) {
	stores := setupStores(t)
	products := addProducts(t, stores, 2)

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{1, 0}}, nil
	}

	processor := NewBatchProcessor(stores.Embeddings, embedder, 3, time.Millisecond, 0)
	err := processor.Process(context.Background(), products)
	assert.ErrorIs(t, err, ErrEmbeddingCountMismatch)
	assert.Equal(t, 1, embedder.CallCount(), "count mismatch is not retried")
}

func TestBatchProcessor_EmptyVector(t *testing.T) {
	stores := setupStores(t)
	products := addProducts(t, stores, 1)

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{}}, nil
	}

	processor := NewBatchProcessor(stores.Embeddings, embedder, 1, time.Millisecond, 0)
	assert.ErrorIs(t, processor.Process(context.Background(), products), ErrEmptyVector)
}
