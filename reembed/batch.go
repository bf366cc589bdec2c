// Copyright 2025 Allan Butler
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package reembed

import (
	"context"
	"fmt"
	"time"

	"github.com/allanbutler/kg-rag-grocery/ai"
	"github.com/allanbutler/kg-rag-grocery/core"
	"github.com/allanbutler/kg-rag-grocery/storage"
)

// BatchProcessor embeds batches of products and stores the vectors.
type BatchProcessor struct {
	repo           storage.EmbeddingRepository
	embedder       ai.Embedder
	maxRetries     int
	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
}

// NewBatchProcessor creates a new batch processor.
// maxRetries: maximum number of attempts for embedding API calls
// retryBaseDelay: base delay for exponential backoff
// retryMaxDelay: upper bound on a single backoff delay (0 for none)
func NewBatchProcessor(repo storage.EmbeddingRepository, embedder ai.Embedder, maxRetries int, retryBaseDelay, retryMaxDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		repo:           repo,
		embedder:       embedder,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
		retryMaxDelay:  retryMaxDelay,
	}
}

// Process embeds the index text of each product and stores the normalized
// vectors with the text fingerprints.
func (bp *BatchProcessor) Process(ctx context.Context, products []*core.Product) error {
	if len(products) == 0 {
		return nil
	}

	texts := make([]string, len(products))
	for i, p := range products {
		texts[i] = p.IndexText()
	}

	var vectors [][]float32
	err := RetryWithBackoff(ctx, func(ctx context.Context) error {
		var err error
		vectors, err = bp.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return err
		}
		if len(vectors) != len(texts) {
			return Permanent(fmt.Errorf("%w: expected %d, got %d", ErrEmbeddingCountMismatch, len(texts), len(vectors)))
		}
		return nil
	}, bp.maxRetries, bp.retryBaseDelay, bp.retryMaxDelay)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings: %w", err)
	}

	embeddings := make([]*core.Embedding, len(products))
	for i, p := range products {
		if len(vectors[i]) == 0 {
			return fmt.Errorf("product %d: %w", p.ID, ErrEmptyVector)
		}
		embeddings[i] = &core.Embedding{
			ProductID:   p.ID,
			Fingerprint: p.Fingerprint(),
			Vector:      core.NormalizeVector(vectors[i]),
		}
	}

	if err := bp.repo.PutEmbeddings(ctx, embeddings...); err != nil {
		return fmt.Errorf("failed to store embeddings: %w", err)
	}
	return nil
}
