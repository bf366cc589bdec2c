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
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/allanbutler/kg-rag-grocery/ai"
	"github.com/allanbutler/kg-rag-grocery/core"
	"github.com/allanbutler/kg-rag-grocery/storage"
)

// Config holds configuration for the embedding run.
type Config struct {
	// BatchSize is the number of products embedded per request
	BatchSize int

	// ReportInterval is how often to report progress (number of products)
	ReportInterval int

	// MaxRetries is the maximum number of attempts for failed embedding calls
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// MaxRetryDelay caps a single backoff delay
	MaxRetryDelay time.Duration

	// Workers is the size of the embedding worker pool
	Workers int

	// Force re-embeds products whose stored fingerprint is current
	Force bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
		MaxRetryDelay:  30 * time.Second,
		Workers:        max(runtime.NumCPU()/2, 1),
	}
}

// Stats summarizes an embedding run.
type Stats struct {
	Total    int
	Embedded int
	Skipped  int
	Elapsed  time.Duration
}

// Reembedder embeds every product whose stored embedding is missing or stale.
type Reembedder struct {
	products   storage.ProductRepository
	embeddings storage.EmbeddingRepository
	config     *Config
	progress   io.Writer
	processor  *BatchProcessor
	iterator   *ProductIterator
	logger     *slog.Logger
}

// NewReembedder creates a new reembedder.
// progress: where to write progress output (typically os.Stderr, nil for none)
func NewReembedder(
	products storage.ProductRepository,
	embeddings storage.EmbeddingRepository,
	embedder ai.Embedder,
	config *Config,
	progress io.Writer,
) (*Reembedder, error) {
	if products == nil {
		return nil, ErrProductRepositoryRequired
	}
	if embeddings == nil {
		return nil, ErrEmbeddingRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Reembedder{
		products:   products,
		embeddings: embeddings,
		config:     config,
		progress:   progress,
		processor:  NewBatchProcessor(embeddings, embedder, config.MaxRetries, config.RetryDelay, config.MaxRetryDelay),
		iterator:   NewProductIterator(products, config.BatchSize),
		logger:     slog.Default().With("component", "reembedder"),
	}, nil
}

// Run embeds the product table. Batches run concurrently on a worker pool;
// the first failing batch cancels the rest and its error is returned.
func (r *Reembedder) Run(ctx context.Context) (*Stats, error) {
	total, err := r.products.CountProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}
	stats := &Stats{Total: total}
	if total == 0 {
		fmt.Fprintf(r.progress, "No products found (0 products)\n")
		return stats, nil
	}

	current := map[int64]core.ID{}
	if !r.config.Force {
		current, err = r.embeddings.Fingerprints(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load fingerprints: %w", err)
		}
	}

	pool, err := ants.NewPool(max(r.config.Workers, 1))
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	fmt.Fprintf(r.progress, "Embedding %d products (batch size: %d, workers: %d)\n",
		total, r.iterator.batchSize, pool.Cap())

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		embedded int
		skipped  int
	)

	err = r.iterator.ForEach(runCtx, func(batch []*core.Product) error {
		stale := make([]*core.Product, 0, len(batch))
		for _, p := range batch {
			if fp, ok := current[p.ID]; ok && fp == p.Fingerprint() {
				continue
			}
			stale = append(stale, p)
		}
		if n := len(batch) - len(stale); n > 0 {
			tracker.Skip(n)
			mu.Lock()
			skipped += n
			mu.Unlock()
		}
		if len(stale) == 0 {
			return nil
		}

		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			if err := r.processor.Process(runCtx, stale); err != nil {
				r.logger.Error("error embedding batch", "first", stale[0].ID, "size", len(stale), "err", err)
				cancel(err)
				return
			}
			tracker.Increment(len(stale))
			mu.Lock()
			embedded += len(stale)
			mu.Unlock()
		})
		if submitErr != nil {
			wg.Done()
			return submitErr
		}
		return nil
	})
	wg.Wait()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if cause := context.Cause(runCtx); cause != nil {
		return nil, cause
	}
	if err != nil {
		return nil, err
	}

	tracker.Finish()
	stats.Embedded = embedded
	stats.Skipped = skipped
	stats.Elapsed = tracker.Elapsed()

	fmt.Fprintf(r.progress, "Embedding complete. %d embedded, %d unchanged in %v\n",
		stats.Embedded, stats.Skipped, stats.Elapsed.Round(time.Millisecond))
	r.logger.Info("embedding run complete",
		"total", stats.Total,
		"embedded", stats.Embedded,
		"skipped", stats.Skipped,
		"elapsed", stats.Elapsed)

	return stats, nil
}
