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

package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"time"

	"github.com/allanbutler/kg-rag-grocery/ai"
	"github.com/allanbutler/kg-rag-grocery/core"
	"github.com/allanbutler/kg-rag-grocery/reembed"
	"github.com/allanbutler/kg-rag-grocery/storage"
)

// Report summarizes one Prepare run.
type Report struct {
	Products  int
	Skipped   int // Rows rejected while loading
	Nodes     int
	Edges     int
	Embedded  int
	Unchanged int
	Elapsed   time.Duration
}

// Pipeline prepares the product, graph and embedding stores.
type Pipeline struct {
	products   storage.ProductRepository
	graphs     storage.GraphRepository
	embeddings storage.EmbeddingRepository
	embedder   ai.Embedder
	poolSize   int
	batchSize  int
	force      bool
	maxRetries int
	retryDelay time.Duration
	progress   io.Writer
	logger     *slog.Logger
	stages     []stage
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the embedding worker pool size.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		p.poolSize = max(size, 1)
		return nil
	}
}

// WithBatchSize sets how many products are embedded per request.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return fmt.Errorf("batch size must be positive, got %d", size)
		}
		p.batchSize = size
		return nil
	}
}

// WithForce re-embeds every product even when its stored vector is current.
func WithForce(force bool) Option {
	return func(p *Pipeline) error {
		p.force = force
		return nil
	}
}

// WithRetry sets how many attempts an embedding request gets and the base
// backoff delay between them.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(p *Pipeline) error {
		if maxAttempts < 1 {
			return fmt.Errorf("retry attempts must be positive, got %d", maxAttempts)
		}
		p.maxRetries = maxAttempts
		p.retryDelay = baseDelay
		return nil
	}
}

// WithProgress sets where embedding progress is written. Default is io.Discard.
func WithProgress(w io.Writer) Option {
	return func(p *Pipeline) error {
		if w == nil {
			w = io.Discard
		}
		p.progress = w
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a preparation pipeline. embeddings and embedder may
// both be nil, in which case the embedding stage is skipped and queries fall
// back to keyword matching.
func NewPipeline(
	products storage.ProductRepository,
	graphs storage.GraphRepository,
	embeddings storage.EmbeddingRepository,
	embedder ai.Embedder,
	opts ...Option,
) (*Pipeline, error) {
	if products == nil {
		return nil, ErrProductRepositoryRequired
	}
	if graphs == nil {
		return nil, ErrGraphRepositoryRequired
	}

	p := &Pipeline{
		products:   products,
		graphs:     graphs,
		embeddings: embeddings,
		embedder:   embedder,
		poolSize:   max(runtime.NumCPU()/2, 1),
		batchSize:  reembed.DefaultBatchSize,
		progress:   io.Discard,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	p.logger = p.logger.With("component", "ingest")

	p.stages = []stage{
		&productStage{repo: products, logger: p.logger},
		&graphStage{products: products, graphs: graphs, logger: p.logger},
	}

	if embeddings == nil || embedder == nil {
		p.logger.Warn("embedding stage disabled; vector search will use keyword fallback")
		return p, nil
	}

	config := reembed.DefaultConfig()
	config.BatchSize = p.batchSize
	config.Workers = p.poolSize
	config.Force = p.force
	if p.maxRetries > 0 {
		config.MaxRetries = p.maxRetries
		config.RetryDelay = p.retryDelay
	}
	es, err := newEmbeddingStage(products, embeddings, embedder, config, p.progress, p.logger)
	if err != nil {
		return nil, err
	}
	p.stages = append(p.stages, es)
	return p, nil
}

// Prepare stores products, rebuilds the graph and embeds changed products.
// Stages run in order; the first failure stops the run.
func (p *Pipeline) Prepare(ctx context.Context, products []*core.Product) (*Report, error) {
	start := time.Now()
	report := &Report{}
	for _, s := range p.stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p.logger.Debug("running stage", "stage", s.name())
		if err := s.run(ctx, products, report); err != nil {
			return nil, fmt.Errorf("%s stage: %w", s.name(), err)
		}
	}
	report.Elapsed = time.Since(start)
	p.logger.Info("preparation complete",
		"products", report.Products,
		"nodes", report.Nodes,
		"edges", report.Edges,
		"embedded", report.Embedded,
		"unchanged", report.Unchanged,
		"elapsed", report.Elapsed)
	return report, nil
}

// PrepareFile loads a product table from path and prepares the stores from it.
func (p *Pipeline) PrepareFile(ctx context.Context, path string) (*Report, error) {
	loaded, err := LoadProducts(path)
	if err != nil {
		return nil, err
	}
	report, err := p.Prepare(ctx, loaded.Products)
	if err != nil {
		return nil, err
	}
	report.Skipped = loaded.Skipped
	return report, nil
}
