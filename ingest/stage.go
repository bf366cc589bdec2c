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

	"github.com/allanbutler/kg-rag-grocery/ai"
	"github.com/allanbutler/kg-rag-grocery/core"
	"github.com/allanbutler/kg-rag-grocery/graph"
	"github.com/allanbutler/kg-rag-grocery/reembed"
	"github.com/allanbutler/kg-rag-grocery/storage"
)

// stage is one step of store preparation. Stages run in order and each
// records what it did in the report.
type stage interface {
	name() string
	run(ctx context.Context, products []*core.Product, report *Report) error
}

// productStage makes the product table the whole stored catalog.
type productStage struct {
	repo   storage.ProductRepository
	logger *slog.Logger
}

func (s *productStage) name() string { return "products" }

func (s *productStage) run(ctx context.Context, products []*core.Product, report *Report) error {
	if len(products) == 0 {
		s.logger.Warn("no products to store, clearing catalog")
	}
	if err := s.repo.ReplaceProducts(ctx, products...); err != nil {
		return fmt.Errorf("storing products: %w", err)
	}
	report.Products = len(products)
	s.logger.Info("stored products", "count", len(products))
	return nil
}

// graphStage rebuilds the entity graph from the stored product table.
type graphStage struct {
	products storage.ProductRepository
	graphs   storage.GraphRepository
	logger   *slog.Logger
}

func (s *graphStage) name() string { return "graph" }

func (s *graphStage) run(ctx context.Context, _ []*core.Product, report *Report) error {
	stored, err := s.products.ListProducts(ctx)
	if err != nil {
		return fmt.Errorf("listing products: %w", err)
	}
	g, err := graph.FromProducts(stored)
	if err != nil {
		return fmt.Errorf("building graph: %w", err)
	}

	nodes := make([]core.Node, 0, g.Len())
	for _, n := range g.Nodes() {
		nodes = append(nodes, *n)
	}
	edges := make([]core.Edge, 0, g.EdgeCount())
	for e := range g.Edges() {
		edges = append(edges, e)
	}

	if err := s.graphs.SaveGraph(ctx, nodes, edges); err != nil {
		return fmt.Errorf("saving graph: %w", err)
	}
	report.Nodes = len(nodes)
	report.Edges = len(edges)
	s.logger.Info("saved graph", "nodes", len(nodes), "edges", len(edges))
	return nil
}

// embeddingStage embeds products whose stored vector is missing or stale
// and drops vectors of products no longer in the catalog.
type embeddingStage struct {
	products   storage.ProductRepository
	embeddings storage.EmbeddingRepository
	reembedder *reembed.Reembedder
	logger     *slog.Logger
}

func newEmbeddingStage(products storage.ProductRepository, embeddings storage.EmbeddingRepository,
	embedder ai.Embedder, config *reembed.Config, progress io.Writer, logger *slog.Logger) (*embeddingStage, error) {
	r, err := reembed.NewReembedder(products, embeddings, embedder, config, progress)
	if err != nil {
		return nil, err
	}
	return &embeddingStage{products: products, embeddings: embeddings, reembedder: r, logger: logger}, nil
}

func (s *embeddingStage) name() string { return "embeddings" }

func (s *embeddingStage) run(ctx context.Context, _ []*core.Product, report *Report) error {
	if err := s.prune(ctx); err != nil {
		return err
	}
	stats, err := s.reembedder.Run(ctx)
	if err != nil {
		return fmt.Errorf("embedding products: %w", err)
	}
	report.Embedded = stats.Embedded
	report.Unchanged = stats.Skipped
	return nil
}

// prune deletes embeddings whose product is gone from the stored table.
func (s *embeddingStage) prune(ctx context.Context) error {
	stored, err := s.products.ListProducts(ctx)
	if err != nil {
		return fmt.Errorf("listing products: %w", err)
	}
	current := make(map[int64]struct{}, len(stored))
	for _, p := range stored {
		current[p.ID] = struct{}{}
	}
	fps, err := s.embeddings.Fingerprints(ctx)
	if err != nil {
		return fmt.Errorf("reading fingerprints: %w", err)
	}
	var stale []int64
	for id := range fps {
		if _, ok := current[id]; !ok {
			stale = append(stale, id)
		}
	}
	if len(stale) == 0 {
		return nil
	}
	if err := s.embeddings.DeleteEmbeddings(ctx, stale...); err != nil {
		return fmt.Errorf("deleting stale embeddings: %w", err)
	}
	s.logger.Info("deleted stale embeddings", "count", len(stale))
	return nil
}
