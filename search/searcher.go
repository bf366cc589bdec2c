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

package search

import (
	"cmp"
	"context"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/allanbutler/kg-rag-grocery/ai"
	"github.com/allanbutler/kg-rag-grocery/catalog"
	"github.com/allanbutler/kg-rag-grocery/core"
	"github.com/allanbutler/kg-rag-grocery/graph"
	"github.com/allanbutler/kg-rag-grocery/query"
	"github.com/allanbutler/kg-rag-grocery/storage"
)

// Result is the outcome of one hybrid search.
type Result struct {
	QueryID     uuid.UUID
	Query       string
	Constraints query.Constraints
	// Candidates holds at most MaxCandidates entries ordered by
	// (source rank, price).
	Candidates []core.Candidate
	// Contexts holds vector snippets, graph facts and product lines, capped
	// at MaxContextSnippets.
	Contexts []string
}

// Searcher provides hybrid graph and vector search over a product catalog.
type Searcher struct {
	graph   *GraphRetriever
	vector  *VectorRetriever
	table   *catalog.Table
	logger  *slog.Logger
	monitor SearchMonitor
}

// NewSearcher creates a new searcher over loaded stores. index and embedder
// may both be nil, in which case vector retrieval uses the substring fallback.
func NewSearcher(
	g *graph.Graph,
	table *catalog.Table,
	index storage.SimilarityIndex,
	embedder ai.Embedder,
	opts ...Option,
) (*Searcher, error) {
	if g == nil {
		return nil, ErrGraphRequired
	}
	if table == nil {
		return nil, ErrProductTableRequired
	}

	o, err := applyOptions("searcher", opts)
	if err != nil {
		return nil, err
	}

	graphRetriever, err := NewGraphRetriever(g, opts...)
	if err != nil {
		return nil, err
	}
	vectorRetriever, err := NewVectorRetriever(table, index, embedder, opts...)
	if err != nil {
		return nil, err
	}

	return &Searcher{
		graph:   graphRetriever,
		vector:  vectorRetriever,
		table:   table,
		logger:  o.logger,
		monitor: o.monitor,
	}, nil
}

// Search runs a hybrid search with the configured monitor.
func (s *Searcher) Search(ctx context.Context, text string) (*Result, error) {
	return s.SearchWithMonitor(ctx, text, s.monitor)
}

// SearchWithMonitor runs a hybrid search. The monitor receives callbacks at
// each stage of the search process. Per-entry failures are absorbed; only
// context cancellation is returned as an error.
func (s *Searcher) SearchWithMonitor(ctx context.Context, text string, monitor SearchMonitor) (*Result, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	queryID := uuid.New()
	logger := s.logger.With("query_id", queryID.String())
	monitor.Start(queryID, text)

	constraints := query.Interpret(text)
	monitor.AfterInterpret(constraints)

	var (
		snippets []Snippet
		items    []GraphItem
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		snippets, err = s.vector.Search(groupCtx, text, VectorK)
		return err
	})
	group.Go(func() error {
		var err error
		items, err = s.graph.search(groupCtx, constraints, GraphK)
		return err
	})
	if err := group.Wait(); err != nil {
		logger.Warn("search cancelled", "err", err)
		return nil, err
	}
	monitor.AfterVectorSearch(snippets)
	monitor.AfterGraphSearch(items)

	contexts := make([]string, 0, len(snippets)+len(items))
	for _, sn := range snippets {
		contexts = append(contexts, sn.Text)
	}
	var cards []core.Candidate
	for _, item := range items {
		switch item.Kind {
		case ItemFact:
			contexts = append(contexts, item.Fact)
		case ItemProduct:
			cards = append(cards, item.Product)
			contexts = append(contexts, formatProductLine(&item.Product))
		}
	}
	if len(contexts) > MaxContextSnippets {
		contexts = contexts[:MaxContextSnippets]
	}

	merged := make([]core.Candidate, 0, len(cards)+len(snippets))
	for _, card := range cards {
		merged = append(merged, s.table.EnrichByID(card))
	}
	for _, sn := range snippets {
		cand, ok := ParseSnippet(sn.Text)
		if !ok {
			logger.Debug("dropping unparseable snippet", "text", sn.Text)
			monitor.DroppedSnippet(sn.Text)
			continue
		}
		cand.Score = float64(sn.Score)
		merged = append(merged, s.table.EnrichByName(cand))
	}

	result := &Result{
		QueryID:     queryID,
		Query:       text,
		Constraints: constraints,
		Candidates:  s.rank(constraints, merged, monitor),
		Contexts:    contexts,
	}
	logger.Debug("search complete",
		"snippets", len(snippets),
		"graphItems", len(items),
		"candidates", len(result.Candidates),
		"contexts", len(result.Contexts))
	monitor.Finish(result)
	return result, nil
}

// rank deduplicates merged by normalized name (first wins), applies the hard
// filters, orders by (source rank, price) and keeps the top MaxCandidates.
func (s *Searcher) rank(c query.Constraints, merged []core.Candidate, monitor SearchMonitor) []core.Candidate {
	seen := make(map[string]bool, len(merged))
	out := make([]core.Candidate, 0, len(merged))
	for _, cand := range merged {
		name := core.Normalize(cand.Name)
		if seen[name] {
			monitor.Filtered(cand, ReasonDuplicate)
			continue
		}
		seen[name] = true
		if !c.WithinBudget(cand.Price) {
			monitor.Filtered(cand, ReasonOverBudget)
			continue
		}
		if !cand.HasAttributes(c.WantedAttributes) {
			monitor.Filtered(cand, ReasonMissingAttr)
			continue
		}
		out = append(out, cand)
	}

	slices.SortStableFunc(out, func(a, b core.Candidate) int {
		if r := cmp.Compare(a.Source.Rank(), b.Source.Rank()); r != 0 {
			return r
		}
		return cmp.Compare(a.Price, b.Price)
	})
	if len(out) > MaxCandidates {
		out = out[:MaxCandidates]
	}
	return out
}
