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
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/allanbutler/kg-rag-grocery/core"
	"github.com/allanbutler/kg-rag-grocery/graph"
	"github.com/allanbutler/kg-rag-grocery/query"
)

// ItemKind tags a graph retriever result.
type ItemKind uint8

const (
	// ItemFact is a compact relationship fact.
	ItemFact ItemKind = iota
	// ItemProduct is a scored product card.
	ItemProduct
)

func (k ItemKind) String() string {
	switch k {
	case ItemFact:
		return "graph_fact"
	case ItemProduct:
		return "product"
	default:
		return "unknown"
	}
}

// GraphItem is one graph retriever result: a fact or a product card.
type GraphItem struct {
	Kind ItemKind
	// Fact holds the fact text for ItemFact.
	Fact string
	// Product holds the card for ItemProduct. Source is always graph.
	Product core.Candidate
}

// GraphRetriever finds candidate products by traversing the entity graph
// one hop from nodes matching the query.
type GraphRetriever struct {
	graph  *graph.Graph
	logger *slog.Logger
}

// NewGraphRetriever creates a retriever over a loaded entity graph.
func NewGraphRetriever(g *graph.Graph, opts ...Option) (*GraphRetriever, error) {
	if g == nil {
		return nil, ErrGraphRequired
	}
	o, err := applyOptions("graph-retriever", opts)
	if err != nil {
		return nil, err
	}
	return &GraphRetriever{graph: g, logger: o.logger}, nil
}

// Search returns up to MaxFacts facts followed by up to k product cards.
// Only context cancellation is returned as an error.
func (r *GraphRetriever) Search(ctx context.Context, text string, k int) ([]GraphItem, error) {
	return r.search(ctx, query.Interpret(text), k)
}

func (r *GraphRetriever) search(ctx context.Context, c query.Constraints, k int) ([]GraphItem, error) {
	hits := r.seed(c)
	if len(hits) == 0 {
		return []GraphItem{}, nil
	}
	if len(hits) > MaxHitNodes {
		hits = hits[:MaxHitNodes]
	}

	// One-hop expansion. Products keep first-seen order.
	var products []graph.NodeHandle
	isProduct := make(map[graph.NodeHandle]bool)
	addProduct := func(h graph.NodeHandle) {
		if !isProduct[h] {
			isProduct[h] = true
			products = append(products, h)
		}
	}
	var facts []string
	for _, h := range hits {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hit := r.graph.Node(h)
		if hit.Label == core.LabelProduct {
			addProduct(h)
		}
		for _, adj := range r.graph.Neighbors(h) {
			neighbor := r.graph.Node(adj.Node)
			if neighbor.Label == core.LabelProduct {
				addProduct(adj.Node)
			}
			if len(facts) < MaxFacts {
				facts = append(facts, formatFact(hit, adj.Relation, neighbor))
			}
		}
	}

	cards := make([]core.Candidate, 0, len(products))
	for _, h := range products {
		card := r.card(h)
		card.Score = Score(c, &card)
		cards = append(cards, card)
	}
	slices.SortStableFunc(cards, func(a, b core.Candidate) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})

	items := make([]GraphItem, 0, len(facts)+min(k, len(cards)))
	for _, f := range facts {
		items = append(items, GraphItem{Kind: ItemFact, Fact: f})
	}

	seen := make(map[string]bool)
	kept := 0
	for _, card := range cards {
		if kept >= k {
			break
		}
		name := core.Normalize(card.Name)
		if name == "" || seen[name] {
			continue
		}
		if !satisfies(c, &card) {
			continue
		}
		seen[name] = true
		items = append(items, GraphItem{Kind: ItemProduct, Product: card})
		kept++
	}

	r.logger.Debug("graph search complete",
		"hits", len(hits),
		"products", len(products),
		"facts", len(facts),
		"cards", kept)
	return items, nil
}

// seed returns hit nodes: the attribute node of every wanted attribute,
// then nodes whose name contains a query token in arena order. Attribute
// nodes come first so the hit cap never drops them.
func (r *GraphRetriever) seed(c query.Constraints) []graph.NodeHandle {
	var hits []graph.NodeHandle
	inHits := make(map[graph.NodeHandle]bool)

	for _, tag := range c.WantedAttributes {
		h, ok := r.graph.Lookup(core.NodeKey(core.LabelAttribute, tag))
		if ok && !inHits[h] {
			hits = append(hits, h)
			inHits[h] = true
		}
	}

	if len(c.Tokens) == 0 {
		return hits
	}
	for h, n := range r.graph.Nodes() {
		if inHits[h] {
			continue
		}
		name := core.Normalize(n.Name())
		if name == "" {
			continue
		}
		for _, tok := range c.Tokens {
			if strings.Contains(name, tok) {
				hits = append(hits, h)
				inHits[h] = true
				break
			}
		}
	}
	return hits
}

// card builds a product card from a Product node. Attributes come from the
// node's Attribute neighbors.
func (r *GraphRetriever) card(h graph.NodeHandle) core.Candidate {
	n := r.graph.Node(h)
	id, ok := n.ProductID()
	if !ok {
		r.logger.Debug("product node without numeric id", "key", n.Key)
	}

	var attrs []string
	for _, adj := range r.graph.Neighbors(h) {
		neighbor := r.graph.Node(adj.Node)
		if neighbor.Label != core.LabelAttribute {
			continue
		}
		if name := core.Normalize(neighbor.Name()); name != "" {
			attrs = append(attrs, name)
		}
	}
	slices.Sort(attrs)

	return core.Candidate{
		ProductID:   id,
		Name:        n.Name(),
		Brand:       n.Attr(core.AttrBrand),
		Price:       n.Price(),
		Category:    n.Attr(core.AttrCategory),
		SubCategory: n.Attr(core.AttrSubCategory),
		Attributes:  slices.Compact(attrs),
		Source:      core.SourceGraph,
	}
}

// formatFact renders an edge as Label(name) -[REL]-> Label(name).
func formatFact(from *core.Node, rel core.Relation, to *core.Node) string {
	return fmt.Sprintf("%s(%s) -[%s]-> %s(%s)",
		from.Label, core.Normalize(from.Name()), rel, to.Label, core.Normalize(to.Name()))
}
