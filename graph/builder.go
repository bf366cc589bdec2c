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

package graph

import (
	"fmt"
	"maps"
	"strconv"

	"github.com/allanbutler/kg-rag-grocery/core"
)

type pendingEdge struct {
	from, to NodeHandle
	relation core.Relation
}

// Builder accumulates nodes and edges and produces an immutable Graph.
// A Builder is not safe for concurrent use.
type Builder struct {
	nodes []core.Node
	index map[string]NodeHandle
	edges []pendingEdge
	seen  map[[2]NodeHandle]int // Pair to index in edges
	// Edges whose endpoints were not added yet; resolved in Build.
	deferred []core.Edge
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		index: make(map[string]NodeHandle),
		seen:  make(map[[2]NodeHandle]int),
	}
}

// AddNode adds a node or merges attributes into an existing node with the
// same key. Nodes that fail validation are rejected.
func (b *Builder) AddNode(n core.Node) error {
	if err := core.ValidateNode(&n); err != nil {
		return err
	}
	if h, ok := b.index[n.Key]; ok {
		existing := &b.nodes[h]
		if existing.Attrs == nil {
			existing.Attrs = make(map[string]string, len(n.Attrs))
		}
		maps.Copy(existing.Attrs, n.Attrs)
		return nil
	}
	attrs := make(map[string]string, len(n.Attrs))
	maps.Copy(attrs, n.Attrs)
	n.Attrs = attrs
	b.index[n.Key] = NodeHandle(len(b.nodes))
	b.nodes = append(b.nodes, n)
	return nil
}

// AddEdge records an undirected edge. Endpoints may be added after the edge;
// they are resolved in Build. Adding the same pair twice keeps the most
// recent relation, matching a simple graph.
func (b *Builder) AddEdge(e core.Edge) error {
	if err := core.ValidateEdge(&e); err != nil {
		return err
	}
	from, okFrom := b.index[e.From]
	to, okTo := b.index[e.To]
	if !okFrom || !okTo {
		b.deferred = append(b.deferred, e)
		return nil
	}
	b.addResolved(from, to, e.Relation)
	return nil
}

func (b *Builder) addResolved(from, to NodeHandle, rel core.Relation) {
	pair := [2]NodeHandle{min(from, to), max(from, to)}
	if i, ok := b.seen[pair]; ok {
		b.edges[i].relation = rel
		return
	}
	b.seen[pair] = len(b.edges)
	b.edges = append(b.edges, pendingEdge{from: from, to: to, relation: rel})
}

// Build resolves deferred edges and returns the immutable graph. It fails
// with core.ErrDanglingEdge when an edge references a node that was never
// added.
func (b *Builder) Build() (*Graph, error) {
	for _, e := range b.deferred {
		from, okFrom := b.index[e.From]
		to, okTo := b.index[e.To]
		if !okFrom || !okTo {
			return nil, fmt.Errorf("%w: %s -[%s]-> %s", core.ErrDanglingEdge, e.From, e.Relation, e.To)
		}
		b.addResolved(from, to, e.Relation)
	}
	b.deferred = nil

	degree := make([]uint32, len(b.nodes)+1)
	for _, e := range b.edges {
		degree[e.from]++
		if e.from != e.to {
			degree[e.to]++
		}
	}
	offsets := make([]uint32, len(b.nodes)+1)
	for i := 0; i < len(b.nodes); i++ {
		offsets[i+1] = offsets[i] + degree[i]
	}
	adj := make([]Adjacent, offsets[len(b.nodes)])
	fill := make([]uint32, len(b.nodes))
	copy(fill, offsets[:len(b.nodes)])
	for _, e := range b.edges {
		adj[fill[e.from]] = Adjacent{Node: e.to, Relation: e.relation}
		fill[e.from]++
		if e.from != e.to {
			adj[fill[e.to]] = Adjacent{Node: e.from, Relation: e.relation}
			fill[e.to]++
		}
	}

	nodes := make([]core.Node, len(b.nodes))
	copy(nodes, b.nodes)
	index := make(map[string]NodeHandle, len(b.index))
	maps.Copy(index, b.index)

	return &Graph{
		nodes:   nodes,
		index:   index,
		offsets: offsets,
		adj:     adj,
		edges:   len(b.edges),
	}, nil
}

// AddProduct adds a product and its brand, sub-category, category,
// ingredient and attribute entities, linked the same way the catalog
// graph has always been shaped:
//
//	product -MADE_BY-> brand
//	product -IN_SUBCATEGORY-> subcat
//	subcat  -IN_CATEGORY-> category
//	product -HAS_INGREDIENT-> ing   (comma-split, lowercased)
//	product -HAS_ATTRIBUTE-> attr   (semicolon-split, lowercased)
func (b *Builder) AddProduct(p *core.Product) error {
	if err := core.ValidateProduct(p); err != nil {
		return err
	}

	productKey := core.NodeKey(core.LabelProduct, strconv.FormatInt(p.ID, 10))
	brandKey := core.NodeKey(core.LabelBrand, p.Brand)
	categoryKey := core.NodeKey(core.LabelCategory, p.Category)
	subcatKey := core.NodeKey(core.LabelSubCategory, p.SubCategory)

	nodes := []core.Node{
		{Key: productKey, Label: core.LabelProduct, Attrs: map[string]string{
			core.AttrName:        p.Name,
			core.AttrBrand:       p.Brand,
			core.AttrCategory:    p.Category,
			core.AttrSubCategory: p.SubCategory,
			core.AttrPrice:       strconv.FormatFloat(p.Price, 'f', -1, 64),
		}},
	}
	edges := []core.Edge{}
	if p.Brand != "" {
		nodes = append(nodes, core.Node{Key: brandKey, Label: core.LabelBrand, Attrs: map[string]string{core.AttrName: p.Brand}})
		edges = append(edges, core.Edge{From: productKey, To: brandKey, Relation: core.RelationMadeBy})
	}
	if p.SubCategory != "" {
		nodes = append(nodes, core.Node{Key: subcatKey, Label: core.LabelSubCategory, Attrs: map[string]string{core.AttrName: p.SubCategory}})
		edges = append(edges, core.Edge{From: productKey, To: subcatKey, Relation: core.RelationInSubCategory})
		if p.Category != "" {
			edges = append(edges, core.Edge{From: subcatKey, To: categoryKey, Relation: core.RelationInCategory})
		}
	}
	if p.Category != "" {
		nodes = append(nodes, core.Node{Key: categoryKey, Label: core.LabelCategory, Attrs: map[string]string{core.AttrName: p.Category}})
	}
	for _, ing := range p.IngredientList() {
		key := core.NodeKey(core.LabelIngredient, ing)
		nodes = append(nodes, core.Node{Key: key, Label: core.LabelIngredient, Attrs: map[string]string{core.AttrName: ing}})
		edges = append(edges, core.Edge{From: productKey, To: key, Relation: core.RelationHasIngredient})
	}
	for _, attr := range p.AttributeSet() {
		key := core.NodeKey(core.LabelAttribute, attr)
		nodes = append(nodes, core.Node{Key: key, Label: core.LabelAttribute, Attrs: map[string]string{core.AttrName: attr}})
		edges = append(edges, core.Edge{From: productKey, To: key, Relation: core.RelationHasAttribute})
	}

	for _, n := range nodes {
		if err := b.AddNode(n); err != nil {
			return err
		}
	}
	for _, e := range edges {
		if err := b.AddEdge(e); err != nil {
			return err
		}
	}
	return nil
}

// FromProducts builds the entity graph for a product table.
func FromProducts(products []*core.Product) (*Graph, error) {
	b := NewBuilder()
	for _, p := range products {
		if err := b.AddProduct(p); err != nil {
			return nil, fmt.Errorf("adding product %d: %w", productID(p), err)
		}
	}
	return b.Build()
}

// FromStored builds a graph from persisted nodes and edges, skipping
// entries that fail validation and edges whose endpoints are missing. It
// returns the number of skipped entries.
func FromStored(nodes []core.Node, edges []core.Edge) (*Graph, int, error) {
	b := NewBuilder()
	skipped := 0
	for _, n := range nodes {
		if err := b.AddNode(n); err != nil {
			skipped++
		}
	}
	for _, e := range edges {
		_, okFrom := b.index[e.From]
		_, okTo := b.index[e.To]
		if !okFrom || !okTo {
			skipped++
			continue
		}
		if err := b.AddEdge(e); err != nil {
			skipped++
		}
	}
	g, err := b.Build()
	return g, skipped, err
}

func productID(p *core.Product) int64 {
	if p == nil {
		return 0
	}
	return p.ID
}
