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

// Package graph holds the read-only entity graph linking products to their
// brands, categories, sub-categories, ingredients and attributes.
//
// Nodes live in a single slice and are addressed by NodeHandle. Adjacency is
// stored in compressed sparse row form, so iterating a node's neighbors walks
// one contiguous slice. A Graph is immutable once built and safe for
// concurrent readers.
package graph

import (
	"iter"

	"github.com/allanbutler/kg-rag-grocery/core"
)

// NodeHandle addresses a node inside a Graph.
type NodeHandle uint32

// Adjacent is one entry of a node's neighbor list.
type Adjacent struct {
	Node     NodeHandle
	Relation core.Relation
}

// Graph is an immutable, arena-backed undirected entity graph.
type Graph struct {
	nodes   []core.Node
	index   map[string]NodeHandle
	offsets []uint32 // offsets[h]..offsets[h+1] indexes adj for node h
	adj     []Adjacent
	edges   int
}

// Empty returns a graph with no nodes.
func Empty() *Graph {
	return &Graph{index: map[string]NodeHandle{}, offsets: []uint32{0}}
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// EdgeCount returns the number of undirected edges.
func (g *Graph) EdgeCount() int {
	return g.edges
}

// Node returns the node for h. The returned pointer must not be modified.
func (g *Graph) Node(h NodeHandle) *core.Node {
	return &g.nodes[h]
}

// Lookup resolves a node key to its handle.
func (g *Graph) Lookup(key string) (NodeHandle, bool) {
	h, ok := g.index[key]
	return h, ok
}

// Neighbors returns the adjacency list of h. The slice must not be modified.
func (g *Graph) Neighbors(h NodeHandle) []Adjacent {
	return g.adj[g.offsets[h]:g.offsets[h+1]]
}

// Nodes iterates all nodes in insertion order.
func (g *Graph) Nodes() iter.Seq2[NodeHandle, *core.Node] {
	return func(yield func(NodeHandle, *core.Node) bool) {
		for i := range g.nodes {
			if !yield(NodeHandle(i), &g.nodes[i]) {
				return
			}
		}
	}
}

// Edges iterates every undirected edge once, in insertion order of the
// source node.
func (g *Graph) Edges() iter.Seq[core.Edge] {
	return func(yield func(core.Edge) bool) {
		for i := range g.nodes {
			h := NodeHandle(i)
			for _, a := range g.Neighbors(h) {
				if a.Node < h {
					continue
				}
				e := core.Edge{From: g.nodes[h].Key, To: g.nodes[a.Node].Key, Relation: a.Relation}
				if !yield(e) {
					return
				}
			}
		}
	}
}
