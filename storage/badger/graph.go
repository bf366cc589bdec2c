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

package badger

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/allanbutler/kg-rag-grocery/core"
	"github.com/allanbutler/kg-rag-grocery/storage"
)

// GraphRepository implements storage.GraphRepository for BadgerDB.
type GraphRepository struct {
	backend *Backend
}

var _ storage.GraphRepository = (*GraphRepository)(nil)

// NewGraphRepository creates a new GraphRepository.
func NewGraphRepository(backend *Backend) *GraphRepository {
	return &GraphRepository{backend: backend}
}

// Close releases resources. GraphRepository has no resources to release.
func (r *GraphRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *GraphRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// SaveGraph replaces the stored graph. Nodes and edges are keyed by position
// so LoadGraph returns them in the order given here.
func (r *GraphRepository) SaveGraph(ctx context.Context, nodes []core.Node, edges []core.Edge) error {
	if err := r.backend.dropPrefix([]byte(nodePrefix), []byte(edgePrefix)); err != nil {
		return fmt.Errorf("clearing graph: %w", err)
	}
	return r.backend.writeBatch(func(wb *badger.WriteBatch) error {
		for i := range nodes {
			if err := wb.Set(makeNodeKey(i), storage.MarshalNode(&nodes[i])); err != nil {
				return err
			}
		}
		for i := range edges {
			if err := wb.Set(makeEdgeKey(i), storage.MarshalEdge(&edges[i])); err != nil {
				return err
			}
		}
		return ctx.Err()
	})
}

// LoadGraph reads every stored node and edge.
func (r *GraphRepository) LoadGraph(ctx context.Context) ([]core.Node, []core.Edge, error) {
	nodes := []core.Node{}
	edges := []core.Edge{}
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		err := scanPrefix(tx, []byte(nodePrefix), func(_, val []byte) error {
			n, err := storage.UnmarshalNode(val)
			if err != nil {
				return err
			}
			nodes = append(nodes, *n)
			return nil
		})
		if err != nil {
			return err
		}
		return scanPrefix(tx, []byte(edgePrefix), func(_, val []byte) error {
			e, err := storage.UnmarshalEdge(val)
			if err != nil {
				return err
			}
			edges = append(edges, *e)
			return nil
		})
	}, false)
	if err != nil {
		return nil, nil, err
	}
	return nodes, edges, nil
}
