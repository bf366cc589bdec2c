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

package storage

import (
	"context"

	"github.com/allanbutler/kg-rag-grocery/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// ProductRepository stores the authoritative product table.
type ProductRepository interface {
	Repository
	// AddProducts inserts or replaces products by id.
	// Every product is validated; an invalid product aborts the whole batch.
	AddProducts(ctx context.Context, products ...*core.Product) error

	// ReplaceProducts makes products the whole table. Stored products not
	// listed are removed. Validation happens before anything is removed.
	ReplaceProducts(ctx context.Context, products ...*core.Product) error

	// GetProduct retrieves a product by id.
	// Returns ErrNotFound if the product doesn't exist.
	GetProduct(ctx context.Context, id int64) (*core.Product, error)

	// ListProducts returns every product in table order (by Row, then id).
	ListProducts(ctx context.Context) ([]*core.Product, error)

	// CountProducts returns the number of stored products.
	CountProducts(ctx context.Context) (int, error)
}

// GraphRepository stores the entity graph as flat node and edge lists.
type GraphRepository interface {
	Repository
	// SaveGraph replaces the stored graph with nodes and edges.
	SaveGraph(ctx context.Context, nodes []core.Node, edges []core.Edge) error

	// LoadGraph returns the stored nodes in insertion order and all edges.
	// An empty store yields empty slices, not an error.
	LoadGraph(ctx context.Context) ([]core.Node, []core.Edge, error)
}

// EmbeddingRepository stores product embeddings and exposes them as a
// similarity index.
type EmbeddingRepository interface {
	// PutEmbeddings inserts or replaces embeddings by product id.
	PutEmbeddings(ctx context.Context, embeddings ...*core.Embedding) error

	// DeleteEmbeddings removes the embeddings of the given products. Unknown
	// ids are ignored.
	DeleteEmbeddings(ctx context.Context, ids ...int64) error

	// Fingerprints returns the stored fingerprint for every embedded product.
	Fingerprints(ctx context.Context) (map[int64]core.ID, error)

	// LoadIndex returns a similarity index over the stored embeddings.
	// The index reflects the embeddings present when it was loaded.
	LoadIndex(ctx context.Context) (SimilarityIndex, error)

	// Close releases resources.
	Close() error
}

// SimilarityIndex answers nearest-neighbor queries over product embeddings.
type SimilarityIndex interface {
	// Nearest returns up to k products ordered by descending similarity.
	Nearest(ctx context.Context, vector []float32, k int) ([]core.SimilarityMatch, error)

	// Len returns the number of indexed vectors. An empty index is treated
	// as absent by callers.
	Len() int

	// Close releases resources.
	Close() error
}
