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
	"slices"

	"github.com/allanbutler/kg-rag-grocery/core"
	"github.com/allanbutler/kg-rag-grocery/storage"
)

const (
	// DefaultBatchSize is the default number of products embedded per request
	DefaultBatchSize = 64
)

// ProductIterator iterates over the product table in batches.
type ProductIterator struct {
	repo      storage.ProductRepository
	batchSize int
}

// NewProductIterator creates a new product iterator.
// batchSize: number of products per batch (defaults to DefaultBatchSize when <= 0)
func NewProductIterator(repo storage.ProductRepository, batchSize int) *ProductIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &ProductIterator{
		repo:      repo,
		batchSize: batchSize,
	}
}

// ForEach calls fn for each batch of products in table order.
// Iteration stops on first error from fn or when all products are processed.
// Context cancellation is checked between batches.
func (it *ProductIterator) ForEach(ctx context.Context, fn func([]*core.Product) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	products, err := it.repo.ListProducts(ctx)
	if err != nil {
		return err
	}

	for batch := range slices.Chunk(products, it.batchSize) {
		if err := fn(batch); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}
