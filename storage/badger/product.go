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
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/allanbutler/kg-rag-grocery/core"
	"github.com/allanbutler/kg-rag-grocery/storage"
)

// productTxnBatch bounds the number of products written per transaction.
const productTxnBatch = 500

// ProductRepository implements storage.ProductRepository for BadgerDB.
type ProductRepository struct {
	backend *Backend
}

var _ storage.ProductRepository = (*ProductRepository)(nil)

// NewProductRepository creates a new ProductRepository.
func NewProductRepository(backend *Backend) *ProductRepository {
	return &ProductRepository{backend: backend}
}

// Close releases resources. ProductRepository has no resources to release.
func (r *ProductRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *ProductRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddProducts inserts or replaces products by id and maintains the
// table-order index.
func (r *ProductRepository) AddProducts(ctx context.Context, products ...*core.Product) error {
	for _, p := range products {
		if err := core.ValidateProduct(p); err != nil {
			return err
		}
	}

	for start := 0; start < len(products); start += productTxnBatch {
		if err := ctx.Err(); err != nil {
			return err
		}
		chunk := products[start:min(start+productTxnBatch, len(products))]
		err := r.backend.WithTx(func(tx *badger.Txn) error {
			for _, p := range chunk {
				key := makeProductKey(p.ID)
				old, err := readProduct(tx, key)
				if err != nil {
					return err
				}
				if old != nil && old.Row != p.Row {
					if err := tx.Delete(makeProductRowKey(old.Row, old.ID)); err != nil {
						return err
					}
				}
				if err := tx.Set(key, storage.MarshalProduct(p)); err != nil {
					return err
				}
				if err := tx.Set(makeProductRowKey(p.Row, p.ID), nil); err != nil {
					return err
				}
			}
			return tx.Commit()
		}, true)
		if err != nil {
			return fmt.Errorf("storing products: %w", err)
		}
	}
	return nil
}

// ReplaceProducts drops the stored table and row index, then stores products.
func (r *ProductRepository) ReplaceProducts(ctx context.Context, products ...*core.Product) error {
	for _, p := range products {
		if err := core.ValidateProduct(p); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.backend.dropPrefix([]byte(productPrefix), []byte(productRowIndex)); err != nil {
		return fmt.Errorf("clearing products: %w", err)
	}
	return r.AddProducts(ctx, products...)
}

// GetProduct retrieves a single product by id.
func (r *ProductRepository) GetProduct(ctx context.Context, id int64) (*core.Product, error) {
	var result *core.Product
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readProduct(tx, makeProductKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// ListProducts returns all products ordered by table row, then id.
func (r *ProductRepository) ListProducts(ctx context.Context) ([]*core.Product, error) {
	var result []*core.Product
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return scanPrefix(tx, []byte(productRowIndex), func(key, _ []byte) error {
			id := int64(binary.BigEndian.Uint64(key[len(key)-8:]))
			p, err := readProduct(tx, makeProductKey(id))
			if err != nil {
				return err
			}
			if p == nil {
				r.backend.logger.Warn("row index references missing product", "product_id", id)
				return nil
			}
			result = append(result, p)
			return nil
		})
	}, false)
	return result, err
}

// CountProducts returns the number of stored products.
func (r *ProductRepository) CountProducts(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(productPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// readProduct reads a product, returning nil when the key is absent.
func readProduct(tx *badger.Txn, key []byte) (*core.Product, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var p *core.Product
	err = item.Value(func(val []byte) error {
		var err error
		p, err = storage.UnmarshalProduct(val)
		return err
	})
	return p, err
}
