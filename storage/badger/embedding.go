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
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/dgraph-io/badger/v4"

	"github.com/allanbutler/kg-rag-grocery/core"
	"github.com/allanbutler/kg-rag-grocery/storage"
)

// EmbeddingRepository implements storage.EmbeddingRepository for BadgerDB.
type EmbeddingRepository struct {
	backend *Backend
}

var _ storage.EmbeddingRepository = (*EmbeddingRepository)(nil)

// NewEmbeddingRepository creates a new EmbeddingRepository.
func NewEmbeddingRepository(backend *Backend) *EmbeddingRepository {
	return &EmbeddingRepository{backend: backend}
}

// Close releases resources. EmbeddingRepository has no resources to release.
func (r *EmbeddingRepository) Close() error {
	return nil
}

// PutEmbeddings stores embeddings keyed by product id.
func (r *EmbeddingRepository) PutEmbeddings(ctx context.Context, embeddings ...*core.Embedding) error {
	return r.backend.writeBatch(func(wb *badger.WriteBatch) error {
		for _, e := range embeddings {
			if len(e.Vector) == 0 {
				return fmt.Errorf("%w: product %d has an empty vector", storage.ErrDimensionMismatch, e.ProductID)
			}
			if err := wb.Set(makeEmbeddingKey(e.ProductID), storage.MarshalEmbedding(e)); err != nil {
				return err
			}
		}
		return ctx.Err()
	})
}

// DeleteEmbeddings removes embeddings by product id.
func (r *EmbeddingRepository) DeleteEmbeddings(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	return r.backend.writeBatch(func(wb *badger.WriteBatch) error {
		for _, id := range ids {
			if err := wb.Delete(makeEmbeddingKey(id)); err != nil {
				return err
			}
		}
		return ctx.Err()
	})
}

// Fingerprints returns the stored fingerprint of every embedded product.
func (r *EmbeddingRepository) Fingerprints(ctx context.Context) (map[int64]core.ID, error) {
	out := make(map[int64]core.ID)
	err := r.forEach(func(e *core.Embedding) error {
		out[e.ProductID] = e.Fingerprint
		return nil
	})
	return out, err
}

// LoadIndex reads every embedding into a flat in-memory index.
// Vectors whose dimension differs from the first one are skipped.
func (r *EmbeddingRepository) LoadIndex(ctx context.Context) (storage.SimilarityIndex, error) {
	idx := &FlatIndex{}
	err := r.forEach(func(e *core.Embedding) error {
		if err := idx.add(e.ProductID, e.Vector); err != nil {
			r.backend.logger.Warn("skipping embedding", "product_id", e.ProductID, "err", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.backend.logger.Debug("loaded similarity index", "vectors", idx.Len(), "dim", idx.dim)
	return idx, nil
}

func (r *EmbeddingRepository) forEach(fn func(e *core.Embedding) error) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		return scanPrefix(tx, []byte(embeddingPrefix), func(_, val []byte) error {
			e, err := storage.UnmarshalEmbedding(val)
			if err != nil {
				return err
			}
			return fn(e)
		})
	}, false)
}

// FlatIndex is an exhaustive inner-product index over unit vectors, held in
// one contiguous slice. It is immutable after loading.
type FlatIndex struct {
	ids     []int64
	vectors []float32
	dim     int
}

var _ storage.SimilarityIndex = (*FlatIndex)(nil)

func (f *FlatIndex) add(id int64, vec []float32) error {
	if f.dim == 0 {
		f.dim = len(vec)
	}
	if len(vec) != f.dim {
		return fmt.Errorf("%w: got %d, want %d", storage.ErrDimensionMismatch, len(vec), f.dim)
	}
	f.ids = append(f.ids, id)
	f.vectors = append(f.vectors, core.NormalizeVector(vec)...)
	return nil
}

// Len returns the number of indexed vectors.
func (f *FlatIndex) Len() int {
	return len(f.ids)
}

// Nearest scores every vector against the normalized query and returns the
// k best by cosine similarity. Ties keep index order.
func (f *FlatIndex) Nearest(ctx context.Context, vector []float32, k int) ([]core.SimilarityMatch, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", storage.ErrInvalidQuery)
	}
	if k <= 0 || f.Len() == 0 {
		return nil, nil
	}
	if len(vector) != f.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", storage.ErrDimensionMismatch, len(vector), f.dim)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q := core.NormalizeVector(vector)
	matches := make([]core.SimilarityMatch, len(f.ids))
	for i, id := range f.ids {
		matches[i] = core.SimilarityMatch{
			ProductID: id,
			Score:     core.Dot(q, f.vectors[i*f.dim:(i+1)*f.dim]),
		}
	}
	slices.SortStableFunc(matches, func(a, b core.SimilarityMatch) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Close releases the index memory.
func (f *FlatIndex) Close() error {
	f.ids = nil
	f.vectors = nil
	return nil
}
