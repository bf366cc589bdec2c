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
	"errors"
)

// Stores bundles the repositories that share one BadgerDB backend.
type Stores struct {
	Backend    *Backend
	Products   *ProductRepository
	Graph      *GraphRepository
	Embeddings *EmbeddingRepository
}

// OpenStores opens the database directory at path and returns its repositories.
func OpenStores(path string) (*Stores, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	return newStores(backend), nil
}

func newStores(backend *Backend) *Stores {
	return &Stores{
		Backend:    backend,
		Products:   NewProductRepository(backend),
		Graph:      NewGraphRepository(backend),
		Embeddings: NewEmbeddingRepository(backend),
	}
}

// Close closes every repository and the backend.
func (s *Stores) Close() error {
	return errors.Join(
		s.Products.Close(),
		s.Graph.Close(),
		s.Embeddings.Close(),
		s.Backend.Close(),
	)
}
