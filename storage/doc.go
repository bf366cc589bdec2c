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

// Package storage provides the storage abstraction layer for the grocery
// catalog.
//
// This package defines repository interfaces that decouple storage implementation
// from retrieval logic. Two backends exist:
//
//   - storage/badger: products, the entity graph and embeddings in BadgerDB,
//     with a flat in-memory similarity index
//   - storage/sqlitevec: embeddings in a sqlite-vec vec0 table
//
// # Architecture
//
//   - ProductRepository: the authoritative product table
//   - GraphRepository: entity graph nodes and edges
//   - EmbeddingRepository: product vectors and their content fingerprints
//   - SimilarityIndex: nearest-neighbor lookup used by the vector retriever
//
// # Usage
//
// Open the stores for a database directory:
//
//	stores, err := badger.OpenStores("/path/to/db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer stores.Close()
//
// Use in tests with in-memory storage:
//
//	stores, err := badger.NewMemoryStores()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines. Stores are written by the
// prepare-data jobs and only read while serving queries.
//
// # Serialization
//
// Values are encoded with mus-go serializers (see codec.go). Encodings are
// compact and positional, so field order in the serializers is part of the
// on-disk format.
package storage
