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

// Package search provides hybrid graph and vector retrieval over a grocery catalog.
//
// A query is answered by two independent retrievers that run concurrently:
//   - GraphRetriever seeds nodes of the entity graph by token and attribute
//     matches, expands them one hop, scores the neighboring products and
//     returns relationship facts plus ranked product cards
//   - VectorRetriever embeds the query and asks the similarity index for the
//     nearest products, falling back to a substring match over the product
//     table when no index is available
//
// Searcher merges both streams into at most MaxCandidates candidates:
// enriched from the product table, deduplicated by name with graph results
// preferred, filtered by the query's budget and wanted attributes, and
// ordered by (source rank, price). It also returns the context snippets
// handed to answer generation.
//
// All retrievers only read the shared graph, table and index, so any number
// of searches may run concurrently against one Searcher.
package search
