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

// Package reembed computes and stores product embeddings for the similarity
// index.
//
// Products are read from the product table in table order and embedded in
// batches on a worker pool. The embedded text is Product.IndexText; its
// fingerprint is stored next to the vector so a later run skips products
// whose text has not changed. Embedding calls are retried with exponential
// backoff and vectors are normalized before storage so dot products equal
// cosine similarity.
package reembed
