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

package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces grounded product suggestions and answers from
// retrieved context snippets.
// Implementations must be thread-safe for concurrent use.
type Generator interface {
	// Suggest returns product suggestions with short reasons for a grocery
	// search query. Returns an error when the model fails or its output
	// cannot be parsed; callers fall back to a heuristic.
	Suggest(ctx context.Context, query string, contexts []string) ([]Suggestion, error)

	// Answer answers a grocery question grounded in contexts, citing them
	// by number like [1].
	Answer(ctx context.Context, query string, contexts []string) (string, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Generator returns the suggestion and answer service.
	Generator() Generator

	// Close releases resources held by the provider and its services.
	Close() error
}
