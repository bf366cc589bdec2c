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

package search

import (
	"context"
	"log/slog"

	"github.com/allanbutler/kg-rag-grocery/ai"
	"github.com/allanbutler/kg-rag-grocery/catalog"
	"github.com/allanbutler/kg-rag-grocery/storage"
)

// Snippet is one vector retriever result.
type Snippet struct {
	// Text is the display line rendered by catalog.FormatSnippet.
	Text string
	// Score is the similarity score. Meaningful only when Scored is set.
	Score float32
	// Scored is false for substring fallback results.
	Scored    bool
	ProductID int64
}

// VectorRetriever ranks products by embedding similarity to the query.
type VectorRetriever struct {
	table    *catalog.Table
	index    storage.SimilarityIndex
	embedder ai.Embedder
	logger   *slog.Logger
}

// NewVectorRetriever creates a vector retriever. A nil index is allowed and
// makes every search use the substring fallback.
func NewVectorRetriever(table *catalog.Table, index storage.SimilarityIndex, embedder ai.Embedder, opts ...Option) (*VectorRetriever, error) {
	if table == nil {
		return nil, ErrProductTableRequired
	}
	if index != nil && embedder == nil {
		return nil, ErrEmbedderRequired
	}
	o, err := applyOptions("vector-retriever", opts)
	if err != nil {
		return nil, err
	}
	return &VectorRetriever{
		table:    table,
		index:    index,
		embedder: embedder,
		logger:   o.logger,
	}, nil
}

// Search returns up to k snippets, most similar first. When the index is
// missing or fails, it falls back to Fallback. Only context cancellation is
// returned as an error.
func (r *VectorRetriever) Search(ctx context.Context, text string, k int) ([]Snippet, error) {
	if k <= 0 {
		return []Snippet{}, nil
	}
	if r.index == nil || r.index.Len() == 0 {
		return r.Fallback(text, k), nil
	}

	vec, err := r.embedder.EmbedText(ctx, text)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		r.logger.Warn("query embedding failed, using substring fallback", "err", err)
		return r.Fallback(text, k), nil
	}

	matches, err := r.index.Nearest(ctx, vec, k)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		r.logger.Warn("similarity lookup failed, using substring fallback", "err", err)
		return r.Fallback(text, k), nil
	}

	snippets := make([]Snippet, 0, len(matches))
	for _, m := range matches {
		p, ok := r.table.ByID(m.ProductID)
		if !ok {
			r.logger.Debug("similarity match not in product table", "productID", m.ProductID)
			continue
		}
		snippets = append(snippets, Snippet{
			Text:      catalog.FormatSnippet(p),
			Score:     m.Score,
			Scored:    true,
			ProductID: p.ID,
		})
	}
	return snippets, nil
}

// Fallback returns the first k product rows, in table order, whose name or
// attributes contain text. Results carry no similarity score.
func (r *VectorRetriever) Fallback(text string, k int) []Snippet {
	rows := r.table.Match(text, k)
	snippets := make([]Snippet, 0, len(rows))
	for _, p := range rows {
		snippets = append(snippets, Snippet{Text: catalog.FormatSnippet(p), ProductID: p.ID})
	}
	return snippets
}
