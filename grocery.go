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

// Package grocery answers natural-language grocery queries with a hybrid of
// knowledge graph traversal and vector similarity search.
//
// A Catalog owns the persisted stores. Prepare-data jobs fill them through
// NewPipeline; queries read them through Search and Ask. The entity graph,
// product table and similarity index are each loaded once per Catalog on
// first use and never reloaded, so prepare data before serving queries from
// a long-lived process.
//
//	cat, err := grocery.Open("artifacts/db", grocery.WithOffline())
//	if err != nil { ... }
//	defer cat.Close()
//
//	res, err := cat.Search(ctx, "nut-free granola under $5")
package grocery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/allanbutler/kg-rag-grocery/ai"
	"github.com/allanbutler/kg-rag-grocery/ai/openai"
	"github.com/allanbutler/kg-rag-grocery/answer"
	"github.com/allanbutler/kg-rag-grocery/catalog"
	"github.com/allanbutler/kg-rag-grocery/core"
	"github.com/allanbutler/kg-rag-grocery/graph"
	"github.com/allanbutler/kg-rag-grocery/ingest"
	"github.com/allanbutler/kg-rag-grocery/search"
	"github.com/allanbutler/kg-rag-grocery/storage"
	"github.com/allanbutler/kg-rag-grocery/storage/badger"
	"github.com/allanbutler/kg-rag-grocery/storage/sqlitevec"
)

// MaxAskContexts caps the contexts returned with an Ask response.
const MaxAskContexts = 10

// ErrStoreLoad is returned when the entity graph or product table cannot be
// loaded. It is fatal for query serving.
var ErrStoreLoad = errors.New("failed to load store")

// Catalog is the load-once facade over the persisted stores.
type Catalog struct {
	stores     *badger.Stores
	graphs     storage.GraphRepository
	embeddings storage.EmbeddingRepository
	provider   ai.AIProvider
	suggester  *answer.Suggester
	searchOpts []search.Option
	logger     *slog.Logger

	index storage.SimilarityIndex // Set once loadIndex has run

	loadGraph    func() (*graph.Graph, error)
	loadTable    func() (*catalog.Table, error)
	loadIndex    func() storage.SimilarityIndex
	loadSearcher func() (*search.Searcher, error)
}

// Option configures a Catalog.
type Option func(*options)

type options struct {
	aiConfig   *ai.Config
	provider   ai.AIProvider
	offline    bool
	vecPath    string
	graphs     storage.GraphRepository
	logger     *slog.Logger
	searchOpts []search.Option
}

// WithAIConfig sets the configuration for the OpenAI-compatible provider.
func WithAIConfig(config *ai.Config) Option {
	return func(o *options) {
		o.aiConfig = config
	}
}

// WithProvider uses provider instead of creating an OpenAI-compatible one.
// The Catalog takes ownership and closes it.
func WithProvider(provider ai.AIProvider) Option {
	return func(o *options) {
		o.provider = provider
	}
}

// WithOffline runs without embedding or generation services. Vector search
// uses keyword matching and answers use the heuristic fallback. A provider
// set with WithProvider is not used.
func WithOffline() Option {
	return func(o *options) {
		o.offline = true
	}
}

// WithSQLiteVec stores embeddings in a sqlite-vec database at path instead
// of the badger store.
func WithSQLiteVec(path string) Option {
	return func(o *options) {
		o.vecPath = path
	}
}

// WithGraphRepository stores the entity graph in repo instead of the badger
// store. Once Open succeeds the Catalog owns repo and closes it.
func WithGraphRepository(repo storage.GraphRepository) Option {
	return func(o *options) {
		o.graphs = repo
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithSearchOptions passes options to every searcher the Catalog creates.
func WithSearchOptions(opts ...search.Option) Option {
	return func(o *options) {
		o.searchOpts = append(o.searchOpts, opts...)
	}
}

// Open opens the catalog stored in the badger directory at path.
func Open(path string, opts ...Option) (*Catalog, error) {
	o := &options{aiConfig: ai.DefaultConfig()}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	stores, err := badger.OpenStores(path)
	if err != nil {
		return nil, err
	}

	var embeddings storage.EmbeddingRepository = stores.Embeddings
	if o.vecPath != "" {
		idx, err := sqlitevec.Open(o.vecPath, sqlitevec.WithLogger(o.logger.With("component", "sqlitevec")))
		if err != nil {
			stores.Close()
			return nil, err
		}
		embeddings = idx
	}

	var provider ai.AIProvider
	switch {
	case o.offline:
	case o.provider != nil:
		provider = o.provider
	default:
		provider, err = openai.NewProvider(o.aiConfig)
		if err != nil {
			if o.vecPath != "" {
				embeddings.Close()
			}
			stores.Close()
			return nil, err
		}
	}

	var generator ai.Generator
	if provider != nil {
		generator = provider.Generator()
	}

	graphs := o.graphs
	if graphs == nil {
		graphs = stores.Graph
	}

	c := &Catalog{
		stores:     stores,
		graphs:     graphs,
		embeddings: embeddings,
		provider:   provider,
		suggester:  answer.NewSuggester(generator, answer.WithLogger(o.logger)),
		searchOpts: append([]search.Option{search.WithLogger(o.logger)}, o.searchOpts...),
		logger:     o.logger.With("component", "catalog"),
	}
	c.loadGraph = sync.OnceValues(c.readGraph)
	c.loadTable = sync.OnceValues(c.readTable)
	c.loadIndex = sync.OnceValue(c.readIndex)
	c.loadSearcher = sync.OnceValues(c.newSearcher)
	return c, nil
}

func (c *Catalog) embedder() ai.Embedder {
	if c.provider == nil {
		return nil
	}
	return c.provider.Embedder()
}

func (c *Catalog) readGraph() (*graph.Graph, error) {
	nodes, edges, err := c.graphs.LoadGraph(context.Background())
	if err != nil {
		return nil, fmt.Errorf("%w: graph: %w", ErrStoreLoad, err)
	}
	g, skipped, err := graph.FromStored(nodes, edges)
	if err != nil {
		return nil, fmt.Errorf("%w: graph: %w", ErrStoreLoad, err)
	}
	if skipped > 0 {
		c.logger.Warn("skipped malformed graph entries", "count", skipped)
	}
	c.logger.Debug("loaded graph", "nodes", g.Len(), "edges", g.EdgeCount())
	return g, nil
}

func (c *Catalog) readTable() (*catalog.Table, error) {
	products, err := c.stores.Products.ListProducts(context.Background())
	if err != nil {
		return nil, fmt.Errorf("%w: products: %w", ErrStoreLoad, err)
	}
	c.logger.Debug("loaded product table", "products", len(products))
	return catalog.NewTable(products), nil
}

// readIndex loads the similarity index. A missing or unreadable index is not
// fatal; vector search falls back to keyword matching.
func (c *Catalog) readIndex() storage.SimilarityIndex {
	if c.embedder() == nil {
		return nil
	}
	idx, err := c.embeddings.LoadIndex(context.Background())
	if err != nil {
		c.logger.Warn("similarity index unavailable, using keyword fallback", "err", err)
		return nil
	}
	c.logger.Debug("loaded similarity index", "vectors", idx.Len())
	c.index = idx
	return idx
}

func (c *Catalog) newSearcher() (*search.Searcher, error) {
	g, err := c.loadGraph()
	if err != nil {
		return nil, err
	}
	table, err := c.loadTable()
	if err != nil {
		return nil, err
	}
	return search.NewSearcher(g, table, c.loadIndex(), c.embedder(), c.searchOpts...)
}

// Searcher returns the catalog's searcher, loading the stores on first use.
func (c *Catalog) Searcher() (*search.Searcher, error) {
	return c.loadSearcher()
}

// Search runs a hybrid search.
func (c *Catalog) Search(ctx context.Context, text string) (*search.Result, error) {
	s, err := c.Searcher()
	if err != nil {
		return nil, err
	}
	return s.Search(ctx, text)
}

// SuggestResult is a search result with generated suggestions.
type SuggestResult struct {
	*search.Result
	Suggestions []ai.Suggestion
	Fallback    bool
}

// Suggest runs a hybrid search and suggests products from its results.
func (c *Catalog) Suggest(ctx context.Context, text string) (*SuggestResult, error) {
	res, err := c.Search(ctx, text)
	if err != nil {
		return nil, err
	}
	out := c.suggester.Suggest(ctx, text, res.Candidates, res.Contexts)
	return &SuggestResult{Result: res, Suggestions: out.Suggestions, Fallback: out.Fallback}, nil
}

// AskResult is the response to a question.
type AskResult struct {
	Query       string
	Answer      string
	Suggestions []ai.Suggestion
	Candidates  []core.Candidate
	Contexts    []string // At most MaxAskContexts
	Fallback    bool     // Either step used the heuristic
}

// Ask searches, suggests products and answers the question from the
// retrieved contexts.
func (c *Catalog) Ask(ctx context.Context, question string) (*AskResult, error) {
	res, err := c.Search(ctx, question)
	if err != nil {
		return nil, err
	}
	suggested := c.suggester.Suggest(ctx, question, res.Candidates, res.Contexts)
	answered := c.suggester.Answer(ctx, question, res.Contexts)

	contexts := res.Contexts
	if len(contexts) > MaxAskContexts {
		contexts = contexts[:MaxAskContexts]
	}
	return &AskResult{
		Query:       question,
		Answer:      answered.Answer,
		Suggestions: suggested.Suggestions,
		Candidates:  res.Candidates,
		Contexts:    contexts,
		Fallback:    suggested.Fallback || answered.Fallback,
	}, nil
}

// NewPipeline creates a prepare-data pipeline writing to this catalog's
// stores. In offline mode the embedding stage is skipped.
func (c *Catalog) NewPipeline(opts ...ingest.Option) (*ingest.Pipeline, error) {
	embedder := c.embedder()
	var embeddings storage.EmbeddingRepository
	if embedder != nil {
		embeddings = c.embeddings
	}
	return ingest.NewPipeline(c.stores.Products, c.graphs, embeddings, embedder,
		append([]ingest.Option{ingest.WithLogger(c.logger)}, opts...)...)
}

// Close releases the stores and the AI provider.
func (c *Catalog) Close() error {
	var errs []error
	if c.provider != nil {
		if err := c.provider.Close(); err != nil {
			c.logger.Error("error closing AI provider", "err", err)
			errs = append(errs, err)
		}
	}
	if c.index != nil && any(c.index) != any(c.embeddings) {
		if err := c.index.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if any(c.embeddings) != any(c.stores.Embeddings) {
		if err := c.embeddings.Close(); err != nil {
			c.logger.Error("error closing similarity index", "err", err)
			errs = append(errs, err)
		}
	}
	if any(c.graphs) != any(c.stores.Graph) {
		if err := c.graphs.Close(); err != nil {
			c.logger.Error("error closing graph store", "err", err)
			errs = append(errs, err)
		}
	}
	if err := c.stores.Close(); err != nil {
		c.logger.Error("error closing stores", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
