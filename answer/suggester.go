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

package answer

import (
	"context"
	"log/slog"
	"strings"

	"github.com/allanbutler/kg-rag-grocery/ai"
	"github.com/allanbutler/kg-rag-grocery/core"
)

const (
	// MaxPromptContexts caps the contexts handed to the generator.
	MaxPromptContexts = 20
	// MaxFallbackItems caps heuristic suggestions and answer bullets.
	MaxFallbackItems = 5

	candidateReason = "matches query via KG/vector"
	snippetReason   = "relevant snippet"
	fallbackHeader  = "Suggested options based on retrieved context:\n- "
	noContext       = "No context."
)

// Outcome is the result of a generation step. Exactly one branch produced
// it: the generator (Fallback false) or the heuristic (Fallback true, with
// Cause set to the generator error).
type Outcome struct {
	Suggestions []ai.Suggestion
	Answer      string
	Fallback    bool
	Cause       error
}

// Suggester produces suggestions and answers from search results.
type Suggester struct {
	generator ai.Generator
	logger    *slog.Logger
}

// Option configures a Suggester.
type Option func(*Suggester)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Suggester) {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
	}
}

// NewSuggester creates a suggester. A nil generator makes every call take
// the heuristic branch.
func NewSuggester(generator ai.Generator, opts ...Option) *Suggester {
	s := &Suggester{
		generator: generator,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "suggester")
	return s
}

// Suggest asks the generator for suggestions over the first
// MaxPromptContexts contexts. On failure it suggests the top candidates, or
// the top contexts when there are no candidates.
func (s *Suggester) Suggest(ctx context.Context, query string, candidates []core.Candidate, contexts []string) Outcome {
	if s.generator == nil {
		return Outcome{Suggestions: heuristicSuggestions(candidates, contexts), Fallback: true, Cause: ErrNoGenerator}
	}

	suggestions, err := s.generator.Suggest(ctx, query, capped(contexts, MaxPromptContexts))
	if err != nil {
		s.logger.Warn("suggestion generation failed, using heuristic", "err", err)
		return Outcome{Suggestions: heuristicSuggestions(candidates, contexts), Fallback: true, Cause: err}
	}
	return Outcome{Suggestions: suggestions}
}

// Answer asks the generator for a grounded answer over the first
// MaxPromptContexts contexts. On failure it lists the top contexts.
func (s *Suggester) Answer(ctx context.Context, query string, contexts []string) Outcome {
	if s.generator == nil {
		return Outcome{Answer: heuristicAnswer(contexts), Fallback: true, Cause: ErrNoGenerator}
	}

	answer, err := s.generator.Answer(ctx, query, capped(contexts, MaxPromptContexts))
	if err != nil {
		s.logger.Warn("answer generation failed, using heuristic", "err", err)
		return Outcome{Answer: heuristicAnswer(contexts), Fallback: true, Cause: err}
	}
	return Outcome{Answer: answer}
}

func heuristicSuggestions(candidates []core.Candidate, contexts []string) []ai.Suggestion {
	if len(candidates) > 0 {
		top := capped(candidates, MaxFallbackItems)
		out := make([]ai.Suggestion, 0, len(top))
		for _, c := range top {
			price := c.Price
			out = append(out, ai.Suggestion{
				Product: c.Name,
				Brand:   c.Brand,
				Price:   &price,
				Why:     candidateReason,
			})
		}
		return out
	}

	top := capped(contexts, MaxFallbackItems)
	out := make([]ai.Suggestion, 0, len(top))
	for _, text := range top {
		out = append(out, ai.Suggestion{Product: text, Why: snippetReason})
	}
	return out
}

func heuristicAnswer(contexts []string) string {
	if len(contexts) == 0 {
		return fallbackHeader + noContext
	}
	return fallbackHeader + strings.Join(capped(contexts, MaxFallbackItems), "\n- ")
}

func capped[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}
