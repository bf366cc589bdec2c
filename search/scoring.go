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
	"slices"
	"strings"

	"github.com/allanbutler/kg-rag-grocery/core"
	"github.com/allanbutler/kg-rag-grocery/query"
)

// Retrieval bounds.
const (
	// MaxHitNodes caps the seed nodes expanded per query.
	MaxHitNodes = 50
	// MaxFacts caps the relationship facts collected per query.
	MaxFacts = 50
	// GraphK is the number of product cards requested from the graph retriever.
	GraphK = 6
	// VectorK is the number of snippets requested from the vector retriever.
	VectorK = 6
	// MaxCandidates caps the merged candidate list.
	MaxCandidates = 5
	// MaxContextSnippets caps the context handed to answer generation.
	MaxContextSnippets = 20
)

// Scoring weights for graph candidates. These are tuned values; changing any
// of them changes ranking behavior.
const (
	AttributePresentWeight = 1.0
	AttributeMissingWeight = -0.25
	WithinBudgetWeight     = 0.75
	OverBudgetWeight       = -0.75
	TokenHitWeight         = 0.2
	TokenHitCap            = 0.8
	PricePivot             = 5.0
	PriceSlope             = 0.05
)

// Score rates a graph candidate against the query constraints. Higher is better.
func Score(c query.Constraints, cand *core.Candidate) float64 {
	var score float64

	for _, want := range c.WantedAttributes {
		if _, found := slices.BinarySearch(cand.Attributes, want); found {
			score += AttributePresentWeight
		} else {
			score += AttributeMissingWeight
		}
	}

	if c.HasBudget() {
		if cand.Price <= *c.Budget {
			score += WithinBudgetWeight
		} else {
			score += OverBudgetWeight
		}
	}

	if len(c.Tokens) > 0 {
		facets := strings.Join([]string{
			core.Normalize(cand.Name),
			core.Normalize(cand.Brand),
			core.Normalize(cand.Category),
			core.Normalize(cand.SubCategory),
		}, " ")
		hits := 0
		for _, tok := range c.Tokens {
			if strings.Contains(facets, tok) {
				hits++
			}
		}
		score += min(float64(hits)*TokenHitWeight, TokenHitCap)
	}

	score += max(0, PricePivot-cand.Price) * PriceSlope
	return score
}

// satisfies reports whether cand passes the budget and attribute hard filters.
func satisfies(c query.Constraints, cand *core.Candidate) bool {
	return c.WithinBudget(cand.Price) && cand.HasAttributes(c.WantedAttributes)
}
