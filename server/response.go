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


package server

import (
	grocery "github.com/allanbutler/kg-rag-grocery"
	"github.com/allanbutler/kg-rag-grocery/ai"
	"github.com/allanbutler/kg-rag-grocery/core"
)

// Candidate is the wire form of a ranked product.
type Candidate struct {
	ProductID   int64    `json:"product_id"`
	Name        string   `json:"name"`
	Brand       string   `json:"brand"`
	Price       float64  `json:"price"`
	Category    string   `json:"category"`
	SubCategory string   `json:"sub_category"`
	Attributes  []string `json:"attributes"`
	Source      string   `json:"source"`
	Score       float64  `json:"score"`
}

// SearchResponse is returned by GET /search and `grocer search --json`.
type SearchResponse struct {
	QueryID     string          `json:"query_id"`
	Query       string          `json:"query"`
	Suggestions []ai.Suggestion `json:"suggestions"`
	Candidates  []Candidate     `json:"candidates"`
	Contexts    []string        `json:"contexts"`
	Fallback    bool            `json:"fallback"`
}

// AskResponse is returned by POST /ask and `grocer ask --json`.
type AskResponse struct {
	Query       string          `json:"query"`
	Answer      string          `json:"answer"`
	Suggestions []ai.Suggestion `json:"suggestions"`
	Candidates  []Candidate     `json:"candidates"`
	Contexts    []string        `json:"contexts"`
	Fallback    bool            `json:"fallback"`
}

// AskRequest is the body of POST /ask.
type AskRequest struct {
	Query string `json:"query" binding:"required"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewSearchResponse converts a suggest result. Contexts are capped at
// grocery.MaxAskContexts.
func NewSearchResponse(res *grocery.SuggestResult) SearchResponse {
	return SearchResponse{
		QueryID:     res.QueryID.String(),
		Query:       res.Query,
		Suggestions: nonNil(res.Suggestions),
		Candidates:  NewCandidates(res.Candidates),
		Contexts:    nonNil(capContexts(res.Contexts)),
		Fallback:    res.Fallback,
	}
}

// NewAskResponse converts an ask result.
func NewAskResponse(res *grocery.AskResult) AskResponse {
	return AskResponse{
		Query:       res.Query,
		Answer:      res.Answer,
		Suggestions: nonNil(res.Suggestions),
		Candidates:  NewCandidates(res.Candidates),
		Contexts:    nonNil(capContexts(res.Contexts)),
		Fallback:    res.Fallback,
	}
}

// NewCandidates converts ranked candidates, keeping their order.
func NewCandidates(cs []core.Candidate) []Candidate {
	out := make([]Candidate, len(cs))
	for i, c := range cs {
		out[i] = Candidate{
			ProductID:   c.ProductID,
			Name:        c.Name,
			Brand:       c.Brand,
			Price:       c.Price,
			Category:    c.Category,
			SubCategory: c.SubCategory,
			Attributes:  nonNil(c.Attributes),
			Source:      c.Source.String(),
			Score:       c.Score,
		}
	}
	return out
}

func capContexts(contexts []string) []string {
	if len(contexts) > grocery.MaxAskContexts {
		return contexts[:grocery.MaxAskContexts]
	}
	return contexts
}

// nonNil keeps empty lists as [] rather than null in JSON.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
