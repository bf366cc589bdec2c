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
	"github.com/google/uuid"

	"github.com/allanbutler/kg-rag-grocery/core"
	"github.com/allanbutler/kg-rag-grocery/query"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(queryID uuid.UUID, query string)
	AfterInterpret(constraints query.Constraints)
	AfterVectorSearch(snippets []Snippet)
	AfterGraphSearch(items []GraphItem)
	DroppedSnippet(text string)
	Filtered(candidate core.Candidate, reason string)
	Finish(result *Result)
}

// Reasons passed to SearchMonitor.Filtered.
const (
	ReasonDuplicate   = "duplicate name"
	ReasonOverBudget  = "over budget"
	ReasonMissingAttr = "missing wanted attribute"
)

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ uuid.UUID, _ string)            {}
func (n *noopMonitor) AfterInterpret(_ query.Constraints)     {}
func (n *noopMonitor) AfterVectorSearch(_ []Snippet)          {}
func (n *noopMonitor) AfterGraphSearch(_ []GraphItem)         {}
func (n *noopMonitor) DroppedSnippet(_ string)                {}
func (n *noopMonitor) Filtered(_ core.Candidate, _ string)    {}
func (n *noopMonitor) Finish(_ *Result)                       {}
