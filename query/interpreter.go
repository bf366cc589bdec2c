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

package query

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// budgetPattern matches the first decimal amount, optionally preceded by a
// dollar sign.
var budgetPattern = regexp.MustCompile(`\$?\s*(\d+(?:\.\d{1,2})?)`)

// budgetMarkers turn the first amount in a query into a price ceiling.
var budgetMarkers = []string{"under", "less", "budget", "max", "at most", "below", "<=", "≤", "<"}

// Constraints is the structured form of a query. It is request-scoped and
// never persisted.
type Constraints struct {
	// Budget is the price ceiling, or nil when the query sets none.
	Budget *float64

	// WantedAttributes holds the requested canonical tags, sorted.
	WantedAttributes []string

	// Tokens are the content words of the query in order of appearance.
	Tokens []string
}

// HasBudget reports whether a price ceiling is set.
func (c Constraints) HasBudget() bool {
	return c.Budget != nil
}

// WithinBudget reports whether price satisfies the ceiling. Always true when
// no ceiling is set.
func (c Constraints) WithinBudget(price float64) bool {
	return c.Budget == nil || price <= *c.Budget
}

// Wants reports whether tag was requested.
func (c Constraints) Wants(tag string) bool {
	_, found := slices.BinarySearch(c.WantedAttributes, tag)
	return found
}

// Interpret parses a free-text query into Constraints.
//
// Tokens covered by a matched attribute phrase or by the budget amount are
// left out of the token set; they are represented by the structured fields.
func Interpret(text string) Constraints {
	lowered := strings.ToLower(text)
	exclude := make(map[string]bool)

	var c Constraints
	if budget, span, ok := parseBudget(lowered); ok {
		c.Budget = &budget
		for _, tok := range tokenize(span) {
			exclude[tok] = true
		}
	}

	for _, entry := range attributeSynonyms {
		matched := false
		for _, phrase := range entry.phrases {
			if strings.Contains(lowered, phrase) {
				matched = true
				for _, tok := range tokenize(phrase) {
					exclude[tok] = true
				}
			}
		}
		if matched {
			c.WantedAttributes = append(c.WantedAttributes, entry.tag)
		}
	}
	slices.Sort(c.WantedAttributes)

	c.Tokens = filterTokens(tokenize(lowered), exclude)
	return c
}

// parseBudget extracts a price ceiling and the matched amount text. Only the
// first amount is considered, and only when a budget marker appears anywhere.
func parseBudget(lowered string) (float64, string, bool) {
	m := budgetPattern.FindStringSubmatch(lowered)
	if m == nil {
		return 0, "", false
	}
	if !hasBudgetMarker(lowered) {
		return 0, "", false
	}
	amount, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, "", false
	}
	return amount, m[1], true
}

func hasBudgetMarker(lowered string) bool {
	for _, marker := range budgetMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}
