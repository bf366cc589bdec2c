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
	"fmt"
	"regexp"
	"strconv"

	"github.com/allanbutler/kg-rag-grocery/core"
)

// snippetPattern matches the leading "<name> (<brand>) - $<price>" of a
// formatted snippet.
var snippetPattern = regexp.MustCompile(`^(.+?) \(([^)]*)\) - \$(\d+(?:\.\d+)?)`)

// ParseSnippet extracts a vector candidate from snippet text. It returns
// false when the text does not have the snippet format.
func ParseSnippet(text string) (core.Candidate, bool) {
	m := snippetPattern.FindStringSubmatch(text)
	if m == nil {
		return core.Candidate{}, false
	}
	price, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return core.Candidate{}, false
	}
	return core.Candidate{
		Name:   m[1],
		Brand:  m[2],
		Price:  price,
		Source: core.SourceVector,
	}, true
}

// formatProductLine renders the context line for a graph product card.
func formatProductLine(c *core.Candidate) string {
	return fmt.Sprintf("PRODUCT: %s | brand=%s | cat=%s/%s | price=$%.2f",
		c.Name, c.Brand, c.Category, c.SubCategory, c.Price)
}
