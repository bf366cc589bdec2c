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

// Package catalog provides the in-memory product table: the authoritative
// source of display fields for candidates surfaced by either retriever.
package catalog

import (
	"fmt"
	"strings"

	"github.com/allanbutler/kg-rag-grocery/core"
)

// Table is a read-only product table. Rows keep their source order; lookups
// by id and by normalized name are O(1). A Table is safe for concurrent use.
type Table struct {
	rows   []*core.Product
	byID   map[int64]*core.Product
	byName map[string]*core.Product
}

// NewTable indexes products. Rows are kept in the given order. When two rows
// share an id or a normalized name, the first one wins the lookup.
func NewTable(products []*core.Product) *Table {
	t := &Table{
		rows:   make([]*core.Product, 0, len(products)),
		byID:   make(map[int64]*core.Product, len(products)),
		byName: make(map[string]*core.Product, len(products)),
	}
	for _, p := range products {
		if p == nil {
			continue
		}
		t.rows = append(t.rows, p)
		if _, exists := t.byID[p.ID]; !exists {
			t.byID[p.ID] = p
		}
		name := core.Normalize(p.Name)
		if _, exists := t.byName[name]; !exists && name != "" {
			t.byName[name] = p
		}
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Rows returns the rows in table order. The slice must not be modified.
func (t *Table) Rows() []*core.Product {
	if t == nil {
		return nil
	}
	return t.rows
}

// ByID returns the row with the given product id.
func (t *Table) ByID(id int64) (*core.Product, bool) {
	if t == nil {
		return nil, false
	}
	p, ok := t.byID[id]
	return p, ok
}

// ByName returns the row whose normalized name equals the normalized name.
func (t *Table) ByName(name string) (*core.Product, bool) {
	if t == nil {
		return nil, false
	}
	p, ok := t.byName[core.Normalize(name)]
	return p, ok
}

// Match returns up to k rows, in table order, whose name or attributes
// contain text case-insensitively. The whole text is matched as one literal
// substring.
func (t *Table) Match(text string, k int) []*core.Product {
	if t == nil || k <= 0 {
		return nil
	}
	needle := strings.ToLower(text)
	var out []*core.Product
	for _, p := range t.rows {
		if strings.Contains(strings.ToLower(p.Name), needle) ||
			strings.Contains(strings.ToLower(p.Attributes), needle) {
			out = append(out, p)
			if len(out) == k {
				break
			}
		}
	}
	return out
}

// FormatSnippet renders the display line used for vector hits:
//
//	<name> (<brand>) - $<price> | <category>/<sub_category> | attrs: <attributes>
func FormatSnippet(p *core.Product) string {
	return fmt.Sprintf("%s (%s) - $%.2f | %s/%s | attrs: %s",
		p.Name, p.Brand, p.Price, p.Category, p.SubCategory, p.Attributes)
}

// FromProduct builds a candidate carrying the row's display fields.
func FromProduct(p *core.Product, source core.Source) core.Candidate {
	c := core.Candidate{Source: source}
	apply(&c, p)
	return c
}

// EnrichByID overwrites the candidate's display fields with the table row
// for its product id. The candidate is returned unchanged when no row exists.
func (t *Table) EnrichByID(c core.Candidate) core.Candidate {
	if p, ok := t.ByID(c.ProductID); ok {
		apply(&c, p)
	}
	return c
}

// EnrichByName overwrites the candidate's display fields with the table row
// matching its normalized name. The candidate is returned unchanged when no
// row exists.
func (t *Table) EnrichByName(c core.Candidate) core.Candidate {
	if p, ok := t.ByName(c.Name); ok {
		apply(&c, p)
	}
	return c
}

func apply(c *core.Candidate, p *core.Product) {
	c.ProductID = p.ID
	c.Name = p.Name
	c.Brand = p.Brand
	c.Category = p.Category
	c.SubCategory = p.SubCategory
	c.Price = p.Price
	c.Attributes = p.AttributeSet()
}
