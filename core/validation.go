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

package core

import (
	"fmt"
	"strings"
)

// ValidateProduct validates a Product according to domain rules.
//
// Validation rules:
//   - ID must be positive
//   - Name must not be empty
//   - Price must not be negative
//
// NOT validated:
//   - Attributes (free text; non-canonical tags are simply never requested)
func ValidateProduct(p *Product) error {
	if p == nil {
		return fmt.Errorf("%w: product is nil", ErrInvalidProduct)
	}
	if p.ID <= 0 {
		return fmt.Errorf("%w: %w: %d", ErrInvalidProduct, ErrInvalidProductID, p.ID)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidProduct, ErrEmptyName)
	}
	if p.Price < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidProduct, ErrNegativePrice)
	}
	return nil
}

// ValidateNode validates a graph Node.
//
// Validation rules:
//   - Label must be one of the fixed labels
//   - Key must be "<label prefix>:<value>" with a non-empty value
//
// Missing names and prices are tolerated; readers treat them as empty/zero.
func ValidateNode(n *Node) error {
	if n == nil {
		return fmt.Errorf("%w: node is nil", ErrInvalidNode)
	}
	if !n.Label.Valid() {
		return fmt.Errorf("%w: %w: %d", ErrInvalidNode, ErrUnknownLabel, n.Label)
	}
	prefix, value, ok := strings.Cut(n.Key, ":")
	if !ok || prefix != n.Label.Prefix() || value == "" {
		return fmt.Errorf("%w: %w: %q", ErrInvalidNode, ErrKeyPrefixMismatch, n.Key)
	}
	return nil
}

// ValidateEdge validates a graph Edge in isolation. Endpoint existence is
// checked when the graph is built.
func ValidateEdge(e *Edge) error {
	if e == nil {
		return fmt.Errorf("%w: edge is nil", ErrInvalidEdge)
	}
	if !e.Relation.Valid() {
		return fmt.Errorf("%w: %w: %d", ErrInvalidEdge, ErrUnknownRelation, e.Relation)
	}
	if e.From == "" || e.To == "" {
		return fmt.Errorf("%w: empty endpoint", ErrInvalidEdge)
	}
	return nil
}
