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
	"encoding/binary"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/go-crypt/x/blake2b"
)

// ID is a content-derived identifier.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Product is one row of the authoritative product table.
type Product struct {
	ID            int64
	Row           int // Position in the source table, used for table-order iteration
	Name          string
	Brand         string
	Category      string
	SubCategory   string
	Price         float64
	Ingredients   string // Comma-joined
	Attributes    string // Semicolon-joined canonical tags
	NutritionText string
}

// AttributeSet returns the product's canonical attribute tags, lowercased,
// deduplicated and sorted.
func (p *Product) AttributeSet() []string {
	return SplitTags(p.Attributes, ";")
}

// IngredientList returns the product's lowercased ingredients in table order.
func (p *Product) IngredientList() []string {
	var out []string
	seen := make(map[string]bool)
	for _, ing := range strings.Split(p.Ingredients, ",") {
		ing = Normalize(ing)
		if ing == "" || seen[ing] {
			continue
		}
		seen[ing] = true
		out = append(out, ing)
	}
	return out
}

// Fingerprint identifies the product's current index text. A stored
// embedding with a different fingerprint is stale.
func (p *Product) Fingerprint() ID {
	return IDFromContent(p.IndexText())
}

// IndexText is the text embedded into the similarity index for this product.
func (p *Product) IndexText() string {
	return strings.Join([]string{
		p.Name, p.Brand, p.Category, p.SubCategory,
		p.Ingredients, p.Attributes, p.NutritionText,
	}, " | ")
}

// Embedding is the stored vector for one product. Fingerprint identifies
// the text the vector was computed from.
type Embedding struct {
	ProductID   int64
	Fingerprint ID
	Vector      []float32
}

// SimilarityMatch is a nearest-neighbor hit returned by a similarity index.
type SimilarityMatch struct {
	ProductID int64
	Score     float32
}

// Source identifies which retriever produced a candidate.
type Source int

const (
	// SourceGraph marks candidates surfaced by the graph retriever.
	SourceGraph Source = iota
	// SourceVector marks candidates surfaced by the vector retriever.
	SourceVector
)

// Rank is the ordering priority of the source. Lower ranks sort first.
func (s Source) Rank() int {
	return int(s)
}

func (s Source) String() string {
	switch s {
	case SourceGraph:
		return "graph"
	case SourceVector:
		return "vector"
	default:
		return "unknown"
	}
}

// Candidate is a product under consideration for a ranked response.
type Candidate struct {
	ProductID   int64
	Name        string
	Brand       string
	Price       float64
	Category    string
	SubCategory string
	Attributes  []string // Sorted canonical tags
	Source      Source
	Score       float64
}

// HasAttributes reports whether every wanted tag is present on the candidate.
func (c *Candidate) HasAttributes(wanted []string) bool {
	for _, w := range wanted {
		if _, found := slices.BinarySearch(c.Attributes, w); !found {
			return false
		}
	}
	return true
}

// Normalize lowercases and trims s. Names are compared in this form.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// SplitTags splits s on sep and returns the normalized, deduplicated, sorted
// non-empty parts.
func SplitTags(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		part = Normalize(part)
		if part != "" {
			out = append(out, part)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// ParsePrice reads a decimal price. Missing, malformed, negative or
// non-finite values read as zero.
func ParsePrice(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
