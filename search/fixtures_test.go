package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/allanbutler/kg-rag-grocery/catalog"
	"github.com/allanbutler/kg-rag-grocery/core"
	"github.com/allanbutler/kg-rag-grocery/graph"
)

func fixtureProducts() []*core.Product {
	return []*core.Product{
		{ID: 1, Row: 0, Name: "Crunchy Oat Granola", Brand: "Acme", Category: "Pantry", SubCategory: "Cereal",
			Price: 3.99, Ingredients: "oats, honey", Attributes: "nut_free;vegetarian"},
		{ID: 2, Row: 1, Name: "Almond Granola Clusters", Brand: "Acme", Category: "Pantry", SubCategory: "Cereal",
			Price: 4.49, Ingredients: "oats, almonds", Attributes: "vegetarian"},
		{ID: 3, Row: 2, Name: "Maple Granola Deluxe", Brand: "Summit", Category: "Pantry", SubCategory: "Cereal",
			Price: 6.99, Ingredients: "oats, maple syrup", Attributes: "nut_free;vegan"},
		{ID: 4, Row: 3, Name: "Kids Granola Bites", Brand: "Summit", Category: "Snacks", SubCategory: "Bars",
			Price: 2.49, Ingredients: "oats, rice", Attributes: "nut_free;kids"},
		{ID: 5, Row: 4, Name: "Oat Milk", Brand: "Dairyless", Category: "Dairy", SubCategory: "Milk Alternatives",
			Price: 3.29, Ingredients: "oats, water", Attributes: "vegan;nut_free;gluten_free"},
		{ID: 6, Row: 5, Name: "Whole Milk", Brand: "Farm Co", Category: "Dairy", SubCategory: "Milk",
			Price: 2.99, Ingredients: "milk", Attributes: "vegetarian;gluten_free"},
	}
}

func fixtureStores(t *testing.T) (*graph.Graph, *catalog.Table) {
	t.Helper()
	products := fixtureProducts()
	g, err := graph.FromProducts(products)
	require.NoError(t, err)
	return g, catalog.NewTable(products)
}

// fakeIndex returns canned matches regardless of the query vector.
type fakeIndex struct {
	matches []core.SimilarityMatch
	err     error
	calls   int
}

func (f *fakeIndex) Nearest(ctx context.Context, vector []float32, k int) ([]core.SimilarityMatch, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.matches[:min(k, len(f.matches))], nil
}

func (f *fakeIndex) Len() int {
	return len(f.matches)
}

func (f *fakeIndex) Close() error {
	return nil
}

func names(cands []core.Candidate) []string {
	out := make([]string, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.Name)
	}
	return out
}

func cardsOf(items []GraphItem) []core.Candidate {
	var out []core.Candidate
	for _, it := range items {
		if it.Kind == ItemProduct {
			out = append(out, it.Product)
		}
	}
	return out
}

func factsOf(items []GraphItem) []string {
	var out []string
	for _, it := range items {
		if it.Kind == ItemFact {
			out = append(out, it.Fact)
		}
	}
	return out
}
