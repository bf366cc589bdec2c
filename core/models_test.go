package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "same content produces same ID", content: "test content"},
		{name: "empty string", content: ""},
		{name: "long content", content: "Oat Crunch | Sunny Farms | Breakfast | Granola | oats, honey | vegan;nut_free |"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, IDFromContent(tt.content), IDFromContent(tt.content))
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	assert.NotEqual(t, IDFromContent("content1"), IDFromContent("content2"))
}

func TestProduct_AttributeSet(t *testing.T) {
	p := &Product{Attributes: " Vegan;nut_free;;vegan ; gluten_free"}
	assert.Equal(t, []string{"gluten_free", "nut_free", "vegan"}, p.AttributeSet())

	empty := &Product{}
	assert.Empty(t, empty.AttributeSet())
}

func TestProduct_IngredientList(t *testing.T) {
	p := &Product{Ingredients: "Oats, honey, , OATS, almonds"}
	assert.Equal(t, []string{"oats", "honey", "almonds"}, p.IngredientList())
}

func TestProduct_IndexText(t *testing.T) {
	p := &Product{
		Name: "Oat Crunch", Brand: "Sunny", Category: "Breakfast", SubCategory: "Granola",
		Ingredients: "oats", Attributes: "vegan", NutritionText: "5g protein",
	}
	assert.Equal(t, "Oat Crunch | Sunny | Breakfast | Granola | oats | vegan | 5g protein", p.IndexText())
}

func TestProduct_Fingerprint(t *testing.T) {
	p := &Product{ID: 1, Row: 3, Name: "Oat Crunch", Price: 4}
	same := &Product{ID: 2, Row: 9, Name: "Oat Crunch", Price: 9}
	assert.Equal(t, p.Fingerprint(), same.Fingerprint(), "only index text matters")

	changed := &Product{ID: 1, Name: "Oat Crunch", Attributes: "vegan"}
	assert.NotEqual(t, p.Fingerprint(), changed.Fingerprint())
}

func TestSource(t *testing.T) {
	assert.Equal(t, 0, SourceGraph.Rank())
	assert.Equal(t, 1, SourceVector.Rank())
	assert.Equal(t, "graph", SourceGraph.String())
	assert.Equal(t, "vector", SourceVector.String())
	assert.Equal(t, "unknown", Source(9).String())
}

func TestCandidate_HasAttributes(t *testing.T) {
	c := &Candidate{Attributes: []string{"gluten_free", "nut_free", "vegan"}}

	assert.True(t, c.HasAttributes(nil))
	assert.True(t, c.HasAttributes([]string{"nut_free"}))
	assert.True(t, c.HasAttributes([]string{"nut_free", "vegan"}))
	assert.False(t, c.HasAttributes([]string{"kids"}))
	assert.False(t, c.HasAttributes([]string{"vegan", "low_sugar"}))
}

func TestParsePrice(t *testing.T) {
	assert.Equal(t, 4.99, ParsePrice("4.99"))
	assert.Equal(t, 3.0, ParsePrice(" 3 "))
	assert.Zero(t, ParsePrice(""))
	assert.Zero(t, ParsePrice("n/a"))
	assert.Zero(t, ParsePrice("-2"))
	assert.Zero(t, ParsePrice("NaN"))
	assert.Zero(t, ParsePrice("Inf"))
	assert.Zero(t, ParsePrice("-Inf"))
	assert.Zero(t, ParsePrice("+infinity"))
}
