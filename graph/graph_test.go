package graph

import (
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allanbutler/kg-rag-grocery/core"
)

func granola() *core.Product {
	return &core.Product{
		ID: 1, Name: "Nutty Oat Granola", Brand: "Acme", Category: "Pantry", SubCategory: "Cereal",
		Price: 4.5, Ingredients: "Oats, Honey, oats", Attributes: "gluten_free; VEGAN",
	}
}

func TestFromProducts_Shape(t *testing.T) {
	g, err := FromProducts([]*core.Product{granola()})
	require.NoError(t, err)

	// product, brand, subcat, category, 2 ingredients, 2 attributes
	assert.Equal(t, 8, g.Len())
	// MADE_BY, IN_SUBCATEGORY, IN_CATEGORY, 2 HAS_INGREDIENT, 2 HAS_ATTRIBUTE
	assert.Equal(t, 7, g.EdgeCount())

	h, ok := g.Lookup("product:1")
	require.True(t, ok)
	n := g.Node(h)
	assert.Equal(t, core.LabelProduct, n.Label)
	assert.Equal(t, "Nutty Oat Granola", n.Name())
	assert.Equal(t, "Acme", n.Attr(core.AttrBrand))
	assert.InDelta(t, 4.5, n.Price(), 1e-9)

	var neighbors []string
	for _, a := range g.Neighbors(h) {
		neighbors = append(neighbors, g.Node(a.Node).Key+"|"+a.Relation.String())
	}
	slices.Sort(neighbors)
	assert.Equal(t, []string{
		"attr:gluten_free|HAS_ATTRIBUTE",
		"attr:vegan|HAS_ATTRIBUTE",
		"brand:Acme|MADE_BY",
		"ing:honey|HAS_INGREDIENT",
		"ing:oats|HAS_INGREDIENT",
		"subcat:Cereal|IN_SUBCATEGORY",
	}, neighbors)

	sc, ok := g.Lookup("subcat:Cereal")
	require.True(t, ok)
	var scKeys []string
	for _, a := range g.Neighbors(sc) {
		scKeys = append(scKeys, g.Node(a.Node).Key)
	}
	assert.ElementsMatch(t, []string{"product:1", "category:Pantry"}, scKeys)
}

func TestFromProducts_SharedEntities(t *testing.T) {
	second := granola()
	second.ID = 2
	second.Name = "Honey Crunch"
	second.Ingredients = "honey"
	second.Attributes = "vegan"

	g, err := FromProducts([]*core.Product{granola(), second})
	require.NoError(t, err)

	h, ok := g.Lookup("ing:honey")
	require.True(t, ok)
	assert.Len(t, g.Neighbors(h), 2)

	h, ok = g.Lookup("attr:vegan")
	require.True(t, ok)
	assert.Len(t, g.Neighbors(h), 2)
}

func TestFromProducts_RejectsInvalid(t *testing.T) {
	bad := granola()
	bad.Name = " "
	_, err := FromProducts([]*core.Product{bad})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrEmptyName)
}

func TestBuilder_DanglingEdge(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddNode(core.Node{Key: "product:1", Label: core.LabelProduct}))
	require.NoError(t, b.AddEdge(core.Edge{From: "product:1", To: "brand:Ghost", Relation: core.RelationMadeBy}))

	_, err := b.Build()
	assert.ErrorIs(t, err, core.ErrDanglingEdge)
}

func TestBuilder_DeferredEdgeResolves(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddEdge(core.Edge{From: "product:1", To: "brand:Acme", Relation: core.RelationMadeBy}))
	require.NoError(t, b.AddNode(core.Node{Key: "product:1", Label: core.LabelProduct}))
	require.NoError(t, b.AddNode(core.Node{Key: "brand:Acme", Label: core.LabelBrand}))

	g, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, 1, g.EdgeCount())
}

func TestBuilder_RejectsInvalidNodes(t *testing.T) {
	b := NewBuilder()
	assert.ErrorIs(t, b.AddNode(core.Node{Key: "brand:Acme", Label: core.LabelProduct}), core.ErrKeyPrefixMismatch)
	assert.ErrorIs(t, b.AddNode(core.Node{Key: "x:1", Label: core.Label(99)}), core.ErrUnknownLabel)
	assert.ErrorIs(t, b.AddEdge(core.Edge{From: "a:1", To: "b:2"}), core.ErrUnknownRelation)
}

func TestBuilder_MergesAttributes(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddNode(core.Node{Key: "brand:Acme", Label: core.LabelBrand, Attrs: map[string]string{"name": "Acme"}}))
	require.NoError(t, b.AddNode(core.Node{Key: "brand:Acme", Label: core.LabelBrand, Attrs: map[string]string{"country": "US"}}))

	g, err := b.Build()
	require.NoError(t, err)
	require.Equal(t, 1, g.Len())
	n := g.Node(0)
	assert.Equal(t, "Acme", n.Name())
	assert.Equal(t, "US", n.Attr("country"))
}

func TestBuilder_DuplicateEdgeCollapses(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddNode(core.Node{Key: "product:1", Label: core.LabelProduct}))
	require.NoError(t, b.AddNode(core.Node{Key: "brand:Acme", Label: core.LabelBrand}))
	require.NoError(t, b.AddEdge(core.Edge{From: "product:1", To: "brand:Acme", Relation: core.RelationMadeBy}))
	require.NoError(t, b.AddEdge(core.Edge{From: "brand:Acme", To: "product:1", Relation: core.RelationMadeBy}))

	g, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, 1, g.EdgeCount())
	assert.Len(t, g.Neighbors(0), 1)
	assert.Len(t, g.Neighbors(1), 1)
}

func TestBuilder_RepeatedEdgeKeepsLatestRelation(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddNode(core.Node{Key: "subcat:Cereal", Label: core.LabelSubCategory}))
	require.NoError(t, b.AddNode(core.Node{Key: "category:Pantry", Label: core.LabelCategory}))
	require.NoError(t, b.AddEdge(core.Edge{From: "subcat:Cereal", To: "category:Pantry", Relation: core.RelationMadeBy}))
	require.NoError(t, b.AddEdge(core.Edge{From: "category:Pantry", To: "subcat:Cereal", Relation: core.RelationInCategory}))

	g, err := b.Build()
	require.NoError(t, err)
	require.Len(t, g.Neighbors(0), 1)
	assert.Equal(t, core.RelationInCategory, g.Neighbors(0)[0].Relation)
	assert.Equal(t, core.RelationInCategory, g.Neighbors(1)[0].Relation)
}

func sharedSubcategoryProducts(n int) []*core.Product {
	products := make([]*core.Product, n)
	for i := range products {
		products[i] = &core.Product{
			ID: int64(i + 1), Row: i, Name: fmt.Sprintf("Cereal %d", i+1), Price: 3,
			Brand: "Acme", Category: "Pantry", SubCategory: "Cereal",
		}
	}
	return products
}

func TestFromProducts_LargeSharedSubcategory(t *testing.T) {
	const n = 20000
	g, err := FromProducts(sharedSubcategoryProducts(n))
	require.NoError(t, err)

	// Product, brand, subcategory and category nodes; MADE_BY and
	// IN_SUBCATEGORY per product plus one IN_CATEGORY.
	assert.Equal(t, n+3, g.Len())
	assert.Equal(t, 2*n+1, g.EdgeCount())
	subcat, ok := g.Lookup("subcat:Cereal")
	require.True(t, ok)
	assert.Len(t, g.Neighbors(subcat), n+1)
}

func BenchmarkFromProducts(b *testing.B) {
	products := sharedSubcategoryProducts(10000)
	for b.Loop() {
		if _, err := FromProducts(products); err != nil {
			b.Fatal(err)
		}
	}
}

func TestGraph_RoundTripParts(t *testing.T) {
	g, err := FromProducts([]*core.Product{granola()})
	require.NoError(t, err)

	var nodes []core.Node
	for _, n := range g.Nodes() {
		nodes = append(nodes, *n)
	}
	var edges []core.Edge
	for e := range g.Edges() {
		edges = append(edges, e)
	}
	assert.Len(t, edges, g.EdgeCount())

	rebuilt, skipped, err := FromStored(nodes, edges)
	require.NoError(t, err)
	assert.Zero(t, skipped)
	assert.Equal(t, g.Len(), rebuilt.Len())
	assert.Equal(t, g.EdgeCount(), rebuilt.EdgeCount())
	for h, n := range g.Nodes() {
		rh, ok := rebuilt.Lookup(n.Key)
		require.True(t, ok)
		assert.Equal(t, h, rh)
		assert.Len(t, rebuilt.Neighbors(rh), len(g.Neighbors(h)))
	}
}

func TestEmpty(t *testing.T) {
	g := Empty()
	assert.Zero(t, g.Len())
	assert.Zero(t, g.EdgeCount())
	_, ok := g.Lookup("product:1")
	assert.False(t, ok)
	for range g.Nodes() {
		t.Fatal("empty graph yielded a node")
	}
}

func TestFromStored_SkipsMalformed(t *testing.T) {
	nodes := []core.Node{
		{Key: "product:1", Label: core.LabelProduct, Attrs: map[string]string{core.AttrName: "Oat Milk"}},
		{Key: "attr:vegan", Label: core.LabelAttribute, Attrs: map[string]string{core.AttrName: "vegan"}},
		{Key: "bogus", Label: core.LabelBrand},
		{Key: "brand:x", Label: core.LabelUnknown},
	}
	edges := []core.Edge{
		{From: "product:1", To: "attr:vegan", Relation: core.RelationHasAttribute},
		{From: "product:1", To: "brand:missing", Relation: core.RelationMadeBy},
		{From: "product:1", To: "attr:vegan", Relation: core.RelationUnknown},
	}

	g, skipped, err := FromStored(nodes, edges)
	require.NoError(t, err)
	assert.Equal(t, 4, skipped)
	assert.Equal(t, 2, g.Len())
	assert.Equal(t, 1, g.EdgeCount())
}
