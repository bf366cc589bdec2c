package neo4j

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allanbutler/kg-rag-grocery/core"
)

func sampleGraph() ([]core.Node, []core.Edge) {
	nodes := []core.Node{
		{Key: "product:1", Label: core.LabelProduct, Attrs: map[string]string{
			core.AttrName: "Oat Crunch", core.AttrBrand: "Acme", core.AttrPrice: "4.50",
		}},
		{Key: "brand:acme", Label: core.LabelBrand, Attrs: map[string]string{core.AttrName: "Acme"}},
		{Key: "product:2", Label: core.LabelProduct, Attrs: map[string]string{core.AttrName: "Oat Milk"}},
	}
	edges := []core.Edge{
		{From: "product:1", To: "brand:acme", Relation: core.RelationMadeBy},
		{From: "product:2", To: "brand:acme", Relation: core.RelationMadeBy},
	}
	return nodes, edges
}

func TestNodeRows_GroupsByLabel(t *testing.T) {
	nodes, _ := sampleGraph()

	groups, err := nodeRows(nodes)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "Product", groups[0].name)
	assert.Equal(t, "Brand", groups[1].name)
	require.Len(t, groups[0].rows, 2)
	assert.Equal(t, int64(2), groups[0].rows[1][propSeq], "seq keeps save order across groups")
	assert.Equal(t, "Oat Crunch", groups[0].rows[0][core.AttrName])
}

func TestNodeRows_RejectsInvalid(t *testing.T) {
	_, err := nodeRows([]core.Node{{Key: "x:1"}})
	assert.ErrorIs(t, err, ErrInvalidGraph)

	_, err = edgeRows([]core.Edge{{From: "a", To: "b"}})
	assert.ErrorIs(t, err, ErrInvalidGraph)
}

func TestNodeFromProps_RoundTrip(t *testing.T) {
	nodes, _ := sampleGraph()
	props := nodeProps(&nodes[0], 0)
	props["weight"] = int64(3)

	got := nodeFromProps(props)
	assert.Equal(t, nodes[0], got)
}

func TestGraphRepository_SaveLoad(t *testing.T) {
	uri := os.Getenv("NEO4J_URI")
	if uri == "" {
		t.Skip("NEO4J_URI not set")
	}
	ctx := context.Background()
	repo, err := Open(ctx, uri, os.Getenv("NEO4J_USER"), os.Getenv("NEO4J_PASSWORD"))
	require.NoError(t, err)
	defer repo.Close()

	nodes, edges := sampleGraph()
	require.NoError(t, repo.SaveGraph(ctx, nodes, edges))

	gotNodes, gotEdges, err := repo.LoadGraph(ctx)
	require.NoError(t, err)
	assert.Equal(t, nodes, gotNodes)
	assert.Equal(t, edges, gotEdges)

	require.NoError(t, repo.SaveGraph(ctx, nil, nil))
	gotNodes, gotEdges, err = repo.LoadGraph(ctx)
	require.NoError(t, err)
	assert.Empty(t, gotNodes)
	assert.Empty(t, gotEdges)
}
