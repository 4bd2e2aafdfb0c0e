package generator

import (
	"context"
	"testing"

	"github.com/lintang-b-s/mwmrouter/pkg/datastructure"
	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEdge(from, to osm.NodeID, oneway bool) Edge {
	e := Edge{From: from, To: to, Mask: datastructure.CarMask}
	if oneway {
		e.Flags = datastructure.FlagOneway
	}
	return e
}

func TestKosarajuSCC(t *testing.T) {
	// 10 -> 11 -> 12 <-> 13
	//  ^     |
	//  +--- 14
	n := &Network{Edges: []Edge{
		testEdge(10, 11, true),
		testEdge(11, 12, true),
		testEdge(11, 14, true),
		testEdge(12, 13, false),
		testEdge(14, 10, true),
	}}
	g := newComponentGraph(n)
	scc, sizes := g.kosarajuSCC()
	require.Len(t, sizes, 2)

	assert.Equal(t, scc[g.node[10]], scc[g.node[11]])
	assert.Equal(t, scc[g.node[10]], scc[g.node[14]])
	assert.Equal(t, scc[g.node[12]], scc[g.node[13]])
	assert.NotEqual(t, scc[g.node[10]], scc[g.node[12]])
	assert.Equal(t, int32(3), sizes[scc[g.node[10]]])
	assert.Equal(t, int32(2), sizes[scc[g.node[12]]])
}

func TestDropSmallComponents(t *testing.T) {
	// 1 --- 2      10 --- 11
	//  \   /
	//    3 --> 12
	n := &Network{Edges: []Edge{
		testEdge(1, 2, false),
		testEdge(2, 3, false),
		testEdge(3, 1, false),
		testEdge(10, 11, false),
		testEdge(3, 12, true),
	}}

	assert.Equal(t, 0, DropSmallComponents(n, 0, nil))
	assert.Len(t, n.Edges, 5)

	assert.Equal(t, 2, DropSmallComponents(n, 3, nil))
	require.Len(t, n.Edges, 3)
	for _, e := range n.Edges {
		assert.Contains(t, []osm.NodeID{1, 2, 3}, e.From)
		assert.Contains(t, []osm.NodeID{1, 2, 3}, e.To)
	}
}

func TestDropSmallComponentsParsedNetwork(t *testing.T) {
	network, err := NewOsmParser(nil).Parse(context.Background(), testNetwork())
	require.NoError(t, err)

	// the oneway primary has a walkers twin, every routable junction is in
	// one component of 7
	assert.Equal(t, 0, DropSmallComponents(network, 7, nil))
	assert.Equal(t, 7, DropSmallComponents(network, 8, nil))
	assert.Empty(t, network.Edges)
}
