package routing

import (
	"context"
	"testing"

	"github.com/lintang-b-s/mwmrouter/pkg/datastructure"
	"github.com/lintang-b-s/mwmrouter/pkg/vehicle"
	"github.com/lintang-b-s/mwmrouter/pkg/worldgraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testGraph struct {
	profile *vehicle.Profile
	coords  map[datastructure.JunctionKey]datastructure.Coordinate
	out     map[datastructure.JunctionKey][]worldgraph.Edge
	in      map[datastructure.JunctionKey][]worldgraph.Edge
	pops    int
	onPop   func(n int)
}

func newTestGraph() *testGraph {
	return &testGraph{
		profile: vehicle.MustProfile(datastructure.Car, datastructure.RouteOptions{OptimizeFor: datastructure.OptimizeForDistance}),
		coords:  make(map[datastructure.JunctionKey]datastructure.Coordinate),
		out:     make(map[datastructure.JunctionKey][]worldgraph.Edge),
		in:      make(map[datastructure.JunctionKey][]worldgraph.Edge),
	}
}

func jk(local uint32) datastructure.JunctionKey {
	return datastructure.NewJunctionKey(0, local)
}

func (g *testGraph) arc(from, to uint32, w float64) {
	g.coords[jk(from)] = datastructure.NewCoordinate(0, 0)
	g.coords[jk(to)] = datastructure.NewCoordinate(0, 0)
	st := worldgraph.Step{
		Segment:  datastructure.NewSegment(0, from*100+to, true),
		From:     jk(from),
		To:       jk(to),
		Weight:   w,
		Distance: w,
	}
	g.out[jk(from)] = append(g.out[jk(from)], worldgraph.Edge{Node: jk(to), Weight: w, Distance: w, Steps: []worldgraph.Step{st}})
	g.in[jk(to)] = append(g.in[jk(to)], worldgraph.Edge{Node: jk(from), Weight: w, Distance: w, Steps: []worldgraph.Step{st}})
}

func (g *testGraph) road(a, b uint32, w float64) {
	g.arc(a, b, w)
	g.arc(b, a, w)
}

func (g *testGraph) OutgoingEdges(v datastructure.JunctionKey) ([]worldgraph.Edge, error) {
	g.pop()
	return g.out[v], nil
}

func (g *testGraph) IncomingEdges(v datastructure.JunctionKey) ([]worldgraph.Edge, error) {
	g.pop()
	return g.in[v], nil
}

func (g *testGraph) pop() {
	g.pops++
	if g.onPop != nil {
		g.onPop(g.pops)
	}
}

func (g *testGraph) Coordinate(v datastructure.JunctionKey) (datastructure.Coordinate, bool) {
	c, ok := g.coords[v]
	return c, ok
}

func (g *testGraph) Profile() *vehicle.Profile {
	return g.profile
}

func stepNodes(p *Path) []uint32 {
	nodes := []uint32{p.Steps[0].From.Local}
	for _, st := range p.Steps {
		nodes = append(nodes, st.To.Local)
	}
	return nodes
}

/*
p=0, v=1, q=2, w=3, r=4, f=5

	 p
	  \
	   10
	    \
	     v -----3----- r
	    /             /
	   6             5
	  /             /
	 q ---5----- w ----15---- f

every road two way
*/
func TestSearchBidirectional(t *testing.T) {
	g := newTestGraph()
	g.road(0, 1, 10)
	g.road(1, 4, 3)
	g.road(1, 2, 6)
	g.road(2, 3, 5)
	g.road(4, 3, 5)
	g.road(3, 5, 15)

	p, err := Search(context.Background(), g, jk(0), jk(5))
	require.NoError(t, err)
	assert.Equal(t, 33.0, p.Weight)
	assert.Equal(t, 33.0, p.Distance)
	assert.Equal(t, int32(4), p.Hops)
	assert.Equal(t, []uint32{0, 1, 4, 3, 5}, stepNodes(p))
}

/*
	s --1-- a --1-- t
	 \             /
	  ------2------
*/
func TestSearchPrefersFewerSegmentsOnEqualWeight(t *testing.T) {
	g := newTestGraph()
	g.road(1, 2, 1)
	g.road(2, 3, 1)
	g.road(1, 3, 2)

	for i := 0; i < 5; i++ {
		p, err := Search(context.Background(), g, jk(1), jk(3))
		require.NoError(t, err)
		assert.Equal(t, 2.0, p.Weight)
		assert.Equal(t, []uint32{1, 3}, stepNodes(p))
	}
}

func TestSearchOneway(t *testing.T) {
	g := newTestGraph()
	g.arc(1, 2, 1)
	g.arc(2, 3, 1)
	g.road(1, 4, 5)
	g.road(4, 3, 5)

	p, err := Search(context.Background(), g, jk(3), jk(1))
	require.NoError(t, err)
	assert.Equal(t, 10.0, p.Weight)

	p, err = Search(context.Background(), g, jk(1), jk(3))
	require.NoError(t, err)
	assert.Equal(t, 2.0, p.Weight)
}

func TestSearchNotFound(t *testing.T) {
	g := newTestGraph()
	g.road(1, 2, 1)
	g.road(3, 4, 1)

	_, err := Search(context.Background(), g, jk(1), jk(4))
	assert.ErrorIs(t, err, ErrRouteNotFound)
}

func TestSearchSamePoint(t *testing.T) {
	g := newTestGraph()
	g.road(1, 2, 1)
	p, err := Search(context.Background(), g, jk(1), jk(1))
	require.NoError(t, err)
	assert.Empty(t, p.Steps)
}

func TestSearchCancelledAtPop(t *testing.T) {
	g := newTestGraph()
	for i := uint32(1); i < 50; i++ {
		g.road(i, i+1, 1)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g.onPop = func(n int) {
		if n == 3 {
			cancel()
		}
	}

	_, err := Search(ctx, g, jk(1), jk(50))
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, 3, g.pops)
}
