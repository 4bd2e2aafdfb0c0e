package generator

import (
	"sort"

	"github.com/lintang-b-s/mwmrouter/pkg/datastructure"
	"github.com/lintang-b-s/mwmrouter/pkg/util"
	"github.com/paulmach/osm"
	"go.uber.org/zap"
)

type componentGraph struct {
	ids  []osm.NodeID
	out  [][]int32
	in   [][]int32
	node map[osm.NodeID]int32
}

func newComponentGraph(n *Network) *componentGraph {
	g := &componentGraph{node: make(map[osm.NodeID]int32)}
	index := func(id osm.NodeID) int32 {
		if v, ok := g.node[id]; ok {
			return v
		}
		v := int32(len(g.ids))
		g.node[id] = v
		g.ids = append(g.ids, id)
		g.out = append(g.out, nil)
		g.in = append(g.in, nil)
		return v
	}
	addArc := func(from, to int32) {
		g.out[from] = append(g.out[from], to)
		g.in[to] = append(g.in[to], from)
	}

	// nodes are numbered in osm id order so component ids do not depend on
	// the order ways were read in
	ends := make([]osm.NodeID, 0, len(n.Edges)*2)
	for _, e := range n.Edges {
		if e.Mask != 0 {
			ends = append(ends, e.From, e.To)
		}
	}
	sort.Slice(ends, func(i, j int) bool { return ends[i] < ends[j] })
	for _, id := range ends {
		index(id)
	}

	for _, e := range n.Edges {
		if e.Mask == 0 {
			continue
		}
		from, to := g.node[e.From], g.node[e.To]
		addArc(from, to)
		if !e.Flags.Has(datastructure.FlagOneway) {
			addArc(to, from)
		}
	}
	return g
}

// dfs appends v and every unvisited node reachable from it in postorder.
func (g *componentGraph) dfs(v int32, output *[]int32, visited []bool, reversed bool) {
	adj := g.out
	if reversed {
		adj = g.in
	}
	type frame struct {
		v    int32
		next int
	}
	visited[v] = true
	stack := []frame{{v: v}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next < len(adj[top.v]) {
			w := adj[top.v][top.next]
			top.next++
			if !visited[w] {
				visited[w] = true
				stack = append(stack, frame{v: w})
			}
			continue
		}
		*output = append(*output, top.v)
		stack = stack[:len(stack)-1]
	}
}

// kosarajuSCC returns the component of every node and the size of every
// component.
func (g *componentGraph) kosarajuSCC() (scc []int32, sizes []int32) {
	n := len(g.ids)
	order := make([]int32, 0, n)
	visited := make([]bool, n)
	for v := int32(0); v < int32(n); v++ {
		if !visited[v] {
			g.dfs(v, &order, visited, false)
		}
	}
	order = util.ReverseG(order)

	visited = make([]bool, n)
	scc = make([]int32, n)
	for _, v := range order {
		if visited[v] {
			continue
		}
		component := make([]int32, 0)
		g.dfs(v, &component, visited, true)
		id := int32(len(sizes))
		for _, w := range component {
			scc[w] = id
		}
		sizes = append(sizes, int32(len(component)))
	}
	return scc, sizes
}

// DropSmallComponents removes the edges touching a strongly connected
// component of fewer than minSize junctions, such as parking lots cut off
// by access tags. It returns the number of removed edges.
func DropSmallComponents(n *Network, minSize int, logger *zap.Logger) int {
	if minSize <= 1 || len(n.Edges) == 0 {
		return 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	g := newComponentGraph(n)
	scc, sizes := g.kosarajuSCC()
	small := func(id osm.NodeID) bool {
		return sizes[scc[g.node[id]]] < int32(minSize)
	}

	kept := n.Edges[:0]
	dropped := 0
	for _, e := range n.Edges {
		if e.Mask != 0 && (small(e.From) || small(e.To)) {
			dropped++
			continue
		}
		kept = append(kept, e)
	}
	n.Edges = kept

	logger.Info("strongly connected components",
		zap.Int("components", len(sizes)),
		zap.Int("min_size", minSize),
		zap.Int("dropped_edges", dropped))
	return dropped
}
