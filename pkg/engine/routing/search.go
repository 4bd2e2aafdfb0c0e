package routing

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/lintang-b-s/mwmrouter/pkg/datastructure"
	"github.com/lintang-b-s/mwmrouter/pkg/geo"
	"github.com/lintang-b-s/mwmrouter/pkg/util"
	"github.com/lintang-b-s/mwmrouter/pkg/vehicle"
	"github.com/lintang-b-s/mwmrouter/pkg/worldgraph"
)

var (
	ErrRouteNotFound = errors.New("route not found")
	ErrCancelled     = errors.New("route search cancelled")
)

const weightEps = 1e-9

// Graph is what the search needs from a world graph session.
type Graph interface {
	OutgoingEdges(v datastructure.JunctionKey) ([]worldgraph.Edge, error)
	IncomingEdges(v datastructure.JunctionKey) ([]worldgraph.Edge, error)
	Coordinate(v datastructure.JunctionKey) (datastructure.Coordinate, bool)
	Profile() *vehicle.Profile
}

// Path is a minimum weight path. Steps are in travel order.
type Path struct {
	Weight   float64
	Distance float64
	Duration float64
	Hops     int32
	Steps    []worldgraph.Step
	// Settled counts vertices popped by both frontiers.
	Settled int
}

type cost struct {
	weight float64
	hops   int32
	dist   float64
}

// better orders by weight, then fewer segments, then shorter distance.
func (c cost) better(o cost) bool {
	if math.Abs(c.weight-o.weight) > weightEps {
		return c.weight < o.weight
	}
	if c.hops != o.hops {
		return c.hops < o.hops
	}
	return c.dist < o.dist-weightEps
}

func (c cost) plus(o cost) cost {
	return cost{weight: c.weight + o.weight, hops: c.hops + o.hops, dist: c.dist + o.dist}
}

type label struct {
	cost
	parent  datastructure.JunctionKey
	edge    worldgraph.Edge
	hasEdge bool
	settled bool
}

type frontier struct {
	forward bool
	queue   *datastructure.MinHeap[datastructure.JunctionKey]
	labels  map[datastructure.JunctionKey]*label
}

func newFrontier(forward bool, origin datastructure.JunctionKey, key float64) *frontier {
	f := &frontier{
		forward: forward,
		queue:   datastructure.NewMinHeap[datastructure.JunctionKey](),
		labels:  make(map[datastructure.JunctionKey]*label),
	}
	f.labels[origin] = &label{}
	f.queue.Insert(datastructure.PriorityQueueNode[datastructure.JunctionKey]{Rank: key, Item: origin})
	return f
}

type search struct {
	ctx     context.Context
	g       Graph
	profile *vehicle.Profile
	from    datastructure.JunctionKey
	to      datastructure.JunctionKey
	fromC   datastructure.Coordinate
	toC     datastructure.Coordinate
	pot     map[datastructure.JunctionKey]float64

	best    cost
	meet    datastructure.JunctionKey
	found   bool
	settled int
}

// potential is the forward potential (pi_t - pi_s) / 2. The backward one is
// its negation, which keeps both reduced graphs identical.
func (s *search) potential(v datastructure.JunctionKey) float64 {
	if p, ok := s.pot[v]; ok {
		return p
	}
	p := 0.0
	if c, ok := s.g.Coordinate(v); ok {
		toT := s.profile.HeuristicWeight(geo.HaversineMeters(c.Lat, c.Lon, s.toC.Lat, s.toC.Lon))
		fromS := s.profile.HeuristicWeight(geo.HaversineMeters(s.fromC.Lat, s.fromC.Lon, c.Lat, c.Lon))
		p = (toT - fromS) / 2
	}
	s.pot[v] = p
	return p
}

func (s *search) key(forward bool, v datastructure.JunctionKey, w float64) float64 {
	if forward {
		return w + s.potential(v)
	}
	return w - s.potential(v)
}

// Search runs a bidirectional A* from from to to. The context is checked at
// every frontier pop.
func Search(ctx context.Context, g Graph, from, to datastructure.JunctionKey) (*Path, error) {
	fromC, okFrom := g.Coordinate(from)
	toC, okTo := g.Coordinate(to)
	if !okFrom || !okTo {
		return nil, fmt.Errorf("%w: endpoint without coordinate", ErrRouteNotFound)
	}
	s := &search{
		ctx:     ctx,
		g:       g,
		profile: g.Profile(),
		from:    from,
		to:      to,
		fromC:   fromC,
		toC:     toC,
		pot:     make(map[datastructure.JunctionKey]float64),
		best:    cost{weight: math.Inf(1)},
	}

	if from == to {
		return &Path{}, nil
	}
	fw := newFrontier(true, from, s.key(true, from, 0))
	bw := newFrontier(false, to, s.key(false, to, 0))

	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCancelled, err)
		}
		if fw.queue.Size() == 0 || bw.queue.Size() == 0 {
			break
		}
		fMin, _ := fw.queue.GetMin()
		bMin, _ := bw.queue.GetMin()
		if s.found && fMin.Rank+bMin.Rank > s.best.weight+weightEps {
			break
		}

		cur, other := fw, bw
		if bMin.Rank < fMin.Rank {
			cur, other = bw, fw
		}
		if err := s.step(cur, other); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: %v", ErrCancelled, err)
			}
			return nil, err
		}
	}

	if !s.found {
		return nil, ErrRouteNotFound
	}
	return s.path(fw, bw), nil
}

func (s *search) step(cur, other *frontier) error {
	node, err := cur.queue.ExtractMin()
	if err != nil {
		return err
	}
	u := node.Item
	lu := cur.labels[u]
	lu.settled = true
	s.settled++
	s.meetAt(u, lu.cost, other)

	var edges []worldgraph.Edge
	if cur.forward {
		edges, err = s.g.OutgoingEdges(u)
	} else {
		edges, err = s.g.IncomingEdges(u)
	}
	if err != nil {
		return err
	}

	for _, e := range edges {
		v := e.Node
		lv, seen := cur.labels[v]
		if seen && lv.settled {
			continue
		}
		nc := lu.cost.plus(cost{weight: e.Weight, hops: e.Hops(), dist: e.Distance})
		if seen && !nc.better(lv.cost) {
			continue
		}
		if !seen {
			lv = &label{}
			cur.labels[v] = lv
		}
		lv.cost = nc
		lv.parent = u
		lv.edge = e
		lv.hasEdge = true
		cur.queue.Insert(datastructure.PriorityQueueNode[datastructure.JunctionKey]{
			Rank: s.key(cur.forward, v, nc.weight),
			Hops: nc.hops,
			Dist: nc.dist,
			Item: v,
		})
		s.meetAt(v, nc, other)
	}
	return nil
}

func (s *search) meetAt(v datastructure.JunctionKey, c cost, other *frontier) {
	lo, ok := other.labels[v]
	if !ok {
		return
	}
	total := c.plus(lo.cost)
	if !s.found || total.better(s.best) {
		s.best = total
		s.meet = v
		s.found = true
	}
}

func (s *search) path(fw, bw *frontier) *Path {
	p := &Path{Settled: s.settled}

	var head []worldgraph.Edge
	for v := s.meet; ; {
		l := fw.labels[v]
		if !l.hasEdge {
			break
		}
		head = append(head, l.edge)
		v = l.parent
	}
	head = util.ReverseG(head)

	for v := s.meet; ; {
		l := bw.labels[v]
		if !l.hasEdge {
			break
		}
		head = append(head, l.edge)
		v = l.parent
	}

	for _, e := range head {
		p.Weight += e.Weight
		p.Distance += e.Distance
		p.Duration += e.Duration
		p.Hops += e.Hops()
		p.Steps = append(p.Steps, e.Steps...)
	}
	return p
}
