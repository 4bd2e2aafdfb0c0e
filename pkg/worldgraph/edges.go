package worldgraph

import (
	"github.com/lintang-b-s/mwmrouter/pkg/datastructure"
	"github.com/lintang-b-s/mwmrouter/pkg/mwm"
	"github.com/lintang-b-s/mwmrouter/pkg/regiongraph"
	"github.com/lintang-b-s/mwmrouter/pkg/util"
)

// Step is one segment of a search edge. From and To are search vertices
// (canonical junction keys or fake junctions), so consecutive steps of a path
// always share their junction.
type Step struct {
	Segment  datastructure.Segment
	From     datastructure.JunctionKey
	To       datastructure.JunctionKey
	Weight   float64
	Distance float64
	Duration float64
	Leap     bool
	// Partial marks a real edge entered or left in its middle.
	Partial  bool
	Attr     datastructure.EdgeAttributes
	Geometry []datastructure.Coordinate

	edgeIdx int32
}

// Edge is an arc of the search graph. Node is the head for outgoing edges
// and the tail for incoming ones. Steps are in travel order either way.
type Edge struct {
	Node     datastructure.JunctionKey
	Weight   float64
	Distance float64
	Duration float64
	Steps    []Step
}

func (e *Edge) Hops() int32 {
	return int32(len(e.Steps))
}

func (e *Edge) add(st Step) {
	e.Weight += st.Weight
	e.Distance += st.Distance
	e.Duration += st.Duration
	e.Steps = append(e.Steps, st)
}

func edgeOf(node datastructure.JunctionKey, steps ...Step) Edge {
	e := Edge{Node: node, Steps: make([]Step, 0, len(steps))}
	for _, st := range steps {
		e.add(st)
	}
	return e
}

// OutgoingEdges lists the edges leaving v under the session's mode and
// profile. Expansion order is deterministic for a fixed set of regions.
func (s *Session) OutgoingEdges(v datastructure.JunctionKey) ([]Edge, error) {
	return s.edges(v, true)
}

// IncomingEdges lists the edges entering v, for the backward search.
func (s *Session) IncomingEdges(v datastructure.JunctionKey) ([]Edge, error) {
	return s.edges(v, false)
}

func (s *Session) edges(v datastructure.JunctionKey, forward bool) ([]Edge, error) {
	if !s.mode.Valid() {
		return nil, ErrInvalidMode
	}
	if err := s.ctx.Err(); err != nil {
		return nil, err
	}

	ts, inTurn := s.arena.turnState(v)
	base := v
	if inTurn {
		base = s.canonical(ts.region, ts.via)
	}
	raw, err := s.junctionEdges(base, forward)
	if err != nil {
		return nil, err
	}
	if forward {
		return s.outgoingTurns(raw, ts, inTurn), nil
	}
	return s.incomingTurns(raw, v, inTurn), nil
}

// junctionEdges lists the edges at a junction or fake vertex, ignoring turn
// restrictions.
func (s *Session) junctionEdges(v datastructure.JunctionKey, forward bool) ([]Edge, error) {
	var out []Edge
	if !v.IsFake() {
		for _, side := range s.g.transitions.Sides(v) {
			var err error
			out, err = s.sideEdges(out, side, forward)
			if err != nil {
				return nil, err
			}
		}
	}
	return append(out, s.arena.edges(v, forward)...), nil
}

func (s *Session) sideEdges(out []Edge, side datastructure.JunctionKey, forward bool) ([]Edge, error) {
	if s.mode == LeapsOnly {
		if s.isEndRegion(side.Region) {
			return s.realEdges(out, side, forward, true)
		}
		return s.leapEdges(out, side, forward)
	}
	if !s.allowed(side.Region) {
		return out, nil
	}
	return s.realEdges(out, side, forward, s.mode.joints())
}

func (s *Session) realStep(view *regiongraph.View, edgeIdx int32, fwd bool, from, to uint32) Step {
	e := view.EdgeAt(edgeIdx)
	w, d := s.profile.EdgeCost(e.Attr)
	r := view.ID()
	return Step{
		Segment:  datastructure.NewSegment(r, e.ID, fwd),
		From:     s.canonical(r, from),
		To:       s.canonical(r, to),
		Weight:   w,
		Distance: d,
		Duration: s.profile.Duration(e.Attr),
		Attr:     e.Attr,
		edgeIdx:  edgeIdx,
	}
}

func (s *Session) realEdges(out []Edge, side datastructure.JunctionKey, forward, joints bool) ([]Edge, error) {
	view, err := s.view(side.Region)
	if err != nil || view == nil {
		return out, err
	}
	j := side.Local
	if !view.HasJunction(j) {
		return out, nil
	}

	arcs := view.InArcs(j)
	if forward {
		arcs = view.OutArcs(j)
	}
	for _, arc := range arcs {
		if !view.CanTraverse(s.profile, arc.Edge, arc.Forward) {
			continue
		}
		if !joints {
			var st Step
			if forward {
				st = s.realStep(view, arc.Edge, arc.Forward, j, arc.Head)
			} else {
				st = s.realStep(view, arc.Edge, arc.Forward, arc.Head, j)
			}
			out = append(out, edgeOf(s.canonical(view.ID(), arc.Head), st))
			continue
		}
		out = append(out, s.chain(view, j, arc, forward))
	}
	return out, nil
}

func (s *Session) chainStop(view *regiongraph.View, j uint32) bool {
	return view.IsJoint(j) || s.arena.isAttached(datastructure.NewJunctionKey(view.ID(), j))
}

// chain follows arc through degree 2 junctions until the next joint, a
// junction touched by a fake segment, a branch or a cycle.
func (s *Session) chain(view *regiongraph.View, origin uint32, first regiongraph.Arc, forward bool) Edge {
	steps := make([]Step, 0, 4)
	prev, cur := origin, first.Head
	arc := first
	for {
		if forward {
			steps = append(steps, s.realStep(view, arc.Edge, arc.Forward, prev, cur))
		} else {
			steps = append(steps, s.realStep(view, arc.Edge, arc.Forward, cur, prev))
		}
		if cur == origin || s.chainStop(view, cur) {
			break
		}

		candidates := view.InArcs(cur)
		if forward {
			candidates = view.OutArcs(cur)
		}
		next, count := regiongraph.Arc{}, 0
		for _, a := range candidates {
			if a.Head == prev || !view.CanTraverse(s.profile, a.Edge, a.Forward) {
				continue
			}
			next = a
			count++
		}
		if count != 1 {
			break
		}
		arc = next
		prev, cur = cur, next.Head
	}

	if !forward {
		steps = util.ReverseG(steps)
	}
	return edgeOf(s.canonical(view.ID(), cur), steps...)
}

type leapAdjacency struct {
	from map[uint32][]mwm.Leap
	to   map[uint32][]mwm.Leap
}

func (s *Session) leapAdjacency(region datastructure.RegionID) (*leapAdjacency, error) {
	if adj, ok := s.arena.leaps[region]; ok {
		return adj, nil
	}

	leaps, ok := s.g.transitions.Leaps(region, s.profile.Key())
	if !ok {
		view, err := s.view(region)
		if err != nil {
			return nil, err
		}
		leaps, err = s.g.leaps(s.ctx, region, view, s.profile)
		if err != nil {
			return nil, err
		}
	}

	adj := &leapAdjacency{from: make(map[uint32][]mwm.Leap), to: make(map[uint32][]mwm.Leap)}
	for _, l := range leaps {
		adj.from[l.From] = append(adj.from[l.From], l)
		adj.to[l.To] = append(adj.to[l.To], l)
	}
	s.arena.leaps[region] = adj
	return adj, nil
}

func (s *Session) leapEdges(out []Edge, side datastructure.JunctionKey, forward bool) ([]Edge, error) {
	adj, err := s.leapAdjacency(side.Region)
	if err != nil {
		return out, err
	}
	leaps := adj.to[side.Local]
	if forward {
		leaps = adj.from[side.Local]
	}
	for _, l := range leaps {
		st := Step{
			Segment:  datastructure.NewSegment(side.Region, s.arena.leapID(side.Region, l.From, l.To), true),
			From:     s.canonical(side.Region, l.From),
			To:       s.canonical(side.Region, l.To),
			Weight:   l.Weight,
			Distance: l.Distance,
			Duration: l.Duration,
			Leap:     true,
			edgeIdx:  -1,
		}
		node := st.To
		if !forward {
			node = st.From
		}
		out = append(out, edgeOf(node, st))
	}
	return out, nil
}
