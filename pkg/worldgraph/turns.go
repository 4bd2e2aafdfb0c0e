package worldgraph

import (
	"github.com/lintang-b-s/mwmrouter/pkg/datastructure"
	"github.com/lintang-b-s/mwmrouter/pkg/regiongraph"
)

// turnState is a search vertex standing for "at junction via, having
// arrived over the edge at index from". Only arrivals that a turn
// restriction binds get one, every other arrival is the junction itself.
type turnState struct {
	region datastructure.RegionID
	via    uint32
	from   int32
}

func (a *fakeArena) turnKey(ts turnState, c datastructure.Coordinate) datastructure.JunctionKey {
	if k, ok := a.turnKeys[ts]; ok {
		return k
	}
	k := a.junction(c)
	a.turnKeys[ts] = k
	a.turns[k] = ts
	return k
}

func (a *fakeArena) turnState(k datastructure.JunctionKey) (turnState, bool) {
	if !k.IsFake() {
		return turnState{}, false
	}
	ts, ok := a.turns[k]
	return ts, ok
}

// roadView returns the pinned view of the road a step walks, nil for fake
// and leap steps.
func (s *Session) roadView(st Step) *regiongraph.View {
	if st.Leap || st.edgeIdx < 0 || st.Segment.Region == datastructure.FakeRegionID {
		return nil
	}
	h, ok := s.handles[st.Segment.Region]
	if !ok {
		return nil
	}
	return h.Value()
}

func (s *Session) turnVertex(view *regiongraph.View, via uint32, from int32) datastructure.JunctionKey {
	c, _ := view.Coordinate(via)
	return s.arena.turnKey(turnState{region: view.ID(), via: via, from: from}, c)
}

// arrival returns the turn state entered by walking st to its end, if a
// restriction binds that arrival.
func (s *Session) arrival(st Step) (datastructure.JunctionKey, bool) {
	if st.To.IsFake() {
		return datastructure.JunctionKey{}, false
	}
	view := s.roadView(st)
	if view == nil {
		return datastructure.JunctionKey{}, false
	}
	e := view.EdgeAt(st.edgeIdx)
	via := e.To
	if !st.Segment.Forward {
		via = e.From
	}
	if !view.Restricts(s.profile, via, st.edgeIdx) {
		return datastructure.JunctionKey{}, false
	}
	return s.turnVertex(view, via, st.edgeIdx), true
}

// departs reports whether st may be taken from turn state ts. Roads of other
// regions at a border junction are not bound by its restrictions.
func (s *Session) departs(ts turnState, st Step) bool {
	if st.From.IsFake() {
		return true
	}
	view := s.roadView(st)
	if view == nil || view.ID() != ts.region {
		return true
	}
	return view.TurnAllowed(s.profile, ts.via, ts.from, st.edgeIdx)
}

func (s *Session) outgoingTurns(raw []Edge, ts turnState, inTurn bool) []Edge {
	out := make([]Edge, 0, len(raw))
	for _, e := range raw {
		if inTurn && !s.departs(ts, e.Steps[0]) {
			continue
		}
		if k, ok := s.arrival(e.Steps[len(e.Steps)-1]); ok {
			e.Node = k
		}
		out = append(out, e)
	}
	return out
}

// incomingTurns keeps the edges whose arrival is v and adds a copy of each
// for every turn state at its tail that may take it.
func (s *Session) incomingTurns(raw []Edge, v datastructure.JunctionKey, inTurn bool) []Edge {
	out := make([]Edge, 0, len(raw))
	for _, e := range raw {
		k, ok := s.arrival(e.Steps[len(e.Steps)-1])
		if ok != inTurn || (ok && k != v) {
			continue
		}
		out = append(out, e)
		out = s.tailTurns(out, e)
	}
	return out
}

func (s *Session) tailTurns(out []Edge, e Edge) []Edge {
	first := e.Steps[0]
	if first.From.IsFake() {
		return out
	}
	view := s.roadView(first)
	if view == nil {
		return out
	}
	road := view.EdgeAt(first.edgeIdx)
	dep := road.From
	if !first.Segment.Forward {
		dep = road.To
	}
	for _, from := range view.RestrictedFrom(s.profile, dep) {
		if !view.TurnAllowed(s.profile, dep, from, first.edgeIdx) {
			continue
		}
		c := e
		c.Node = s.turnVertex(view, dep, from)
		out = append(out, c)
	}
	return out
}
