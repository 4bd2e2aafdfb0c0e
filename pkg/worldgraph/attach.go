package worldgraph

import (
	"math"
	"sort"

	"github.com/lintang-b-s/mwmrouter/pkg/datastructure"
	"github.com/lintang-b-s/mwmrouter/pkg/geo"
	"github.com/lintang-b-s/mwmrouter/pkg/regiongraph"
	"github.com/lintang-b-s/mwmrouter/pkg/util"
)

type leapKey struct {
	region   datastructure.RegionID
	from, to uint32
}

// fakeArena owns the junctions and segments allocated by one session. It is
// dropped as a whole when the session closes.
type fakeArena struct {
	next     uint32
	coords   map[datastructure.JunctionKey]datastructure.Coordinate
	out      map[datastructure.JunctionKey][]Edge
	in       map[datastructure.JunctionKey][]Edge
	attached map[datastructure.JunctionKey]struct{}
	leapIDs  map[leapKey]uint32
	leaps    map[datastructure.RegionID]*leapAdjacency
	turnKeys map[turnState]datastructure.JunctionKey
	turns    map[datastructure.JunctionKey]turnState
}

func newFakeArena() fakeArena {
	return fakeArena{
		coords:   make(map[datastructure.JunctionKey]datastructure.Coordinate),
		out:      make(map[datastructure.JunctionKey][]Edge),
		in:       make(map[datastructure.JunctionKey][]Edge),
		attached: make(map[datastructure.JunctionKey]struct{}),
		leapIDs:  make(map[leapKey]uint32),
		leaps:    make(map[datastructure.RegionID]*leapAdjacency),
		turnKeys: make(map[turnState]datastructure.JunctionKey),
		turns:    make(map[datastructure.JunctionKey]turnState),
	}
}

func (a *fakeArena) newID() uint32 {
	id := datastructure.FakeIDStart + a.next
	a.next++
	return id
}

func (a *fakeArena) junction(c datastructure.Coordinate) datastructure.JunctionKey {
	k := datastructure.NewJunctionKey(datastructure.FakeRegionID, a.newID())
	a.coords[k] = c
	return k
}

func (a *fakeArena) coordinate(k datastructure.JunctionKey) (datastructure.Coordinate, bool) {
	c, ok := a.coords[k]
	return c, ok
}

// leapID gives every leap of the session a stable fake edge id.
func (a *fakeArena) leapID(region datastructure.RegionID, from, to uint32) uint32 {
	k := leapKey{region: region, from: from, to: to}
	if id, ok := a.leapIDs[k]; ok {
		return id
	}
	id := a.newID()
	a.leapIDs[k] = id
	return id
}

func (a *fakeArena) addEdge(from, to datastructure.JunctionKey, steps ...Step) {
	e := edgeOf(to, steps...)
	a.out[from] = append(a.out[from], e)
	e.Node = from
	a.in[to] = append(a.in[to], e)
}

func (a *fakeArena) edges(v datastructure.JunctionKey, forward bool) []Edge {
	if forward {
		return a.out[v]
	}
	return a.in[v]
}

func (a *fakeArena) markAttached(k datastructure.JunctionKey) {
	a.attached[k] = struct{}{}
}

func (a *fakeArena) isAttached(k datastructure.JunctionKey) bool {
	_, ok := a.attached[k]
	return ok
}

// Attachment is a road a raw point can be attached to.
type Attachment struct {
	Region     datastructure.RegionID
	EdgeID     uint32
	Projection geo.Projection
}

type candidate struct {
	Attachment
	view    *regiongraph.View
	edgeIdx int32
}

// attachedPoint is a candidate turned into fake junctions: point is the
// projection on the road and offroad the leg between it and the raw point.
type attachedPoint struct {
	candidate
	point   datastructure.JunctionKey
	offroad Step
}

// candidates returns the roads usable by the session profile near c, closest
// first, together with the covering regions that could not be loaded.
func (s *Session) candidates(c datastructure.Coordinate) ([]candidate, []*RegionUnavailableError, error) {
	cfg := s.g.cfg
	var (
		found       []candidate
		unavailable []*RegionUnavailableError
	)
	covering := make(map[datastructure.RegionID]struct{})
	for _, r := range s.g.catalog.RegionsCovering(c) {
		covering[r] = struct{}{}
	}
	// roads of a neighbouring region may lie within the radius of a point
	// close to its extent
	for _, r := range s.g.catalog.RegionsIntersecting(searchBox(c, cfg.SnapRadiusM)) {
		if s.mode.singleRegion() && s.single != datastructure.InvalidRegionID && r != s.single {
			continue
		}
		view, err := s.view(r)
		if err != nil {
			return nil, nil, err
		}
		if view == nil {
			if _, ok := covering[r]; ok {
				unavailable = append(unavailable, s.missing[r])
			}
			continue
		}
		for _, cand := range view.Nearest(c, cfg.SnapRadiusM, cfg.MaxRoadCandidates, s.profile) {
			idx, ok := view.EdgeIndex(cand.EdgeID)
			if !ok {
				continue
			}
			found = append(found, candidate{
				Attachment: Attachment{Region: r, EdgeID: cand.EdgeID, Projection: cand.Projection},
				view:       view,
				edgeIdx:    idx,
			})
		}
	}
	if len(found) == 0 {
		return nil, unavailable, nil
	}

	sort.SliceStable(found, func(i, j int) bool {
		a, b := found[i], found[j]
		if a.Projection.Distance != b.Projection.Distance {
			return a.Projection.Distance < b.Projection.Distance
		}
		if a.Region != b.Region {
			return a.Region < b.Region
		}
		return a.EdgeID < b.EdgeID
	})
	if s.mode.singleRegion() && s.single == datastructure.InvalidRegionID {
		s.single = found[0].Region
		kept := found[:0]
		for _, f := range found {
			if f.Region == s.single {
				kept = append(kept, f)
			}
		}
		found = kept
	}

	limit := found[0].Projection.Distance + cfg.AttachToleranceM
	n := 0
	for n < len(found) && n < cfg.MaxRoadCandidates && found[n].Projection.Distance <= limit {
		n++
	}
	return found[:n], unavailable, nil
}

func searchBox(c datastructure.Coordinate, radiusM float64) datastructure.Rect {
	const metersPerDegree = 111_320.0
	dLat := radiusM / metersPerDegree
	dLon := dLat / math.Max(math.Cos(c.Lat*math.Pi/180), 0.01)
	return datastructure.NewRect(c.Lat-dLat, c.Lon-dLon, c.Lat+dLat, c.Lon+dLon)
}

// AttachPoint lists the roads c would be attached to. It fails with
// ErrPointTooFarFromRoad when no road usable by the profile lies within the
// snap radius, or with the *RegionUnavailableError of the region covering c
// when its file is missing.
func (s *Session) AttachPoint(c datastructure.Coordinate) ([]Attachment, error) {
	found, unavailable, err := s.candidates(c)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		if len(unavailable) > 0 {
			return nil, unavailable[0]
		}
		return nil, ErrPointTooFarFromRoad
	}
	out := make([]Attachment, len(found))
	for i, f := range found {
		out[i] = f.Attachment
	}
	return out, nil
}

func (s *Session) project(c datastructure.Coordinate, cand candidate, raw datastructure.JunctionKey, start bool) attachedPoint {
	proj := cand.Projection
	p := s.arena.junction(proj.Point)
	w, dur := s.profile.OffroadCost(proj.Distance)
	off := Step{
		Segment:  datastructure.NewSegment(datastructure.FakeRegionID, s.arena.newID(), true),
		Weight:   w,
		Distance: proj.Distance,
		Duration: dur,
		edgeIdx:  -1,
	}
	if start {
		off.From, off.To = raw, p
		off.Geometry = []datastructure.Coordinate{c, proj.Point}
	} else {
		off.From, off.To = p, raw
		off.Geometry = []datastructure.Coordinate{proj.Point, c}
	}

	e := cand.view.EdgeAt(cand.edgeIdx)
	s.arena.markAttached(datastructure.NewJunctionKey(cand.Region, e.From))
	s.arena.markAttached(datastructure.NewJunctionKey(cand.Region, e.To))
	s.endRegions[cand.Region] = struct{}{}
	return attachedPoint{candidate: cand, point: p, offroad: off}
}

// partial is the part of the attached edge between from and to, frac of its
// whole cost.
func (s *Session) partial(ap attachedPoint, forward bool, from, to datastructure.JunctionKey, frac float64,
	geometry []datastructure.Coordinate) Step {
	e := ap.view.EdgeAt(ap.edgeIdx)
	w, d := s.profile.EdgeCost(e.Attr)
	return Step{
		Segment:  datastructure.NewSegment(ap.Region, e.ID, forward),
		From:     from,
		To:       to,
		Weight:   w * frac,
		Distance: d * frac,
		Duration: s.profile.Duration(e.Attr) * frac,
		Partial:  true,
		Attr:     e.Attr,
		Geometry: geometry,
		edgeIdx:  ap.edgeIdx,
	}
}

// AttachStart creates the start vertex at c and its fake segments to the
// ends of every candidate road.
func (s *Session) AttachStart(c datastructure.Coordinate) (datastructure.JunctionKey, error) {
	found, unavailable, err := s.candidates(c)
	if err != nil {
		return datastructure.JunctionKey{}, err
	}
	start := s.arena.junction(c)
	if len(found) == 0 {
		if err := s.attachToBorders(start, c, unavailable, true); err != nil {
			return datastructure.JunctionKey{}, err
		}
		s.start = start
		return start, nil
	}

	for _, cand := range found {
		ap := s.project(c, cand, start, true)
		e := ap.view.EdgeAt(ap.edgeIdx)
		t := ap.Projection.Ratio()
		head, tail := geo.SplitPolyline(e.Geometry, ap.Projection.Offset)

		if ap.view.CanTraverse(s.profile, ap.edgeIdx, true) {
			to := s.canonical(ap.Region, e.To)
			s.arena.addEdge(start, to, ap.offroad, s.partial(ap, true, ap.point, to, 1-t, tail))
		}
		if ap.view.CanTraverse(s.profile, ap.edgeIdx, false) {
			to := s.canonical(ap.Region, e.From)
			s.arena.addEdge(start, to, ap.offroad, s.partial(ap, false, ap.point, to, t, util.ReverseG(head)))
		}
		s.startAttach = append(s.startAttach, ap)
	}
	s.start = start
	return start, nil
}

// AttachFinish creates the finish vertex at c. Call it after AttachStart so
// that a start and finish on the same road get their direct segment.
func (s *Session) AttachFinish(c datastructure.Coordinate) (datastructure.JunctionKey, error) {
	found, unavailable, err := s.candidates(c)
	if err != nil {
		return datastructure.JunctionKey{}, err
	}
	finish := s.arena.junction(c)
	if len(found) == 0 {
		if err := s.attachToBorders(finish, c, unavailable, false); err != nil {
			return datastructure.JunctionKey{}, err
		}
		s.stop = finish
		return finish, nil
	}

	for _, cand := range found {
		ap := s.project(c, cand, finish, false)
		e := ap.view.EdgeAt(ap.edgeIdx)
		t := ap.Projection.Ratio()
		head, tail := geo.SplitPolyline(e.Geometry, ap.Projection.Offset)

		if ap.view.CanTraverse(s.profile, ap.edgeIdx, true) {
			from := s.canonical(ap.Region, e.From)
			s.arena.addEdge(from, finish, s.partial(ap, true, from, ap.point, t, head), ap.offroad)
		}
		if ap.view.CanTraverse(s.profile, ap.edgeIdx, false) {
			from := s.canonical(ap.Region, e.To)
			s.arena.addEdge(from, finish, s.partial(ap, false, from, ap.point, 1-t, util.ReverseG(tail)), ap.offroad)
		}
		s.addDirect(ap, finish)
	}
	s.stop = finish
	return finish, nil
}

// addDirect links the start to finish along the road both project onto.
func (s *Session) addDirect(fin attachedPoint, finish datastructure.JunctionKey) {
	for _, st := range s.startAttach {
		if st.Region != fin.Region || st.EdgeID != fin.EdgeID {
			continue
		}
		e := st.view.EdgeAt(st.edgeIdx)
		ts, tf := st.Projection.Ratio(), fin.Projection.Ratio()
		offS, offF := st.Projection.Offset, fin.Projection.Offset

		switch {
		case tf >= ts && st.view.CanTraverse(s.profile, st.edgeIdx, true):
			_, rest := geo.SplitPolyline(e.Geometry, offS)
			mid, _ := geo.SplitPolyline(rest, offF-offS)
			s.arena.addEdge(s.start, finish, st.offroad, s.partial(st, true, st.point, fin.point, tf-ts, mid), fin.offroad)
		case tf <= ts && st.view.CanTraverse(s.profile, st.edgeIdx, false):
			_, rest := geo.SplitPolyline(e.Geometry, offF)
			mid, _ := geo.SplitPolyline(rest, offS-offF)
			s.arena.addEdge(s.start, finish, st.offroad,
				s.partial(st, false, st.point, fin.point, ts-tf, util.ReverseG(mid)), fin.offroad)
		}
	}
}

// attachToBorders links a point lying in regions whose files are missing to
// the known border junctions of those regions with straight line segments.
func (s *Session) attachToBorders(raw datastructure.JunctionKey, c datastructure.Coordinate,
	unavailable []*RegionUnavailableError, start bool) error {
	added := 0
	for _, u := range unavailable {
		for _, b := range s.g.transitions.Borders(u.Region) {
			key := datastructure.NewJunctionKey(u.Region, b)
			bc, ok := s.g.transitions.BorderCoordinate(key)
			if !ok {
				continue
			}
			dist := geo.HaversineMeters(c.Lat, c.Lon, bc.Lat, bc.Lon)
			node := s.g.transitions.Canonical(key)
			st := Step{
				Segment:  datastructure.NewSegment(u.Region, s.arena.newID(), true),
				Weight:   s.profile.HeuristicWeight(dist),
				Distance: dist,
				Duration: s.profile.ApproximateDuration(dist),
				Leap:     true,
				edgeIdx:  -1,
			}
			if start {
				st.From, st.To = raw, node
				st.Geometry = []datastructure.Coordinate{c, bc}
				s.arena.addEdge(raw, node, st)
			} else {
				st.From, st.To = node, raw
				st.Geometry = []datastructure.Coordinate{bc, c}
				s.arena.addEdge(node, raw, st)
			}
			added++
		}
	}
	if added > 0 {
		return nil
	}
	if len(unavailable) > 0 {
		return unavailable[0]
	}
	return ErrPointTooFarFromRoad
}
