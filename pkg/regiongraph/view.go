package regiongraph

import (
	"fmt"
	"sort"

	"github.com/lintang-b-s/mwmrouter/pkg/datastructure"
	"github.com/lintang-b-s/mwmrouter/pkg/geo"
	"github.com/lintang-b-s/mwmrouter/pkg/mwm"
	"github.com/lintang-b-s/mwmrouter/pkg/snap"
	"github.com/lintang-b-s/mwmrouter/pkg/util"
	"github.com/lintang-b-s/mwmrouter/pkg/vehicle"
)

// Edge is one road edge of a region. Length is never shorter than the
// geometry so straight line estimates stay below the edge cost.
type Edge struct {
	ID       uint32
	From     uint32
	To       uint32
	Attr     datastructure.EdgeAttributes
	Geometry []datastructure.Coordinate // From ... To
}

func (e *Edge) Oneway() bool {
	return e.Attr.Flags.Has(datastructure.FlagOneway)
}

// Arc is a directed traversal of an edge out of (or into) a junction.
type Arc struct {
	Edge    int32 // index into View.edges
	Forward bool
	// Head is the junction reached when walking the arc. For incoming arcs it
	// is the junction the arc starts from.
	Head uint32
}

// View is the read only graph of one region, built once from its
// RegionReader and shared by every search holding the region.
type View struct {
	id     datastructure.RegionID
	name   string
	bounds datastructure.Rect

	edges   []Edge
	edgeIdx map[uint32]int32
	coords  map[uint32]datastructure.Coordinate
	out     map[uint32][]Arc
	in      map[uint32][]Arc
	degree  map[uint32]int

	borders     map[uint32]mwm.BorderJunction
	borderOrder []uint32
	cross       mwm.CrossSection
	turns       map[uint32]turnRules

	snapIndex *snap.Index
}

// Build materializes the view of region id from r.
func Build(id datastructure.RegionID, r mwm.RegionReader) (*View, error) {
	v := &View{
		id:      id,
		name:    r.Name(),
		bounds:  r.Bounds(),
		edgeIdx: make(map[uint32]int32),
		coords:  make(map[uint32]datastructure.Coordinate),
		out:     make(map[uint32][]Arc),
		in:      make(map[uint32][]Arc),
		degree:  make(map[uint32]int),
		borders: make(map[uint32]mwm.BorderJunction),
		cross:   r.CrossSection(),
	}

	coord := func(j uint32) (datastructure.Coordinate, error) {
		if c, ok := v.coords[j]; ok {
			return c, nil
		}
		c, err := r.GetJunctionCoordinate(j)
		if err != nil {
			return c, err
		}
		v.coords[j] = c
		return c, nil
	}

	neighbours := make(map[uint32]map[uint32]struct{})
	link := func(a, b uint32) {
		if neighbours[a] == nil {
			neighbours[a] = make(map[uint32]struct{})
		}
		neighbours[a][b] = struct{}{}
	}

	err := r.ListSegments(func(s mwm.SegmentRecord) error {
		if s.Mask == 0 {
			// pruned at build time, a stored zero mask edge is a corrupted file
			return fmt.Errorf("%w: edge %d of %s has an empty vehicle mask", mwm.ErrBadRegionFile, s.EdgeID, v.name)
		}
		if _, dup := v.edgeIdx[s.EdgeID]; dup {
			return fmt.Errorf("%w: duplicate edge %d in %s", mwm.ErrBadRegionFile, s.EdgeID, v.name)
		}
		from, err := coord(s.From)
		if err != nil {
			return err
		}
		to, err := coord(s.To)
		if err != nil {
			return err
		}

		geometry := make([]datastructure.Coordinate, 0, len(s.Geometry)+2)
		geometry = append(geometry, from)
		geometry = append(geometry, s.Geometry...)
		geometry = append(geometry, to)

		attr := s.Attributes()
		attr.Length = max(attr.Length, geo.PolylineLength(geometry))

		v.edgeIdx[s.EdgeID] = int32(len(v.edges))
		v.edges = append(v.edges, Edge{ID: s.EdgeID, From: s.From, To: s.To, Attr: attr, Geometry: geometry})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(v.edges, func(i, j int) bool { return v.edges[i].ID < v.edges[j].ID })
	v.snapIndex = snap.NewIndex()
	for i := range v.edges {
		e := &v.edges[i]
		idx := int32(i)
		v.edgeIdx[e.ID] = idx

		v.out[e.From] = append(v.out[e.From], Arc{Edge: idx, Forward: true, Head: e.To})
		v.in[e.To] = append(v.in[e.To], Arc{Edge: idx, Forward: true, Head: e.From})
		if !e.Oneway() {
			v.out[e.To] = append(v.out[e.To], Arc{Edge: idx, Forward: false, Head: e.From})
			v.in[e.From] = append(v.in[e.From], Arc{Edge: idx, Forward: false, Head: e.To})
		}
		if e.From != e.To {
			link(e.From, e.To)
			link(e.To, e.From)
		}
		v.snapIndex.Insert(e.ID, e.Geometry)
	}
	for j, ns := range neighbours {
		v.degree[j] = len(ns)
	}

	err = r.ListBorderJunctions(func(b mwm.BorderJunction) error {
		if _, err := coord(b.JunctionID); err != nil {
			return err
		}
		if _, ok := v.borders[b.JunctionID]; !ok {
			v.borderOrder = append(v.borderOrder, b.JunctionID)
		}
		v.borders[b.JunctionID] = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(v.borderOrder, func(i, j int) bool { return v.borderOrder[i] < v.borderOrder[j] })

	if err := v.loadRestrictions(r); err != nil {
		return nil, err
	}

	if v.bounds.IsEmpty() {
		b := datastructure.EmptyRect()
		for _, c := range v.coords {
			b = b.Extend(c)
		}
		v.bounds = b
	}
	return v, nil
}

func (v *View) ID() datastructure.RegionID {
	return v.id
}

func (v *View) Name() string {
	return v.name
}

func (v *View) Bounds() datastructure.Rect {
	return v.bounds
}

func (v *View) CrossSection() mwm.CrossSection {
	return v.cross
}

func (v *View) NumEdges() int {
	return len(v.edges)
}

func (v *View) EdgeAt(idx int32) *Edge {
	return &v.edges[idx]
}

// Edge looks up an edge by its local id.
func (v *View) Edge(edgeID uint32) (*Edge, bool) {
	idx, ok := v.edgeIdx[edgeID]
	if !ok {
		return nil, false
	}
	return &v.edges[idx], true
}

func (v *View) EdgeIndex(edgeID uint32) (int32, bool) {
	idx, ok := v.edgeIdx[edgeID]
	return idx, ok
}

func (v *View) Coordinate(junction uint32) (datastructure.Coordinate, bool) {
	c, ok := v.coords[junction]
	return c, ok
}

func (v *View) HasJunction(junction uint32) bool {
	_, ok := v.coords[junction]
	return ok
}

// OutArcs lists the arcs leaving junction in edge id order.
func (v *View) OutArcs(junction uint32) []Arc {
	return v.out[junction]
}

// InArcs lists the arcs entering junction, Head being their tail junction.
func (v *View) InArcs(junction uint32) []Arc {
	return v.in[junction]
}

// Degree is the number of distinct neighbouring junctions.
func (v *View) Degree(junction uint32) int {
	return v.degree[junction]
}

// IsJoint reports whether junction is a decision point: its degree is not 2,
// it sits on the region border or a turn restriction applies there.
func (v *View) IsJoint(junction uint32) bool {
	if _, ok := v.borders[junction]; ok {
		return true
	}
	if v.HasRestrictions(junction) {
		return true
	}
	return v.degree[junction] != 2
}

func (v *View) IsBorder(junction uint32) bool {
	_, ok := v.borders[junction]
	return ok
}

func (v *View) Border(junction uint32) (mwm.BorderJunction, bool) {
	b, ok := v.borders[junction]
	return b, ok
}

// Borders returns the border junction ids in ascending order.
func (v *View) Borders() []uint32 {
	return v.borderOrder
}

// ArcGeometry returns the geometry in walking direction.
func (v *View) ArcGeometry(edgeIdx int32, forward bool) []datastructure.Coordinate {
	g := v.edges[edgeIdx].Geometry
	if forward {
		return g
	}
	return util.ReverseG(g)
}

// CanTraverse checks legality of walking the edge in the given direction.
func (v *View) CanTraverse(p *vehicle.Profile, edgeIdx int32, forward bool) bool {
	e := &v.edges[edgeIdx]
	if !forward && e.Oneway() {
		return false
	}
	return p.CanUse(e.Attr)
}

// Nearest returns up to limit edges usable by p within radiusM of q.
func (v *View) Nearest(q datastructure.Coordinate, radiusM float64, limit int, p *vehicle.Profile) []snap.Candidate {
	return v.snapIndex.Nearest(q, radiusM, limit, func(edgeID uint32) bool {
		e, ok := v.Edge(edgeID)
		return ok && (p == nil || p.CanUse(e.Attr))
	})
}
