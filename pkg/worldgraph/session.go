package worldgraph

import (
	"context"
	"errors"
	"sort"

	"github.com/lintang-b-s/mwmrouter/pkg/datastructure"
	"github.com/lintang-b-s/mwmrouter/pkg/regiongraph"
	"github.com/lintang-b-s/mwmrouter/pkg/storage/buffer"
	"github.com/lintang-b-s/mwmrouter/pkg/vehicle"
)

// Session is the state of one search over the world graph: the pinned
// regions, the fake segment arena, the mode and the allowed regions. It is
// not safe for concurrent use and must be closed.
type Session struct {
	g       *WorldGraph
	ctx     context.Context
	profile *vehicle.Profile
	mode    Mode

	single   datastructure.RegionID
	corridor map[datastructure.RegionID]struct{}
	// regions where start or finish attach to real roads, expanded edge by
	// edge in LeapsOnly.
	endRegions map[datastructure.RegionID]struct{}

	handles map[datastructure.RegionID]*buffer.Handle[*regiongraph.View]
	missing map[datastructure.RegionID]*RegionUnavailableError

	arena fakeArena
	start datastructure.JunctionKey
	stop  datastructure.JunctionKey
	// start and finish attachments, kept to add the direct start-finish fake
	startAttach []attachedPoint
	closed      bool
}

// NewSession opens a search in mode for profile. Undefined or unknown modes
// fail with ErrInvalidMode.
func (g *WorldGraph) NewSession(ctx context.Context, p *vehicle.Profile, mode Mode) (*Session, error) {
	if !mode.Valid() {
		return nil, ErrInvalidMode
	}
	return &Session{
		g:          g,
		ctx:        ctx,
		profile:    p,
		mode:       mode,
		single:     datastructure.InvalidRegionID,
		endRegions: make(map[datastructure.RegionID]struct{}),
		handles:    make(map[datastructure.RegionID]*buffer.Handle[*regiongraph.View]),
		missing:    make(map[datastructure.RegionID]*RegionUnavailableError),
		arena:      newFakeArena(),
		start:      datastructure.JunctionKey{Region: datastructure.InvalidRegionID},
		stop:       datastructure.JunctionKey{Region: datastructure.InvalidRegionID},
	}, nil
}

func (s *Session) Mode() Mode {
	return s.mode
}

func (s *Session) Profile() *vehicle.Profile {
	return s.profile
}

func (s *Session) Context() context.Context {
	return s.ctx
}

// SetSingleRegion fixes the region of SingleMwm and JointSingleMwm searches.
func (s *Session) SetSingleRegion(id datastructure.RegionID) {
	s.single = id
}

// SetCorridor restricts NoLeaps and Joints expansion to regions. nil lifts
// the restriction.
func (s *Session) SetCorridor(regions []datastructure.RegionID) {
	if regions == nil {
		s.corridor = nil
		return
	}
	s.corridor = make(map[datastructure.RegionID]struct{}, len(regions))
	for _, r := range regions {
		s.corridor[r] = struct{}{}
	}
}

// Close releases every pinned region and drops the fake arena.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	for _, h := range s.handles {
		_ = h.Release()
	}
	s.handles = nil
	s.arena = fakeArena{}
	s.startAttach = nil
}

// Missing returns the regions found unavailable during the session.
func (s *Session) Missing() []*RegionUnavailableError {
	out := make([]*RegionUnavailableError, 0, len(s.missing))
	for _, m := range s.missing {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Region < out[j].Region })
	return out
}

// LoadedRegions lists the regions pinned by the session.
func (s *Session) LoadedRegions() []datastructure.RegionID {
	out := make([]datastructure.RegionID, 0, len(s.handles))
	for r := range s.handles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *Session) markMissing(err *RegionUnavailableError) {
	if _, ok := s.missing[err.Region]; !ok {
		s.missing[err.Region] = err
	}
}

// view returns the pinned graph of region. (nil, nil) means the region is
// unavailable and was recorded as missing; other errors abort the search.
func (s *Session) view(region datastructure.RegionID) (*regiongraph.View, error) {
	if h, ok := s.handles[region]; ok {
		return h.Value(), nil
	}
	if _, ok := s.missing[region]; ok {
		return nil, nil
	}
	h, err := s.g.EnsureRegionLoaded(s.ctx, region)
	if err != nil {
		var unavailable *RegionUnavailableError
		if errors.As(err, &unavailable) {
			s.markMissing(unavailable)
			return nil, nil
		}
		return nil, err
	}
	s.handles[region] = h
	return h.Value(), nil
}

// allowed reports whether the mode and corridor let the search expand the
// real edges of region.
func (s *Session) allowed(region datastructure.RegionID) bool {
	if region == datastructure.FakeRegionID {
		return false
	}
	if s.mode.singleRegion() {
		return region == s.single
	}
	if s.corridor != nil {
		_, ok := s.corridor[region]
		return ok
	}
	return true
}

func (s *Session) isEndRegion(region datastructure.RegionID) bool {
	_, ok := s.endRegions[region]
	return ok
}

func (s *Session) canonical(region datastructure.RegionID, local uint32) datastructure.JunctionKey {
	return s.g.transitions.Canonical(datastructure.NewJunctionKey(region, local))
}

// Coordinate returns the position of a search vertex, used by the
// heuristic.
func (s *Session) Coordinate(v datastructure.JunctionKey) (datastructure.Coordinate, bool) {
	if v.IsFake() {
		return s.arena.coordinate(v)
	}
	if h, ok := s.handles[v.Region]; ok {
		if c, ok := h.Value().Coordinate(v.Local); ok {
			return c, true
		}
	}
	for _, side := range s.g.transitions.Sides(v) {
		if c, ok := s.g.transitions.BorderCoordinate(side); ok {
			return c, true
		}
		if h, ok := s.handles[side.Region]; ok {
			if c, ok := h.Value().Coordinate(side.Local); ok {
				return c, true
			}
		}
	}
	return datastructure.Coordinate{}, false
}

func (s *Session) Start() datastructure.JunctionKey {
	return s.start
}

func (s *Session) Finish() datastructure.JunctionKey {
	return s.stop
}

// RegionName resolves a region id for warnings.
func (s *Session) RegionName(id datastructure.RegionID) string {
	name, err := s.g.catalog.GetName(id)
	if err != nil {
		return ""
	}
	return name
}

// StepGeometry returns the polyline of a step in walking direction.
func (s *Session) StepGeometry(step Step) []datastructure.Coordinate {
	if step.Geometry != nil {
		return step.Geometry
	}
	if h, ok := s.handles[step.Segment.Region]; ok && step.edgeIdx >= 0 {
		return h.Value().ArcGeometry(step.edgeIdx, step.Segment.Forward)
	}
	from, okFrom := s.Coordinate(step.From)
	to, okTo := s.Coordinate(step.To)
	if okFrom && okTo {
		return []datastructure.Coordinate{from, to}
	}
	return nil
}

// LookupSegment resolves a real segment to its edge attributes through the
// regions pinned by the session.
func (s *Session) LookupSegment(seg datastructure.Segment) (datastructure.EdgeAttributes, bool) {
	h, ok := s.handles[seg.Region]
	if !ok {
		return datastructure.EdgeAttributes{}, false
	}
	e, ok := h.Value().Edge(seg.EdgeID)
	if !ok {
		return datastructure.EdgeAttributes{}, false
	}
	return e.Attr, true
}
