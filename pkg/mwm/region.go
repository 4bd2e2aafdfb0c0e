package mwm

import (
	"errors"
	"fmt"
	"sort"

	"github.com/lintang-b-s/mwmrouter/pkg/datastructure"
)

var (
	ErrRegionFileNotFound = errors.New("region file not found")
	ErrUnknownJunction    = errors.New("unknown junction")
	ErrBadRegionFile      = errors.New("bad region file")
)

// SegmentRecord is one stored road edge. Geometry holds the intermediate
// points only, the end points are the junction coordinates.
type SegmentRecord struct {
	EdgeID       uint32
	From         uint32
	To           uint32
	LengthMeters float64
	Mask         datastructure.VehicleMask
	Class        datastructure.RoadClass
	Flags        datastructure.EdgeFlags
	MaxSpeed     float64
	Geometry     []datastructure.Coordinate
}

func (s SegmentRecord) Attributes() datastructure.EdgeAttributes {
	return datastructure.EdgeAttributes{
		Length:   s.LengthMeters,
		Mask:     s.Mask,
		Class:    s.Class,
		Flags:    s.Flags,
		MaxSpeed: s.MaxSpeed,
	}
}

// BorderJunction is a junction matched with a junction of a neighbouring
// region at build time.
type BorderJunction struct {
	JunctionID        uint32
	MatchedRegion     string
	MatchedJunctionID uint32
	Coordinate        datastructure.Coordinate
}

// Leap is the exact in-region cost between two border junctions.
type Leap struct {
	From     uint32
	To       uint32
	Weight   float64
	Distance float64
	Duration float64
}

// LeapTable holds the leaps of one profile key (vehicle.ProfileKey.String()).
type LeapTable struct {
	Profile string
	Leaps   []Leap
}

// CrossSection is the part of a region visible to other regions without
// loading its road graph.
type CrossSection struct {
	Region  string
	Bounds  datastructure.Rect
	Borders []BorderJunction
	Leaps   []LeapTable
}

func (c *CrossSection) LeapTable(profile string) ([]Leap, bool) {
	for _, t := range c.Leaps {
		if t.Profile == profile {
			return t.Leaps, true
		}
	}
	return nil, false
}

// SetLeapTable replaces the table of profile.
func (c *CrossSection) SetLeapTable(profile string, leaps []Leap) {
	for i := range c.Leaps {
		if c.Leaps[i].Profile == profile {
			c.Leaps[i].Leaps = leaps
			return
		}
	}
	c.Leaps = append(c.Leaps, LeapTable{Profile: profile, Leaps: leaps})
}

type RestrictionKind uint8

const (
	// RestrictionNo forbids turning from FromEdge into ToEdge.
	RestrictionNo RestrictionKind = iota + 1
	// RestrictionOnly makes ToEdge the only edge allowed after FromEdge.
	RestrictionOnly
)

func (k RestrictionKind) String() string {
	switch k {
	case RestrictionNo:
		return "no"
	case RestrictionOnly:
		return "only"
	}
	return fmt.Sprintf("RestrictionKind(%d)", k)
}

// Restriction is a turn rule at junction Via between two edges incident to
// it. It binds the vehicles of Mask. FromEdge == ToEdge is a u-turn.
type Restriction struct {
	Kind     RestrictionKind
	FromEdge uint32
	Via      uint32
	ToEdge   uint32
	Mask     datastructure.VehicleMask
}

type Junction struct {
	ID         uint32
	Coordinate datastructure.Coordinate
}

// RegionData is the decoded content of one region file.
type RegionData struct {
	Cross        CrossSection
	Junctions    []Junction
	Segments     []SegmentRecord
	Restrictions []Restriction
}

// Normalize drops edges no vehicle may use together with the restrictions
// naming them, sorts records by id and fills the bounds from the junctions
// when they are not declared.
func (d *RegionData) Normalize() (pruned int) {
	kept := d.Segments[:0]
	live := make(map[uint32]struct{}, len(d.Segments))
	for _, s := range d.Segments {
		if s.Mask == 0 {
			pruned++
			continue
		}
		kept = append(kept, s)
		live[s.EdgeID] = struct{}{}
	}
	d.Segments = kept

	rules := d.Restrictions[:0]
	for _, r := range d.Restrictions {
		_, from := live[r.FromEdge]
		_, to := live[r.ToEdge]
		if from && to && r.Mask != 0 {
			rules = append(rules, r)
		}
	}
	d.Restrictions = rules
	sort.Slice(d.Restrictions, func(i, j int) bool {
		a, b := d.Restrictions[i], d.Restrictions[j]
		if a.Via != b.Via {
			return a.Via < b.Via
		}
		if a.FromEdge != b.FromEdge {
			return a.FromEdge < b.FromEdge
		}
		return a.ToEdge < b.ToEdge
	})

	sort.Slice(d.Segments, func(i, j int) bool { return d.Segments[i].EdgeID < d.Segments[j].EdgeID })
	sort.Slice(d.Junctions, func(i, j int) bool { return d.Junctions[i].ID < d.Junctions[j].ID })
	sort.Slice(d.Cross.Borders, func(i, j int) bool { return d.Cross.Borders[i].JunctionID < d.Cross.Borders[j].JunctionID })

	if d.Cross.Bounds.IsEmpty() {
		b := datastructure.EmptyRect()
		for _, j := range d.Junctions {
			b = b.Extend(j.Coordinate)
		}
		if len(d.Junctions) > 0 {
			d.Cross.Bounds = b
		}
	}
	return pruned
}

// Validate checks that every edge references known junctions and ids are
// below the fake id range.
func (d *RegionData) Validate() error {
	known := make(map[uint32]struct{}, len(d.Junctions))
	for _, j := range d.Junctions {
		if datastructure.IsFakeID(j.ID) {
			return fmt.Errorf("%w: junction id %d in fake range", ErrBadRegionFile, j.ID)
		}
		known[j.ID] = struct{}{}
	}
	edges := make(map[uint32]SegmentRecord, len(d.Segments))
	for _, s := range d.Segments {
		if datastructure.IsFakeID(s.EdgeID) {
			return fmt.Errorf("%w: edge id %d in fake range", ErrBadRegionFile, s.EdgeID)
		}
		if _, ok := known[s.From]; !ok {
			return fmt.Errorf("%w: edge %d from %d", ErrUnknownJunction, s.EdgeID, s.From)
		}
		if _, ok := known[s.To]; !ok {
			return fmt.Errorf("%w: edge %d to %d", ErrUnknownJunction, s.EdgeID, s.To)
		}
		edges[s.EdgeID] = s
	}
	for _, r := range d.Restrictions {
		if err := r.check(edges); err != nil {
			return err
		}
	}
	for _, b := range d.Cross.Borders {
		if _, ok := known[b.JunctionID]; !ok {
			return fmt.Errorf("%w: border junction %d", ErrUnknownJunction, b.JunctionID)
		}
	}
	return nil
}

func (r Restriction) check(edges map[uint32]SegmentRecord) error {
	if r.Kind != RestrictionNo && r.Kind != RestrictionOnly {
		return fmt.Errorf("%w: restriction at %d has kind %d", ErrBadRegionFile, r.Via, r.Kind)
	}
	for _, id := range []uint32{r.FromEdge, r.ToEdge} {
		e, ok := edges[id]
		if !ok {
			return fmt.Errorf("%w: restriction at %d names unknown edge %d", ErrBadRegionFile, r.Via, id)
		}
		if e.From != r.Via && e.To != r.Via {
			return fmt.Errorf("%w: restriction edge %d does not touch junction %d", ErrBadRegionFile, id, r.Via)
		}
	}
	return nil
}

// RegionReader is the read only view of one region's data that the routing
// graph is built from. Iterations are finite and restartable.
type RegionReader interface {
	Name() string
	Bounds() datastructure.Rect
	ListSegments(fn func(SegmentRecord) error) error
	ListBorderJunctions(fn func(BorderJunction) error) error
	ListRestrictions(fn func(Restriction) error) error
	GetJunctionCoordinate(id uint32) (datastructure.Coordinate, error)
	CrossSection() CrossSection
}

// memoryRegion serves a RegionReader from decoded RegionData.
type memoryRegion struct {
	data   *RegionData
	coords map[uint32]datastructure.Coordinate
}

func NewRegionReader(data *RegionData) RegionReader {
	coords := make(map[uint32]datastructure.Coordinate, len(data.Junctions))
	for _, j := range data.Junctions {
		coords[j.ID] = j.Coordinate
	}
	return &memoryRegion{data: data, coords: coords}
}

func (m *memoryRegion) Name() string {
	return m.data.Cross.Region
}

func (m *memoryRegion) Bounds() datastructure.Rect {
	return m.data.Cross.Bounds
}

func (m *memoryRegion) ListSegments(fn func(SegmentRecord) error) error {
	for _, s := range m.data.Segments {
		if err := fn(s); err != nil {
			return err
		}
	}
	return nil
}

func (m *memoryRegion) ListBorderJunctions(fn func(BorderJunction) error) error {
	for _, b := range m.data.Cross.Borders {
		if err := fn(b); err != nil {
			return err
		}
	}
	return nil
}

func (m *memoryRegion) ListRestrictions(fn func(Restriction) error) error {
	for _, r := range m.data.Restrictions {
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

func (m *memoryRegion) GetJunctionCoordinate(id uint32) (datastructure.Coordinate, error) {
	c, ok := m.coords[id]
	if !ok {
		return datastructure.Coordinate{}, fmt.Errorf("%w: %d in %s", ErrUnknownJunction, id, m.data.Cross.Region)
	}
	return c, nil
}

func (m *memoryRegion) CrossSection() CrossSection {
	return m.data.Cross
}
