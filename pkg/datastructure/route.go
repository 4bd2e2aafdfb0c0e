package datastructure

import (
	"fmt"
	"strings"
)

type OptimizeFor uint8

const (
	OptimizeForTime OptimizeFor = iota
	OptimizeForDistance
)

func (o OptimizeFor) String() string {
	if o == OptimizeForDistance {
		return "distance"
	}
	return "time"
}

func ParseOptimizeFor(s string) (OptimizeFor, error) {
	switch strings.ToLower(s) {
	case "", "time":
		return OptimizeForTime, nil
	case "distance":
		return OptimizeForDistance, nil
	}
	return 0, fmt.Errorf("unknown optimization criterion %q", s)
}

// RouteOptions are the recognized route request options.
type RouteOptions struct {
	AvoidTolls   bool        `json:"avoid_tolls"`
	AvoidFerries bool        `json:"avoid_ferries"`
	OptimizeFor  OptimizeFor `json:"optimize_for"`
}

type WarningKind uint8

const (
	WarningUnpaved WarningKind = iota + 1
	WarningToll
	WarningFerry
	WarningRegionUnavailable
	WarningAvoidanceRelaxed
)

func (w WarningKind) String() string {
	switch w {
	case WarningUnpaved:
		return "unpaved_road"
	case WarningToll:
		return "toll_road"
	case WarningFerry:
		return "ferry"
	case WarningRegionUnavailable:
		return "region_unavailable"
	case WarningAvoidanceRelaxed:
		return "avoidance_relaxed"
	}
	return "unknown"
}

// RouteWarning is a non fatal condition attached to a route. Region and
// RegionName are set for WarningRegionUnavailable.
type RouteWarning struct {
	Kind       WarningKind
	Region     RegionID
	RegionName string
	Message    string
}

type RouteSegment struct {
	Segment  Segment
	From     JunctionKey
	To       JunctionKey
	Length   float64 // meters
	Duration float64 // seconds
	// Leap is set for border to border shortcuts whose interior is not expanded.
	Leap     bool
	Geometry []Coordinate
}

type Route struct {
	Segments []RouteSegment
	Distance float64 // meters
	Duration float64 // seconds
	Weight   float64
	Warnings []RouteWarning
}

// AddWarning appends w unless an equal warning is already present.
func (r *Route) AddWarning(w RouteWarning) {
	for _, old := range r.Warnings {
		if old.Kind == w.Kind && old.Region == w.Region && old.RegionName == w.RegionName {
			return
		}
	}
	r.Warnings = append(r.Warnings, w)
}

func (r *Route) HasWarning(kind WarningKind) bool {
	for _, w := range r.Warnings {
		if w.Kind == kind {
			return true
		}
	}
	return false
}

// Validate checks that consecutive segments share their junction.
func (r *Route) Validate() error {
	for i := 0; i+1 < len(r.Segments); i++ {
		if r.Segments[i].To != r.Segments[i+1].From {
			return fmt.Errorf("route segment %d ends at %s but segment %d starts at %s",
				i, r.Segments[i].To, i+1, r.Segments[i+1].From)
		}
	}
	return nil
}

// Geometry joins the segment geometries into one polyline.
func (r *Route) Geometry() []Coordinate {
	coords := make([]Coordinate, 0, len(r.Segments)*2)
	for _, s := range r.Segments {
		for i, c := range s.Geometry {
			if i == 0 && len(coords) > 0 && coords[len(coords)-1] == c {
				continue
			}
			coords = append(coords, c)
		}
	}
	return coords
}
