package geo

import (
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
	"github.com/lintang-b-s/mwmrouter/pkg/datastructure"
)

func toS2Point(c datastructure.Coordinate) s2.Point {
	return s2.PointFromLatLng(s2.LatLngFromDegrees(c.Lat, c.Lon))
}

func fromS2Point(p s2.Point) datastructure.Coordinate {
	ll := s2.LatLngFromPoint(p)
	return datastructure.NewCoordinate(ll.Lat.Degrees(), ll.Lng.Degrees())
}

func angleToMeters(a s1.Angle) float64 {
	return a.Radians() * earthRadiusM
}

// Projection is the closest point of a polyline to a query point.
type Projection struct {
	Point datastructure.Coordinate
	// Distance from the query point to Point in meters.
	Distance float64
	// Offset is the polyline length in meters from its first point to Point.
	Offset float64
	// Length is the whole polyline length in meters.
	Length float64
}

// Ratio returns how far along the polyline the projection lies, in [0,1].
func (p Projection) Ratio() float64 {
	if p.Length <= 0 {
		return 0
	}
	r := p.Offset / p.Length
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}

// ProjectPointToPolyline finds the closest point of line to q.
func ProjectPointToPolyline(q datastructure.Coordinate, line []datastructure.Coordinate) Projection {
	if len(line) == 0 {
		return Projection{Point: q}
	}
	qp := toS2Point(q)
	if len(line) == 1 {
		return Projection{Point: line[0], Distance: angleToMeters(qp.Distance(toS2Point(line[0])))}
	}

	best := Projection{Distance: -1}
	walked := 0.0
	for i := 0; i+1 < len(line); i++ {
		a := toS2Point(line[i])
		b := toS2Point(line[i+1])
		proj := s2.Project(qp, a, b)
		dist := angleToMeters(qp.Distance(proj))
		if best.Distance < 0 || dist < best.Distance {
			best = Projection{
				Point:    fromS2Point(proj),
				Distance: dist,
				Offset:   walked + angleToMeters(a.Distance(proj)),
			}
		}
		walked += angleToMeters(a.Distance(b))
	}
	best.Length = walked
	return best
}

// PolylineLength returns the length in meters.
func PolylineLength(line []datastructure.Coordinate) float64 {
	total := 0.0
	for i := 0; i+1 < len(line); i++ {
		total += angleToMeters(toS2Point(line[i]).Distance(toS2Point(line[i+1])))
	}
	return total
}

// SplitPolyline cuts line at offset meters and returns both parts. The cut
// point is shared by both parts.
func SplitPolyline(line []datastructure.Coordinate, offset float64) ([]datastructure.Coordinate, []datastructure.Coordinate) {
	if len(line) < 2 {
		return line, line
	}
	walked := 0.0
	for i := 0; i+1 < len(line); i++ {
		a := toS2Point(line[i])
		b := toS2Point(line[i+1])
		segLen := angleToMeters(a.Distance(b))
		if walked+segLen >= offset || i+2 == len(line) {
			frac := 0.0
			if segLen > 0 {
				frac = (offset - walked) / segLen
			}
			frac = max(0, min(1, frac))
			cut := fromS2Point(s2.Interpolate(frac, a, b))

			head := make([]datastructure.Coordinate, 0, i+2)
			head = append(head, line[:i+1]...)
			head = append(head, cut)
			tail := make([]datastructure.Coordinate, 0, len(line)-i)
			tail = append(tail, cut)
			tail = append(tail, line[i+1:]...)
			return head, tail
		}
		walked += segLen
	}
	return line, line[len(line)-1:]
}

// PointLinePerpendicularDistance returns the distance in meters from p to the segment a-b.
func PointLinePerpendicularDistance(a, b, p datastructure.Coordinate) float64 {
	return angleToMeters(s2.DistanceFromSegment(toS2Point(p), toS2Point(a), toS2Point(b)))
}
