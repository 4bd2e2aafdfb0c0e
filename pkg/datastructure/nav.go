package datastructure

import "math"

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func NewCoordinate(lat, lon float64) Coordinate {
	return Coordinate{
		Lat: lat,
		Lon: lon,
	}
}

func NewCoordinates(lat, lon []float64) []Coordinate {
	coords := make([]Coordinate, len(lat))
	for i := range lat {
		coords[i] = NewCoordinate(lat[i], lon[i])
	}
	return coords
}

// Rect is a lat/lon bounding rectangle. The zero value is empty.
type Rect struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

func NewRect(minLat, minLon, maxLat, maxLon float64) Rect {
	return Rect{
		MinLat: minLat,
		MinLon: minLon,
		MaxLat: maxLat,
		MaxLon: maxLon,
	}
}

// EmptyRect returns a rect that any Extend call will overwrite.
func EmptyRect() Rect {
	return Rect{
		MinLat: math.Inf(1),
		MinLon: math.Inf(1),
		MaxLat: math.Inf(-1),
		MaxLon: math.Inf(-1),
	}
}

func (r Rect) IsEmpty() bool {
	return r.MinLat > r.MaxLat || r.MinLon > r.MaxLon || (r == Rect{})
}

func (r Rect) Contains(p Coordinate) bool {
	if r.IsEmpty() {
		return false
	}
	return p.Lat >= r.MinLat && p.Lat <= r.MaxLat && p.Lon >= r.MinLon && p.Lon <= r.MaxLon
}

func (r Rect) Extend(p Coordinate) Rect {
	if r == (Rect{}) {
		r = EmptyRect()
	}
	r.MinLat = math.Min(r.MinLat, p.Lat)
	r.MinLon = math.Min(r.MinLon, p.Lon)
	r.MaxLat = math.Max(r.MaxLat, p.Lat)
	r.MaxLon = math.Max(r.MaxLon, p.Lon)
	return r
}

func (r Rect) Center() Coordinate {
	return NewCoordinate((r.MinLat+r.MaxLat)/2, (r.MinLon+r.MaxLon)/2)
}
