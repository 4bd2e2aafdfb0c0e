package snap

import (
	"math"
	"sort"

	"github.com/lintang-b-s/mwmrouter/pkg/datastructure"
	"github.com/lintang-b-s/mwmrouter/pkg/geo"
	"github.com/uber/h3-go/v4"
)

const (
	h3Resolution = 9
	// points are sampled along each edge so that every cell an edge passes
	// through gets the edge, res 9 hexagons are ~170 m wide.
	sampleStepM = 60.0
	// maxRings bounds the widening when the caller radius is huge.
	maxRings = 64
	// h3 cells are not regular hexagons, shrink the nominal edge length a bit
	// so ring coverage is never overestimated.
	distortion = 0.8
)

// Candidate is an edge near the query point together with the projection of
// the point onto the edge geometry.
type Candidate struct {
	EdgeID     uint32
	Projection geo.Projection
}

// Index maps h3 cells to the edges passing through them.
type Index struct {
	cells    map[h3.Cell][]uint32
	geometry map[uint32][]datastructure.Coordinate
	edgeM    float64
}

func NewIndex() *Index {
	cell := h3.LatLngToCell(h3.NewLatLng(0, 0), h3Resolution)
	area := h3.CellAreaKm2(cell) * 1e6
	// regular hexagon area = 3*sqrt(3)/2 * edge^2
	edge := math.Sqrt(2 * area / (3 * math.Sqrt(3)))
	return &Index{
		cells:    make(map[h3.Cell][]uint32),
		geometry: make(map[uint32][]datastructure.Coordinate),
		edgeM:    edge * distortion,
	}
}

func cellOf(c datastructure.Coordinate) h3.Cell {
	return h3.LatLngToCell(h3.NewLatLng(c.Lat, c.Lon), h3Resolution)
}

// Insert adds an edge. geometry is the full polyline including both end
// points and is kept by reference.
func (idx *Index) Insert(edgeID uint32, geometry []datastructure.Coordinate) {
	if len(geometry) == 0 {
		return
	}
	idx.geometry[edgeID] = geometry

	seen := make(map[h3.Cell]struct{})
	add := func(c datastructure.Coordinate) {
		cell := cellOf(c)
		if _, ok := seen[cell]; ok {
			return
		}
		seen[cell] = struct{}{}
		idx.cells[cell] = append(idx.cells[cell], edgeID)
	}

	add(geometry[0])
	for i := 0; i+1 < len(geometry); i++ {
		a, b := geometry[i], geometry[i+1]
		dist := geo.HaversineMeters(a.Lat, a.Lon, b.Lat, b.Lon)
		steps := int(math.Ceil(dist / sampleStepM))
		for s := 1; s <= steps; s++ {
			t := float64(s) / float64(steps)
			add(datastructure.NewCoordinate(a.Lat+(b.Lat-a.Lat)*t, a.Lon+(b.Lon-a.Lon)*t))
		}
	}
}

func (idx *Index) Size() int {
	return len(idx.geometry)
}

func (idx *Index) Geometry(edgeID uint32) ([]datastructure.Coordinate, bool) {
	g, ok := idx.geometry[edgeID]
	return g, ok
}

// coveredM is the distance from the query point within which every point
// lies inside GridDisk(origin, k).
func (idx *Index) coveredM(k int) float64 {
	return math.Max(0, (1.5*float64(k)-0.5)*idx.edgeM)
}

// Nearest returns up to limit edges within radiusM of q that pass accept,
// closest first. The search widens ring by ring from q's cell and stops as
// soon as no unvisited cell can hold a closer edge.
func (idx *Index) Nearest(q datastructure.Coordinate, radiusM float64, limit int,
	accept func(edgeID uint32) bool) []Candidate {
	if limit <= 0 || len(idx.geometry) == 0 {
		return nil
	}

	origin := cellOf(q)
	visitedCells := make(map[h3.Cell]struct{})
	visitedEdges := make(map[uint32]struct{})
	candidates := make([]Candidate, 0, limit)

	for k := 0; k <= maxRings; k++ {
		for _, cell := range h3.GridDisk(origin, k) {
			if _, ok := visitedCells[cell]; ok {
				continue
			}
			visitedCells[cell] = struct{}{}

			for _, edgeID := range idx.cells[cell] {
				if _, ok := visitedEdges[edgeID]; ok {
					continue
				}
				visitedEdges[edgeID] = struct{}{}
				if accept != nil && !accept(edgeID) {
					continue
				}
				proj := geo.ProjectPointToPolyline(q, idx.geometry[edgeID])
				if proj.Distance > radiusM {
					continue
				}
				candidates = append(candidates, Candidate{EdgeID: edgeID, Projection: proj})
			}
		}

		covered := idx.coveredM(k) - sampleStepM/2
		if covered >= radiusM {
			break
		}
		if len(candidates) >= limit {
			sortCandidates(candidates)
			if candidates[limit-1].Projection.Distance <= covered {
				break
			}
		}
	}

	sortCandidates(candidates)
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

func sortCandidates(c []Candidate) {
	sort.Slice(c, func(i, j int) bool {
		if c[i].Projection.Distance != c[j].Projection.Distance {
			return c[i].Projection.Distance < c[j].Projection.Distance
		}
		return c[i].EdgeID < c[j].EdgeID
	})
}
