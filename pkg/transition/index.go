package transition

import (
	"fmt"
	"sort"
	"sync"

	"github.com/lintang-b-s/mwmrouter/pkg/catalog"
	"github.com/lintang-b-s/mwmrouter/pkg/datastructure"
	"github.com/lintang-b-s/mwmrouter/pkg/geo"
	"github.com/lintang-b-s/mwmrouter/pkg/mwm"
	"github.com/lintang-b-s/mwmrouter/pkg/vehicle"
)

type regionTransitions struct {
	// hasCross is set once the region's own cross section was added. Border
	// junctions of a region may also be known only from its neighbours.
	hasCross bool
	borders  map[uint32]datastructure.Coordinate
	leaps    map[string][]mwm.Leap
}

func newRegionTransitions() *regionTransitions {
	return &regionTransitions{
		borders: make(map[uint32]datastructure.Coordinate),
		leaps:   make(map[string][]mwm.Leap),
	}
}

// Index holds the border crossings between regions and the leap tables.
// It is the only part of a region visible to the search without loading the
// region's road graph.
type Index struct {
	mu      sync.RWMutex
	catalog *catalog.Catalog
	regions map[datastructure.RegionID]*regionTransitions
	partner map[datastructure.JunctionKey]datastructure.JunctionKey
}

func NewIndex(c *catalog.Catalog) *Index {
	return &Index{
		catalog: c,
		regions: make(map[datastructure.RegionID]*regionTransitions),
		partner: make(map[datastructure.JunctionKey]datastructure.JunctionKey),
	}
}

func (idx *Index) region(id datastructure.RegionID) *regionTransitions {
	rt, ok := idx.regions[id]
	if !ok {
		rt = newRegionTransitions()
		idx.regions[id] = rt
	}
	return rt
}

// Add records the border junctions and precomputed leaps of region.
// Neighbour names are registered in the catalog so their junctions are
// addressable even before their files are present.
func (idx *Index) Add(region datastructure.RegionID, cross *mwm.CrossSection) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	rt := idx.region(region)
	rt.hasCross = true
	for _, b := range cross.Borders {
		other, err := idx.catalog.RegisterRegion(b.MatchedRegion)
		if err != nil {
			return fmt.Errorf("register neighbour %s of %s: %w", b.MatchedRegion, cross.Region, err)
		}
		if other == region {
			return fmt.Errorf("%w: border junction %d of %s matched to itself", mwm.ErrBadRegionFile, b.JunctionID, cross.Region)
		}
		here := datastructure.NewJunctionKey(region, b.JunctionID)
		there := datastructure.NewJunctionKey(other, b.MatchedJunctionID)
		idx.partner[here] = there
		idx.partner[there] = here

		rt.borders[b.JunctionID] = b.Coordinate
		idx.region(other).borders[b.MatchedJunctionID] = b.Coordinate
	}
	for _, table := range cross.Leaps {
		leaps := make([]mwm.Leap, len(table.Leaps))
		copy(leaps, table.Leaps)
		rt.leaps[table.Profile] = leaps
	}
	return nil
}

// Remove forgets the region's own leaps. Border junctions stay addressable
// through the neighbours that reference them.
func (idx *Index) Remove(region datastructure.RegionID) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	rt, ok := idx.regions[region]
	if !ok {
		return
	}
	rt.hasCross = false
	rt.leaps = make(map[string][]mwm.Leap)
}

func (idx *Index) HasCrossSection(region datastructure.RegionID) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	rt, ok := idx.regions[region]
	return ok && rt.hasCross
}

// Partner returns the matched junction on the other side of the border.
func (idx *Index) Partner(j datastructure.JunctionKey) (datastructure.JunctionKey, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	p, ok := idx.partner[j]
	return p, ok
}

// Canonical returns one representative of a matched border junction pair so
// both sides map to the same search vertex.
func (idx *Index) Canonical(j datastructure.JunctionKey) datastructure.JunctionKey {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if p, ok := idx.partner[j]; ok && p.Less(j) {
		return p
	}
	return j
}

// Sides returns both keys of a border vertex, j first.
func (idx *Index) Sides(j datastructure.JunctionKey) []datastructure.JunctionKey {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if p, ok := idx.partner[j]; ok {
		return []datastructure.JunctionKey{j, p}
	}
	return []datastructure.JunctionKey{j}
}

// Borders returns the known border junctions of region in ascending order.
func (idx *Index) Borders(region datastructure.RegionID) []uint32 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	rt, ok := idx.regions[region]
	if !ok {
		return nil
	}
	out := make([]uint32, 0, len(rt.borders))
	for j := range rt.borders {
		out = append(out, j)
	}
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out
}

func (idx *Index) BorderCoordinate(j datastructure.JunctionKey) (datastructure.Coordinate, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	rt, ok := idx.regions[j.Region]
	if !ok {
		return datastructure.Coordinate{}, false
	}
	c, ok := rt.borders[j.Local]
	return c, ok
}

// Neighbours returns the regions sharing a border junction with region.
func (idx *Index) Neighbours(region datastructure.RegionID) []datastructure.RegionID {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	rt, ok := idx.regions[region]
	if !ok {
		return nil
	}
	seen := make(map[datastructure.RegionID]struct{})
	for j := range rt.borders {
		if p, ok := idx.partner[datastructure.NewJunctionKey(region, j)]; ok {
			seen[p.Region] = struct{}{}
		}
	}
	out := make([]datastructure.RegionID, 0, len(seen))
	for r := range seen {
		out = append(out, r)
	}
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out
}

// Leaps returns the cached leap table of region for the profile key.
func (idx *Index) Leaps(region datastructure.RegionID, key vehicle.ProfileKey) ([]mwm.Leap, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	rt, ok := idx.regions[region]
	if !ok {
		return nil, false
	}
	leaps, ok := rt.leaps[key.String()]
	return leaps, ok
}

// SetLeaps caches a leap table. Tables are replaced, never mutated, so
// readers holding the previous slice are unaffected.
func (idx *Index) SetLeaps(region datastructure.RegionID, key vehicle.ProfileKey, leaps []mwm.Leap) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.region(region).leaps[key.String()] = leaps
}

// ApproximateLeaps connects every ordered pair of known border junctions of
// region by straight line at the profile's top speed. The weights never
// exceed the real in-region cost.
func (idx *Index) ApproximateLeaps(region datastructure.RegionID, p *vehicle.Profile) []mwm.Leap {
	borders := idx.Borders(region)
	coords := make([]datastructure.Coordinate, len(borders))
	for i, j := range borders {
		coords[i], _ = idx.BorderCoordinate(datastructure.NewJunctionKey(region, j))
	}

	leaps := make([]mwm.Leap, 0, len(borders)*len(borders))
	for i, from := range borders {
		for k, to := range borders {
			if i == k {
				continue
			}
			dist := geo.HaversineMeters(coords[i].Lat, coords[i].Lon, coords[k].Lat, coords[k].Lon)
			leaps = append(leaps, mwm.Leap{
				From:     from,
				To:       to,
				Weight:   p.HeuristicWeight(dist),
				Distance: dist,
				Duration: p.ApproximateDuration(dist),
			})
		}
	}
	return leaps
}
