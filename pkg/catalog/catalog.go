package catalog

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dhconnelly/rtreego"
	"github.com/lintang-b-s/mwmrouter/pkg/datastructure"
)

var (
	ErrUnknownRegion = errors.New("unknown region")
	ErrCatalogFull   = errors.New("region catalog is full")
)

const (
	rtreeMinChildren = 25
	rtreeMaxChildren = 50
	// minExtent keeps degenerate (point or line) extents valid for the rtree.
	minExtent = 1e-9
)

// regionEntry is the rtree leaf of one region extent.
type regionEntry struct {
	id     datastructure.RegionID
	bounds datastructure.Rect
	rect   rtreego.Rect
}

func (e *regionEntry) Bounds() rtreego.Rect {
	return e.rect
}

type regionInfo struct {
	name    string
	entry   *regionEntry
	removed bool
}

// Catalog maps region file names to stable ids and keeps an rtree of
// region extents. Lookups take a read lock, registration a write lock.
type Catalog struct {
	mu      sync.RWMutex
	ids     map[string]datastructure.RegionID
	regions []regionInfo
	tree    *rtreego.Rtree
}

func NewCatalog() *Catalog {
	return &Catalog{
		ids:     make(map[string]datastructure.RegionID),
		regions: make([]regionInfo, 0),
		tree:    rtreego.NewTree(2, rtreeMinChildren, rtreeMaxChildren),
	}
}

// RegisterRegion returns the id of name, assigning a new one on first use.
// It never touches the region file and does not revive a removed region.
func (c *Catalog) RegisterRegion(name string) (datastructure.RegionID, error) {
	c.mu.RLock()
	id, ok := c.ids[name]
	c.mu.RUnlock()
	if ok {
		return id, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registerLocked(name)
}

func (c *Catalog) registerLocked(name string) (datastructure.RegionID, error) {
	if id, ok := c.ids[name]; ok {
		return id, nil
	}
	if len(c.regions) >= int(datastructure.FakeRegionID) {
		return datastructure.InvalidRegionID, ErrCatalogFull
	}
	id := datastructure.RegionID(len(c.regions))
	c.ids[name] = id
	c.regions = append(c.regions, regionInfo{name: name})
	return id, nil
}

// RegisterRegionWithBounds registers name and sets its declared extent,
// replacing the previous extent if there was one. A removed region becomes
// live again.
func (c *Catalog) RegisterRegionWithBounds(name string, bounds datastructure.Rect) (datastructure.RegionID, error) {
	var rect rtreego.Rect
	if !bounds.IsEmpty() {
		var err error
		rect, err = toRtreeRect(bounds)
		if err != nil {
			return datastructure.InvalidRegionID, fmt.Errorf("region %s: %w", name, err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	id, err := c.registerLocked(name)
	if err != nil {
		return id, err
	}
	info := &c.regions[id]
	info.removed = false
	if bounds.IsEmpty() {
		return id, nil
	}
	if info.entry != nil {
		if info.entry.bounds == bounds {
			return id, nil
		}
		c.tree.Delete(info.entry)
	}
	info.entry = &regionEntry{id: id, bounds: bounds, rect: rect}
	c.tree.Insert(info.entry)
	return id, nil
}

// Remove marks name as removed. The id and the extent stay: in-flight
// searches still resolve the name, and points inside the extent keep
// reporting the region as unavailable.
func (c *Catalog) Remove(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, ok := c.ids[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRegion, name)
	}
	c.regions[id].removed = true
	return nil
}

func (c *Catalog) GetID(name string) (datastructure.RegionID, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	id, ok := c.ids[name]
	if !ok {
		return datastructure.InvalidRegionID, fmt.Errorf("%w: %s", ErrUnknownRegion, name)
	}
	return id, nil
}

func (c *Catalog) GetName(id datastructure.RegionID) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if int(id) >= len(c.regions) {
		return "", fmt.Errorf("%w: id %d", ErrUnknownRegion, id)
	}
	return c.regions[id].name, nil
}

// IsRemoved reports whether the region was removed after registration.
func (c *Catalog) IsRemoved(id datastructure.RegionID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if int(id) >= len(c.regions) {
		return true
	}
	return c.regions[id].removed
}

func (c *Catalog) Bounds(id datastructure.RegionID) (datastructure.Rect, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if int(id) >= len(c.regions) || c.regions[id].entry == nil {
		return datastructure.Rect{}, false
	}
	return c.regions[id].entry.bounds, true
}

// RegionsCovering returns every region whose extent contains p, sorted by id.
// Removed regions are included.
func (c *Catalog) RegionsCovering(p datastructure.Coordinate) []datastructure.RegionID {
	query := rtreego.Point{p.Lat, p.Lon}.ToRect(minExtent)

	c.mu.RLock()
	results := c.tree.SearchIntersect(query)
	c.mu.RUnlock()

	ids := make([]datastructure.RegionID, 0, len(results))
	for _, r := range results {
		entry := r.(*regionEntry)
		if entry.bounds.Contains(p) {
			ids = append(ids, entry.id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// RegionsIntersecting returns regions whose extent intersects bounds.
func (c *Catalog) RegionsIntersecting(bounds datastructure.Rect) []datastructure.RegionID {
	query, err := toRtreeRect(bounds)
	if err != nil {
		return nil
	}

	c.mu.RLock()
	results := c.tree.SearchIntersect(query)
	c.mu.RUnlock()

	ids := make([]datastructure.RegionID, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.(*regionEntry).id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// RegionSummary is one catalog row.
type RegionSummary struct {
	ID      datastructure.RegionID
	Name    string
	Bounds  datastructure.Rect
	Removed bool
}

func (c *Catalog) List() []RegionSummary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]RegionSummary, 0, len(c.regions))
	for i, info := range c.regions {
		s := RegionSummary{ID: datastructure.RegionID(i), Name: info.name, Removed: info.removed}
		if info.entry != nil {
			s.Bounds = info.entry.bounds
		}
		out = append(out, s)
	}
	return out
}

// SpatialSize is the number of extents in the rtree.
func (c *Catalog) SpatialSize() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tree.Size()
}

func toRtreeRect(b datastructure.Rect) (rtreego.Rect, error) {
	return rtreego.NewRect(rtreego.Point{b.MinLat, b.MinLon}, []float64{
		max(b.MaxLat-b.MinLat, minExtent),
		max(b.MaxLon-b.MinLon, minExtent),
	})
}
