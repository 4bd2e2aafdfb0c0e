package worldgraph

import (
	"context"
	"errors"
	"fmt"

	"github.com/lintang-b-s/mwmrouter/pkg/catalog"
	"github.com/lintang-b-s/mwmrouter/pkg/datastructure"
	"github.com/lintang-b-s/mwmrouter/pkg/kv"
	"github.com/lintang-b-s/mwmrouter/pkg/metrics"
	"github.com/lintang-b-s/mwmrouter/pkg/mwm"
	"github.com/lintang-b-s/mwmrouter/pkg/regiongraph"
	"github.com/lintang-b-s/mwmrouter/pkg/storage/buffer"
	"github.com/lintang-b-s/mwmrouter/pkg/transition"
	"github.com/lintang-b-s/mwmrouter/pkg/vehicle"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type Config struct {
	// SnapRadiusM is the largest distance between a point and the road it
	// is attached to.
	SnapRadiusM float64
	// AttachToleranceM: candidates farther than the closest one plus this are
	// not attached.
	AttachToleranceM  float64
	MaxRoadCandidates int
	// ResidentLimit caps unpinned regions kept in memory, 0 is unlimited.
	ResidentLimit int
}

func DefaultConfig() Config {
	return Config{
		SnapRadiusM:       500,
		AttachToleranceM:  30,
		MaxRoadCandidates: 10,
		ResidentLimit:     16,
	}
}

type Option func(*WorldGraph)

// WithWorldIndex persists cross sections of added regions and lets Bootstrap
// learn about regions whose files are absent.
func WithWorldIndex(db *kv.KVDB) Option {
	return func(g *WorldGraph) {
		g.index = db
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *WorldGraph) {
		g.metrics = m
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(g *WorldGraph) {
		if l != nil {
			g.logger = l
		}
	}
}

// WorldGraph composes the region views and the transition index into one
// routable graph.
type WorldGraph struct {
	cfg         Config
	catalog     *catalog.Catalog
	source      mwm.Source
	transitions *transition.Index
	pool        *buffer.Pool[*regiongraph.View]
	index       *kv.KVDB
	metrics     *metrics.Metrics
	logger      *zap.Logger

	leapGroup singleflight.Group
}

func New(cfg Config, cat *catalog.Catalog, source mwm.Source, opts ...Option) *WorldGraph {
	g := &WorldGraph{
		cfg:         cfg,
		catalog:     cat,
		source:      source,
		transitions: transition.NewIndex(cat),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.pool = buffer.NewPool(g.loadRegion, cfg.ResidentLimit, g.logger)
	return g
}

func (g *WorldGraph) Config() Config {
	return g.cfg
}

func (g *WorldGraph) Catalog() *catalog.Catalog {
	return g.catalog
}

func (g *WorldGraph) Transitions() *transition.Index {
	return g.transitions
}

func (g *WorldGraph) CacheStats() buffer.Stats {
	return g.pool.Stats()
}

func (g *WorldGraph) loadRegion(ctx context.Context, id datastructure.RegionID) (*regiongraph.View, error) {
	name, err := g.catalog.GetName(id)
	if err != nil {
		return nil, err
	}
	if g.catalog.IsRemoved(id) {
		return nil, &RegionUnavailableError{Region: id, Name: name, Err: mwm.ErrRegionFileNotFound}
	}
	reader, err := g.source.Open(ctx, name)
	if err == nil {
		var view *regiongraph.View
		view, err = regiongraph.Build(id, reader)
		if err == nil {
			g.logger.Info("region loaded", zap.String("region", name), zap.Int("edges", view.NumEdges()))
			g.metrics.ObserveRegionLoad(nil)
			return view, nil
		}
	}
	g.metrics.ObserveRegionLoad(err)
	if errors.Is(err, mwm.ErrRegionFileNotFound) {
		return nil, &RegionUnavailableError{Region: id, Name: name, Err: err}
	}
	return nil, fmt.Errorf("load region %s: %w", name, err)
}

// EnsureRegionLoaded materializes the region graph on first use and pins it.
// The caller releases the handle. A region that is registered but not on disk
// yields *RegionUnavailableError.
func (g *WorldGraph) EnsureRegionLoaded(ctx context.Context, id datastructure.RegionID) (*buffer.Handle[*regiongraph.View], error) {
	h, err := g.pool.Pin(ctx, id)
	g.metrics.SetResidentRegions(g.pool.Len())
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (g *WorldGraph) IsResident(id datastructure.RegionID) bool {
	return g.pool.IsResident(id)
}

// AddRegion registers a region present in the source, its extent and its
// cross section. Adding a region again refreshes it.
func (g *WorldGraph) AddRegion(ctx context.Context, name string) (datastructure.RegionID, error) {
	cross, err := g.source.OpenCrossSection(ctx, name)
	if err != nil {
		return datastructure.InvalidRegionID, err
	}
	if cross.Region != name {
		return datastructure.InvalidRegionID, fmt.Errorf("%w: file %s holds region %s", mwm.ErrBadRegionFile, name, cross.Region)
	}
	id, err := g.AddCrossSection(cross)
	if err != nil {
		return id, err
	}
	g.pool.Evict(id)
	if g.index != nil {
		if err := g.index.SaveCrossSection(cross); err != nil {
			g.logger.Warn("saving cross section to world index", zap.String("region", name), zap.Error(err))
		}
	}
	g.logger.Info("region added", zap.String("region", name), zap.Int("borders", len(cross.Borders)))
	return id, nil
}

// AddCrossSection registers what is known about a region without its road
// graph: extent, border junctions and leaps.
func (g *WorldGraph) AddCrossSection(cross *mwm.CrossSection) (datastructure.RegionID, error) {
	id, err := g.catalog.RegisterRegionWithBounds(cross.Region, cross.Bounds)
	if err != nil {
		return datastructure.InvalidRegionID, err
	}
	// leaps computed from an older file of the region are stale
	g.transitions.Remove(id)
	if err := g.transitions.Add(id, cross); err != nil {
		return id, err
	}
	return id, nil
}

// RemoveRegion drops a region. Searches holding it keep their view until
// they finish, later searches see it as unavailable.
func (g *WorldGraph) RemoveRegion(name string) error {
	id, err := g.catalog.GetID(name)
	if err != nil {
		return err
	}
	if err := g.catalog.Remove(name); err != nil {
		return err
	}
	g.transitions.Remove(id)
	g.pool.Evict(id)
	g.metrics.SetResidentRegions(g.pool.Len())
	g.logger.Info("region removed", zap.String("region", name))
	return nil
}

// Bootstrap registers every region of the world index and then every region
// file of the source.
func (g *WorldGraph) Bootstrap(ctx context.Context) error {
	if g.index != nil {
		err := g.index.ForEachCrossSection(ctx, func(cross *mwm.CrossSection) error {
			_, err := g.AddCrossSection(cross)
			return err
		})
		if err != nil {
			return fmt.Errorf("bootstrap from world index: %w", err)
		}
	}
	names, err := g.source.List()
	if err != nil {
		return fmt.Errorf("list regions: %w", err)
	}
	for _, name := range names {
		if _, err := g.AddRegion(ctx, name); err != nil {
			return fmt.Errorf("add region %s: %w", name, err)
		}
	}
	g.logger.Info("world graph ready", zap.Int("regions", len(g.catalog.List())), zap.Int("files", len(names)))
	return nil
}

// RegionStatus is one row of Regions.
type RegionStatus struct {
	catalog.RegionSummary
	OnDisk   bool
	Resident bool
}

func (g *WorldGraph) Regions() []RegionStatus {
	rows := g.catalog.List()
	out := make([]RegionStatus, 0, len(rows))
	for _, r := range rows {
		out = append(out, RegionStatus{
			RegionSummary: r,
			OnDisk:        !r.Removed && g.source.Exists(r.Name),
			Resident:      g.pool.IsResident(r.ID),
		})
	}
	return out
}

// leaps returns the leap table of region for p. Missing tables are computed
// from the region graph and cached, regions that cannot be loaded get
// straight line leaps and the error that made them approximate.
func (g *WorldGraph) leaps(ctx context.Context, region datastructure.RegionID, view *regiongraph.View,
	p *vehicle.Profile) ([]mwm.Leap, error) {
	if leaps, ok := g.transitions.Leaps(region, p.Key()); ok {
		return leaps, nil
	}
	if view == nil {
		return g.transitions.ApproximateLeaps(region, p), nil
	}

	key := fmt.Sprintf("%d/%s", region, p.Key())
	v, err, _ := g.leapGroup.Do(key, func() (interface{}, error) {
		if leaps, ok := g.transitions.Leaps(region, p.Key()); ok {
			return leaps, nil
		}
		leaps, err := transition.ComputeLeaps(context.WithoutCancel(ctx), view, p)
		if err != nil {
			return nil, err
		}
		g.transitions.SetLeaps(region, p.Key(), leaps)
		g.logger.Debug("leaps computed", zap.String("region", view.Name()), zap.String("profile", p.Key().String()),
			zap.Int("count", len(leaps)))
		return leaps, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]mwm.Leap), nil
}
