package routing

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/lintang-b-s/mwmrouter/pkg/datastructure"
	"github.com/lintang-b-s/mwmrouter/pkg/geo"
	"github.com/lintang-b-s/mwmrouter/pkg/metrics"
	"github.com/lintang-b-s/mwmrouter/pkg/vehicle"
	"github.com/lintang-b-s/mwmrouter/pkg/worldgraph"
	"go.uber.org/zap"
)

type Config struct {
	// LongRouteThresholdM: endpoints farther apart than this are routed in
	// two passes, leaps first.
	LongRouteThresholdM float64
	// RefineTolerance is how much the refined weight may exceed the leap
	// estimate before the corridor is widened.
	RefineTolerance float64
}

func DefaultConfig() Config {
	return Config{
		LongRouteThresholdM: 300_000,
		RefineTolerance:     0.05,
	}
}

type Option func(*Router)

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Router) {
		r.metrics = m
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Router) {
		if l != nil {
			r.logger = l
		}
	}
}

// Router picks the world graph modes for a request and assembles the route.
type Router struct {
	g       *worldgraph.WorldGraph
	cfg     Config
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewRouter(g *worldgraph.WorldGraph, cfg Config, opts ...Option) *Router {
	r := &Router{g: g, cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// result is a finished search with the regions its route touches. missing
// lists the regions the search wanted to expand but could not load, it is
// also set when the search found no route.
type result struct {
	route   *datastructure.Route
	regions []datastructure.RegionID
	mode    worldgraph.Mode
	missing []*worldgraph.RegionUnavailableError
}

// BuildRoute computes a route from start to finish for p. Avoid options that
// leave no route are dropped once, and the route then carries an
// AvoidanceRelaxed warning.
func (r *Router) BuildRoute(ctx context.Context, start, finish datastructure.Coordinate, p *vehicle.Profile) (*datastructure.Route, error) {
	res, err := r.route(ctx, start, finish, p)
	opts := p.Options()
	if err != nil && (opts.AvoidTolls || opts.AvoidFerries) &&
		(errors.Is(err, ErrRouteNotFound) || errors.Is(err, worldgraph.ErrPointTooFarFromRoad)) {
		r.logger.Debug("relaxing avoid options", zap.String("profile", p.Key().String()))
		res, err = r.route(ctx, start, finish, p.Relaxed())
		if err == nil {
			res.route.AddWarning(datastructure.RouteWarning{
				Kind:    datastructure.WarningAvoidanceRelaxed,
				Message: "no route avoids the requested roads",
			})
		}
	}
	if err != nil {
		return nil, err
	}
	return res.route, nil
}

func (r *Router) route(ctx context.Context, start, finish datastructure.Coordinate, p *vehicle.Profile) (*result, error) {
	startRegion, finishRegion, err := r.locate(ctx, start, finish, p)
	var unavailable *worldgraph.RegionUnavailableError
	switch {
	case errors.As(err, &unavailable):
		r.logger.Debug("endpoint region unavailable", zap.String("region", unavailable.Name))
		return r.search(ctx, p, worldgraph.LeapsOnly, start, finish, nil)
	case err != nil:
		return nil, err
	}

	if startRegion == finishRegion {
		res, err := r.search(ctx, p, worldgraph.JointSingleMwm, start, finish, nil)
		if !errors.Is(err, ErrRouteNotFound) {
			return res, err
		}
		res, err = r.search(ctx, p, worldgraph.Joints, start, finish, nil)
		return r.leapFallback(ctx, p, start, finish, res, err)
	}

	if geo.HaversineMeters(start.Lat, start.Lon, finish.Lat, finish.Lon) < r.cfg.LongRouteThresholdM {
		res, err := r.search(ctx, p, worldgraph.Joints, start, finish, nil)
		return r.leapFallback(ctx, p, start, finish, res, err)
	}
	return r.twoPass(ctx, p, start, finish)
}

// leapFallback checks an exact search that skipped regions with missing
// files. The leap graph crosses those regions by their border junctions, so
// a leap route through one of them that beats the exact result (or exists
// where the exact search found nothing) is returned with its
// RegionUnavailable warnings.
func (r *Router) leapFallback(ctx context.Context, p *vehicle.Profile, start, finish datastructure.Coordinate,
	exact *result, err error) (*result, error) {
	if err != nil && !errors.Is(err, ErrRouteNotFound) {
		return nil, err
	}
	if exact == nil || len(exact.missing) == 0 {
		return exact, err
	}

	leap, leapErr := r.search(ctx, p, worldgraph.LeapsOnly, start, finish, nil)
	switch {
	case errors.Is(leapErr, ErrRouteNotFound):
		if err != nil {
			return nil, err
		}
		return exact, nil
	case leapErr != nil:
		return nil, leapErr
	}

	names := make([]string, 0, len(exact.missing))
	for _, m := range exact.missing {
		names = append(names, m.Name)
	}
	r.logger.Debug("exact search skipped unavailable regions", zap.Strings("regions", names))

	if err != nil {
		return leap, nil
	}
	if leap.route.HasWarning(datastructure.WarningRegionUnavailable) && leap.route.Weight < exact.route.Weight-weightEps {
		return leap, nil
	}
	return exact, nil
}

// locate attaches both points and returns the region of their closest roads.
func (r *Router) locate(ctx context.Context, start, finish datastructure.Coordinate, p *vehicle.Profile) (datastructure.RegionID,
	datastructure.RegionID, error) {
	sess, err := r.g.NewSession(ctx, p, worldgraph.Joints)
	if err != nil {
		return 0, 0, err
	}
	defer sess.Close()

	s, err := sess.AttachPoint(start)
	if err != nil {
		return 0, 0, err
	}
	f, err := sess.AttachPoint(finish)
	if err != nil {
		return 0, 0, err
	}
	return s[0].Region, f[0].Region, nil
}

// twoPass finds the corridor with a leap search and refines it region by
// region. The corridor is widened by one ring once before giving up.
func (r *Router) twoPass(ctx context.Context, p *vehicle.Profile, start, finish datastructure.Coordinate) (*result, error) {
	leap, err := r.search(ctx, p, worldgraph.LeapsOnly, start, finish, nil)
	if err != nil {
		return nil, err
	}
	if leap.route.HasWarning(datastructure.WarningRegionUnavailable) {
		return leap, nil
	}

	limit := leap.route.Weight*(1+r.cfg.RefineTolerance) + weightEps
	corridor := leap.regions
	var best *result
	for attempt := 0; attempt < 2; attempt++ {
		refined, err := r.search(ctx, p, worldgraph.Joints, start, finish, corridor)
		if refined != nil && len(refined.missing) > 0 {
			// the leap tables of a region came from the world index but its
			// file is gone, the corridor cannot be refined through it
			for _, m := range refined.missing {
				leap.route.AddWarning(m.Warning())
			}
			return leap, nil
		}
		switch {
		case err == nil:
			if refined.route.Weight <= limit {
				return refined, nil
			}
			if best == nil || refined.route.Weight < best.route.Weight {
				best = refined
			}
		case !errors.Is(err, ErrRouteNotFound):
			return nil, err
		}
		r.logger.Debug("widening corridor", zap.Int("regions", len(corridor)))
		corridor = r.widen(corridor)
	}
	if best != nil {
		return best, nil
	}
	return nil, ErrRouteNotFound
}

func (r *Router) widen(corridor []datastructure.RegionID) []datastructure.RegionID {
	set := make(map[datastructure.RegionID]struct{}, len(corridor))
	for _, c := range corridor {
		set[c] = struct{}{}
		for _, n := range r.g.Transitions().Neighbours(c) {
			set[n] = struct{}{}
		}
	}
	return sortedRegions(set)
}

func sortedRegions(set map[datastructure.RegionID]struct{}) []datastructure.RegionID {
	out := make([]datastructure.RegionID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// search runs one session in mode. A non nil corridor restricts the regions
// whose roads are expanded.
func (r *Router) search(ctx context.Context, p *vehicle.Profile, mode worldgraph.Mode, start, finish datastructure.Coordinate,
	corridor []datastructure.RegionID) (res *result, err error) {
	began := time.Now()
	defer func() {
		r.metrics.ObserveSearch(mode.String(), outcome(err), time.Since(began))
	}()

	sess, err := r.g.NewSession(ctx, p, mode)
	if err != nil {
		return nil, err
	}
	defer sess.Close()
	if corridor != nil {
		sess.SetCorridor(corridor)
	}

	from, err := sess.AttachStart(start)
	if err != nil {
		return nil, err
	}
	to, err := sess.AttachFinish(finish)
	if err != nil {
		return nil, err
	}

	path, err := Search(ctx, sess, from, to)
	if errors.Is(err, ErrRouteNotFound) {
		return &result{mode: mode, missing: sess.Missing()}, err
	}
	if err != nil {
		return nil, err
	}
	route, regions := r.assemble(sess, path)
	r.logger.Debug("route search finished",
		zap.String("mode", mode.String()),
		zap.Int("settled", path.Settled),
		zap.Int("segments", len(route.Segments)),
		zap.Int("regions", len(sess.LoadedRegions())))
	return &result{route: route, regions: regions, mode: mode, missing: sess.Missing()}, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrCancelled):
		return "cancelled"
	case errors.Is(err, ErrRouteNotFound):
		return "not_found"
	case errors.Is(err, worldgraph.ErrPointTooFarFromRoad):
		return "too_far"
	}
	var unavailable *worldgraph.RegionUnavailableError
	if errors.As(err, &unavailable) {
		return "region_unavailable"
	}
	return "error"
}

// assemble turns a path into a route while the session still pins its
// regions, and lists the regions the route touches.
func (r *Router) assemble(sess *worldgraph.Session, path *Path) (*datastructure.Route, []datastructure.RegionID) {
	route := &datastructure.Route{
		Segments: make([]datastructure.RouteSegment, 0, len(path.Steps)),
		Distance: path.Distance,
		Duration: path.Duration,
		Weight:   path.Weight,
	}
	missing := make(map[datastructure.RegionID]*worldgraph.RegionUnavailableError)
	for _, m := range sess.Missing() {
		missing[m.Region] = m
	}

	touched := make(map[datastructure.RegionID]struct{})
	touch := func(v datastructure.JunctionKey) {
		if v.IsFake() {
			return
		}
		for _, side := range r.g.Transitions().Sides(v) {
			touched[side.Region] = struct{}{}
		}
	}

	for _, st := range path.Steps {
		route.Segments = append(route.Segments, datastructure.RouteSegment{
			Segment:  st.Segment,
			From:     st.From,
			To:       st.To,
			Length:   st.Distance,
			Duration: st.Duration,
			Leap:     st.Leap,
			Geometry: sess.StepGeometry(st),
		})
		touch(st.From)
		touch(st.To)

		region := st.Segment.Region
		if region == datastructure.FakeRegionID {
			continue
		}
		touched[region] = struct{}{}
		if m, ok := missing[region]; ok {
			route.AddWarning(m.Warning())
		}
		if st.Leap {
			continue
		}
		addAttributeWarnings(route, st.Attr)
	}
	return route, sortedRegions(touched)
}

func addAttributeWarnings(route *datastructure.Route, attr datastructure.EdgeAttributes) {
	if attr.Flags.Has(datastructure.FlagUnpaved) {
		route.AddWarning(datastructure.RouteWarning{Kind: datastructure.WarningUnpaved, Message: "route uses unpaved roads"})
	}
	if attr.Flags.Has(datastructure.FlagToll) {
		route.AddWarning(datastructure.RouteWarning{Kind: datastructure.WarningToll, Message: "route uses toll roads"})
	}
	if attr.Flags.Has(datastructure.FlagFerry) {
		route.AddWarning(datastructure.RouteWarning{Kind: datastructure.WarningFerry, Message: "route uses a ferry"})
	}
}
