package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/lintang-b-s/mwmrouter/pkg/catalog"
	"github.com/lintang-b-s/mwmrouter/pkg/datastructure"
	"github.com/lintang-b-s/mwmrouter/pkg/engine/routing"
	"github.com/lintang-b-s/mwmrouter/pkg/server"
	"github.com/lintang-b-s/mwmrouter/pkg/util"
	"github.com/lintang-b-s/mwmrouter/pkg/vehicle"
	"github.com/lintang-b-s/mwmrouter/pkg/worldgraph"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

type Router interface {
	BuildRoute(ctx context.Context, start, finish datastructure.Coordinate, p *vehicle.Profile) (*datastructure.Route, error)
}

var errSuperseded = errors.New("superseded by a newer request with the same key")

type Config struct {
	// Workers is the number of searches running at once.
	Workers int
	// CacheSize is the number of routes kept, 0 disables the cache.
	CacheSize int
	// CoordPrecision is the number of decimals coordinates are rounded to
	// in cache keys.
	CoordPrecision uint
}

func DefaultConfig() Config {
	return Config{
		Workers:        8,
		CacheSize:      1024,
		CoordPrecision: 5,
	}
}

type RouteRequest struct {
	Start   datastructure.Coordinate
	Finish  datastructure.Coordinate
	Vehicle datastructure.VehicleType
	Options datastructure.RouteOptions
	// RequestKey names the logical route, e.g. a client session. A newer
	// request with the same key cancels the older one. It is also the
	// handle of the request when set.
	RequestKey string
}

type RouteResult struct {
	Handle string
	Route  *datastructure.Route
	Cached bool
}

type cacheKey struct {
	startLat, startLon   float64
	finishLat, finishLon float64
	profile              vehicle.ProfileKey
}

// Task is a route search running on the worker pool.
type Task struct {
	Handle string

	cancel context.CancelCauseFunc
	done   chan struct{}
	route  *datastructure.Route
	cached bool
	err    error
}

func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the search finishes or ctx is done. A done ctx cancels
// the search.
func (t *Task) Wait(ctx context.Context) (*RouteResult, error) {
	select {
	case <-t.done:
	case <-ctx.Done():
		t.cancel(ctx.Err())
		<-t.done
	}
	if t.err != nil {
		return nil, t.err
	}
	return &RouteResult{Handle: t.Handle, Route: t.route, Cached: t.cached}, nil
}

type NavigationService struct {
	router Router
	cfg    Config
	sem    *semaphore.Weighted
	cache  *lru.Cache[cacheKey, *datastructure.Route]
	logger *zap.Logger

	mu     sync.Mutex
	active map[string]*Task
	seq    atomic.Uint64
}

func NewNavigationService(router Router, cfg Config, logger *zap.Logger) (*NavigationService, error) {
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("navigation service needs at least one worker, got %d", cfg.Workers)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NavigationService{
		router: router,
		cfg:    cfg,
		sem:    semaphore.NewWeighted(int64(cfg.Workers)),
		logger: logger,
		active: make(map[string]*Task),
	}
	if cfg.CacheSize > 0 {
		cache, err := lru.New[cacheKey, *datastructure.Route](cfg.CacheSize)
		if err != nil {
			return nil, err
		}
		s.cache = cache
	}
	return s, nil
}

// BuildRoute submits req and waits for its route.
func (s *NavigationService) BuildRoute(ctx context.Context, req RouteRequest) (*RouteResult, error) {
	t, err := s.Submit(ctx, req)
	if err != nil {
		return nil, err
	}
	return t.Wait(ctx)
}

// Submit starts the search for req and returns without waiting. The search
// runs until it finishes, ctx is done or it is cancelled.
func (s *NavigationService) Submit(ctx context.Context, req RouteRequest) (*Task, error) {
	p, err := vehicle.NewProfile(req.Vehicle, req.Options)
	if err != nil {
		return nil, server.WrapErrorf(err, server.ErrBadParamInput, "unsupported vehicle type")
	}
	if !validCoordinate(req.Start) || !validCoordinate(req.Finish) {
		return nil, server.NewErrorf(server.ErrBadParamInput, "coordinates out of range")
	}

	handle := req.RequestKey
	if handle == "" {
		handle = fmt.Sprintf("route-%d", s.seq.Add(1))
	}
	taskCtx, cancel := context.WithCancelCause(ctx)
	t := &Task{Handle: handle, cancel: cancel, done: make(chan struct{})}

	key := s.cacheKey(req, p)
	var route *datastructure.Route
	cached := false
	if s.cache != nil {
		route, cached = s.cache.Get(key)
	}

	s.mu.Lock()
	if old, ok := s.active[handle]; ok {
		old.cancel(errSuperseded)
		delete(s.active, handle)
	}
	if !cached {
		s.active[handle] = t
	}
	s.mu.Unlock()

	if cached {
		t.route, t.cached = route, true
		cancel(nil)
		close(t.done)
		return t, nil
	}

	go s.run(taskCtx, t, req, p, key)
	return t, nil
}

func (s *NavigationService) run(ctx context.Context, t *Task, req RouteRequest, p *vehicle.Profile, key cacheKey) {
	defer func() {
		s.mu.Lock()
		if s.active[t.Handle] == t {
			delete(s.active, t.Handle)
		}
		s.mu.Unlock()
		t.cancel(nil)
		close(t.done)
	}()

	if err := s.sem.Acquire(ctx, 1); err != nil {
		t.err = s.translate(ctx, fmt.Errorf("%w: %v", routing.ErrCancelled, err))
		return
	}
	defer s.sem.Release(1)

	route, err := s.router.BuildRoute(ctx, req.Start, req.Finish, p)
	if err != nil {
		t.err = s.translate(ctx, err)
		return
	}
	t.route = route
	if s.cache != nil && len(route.Warnings) == 0 {
		s.cache.Add(key, route)
	}
}

// CancelRoute cancels the running search with handle.
func (s *NavigationService) CancelRoute(handle string) error {
	s.mu.Lock()
	t, ok := s.active[handle]
	s.mu.Unlock()
	if !ok {
		return server.NewErrorf(server.ErrNotFound, "no running route request %s", handle)
	}
	t.cancel(nil)
	s.logger.Debug("route request cancelled", zap.String("handle", handle))
	return nil
}

// InvalidateCache drops every cached route. Called when the set of regions
// changes.
func (s *NavigationService) InvalidateCache() {
	if s.cache != nil {
		s.cache.Purge()
	}
}

func (s *NavigationService) cacheKey(req RouteRequest, p *vehicle.Profile) cacheKey {
	prec := s.cfg.CoordPrecision
	return cacheKey{
		startLat:  util.RoundFloat(req.Start.Lat, prec),
		startLon:  util.RoundFloat(req.Start.Lon, prec),
		finishLat: util.RoundFloat(req.Finish.Lat, prec),
		finishLon: util.RoundFloat(req.Finish.Lon, prec),
		profile:   p.Key(),
	}
}

func validCoordinate(c datastructure.Coordinate) bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

func (s *NavigationService) translate(ctx context.Context, err error) error {
	var unavailable *worldgraph.RegionUnavailableError
	switch {
	case errors.Is(context.Cause(ctx), errSuperseded):
		return server.WrapErrorf(err, server.ErrConflict, "route request superseded by a newer one")
	case errors.Is(err, routing.ErrCancelled), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return server.WrapErrorf(err, server.ErrCancelled, "route request cancelled")
	case errors.Is(err, worldgraph.ErrPointTooFarFromRoad):
		return server.WrapErrorf(err, server.ErrNotFound, "point too far from road")
	case errors.Is(err, routing.ErrRouteNotFound):
		return server.WrapErrorf(err, server.ErrNotFound, "route not found")
	case errors.As(err, &unavailable):
		return server.WrapErrorf(err, server.ErrRegionUnavailable, "download region %s to build this route", unavailable.Name)
	case errors.Is(err, catalog.ErrUnknownRegion):
		return server.WrapErrorf(err, server.ErrNotFound, "unknown region")
	}
	s.logger.Error("route search failed", zap.Error(err))
	return server.WrapErrorf(err, server.ErrInternalServerError, "internal server error")
}
