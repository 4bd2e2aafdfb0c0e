package routing

import (
	"context"
	"errors"
	"testing"

	"github.com/lintang-b-s/mwmrouter/pkg/catalog"
	"github.com/lintang-b-s/mwmrouter/pkg/datastructure"
	"github.com/lintang-b-s/mwmrouter/pkg/mwm"
	"github.com/lintang-b-s/mwmrouter/pkg/regiongraph"
	"github.com/lintang-b-s/mwmrouter/pkg/transition"
	"github.com/lintang-b-s/mwmrouter/pkg/vehicle"
	"github.com/lintang-b-s/mwmrouter/pkg/worldgraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func car() *vehicle.Profile {
	return vehicle.MustProfile(datastructure.Car, datastructure.RouteOptions{})
}

func road(id, from, to uint32, class datastructure.RoadClass) mwm.SegmentRecord {
	return mwm.SegmentRecord{EdgeID: id, From: from, To: to, Mask: datastructure.AllVehiclesMask, Class: class}
}

/*
region "grid", junctions ~110 m apart:

	1 ------- 2 ------- 3
	|       /  |        |
	|   13     |        |
	|  /       |        |
	4 ------- 5 ------- 6
	|          |        |
	7 ------- 8 ------- 9

13 is a footway, 2 -> 3 is oneway.
*/
func gridRegion() *mwm.RegionData {
	junctions := make([]mwm.Junction, 0, 9)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			junctions = append(junctions, mwm.Junction{
				ID:         uint32(1 + 3*r + c),
				Coordinate: datastructure.NewCoordinate(-7.000-0.001*float64(r), 110.000+0.001*float64(c)),
			})
		}
	}
	res := datastructure.RoadClassResidential
	oneway := road(2, 2, 3, res)
	oneway.Flags = datastructure.FlagOneway
	return &mwm.RegionData{
		Cross:     mwm.CrossSection{Region: "grid", Bounds: datastructure.NewRect(-7.01, 109.99, -6.99, 110.01)},
		Junctions: junctions,
		Segments: []mwm.SegmentRecord{
			road(1, 1, 2, res), oneway, road(3, 4, 5, datastructure.RoadClassSecondary), road(4, 5, 6, res),
			road(5, 7, 8, res), road(6, 8, 9, res), road(7, 1, 4, res), road(8, 4, 7, res),
			road(9, 2, 5, res), road(10, 5, 8, res), road(11, 3, 6, res), road(12, 6, 9, res),
			{EdgeID: 13, From: 2, To: 4, Mask: datastructure.PedestrianMask, Class: datastructure.RoadClassFootway},
		},
	}
}

/*
regions "a" and "b" side by side, border junction a:3 == b:1

	a1 ---1--- a2 ---2--- a3 | b1 ---1--- b2 ---2--- b3
*/
func regionA() *mwm.RegionData {
	return &mwm.RegionData{
		Cross: mwm.CrossSection{
			Region: "a",
			Bounds: datastructure.NewRect(-7.01, 109.99, -6.99, 110.010),
			Borders: []mwm.BorderJunction{
				{JunctionID: 3, MatchedRegion: "b", MatchedJunctionID: 1, Coordinate: datastructure.NewCoordinate(-7.0, 110.010)},
			},
		},
		Junctions: []mwm.Junction{
			{ID: 1, Coordinate: datastructure.NewCoordinate(-7.0, 110.000)},
			{ID: 2, Coordinate: datastructure.NewCoordinate(-7.0, 110.005)},
			{ID: 3, Coordinate: datastructure.NewCoordinate(-7.0, 110.010)},
		},
		Segments: []mwm.SegmentRecord{
			road(1, 1, 2, datastructure.RoadClassTertiary),
			road(2, 2, 3, datastructure.RoadClassTertiary),
		},
	}
}

func regionB() *mwm.RegionData {
	unpaved := road(2, 2, 3, datastructure.RoadClassTrack)
	unpaved.Flags = datastructure.FlagUnpaved
	return &mwm.RegionData{
		Cross: mwm.CrossSection{
			Region: "b",
			Bounds: datastructure.NewRect(-7.01, 110.010, -6.99, 110.03),
			Borders: []mwm.BorderJunction{
				{JunctionID: 1, MatchedRegion: "a", MatchedJunctionID: 3, Coordinate: datastructure.NewCoordinate(-7.0, 110.010)},
			},
		},
		Junctions: []mwm.Junction{
			{ID: 1, Coordinate: datastructure.NewCoordinate(-7.0, 110.010)},
			{ID: 2, Coordinate: datastructure.NewCoordinate(-7.0, 110.015)},
			{ID: 3, Coordinate: datastructure.NewCoordinate(-7.0, 110.020)},
		},
		Segments: []mwm.SegmentRecord{
			road(1, 1, 2, datastructure.RoadClassTertiary),
			unpaved,
		},
	}
}

/*
three regions ~110 km wide, west | mid | east

	w1 ------- w2 | m1 --- m3 --- m2 | e1 ------- e2
	                  \           /
	                   --- m4 ---
*/
func westRegion() *mwm.RegionData {
	return &mwm.RegionData{
		Cross: mwm.CrossSection{
			Region: "west",
			Bounds: datastructure.NewRect(-7.1, 109.9, -6.9, 111.0),
			Borders: []mwm.BorderJunction{
				{JunctionID: 2, MatchedRegion: "mid", MatchedJunctionID: 1, Coordinate: datastructure.NewCoordinate(-7.0, 111.0)},
			},
		},
		Junctions: []mwm.Junction{
			{ID: 1, Coordinate: datastructure.NewCoordinate(-7.0, 110.0)},
			{ID: 2, Coordinate: datastructure.NewCoordinate(-7.0, 111.0)},
		},
		Segments: []mwm.SegmentRecord{road(1, 1, 2, datastructure.RoadClassTrunk)},
	}
}

func midRegion() *mwm.RegionData {
	return &mwm.RegionData{
		Cross: mwm.CrossSection{
			Region: "mid",
			Bounds: datastructure.NewRect(-7.1, 111.0, -6.9, 112.0),
			Borders: []mwm.BorderJunction{
				{JunctionID: 1, MatchedRegion: "west", MatchedJunctionID: 2, Coordinate: datastructure.NewCoordinate(-7.0, 111.0)},
				{JunctionID: 2, MatchedRegion: "east", MatchedJunctionID: 1, Coordinate: datastructure.NewCoordinate(-7.0, 112.0)},
			},
		},
		Junctions: []mwm.Junction{
			{ID: 1, Coordinate: datastructure.NewCoordinate(-7.0, 111.0)},
			{ID: 2, Coordinate: datastructure.NewCoordinate(-7.0, 112.0)},
			{ID: 3, Coordinate: datastructure.NewCoordinate(-7.0, 111.5)},
			{ID: 4, Coordinate: datastructure.NewCoordinate(-6.95, 111.5)},
		},
		Segments: []mwm.SegmentRecord{
			road(1, 1, 3, datastructure.RoadClassTrunk),
			road(2, 3, 2, datastructure.RoadClassTrunk),
			road(3, 1, 4, datastructure.RoadClassMotorway),
			road(4, 4, 2, datastructure.RoadClassMotorway),
		},
	}
}

func eastRegion() *mwm.RegionData {
	return &mwm.RegionData{
		Cross: mwm.CrossSection{
			Region: "east",
			Bounds: datastructure.NewRect(-7.1, 112.0, -6.9, 113.1),
			Borders: []mwm.BorderJunction{
				{JunctionID: 1, MatchedRegion: "mid", MatchedJunctionID: 2, Coordinate: datastructure.NewCoordinate(-7.0, 112.0)},
			},
		},
		Junctions: []mwm.Junction{
			{ID: 1, Coordinate: datastructure.NewCoordinate(-7.0, 112.0)},
			{ID: 2, Coordinate: datastructure.NewCoordinate(-7.0, 113.0)},
		},
		Segments: []mwm.SegmentRecord{road(1, 1, 2, datastructure.RoadClassTrunk)},
	}
}

/*
region "island": the only road to 3 is a toll road

	1 ---1--- 2 ------2 (toll)------ 3
*/
func islandRegion() *mwm.RegionData {
	toll := road(2, 2, 3, datastructure.RoadClassPrimary)
	toll.Flags = datastructure.FlagToll
	return &mwm.RegionData{
		Cross: mwm.CrossSection{Region: "island", Bounds: datastructure.NewRect(-8.01, 109.99, -7.99, 110.03)},
		Junctions: []mwm.Junction{
			{ID: 1, Coordinate: datastructure.NewCoordinate(-8.0, 110.000)},
			{ID: 2, Coordinate: datastructure.NewCoordinate(-8.0, 110.002)},
			{ID: 3, Coordinate: datastructure.NewCoordinate(-8.0, 110.020)},
		},
		Segments: []mwm.SegmentRecord{road(1, 1, 2, datastructure.RoadClassResidential), toll},
	}
}

func newWorld(t *testing.T, regions ...*mwm.RegionData) (*worldgraph.WorldGraph, *mwm.MemorySource, *Router) {
	t.Helper()
	source := mwm.NewMemorySource(regions...)
	g := worldgraph.New(worldgraph.DefaultConfig(), catalog.NewCatalog(), source)
	require.NoError(t, g.Bootstrap(context.Background()))
	return g, source, NewRouter(g, DefaultConfig())
}

func regionID(t *testing.T, g *worldgraph.WorldGraph, name string) datastructure.RegionID {
	t.Helper()
	id, err := g.Catalog().GetID(name)
	require.NoError(t, err)
	return id
}

// assertRoundTrip checks every real segment resolves to an edge the vehicle
// may use.
func assertRoundTrip(t *testing.T, g *worldgraph.WorldGraph, route *datastructure.Route, v datastructure.VehicleType) {
	t.Helper()
	require.NoError(t, route.Validate())
	for _, seg := range route.Segments {
		if seg.Segment.IsFake() {
			continue
		}
		h, err := g.EnsureRegionLoaded(context.Background(), seg.Segment.Region)
		require.NoError(t, err)
		e, ok := h.Value().Edge(seg.Segment.EdgeID)
		require.True(t, ok, "segment %s", seg.Segment)
		assert.True(t, vehicle.IsAllowed(e.Attr.Mask, v), "segment %s", seg.Segment)
		require.NoError(t, h.Release())
	}
}

func usesEdge(route *datastructure.Route, region datastructure.RegionID, edgeID uint32) bool {
	for _, seg := range route.Segments {
		if seg.Segment.Region == region && seg.Segment.EdgeID == edgeID {
			return true
		}
	}
	return false
}

func TestSingleRegionModesAgree(t *testing.T) {
	g, _, r := newWorld(t, gridRegion())
	points := []datastructure.Coordinate{
		datastructure.NewCoordinate(-7.0001, 110.0003),
		datastructure.NewCoordinate(-7.0012, 110.0017),
		datastructure.NewCoordinate(-7.0021, 110.0021),
		datastructure.NewCoordinate(-7.0004, 110.0019),
		datastructure.NewCoordinate(-7.0015, 109.9999),
	}
	ctx := context.Background()
	for _, p := range []*vehicle.Profile{car(), vehicle.MustProfile(datastructure.Pedestrian, datastructure.RouteOptions{})} {
		for i, a := range points {
			for j, b := range points {
				if i == j {
					continue
				}
				single, err := r.search(ctx, p, worldgraph.SingleMwm, a, b, nil)
				require.NoError(t, err)
				for _, mode := range []worldgraph.Mode{worldgraph.NoLeaps, worldgraph.Joints, worldgraph.JointSingleMwm} {
					other, err := r.search(ctx, p, mode, a, b, nil)
					require.NoError(t, err)
					assert.InDelta(t, single.route.Weight, other.route.Weight, 1e-6, "%s %d->%d", mode, i, j)
				}
				assertRoundTrip(t, g, single.route, p.Vehicle())
			}
		}
	}
}

func TestCarNeverUsesFootway(t *testing.T) {
	g, _, r := newWorld(t, gridRegion())
	grid := regionID(t, g, "grid")
	start := datastructure.NewCoordinate(-7.0000, 110.0012)
	finish := datastructure.NewCoordinate(-7.0010, 109.9998)

	walk, err := r.BuildRoute(context.Background(), start, finish,
		vehicle.MustProfile(datastructure.Pedestrian, datastructure.RouteOptions{}))
	require.NoError(t, err)
	assert.True(t, usesEdge(walk, grid, 13))

	drive, err := r.BuildRoute(context.Background(), start, finish, car())
	require.NoError(t, err)
	assert.False(t, usesEdge(drive, grid, 13))
	assert.Greater(t, drive.Distance, walk.Distance)
	assertRoundTrip(t, g, drive, datastructure.Car)
}

func TestOnewayIsRespected(t *testing.T) {
	g, _, r := newWorld(t, gridRegion())
	grid := regionID(t, g, "grid")

	// 3 -> 2 against the oneway has to go around through 6 and 5
	route, err := r.BuildRoute(context.Background(),
		datastructure.NewCoordinate(-6.9999, 110.0019), datastructure.NewCoordinate(-6.9999, 110.0011), car())
	require.NoError(t, err)
	for _, seg := range route.Segments {
		if seg.Segment.Region == grid && seg.Segment.EdgeID == 2 {
			assert.True(t, seg.Segment.Forward)
		}
	}
	assert.Greater(t, route.Distance, 300.0)
}

func TestPointTooFarFromRoad(t *testing.T) {
	_, _, r := newWorld(t, gridRegion())
	_, err := r.BuildRoute(context.Background(),
		datastructure.NewCoordinate(-6.991, 110.009), datastructure.NewCoordinate(-7.0005, 110.0005), car())
	assert.ErrorIs(t, err, worldgraph.ErrPointTooFarFromRoad)
}

func TestRouteNotFoundBetweenIslands(t *testing.T) {
	_, _, r := newWorld(t, gridRegion(), islandRegion())
	_, err := r.BuildRoute(context.Background(),
		datastructure.NewCoordinate(-7.0005, 110.0005), datastructure.NewCoordinate(-8.0001, 110.0005), car())
	assert.ErrorIs(t, err, ErrRouteNotFound)
}

func TestAvoidTollsRelaxed(t *testing.T) {
	_, _, r := newWorld(t, islandRegion())
	p := vehicle.MustProfile(datastructure.Car, datastructure.RouteOptions{AvoidTolls: true})

	route, err := r.BuildRoute(context.Background(),
		datastructure.NewCoordinate(-8.0001, 110.0005), datastructure.NewCoordinate(-8.0001, 110.0195), p)
	require.NoError(t, err)
	assert.True(t, route.HasWarning(datastructure.WarningAvoidanceRelaxed))
	assert.True(t, route.HasWarning(datastructure.WarningToll))
}

func TestRegionUnavailableThenDownloaded(t *testing.T) {
	g, source, r := newWorld(t, regionA())
	_, err := g.AddCrossSection(&regionB().Cross)
	require.NoError(t, err)
	b := regionID(t, g, "b")

	start := datastructure.NewCoordinate(-7.0001, 110.0005)
	finish := datastructure.NewCoordinate(-7.0001, 110.0195)

	route, err := r.BuildRoute(context.Background(), start, finish, car())
	require.NoError(t, err)
	require.NoError(t, route.Validate())
	require.True(t, route.HasWarning(datastructure.WarningRegionUnavailable))
	for _, w := range route.Warnings {
		if w.Kind == datastructure.WarningRegionUnavailable {
			assert.Equal(t, b, w.Region)
			assert.Equal(t, "b", w.RegionName)
		}
	}
	assert.Greater(t, route.Distance, 1500.0)

	source.Put(regionB())
	_, err = g.AddRegion(context.Background(), "b")
	require.NoError(t, err)

	route, err = r.BuildRoute(context.Background(), start, finish, car())
	require.NoError(t, err)
	assert.False(t, route.HasWarning(datastructure.WarningRegionUnavailable))
	assert.True(t, usesEdge(route, b, 1))
	assert.True(t, route.HasWarning(datastructure.WarningUnpaved))
	for _, seg := range route.Segments {
		assert.False(t, seg.Leap)
	}
	assertRoundTrip(t, g, route, datastructure.Car)
}

func TestLongRouteRefinementMatchesNoLeaps(t *testing.T) {
	g, _, r := newWorld(t, westRegion(), midRegion(), eastRegion())
	start := datastructure.NewCoordinate(-7.0001, 110.0005)
	finish := datastructure.NewCoordinate(-7.0001, 112.9995)
	ctx := context.Background()

	truth, err := r.search(ctx, car(), worldgraph.NoLeaps, start, finish, nil)
	require.NoError(t, err)

	leap, err := r.search(ctx, car(), worldgraph.LeapsOnly, start, finish, nil)
	require.NoError(t, err)
	assert.InDelta(t, truth.route.Weight, leap.route.Weight, 1e-6)
	assert.ElementsMatch(t, []datastructure.RegionID{
		regionID(t, g, "west"), regionID(t, g, "mid"), regionID(t, g, "east"),
	}, leap.regions)

	route, err := r.BuildRoute(ctx, start, finish, car())
	require.NoError(t, err)
	assert.LessOrEqual(t, route.Weight, truth.route.Weight+1e-6)
	assert.InDelta(t, truth.route.Weight, route.Weight, 1e-6)
	for _, seg := range route.Segments {
		assert.False(t, seg.Leap)
	}
	// the motorway detour through m4 is faster
	assert.True(t, usesEdge(route, regionID(t, g, "mid"), 3))
	assertRoundTrip(t, g, route, datastructure.Car)
}

func TestPrecomputedLeapsKeepMidUnloaded(t *testing.T) {
	mid := midRegion()
	view, err := regiongraph.Build(0, mwm.NewRegionReader(mid))
	require.NoError(t, err)
	leaps, err := transition.ComputeLeaps(context.Background(), view, car())
	require.NoError(t, err)
	mid.Cross.SetLeapTable(car().Key().String(), leaps)

	g, _, r := newWorld(t, westRegion(), mid, eastRegion())
	midID := regionID(t, g, "mid")
	require.False(t, g.IsResident(midID))

	res, err := r.search(context.Background(), car(), worldgraph.LeapsOnly,
		datastructure.NewCoordinate(-7.0001, 110.0005), datastructure.NewCoordinate(-7.0001, 112.9995), nil)
	require.NoError(t, err)
	assert.False(t, g.IsResident(midID))

	leapsUsed := 0
	for _, seg := range res.route.Segments {
		if seg.Leap {
			leapsUsed++
			assert.Equal(t, midID, seg.Segment.Region)
			assert.Len(t, seg.Geometry, 2)
		}
	}
	assert.Equal(t, 1, leapsUsed)
	require.NoError(t, res.route.Validate())
}

type cancelWhenLoaded struct {
	*worldgraph.Session
	cancel func()
}

func (c cancelWhenLoaded) OutgoingEdges(v datastructure.JunctionKey) ([]worldgraph.Edge, error) {
	if len(c.LoadedRegions()) == 2 {
		c.cancel()
	}
	return c.Session.OutgoingEdges(v)
}

func TestCancelledSearchLeavesCacheUsable(t *testing.T) {
	g, _, r := newWorld(t, regionA(), regionB())
	start := datastructure.NewCoordinate(-7.0001, 110.0005)
	finish := datastructure.NewCoordinate(-7.0001, 110.0195)

	ctx, cancel := context.WithCancel(context.Background())
	sess, err := g.NewSession(ctx, car(), worldgraph.NoLeaps)
	require.NoError(t, err)
	from, err := sess.AttachStart(start)
	require.NoError(t, err)
	to, err := sess.AttachFinish(finish)
	require.NoError(t, err)
	require.Len(t, sess.LoadedRegions(), 2)

	_, err = Search(ctx, cancelWhenLoaded{Session: sess, cancel: cancel}, from, to)
	assert.ErrorIs(t, err, ErrCancelled)
	sess.Close()

	route, err := r.BuildRoute(context.Background(), start, finish, car())
	require.NoError(t, err)
	assertRoundTrip(t, g, route, datastructure.Car)

	stats := g.CacheStats()
	assert.Equal(t, uint64(2), stats.Loads)
	assert.Zero(t, stats.Failures)
}

func TestBuildRouteCancelled(t *testing.T) {
	_, _, r := newWorld(t, gridRegion())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.BuildRoute(ctx, datastructure.NewCoordinate(-7.0001, 110.0003),
		datastructure.NewCoordinate(-7.0021, 110.0021), car())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled))
}

/*
three regions ~1.1 km wide in a row, each a single road between its borders

	pa1 ------ pa2 | pc1 ------ pc2 | pb1 ------ pb2
*/
func rowRegion(name, west, east string, lon float64) *mwm.RegionData {
	data := &mwm.RegionData{
		Cross: mwm.CrossSection{Region: name, Bounds: datastructure.NewRect(-7.01, lon, -6.99, lon+0.01)},
		Junctions: []mwm.Junction{
			{ID: 1, Coordinate: datastructure.NewCoordinate(-7.0, lon)},
			{ID: 2, Coordinate: datastructure.NewCoordinate(-7.0, lon+0.01)},
		},
		Segments: []mwm.SegmentRecord{road(1, 1, 2, datastructure.RoadClassTertiary)},
	}
	if west != "" {
		data.Cross.Borders = append(data.Cross.Borders, mwm.BorderJunction{
			JunctionID: 1, MatchedRegion: west, MatchedJunctionID: 2, Coordinate: datastructure.NewCoordinate(-7.0, lon),
		})
	}
	if east != "" {
		data.Cross.Borders = append(data.Cross.Borders, mwm.BorderJunction{
			JunctionID: 2, MatchedRegion: east, MatchedJunctionID: 1, Coordinate: datastructure.NewCoordinate(-7.0, lon+0.01),
		})
	}
	return data
}

func TestMissingMiddleRegionFallsBackToLeaps(t *testing.T) {
	pc := rowRegion("pc", "pa", "pb", 110.01)
	g, source, r := newWorld(t, rowRegion("pa", "", "pc", 110.00), rowRegion("pb", "pc", "", 110.02))
	_, err := g.AddCrossSection(&pc.Cross)
	require.NoError(t, err)
	pcID := regionID(t, g, "pc")

	start := datastructure.NewCoordinate(-7.0001, 110.002)
	finish := datastructure.NewCoordinate(-7.0001, 110.028)

	route, err := r.BuildRoute(context.Background(), start, finish, car())
	require.NoError(t, err)
	require.NoError(t, route.Validate())
	require.True(t, route.HasWarning(datastructure.WarningRegionUnavailable))
	for _, w := range route.Warnings {
		if w.Kind == datastructure.WarningRegionUnavailable {
			assert.Equal(t, pcID, w.Region)
		}
	}
	leaps := 0
	for _, seg := range route.Segments {
		if seg.Leap {
			leaps++
			assert.Equal(t, pcID, seg.Segment.Region)
		}
	}
	assert.Equal(t, 1, leaps)

	source.Put(pc)
	_, err = g.AddRegion(context.Background(), "pc")
	require.NoError(t, err)

	route, err = r.BuildRoute(context.Background(), start, finish, car())
	require.NoError(t, err)
	assert.False(t, route.HasWarning(datastructure.WarningRegionUnavailable))
	assert.True(t, usesEdge(route, pcID, 1))
	assertRoundTrip(t, g, route, datastructure.Car)
}

func TestRemovedRegionIsUnavailable(t *testing.T) {
	g, _, r := newWorld(t, regionA(), regionB())
	require.NoError(t, g.RemoveRegion("b"))
	b := regionID(t, g, "b")

	route, err := r.BuildRoute(context.Background(),
		datastructure.NewCoordinate(-7.0001, 110.0005), datastructure.NewCoordinate(-7.0001, 110.0195), car())
	require.NoError(t, err)
	require.True(t, route.HasWarning(datastructure.WarningRegionUnavailable))
	for _, w := range route.Warnings {
		if w.Kind == datastructure.WarningRegionUnavailable {
			assert.Equal(t, b, w.Region)
			assert.Equal(t, "b", w.RegionName)
		}
	}
	assert.False(t, usesEdge(route, b, 1))
}

func TestNoTurnRestrictionForcesDetour(t *testing.T) {
	// cars coming down 2 -> 5 may not turn east towards 6
	r := gridRegion()
	r.Restrictions = []mwm.Restriction{
		{Kind: mwm.RestrictionNo, FromEdge: 9, Via: 5, ToEdge: 4, Mask: datastructure.CarMask},
	}
	g, _, router := newWorld(t, r)
	grid := regionID(t, g, "grid")
	start := datastructure.NewCoordinate(-7.0005, 110.00102)
	finish := datastructure.NewCoordinate(-7.00102, 110.0015)

	walk, err := router.BuildRoute(context.Background(), start, finish,
		vehicle.MustProfile(datastructure.Pedestrian, datastructure.RouteOptions{}))
	require.NoError(t, err)
	assert.True(t, usesEdge(walk, grid, 4))
	assert.Less(t, walk.Distance, 150.0)

	drive, err := router.BuildRoute(context.Background(), start, finish, car())
	require.NoError(t, err)
	assert.True(t, usesEdge(drive, grid, 2))
	assert.True(t, usesEdge(drive, grid, 11))
	for _, seg := range drive.Segments {
		if seg.Segment.Region == grid && seg.Segment.EdgeID == 4 {
			assert.False(t, seg.Segment.Forward, "entered e4 from 5")
		}
	}
	assert.Greater(t, drive.Distance, 300.0)
	assertRoundTrip(t, g, drive, datastructure.Car)

	for _, mode := range []worldgraph.Mode{worldgraph.NoLeaps, worldgraph.Joints, worldgraph.JointSingleMwm} {
		res, err := router.search(context.Background(), car(), mode, start, finish, nil)
		require.NoError(t, err)
		assert.InDelta(t, drive.Weight, res.route.Weight, 1e-6, "%s", mode)
	}
}

func TestOnlyTurnRestriction(t *testing.T) {
	// arriving at 5 from the west over e3, cars must go straight on e4
	r := gridRegion()
	r.Restrictions = []mwm.Restriction{
		{Kind: mwm.RestrictionOnly, FromEdge: 3, Via: 5, ToEdge: 4, Mask: datastructure.CarMask},
	}
	g, _, router := newWorld(t, r)
	grid := regionID(t, g, "grid")

	// from e3 near 4 to e10 near 5: a right turn at 5 is not allowed
	start := datastructure.NewCoordinate(-7.00102, 110.0002)
	finish := datastructure.NewCoordinate(-7.0015, 110.00102)
	drive, err := router.BuildRoute(context.Background(), start, finish, car())
	require.NoError(t, err)
	assertRoundTrip(t, g, drive, datastructure.Car)
	for i := 0; i+1 < len(drive.Segments); i++ {
		cur, next := drive.Segments[i].Segment, drive.Segments[i+1].Segment
		if cur.Region == grid && cur.EdgeID == 3 && cur.Forward && next.Region == grid {
			assert.Equal(t, uint32(4), next.EdgeID, "left e3 at 5 onto %d", next.EdgeID)
		}
	}
	assert.Greater(t, drive.Distance, 200.0)
}
