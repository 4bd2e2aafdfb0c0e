package generator

import (
	"fmt"
	"sort"

	"github.com/lintang-b-s/mwmrouter/pkg/datastructure"
	"github.com/lintang-b-s/mwmrouter/pkg/mwm"
	"github.com/paulmach/osm"
	"go.uber.org/zap"
)

type RegionSpec struct {
	Name   string
	Bounds datastructure.Rect
}

type regionBuilder struct {
	spec  RegionSpec
	edges []Edge
	local map[osm.NodeID]uint32
}

// Partition assigns every edge to the first region whose bounds hold its
// start junction and numbers junctions and edges per region. A junction
// used by edges of two regions becomes a border junction in both, matched
// with its twin on the other side.
func Partition(n *Network, specs []RegionSpec, logger *zap.Logger) ([]*mwm.RegionData, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	builders := make([]*regionBuilder, len(specs))
	for i, s := range specs {
		builders[i] = &regionBuilder{spec: s, local: make(map[osm.NodeID]uint32)}
	}

	outside := 0
	for _, e := range n.Edges {
		if e.Mask == 0 {
			continue
		}
		owner := -1
		for i, s := range specs {
			if s.Bounds.Contains(n.Coords[e.From]) {
				owner = i
				break
			}
		}
		if owner < 0 {
			outside++
			continue
		}
		builders[owner].edges = append(builders[owner].edges, e)
	}
	if outside > 0 {
		logger.Info("edges outside every region skipped", zap.Int("edges", outside))
	}

	usedBy := make(map[osm.NodeID][]int)
	for i, b := range builders {
		nodes := make([]osm.NodeID, 0, len(b.edges)*2)
		for _, e := range b.edges {
			nodes = append(nodes, e.From, e.To)
		}
		sort.Slice(nodes, func(x, y int) bool { return nodes[x] < nodes[y] })
		for _, id := range nodes {
			if _, ok := b.local[id]; ok {
				continue
			}
			b.local[id] = uint32(len(b.local) + 1)
			usedBy[id] = append(usedBy[id], i)
		}
	}

	regions := make([]*mwm.RegionData, len(builders))
	for i, b := range builders {
		data := &mwm.RegionData{Cross: mwm.CrossSection{Region: b.spec.Name}}
		bounds := b.spec.Bounds
		for id, local := range b.local {
			c := n.Coords[id]
			data.Junctions = append(data.Junctions, mwm.Junction{ID: local, Coordinate: c})
			bounds = bounds.Extend(c)
		}
		data.Cross.Bounds = bounds
		for k, e := range b.edges {
			var inner []datastructure.Coordinate
			if len(e.Points) > 2 {
				inner = e.Points[1 : len(e.Points)-1]
			}
			data.Segments = append(data.Segments, mwm.SegmentRecord{
				EdgeID:       uint32(k + 1),
				From:         b.local[e.From],
				To:           b.local[e.To],
				LengthMeters: e.Length,
				Mask:         e.Mask,
				Class:        e.Class,
				Flags:        e.Flags,
				MaxSpeed:     e.MaxSpeed,
				Geometry:     inner,
			})
		}
		regions[i] = data
	}

	mapped := make([]bool, len(n.Restrictions))
	for i, b := range builders {
		regions[i].Restrictions = b.restrictions(n.Restrictions, mapped)
	}
	unmatched := 0
	for _, ok := range mapped {
		if !ok {
			unmatched++
		}
	}
	if unmatched > 0 {
		logger.Info("turn restrictions without matching edges skipped", zap.Int("restrictions", unmatched))
	}

	shared := 0
	for id, owners := range usedBy {
		if len(owners) < 2 {
			continue
		}
		if len(owners) > 2 {
			// a junction has one partner, the rest of the regions do not see it
			logger.Warn("junction shared by more than two regions", zap.Int64("node", int64(id)), zap.Int("regions", len(owners)))
		}
		a, b := builders[owners[0]], builders[owners[1]]
		c := n.Coords[id]
		regions[owners[0]].Cross.Borders = append(regions[owners[0]].Cross.Borders, mwm.BorderJunction{
			JunctionID: a.local[id], MatchedRegion: b.spec.Name, MatchedJunctionID: b.local[id], Coordinate: c,
		})
		regions[owners[1]].Cross.Borders = append(regions[owners[1]].Cross.Borders, mwm.BorderJunction{
			JunctionID: b.local[id], MatchedRegion: a.spec.Name, MatchedJunctionID: a.local[id], Coordinate: c,
		})
		shared++
	}

	for _, data := range regions {
		if pruned := data.Normalize(); pruned > 0 {
			logger.Info("edges without vehicles pruned", zap.String("region", data.Cross.Region), zap.Int("edges", pruned))
		}
		if err := data.Validate(); err != nil {
			return nil, fmt.Errorf("region %s: %w", data.Cross.Region, err)
		}
	}
	logger.Info("regions partitioned", zap.Int("regions", len(regions)), zap.Int("border_junctions", shared))
	return regions, nil
}
