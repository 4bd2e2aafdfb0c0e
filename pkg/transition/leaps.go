package transition

import (
	"context"

	"github.com/lintang-b-s/mwmrouter/pkg/datastructure"
	"github.com/lintang-b-s/mwmrouter/pkg/mwm"
	"github.com/lintang-b-s/mwmrouter/pkg/regiongraph"
	"github.com/lintang-b-s/mwmrouter/pkg/vehicle"
)

type label struct {
	weight   float64
	distance float64
	duration float64
	hops     int32
}

// ComputeLeaps runs one dijkstra per border junction of view and returns
// the exact in-region cost between every reachable ordered border pair.
func ComputeLeaps(ctx context.Context, view *regiongraph.View, p *vehicle.Profile) ([]mwm.Leap, error) {
	borders := view.Borders()
	leaps := make([]mwm.Leap, 0, len(borders)*len(borders))
	for _, source := range borders {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		labels := shortestFrom(view, p, source)
		for _, target := range borders {
			if target == source {
				continue
			}
			l, ok := labels[target]
			if !ok {
				continue
			}
			leaps = append(leaps, mwm.Leap{
				From:     source,
				To:       target,
				Weight:   l.weight,
				Distance: l.distance,
				Duration: l.duration,
			})
		}
	}
	return leaps, nil
}

func shortestFrom(view *regiongraph.View, p *vehicle.Profile, source uint32) map[uint32]label {
	settled := make(map[uint32]label)
	best := map[uint32]label{source: {}}

	pq := datastructure.NewMinHeap[uint32]()
	pq.Insert(datastructure.PriorityQueueNode[uint32]{Rank: 0, Item: source})

	for pq.Size() > 0 {
		node, _ := pq.ExtractMin()
		u := node.Item
		cur := best[u]
		settled[u] = cur

		for _, arc := range view.OutArcs(u) {
			if _, done := settled[arc.Head]; done {
				continue
			}
			if !view.CanTraverse(p, arc.Edge, arc.Forward) {
				continue
			}
			e := view.EdgeAt(arc.Edge)
			w, d := p.EdgeCost(e.Attr)
			next := label{
				weight:   cur.weight + w,
				distance: cur.distance + d,
				duration: cur.duration + p.Duration(e.Attr),
				hops:     cur.hops + 1,
			}
			old, seen := best[arc.Head]
			if seen && !better(next, old) {
				continue
			}
			best[arc.Head] = next
			pq.Insert(datastructure.PriorityQueueNode[uint32]{
				Rank: next.weight,
				Hops: next.hops,
				Dist: next.distance,
				Item: arc.Head,
			})
		}
	}
	return settled
}

func better(a, b label) bool {
	if a.weight != b.weight {
		return a.weight < b.weight
	}
	if a.hops != b.hops {
		return a.hops < b.hops
	}
	return a.distance < b.distance
}
