package geo

import (
	"github.com/lintang-b-s/mwmrouter/pkg/datastructure"
)

// RouteSimplifyToleranceM is the tolerance of simplified route polylines.
const RouteSimplifyToleranceM = 7.0

// https://cartography-playground.gitlab.io/playgrounds/douglas-peucker-algorithm/

// Simplify drops the points of a polyline that lie within toleranceM of the
// line between their kept neighbours (Douglas-Peucker). End points are
// always kept.
func Simplify(coords []datastructure.Coordinate, toleranceM float64) []datastructure.Coordinate {
	size := len(coords)
	if size < 3 {
		return coords
	}

	keep := make([]bool, size)
	keep[0], keep[size-1] = true, true

	type span struct{ left, right int }
	stack := []span{{0, size - 1}}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		farthest, maxDist := -1, toleranceM
		for i := s.left + 1; i < s.right; i++ {
			if d := PointLinePerpendicularDistance(coords[s.left], coords[s.right], coords[i]); d > maxDist {
				farthest, maxDist = i, d
			}
		}
		if farthest < 0 {
			continue
		}
		keep[farthest] = true
		stack = append(stack, span{s.left, farthest}, span{farthest, s.right})
	}

	out := make([]datastructure.Coordinate, 0, size)
	for i, k := range keep {
		if k {
			out = append(out, coords[i])
		}
	}
	return out
}
