package snap

import (
	"testing"

	"github.com/lintang-b-s/mwmrouter/pkg/datastructure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/*
two parallel streets ~220 m apart, q lies ~11 m south of street 1:

	2 ------------------------------
	1 ------------------------------
	               q
*/
func buildIndex() *Index {
	idx := NewIndex()
	idx.Insert(1, []datastructure.Coordinate{
		{Lat: -7.7956, Lon: 110.3695},
		{Lat: -7.7956, Lon: 110.3720},
		{Lat: -7.7956, Lon: 110.3745},
	})
	idx.Insert(2, []datastructure.Coordinate{
		{Lat: -7.7936, Lon: 110.3695},
		{Lat: -7.7936, Lon: 110.3745},
	})
	return idx
}

func TestNearestSortedByDistance(t *testing.T) {
	idx := buildIndex()
	q := datastructure.NewCoordinate(-7.7957, 110.3721)

	got := idx.Nearest(q, 500, 10, nil)
	require.Len(t, got, 2)
	assert.Equal(t, uint32(1), got[0].EdgeID)
	assert.Equal(t, uint32(2), got[1].EdgeID)
	assert.InDelta(t, 11, got[0].Projection.Distance, 1.5)
	assert.Less(t, got[0].Projection.Distance, got[1].Projection.Distance)
	assert.InDelta(t, -7.7956, got[0].Projection.Point.Lat, 1e-6)
}

func TestNearestRespectsRadius(t *testing.T) {
	idx := buildIndex()
	q := datastructure.NewCoordinate(-7.7957, 110.3721)

	got := idx.Nearest(q, 50, 10, nil)
	require.Len(t, got, 1)
	assert.Equal(t, uint32(1), got[0].EdgeID)

	far := datastructure.NewCoordinate(-7.85, 110.3721)
	assert.Empty(t, idx.Nearest(far, 500, 10, nil))
}

func TestNearestFilterAndLimit(t *testing.T) {
	idx := buildIndex()
	q := datastructure.NewCoordinate(-7.7957, 110.3721)

	got := idx.Nearest(q, 500, 10, func(id uint32) bool { return id != 1 })
	require.Len(t, got, 1)
	assert.Equal(t, uint32(2), got[0].EdgeID)

	got = idx.Nearest(q, 500, 1, nil)
	require.Len(t, got, 1)
	assert.Equal(t, uint32(1), got[0].EdgeID)
}

func TestLongEdgeFoundFromItsMiddle(t *testing.T) {
	idx := NewIndex()
	// ~5.5 km with no intermediate points
	idx.Insert(7, []datastructure.Coordinate{{Lat: -7.80, Lon: 110.30}, {Lat: -7.80, Lon: 110.35}})

	got := idx.Nearest(datastructure.NewCoordinate(-7.8001, 110.325), 100, 10, nil)
	require.Len(t, got, 1)
	assert.Equal(t, uint32(7), got[0].EdgeID)
	assert.InDelta(t, 0.5, got[0].Projection.Ratio(), 0.01)
	assert.Equal(t, 1, idx.Size())
}
