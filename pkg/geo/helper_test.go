package geo

import (
	"testing"

	"github.com/lintang-b-s/mwmrouter/pkg/datastructure"
	"github.com/stretchr/testify/assert"
)

func TestSimplify(t *testing.T) {
	lineCoords := []datastructure.Coordinate{
		{Lat: -7.565837, Lon: 110.831586},
		{Lat: -7.565950, Lon: 110.831982},
		{Lat: -7.566063, Lon: 110.832379},
	}

	simplified := Simplify(lineCoords, RouteSimplifyToleranceM)
	assert.Len(t, simplified, 2)

	bent := []datastructure.Coordinate{
		{Lat: -7.5650, Lon: 110.8300},
		{Lat: -7.5660, Lon: 110.8310},
		{Lat: -7.5650, Lon: 110.8320},
	}
	assert.Len(t, Simplify(bent, RouteSimplifyToleranceM), 3)
	// a loose tolerance flattens the bend
	assert.Len(t, Simplify(bent, 500), 2)
}

func TestHaversine(t *testing.T) {
	// one degree of latitude is ~111.2 km
	assert.InDelta(t, 111195, HaversineMeters(0, 0, 1, 0), 50)
	assert.InDelta(t, HaversineMeters(-7.0, 110.0, -7.1, 110.2), HaversineMeters(-7.1, 110.2, -7.0, 110.0), 1e-9)
	assert.Zero(t, HaversineMeters(-7.0, 110.0, -7.0, 110.0))
}
