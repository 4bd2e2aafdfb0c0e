package vehicle

import (
	"testing"

	"github.com/lintang-b-s/mwmrouter/pkg/datastructure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsAllowed(t *testing.T) {
	mask := datastructure.PedestrianMask | datastructure.BicycleMask
	assert.True(t, IsAllowed(mask, datastructure.Pedestrian))
	assert.True(t, IsAllowed(mask, datastructure.Bicycle))
	assert.False(t, IsAllowed(mask, datastructure.Car))
	assert.False(t, IsAllowed(mask, datastructure.Transit))
}

func TestEdgeCostTimeAndDistance(t *testing.T) {
	edge := datastructure.EdgeAttributes{
		Length: 1000,
		Mask:   datastructure.CarMask,
		Class:  datastructure.RoadClassResidential,
	}

	fastest, err := NewProfile(datastructure.Car, datastructure.RouteOptions{})
	require.NoError(t, err)
	w, d := fastest.EdgeCost(edge)
	// 1 km at 30 km/h = 120 s
	assert.InDelta(t, 120, w, 1e-9)
	assert.Equal(t, 1000.0, d)

	shortest := MustProfile(datastructure.Car, datastructure.RouteOptions{OptimizeFor: datastructure.OptimizeForDistance})
	w, d = shortest.EdgeCost(edge)
	assert.Equal(t, 1000.0, w)
	assert.Equal(t, 1000.0, d)
	assert.InDelta(t, 120, shortest.Duration(edge), 1e-9)
}

func TestCarMaxSpeedTag(t *testing.T) {
	p := MustProfile(datastructure.Car, datastructure.RouteOptions{})
	edge := datastructure.EdgeAttributes{Length: 100, Mask: datastructure.CarMask, Class: datastructure.RoadClassMotorway, MaxSpeed: 200}
	assert.Equal(t, p.MaxSpeedKMpH(), p.SpeedKMpH(edge))

	edge.MaxSpeed = 40
	assert.Equal(t, 40.0, p.SpeedKMpH(edge))
}

func TestCanUseOptions(t *testing.T) {
	toll := datastructure.EdgeAttributes{Length: 10, Mask: datastructure.CarMask, Class: datastructure.RoadClassPrimary, Flags: datastructure.FlagToll}
	ferry := datastructure.EdgeAttributes{Length: 10, Mask: datastructure.AllVehiclesMask, Class: datastructure.RoadClassFerry, Flags: datastructure.FlagFerry}

	plain := MustProfile(datastructure.Car, datastructure.RouteOptions{})
	assert.True(t, plain.CanUse(toll))
	assert.True(t, plain.CanUse(ferry))

	avoid := MustProfile(datastructure.Car, datastructure.RouteOptions{AvoidTolls: true, AvoidFerries: true})
	assert.False(t, avoid.CanUse(toll))
	assert.False(t, avoid.CanUse(ferry))
	assert.True(t, avoid.Relaxed().CanUse(toll))
	assert.True(t, avoid.Relaxed().Key().IsDefault())
	assert.False(t, avoid.Key().IsDefault())
}

func TestPedestrianMotorwayNotUsable(t *testing.T) {
	p := MustProfile(datastructure.Pedestrian, datastructure.RouteOptions{})
	motorway := datastructure.EdgeAttributes{Length: 10, Mask: datastructure.AllVehiclesMask, Class: datastructure.RoadClassMotorway}
	assert.False(t, p.CanUse(motorway))
}

func TestTransitUsesPedestrianSpeeds(t *testing.T) {
	ped := MustProfile(datastructure.Pedestrian, datastructure.RouteOptions{})
	transit := MustProfile(datastructure.Transit, datastructure.RouteOptions{})
	edge := datastructure.EdgeAttributes{Length: 500, Mask: datastructure.AllVehiclesMask, Class: datastructure.RoadClassFootway}
	assert.Equal(t, ped.Duration(edge), transit.Duration(edge))
	assert.Equal(t, ped.MaxSpeedKMpH(), transit.MaxSpeedKMpH())
}

func TestHeuristicIsLowerBound(t *testing.T) {
	for _, v := range datastructure.AllVehicleTypes() {
		p := MustProfile(v, datastructure.RouteOptions{})
		for class := datastructure.RoadClassUnknown; class <= datastructure.RoadClassFerry; class++ {
			edge := datastructure.EdgeAttributes{Length: 1000, Mask: datastructure.AllVehiclesMask, Class: class}
			if !p.CanUse(edge) {
				continue
			}
			w, _ := p.EdgeCost(edge)
			assert.LessOrEqual(t, p.HeuristicWeight(1000), w+1e-9, "vehicle %s class %d", v, class)
		}
		offroad, _ := p.OffroadCost(1000)
		assert.LessOrEqual(t, p.HeuristicWeight(1000), offroad+1e-9)
	}
}

func TestInvalidVehicle(t *testing.T) {
	_, err := NewProfile(datastructure.VehicleType(9), datastructure.RouteOptions{})
	assert.Error(t, err)
}
