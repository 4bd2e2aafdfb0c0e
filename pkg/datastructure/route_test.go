package datastructure

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouteValidate(t *testing.T) {
	a := NewJunctionKey(0, 1)
	b := NewJunctionKey(0, 2)
	c := NewJunctionKey(1, 7)

	r := Route{Segments: []RouteSegment{
		{Segment: NewSegment(0, 1, true), From: a, To: b},
		{Segment: NewSegment(1, 4, false), From: b, To: c},
	}}
	assert.Nil(t, r.Validate())

	r.Segments[1].From = c
	assert.Error(t, r.Validate())
}

func TestRouteWarningsDeduplicated(t *testing.T) {
	r := Route{}
	r.AddWarning(RouteWarning{Kind: WarningRegionUnavailable, Region: 3, RegionName: "b"})
	r.AddWarning(RouteWarning{Kind: WarningRegionUnavailable, Region: 3, RegionName: "b"})
	r.AddWarning(RouteWarning{Kind: WarningToll})
	assert.Len(t, r.Warnings, 2)
	assert.True(t, r.HasWarning(WarningToll))
	assert.False(t, r.HasWarning(WarningFerry))
}

func TestRouteGeometryAndPolyline(t *testing.T) {
	r := Route{Segments: []RouteSegment{
		{Geometry: []Coordinate{{-7.55, 110.8}, {-7.56, 110.81}}},
		{Geometry: []Coordinate{{-7.56, 110.81}, {-7.57, 110.83}}},
	}}
	geom := r.Geometry()
	assert.Len(t, geom, 3)

	line := CreatePolyline(geom)
	decoded, err := DecodePolyline(line)
	assert.Nil(t, err)
	assert.Len(t, decoded, 3)
	assert.InDelta(t, -7.57, decoded[2].Lat, 1e-5)
	assert.InDelta(t, 110.83, decoded[2].Lon, 1e-5)
}

func TestVehicleMask(t *testing.T) {
	assert.Equal(t, PedestrianMask, GetVehicleMaskBit(Pedestrian))
	assert.Equal(t, BicycleMask, GetVehicleMaskBit(Bicycle))
	assert.Equal(t, CarMask, GetVehicleMaskBit(Car))
	assert.Equal(t, TransitMask, GetVehicleMaskBit(Transit))

	m := PedestrianMask | BicycleMask
	assert.True(t, m.Has(Bicycle))
	assert.False(t, m.Has(Car))

	v, err := ParseVehicleType("Car")
	assert.Nil(t, err)
	assert.Equal(t, Car, v)
	_, err = ParseVehicleType("boat")
	assert.Error(t, err)
}

func TestRectContains(t *testing.T) {
	r := EmptyRect()
	assert.True(t, r.IsEmpty())
	r = r.Extend(NewCoordinate(1, 1)).Extend(NewCoordinate(2, 3))
	assert.True(t, r.Contains(NewCoordinate(1.5, 2)))
	assert.True(t, r.Contains(NewCoordinate(2, 3)))
	assert.False(t, r.Contains(NewCoordinate(0.9, 2)))
}
