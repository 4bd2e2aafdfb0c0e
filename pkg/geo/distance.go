package geo

import "github.com/golang/geo/s2"

const earthRadiusM = 6371007.0

// HaversineMeters returns the great circle distance between two points in
// meters.
func HaversineMeters(latOne, longOne, latTwo, longTwo float64) float64 {
	a := s2.LatLngFromDegrees(latOne, longOne)
	b := s2.LatLngFromDegrees(latTwo, longTwo)
	return angleToMeters(a.Distance(b))
}
