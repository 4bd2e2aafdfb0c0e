package vehicle

import (
	"fmt"

	"github.com/lintang-b-s/mwmrouter/pkg/datastructure"
)

// IsAllowed is the legality test every edge goes through before its cost is
// looked at.
func IsAllowed(edgeMask datastructure.VehicleMask, v datastructure.VehicleType) bool {
	return edgeMask&datastructure.GetVehicleMaskBit(v) != 0
}

// ProfileKey identifies everything that changes edge legality or weight.
// Leap tables are cached per key.
type ProfileKey struct {
	Vehicle      datastructure.VehicleType
	OptimizeFor  datastructure.OptimizeFor
	AvoidTolls   bool
	AvoidFerries bool
}

func (k ProfileKey) String() string {
	s := fmt.Sprintf("%s/%s", k.Vehicle, k.OptimizeFor)
	if k.AvoidTolls {
		s += "/notoll"
	}
	if k.AvoidFerries {
		s += "/noferry"
	}
	return s
}

// IsDefault reports whether the key has no avoid options. Only default keys
// get precomputed leaps.
func (k ProfileKey) IsDefault() bool {
	return !k.AvoidTolls && !k.AvoidFerries
}

// Profile is the legality and cost model of one vehicle type under one set of
// route options.
type Profile struct {
	key          ProfileKey
	speeds       speedTable
	maxSpeed     float64 // km/h, upper bound of every edge speed
	offroadSpeed float64 // km/h
}

func NewProfile(v datastructure.VehicleType, opts datastructure.RouteOptions) (*Profile, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("invalid vehicle type %d", v)
	}
	speeds, offroad := speedsFor(v)
	maxSpeed := 0.0
	for _, s := range speeds {
		maxSpeed = max(maxSpeed, s)
	}
	if v == datastructure.Car {
		maxSpeed = carMaxSpeedKMpH
	}
	return &Profile{
		key: ProfileKey{
			Vehicle:      v,
			OptimizeFor:  opts.OptimizeFor,
			AvoidTolls:   opts.AvoidTolls,
			AvoidFerries: opts.AvoidFerries,
		},
		speeds:       speeds,
		maxSpeed:     maxSpeed,
		offroadSpeed: offroad,
	}, nil
}

// MustProfile is NewProfile for known good vehicle types.
func MustProfile(v datastructure.VehicleType, opts datastructure.RouteOptions) *Profile {
	p, err := NewProfile(v, opts)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Profile) Key() ProfileKey {
	return p.key
}

func (p *Profile) Vehicle() datastructure.VehicleType {
	return p.key.Vehicle
}

func (p *Profile) Options() datastructure.RouteOptions {
	return datastructure.RouteOptions{
		AvoidTolls:   p.key.AvoidTolls,
		AvoidFerries: p.key.AvoidFerries,
		OptimizeFor:  p.key.OptimizeFor,
	}
}

// Relaxed returns the same profile without avoid options.
func (p *Profile) Relaxed() *Profile {
	r := *p
	r.key.AvoidTolls = false
	r.key.AvoidFerries = false
	return &r
}

func (p *Profile) MaxSpeedKMpH() float64 {
	return p.maxSpeed
}

// SpeedKMpH returns the travel speed on e, 0 when the class is not usable.
func (p *Profile) SpeedKMpH(e datastructure.EdgeAttributes) float64 {
	speed := 0.0
	if int(e.Class) < roadClassCount {
		speed = p.speeds[e.Class]
	}
	if speed <= 0 {
		return 0
	}
	if p.key.Vehicle == datastructure.Car && e.MaxSpeed > 0 {
		speed = e.MaxSpeed
	}
	return min(speed, p.maxSpeed)
}

// CanUse checks the mask, the options and the speed table.
func (p *Profile) CanUse(e datastructure.EdgeAttributes) bool {
	if !IsAllowed(e.Mask, p.key.Vehicle) {
		return false
	}
	if p.key.AvoidTolls && e.Flags.Has(datastructure.FlagToll) {
		return false
	}
	if p.key.AvoidFerries && e.Flags.Has(datastructure.FlagFerry) {
		return false
	}
	return p.SpeedKMpH(e) > 0
}

// Duration returns the traversal time of e in seconds.
func (p *Profile) Duration(e datastructure.EdgeAttributes) float64 {
	speed := p.SpeedKMpH(e)
	if speed <= 0 {
		return 0
	}
	return e.Length / kmphToMps(speed)
}

// EdgeCost returns the search weight and the physical length of e. Callers
// check CanUse first.
func (p *Profile) EdgeCost(e datastructure.EdgeAttributes) (weight float64, distance float64) {
	if p.key.OptimizeFor == datastructure.OptimizeForDistance {
		return e.Length, e.Length
	}
	return p.Duration(e), e.Length
}

// OffroadCost is the cost of walking or driving meters off the road network,
// used for the leg between a raw point and its projection.
func (p *Profile) OffroadCost(meters float64) (weight float64, duration float64) {
	duration = meters / kmphToMps(p.offroadSpeed)
	if p.key.OptimizeFor == datastructure.OptimizeForDistance {
		return meters, duration
	}
	return duration, duration
}

// HeuristicWeight is a lower bound of the weight needed to travel meters of
// straight line distance.
func (p *Profile) HeuristicWeight(meters float64) float64 {
	if p.key.OptimizeFor == datastructure.OptimizeForDistance {
		return meters
	}
	return meters / kmphToMps(p.maxSpeed)
}

// ApproximateDuration is the travel time of meters of straight line at the
// profile's top speed.
func (p *Profile) ApproximateDuration(meters float64) float64 {
	return meters / kmphToMps(p.maxSpeed)
}

func kmphToMps(kmph float64) float64 {
	return kmph * 1000.0 / 3600.0
}
