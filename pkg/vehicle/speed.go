package vehicle

import "github.com/lintang-b-s/mwmrouter/pkg/datastructure"

const roadClassCount = int(datastructure.RoadClassFerry) + 1

type speedTable [roadClassCount]float64

// car speeds (km/h) per road class.
var carSpeeds = speedTable{
	datastructure.RoadClassUnknown:      30,
	datastructure.RoadClassMotorway:     100,
	datastructure.RoadClassTrunk:        70,
	datastructure.RoadClassPrimary:      65,
	datastructure.RoadClassSecondary:    60,
	datastructure.RoadClassTertiary:     50,
	datastructure.RoadClassUnclassified: 30,
	datastructure.RoadClassResidential:  30,
	datastructure.RoadClassService:      20,
	datastructure.RoadClassLivingStreet: 10,
	datastructure.RoadClassTrack:        10,
	datastructure.RoadClassFerry:        20,
}

var bicycleSpeeds = speedTable{
	datastructure.RoadClassUnknown:      10,
	datastructure.RoadClassTrunk:        3,
	datastructure.RoadClassPrimary:      5,
	datastructure.RoadClassSecondary:    15,
	datastructure.RoadClassTertiary:     15,
	datastructure.RoadClassUnclassified: 12,
	datastructure.RoadClassResidential:  8,
	datastructure.RoadClassService:      12,
	datastructure.RoadClassLivingStreet: 7,
	datastructure.RoadClassTrack:        8,
	datastructure.RoadClassPath:         6,
	datastructure.RoadClassCycleway:     15,
	datastructure.RoadClassFootway:      7,
	datastructure.RoadClassPedestrian:   5,
	datastructure.RoadClassSteps:        1,
	datastructure.RoadClassFerry:        10,
}

var pedestrianSpeeds = speedTable{
	datastructure.RoadClassUnknown:      4,
	datastructure.RoadClassTrunk:        1,
	datastructure.RoadClassPrimary:      2,
	datastructure.RoadClassSecondary:    3,
	datastructure.RoadClassTertiary:     4,
	datastructure.RoadClassUnclassified: 4.5,
	datastructure.RoadClassResidential:  4.5,
	datastructure.RoadClassService:      5,
	datastructure.RoadClassLivingStreet: 5,
	datastructure.RoadClassTrack:        5,
	datastructure.RoadClassPath:         5,
	datastructure.RoadClassCycleway:     4,
	datastructure.RoadClassFootway:      5,
	datastructure.RoadClassPedestrian:   5,
	datastructure.RoadClassSteps:        4.9,
	datastructure.RoadClassFerry:        5,
}

const (
	carMaxSpeedKMpH = 130.0

	carOffroadSpeedKMpH        = 10.0
	pedestrianOffroadSpeedKMpH = 3.0
	bicycleOffroadSpeedKMpH    = 3.0
)

func speedsFor(v datastructure.VehicleType) (speedTable, float64) {
	switch v {
	case datastructure.Car:
		return carSpeeds, carOffroadSpeedKMpH
	case datastructure.Bicycle:
		return bicycleSpeeds, bicycleOffroadSpeedKMpH
	default:
		// transit reuses the pedestrian model.
		return pedestrianSpeeds, pedestrianOffroadSpeedKMpH
	}
}
