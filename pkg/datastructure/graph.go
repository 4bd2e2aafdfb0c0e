package datastructure

import (
	"fmt"
	"math"
	"strings"
)

// RegionID is assigned by the region catalog, one per region file name.
type RegionID uint16

const (
	InvalidRegionID RegionID = math.MaxUint16
	// FakeRegionID owns every junction and segment allocated by a search.
	FakeRegionID RegionID = math.MaxUint16 - 1
)

// FakeIDStart is the first id of fake edges and fake junctions. Real local ids
// stay below it.
const FakeIDStart uint32 = 1 << 31

func IsFakeID(id uint32) bool {
	return id >= FakeIDStart
}

// JunctionKey identifies a junction inside one region. A TransitionKey on the
// other side of a border is the same pair type.
type JunctionKey struct {
	Region RegionID
	Local  uint32
}

type TransitionKey = JunctionKey

func NewJunctionKey(region RegionID, local uint32) JunctionKey {
	return JunctionKey{Region: region, Local: local}
}

func (j JunctionKey) IsFake() bool {
	return j.Region == FakeRegionID
}

func (j JunctionKey) Less(o JunctionKey) bool {
	if j.Region != o.Region {
		return j.Region < o.Region
	}
	return j.Local < o.Local
}

func (j JunctionKey) String() string {
	return fmt.Sprintf("%d:%d", j.Region, j.Local)
}

// Segment is a directed traversal of one edge. Forward goes from the edge's
// from junction to its to junction.
type Segment struct {
	Region  RegionID `json:"region"`
	EdgeID  uint32   `json:"edge_id"`
	Forward bool     `json:"forward"`
}

func NewSegment(region RegionID, edgeID uint32, forward bool) Segment {
	return Segment{Region: region, EdgeID: edgeID, Forward: forward}
}

func (s Segment) IsFake() bool {
	return s.Region == FakeRegionID || IsFakeID(s.EdgeID)
}

func (s Segment) Reversed() Segment {
	s.Forward = !s.Forward
	return s
}

func (s Segment) Less(o Segment) bool {
	if s.Region != o.Region {
		return s.Region < o.Region
	}
	if s.EdgeID != o.EdgeID {
		return s.EdgeID < o.EdgeID
	}
	return !s.Forward && o.Forward
}

func (s Segment) String() string {
	dir := "+"
	if !s.Forward {
		dir = "-"
	}
	return fmt.Sprintf("%d:%d%s", s.Region, s.EdgeID, dir)
}

type VehicleType uint8

const (
	Pedestrian VehicleType = iota
	Bicycle
	Car
	Transit
	vehicleTypeCount
)

var vehicleNames = [...]string{"pedestrian", "bicycle", "car", "transit"}

func (v VehicleType) String() string {
	if int(v) < len(vehicleNames) {
		return vehicleNames[v]
	}
	return "unknown"
}

func (v VehicleType) Valid() bool {
	return v < vehicleTypeCount
}

func ParseVehicleType(s string) (VehicleType, error) {
	for i, name := range vehicleNames {
		if strings.EqualFold(s, name) {
			return VehicleType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown vehicle type %q", s)
}

func AllVehicleTypes() []VehicleType {
	return []VehicleType{Pedestrian, Bicycle, Car, Transit}
}

// VehicleMask has one bit per vehicle type allowed on an edge.
type VehicleMask uint8

const (
	PedestrianMask VehicleMask = 1
	BicycleMask    VehicleMask = 2
	CarMask        VehicleMask = 4
	TransitMask    VehicleMask = 8

	AllVehiclesMask = PedestrianMask | BicycleMask | CarMask | TransitMask
)

func GetVehicleMaskBit(v VehicleType) VehicleMask {
	return VehicleMask(1) << v
}

func (m VehicleMask) Has(v VehicleType) bool {
	return m&GetVehicleMaskBit(v) != 0
}

type RoadClass uint8

const (
	RoadClassUnknown RoadClass = iota
	RoadClassMotorway
	RoadClassTrunk
	RoadClassPrimary
	RoadClassSecondary
	RoadClassTertiary
	RoadClassUnclassified
	RoadClassResidential
	RoadClassService
	RoadClassLivingStreet
	RoadClassTrack
	RoadClassPath
	RoadClassCycleway
	RoadClassFootway
	RoadClassPedestrian
	RoadClassSteps
	RoadClassFerry
)

var roadClassNames = map[string]RoadClass{
	"motorway":       RoadClassMotorway,
	"motorway_link":  RoadClassMotorway,
	"trunk":          RoadClassTrunk,
	"trunk_link":     RoadClassTrunk,
	"primary":        RoadClassPrimary,
	"primary_link":   RoadClassPrimary,
	"secondary":      RoadClassSecondary,
	"secondary_link": RoadClassSecondary,
	"tertiary":       RoadClassTertiary,
	"tertiary_link":  RoadClassTertiary,
	"unclassified":   RoadClassUnclassified,
	"residential":    RoadClassResidential,
	"service":        RoadClassService,
	"living_street":  RoadClassLivingStreet,
	"track":          RoadClassTrack,
	"path":           RoadClassPath,
	"bridleway":      RoadClassPath,
	"cycleway":       RoadClassCycleway,
	"footway":        RoadClassFootway,
	"pedestrian":     RoadClassPedestrian,
	"steps":          RoadClassSteps,
	"ferry":          RoadClassFerry,
}

// RoadClassFromHighway maps an osm highway tag value to a road class.
func RoadClassFromHighway(highway string) (RoadClass, bool) {
	rc, ok := roadClassNames[highway]
	return rc, ok
}

// EdgeFlags are per edge attributes that options and warnings look at.
type EdgeFlags uint8

const (
	FlagOneway EdgeFlags = 1 << iota
	FlagToll
	FlagFerry
	FlagUnpaved
)

func (f EdgeFlags) Has(flag EdgeFlags) bool {
	return f&flag != 0
}

// EdgeAttributes are the stored properties of one real edge that legality
// and cost depend on.
type EdgeAttributes struct {
	Length   float64 // meters
	Mask     VehicleMask
	Class    RoadClass
	Flags    EdgeFlags
	MaxSpeed float64 // km/h, 0 when unknown
}
