package worldgraph

import (
	"errors"
	"fmt"

	"github.com/lintang-b-s/mwmrouter/pkg/datastructure"
)

// Mode selects which part of the world a search may see.
type Mode uint8

const (
	// Undefined is the zero value, searching with it is a caller bug.
	Undefined Mode = iota
	// SingleMwm: one region, border crossings are invisible.
	SingleMwm
	// NoLeaps: every edge of every reachable region, the exact baseline.
	NoLeaps
	// LeapsOnly: real edges in the start and finish regions, border to border
	// leaps everywhere else.
	LeapsOnly
	// Joints: NoLeaps with degree 2 chains collapsed between joints.
	Joints
	// JointSingleMwm: Joints restricted to one region.
	JointSingleMwm
)

var modeNames = [...]string{
	Undefined:      "Undefined",
	SingleMwm:      "SingleMwm",
	NoLeaps:        "NoLeaps",
	LeapsOnly:      "LeapsOnly",
	Joints:         "Joints",
	JointSingleMwm: "JointSingleMwm",
}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", m)
}

func (m Mode) Valid() bool {
	return m > Undefined && m <= JointSingleMwm
}

func (m Mode) singleRegion() bool {
	return m == SingleMwm || m == JointSingleMwm
}

func (m Mode) joints() bool {
	return m == Joints || m == JointSingleMwm
}

var (
	ErrInvalidMode         = errors.New("invalid world graph mode")
	ErrPointTooFarFromRoad = errors.New("point too far from road")
)

// RegionUnavailableError is returned when a region is registered but its
// road graph cannot be materialized, usually because the file is not on disk.
type RegionUnavailableError struct {
	Region datastructure.RegionID
	Name   string
	Err    error
}

func (e *RegionUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("region %s (%d) unavailable: %v", e.Name, e.Region, e.Err)
	}
	return fmt.Sprintf("region %s (%d) unavailable", e.Name, e.Region)
}

func (e *RegionUnavailableError) Unwrap() error {
	return e.Err
}

// Warning converts the error into the route warning shown to the user.
func (e *RegionUnavailableError) Warning() datastructure.RouteWarning {
	return datastructure.RouteWarning{
		Kind:       datastructure.WarningRegionUnavailable,
		Region:     e.Region,
		RegionName: e.Name,
		Message:    fmt.Sprintf("download region %s to complete this route", e.Name),
	}
}
