package generator

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/lintang-b-s/mwmrouter/pkg/datastructure"
	"github.com/lintang-b-s/mwmrouter/pkg/geo"
	"github.com/lintang-b-s/mwmrouter/pkg/util"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"go.uber.org/zap"
)

type nodeType uint8

const (
	endNode nodeType = iota + 1
	betweenNode
	junctionNode
)

const logEvery = 50000

// Edge is one road edge between two way junctions, in osm ids.
type Edge struct {
	Way      osm.WayID
	From     osm.NodeID
	To       osm.NodeID
	Points   []datastructure.Coordinate // end points included
	Length   float64                    // meters
	Mask     datastructure.VehicleMask
	Class    datastructure.RoadClass
	Flags    datastructure.EdgeFlags
	MaxSpeed float64 // km/h, 0 when untagged
}

type Network struct {
	Coords       map[osm.NodeID]datastructure.Coordinate
	Edges        []Edge
	Restrictions []WayRestriction
}

// ScannerFunc opens a fresh scan over the same osm data. Parsing reads the
// data twice.
type ScannerFunc func(ctx context.Context) (osm.Scanner, error)

type pbfScanner struct {
	*osmpbf.Scanner
	f *os.File
}

func (s *pbfScanner) Close() error {
	err := s.Scanner.Close()
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// PBFFile scans the osm pbf file at path.
func PBFFile(path string) ScannerFunc {
	return func(ctx context.Context) (osm.Scanner, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		return &pbfScanner{Scanner: osmpbf.New(ctx, f, runtime.GOMAXPROCS(0)), f: f}, nil
	}
}

type OsmParser struct {
	wayNodes     map[osm.NodeID]nodeType
	coords       map[osm.NodeID]datastructure.Coordinate
	restrictions []WayRestriction
	logger       *zap.Logger

	missingNodes int
}

func NewOsmParser(logger *zap.Logger) *OsmParser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OsmParser{
		wayNodes: make(map[osm.NodeID]nodeType),
		coords:   make(map[osm.NodeID]datastructure.Coordinate),
		logger:   logger,
	}
}

// Parse reads the routable ways and turn restrictions. The first pass finds
// the nodes ways share and the restriction relations, the second reads node
// coordinates and splits ways into edges at those nodes. Nodes precede ways
// in osm files, so coordinates are known when a way is split.
func (p *OsmParser) Parse(ctx context.Context, open ScannerFunc) (*Network, error) {
	countWays := 0
	err := scan(ctx, open, func(o osm.Object) error {
		if rel, ok := o.(*osm.Relation); ok {
			p.addRestriction(rel)
			return nil
		}
		way, ok := o.(*osm.Way)
		if !ok || len(way.Nodes) < 2 {
			return nil
		}
		if _, ok := wayAttributes(way.Tags); !ok {
			return nil
		}
		countWays++
		if countWays%logEvery == 0 {
			p.logger.Info("reading openstreetmap ways", zap.Int("ways", countWays))
		}
		for i, n := range way.Nodes {
			if _, seen := p.wayNodes[n.ID]; seen {
				p.wayNodes[n.ID] = junctionNode
			} else if i == 0 || i == len(way.Nodes)-1 {
				p.wayNodes[n.ID] = endNode
			} else {
				p.wayNodes[n.ID] = betweenNode
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("first pass: %w", err)
	}

	network := &Network{Coords: make(map[osm.NodeID]datastructure.Coordinate), Restrictions: p.restrictions}
	countWays = 0
	err = scan(ctx, open, func(o osm.Object) error {
		switch obj := o.(type) {
		case *osm.Node:
			if _, ok := p.wayNodes[obj.ID]; ok {
				p.coords[obj.ID] = datastructure.NewCoordinate(obj.Lat, obj.Lon)
			}
		case *osm.Way:
			if len(obj.Nodes) < 2 {
				return nil
			}
			attr, ok := wayAttributes(obj.Tags)
			if !ok {
				return nil
			}
			attr.way = obj.ID
			countWays++
			if countWays%logEvery == 0 {
				p.logger.Info("processing openstreetmap ways", zap.Int("ways", countWays))
			}
			p.processWay(obj, attr, network)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("second pass: %w", err)
	}
	if p.missingNodes > 0 {
		p.logger.Warn("way nodes without coordinates, their edges were skipped", zap.Int("nodes", p.missingNodes))
	}
	p.logger.Info("openstreetmap parsed", zap.Int("ways", countWays), zap.Int("edges", len(network.Edges)),
		zap.Int("restrictions", len(network.Restrictions)))
	return network, nil
}

func scan(ctx context.Context, open ScannerFunc, fn func(osm.Object) error) error {
	scanner, err := open(ctx)
	if err != nil {
		return err
	}
	defer scanner.Close()
	for scanner.Scan() {
		if err := fn(scanner.Object()); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func (p *OsmParser) isJunctionNode(id osm.NodeID) bool {
	return p.wayNodes[id] == junctionNode
}

func (p *OsmParser) processWay(way *osm.Way, attr wayAttr, network *Network) {
	segment := make([]osm.NodeID, 0, len(way.Nodes))
	for i, n := range way.Nodes {
		segment = append(segment, n.ID)
		if i > 0 && (p.isJunctionNode(n.ID) || i == len(way.Nodes)-1) {
			p.processSegment(segment, attr, network)
			segment = []osm.NodeID{n.ID}
		}
	}
}

// processSegment splits a closed segment so that no edge starts and ends at
// the same junction.
func (p *OsmParser) processSegment(segment []osm.NodeID, attr wayAttr, network *Network) {
	switch {
	case len(segment) == 2 && segment[0] == segment[1]:
	case segment[0] == segment[len(segment)-1] && len(segment) > 2:
		mid := len(segment) / 2
		p.addEdge(segment[:mid+1], attr, network)
		p.addEdge(segment[mid:], attr, network)
	default:
		p.addEdge(segment, attr, network)
	}
}

func (p *OsmParser) addEdge(segment []osm.NodeID, attr wayAttr, network *Network) {
	if attr.mask == 0 {
		return
	}
	points := make([]datastructure.Coordinate, 0, len(segment))
	for _, id := range segment {
		c, ok := p.coords[id]
		if !ok {
			p.missingNodes++
			return
		}
		points = append(points, c)
	}
	from, to := segment[0], segment[len(segment)-1]
	if attr.reversed {
		points = util.ReverseG(points)
		from, to = to, from
	}
	network.Coords[from] = points[0]
	network.Coords[to] = points[len(points)-1]

	edge := Edge{
		Way:      attr.way,
		From:     from,
		To:       to,
		Points:   points,
		Length:   geo.PolylineLength(points),
		Mask:     attr.mask,
		Class:    attr.class,
		Flags:    attr.flags,
		MaxSpeed: attr.maxSpeed,
	}
	if !attr.flags.Has(datastructure.FlagOneway) {
		network.Edges = append(network.Edges, edge)
		return
	}
	// oneway binds vehicles, people on foot walk both ways
	walkers := datastructure.PedestrianMask | datastructure.TransitMask
	if drive := edge.Mask &^ walkers; drive != 0 {
		oneway := edge
		oneway.Mask = drive
		network.Edges = append(network.Edges, oneway)
	}
	if walk := edge.Mask & walkers; walk != 0 {
		twoWay := edge
		twoWay.Mask = walk
		twoWay.Flags &^= datastructure.FlagOneway
		network.Edges = append(network.Edges, twoWay)
	}
}

type wayAttr struct {
	way      osm.WayID
	class    datastructure.RoadClass
	mask     datastructure.VehicleMask
	flags    datastructure.EdgeFlags
	maxSpeed float64
	reversed bool
}

var (
	classMask = map[datastructure.RoadClass]datastructure.VehicleMask{
		datastructure.RoadClassMotorway:     datastructure.CarMask,
		datastructure.RoadClassTrunk:        datastructure.CarMask | datastructure.BicycleMask,
		datastructure.RoadClassPrimary:      datastructure.AllVehiclesMask,
		datastructure.RoadClassSecondary:    datastructure.AllVehiclesMask,
		datastructure.RoadClassTertiary:     datastructure.AllVehiclesMask,
		datastructure.RoadClassUnclassified: datastructure.AllVehiclesMask,
		datastructure.RoadClassResidential:  datastructure.AllVehiclesMask,
		datastructure.RoadClassService:      datastructure.AllVehiclesMask,
		datastructure.RoadClassLivingStreet: datastructure.AllVehiclesMask,
		datastructure.RoadClassTrack:        datastructure.AllVehiclesMask,
		datastructure.RoadClassPath:         datastructure.PedestrianMask | datastructure.BicycleMask | datastructure.TransitMask,
		datastructure.RoadClassCycleway:     datastructure.PedestrianMask | datastructure.BicycleMask | datastructure.TransitMask,
		datastructure.RoadClassFootway:      datastructure.PedestrianMask | datastructure.TransitMask,
		datastructure.RoadClassPedestrian:   datastructure.PedestrianMask | datastructure.TransitMask,
		datastructure.RoadClassSteps:        datastructure.PedestrianMask | datastructure.TransitMask,
		datastructure.RoadClassFerry:        datastructure.AllVehiclesMask,
	}

	unpavedSurface = map[string]struct{}{
		"unpaved": {}, "gravel": {}, "fine_gravel": {}, "dirt": {}, "earth": {}, "ground": {},
		"grass": {}, "mud": {}, "sand": {}, "compacted": {}, "pebblestone": {},
	}
)

func isRestricted(value string) bool {
	switch value {
	case "no", "restricted", "military", "emergency", "private", "permit":
		return true
	}
	return false
}

// applyAccess narrows or widens mask by the osm access tag of vehicle bits.
func applyAccess(mask datastructure.VehicleMask, value string, bits datastructure.VehicleMask) datastructure.VehicleMask {
	switch {
	case value == "":
		return mask
	case isRestricted(value):
		return mask &^ bits
	case value == "yes" || value == "designated" || value == "permissive":
		return mask | bits
	}
	return mask
}

// wayAttributes reads the routing attributes of a way. ok is false for ways
// that are not roads or ferries.
func wayAttributes(tags osm.Tags) (wayAttr, bool) {
	var attr wayAttr
	if tags.Find("route") == "ferry" {
		attr.class = datastructure.RoadClassFerry
		attr.flags |= datastructure.FlagFerry
	} else {
		class, ok := datastructure.RoadClassFromHighway(tags.Find("highway"))
		if !ok {
			return attr, false
		}
		attr.class = class
	}
	attr.mask = classMask[attr.class]

	walkers := datastructure.PedestrianMask | datastructure.TransitMask
	attr.mask = applyAccess(attr.mask, tags.Find("access"), datastructure.AllVehiclesMask)
	attr.mask = applyAccess(attr.mask, tags.Find("vehicle"), datastructure.CarMask|datastructure.BicycleMask)
	attr.mask = applyAccess(attr.mask, tags.Find("motor_vehicle"), datastructure.CarMask)
	attr.mask = applyAccess(attr.mask, tags.Find("motorcar"), datastructure.CarMask)
	attr.mask = applyAccess(attr.mask, tags.Find("bicycle"), datastructure.BicycleMask)
	attr.mask = applyAccess(attr.mask, tags.Find("foot"), walkers)

	if tags.Find("toll") == "yes" {
		attr.flags |= datastructure.FlagToll
	}
	surface := tags.Find("surface")
	if _, ok := unpavedSurface[surface]; ok || (attr.class == datastructure.RoadClassTrack && surface == "") {
		attr.flags |= datastructure.FlagUnpaved
	}

	oneway := tags.Find("oneway")
	switch {
	case oneway == "-1" || oneway == "reverse":
		attr.flags |= datastructure.FlagOneway
		attr.reversed = true
	case oneway == "yes" || oneway == "1" || oneway == "true":
		attr.flags |= datastructure.FlagOneway
	case oneway == "" && (tags.Find("junction") == "roundabout" || tags.Find("junction") == "circular"):
		attr.flags |= datastructure.FlagOneway
	}
	if isRestricted(tags.Find("vehicle:forward")) || isRestricted(tags.Find("motor_vehicle:forward")) {
		attr.flags |= datastructure.FlagOneway
		attr.reversed = true
	} else if isRestricted(tags.Find("vehicle:backward")) || isRestricted(tags.Find("motor_vehicle:backward")) {
		attr.flags |= datastructure.FlagOneway
	}

	attr.maxSpeed = parseMaxSpeed(tags.Find("maxspeed"))
	return attr, true
}

// parseMaxSpeed returns km/h, 0 for missing or unparsable values.
func parseMaxSpeed(value string) float64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	factor := 1.0
	switch {
	case strings.HasSuffix(value, "mph"):
		factor, value = 1.60934, strings.TrimSuffix(value, "mph")
	case strings.HasSuffix(value, "km/h"):
		value = strings.TrimSuffix(value, "km/h")
	case strings.HasSuffix(value, "knots"):
		factor, value = 1.852, strings.TrimSuffix(value, "knots")
	}
	speed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || speed <= 0 {
		return 0
	}
	return speed * factor
}
