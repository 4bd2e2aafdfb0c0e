package generator

import (
	"strings"

	"github.com/lintang-b-s/mwmrouter/pkg/datastructure"
	"github.com/lintang-b-s/mwmrouter/pkg/mwm"
	"github.com/paulmach/osm"
)

// WayRestriction is an osm turn restriction relation, in osm ids.
type WayRestriction struct {
	Kind mwm.RestrictionKind
	From osm.WayID
	Via  osm.NodeID
	To   osm.WayID
	Mask datastructure.VehicleMask
}

// parseRestriction reads a type=restriction relation with one from way, one
// via node and one to way. Restrictions bind cars and bicycles unless the
// tag names a vehicle or an except lists one.
func parseRestriction(rel *osm.Relation) (WayRestriction, bool) {
	var r WayRestriction
	if rel.Tags.Find("type") != "restriction" {
		return r, false
	}
	r.Mask = datastructure.CarMask | datastructure.BicycleMask
	value := rel.Tags.Find("restriction")
	if value == "" {
		if v := rel.Tags.Find("restriction:motorcar"); v != "" {
			value, r.Mask = v, datastructure.CarMask
		} else if v := rel.Tags.Find("restriction:bicycle"); v != "" {
			value, r.Mask = v, datastructure.BicycleMask
		}
	}
	switch {
	case strings.HasPrefix(value, "no_"):
		r.Kind = mwm.RestrictionNo
	case strings.HasPrefix(value, "only_"):
		r.Kind = mwm.RestrictionOnly
	default:
		return r, false
	}
	for _, v := range strings.Split(rel.Tags.Find("except"), ";") {
		switch strings.TrimSpace(v) {
		case "motorcar", "motor_vehicle":
			r.Mask &^= datastructure.CarMask
		case "bicycle":
			r.Mask &^= datastructure.BicycleMask
		}
	}
	if r.Mask == 0 {
		return r, false
	}

	var from, via, to int
	for _, m := range rel.Members {
		switch {
		case m.Role == "from" && m.Type == osm.TypeWay:
			r.From = osm.WayID(m.Ref)
			from++
		case m.Role == "via" && m.Type == osm.TypeNode:
			r.Via = osm.NodeID(m.Ref)
			via++
		case m.Role == "to" && m.Type == osm.TypeWay:
			r.To = osm.WayID(m.Ref)
			to++
		case m.Role == "from" || m.Role == "via" || m.Role == "to":
			// via ways are not supported
			return r, false
		}
	}
	return r, from == 1 && via == 1 && to == 1
}

// addRestriction keeps a restriction whose via node lies on a road, and
// makes the node a junction so both ways are split there.
func (p *OsmParser) addRestriction(rel *osm.Relation) {
	r, ok := parseRestriction(rel)
	if !ok {
		return
	}
	if _, onRoad := p.wayNodes[r.Via]; !onRoad {
		return
	}
	p.wayNodes[r.Via] = junctionNode
	p.restrictions = append(p.restrictions, r)
}

type wayEnd struct {
	way  osm.WayID
	node osm.NodeID
}

type numberedEdge struct {
	id   uint32
	mask datastructure.VehicleMask
}

// restrictions maps the osm restrictions whose ways meet at the via node
// inside b to edge ids of b. A way side matching no edge or more than one,
// as with a via node in the middle of a way, leaves the restriction out.
func (b *regionBuilder) restrictions(all []WayRestriction, mapped []bool) []mwm.Restriction {
	ends := make(map[wayEnd][]numberedEdge)
	for k, e := range b.edges {
		ne := numberedEdge{id: uint32(k + 1), mask: e.Mask}
		ends[wayEnd{e.Way, e.From}] = append(ends[wayEnd{e.Way, e.From}], ne)
		ends[wayEnd{e.Way, e.To}] = append(ends[wayEnd{e.Way, e.To}], ne)
	}
	only := func(way osm.WayID, via osm.NodeID, mask datastructure.VehicleMask) (uint32, bool) {
		var found []uint32
		for _, ne := range ends[wayEnd{way, via}] {
			if ne.mask&mask != 0 {
				found = append(found, ne.id)
			}
		}
		if len(found) != 1 {
			return 0, false
		}
		return found[0], true
	}

	var out []mwm.Restriction
	for i, r := range all {
		via, ok := b.local[r.Via]
		if !ok {
			continue
		}
		from, ok := only(r.From, r.Via, r.Mask)
		if !ok {
			continue
		}
		to, ok := only(r.To, r.Via, r.Mask)
		if !ok {
			continue
		}
		out = append(out, mwm.Restriction{Kind: r.Kind, FromEdge: from, Via: via, ToEdge: to, Mask: r.Mask})
		mapped[i] = true
	}
	return out
}
