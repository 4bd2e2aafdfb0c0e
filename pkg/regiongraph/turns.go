package regiongraph

import (
	"fmt"
	"sort"

	"github.com/lintang-b-s/mwmrouter/pkg/datastructure"
	"github.com/lintang-b-s/mwmrouter/pkg/mwm"
	"github.com/lintang-b-s/mwmrouter/pkg/vehicle"
)

type turnRule struct {
	kind mwm.RestrictionKind
	to   int32
	mask datastructure.VehicleMask
}

// turnRules holds the restrictions of one via junction by arrival edge.
type turnRules map[int32][]turnRule

func (v *View) loadRestrictions(r mwm.RegionReader) error {
	return r.ListRestrictions(func(rs mwm.Restriction) error {
		from, err := v.restrictionEdge(rs, rs.FromEdge)
		if err != nil {
			return err
		}
		to, err := v.restrictionEdge(rs, rs.ToEdge)
		if err != nil {
			return err
		}
		if rs.Kind != mwm.RestrictionNo && rs.Kind != mwm.RestrictionOnly {
			return fmt.Errorf("%w: restriction at %d of %s has kind %d", mwm.ErrBadRegionFile, rs.Via, v.name, rs.Kind)
		}
		if v.turns == nil {
			v.turns = make(map[uint32]turnRules)
		}
		rules := v.turns[rs.Via]
		if rules == nil {
			rules = make(turnRules)
			v.turns[rs.Via] = rules
		}
		rules[from] = append(rules[from], turnRule{kind: rs.Kind, to: to, mask: rs.Mask})
		return nil
	})
}

func (v *View) restrictionEdge(rs mwm.Restriction, edgeID uint32) (int32, error) {
	idx, ok := v.edgeIdx[edgeID]
	if !ok {
		return 0, fmt.Errorf("%w: restriction at %d of %s names unknown edge %d", mwm.ErrBadRegionFile, rs.Via, v.name, edgeID)
	}
	if e := v.edges[idx]; e.From != rs.Via && e.To != rs.Via {
		return 0, fmt.Errorf("%w: restriction edge %d of %s does not touch junction %d", mwm.ErrBadRegionFile, edgeID, v.name, rs.Via)
	}
	return idx, nil
}

// HasRestrictions reports whether any turn restriction has its via at
// junction.
func (v *View) HasRestrictions(junction uint32) bool {
	_, ok := v.turns[junction]
	return ok
}

func (v *View) rules(p *vehicle.Profile, via uint32, from int32) []turnRule {
	all := v.turns[via][from]
	if len(all) == 0 {
		return nil
	}
	out := make([]turnRule, 0, len(all))
	for _, r := range all {
		if vehicle.IsAllowed(r.mask, p.Vehicle()) {
			out = append(out, r)
		}
	}
	return out
}

// Restricts reports whether arriving at via over the edge at index from
// limits the turns p may take there.
func (v *View) Restricts(p *vehicle.Profile, via uint32, from int32) bool {
	return len(v.rules(p, via, from)) > 0
}

// RestrictedFrom lists, in ascending order, the edge indexes whose arrival
// at via limits the turns of p.
func (v *View) RestrictedFrom(p *vehicle.Profile, via uint32) []int32 {
	var out []int32
	for from := range v.turns[via] {
		if v.Restricts(p, via, from) {
			out = append(out, from)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// TurnAllowed reports whether p may leave via over the edge at index to
// after arriving over the edge at index from. With any "only" rule the turn
// has to be one of them.
func (v *View) TurnAllowed(p *vehicle.Profile, via uint32, from, to int32) bool {
	rules := v.rules(p, via, from)
	only := false
	for _, r := range rules {
		switch r.kind {
		case mwm.RestrictionNo:
			if r.to == to {
				return false
			}
		case mwm.RestrictionOnly:
			if r.to == to {
				return true
			}
			only = true
		}
	}
	return !only
}
