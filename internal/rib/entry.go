// Package rib implements the forwarding table: route entries, the
// aggregation engine, and the best-path selector (spec.md §4.D–F).
package rib

import (
	"fmt"

	"github.com/route-beacon/as-router/internal/addr"
)

// Origin is the BGP-style route origin, strictly ordered IGP > EGP > UNK
// (spec.md §3).
type Origin string

const (
	IGP Origin = "IGP"
	EGP Origin = "EGP"
	UNK Origin = "UNK"
)

// rank returns a larger value for a more-preferred origin so better-than
// comparisons read naturally.
func (o Origin) rank() int {
	switch o {
	case IGP:
		return 2
	case EGP:
		return 1
	default:
		return 0
	}
}

// Better reports whether o is strictly preferred over other.
func (o Origin) Better(other Origin) bool {
	return o.rank() > other.rank()
}

// ParseOrigin validates a wire origin string.
func ParseOrigin(s string) (Origin, error) {
	switch Origin(s) {
	case IGP, EGP, UNK:
		return Origin(s), nil
	default:
		return "", fmt.Errorf("rib: unknown origin %q", s)
	}
}

// Entry is one route in the forwarding table (spec.md §3 RouteEntry).
type Entry struct {
	Prefix      addr.Prefix
	NextHop     addr.Address
	LocalPref   int
	ASPath      []int
	SelfOrigin  bool
	Origin      Origin
}

// AttrEqual reports whether two entries are attribute-identical: same
// next_hop, local_pref, as_path, self_origin, and origin (spec.md §3).
// Prefix is deliberately excluded — that is what aggregation is merging
// across.
func (e Entry) AttrEqual(o Entry) bool {
	if e.NextHop != o.NextHop || e.LocalPref != o.LocalPref ||
		e.SelfOrigin != o.SelfOrigin || e.Origin != o.Origin {
		return false
	}
	if len(e.ASPath) != len(o.ASPath) {
		return false
	}
	for i := range e.ASPath {
		if e.ASPath[i] != o.ASPath[i] {
			return false
		}
	}
	return true
}

// CloneASPath returns a defensive copy of the AS path, so callers that
// prepend to it (export, §4.G) never mutate a stored entry's slice.
func (e Entry) CloneASPath() []int {
	out := make([]int, len(e.ASPath))
	copy(out, e.ASPath)
	return out
}
