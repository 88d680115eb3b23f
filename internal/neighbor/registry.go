// Package neighbor holds the fixed-at-startup registry of configured
// neighbors: their address, commercial relation, and transport handle.
package neighbor

import (
	"fmt"

	"github.com/route-beacon/as-router/internal/addr"
)

// Relation is the commercial classification of a neighbor, which governs
// export policy (spec.md §4.G).
type Relation string

const (
	Customer Relation = "customer"
	Peer     Relation = "peer"
	Provider Relation = "provider"
)

// ParseRelation accepts both the full spelling and the course-config
// abbreviations (cust/peer/prov) — see SPEC_FULL.md §9.
func ParseRelation(s string) (Relation, error) {
	switch s {
	case "customer", "cust":
		return Customer, nil
	case "peer":
		return Peer, nil
	case "provider", "prov":
		return Provider, nil
	default:
		return "", fmt.Errorf("neighbor: unknown relation %q", s)
	}
}

// Link is the transport handle used to reach a neighbor. The registry
// treats it as opaque (spec.md §4.B); only internal/transport and the
// reactor know its concrete shape.
type Link interface {
	Send(frame []byte) error
}

// Neighbor is one configured peer router.
type Neighbor struct {
	Address  addr.Address
	Relation Relation
	Link     Link
}

// Registry is the fixed set of neighbors a router was started with.
// Neighbors are never added or removed after construction (spec.md §3
// Lifecycles).
type Registry struct {
	byAddress map[addr.Address]*Neighbor
	ordered   []*Neighbor
}

// New builds a registry from the given neighbors. Order is preserved for
// iteration (export fan-out and startup handshakes).
func New(neighbors []*Neighbor) (*Registry, error) {
	r := &Registry{byAddress: make(map[addr.Address]*Neighbor, len(neighbors))}
	for _, n := range neighbors {
		if _, dup := r.byAddress[n.Address]; dup {
			return nil, fmt.Errorf("neighbor: duplicate neighbor address %s", n.Address)
		}
		r.byAddress[n.Address] = n
		r.ordered = append(r.ordered, n)
	}
	return r, nil
}

// Lookup finds a neighbor by its configured address. The second return
// value is false for an unknown source (spec.md §7 "Unknown source").
func (r *Registry) Lookup(a addr.Address) (*Neighbor, bool) {
	n, ok := r.byAddress[a]
	return n, ok
}

// All returns every neighbor in registration order.
func (r *Registry) All() []*Neighbor {
	return r.ordered
}

// Len reports how many neighbors are registered.
func (r *Registry) Len() int { return len(r.ordered) }
