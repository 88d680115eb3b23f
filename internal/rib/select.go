package rib

import "github.com/route-beacon/as-router/internal/addr"

// Select performs longest-prefix match over the table for destination d,
// tie-broken by the BGP decision ladder (spec.md §4.F). ok is false if
// no entry matches ("no route").
func Select(t *Table, d addr.Address) (Entry, bool) {
	entries := t.Entries()

	bestLen := -1
	var candidates []Entry
	for _, e := range entries {
		if !e.Prefix.Contains(d) {
			continue
		}
		switch {
		case e.Prefix.Length > bestLen:
			bestLen = e.Prefix.Length
			candidates = []Entry{e}
		case e.Prefix.Length == bestLen:
			candidates = append(candidates, e)
		}
	}

	if len(candidates) == 0 {
		return Entry{}, false
	}
	if len(candidates) == 1 {
		return candidates[0], true
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if decide(c, best) {
			best = c
		}
	}
	return best, true
}

// decide reports whether candidate strictly beats incumbent under the
// decision ladder (spec.md §4.F step 3), applied in order:
//  1. higher local_pref
//  2. self_origin true beats false
//  3. shorter as_path
//  4. better origin (IGP > EGP > UNK)
//  5. lower next_hop
//
// Two distinct entries that survive aggregation (spec.md §8 property 2)
// cannot be attribute-identical at the same prefix, and Table.Add
// already collapses exact re-announcements on ingest, so some criterion
// must distinguish any pair reaching here; if none does and next_hop
// also ties, the entries are not actually distinct and we assert rather
// than return a null route (spec.md §9).
func decide(candidate, incumbent Entry) bool {
	if candidate.LocalPref != incumbent.LocalPref {
		return candidate.LocalPref > incumbent.LocalPref
	}
	if candidate.SelfOrigin != incumbent.SelfOrigin {
		return candidate.SelfOrigin
	}
	if len(candidate.ASPath) != len(incumbent.ASPath) {
		return len(candidate.ASPath) < len(incumbent.ASPath)
	}
	if candidate.Origin != incumbent.Origin {
		return candidate.Origin.Better(incumbent.Origin)
	}
	if candidate.NextHop != incumbent.NextHop {
		return candidate.NextHop < incumbent.NextHop
	}
	panic("rib: decision ladder found two indistinguishable entries at the same prefix")
}
