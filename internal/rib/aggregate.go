package rib

import "sort"

// Aggregate runs the aggregation engine to a fixed point (spec.md §4.E):
// repeated full passes over the table, each merging adjacent,
// attribute-identical entries into their common super-prefix, until a
// pass performs no merges. Returns the total number of merges performed.
func Aggregate(t *Table) int {
	total := 0
	for {
		merged := aggregatePass(t)
		total += merged
		if merged == 0 {
			return total
		}
	}
}

// aggregatePass performs exactly one sort-and-scan pass and installs its
// result into t, returning the number of merges it performed.
func aggregatePass(t *Table) int {
	entries := append([]Entry(nil), t.Entries()...)
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Prefix.Network != entries[j].Prefix.Network {
			return entries[i].Prefix.Network < entries[j].Prefix.Network
		}
		return entries[i].Prefix.Length < entries[j].Prefix.Length
	})

	var out []Entry
	merges := 0
	for i := 0; i < len(entries); i++ {
		if i+1 < len(entries) && mergeable(entries[i], entries[i+1]) {
			m := merge(entries[i], entries[i+1])
			merges++
			i++
			// A merged super-prefix identical to an entry already held
			// collapses into it, as Table.Add does on ingest.
			dup := false
			for _, o := range out {
				if o.Prefix == m.Prefix && o.AttrEqual(m) {
					dup = true
					break
				}
			}
			if !dup {
				out = append(out, m)
			}
			continue
		}
		out = append(out, entries[i])
	}

	t.Set(out)
	return merges
}

// mergeable implements spec.md §4.E's three conditions. r1 and r2 are
// assumed sorted so r1.Prefix.Network <= r2.Prefix.Network.
func mergeable(r1, r2 Entry) bool {
	l := r1.Prefix.Length
	if l == 0 || l != r2.Prefix.Length {
		return false
	}
	if !r1.AttrEqual(r2) {
		return false
	}
	diff := uint32(r2.Prefix.Network) - uint32(r1.Prefix.Network)
	if diff != uint32(1)<<uint(32-l) {
		return false
	}
	// r1 must be the aligned lower half of the resulting /(l-1) block, or
	// two adjacent-but-misaligned /l blocks (e.g. .1.0/24 and .2.0/24)
	// would merge into a non-canonical super-prefix.
	return (uint32(r1.Prefix.Network)>>uint(32-l))&1 == 0
}

// merge replaces a mergeable pair with their common super-prefix. r1 is
// the lower half (its network becomes the super-prefix's network, which
// is equivalent to clearing the Lth bit).
func merge(r1, r2 Entry) Entry {
	out := r1
	out.Prefix.Length = r1.Prefix.Length - 1
	return out
}
