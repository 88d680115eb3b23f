package rib

import "github.com/route-beacon/as-router/internal/addr"

// Table is the ordered multiset of route entries (spec.md §4.D). It
// carries no uniqueness invariant beyond the aggregation fixed point;
// mutation is the exclusive business of the update/withdraw handlers and
// the aggregation engine in this package.
type Table struct {
	entries []Entry
}

// NewTable returns an empty forwarding table.
func NewTable() *Table {
	return &Table{}
}

// Add appends an entry to the table, unless an entry with the same
// prefix and attributes is already present. Collapsing exact duplicates
// here (rather than leaving them for the selector to sort out) keeps two
// candidates at the same prefix from ever being attribute- and
// next_hop-identical, which is what select.go's decision ladder assumes
// can't happen (spec.md §9).
func (t *Table) Add(e Entry) {
	for _, existing := range t.entries {
		if existing.Prefix == e.Prefix && existing.AttrEqual(e) {
			return
		}
	}
	t.entries = append(t.entries, e)
}

// Entries returns the table's current entries. Callers must not mutate
// the returned slice; it aliases the table's storage.
func (t *Table) Entries() []Entry {
	return t.entries
}

// Len reports the number of entries currently held.
func (t *Table) Len() int {
	return len(t.entries)
}

// Clear empties the table. Used by disaggregation (spec.md §4.E) before
// replaying history from scratch.
func (t *Table) Clear() {
	t.entries = nil
}

// RemoveMatching deletes every entry whose prefix equals p and whose
// next_hop equals nextHop, used by handle_withdraw (spec.md §4.G step 3).
// Returns the number of entries removed.
func (t *Table) RemoveMatching(p addr.Prefix, nextHop addr.Address) int {
	kept := t.entries[:0]
	removed := 0
	for _, e := range t.entries {
		if e.Prefix == p && e.NextHop == nextHop {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	t.entries = kept
	return removed
}

// Set replaces the table's contents wholesale. Used by the aggregation
// engine to install a fixed-point result.
func (t *Table) Set(entries []Entry) {
	t.entries = entries
}
