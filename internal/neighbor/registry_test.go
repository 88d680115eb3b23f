package neighbor

import "testing"

func TestParseRelationAbbreviations(t *testing.T) {
	cases := map[string]Relation{
		"customer": Customer,
		"cust":     Customer,
		"peer":     Peer,
		"provider": Provider,
		"prov":     Provider,
	}
	for in, want := range cases {
		got, err := ParseRelation(in)
		if err != nil {
			t.Fatalf("ParseRelation(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ParseRelation(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := ParseRelation("frenemy"); err == nil {
		t.Error("expected error for unknown relation")
	}
}

func TestRegistryLookup(t *testing.T) {
	n1 := &Neighbor{Address: 1, Relation: Customer}
	n2 := &Neighbor{Address: 2, Relation: Peer}
	reg, err := New([]*Neighbor{n1, n2})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got, ok := reg.Lookup(1); !ok || got != n1 {
		t.Errorf("Lookup(1) = %v, %v", got, ok)
	}
	if _, ok := reg.Lookup(99); ok {
		t.Error("Lookup(99) should miss")
	}
	if reg.Len() != 2 {
		t.Errorf("Len() = %d, want 2", reg.Len())
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	n1 := &Neighbor{Address: 1, Relation: Customer}
	n2 := &Neighbor{Address: 1, Relation: Peer}
	if _, err := New([]*Neighbor{n1, n2}); err == nil {
		t.Error("expected error for duplicate neighbor address")
	}
}
