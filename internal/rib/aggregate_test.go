package rib

import (
	"testing"

	"github.com/route-beacon/as-router/internal/addr"
)

func mustPrefix(t *testing.T, network, mask string) addr.Prefix {
	t.Helper()
	p, err := addr.FromDotted(network, mask)
	if err != nil {
		t.Fatalf("FromDotted(%s, %s): %v", network, mask, err)
	}
	return p
}

func TestAggregateMergesAdjacentHalves(t *testing.T) {
	tbl := NewTable()
	nh, _ := addr.ToInt("1.2.3.2")
	tbl.Add(Entry{Prefix: mustPrefix(t, "192.168.0.0", "255.255.255.0"), NextHop: nh, LocalPref: 100, Origin: IGP})
	tbl.Add(Entry{Prefix: mustPrefix(t, "192.168.1.0", "255.255.255.0"), NextHop: nh, LocalPref: 100, Origin: IGP})

	Aggregate(tbl)

	if tbl.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", tbl.Len())
	}
	got := tbl.Entries()[0]
	if got.Prefix.String() != "192.168.0.0/23" {
		t.Errorf("merged prefix = %s, want 192.168.0.0/23", got.Prefix)
	}
}

func TestAggregateCascades(t *testing.T) {
	tbl := NewTable()
	nh, _ := addr.ToInt("1.2.3.2")
	// Four /24s that should collapse all the way to a /22.
	for _, net := range []string{"10.0.0.0", "10.0.1.0", "10.0.2.0", "10.0.3.0"} {
		tbl.Add(Entry{Prefix: mustPrefix(t, net, "255.255.255.0"), NextHop: nh, LocalPref: 50, Origin: EGP})
	}

	Aggregate(tbl)

	if tbl.Len() != 1 {
		t.Fatalf("Len() = %d, want 1, entries=%v", tbl.Len(), tbl.Entries())
	}
	if got := tbl.Entries()[0].Prefix.String(); got != "10.0.0.0/22" {
		t.Errorf("merged prefix = %s, want 10.0.0.0/22", got)
	}
}

func TestAggregateLeavesDistinctAttributesAlone(t *testing.T) {
	tbl := NewTable()
	nh1, _ := addr.ToInt("1.2.3.2")
	nh2, _ := addr.ToInt("4.5.6.2")
	tbl.Add(Entry{Prefix: mustPrefix(t, "192.168.0.0", "255.255.255.0"), NextHop: nh1, LocalPref: 100, Origin: IGP})
	tbl.Add(Entry{Prefix: mustPrefix(t, "192.168.1.0", "255.255.255.0"), NextHop: nh2, LocalPref: 100, Origin: IGP})

	Aggregate(tbl)

	if tbl.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (different next_hop should not merge)", tbl.Len())
	}
}

func TestAggregateFixedPointNoSpuriousMerge(t *testing.T) {
	tbl := NewTable()
	nh, _ := addr.ToInt("1.2.3.2")
	// Non-adjacent halves (missing the complementary half) must not merge.
	tbl.Add(Entry{Prefix: mustPrefix(t, "192.168.0.0", "255.255.255.0"), NextHop: nh, LocalPref: 100, Origin: IGP})
	tbl.Add(Entry{Prefix: mustPrefix(t, "192.168.2.0", "255.255.255.0"), NextHop: nh, LocalPref: 100, Origin: IGP})

	Aggregate(tbl)

	if tbl.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (non-adjacent halves must not merge)", tbl.Len())
	}
}

// TestAggregateRejectsMisalignedAdjacentPair checks that two /24s a
// single /24-sized step apart, but not sharing a common /23
// parent, are not merged: 192.168.1.0/24 and 192.168.2.0/24 are
// adjacent by address arithmetic but 192.168.1.0/24's parent /23 is
// 192.168.0.0/23, not 192.168.2.0/23, so merging them would produce the
// non-canonical 192.168.1.0/23 (host bits set in the network field).
func TestAggregateRejectsMisalignedAdjacentPair(t *testing.T) {
	tbl := NewTable()
	nh, _ := addr.ToInt("1.2.3.2")
	tbl.Add(Entry{Prefix: mustPrefix(t, "192.168.1.0", "255.255.255.0"), NextHop: nh, LocalPref: 100, Origin: IGP})
	tbl.Add(Entry{Prefix: mustPrefix(t, "192.168.2.0", "255.255.255.0"), NextHop: nh, LocalPref: 100, Origin: IGP})

	Aggregate(tbl)

	if tbl.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (misaligned adjacent /24s must not merge)", tbl.Len())
	}
}
