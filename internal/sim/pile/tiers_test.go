package pile

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestClampTier(t *testing.T) {
	cases := []struct {
		in      int
		want    int
		clamped bool
	}{
		{in: -3, want: 1, clamped: true},
		{in: 0, want: 1, clamped: true},
		{in: 1, want: 1},
		{in: 8, want: 8},
		{in: 16, want: 16},
		{in: 17, want: 16, clamped: true},
		{in: 999, want: 16, clamped: true},
	}
	for _, tc := range cases {
		got, clamped := ClampTier(tc.in)
		if got != tc.want || clamped != tc.clamped {
			t.Fatalf("ClampTier(%d) = %d,%v want %d,%v", tc.in, got, clamped, tc.want, tc.clamped)
		}
	}
}

func TestResolveTiers_ClampsProbeWindow(t *testing.T) {
	cat := newMemCatalog()
	for h := 1; h <= 20; h++ {
		cat.add(fmt.Sprintf("charcoalpile-%d", h), uint16(100+h))
	}

	got := ResolveTiers(999, "charcoalpile", cat)
	if len(got) != 16 {
		t.Fatalf("expected 16 tiers, got %d: %v", len(got), got)
	}
	if _, ok := got[17]; ok {
		t.Fatalf("tier 17 must never be probed")
	}
	if len(cat.probes) != 16 {
		t.Fatalf("expected 16 probes, got %d", len(cat.probes))
	}
	if last := cat.probes[len(cat.probes)-1]; last != "charcoalpile-16" {
		t.Fatalf("last probe = %q", last)
	}
}

func TestResolveTiers_BelowWindowProbesFirstTier(t *testing.T) {
	cat := newMemCatalog("charcoalpile-1", "charcoalpile-2")
	got := ResolveTiers(0, "charcoalpile", cat)
	if diff := cmp.Diff(map[int]uint16{1: 1}, got); diff != "" {
		t.Fatalf("tiers mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"charcoalpile-1"}, cat.probes); diff != "" {
		t.Fatalf("probes mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveTiers_SkipsMissingAndAir(t *testing.T) {
	cat := newMemCatalog()
	cat.add("charcoalpile-3", 30)
	cat.add("charcoalpile-5", 50)
	cat.add("charcoalpile-6", Air)

	got := ResolveTiers(8, "game:charcoalpile", cat)
	want := map[int]uint16{3: 30, 5: 50}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("tiers mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveTiers_EmptyCatalog(t *testing.T) {
	got := ResolveTiers(8, "charcoalpile", newMemCatalog("stone"))
	if len(got) != 0 {
		t.Fatalf("expected empty map, got %v", got)
	}
	if got := ResolveTiers(8, "charcoalpile", nil); got == nil || len(got) != 0 {
		t.Fatalf("nil lookup should give an empty map, got %v", got)
	}
}
