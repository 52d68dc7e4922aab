package routing

import (
	"testing"

	"snowline.sim/internal/sim/resort"
	"snowline.sim/internal/sim/tuning"
)

type fakeTrails map[string]TrailDifficulty

func (f fakeTrails) TrailDifficulty(structureID string) (TrailDifficulty, bool) {
	d, ok := f[structureID]
	return d, ok
}

// twoHopResort builds a chain: BASE -> L1 -> green trail -> L2 -> black
// trail, plus a dead-end trail whose end has no lift nearby.
//
//	BASE(0,0) - L1_B(0,1) ... L1_T(0,30) - TG_S(1,30)
//	TG_E(0,2) - L2_B(1,2) ... L2_T(0,60) - TB_S(1,60)
//	TB_E(2,2), TD_S(2,30) near L1_T, TD_E(50,50) isolated
func twoHopResort(t *testing.T) (*resort.Graph, fakeTrails) {
	t.Helper()
	pts := []resort.SnapPoint{
		{ID: "BASE", Type: resort.BaseSpawn, Pos: resort.Vec3{X: 0, Z: 0}, StructureID: "LODGE"},
		{ID: "L1_B", Type: resort.LiftBottom, Pos: resort.Vec3{X: 0, Z: 1}, StructureID: "L1"},
		{ID: "L1_T", Type: resort.LiftTop, Pos: resort.Vec3{X: 0, Y: 40, Z: 30}, StructureID: "L1"},
		{ID: "TG_S", Type: resort.TrailStart, Pos: resort.Vec3{X: 1, Y: 40, Z: 30}, StructureID: "TG"},
		{ID: "TG_E", Type: resort.TrailEnd, Pos: resort.Vec3{X: 0, Z: 2}, StructureID: "TG"},
		{ID: "L2_B", Type: resort.LiftBottom, Pos: resort.Vec3{X: 1, Z: 2}, StructureID: "L2"},
		{ID: "L2_T", Type: resort.LiftTop, Pos: resort.Vec3{X: 0, Y: 80, Z: 60}, StructureID: "L2"},
		{ID: "TB_S", Type: resort.TrailStart, Pos: resort.Vec3{X: 1, Y: 80, Z: 60}, StructureID: "TB"},
		{ID: "TB_E", Type: resort.TrailEnd, Pos: resort.Vec3{X: 2, Z: 2}, StructureID: "TB"},
		{ID: "TD_S", Type: resort.TrailStart, Pos: resort.Vec3{X: 2, Y: 40, Z: 30}, StructureID: "TD"},
		{ID: "TD_E", Type: resort.TrailEnd, Pos: resort.Vec3{X: 50, Z: 50}, StructureID: "TD"},
	}
	g := resort.NewGraph()
	g.Rebuild(pts, 2)
	return g, fakeTrails{"TG": Green, "TB": Black, "TD": Blue}
}

func TestDownstreamValue_MonotonicInDepth(t *testing.T) {
	g, trails := twoHopResort(t)
	prop := NewPropagator(g, trails, DefaultPreferences())

	tune := tuning.Defaults()
	prefs := DefaultPreferences()

	var prev float64
	for depth := 1; depth <= 4; depth++ {
		tu := tune
		tu.DownstreamDepth = depth
		tu.Version = uint64(depth) // distinct cache keys per horizon
		v, dead := prop.DownstreamValue(Expert, "BASE", &tu)
		if dead {
			t.Fatalf("depth %d: unexpected dead end", depth)
		}
		if v < prev {
			t.Fatalf("depth %d: value %v < depth %d value %v", depth, v, depth-1, prev)
		}
		prev = v
	}

	// Depth 2 must see the black trail behind the second lift.
	tu := tune
	tu.DownstreamDepth = 2
	tu.Version = 99
	v, _ := prop.DownstreamValue(Expert, "BASE", &tu)
	want := prefs.Weight(Expert, Black) * tune.DepthDiscount2Hop
	if v != want {
		t.Fatalf("depth 2 expert value = %v, want %v", v, want)
	}
}

func TestDownstreamValue_HopOneOnly(t *testing.T) {
	g, trails := twoHopResort(t)
	prop := NewPropagator(g, trails, DefaultPreferences())
	prefs := DefaultPreferences()

	tu := tuning.Defaults()
	tu.DownstreamDepth = 1
	v, dead := prop.DownstreamValue(Beginner, "BASE", &tu)
	if dead {
		t.Fatalf("unexpected dead end")
	}
	// Hop 1 sees the green and the dead-end blue trail at L1's top.
	want := prefs.Weight(Beginner, Blue) * tu.DepthDiscount1Hop
	if w := prefs.Weight(Beginner, Green) * tu.DepthDiscount1Hop; w > want {
		want = w
	}
	if v != want {
		t.Fatalf("beginner hop-1 value = %v, want %v", v, want)
	}
}

func TestDownstreamValue_DeadEnd(t *testing.T) {
	g, trails := twoHopResort(t)
	prop := NewPropagator(g, trails, DefaultPreferences())

	tu := tuning.Defaults()
	_, dead := prop.DownstreamValue(Expert, "TD_E", &tu)
	if !dead {
		t.Fatalf("TD_E should be a dead end: no lift within the horizon")
	}
	// Dead end is signalled explicitly, independent of skill.
	_, dead = prop.DownstreamValue(Beginner, "TD_E", &tu)
	if !dead {
		t.Fatalf("dead end must not depend on skill")
	}
}

func TestDownstreamValue_CacheRespectsTuningVersion(t *testing.T) {
	g, trails := twoHopResort(t)
	prop := NewPropagator(g, trails, DefaultPreferences())
	prefs := DefaultPreferences()

	tu := tuning.Defaults()
	tu.DownstreamDepth = 2
	tu.Version = 1
	v1, _ := prop.DownstreamValue(Expert, "BASE", &tu)
	want1 := prefs.Weight(Expert, Black) * tu.DepthDiscount2Hop
	if v1 != want1 {
		t.Fatalf("v1 = %v, want %v", v1, want1)
	}

	// Change the schedule and bump the version: the cached value keyed by
	// version 1 must not be returned.
	tu2 := tu
	tu2.DepthDiscount2Hop = 0.1
	tu2.Version = 2
	prop.Invalidate()
	v2, _ := prop.DownstreamValue(Expert, "BASE", &tu2)
	// Hop 1 (green + blue at L1's top) may now beat the discounted black.
	want2 := prefs.Weight(Expert, Black) * 0.1
	for _, d := range []TrailDifficulty{Green, Blue} {
		if w := prefs.Weight(Expert, d) * tu2.DepthDiscount1Hop; w > want2 {
			want2 = w
		}
	}
	if v2 != want2 {
		t.Fatalf("after version bump value = %v, want %v", v2, want2)
	}
}

func TestDownstreamValue_CacheRespectsGraphGeneration(t *testing.T) {
	g, trails := twoHopResort(t)
	prop := NewPropagator(g, trails, DefaultPreferences())

	tu := tuning.Defaults()
	tu.DownstreamDepth = 2
	v1, dead := prop.DownstreamValue(Expert, "TB_E", &tu)
	if dead || v1 <= 0 {
		t.Fatalf("TB_E should reach L2 (v=%v dead=%v)", v1, dead)
	}

	// Remove L2, the only lift near TB_E; rebuild bumps the generation, so
	// the cached entry cannot be read back and TB_E becomes a dead end.
	var pts []resort.SnapPoint
	for _, id := range []string{"BASE", "L1_B", "L1_T", "TG_S", "TG_E", "TB_S", "TB_E", "TD_S", "TD_E"} {
		p, ok := g.Point(id)
		if !ok {
			t.Fatalf("fixture point %s missing", id)
		}
		pts = append(pts, p)
	}
	g.Rebuild(pts, 2)
	prop.Invalidate()

	_, dead = prop.DownstreamValue(Expert, "TB_E", &tu)
	if !dead {
		t.Fatalf("TB_E still sees a lift after L2 removal")
	}
}

func TestDownstreamThroughLift(t *testing.T) {
	g, trails := twoHopResort(t)
	prop := NewPropagator(g, trails, DefaultPreferences())
	prefs := DefaultPreferences()

	tu := tuning.Defaults()
	// Riding L1 first: hop 1 is the green and blue at its top, hop 2 the
	// black behind L2. The forced first lift never counts sibling lifts.
	v, dead := prop.DownstreamThroughLift(Expert, "L1", &tu)
	if dead {
		t.Fatalf("L1 reported as stranding lift")
	}
	want := prefs.Weight(Expert, Black) * tu.DepthDiscount2Hop
	if w := prefs.Weight(Expert, Blue) * tu.DepthDiscount1Hop; w > want {
		want = w
	}
	if v != want {
		t.Fatalf("through L1 = %v, want %v", v, want)
	}

	v, dead = prop.DownstreamThroughLift(Expert, "L2", &tu)
	if dead || v != prefs.Weight(Expert, Black)*tu.DepthDiscount1Hop {
		t.Fatalf("through L2 = %v (dead=%v)", v, dead)
	}
}

func TestDownstreamThroughLift_StrandingTop(t *testing.T) {
	pts := []resort.SnapPoint{
		{ID: "L9_B", Type: resort.LiftBottom, Pos: resort.Vec3{X: 0, Z: 0}, StructureID: "L9"},
		{ID: "L9_T", Type: resort.LiftTop, Pos: resort.Vec3{X: 0, Y: 50, Z: 90}, StructureID: "L9"},
	}
	g := resort.NewGraph()
	g.Rebuild(pts, 2)
	prop := NewPropagator(g, fakeTrails{}, DefaultPreferences())

	tu := tuning.Defaults()
	v, dead := prop.DownstreamThroughLift(Expert, "L9", &tu)
	if !dead || v != 0 {
		t.Fatalf("trail-less lift top = (%v, dead=%v), want (0, true)", v, dead)
	}
}

func TestReachableTrails_FirstLiftAttribution(t *testing.T) {
	g, trails := twoHopResort(t)
	prop := NewPropagator(g, trails, DefaultPreferences())

	tu := tuning.Defaults()
	tu.DownstreamDepth = 3
	found, sawLift := prop.ReachableTrails("BASE", &tu)
	if !sawLift {
		t.Fatalf("no lift seen from BASE")
	}
	byStructure := map[string]HopTrail{}
	for _, ht := range found {
		byStructure[ht.StructureID] = ht
	}
	if ht, ok := byStructure["TG"]; !ok || ht.Hop != 1 || ht.FirstLiftID != "L1" {
		t.Fatalf("TG = %+v, want hop 1 via L1", byStructure["TG"])
	}
	if ht, ok := byStructure["TB"]; !ok || ht.Hop != 2 || ht.FirstLiftID != "L1" {
		t.Fatalf("TB = %+v, want hop 2 via L1", byStructure["TB"])
	}
}
