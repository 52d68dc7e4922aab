package routing

import (
	"testing"

	"snowline.sim/internal/sim/resort"
	"snowline.sim/internal/sim/tuning"
)

func TestPlanner_PicksReachableTarget(t *testing.T) {
	g, trails := twoHopResort(t)
	prop := NewPropagator(g, trails, DefaultPreferences())
	planner := NewPlanner(g, prop, DefaultPreferences())

	tu := tuning.Defaults()
	tu.DownstreamDepth = 3
	tu.Version = 1

	reachable := map[string]bool{"TG_S": true, "TB_S": true, "TD_S": true}
	for i := 0; i < 50; i++ {
		r := NewStream(13, 5, uint64(i))
		goal, ok := planner.Plan(Expert, "BASE", &tu, r)
		if !ok {
			t.Fatalf("no plan from BASE")
		}
		if !reachable[goal.TargetPointID] {
			t.Fatalf("target %s is not a reachable trail start", goal.TargetPointID)
		}
		if goal.SuggestedID != "L1" {
			t.Fatalf("suggested first lift = %s, want L1", goal.SuggestedID)
		}
		if goal.Generation != g.Generation() || goal.TuningVersion != tu.Version {
			t.Fatalf("goal not stamped with current generation/version")
		}
	}
}

func TestPlanner_BoostFavorsPreferredDifficulty(t *testing.T) {
	g, trails := twoHopResort(t)
	prop := NewPropagator(g, trails, DefaultPreferences())
	planner := NewPlanner(g, prop, DefaultPreferences())

	tu := tuning.Defaults()
	tu.DownstreamDepth = 3
	tu.PreferredDifficultyBoost = 50 // exaggerate to make the pull obvious

	hits := 0
	const trials = 2000
	for i := 0; i < trials; i++ {
		r := NewStream(17, 6, uint64(i))
		goal, ok := planner.Plan(Expert, "BASE", &tu, r)
		if !ok {
			t.Fatalf("no plan")
		}
		// Expert favorite is DOUBLE_BLACK; none here, so the boost never
		// fires and the black trail wins on weight alone most of the time.
		if goal.TargetPointID == "TB_S" {
			hits++
		}
	}
	if float64(hits)/trials < 0.5 {
		t.Fatalf("black trail chosen %d/%d times, expected majority", hits, trials)
	}
}

func TestPlanner_NoPlanWithoutLifts(t *testing.T) {
	g, trails := twoHopResort(t)
	prop := NewPropagator(g, trails, DefaultPreferences())
	planner := NewPlanner(g, prop, DefaultPreferences())

	tu := tuning.Defaults()
	r := NewStream(19, 7, 0)
	if _, ok := planner.Plan(Expert, "TD_E", &tu, r); ok {
		t.Fatalf("planned a goal from an isolated dead end")
	}
}

func TestGoal_Staleness(t *testing.T) {
	g, _ := twoHopResort(t)
	tu := tuning.Defaults()
	tu.Version = 3

	goal := Goal{
		TargetPointID: "TG_S",
		SuggestedID:   "L1",
		Generation:    g.Generation(),
		TuningVersion: tu.Version,
	}
	if goal.Stale(g, &tu) {
		t.Fatalf("fresh goal reported stale")
	}

	// Tuning version advance.
	tu2 := tu
	tu2.Version = 4
	if !goal.Stale(g, &tu2) {
		t.Fatalf("goal not stale after tuning version bump")
	}

	// Graph generation advance.
	var pts []resort.SnapPoint
	for _, p := range gAllPoints(t, g) {
		pts = append(pts, p)
	}
	g.Rebuild(pts, 2)
	if !goal.Stale(g, &tu) {
		t.Fatalf("goal not stale after graph rebuild")
	}

	// Target removed entirely.
	goal.Generation = g.Generation()
	var without []resort.SnapPoint
	for _, p := range pts {
		if p.StructureID != "TG" {
			without = append(without, p)
		}
	}
	g.Rebuild(without, 2)
	goal.Generation = g.Generation()
	if !goal.Stale(g, &tu) {
		t.Fatalf("goal not stale after target removal")
	}
}

func gAllPoints(t *testing.T, g *resort.Graph) []resort.SnapPoint {
	t.Helper()
	var out []resort.SnapPoint
	for _, id := range []string{"BASE", "L1_B", "L1_T", "TG_S", "TG_E", "L2_B", "L2_T", "TB_S", "TB_E", "TD_S", "TD_E"} {
		p, ok := g.Point(id)
		if !ok {
			t.Fatalf("fixture point %s missing", id)
		}
		out = append(out, p)
	}
	return out
}
