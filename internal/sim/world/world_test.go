package world

import (
	"math"
	"testing"

	"snowline.sim/internal/protocol"
	"snowline.sim/internal/sim/resort"
	"snowline.sim/internal/sim/routing"
	"snowline.sim/internal/sim/tuning"
)

func testWorld(t *testing.T, seed int64, mut func(*tuning.Tuning)) *World {
	t.Helper()
	tune := tuning.Defaults()
	if mut != nil {
		mut(&tune)
	}
	w, err := New(WorldConfig{ID: "test", Seed: seed}, tune, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return w
}

// seedFivePoint builds the smallest closed resort: base lodge, one lift, one
// green trail from the lift top back to the lift bottom.
func seedFivePoint(t *testing.T, w *World) {
	t.Helper()
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("seed layout: %v", err)
		}
	}
	must(w.applyPlaceBase(resort.Vec3{X: 0, Z: 0}))
	must(w.applyBuildLift(LiftBuild{
		ID: "L1", Name: "first chair",
		Bottom: resort.Vec3{X: 0, Z: 1},
		Top:    resort.Vec3{X: 0, Y: 100, Z: 100},
	}))
	must(w.applyBuildTrail(TrailBuild{
		ID: "T1", Name: "meadow", Difficulty: routing.Green,
		Start: resort.Vec3{X: 1, Y: 100, Z: 100},
		End:   resort.Vec3{X: 1, Z: 1},
	}))
	w.maybeRebuild()
}

func TestCandidateScores_FivePointLayout(t *testing.T) {
	w := testWorld(t, 1, nil)
	seedFivePoint(t, w)

	atTop := func(skill routing.SkillLevel) routing.Candidate {
		s := &Skier{ID: "X", Skill: skill, State: StateAtPoint, PointID: "L1_T", RiddenLifts: map[string]bool{}}
		cands := w.candidatesAt(s)
		if len(cands) != 1 {
			t.Fatalf("candidates at lift top = %d, want 1", len(cands))
		}
		return cands[0]
	}

	// Expert on the lone green: weighted sum 0.6*0.10 + 0.4*0.10*1.25 = 0.11
	// loses to the transit floor 0.15 + 3*0.05 = 0.30.
	c := atTop(routing.Expert)
	if c.StructureID != "T1" || c.DeadEnd {
		t.Fatalf("expert candidate = %+v", c)
	}
	if math.Abs(c.Score-0.30) > 1e-9 {
		t.Fatalf("expert green score = %v, want 0.30", c.Score)
	}

	// Beginner loves it: 0.6*0.90 + 0.4*0.90*1.25 = 0.99, floor irrelevant.
	c = atTop(routing.Beginner)
	if math.Abs(c.Score-0.99) > 1e-9 {
		t.Fatalf("beginner green score = %v, want 0.99", c.Score)
	}

	// At the base the only candidate is the lift, never the distant trail.
	s := &Skier{ID: "X", Skill: routing.Expert, State: StateAtPoint, PointID: "BASE", RiddenLifts: map[string]bool{}}
	cands := w.candidatesAt(s)
	if len(cands) != 1 || cands[0].Kind != routing.CandidateLift || cands[0].StructureID != "L1" {
		t.Fatalf("base candidates = %+v", cands)
	}
	if cands[0].DeadEnd {
		t.Fatalf("lift in closed loop flagged as dead end")
	}
}

func TestNoViableRoute_ParksAndRetries(t *testing.T) {
	w := testWorld(t, 3, func(tn *tuning.Tuning) {
		tn.SpawnEveryTicks = 1
		tn.MaxSkiers = 1
	})
	if err := w.applyPlaceBase(resort.Vec3{}); err != nil {
		t.Fatalf("place base: %v", err)
	}
	w.maybeRebuild()

	if _, _, err := w.StepOnce(); err != nil {
		t.Fatalf("step: %v", err)
	}
	if len(w.agents) != 1 {
		t.Fatalf("agents = %d, want 1", len(w.agents))
	}
	s := w.agents["S000001"]
	if s.State != StateParked {
		t.Fatalf("state = %s, want PARKED", s.State)
	}
	if s.Pos != (resort.Vec3{}) {
		t.Fatalf("parked skier moved to %+v", s.Pos)
	}
	if s.lastTrace == nil || s.lastTrace.Outcome != protocol.OutcomeNoViableRoute {
		t.Fatalf("trace = %+v", s.lastTrace)
	}

	// Still parked, but the decision system retried this tick.
	if _, _, err := w.StepOnce(); err != nil {
		t.Fatalf("step: %v", err)
	}
	if s.State != StateParked || s.lastDecisionTick != 1 {
		t.Fatalf("retry: state=%s lastDecisionTick=%d", s.State, s.lastDecisionTick)
	}
}

func TestStructureOps_RebuildOnChangeOnly(t *testing.T) {
	w := testWorld(t, 1, nil)
	seedFivePoint(t, w)
	gen := w.graph.Generation()

	// No registry change: the generation must hold across a tick.
	if _, _, err := w.StepOnce(); err != nil {
		t.Fatalf("step: %v", err)
	}
	if g := w.graph.Generation(); g != gen {
		t.Fatalf("generation moved without changes: %d -> %d", gen, g)
	}

	if err := w.applyBuildLift(LiftBuild{
		ID: "L2", Name: "second chair",
		Bottom: resort.Vec3{X: 2, Z: 1},
		Top:    resort.Vec3{X: 0, Y: 200, Z: 200},
	}); err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, _, err := w.StepOnce(); err != nil {
		t.Fatalf("step: %v", err)
	}
	if g := w.graph.Generation(); g != gen+1 {
		t.Fatalf("generation after build = %d, want %d", g, gen+1)
	}

	// Duplicate ids register nothing at all.
	err := w.applyBuildLift(LiftBuild{ID: "L2", Bottom: resort.Vec3{X: 5}, Top: resort.Vec3{X: 6, Y: 1}})
	if err == nil {
		t.Fatalf("duplicate lift accepted")
	}
	if _, ok := w.registry.Get("L2_B"); !ok {
		t.Fatalf("original L2 points lost after rejected duplicate")
	}
}

func TestTuningUpdate_BumpsVersionAndStalesGoals(t *testing.T) {
	w := testWorld(t, 1, nil)
	seedFivePoint(t, w)

	g := routing.Goal{
		TargetPointID: "T1_S",
		SuggestedID:   "L1",
		Generation:    w.graph.Generation(),
		TuningVersion: w.tune.Version,
	}
	if g.Stale(w.graph, &w.tune) {
		t.Fatalf("fresh goal reported stale")
	}

	next := w.tune
	next.JerryChance = 0.2
	if err := w.applyTuning(next); err != nil {
		t.Fatalf("apply tuning: %v", err)
	}
	if w.tune.Version != 2 {
		t.Fatalf("version = %d, want 2", w.tune.Version)
	}
	if !g.Stale(w.graph, &w.tune) {
		t.Fatalf("goal survived a tuning version bump")
	}

	bad := w.tune
	bad.MinimumTrailScore = 0
	if err := w.applyTuning(bad); err == nil {
		t.Fatalf("invalid tuning accepted")
	}
	if w.tune.Version != 2 {
		t.Fatalf("rejected tuning still bumped version to %d", w.tune.Version)
	}
}

func TestRemoveStructure_EvacuatesRiders(t *testing.T) {
	w := testWorld(t, 1, nil)
	seedFivePoint(t, w)

	li := w.lifts["L1"]
	s := &Skier{
		ID: "S000001", Name: "skier_1", Num: 1, Skill: routing.Advanced,
		State: StateRidingLift, RiddenLifts: map[string]bool{"L1": true},
		RunsPlanned: 3, junctionSeen: map[string]bool{},
		Seg: &Segment{
			StructureID: "L1", Kind: routing.CandidateLift,
			FromID: li.BottomID, ToID: li.TopID,
			From: li.Bottom, To: li.Top, Length: li.Length, Progress: 0.5,
		},
	}
	w.agents[s.ID] = s

	if err := w.applyRemove("L1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok := w.registry.Get("L1_B"); ok {
		t.Fatalf("lift points survived removal")
	}
	if s.State != StateAtPoint || s.PointID != "BASE" || s.Seg != nil {
		t.Fatalf("rider not evacuated: state=%s point=%s", s.State, s.PointID)
	}
	if s.GoalState != routing.GoalReplanning {
		t.Fatalf("goal state = %s, want REPLANNING", s.GoalState)
	}

	if err := w.applyRemove("L1"); err == nil {
		t.Fatalf("second removal of L1 accepted")
	}
}

type recordingIndex struct {
	ticks  []TickLogEntry
	starts []SessionEvent
	ends   []SessionEvent
}

func (r *recordingIndex) IndexTick(e TickLogEntry) { r.ticks = append(r.ticks, e) }

func (r *recordingIndex) IndexSessionStart(e SessionEvent) { r.starts = append(r.starts, e) }

func (r *recordingIndex) IndexSessionEnd(e SessionEvent) { r.ends = append(r.ends, e) }

func TestSkierLifecycle_SpawnRideSkiDespawn(t *testing.T) {
	w := testWorld(t, 11, func(tn *tuning.Tuning) {
		tn.SpawnEveryTicks = 1
		tn.MaxSkiers = 1
		tn.RunsPerSkierMin = 1
		tn.RunsPerSkierMax = 1
		// One tick per segment.
		tn.LiftSpeed = 500
		tn.TrailSpeed = 500
		tn.JerryChance = 0
	})
	seedFivePoint(t, w)
	ix := &recordingIndex{}
	w.SetRunIndex(ix)

	// tick 0: spawn + board lift, tick 1: arrive top + board trail,
	// tick 2: arrive bottom with the run done, despawn.
	for i := 0; i < 3; i++ {
		if _, _, err := w.StepOnce(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	if len(w.agents) != 0 {
		t.Fatalf("agents after lifecycle = %d, want 0", len(w.agents))
	}
	if len(ix.starts) != 1 || ix.starts[0].AgentID != "S000001" {
		t.Fatalf("session starts = %+v", ix.starts)
	}
	if len(ix.ends) != 1 || ix.ends[0].RunsDone != 1 {
		t.Fatalf("session ends = %+v", ix.ends)
	}
	if len(ix.ticks) != 3 || ix.ticks[2].Digest == "" {
		t.Fatalf("tick entries = %d", len(ix.ticks))
	}
	// The cap was freed, so the next tick admits a fresh skier.
	if _, _, err := w.StepOnce(); err != nil {
		t.Fatalf("step: %v", err)
	}
	if _, ok := w.agents["S000002"]; !ok {
		t.Fatalf("no respawn after cap freed")
	}
}

func TestDecisionTrace_CarriesCandidateBreakdown(t *testing.T) {
	w := testWorld(t, 5, func(tn *tuning.Tuning) {
		tn.SpawnEveryTicks = 1
		tn.MaxSkiers = 1
	})
	seedFivePoint(t, w)
	if _, _, err := w.StepOnce(); err != nil {
		t.Fatalf("step: %v", err)
	}

	req := traceReq{agentID: "S000001", resp: make(chan *protocol.TraceMsg, 1)}
	w.handleTraceReq(req)
	msg := <-req.resp
	if msg == nil {
		t.Fatalf("no trace for known agent")
	}
	if msg.Decision == nil || msg.Decision.Outcome != protocol.OutcomeSelected {
		t.Fatalf("trace decision = %+v", msg.Decision)
	}
	if msg.Decision.ChosenID != "L1" || len(msg.Decision.Candidates) != 1 {
		t.Fatalf("trace chose %s with %d candidates", msg.Decision.ChosenID, len(msg.Decision.Candidates))
	}

	req = traceReq{agentID: "nobody", resp: make(chan *protocol.TraceMsg, 1)}
	w.handleTraceReq(req)
	if msg := <-req.resp; msg != nil {
		t.Fatalf("trace for unknown agent = %+v", msg)
	}
}
