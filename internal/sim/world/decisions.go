package world

import (
	"errors"
	"fmt"

	"snowline.sim/internal/protocol"
	"snowline.sim/internal/sim/resort"
	"snowline.sim/internal/sim/routing"
)

// systemDecisions routes every skier standing at a snap point: maintain the
// goal, gather candidates, apply the goal bonus, select, embark. A skier with
// zero candidates parks and retries next tick. Score collapse is fatal for
// the whole world; it cannot happen with a validated tuning snapshot.
func (w *World) systemDecisions(nowTick uint64) error {
	for _, id := range w.sortedAgentIDs() {
		s := w.agents[id]
		if s.State != StateAtPoint && s.State != StateParked {
			continue
		}
		if s.RunsDone >= s.RunsPlanned {
			w.despawn(s, nowTick)
			continue
		}

		r := routing.NewStream(w.cfg.Seed, s.Num, nowTick)
		w.maintainGoal(s, r)

		cands := w.candidatesAt(s)
		if len(cands) == 0 {
			s.State = StateParked
			s.GoalState = routing.GoalReplanning
			s.Goal = nil
			w.recordDecision(s, nowTick, protocol.DecisionView{
				AgentID: s.ID,
				PointID: s.PointID,
				Outcome: protocol.OutcomeNoViableRoute,
			})
			continue
		}

		if s.GoalState == routing.GoalEnRoute && s.Goal != nil {
			for i := range cands {
				if cands[i].StructureID == s.Goal.SuggestedID {
					cands[i].Score *= w.tune.GoalTrailBonus
				}
			}
		}

		idx, jerry, err := routing.Select(cands, w.tune.JerryChance, r)
		if err != nil {
			if errors.Is(err, routing.ErrScoreCollapse) {
				return fmt.Errorf("tick %d agent %s at %s: %w", nowTick, s.ID, s.PointID, err)
			}
			return err
		}
		chosen := cands[idx]
		w.recordDecision(s, nowTick, protocol.DecisionView{
			AgentID:    s.ID,
			PointID:    s.PointID,
			Outcome:    protocol.OutcomeSelected,
			ChosenID:   chosen.StructureID,
			ChosenKind: string(chosen.Kind),
			Jerry:      jerry,
			Candidates: candidateViews(cands),
		})
		w.embark(s, chosen)
	}
	return nil
}

// maintainGoal drops stale goals and plans a new one whenever the skier has
// none worth following. Stale goals are never acted on.
func (w *World) maintainGoal(s *Skier, r *routing.Stream) {
	if s.Goal != nil && s.Goal.Stale(w.graph, &w.tune) {
		s.Goal = nil
		s.GoalState = routing.GoalReplanning
	}
	if s.Goal != nil && s.GoalState == routing.GoalEnRoute {
		return
	}
	s.GoalState = routing.GoalPlanning
	if g, ok := w.planner.Plan(s.Skill, s.PointID, &w.tune, r); ok {
		s.Goal = &g
		s.GoalState = routing.GoalEnRoute
	} else {
		s.Goal = nil
		s.GoalState = routing.GoalNone
	}
}

// candidatesAt gathers the scored next-segment options for a skier's current
// snap point. What counts as a candidate depends on the point type: lift
// bottoms near a base or trail end, trail starts near a lift top, plus
// connector trails at trail ends.
func (w *World) candidatesAt(s *Skier) []routing.Candidate {
	p, ok := w.graph.Point(s.PointID)
	if !ok {
		return nil
	}
	var cands []routing.Candidate
	addLift := func(lb resort.SnapPoint) {
		if li, ok := w.lifts[lb.StructureID]; ok {
			cands = append(cands, w.liftCandidate(s, li))
		}
	}
	addTrail := func(ts resort.SnapPoint) {
		if ti, ok := w.trails[ts.StructureID]; ok {
			cands = append(cands, w.trailCandidate(s, ti))
		}
	}
	switch p.Type {
	case resort.BaseSpawn, resort.TrailEnd:
		for _, lb := range w.graph.NearestOfType(p.Pos, resort.LiftBottom, w.tune.LiftBottomSearchRadius) {
			addLift(lb)
		}
		for _, ts := range w.graph.NearestOfType(p.Pos, resort.TrailStart, w.tune.TrailStartSearchRadius) {
			addTrail(ts)
		}
	case resort.LiftTop:
		for _, ts := range w.graph.NearestOfType(p.Pos, resort.TrailStart, w.tune.TrailStartSearchRadius) {
			addTrail(ts)
		}
	case resort.LiftBottom:
		addLift(p)
	case resort.TrailStart:
		addTrail(p)
	}
	return cands
}

func (w *World) liftCandidate(s *Skier, li *LiftInfo) routing.Candidate {
	v, dead := w.prop.DownstreamThroughLift(s.Skill, li.StructureID, &w.tune)
	return routing.Candidate{
		Kind:        routing.CandidateLift,
		StructureID: li.StructureID,
		EntryID:     li.BottomID,
		ExitID:      li.TopID,
		Downstream:  v,
		DeadEnd:     dead,
		Score:       routing.LiftScore(v, dead, s.RiddenLifts[li.StructureID], &w.tune),
	}
}

func (w *World) trailCandidate(s *Skier, ti *TrailInfo) routing.Candidate {
	v, dead := w.prop.DownstreamValue(s.Skill, ti.EndID, &w.tune)
	direct := w.prefs.Weight(s.Skill, ti.Difficulty)
	return routing.Candidate{
		Kind:        routing.CandidateTrail,
		StructureID: ti.StructureID,
		EntryID:     ti.StartID,
		ExitID:      ti.EndID,
		Difficulty:  ti.Difficulty,
		Direct:      direct,
		Downstream:  v,
		DeadEnd:     dead,
		Score:       routing.TrailScore(s.Skill, ti.Difficulty, direct, v, dead, &w.tune),
	}
}

// embark puts the skier on the chosen segment. Boarding the goal's target
// trail resolves the goal.
func (w *World) embark(s *Skier, c routing.Candidate) {
	if s.Goal != nil && s.GoalState == routing.GoalEnRoute && c.EntryID == s.Goal.TargetPointID {
		s.GoalState = routing.GoalAtTarget
	}
	switch c.Kind {
	case routing.CandidateLift:
		li := w.lifts[c.StructureID]
		s.State = StateRidingLift
		s.RiddenLifts[c.StructureID] = true
		s.Seg = &Segment{
			StructureID: li.StructureID,
			Kind:        c.Kind,
			FromID:      li.BottomID,
			ToID:        li.TopID,
			From:        li.Bottom,
			To:          li.Top,
			Length:      li.Length,
		}
	case routing.CandidateTrail:
		ti := w.trails[c.StructureID]
		s.State = StateSkiing
		s.junctionSeen = map[string]bool{}
		s.Seg = &Segment{
			StructureID: ti.StructureID,
			Kind:        c.Kind,
			FromID:      ti.StartID,
			ToID:        ti.EndID,
			From:        ti.Start,
			To:          ti.End,
			Length:      ti.Length,
		}
	}
	s.Pos = s.Seg.From
	s.PointID = ""
}

func (w *World) recordDecision(s *Skier, nowTick uint64, d protocol.DecisionView) {
	s.lastTrace = &d
	s.lastDecisionTick = nowTick
	w.decisionsThisTick = append(w.decisionsThisTick, d)
}

func candidateViews(cands []routing.Candidate) []protocol.CandidateView {
	out := make([]protocol.CandidateView, len(cands))
	for i, c := range cands {
		cv := protocol.CandidateView{
			StructureID: c.StructureID,
			Kind:        string(c.Kind),
			Downstream:  c.Downstream,
			DeadEnd:     c.DeadEnd,
			Score:       c.Score,
		}
		if c.Kind == routing.CandidateTrail {
			cv.Difficulty = c.Difficulty.String()
			cv.Direct = c.Direct
		}
		out[i] = cv
	}
	return out
}
