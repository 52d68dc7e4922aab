package world

import (
	"snowline.sim/internal/sim/resort"
	"snowline.sim/internal/sim/routing"
)

// systemJunctions gives mid-trail skiers a chance to bail onto a better
// trail passing within the detection radius. Each alternative is evaluated
// at most once per run; a successful switch teleports the skier onto the
// alternative at the closest point of approach.
func (w *World) systemJunctions(nowTick uint64) {
	for _, id := range w.sortedAgentIDs() {
		s := w.agents[id]
		if s.State != StateSkiing || s.Seg == nil {
			continue
		}
		// No switching right at the ends of a run.
		if s.Seg.Progress < 0.1 || s.Seg.Progress > 0.9 {
			continue
		}
		cur, ok := w.trails[s.Seg.StructureID]
		if !ok {
			continue
		}
		curVal := w.junctionValue(s.Skill, cur.EndID)

		var best *TrailInfo
		bestVal := 0.0
		bestT := 0.0
		for _, tid := range w.sortedTrailIDs() {
			if tid == cur.StructureID || s.junctionSeen[tid] {
				continue
			}
			alt := w.trails[tid]
			t, dist := closestOnSegmentXZ(s.Pos, alt.Start, alt.End)
			if dist > w.tune.JunctionDetectionRadius {
				continue
			}
			if v := w.junctionValue(s.Skill, alt.EndID); v > bestVal {
				best, bestVal, bestT = alt, v, t
			}
		}
		if best == nil {
			continue
		}
		s.junctionSeen[best.StructureID] = true

		r := routing.NewStream(w.cfg.Seed, s.Num, nowTick)
		if !routing.EvaluateSwitch(curVal, bestVal, &w.tune, r) {
			continue
		}
		// The abandoned trail counts as seen so the run cannot ping-pong back.
		s.junctionSeen[cur.StructureID] = true
		s.Seg = &Segment{
			StructureID: best.StructureID,
			Kind:        routing.CandidateTrail,
			FromID:      best.StartID,
			ToID:        best.EndID,
			From:        best.Start,
			To:          best.End,
			Length:      best.Length,
			Progress:    bestT,
		}
		s.Pos = resort.Lerp(best.Start, best.End, bestT)
	}
}

// junctionValue is the downstream value used in switch comparisons; a dead
// end counts as zero so nobody switches onto terrain that strands them.
func (w *World) junctionValue(skill routing.SkillLevel, endID string) float64 {
	v, dead := w.prop.DownstreamValue(skill, endID, &w.tune)
	if dead {
		return 0
	}
	return v
}

// closestOnSegmentXZ projects p onto segment ab in the horizontal plane,
// returning the clamped parameter along ab and the distance to it.
func closestOnSegmentXZ(p, a, b resort.Vec3) (float64, float64) {
	dx := b.X - a.X
	dz := b.Z - a.Z
	l2 := dx*dx + dz*dz
	if l2 == 0 {
		return 0, p.DistXZ(a)
	}
	t := ((p.X-a.X)*dx + (p.Z-a.Z)*dz) / l2
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	closest := resort.Vec3{X: a.X + dx*t, Z: a.Z + dz*t}
	return t, p.DistXZ(closest)
}
