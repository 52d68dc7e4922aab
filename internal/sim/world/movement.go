package world

import (
	"snowline.sim/internal/sim/resort"
	"snowline.sim/internal/sim/routing"
)

// systemMovement advances every skier on a segment by its speed and handles
// arrivals. Positions are interpolated along the segment chord; zero-length
// segments complete in one tick.
func (w *World) systemMovement(nowTick uint64) {
	for _, id := range w.sortedAgentIDs() {
		s := w.agents[id]
		if s.Seg == nil {
			continue
		}
		speed := w.tune.TrailSpeed
		if s.Seg.Kind == routing.CandidateLift {
			speed = w.tune.LiftSpeed
		}
		if s.Seg.Length <= 0 {
			s.Seg.Progress = 1
		} else {
			s.Seg.Progress += speed / s.Seg.Length
		}
		if s.Seg.Progress < 1 {
			s.Pos = resort.Lerp(s.Seg.From, s.Seg.To, s.Seg.Progress)
			continue
		}
		w.arrive(s)
	}
}

func (w *World) arrive(s *Skier) {
	seg := s.Seg
	s.Seg = nil
	s.Pos = seg.To
	s.PointID = seg.ToID
	s.State = StateAtPoint

	switch seg.Kind {
	case routing.CandidateLift:
		if w.tune.ReplanAtLiftTop && s.Goal != nil && s.Goal.Stale(w.graph, &w.tune) {
			s.Goal = nil
			s.GoalState = routing.GoalReplanning
		}
	case routing.CandidateTrail:
		s.RunsDone++
		if s.GoalState == routing.GoalAtTarget {
			// Goal trail finished; plan the next outing fresh.
			s.Goal = nil
			s.GoalState = routing.GoalReplanning
		} else if w.tune.ReplanAfterEveryRun && s.Goal != nil {
			s.Goal = nil
			s.GoalState = routing.GoalReplanning
		}
	}
}
