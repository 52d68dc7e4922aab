package routing

import "snowline.sim/internal/sim/tuning"

type CandidateKind string

const (
	CandidateTrail CandidateKind = "TRAIL"
	CandidateLift  CandidateKind = "LIFT"
)

// Candidate is one scored next-segment option at a decision point.
type Candidate struct {
	Kind        CandidateKind
	StructureID string
	// EntryID is the snap point where the segment is boarded (trail start or
	// lift bottom); ExitID is where it deposits the skier.
	EntryID string
	ExitID  string

	Difficulty TrailDifficulty // trails only

	Direct     float64
	Downstream float64
	DeadEnd    bool
	Score      float64
}

// TransitFloor is the minimum willingness score for a trail relative to the
// skier's skill: skiers keep using easy runs as connectors to better terrain.
// A trail one step above skill uses the stretch floor; trails further above
// skill get no floor.
func TransitFloor(s SkillLevel, d TrailDifficulty, tune *tuning.Tuning) float64 {
	gap := Gap(s, d)
	switch {
	case gap >= 0:
		return tune.TransitFloorBase + float64(gap)*tune.TransitFloorGapBonus
	case gap == -1:
		return tune.TransitFloorStretch
	default:
		return 0
	}
}

// TrailScore combines direct preference, discounted downstream value and the
// transit floor. A dead-end trail scores exactly the dead-end score no matter
// how attractive its difficulty is.
func TrailScore(s SkillLevel, d TrailDifficulty, direct, downstream float64, deadEnd bool, tune *tuning.Tuning) float64 {
	if deadEnd {
		return tune.DeadEndScore
	}
	score := tune.DirectPreferenceWeight*direct + tune.DownstreamWeight*downstream*tune.DownstreamBonusMultiplier
	if floor := TransitFloor(s, d, tune); floor > score {
		score = floor
	}
	if tune.MinimumTrailScore > score {
		score = tune.MinimumTrailScore
	}
	return score
}

// LiftScore scores a lift by the terrain its top opens up. Variety shaping
// (new-lift bonus, repeat penalty) multiplies the base score afterwards.
func LiftScore(downstream float64, deadEnd bool, ridden bool, tune *tuning.Tuning) float64 {
	var score float64
	if deadEnd {
		score = tune.DeadEndScore
	} else {
		score = tune.DownstreamWeight * downstream * tune.DownstreamBonusMultiplier
		if tune.MinimumTrailScore > score {
			score = tune.MinimumTrailScore
		}
	}
	if ridden {
		return score * tune.LiftVarietyRepeatPenalty
	}
	return score * tune.LiftVarietyNewBonus
}
