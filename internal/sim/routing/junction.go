package routing

import "snowline.sim/internal/sim/tuning"

// EvaluateSwitch decides whether a mid-trail skier abandons the current
// trail for a visible alternative. Checked in priority order, first match
// wins; the caller guarantees at most one evaluation per junction encounter
// per agent to avoid oscillation.
func EvaluateSwitch(currentValue, altValue float64, tune *tuning.Tuning, r *Stream) bool {
	delta := altValue - currentValue
	switch {
	case delta >= tune.JunctionMajorThreshold:
		return r.Float64() < tune.JunctionMajorSwitchChance
	case delta >= tune.JunctionModerateThreshold:
		return r.Float64() < tune.JunctionModerateSwitchChance
	case altValue >= tune.JunctionExplorationMinValue:
		return r.Float64() < tune.JunctionExplorationChance
	default:
		return false
	}
}
