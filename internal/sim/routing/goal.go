package routing

import (
	"snowline.sim/internal/sim/resort"
	"snowline.sim/internal/sim/tuning"
)

// GoalState is the per-agent planning state machine:
// NoGoal -> Planning -> EnRoute -> AtGoal/Replanning -> NoGoal|Planning.
type GoalState string

const (
	GoalNone       GoalState = "NO_GOAL"
	GoalPlanning   GoalState = "PLANNING"
	GoalEnRoute    GoalState = "EN_ROUTE"
	GoalAtTarget   GoalState = "AT_GOAL"
	GoalReplanning GoalState = "REPLANNING"
)

// Goal is an agent's multi-hop destination: the trail start it wants to
// reach and the first lift or trail suggested to get there. Owned exclusively
// by its agent; at most one live Goal per agent.
type Goal struct {
	TargetPointID string
	SuggestedID   string

	// Captured at plan time; a mismatch marks the goal stale.
	Generation    uint64
	TuningVersion uint64
}

// Stale reports whether the goal may no longer be acted on: the graph or
// tuning moved underneath it, or its target point was unregistered. Stale
// goals send the agent to Replanning; the engine never dereferences a missing
// snap point.
func (g *Goal) Stale(graph *resort.Graph, tune *tuning.Tuning) bool {
	if g.Generation != graph.Generation() || g.TuningVersion != tune.Version {
		return true
	}
	if _, ok := graph.Point(g.TargetPointID); !ok {
		return true
	}
	return false
}

// Planner chooses multi-hop destinations from the terrain the propagator can
// see, weighting the difficulties the skill prefers most strongly.
type Planner struct {
	graph *resort.Graph
	prop  *Propagator
	prefs PreferenceMatrix
}

func NewPlanner(graph *resort.Graph, prop *Propagator, prefs PreferenceMatrix) *Planner {
	return &Planner{graph: graph, prop: prop, prefs: prefs}
}

func (p *Planner) SetPreferences(m PreferenceMatrix) {
	p.prefs = m
}

// Plan evaluates reachable terrain and picks a target by weighted random
// draw. The skill's favorite difficulty gets the preferred-difficulty boost.
// Returns false when no reachable trail carries positive weight.
func (p *Planner) Plan(skill SkillLevel, fromPointID string, tune *tuning.Tuning, r *Stream) (Goal, bool) {
	trails, _ := p.prop.ReachableTrails(fromPointID, tune)
	if len(trails) == 0 {
		return Goal{}, false
	}

	fav := p.prefs.Favorite(skill)
	weights := make([]float64, len(trails))
	total := 0.0
	for i, ht := range trails {
		w := p.prefs.Weight(skill, ht.Difficulty) * tune.Discount(ht.Hop)
		if ht.Difficulty == fav {
			w *= tune.PreferredDifficultyBoost
		}
		weights[i] = w
		total += w
	}
	if total <= 0 {
		return Goal{}, false
	}

	x := r.Float64() * total
	cum := 0.0
	idx := len(trails) - 1
	for i, w := range weights {
		cum += w
		if x < cum {
			idx = i
			break
		}
	}
	chosen := trails[idx]
	return Goal{
		TargetPointID: chosen.StartID,
		SuggestedID:   chosen.FirstLiftID,
		Generation:    p.graph.Generation(),
		TuningVersion: tune.Version,
	}, true
}
