package world

import (
	"fmt"

	"snowline.sim/internal/sim/routing"
)

// systemSpawns admits one new skier at the base lodge every SpawnEveryTicks
// ticks while the population is below the cap. Skill and planned run count
// come from a world-level stream so the spawn sequence replays from the seed.
func (w *World) systemSpawns(nowTick uint64) {
	if w.baseID == "" {
		return
	}
	if w.tune.SpawnEveryTicks <= 0 || nowTick%uint64(w.tune.SpawnEveryTicks) != 0 {
		return
	}
	if len(w.agents) >= w.tune.MaxSkiers {
		return
	}
	base, ok := w.registry.Get(w.baseID)
	if !ok {
		return
	}

	r := routing.NewLabeledStream(w.cfg.Seed, "spawn", nowTick)
	skill := drawSkill(w.tune.PopulationMix, r)

	w.nextAgentNum++
	num := w.nextAgentNum
	s := &Skier{
		ID:           fmt.Sprintf("S%06d", num),
		Name:         fmt.Sprintf("skier_%d", num),
		Num:          num,
		Skill:        skill,
		State:        StateAtPoint,
		PointID:      w.baseID,
		Pos:          base.Pos,
		RiddenLifts:  map[string]bool{},
		RunsPlanned:  r.IntBetween(w.tune.RunsPerSkierMin, w.tune.RunsPerSkierMax),
		GoalState:    routing.GoalNone,
		junctionSeen: map[string]bool{},
	}
	w.agents[s.ID] = s

	ev := SessionEvent{AgentID: s.ID, Name: s.Name, Skill: skill.String(), Tick: nowTick}
	w.spawnsThisTick = append(w.spawnsThisTick, ev)
	if w.runIndex != nil {
		w.runIndex.IndexSessionStart(ev)
	}
}

// despawn removes a skier whose planned runs are done. They leave from
// wherever the last run ended; no walk back to the lodge is simulated.
func (w *World) despawn(s *Skier, nowTick uint64) {
	delete(w.agents, s.ID)
	ev := SessionEvent{AgentID: s.ID, Name: s.Name, Skill: s.Skill.String(), Tick: nowTick, RunsDone: s.RunsDone}
	w.despawnsThisTick = append(w.despawnsThisTick, ev)
	if w.runIndex != nil {
		w.runIndex.IndexSessionEnd(ev)
	}
}

// drawSkill picks a skill level by weighted draw over the population mix,
// iterating skills in canonical order for determinism.
func drawSkill(mix map[string]float64, r *routing.Stream) routing.SkillLevel {
	var weights [routing.NumSkillLevels]float64
	total := 0.0
	for i := 0; i < routing.NumSkillLevels; i++ {
		weights[i] = mix[routing.SkillLevel(i).String()]
		total += weights[i]
	}
	if total <= 0 {
		return routing.Intermediate
	}
	x := r.Float64() * total
	cum := 0.0
	for i, wgt := range weights {
		cum += wgt
		if x < cum {
			return routing.SkillLevel(i)
		}
	}
	return routing.Expert
}
