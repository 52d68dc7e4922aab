package world

import (
	"fmt"

	"snowline.sim/internal/sim/layout"
	"snowline.sim/internal/sim/resort"
	"snowline.sim/internal/sim/routing"
	"snowline.sim/internal/sim/tuning"
)

// LiftBuild describes a lift to add. Elevations are resolved against the
// terrain grid; callers supply X/Z only.
type LiftBuild struct {
	ID     string
	Name   string
	Bottom resort.Vec3
	Top    resort.Vec3
}

// TrailBuild describes a trail to add.
type TrailBuild struct {
	ID         string
	Name       string
	Difficulty routing.TrailDifficulty
	Start      resort.Vec3
	End        resort.Vec3
}

type opKind int

const (
	opBuildLift opKind = iota
	opBuildTrail
	opPlaceBase
	opRemove
)

type structureOp struct {
	kind    opKind
	lift    LiftBuild
	trail   TrailBuild
	basePos resort.Vec3
	remove  string
	resp    chan error
}

type tuneOp struct {
	t    tuning.Tuning
	resp chan error
}

func (w *World) groundAt(v resort.Vec3) resort.Vec3 {
	if w.terrain != nil {
		v.Y = w.terrain.HeightAt(v.X, v.Z)
	}
	return v
}

func (w *World) applyOp(op structureOp) error {
	switch op.kind {
	case opBuildLift:
		return w.applyBuildLift(op.lift)
	case opBuildTrail:
		return w.applyBuildTrail(op.trail)
	case opPlaceBase:
		return w.applyPlaceBase(op.basePos)
	case opRemove:
		return w.applyRemove(op.remove)
	}
	return fmt.Errorf("unknown structure op %d", op.kind)
}

func (w *World) applyBuildLift(b LiftBuild) error {
	if b.ID == "" {
		return fmt.Errorf("lift: empty structure id")
	}
	if _, ok := w.lifts[b.ID]; ok {
		return fmt.Errorf("lift %s: %w", b.ID, resort.ErrDuplicateSnapPoint)
	}
	bottom := w.groundAt(b.Bottom)
	top := w.groundAt(b.Top)
	if w.terrain != nil && top.Y <= bottom.Y {
		return fmt.Errorf("lift %s does not ascend", b.ID)
	}
	bp := resort.SnapPoint{ID: b.ID + "_B", Type: resort.LiftBottom, Pos: bottom, StructureID: b.ID, Name: b.Name + " bottom"}
	tp := resort.SnapPoint{ID: b.ID + "_T", Type: resort.LiftTop, Pos: top, StructureID: b.ID, Name: b.Name + " top"}
	if err := w.registry.Register(bp); err != nil {
		return fmt.Errorf("lift %s: %w", b.ID, err)
	}
	if err := w.registry.Register(tp); err != nil {
		// Roll the bottom back so a failed build registers nothing.
		w.registry.Unregister(bp.ID)
		return fmt.Errorf("lift %s: %w", b.ID, err)
	}
	w.lifts[b.ID] = &LiftInfo{
		StructureID: b.ID,
		Name:        b.Name,
		BottomID:    bp.ID,
		TopID:       tp.ID,
		Bottom:      bottom,
		Top:         top,
		Length:      bottom.Dist(top),
	}
	return nil
}

func (w *World) applyBuildTrail(b TrailBuild) error {
	if b.ID == "" {
		return fmt.Errorf("trail: empty structure id")
	}
	if _, ok := w.trails[b.ID]; ok {
		return fmt.Errorf("trail %s: %w", b.ID, resort.ErrDuplicateSnapPoint)
	}
	start := w.groundAt(b.Start)
	end := w.groundAt(b.End)
	if w.terrain != nil && start.Y <= end.Y {
		return fmt.Errorf("trail %s does not descend", b.ID)
	}
	sp := resort.SnapPoint{ID: b.ID + "_S", Type: resort.TrailStart, Pos: start, StructureID: b.ID, Name: b.Name + " start"}
	ep := resort.SnapPoint{ID: b.ID + "_E", Type: resort.TrailEnd, Pos: end, StructureID: b.ID, Name: b.Name + " end"}
	if err := w.registry.Register(sp); err != nil {
		return fmt.Errorf("trail %s: %w", b.ID, err)
	}
	if err := w.registry.Register(ep); err != nil {
		w.registry.Unregister(sp.ID)
		return fmt.Errorf("trail %s: %w", b.ID, err)
	}
	w.trails[b.ID] = &TrailInfo{
		StructureID: b.ID,
		Name:        b.Name,
		Difficulty:  b.Difficulty,
		StartID:     sp.ID,
		EndID:       ep.ID,
		Start:       start,
		End:         end,
		Length:      start.Dist(end),
	}
	return nil
}

func (w *World) applyPlaceBase(pos resort.Vec3) error {
	if w.baseID != "" {
		return fmt.Errorf("base lodge already placed")
	}
	p := resort.SnapPoint{ID: "BASE", Type: resort.BaseSpawn, Pos: w.groundAt(pos), StructureID: "BASE", Name: "base lodge"}
	if err := w.registry.Register(p); err != nil {
		return err
	}
	w.baseID = p.ID
	return nil
}

func (w *World) applyRemove(structureID string) error {
	_, isLift := w.lifts[structureID]
	_, isTrail := w.trails[structureID]
	if !isLift && !isTrail {
		return fmt.Errorf("unknown structure %s", structureID)
	}
	w.registry.UnregisterStructure(structureID)
	delete(w.lifts, structureID)
	delete(w.trails, structureID)

	// Skiers standing on or riding the removed structure are walked back to
	// the base lodge; mid-air teleports beat dangling point ids.
	for _, id := range w.sortedAgentIDs() {
		s := w.agents[id]
		onIt := s.Seg != nil && s.Seg.StructureID == structureID
		if !onIt && s.PointID != "" {
			if p, ok := w.registry.Get(s.PointID); !ok || p.StructureID == structureID {
				onIt = true
			}
		}
		if onIt {
			w.evacuate(s)
		}
	}
	return nil
}

func (w *World) evacuate(s *Skier) {
	s.Seg = nil
	s.Goal = nil
	s.GoalState = routing.GoalReplanning
	if w.baseID != "" {
		if p, ok := w.registry.Get(w.baseID); ok {
			s.State = StateAtPoint
			s.PointID = w.baseID
			s.Pos = p.Pos
			return
		}
	}
	delete(w.agents, s.ID)
}

// FromLayout seeds the world from a layout file: base lodge, lifts, trails,
// then one graph rebuild. Call before Run; it mutates state directly.
func (w *World) FromLayout(l *layout.Layout) error {
	if w.terrain != nil {
		if err := l.Validate(w.terrain); err != nil {
			return err
		}
	}
	if err := w.applyPlaceBase(resort.Vec3{X: l.Base.X, Z: l.Base.Z}); err != nil {
		return err
	}
	for _, lf := range l.Lifts {
		b := LiftBuild{
			ID:     lf.ID,
			Name:   lf.Name,
			Bottom: resort.Vec3{X: lf.Bottom.X, Z: lf.Bottom.Z},
			Top:    resort.Vec3{X: lf.Top.X, Z: lf.Top.Z},
		}
		if err := w.applyBuildLift(b); err != nil {
			return err
		}
	}
	for _, tr := range l.Trails {
		diff, err := routing.ParseDifficulty(tr.Difficulty)
		if err != nil {
			return fmt.Errorf("trail %s: %w", tr.ID, err)
		}
		b := TrailBuild{
			ID:         tr.ID,
			Name:       tr.Name,
			Difficulty: diff,
			Start:      resort.Vec3{X: tr.Start.X, Z: tr.Start.Z},
			End:        resort.Vec3{X: tr.End.X, Z: tr.End.Z},
		}
		if err := w.applyBuildTrail(b); err != nil {
			return err
		}
	}
	w.maybeRebuild()
	w.log.Printf("layout loaded: lifts=%d trails=%d", len(w.lifts), len(w.trails))
	return nil
}
