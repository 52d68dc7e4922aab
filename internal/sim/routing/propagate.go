package routing

import (
	"sync"

	"snowline.sim/internal/sim/resort"
	"snowline.sim/internal/sim/tuning"
)

// TrailIndex resolves the difficulty of the trail owning a snap point's
// structure. The world implements it; tests use small fakes.
type TrailIndex interface {
	TrailDifficulty(structureID string) (TrailDifficulty, bool)
}

// Propagator computes discounted downstream terrain value: the best terrain
// reachable within the configured hop horizon from a starting snap point,
// where one hop is a lift traversal plus the trail starts near its top.
//
// The result is the maximum discounted per-hop value, not a sum; farther
// terrain only matters if it beats everything closer. This mirrors the
// discount schedule ("farther is discounted more") and is intentional.
type Propagator struct {
	graph  *resort.Graph
	trails TrailIndex
	prefs  PreferenceMatrix

	mu    sync.Mutex
	cache map[valueKey]valueEntry
}

type valueKey struct {
	skill      SkillLevel
	pointID    string
	generation uint64
	version    uint64
}

type valueEntry struct {
	value   float64
	deadEnd bool
}

func NewPropagator(graph *resort.Graph, trails TrailIndex, prefs PreferenceMatrix) *Propagator {
	return &Propagator{
		graph:  graph,
		trails: trails,
		prefs:  prefs,
		cache:  map[valueKey]valueEntry{},
	}
}

// SetPreferences replaces the preference matrix. The caller must also bump
// the tuning version so stale cache keys can never match.
func (p *Propagator) SetPreferences(m PreferenceMatrix) {
	p.prefs = m
}

// Invalidate discards the whole cache. Called on graph generation or tuning
// version changes; entries are never invalidated piecemeal. Keys embed both
// counters, so invalidation is about memory, not correctness.
func (p *Propagator) Invalidate() {
	p.mu.Lock()
	p.cache = map[valueKey]valueEntry{}
	p.mu.Unlock()
}

// DownstreamValue returns the discounted lookahead value from a snap point
// for a skill, and whether the point is a dead end (no lift reachable within
// the hop horizon). Dead ends are signalled explicitly rather than as a zero
// value so callers can apply the dedicated dead-end score.
func (p *Propagator) DownstreamValue(skill SkillLevel, pointID string, tune *tuning.Tuning) (float64, bool) {
	key := valueKey{skill: skill, pointID: pointID, generation: p.graph.Generation(), version: tune.Version}

	p.mu.Lock()
	if e, ok := p.cache[key]; ok {
		p.mu.Unlock()
		return e.value, e.deadEnd
	}
	p.mu.Unlock()

	trails, sawLift := p.traverse(pointID, tune)
	best := 0.0
	for _, ht := range trails {
		v := p.prefs.Weight(skill, ht.Difficulty) * tune.Discount(ht.Hop)
		if v > best {
			best = v
		}
	}
	deadEnd := !sawLift

	p.mu.Lock()
	p.cache[key] = valueEntry{value: best, deadEnd: deadEnd}
	p.mu.Unlock()
	return best, deadEnd
}

// DownstreamThroughLift returns the discounted lookahead value obtained by
// riding the given lift first: hop 1 is the trail set at this lift's top
// only, never other lifts sharing the boarding area. Dead end here means the
// top strands the skier with no trail at all.
func (p *Propagator) DownstreamThroughLift(skill SkillLevel, liftStructureID string, tune *tuning.Tuning) (float64, bool) {
	// Point ids never contain ':', so lift keys cannot collide with point keys.
	key := valueKey{skill: skill, pointID: "lift:" + liftStructureID, generation: p.graph.Generation(), version: tune.Version}

	p.mu.Lock()
	if e, ok := p.cache[key]; ok {
		p.mu.Unlock()
		return e.value, e.deadEnd
	}
	p.mu.Unlock()

	trails := p.traverseLift(liftStructureID, tune)
	best := 0.0
	for _, ht := range trails {
		if v := p.prefs.Weight(skill, ht.Difficulty) * tune.Discount(ht.Hop); v > best {
			best = v
		}
	}
	deadEnd := len(trails) == 0

	p.mu.Lock()
	p.cache[key] = valueEntry{value: best, deadEnd: deadEnd}
	p.mu.Unlock()
	return best, deadEnd
}

// HopTrail is one trail discovered by the lookahead: where it starts, its
// difficulty, the hop at which it was found, and the first lift taken on the
// branch that reached it.
type HopTrail struct {
	Hop         int
	StartID     string
	EndID       string
	StructureID string
	Difficulty  TrailDifficulty
	FirstLiftID string
}

// ReachableTrails runs the same depth-limited search as DownstreamValue and
// returns every trail discovered, hop by hop. Used by the goal planner.
func (p *Propagator) ReachableTrails(pointID string, tune *tuning.Tuning) ([]HopTrail, bool) {
	return p.traverse(pointID, tune)
}

type frontierEntry struct {
	pointID     string
	firstLiftID string
}

func (p *Propagator) traverse(pointID string, tune *tuning.Tuning) ([]HopTrail, bool) {
	frontier := []frontierEntry{{pointID: pointID}}
	visitedLifts := map[string]bool{}
	seenEnds := map[string]bool{}
	sawLift := false
	var found []HopTrail

	for hop := 1; hop <= tune.DownstreamDepth && len(frontier) > 0; hop++ {
		var next []frontierEntry
		for _, fe := range frontier {
			for _, lb := range p.graph.NeighborsOfType(fe.pointID, resort.LiftBottom) {
				if visitedLifts[lb.StructureID] {
					continue
				}
				visitedLifts[lb.StructureID] = true
				sawLift = true

				firstLift := fe.firstLiftID
				if firstLift == "" {
					firstLift = lb.StructureID
				}
				trails, fs := p.topTrails(lb.StructureID, firstLift, hop, seenEnds, tune)
				found = append(found, trails...)
				next = append(next, fs...)
			}
		}
		frontier = next
	}
	return found, sawLift
}

// traverseLift is the traversal seeded by one forced first lift.
func (p *Propagator) traverseLift(liftStructureID string, tune *tuning.Tuning) []HopTrail {
	visitedLifts := map[string]bool{liftStructureID: true}
	seenEnds := map[string]bool{}
	found, frontier := p.topTrails(liftStructureID, liftStructureID, 1, seenEnds, tune)

	for hop := 2; hop <= tune.DownstreamDepth && len(frontier) > 0; hop++ {
		var next []frontierEntry
		for _, fe := range frontier {
			for _, lb := range p.graph.NeighborsOfType(fe.pointID, resort.LiftBottom) {
				if visitedLifts[lb.StructureID] {
					continue
				}
				visitedLifts[lb.StructureID] = true
				trails, fs := p.topTrails(lb.StructureID, fe.firstLiftID, hop, seenEnds, tune)
				found = append(found, trails...)
				next = append(next, fs...)
			}
		}
		frontier = next
	}
	return found
}

// topTrails expands one ridden lift: every trail starting near its top,
// tagged with the hop it was found at and the branch's first lift. Trail ends
// not seen before join the next frontier.
func (p *Propagator) topTrails(liftStructureID, firstLiftID string, hop int, seenEnds map[string]bool, tune *tuning.Tuning) ([]HopTrail, []frontierEntry) {
	top, ok := p.structurePoint(liftStructureID, resort.LiftTop)
	if !ok {
		return nil, nil
	}
	var found []HopTrail
	var next []frontierEntry
	for _, ts := range p.graph.NearestOfType(top.Pos, resort.TrailStart, tune.TrailStartSearchRadius) {
		diff, ok := p.trails.TrailDifficulty(ts.StructureID)
		if !ok {
			continue
		}
		end, ok := p.structurePoint(ts.StructureID, resort.TrailEnd)
		if !ok {
			continue
		}
		found = append(found, HopTrail{
			Hop:         hop,
			StartID:     ts.ID,
			EndID:       end.ID,
			StructureID: ts.StructureID,
			Difficulty:  diff,
			FirstLiftID: firstLiftID,
		})
		if !seenEnds[end.ID] {
			seenEnds[end.ID] = true
			next = append(next, frontierEntry{pointID: end.ID, firstLiftID: firstLiftID})
		}
	}
	return found, next
}

func (p *Propagator) structurePoint(structureID string, t resort.PointType) (resort.SnapPoint, bool) {
	for _, id := range p.graph.OfStructure(structureID) {
		if pt, ok := p.graph.Point(id); ok && pt.Type == t {
			return pt, true
		}
	}
	return resort.SnapPoint{}, false
}
