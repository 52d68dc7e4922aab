// Package world owns all mutable simulation state. A single goroutine runs
// the tick loop; external mutations (builds, removals, tuning updates) and
// queries (traces, positions) arrive over channels and are applied or answered
// at tick boundaries. With the state single-threaded and every random draw
// keyed by (seed, agent, tick), whole runs replay bit-exact from the seed.
package world

import (
	"errors"
	"log"
	"os"
	"sort"
	"sync"
	"sync/atomic"

	"snowline.sim/internal/protocol"
	"snowline.sim/internal/sim/resort"
	"snowline.sim/internal/sim/routing"
	"snowline.sim/internal/sim/terrain"
	"snowline.sim/internal/sim/tuning"
)

// ErrWorldStopped reports a request made against a world whose loop has
// already shut down.
var ErrWorldStopped = errors.New("world stopped")

// LiftInfo is the world's record of one built lift.
type LiftInfo struct {
	StructureID string
	Name        string
	BottomID    string
	TopID       string
	Bottom      resort.Vec3
	Top         resort.Vec3
	Length      float64
}

// TrailInfo is the world's record of one built trail.
type TrailInfo struct {
	StructureID string
	Name        string
	Difficulty  routing.TrailDifficulty
	StartID     string
	EndID       string
	Start       resort.Vec3
	End         resort.Vec3
	Length      float64
}

type World struct {
	cfg    WorldConfig
	log    *log.Logger
	params protocol.WorldParams

	terrain  *terrain.Grid
	registry *resort.Registry
	graph    *resort.Graph

	tune  tuning.Tuning
	prefs routing.PreferenceMatrix

	prop    *routing.Propagator
	planner *routing.Planner

	lifts  map[string]*LiftInfo
	trails map[string]*TrailInfo
	baseID string

	// Change counter captured at the last rebuild; a mismatch at the next
	// tick boundary triggers one full rebuild for any number of mutations.
	lastRebuildChange uint64

	agents       map[string]*Skier
	nextAgentNum uint64

	tick atomic.Uint64

	ops           chan structureOp
	tuneOps       chan tuneOp
	observerJoin  chan ObserverJoinRequest
	observerLeave chan string
	traceReqs     chan traceReq
	segReqs       chan segmentReq
	stop          chan struct{}
	stopOnce      sync.Once

	observers map[string]*observerClient

	tickLogger TickLogger
	runIndex   RunIndex

	decisionsThisTick []protocol.DecisionView
	spawnsThisTick    []SessionEvent
	despawnsThisTick  []SessionEvent
}

// New builds an empty world. grid may be nil, in which case caller-supplied
// elevations are kept as-is (tests). The initial tuning snapshot is stamped
// version 1.
func New(cfg WorldConfig, tune tuning.Tuning, grid *terrain.Grid) (*World, error) {
	cfg.applyDefaults()
	if err := tune.Validate(); err != nil {
		return nil, err
	}
	prefs, err := routing.PreferencesFromConfig(tune.Preferences)
	if err != nil {
		return nil, err
	}
	tune.Version = 1

	w := &World{
		cfg:      cfg,
		log:      log.New(os.Stdout, "[world] ", log.LstdFlags|log.Lmicroseconds),
		terrain:  grid,
		registry: resort.NewRegistry(),
		graph:    resort.NewGraph(),
		tune:     tune,
		prefs:    prefs,

		lifts:  map[string]*LiftInfo{},
		trails: map[string]*TrailInfo{},
		agents: map[string]*Skier{},

		ops:           make(chan structureOp, 64),
		tuneOps:       make(chan tuneOp, 8),
		observerJoin:  make(chan ObserverJoinRequest, 8),
		observerLeave: make(chan string, 8),
		traceReqs:     make(chan traceReq, 32),
		segReqs:       make(chan segmentReq, 32),
		stop:          make(chan struct{}),

		observers: map[string]*observerClient{},
	}
	w.params = protocol.WorldParams{
		WorldID:           cfg.ID,
		TickRateHz:        cfg.TickRateHz,
		Seed:              cfg.Seed,
		NetworkSnapRadius: tune.NetworkSnapRadius,
		MaxSkiers:         tune.MaxSkiers,
	}
	w.prop = routing.NewPropagator(w.graph, w, prefs)
	w.planner = routing.NewPlanner(w.graph, w.prop, prefs)
	return w, nil
}

// TrailDifficulty implements routing.TrailIndex over the built trails.
func (w *World) TrailDifficulty(structureID string) (routing.TrailDifficulty, bool) {
	ti, ok := w.trails[structureID]
	if !ok {
		return 0, false
	}
	return ti.Difficulty, true
}

// Params reports the handshake parameters for observers, captured at world
// construction so transport goroutines never read mutable tuning state.
func (w *World) Params() protocol.WorldParams {
	return w.params
}

func (w *World) Tick() uint64 { return w.tick.Load() }

func (w *World) AgentCount() int { return len(w.agents) }

// SetTickLogger attaches the per-tick JSONL writer. Must be called before Run.
func (w *World) SetTickLogger(l TickLogger) { w.tickLogger = l }

// SetRunIndex attaches the queryable run index. Must be called before Run.
func (w *World) SetRunIndex(ix RunIndex) { w.runIndex = ix }

func (w *World) sortedAgentIDs() []string {
	ids := make([]string, 0, len(w.agents))
	for id := range w.agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (w *World) sortedTrailIDs() []string {
	ids := make([]string, 0, len(w.trails))
	for id := range w.trails {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (w *World) maybeRebuild() {
	cc := w.registry.ChangeCount()
	if cc == w.lastRebuildChange {
		return
	}
	w.graph.Rebuild(w.registry.All(), w.tune.NetworkSnapRadius)
	w.lastRebuildChange = cc
	w.prop.Invalidate()
	w.log.Printf("graph rebuilt: gen=%d points=%d edges=%d", w.graph.Generation(), w.graph.Len(), len(w.graph.Edges()))
}

// applyTuning validates and installs a new tuning snapshot at a tick
// boundary. The version bump invalidates downstream-value cache keys and
// marks every live goal stale.
func (w *World) applyTuning(t tuning.Tuning) error {
	if err := t.Validate(); err != nil {
		return err
	}
	prefs, err := routing.PreferencesFromConfig(t.Preferences)
	if err != nil {
		return err
	}
	radiusChanged := t.NetworkSnapRadius != w.tune.NetworkSnapRadius
	t.Version = w.tune.Version + 1
	w.tune = t
	w.prefs = prefs
	w.prop.SetPreferences(prefs)
	w.planner.SetPreferences(prefs)
	w.prop.Invalidate()
	if radiusChanged {
		w.graph.Rebuild(w.registry.All(), w.tune.NetworkSnapRadius)
		w.lastRebuildChange = w.registry.ChangeCount()
	}
	w.log.Printf("tuning applied: version=%d", w.tune.Version)
	return nil
}
