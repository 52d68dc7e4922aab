package world

import (
	"snowline.sim/internal/protocol"
	"snowline.sim/internal/sim/resort"
	"snowline.sim/internal/sim/routing"
)

// AgentState is where a skier is in the ride cycle.
type AgentState string

const (
	StateAtPoint    AgentState = "AT_POINT"
	StateRidingLift AgentState = "RIDING_LIFT"
	StateSkiing     AgentState = "SKIING"
	// StateParked marks a skier with no viable route; the decision system
	// retries it every tick.
	StateParked AgentState = "PARKED"
)

// Segment is the lift or trail a skier is currently traversing. Progress runs
// 0..1 from entry to exit; position is interpolated along the chord.
type Segment struct {
	StructureID string
	Kind        routing.CandidateKind
	FromID      string
	ToID        string
	From        resort.Vec3
	To          resort.Vec3
	Length      float64
	Progress    float64
}

// Skier is one simulated visitor. All fields are owned by the world loop;
// nothing outside it reads or writes a Skier directly.
type Skier struct {
	ID    string
	Name  string
	Num   uint64
	Skill routing.SkillLevel

	State   AgentState
	PointID string
	Pos     resort.Vec3
	Seg     *Segment

	// RiddenLifts drives variety shaping: lifts already taken this visit.
	RiddenLifts map[string]bool

	RunsDone    int
	RunsPlanned int

	Goal      *routing.Goal
	GoalState routing.GoalState

	// junctionSeen holds trail ids already evaluated as switch alternatives
	// on the current run, so one junction never triggers twice. Reset when a
	// new trail is boarded.
	junctionSeen map[string]bool

	lastDecisionTick uint64
	lastTrace        *protocol.DecisionView
}
