package protocol

// HELLO (observer -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ObserverName    string `json:"observer_name,omitempty"`
	// IncludeDecisions asks for per-tick decision records (heavier stream).
	IncludeDecisions bool `json:"include_decisions,omitempty"`
}

// WELCOME (server -> observer)
type WelcomeMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	SessionID       string      `json:"session_id"`
	WorldParams     WorldParams `json:"world_params"`
}

type WorldParams struct {
	WorldID           string  `json:"world_id"`
	TickRateHz        int     `json:"tick_rate_hz"`
	Seed              int64   `json:"seed"`
	NetworkSnapRadius float64 `json:"network_snap_radius"`
	MaxSkiers         int     `json:"max_skiers"`
}

// TICK (server -> observer), one per simulation tick.
type TickMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
	GraphGeneration uint64 `json:"graph_generation"`
	TuningVersion   uint64 `json:"tuning_version"`
	Digest          string `json:"digest"`

	Skiers    []SkierView    `json:"skiers"`
	Decisions []DecisionView `json:"decisions,omitempty"`
}

type SkierView struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Skill     string     `json:"skill"`
	State     string     `json:"state"`
	Pos       [3]float64 `json:"pos"`
	SegmentID string     `json:"segment_id,omitempty"`
	Progress  float64    `json:"progress,omitempty"`
	GoalState string     `json:"goal_state"`
	GoalID    string     `json:"goal_id,omitempty"`
}

// DecisionView is one routing decision: the point it was made at, the
// outcome, and the full per-candidate score breakdown for debug overlays.
type DecisionView struct {
	AgentID    string          `json:"agent_id"`
	PointID    string          `json:"point_id"`
	Outcome    string          `json:"outcome"`
	ChosenID   string          `json:"chosen_id,omitempty"`
	ChosenKind string          `json:"chosen_kind,omitempty"`
	Jerry      bool            `json:"jerry,omitempty"`
	Candidates []CandidateView `json:"candidates,omitempty"`
}

type CandidateView struct {
	StructureID string  `json:"structure_id"`
	Kind        string  `json:"kind"`
	Difficulty  string  `json:"difficulty,omitempty"`
	Direct      float64 `json:"direct,omitempty"`
	Downstream  float64 `json:"downstream,omitempty"`
	DeadEnd     bool    `json:"dead_end,omitempty"`
	Score       float64 `json:"score"`
}

// Decision outcomes.
const (
	OutcomeSelected      = "SELECTED"
	OutcomeNoViableRoute = "NO_VIABLE_ROUTE"
)

// TRACE_REQ (observer -> server): ask for an agent's last decision trace.
type TraceReqMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	AgentID         string `json:"agent_id"`
}

// TRACE (server -> observer)
type TraceMsg struct {
	Type            string        `json:"type"`
	ProtocolVersion string        `json:"protocol_version"`
	AgentID         string        `json:"agent_id"`
	Tick            uint64        `json:"tick"`
	Decision        *DecisionView `json:"decision,omitempty"`
}

// ERROR (server -> observer)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message,omitempty"`
}
