package world

import "snowline.sim/internal/protocol"

// TickLogEntry is one line of the per-tick JSONL run log. Replays verify
// their own digests against the logged ones.
type TickLogEntry struct {
	Tick            uint64                  `json:"tick"`
	GraphGeneration uint64                  `json:"graph_generation"`
	TuningVersion   uint64                  `json:"tuning_version"`
	Skiers          int                     `json:"skiers"`
	Spawns          []SessionEvent          `json:"spawns,omitempty"`
	Despawns        []SessionEvent          `json:"despawns,omitempty"`
	Decisions       []protocol.DecisionView `json:"decisions,omitempty"`
	Digest          string                  `json:"digest"`
}

// SessionEvent records one skier entering or leaving the mountain.
type SessionEvent struct {
	AgentID  string `json:"agent_id"`
	Name     string `json:"name"`
	Skill    string `json:"skill"`
	Tick     uint64 `json:"tick"`
	RunsDone int    `json:"runs_done,omitempty"`
}

// TickLogger receives every tick entry. Implementations must not block the
// tick loop; the persistence layer buffers internally.
type TickLogger interface {
	WriteTick(TickLogEntry) error
}

// RunIndex receives tick and session events for the queryable run database.
type RunIndex interface {
	IndexTick(TickLogEntry)
	IndexSessionStart(SessionEvent)
	IndexSessionEnd(SessionEvent)
}
