package indexdb

import (
	"database/sql"
	"fmt"
)

// Query is a read-only handle on a run index, opened on its own connection
// so the admin tooling never contends with a live writer's transaction.
type Query struct {
	db *sql.DB
}

func OpenQuery(path string) (*Query, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000;"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Query{db: db}, nil
}

func (q *Query) Close() error { return q.db.Close() }

// Meta returns every key/value pair of the run's meta table.
func (q *Query) Meta() (map[string]string, error) {
	rows, err := q.db.Query(`SELECT key, value FROM meta`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

type TickRow struct {
	Tick            uint64
	Digest          string
	GraphGeneration uint64
	TuningVersion   uint64
	Skiers          int
	Decisions       int
}

// Ticks returns up to limit tick rows starting at fromTick, ascending.
func (q *Query) Ticks(fromTick uint64, limit int) ([]TickRow, error) {
	rows, err := q.db.Query(
		`SELECT tick, digest, graph_generation, tuning_version, skiers, decisions
		 FROM ticks WHERE tick >= ? ORDER BY tick LIMIT ?`, int64(fromTick), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TickRow
	for rows.Next() {
		var r TickRow
		var tick, gen, ver int64
		if err := rows.Scan(&tick, &r.Digest, &gen, &ver, &r.Skiers, &r.Decisions); err != nil {
			return nil, err
		}
		r.Tick = uint64(tick)
		r.GraphGeneration = uint64(gen)
		r.TuningVersion = uint64(ver)
		out = append(out, r)
	}
	return out, rows.Err()
}

// TickDigest returns the recorded digest for one tick.
func (q *Query) TickDigest(tick uint64) (string, error) {
	var digest string
	err := q.db.QueryRow(`SELECT digest FROM ticks WHERE tick = ?`, int64(tick)).Scan(&digest)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("tick %d not indexed", tick)
	}
	return digest, err
}

type SessionRow struct {
	AgentID     string
	Name        string
	Skill       string
	SpawnTick   uint64
	DespawnTick *uint64
	RunsDone    *int
}

// Sessions lists skier visits, most recent spawns first.
func (q *Query) Sessions(limit int) ([]SessionRow, error) {
	rows, err := q.db.Query(
		`SELECT agent_id, name, skill, spawn_tick, despawn_tick, runs_done
		 FROM sessions ORDER BY spawn_tick DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SessionRow
	for rows.Next() {
		var r SessionRow
		var spawn int64
		var despawn sql.NullInt64
		var runs sql.NullInt64
		if err := rows.Scan(&r.AgentID, &r.Name, &r.Skill, &spawn, &despawn, &runs); err != nil {
			return nil, err
		}
		r.SpawnTick = uint64(spawn)
		if despawn.Valid {
			v := uint64(despawn.Int64)
			r.DespawnTick = &v
		}
		if runs.Valid {
			v := int(runs.Int64)
			r.RunsDone = &v
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type DecisionRow struct {
	Tick     uint64
	AgentID  string
	PointID  string
	Outcome  string
	ChosenID string
	Jerry    bool
	RawJSON  string
}

// AgentDecisions returns an agent's routing decisions, most recent first.
func (q *Query) AgentDecisions(agentID string, limit int) ([]DecisionRow, error) {
	rows, err := q.db.Query(
		`SELECT tick, agent_id, point_id, outcome, COALESCE(chosen_id,''), jerry, raw_json
		 FROM decisions WHERE agent_id = ? ORDER BY tick DESC LIMIT ?`, agentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DecisionRow
	for rows.Next() {
		var r DecisionRow
		var tick int64
		var jerry int
		if err := rows.Scan(&tick, &r.AgentID, &r.PointID, &r.Outcome, &r.ChosenID, &jerry, &r.RawJSON); err != nil {
			return nil, err
		}
		r.Tick = uint64(tick)
		r.Jerry = jerry != 0
		out = append(out, r)
	}
	return out, rows.Err()
}
