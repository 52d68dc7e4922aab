// Package indexdb maintains a queryable sqlite index of a run: per-tick
// digests, routing decisions and skier sessions. It is a secondary index;
// the compressed JSONL logs remain the source of truth. Writes funnel
// through a single goroutine so the sim thread never blocks on sqlite.
package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"snowline.sim/internal/sim/tuning"
	"snowline.sim/internal/sim/world"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqSessionStart
	reqSessionEnd
)

type req struct {
	kind    reqKind
	tick    world.TickLogEntry
	session world.SessionEvent
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		// Sized for decision bursts at full population without stalling the sim.
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads; NORMAL durability is
	// fine for a secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			tick INTEGER PRIMARY KEY,
			digest TEXT NOT NULL,
			graph_generation INTEGER NOT NULL,
			tuning_version INTEGER NOT NULL,
			skiers INTEGER NOT NULL,
			decisions INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS decisions (
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			agent_id TEXT NOT NULL,
			point_id TEXT NOT NULL,
			outcome TEXT NOT NULL,
			chosen_id TEXT,
			chosen_kind TEXT,
			jerry INTEGER NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_agent_tick ON decisions(agent_id, tick);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			agent_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			skill TEXT NOT NULL,
			spawn_tick INTEGER NOT NULL,
			despawn_tick INTEGER,
			runs_done INTEGER
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_spawn ON sessions(spawn_tick);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// IndexTick implements world.RunIndex. Entries are dropped rather than
// blocking when the indexer falls behind.
func (s *SQLiteIndex) IndexTick(entry world.TickLogEntry) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqTick, tick: entry}:
	default:
	}
}

func (s *SQLiteIndex) IndexSessionStart(ev world.SessionEvent) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqSessionStart, session: ev}:
	default:
	}
}

func (s *SQLiteIndex) IndexSessionEnd(ev world.SessionEvent) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqSessionEnd, session: ev}:
	default:
	}
}

// UpsertRunMeta records the run's identity and the canonical tuning JSON with
// its digest so replays can verify they start from the same parameters.
func (s *SQLiteIndex) UpsertRunMeta(worldID string, seed int64, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(tune)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(b)

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	rows := [][2]string{
		{"schema_version", "1"},
		{"world_id", worldID},
		{"seed", fmt.Sprintf("%d", seed)},
		{"tuning_json", string(b)},
		{"tuning_digest", hex.EncodeToString(sum[:])},
		{"started_at", time.Now().UTC().Format(time.RFC3339Nano)},
	}
	for _, r := range rows {
		if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES(?,?)`, r[0], r[1]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertTick, _ := s.db.Prepare(`INSERT OR REPLACE INTO ticks(tick,digest,graph_generation,tuning_version,skiers,decisions,raw_json) VALUES(?,?,?,?,?,?,?)`)
	insertDecision, _ := s.db.Prepare(`INSERT OR REPLACE INTO decisions(tick,seq,agent_id,point_id,outcome,chosen_id,chosen_kind,jerry,raw_json) VALUES(?,?,?,?,?,?,?,?,?)`)
	insertSession, _ := s.db.Prepare(`INSERT OR REPLACE INTO sessions(agent_id,name,skill,spawn_tick) VALUES(?,?,?,?)`)
	endSession, _ := s.db.Prepare(`UPDATE sessions SET despawn_tick=?, runs_done=? WHERE agent_id=?`)
	defer func() {
		for _, st := range []*sql.Stmt{insertTick, insertDecision, insertSession, endSession} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqTick:
			b, _ := json.Marshal(r.tick)
			if insertTick != nil {
				if _, err := tx.Stmt(insertTick).Exec(
					int64(r.tick.Tick),
					r.tick.Digest,
					int64(r.tick.GraphGeneration),
					int64(r.tick.TuningVersion),
					r.tick.Skiers,
					len(r.tick.Decisions),
					string(b),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
			for i, d := range r.tick.Decisions {
				if insertDecision == nil {
					break
				}
				raw, _ := json.Marshal(d)
				jerry := 0
				if d.Jerry {
					jerry = 1
				}
				if _, err := tx.Stmt(insertDecision).Exec(
					int64(r.tick.Tick), i, d.AgentID, d.PointID, d.Outcome,
					d.ChosenID, d.ChosenKind, jerry, string(raw),
				); err != nil {
					rollback()
					break
				}
				opCount++
			}

		case reqSessionStart:
			ev := r.session
			if insertSession != nil {
				if _, err := tx.Stmt(insertSession).Exec(ev.AgentID, ev.Name, ev.Skill, int64(ev.Tick)); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqSessionEnd:
			ev := r.session
			if endSession != nil {
				if _, err := tx.Stmt(endSession).Exec(int64(ev.Tick), ev.RunsDone, ev.AgentID); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}
		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}

	commit()
}
