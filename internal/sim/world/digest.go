package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"math"
)

// stateDigest hashes the full simulation state in a canonical order. Two
// worlds with the same seed, layout and inputs produce identical digest
// sequences; the replay tool compares these against the tick log.
func (w *World) stateDigest(nowTick uint64) string {
	h := sha256.New()
	writeU64(h, nowTick)
	writeU64(h, w.graph.Generation())
	writeU64(h, w.tune.Version)
	writeU64(h, w.registry.ChangeCount())
	writeU64(h, w.nextAgentNum)

	for _, id := range w.sortedAgentIDs() {
		s := w.agents[id]
		writeStr(h, s.ID)
		writeU64(h, uint64(s.Skill))
		writeStr(h, string(s.State))
		writeStr(h, s.PointID)
		writeF64(h, s.Pos.X)
		writeF64(h, s.Pos.Y)
		writeF64(h, s.Pos.Z)
		writeU64(h, uint64(s.RunsDone))
		writeU64(h, uint64(s.RunsPlanned))
		if s.Seg != nil {
			writeStr(h, s.Seg.StructureID)
			writeF64(h, s.Seg.Progress)
		} else {
			writeStr(h, "")
		}
		writeStr(h, string(s.GoalState))
		if s.Goal != nil {
			writeStr(h, s.Goal.TargetPointID)
			writeStr(h, s.Goal.SuggestedID)
			writeU64(h, s.Goal.Generation)
			writeU64(h, s.Goal.TuningVersion)
		} else {
			writeStr(h, "")
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeU64(h hash.Hash, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	h.Write(buf[:])
}

func writeF64(h hash.Hash, v float64) {
	writeU64(h, math.Float64bits(v))
}

func writeStr(h hash.Hash, s string) {
	writeU64(h, uint64(len(s)))
	h.Write([]byte(s))
}
