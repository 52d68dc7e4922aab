package world

import "snowline.sim/internal/protocol"

// stepInternal runs one simulation tick. Order matters and is fixed:
// structure ops and tuning first so this tick's decisions see the new
// network, then spawns, movement, decisions and junction checks, and finally
// the digest, observer broadcast and tick log over the settled state.
func (w *World) stepInternal(ops []structureOp, tunes []tuneOp) (string, error) {
	nowTick := w.tick.Load()

	w.decisionsThisTick = w.decisionsThisTick[:0]
	w.spawnsThisTick = w.spawnsThisTick[:0]
	w.despawnsThisTick = w.despawnsThisTick[:0]

	for _, op := range ops {
		err := w.applyOp(op)
		if err != nil {
			w.log.Printf("tick %d: structure op rejected: %v", nowTick, err)
		}
		if op.resp != nil {
			op.resp <- err
		}
	}
	for _, to := range tunes {
		err := w.applyTuning(to.t)
		if err != nil {
			w.log.Printf("tick %d: tuning rejected: %v", nowTick, err)
		}
		if to.resp != nil {
			to.resp <- err
		}
	}
	w.maybeRebuild()

	w.systemSpawns(nowTick)
	w.systemMovement(nowTick)
	if err := w.systemDecisions(nowTick); err != nil {
		return "", err
	}
	w.systemJunctions(nowTick)

	digest := w.stateDigest(nowTick)
	w.broadcastTick(nowTick, digest)
	w.writeTickLog(nowTick, digest)

	w.tick.Store(nowTick + 1)
	return digest, nil
}

func (w *World) writeTickLog(nowTick uint64, digest string) {
	if w.tickLogger == nil && w.runIndex == nil {
		return
	}
	entry := TickLogEntry{
		Tick:            nowTick,
		GraphGeneration: w.graph.Generation(),
		TuningVersion:   w.tune.Version,
		Skiers:          len(w.agents),
		Spawns:          append([]SessionEvent(nil), w.spawnsThisTick...),
		Despawns:        append([]SessionEvent(nil), w.despawnsThisTick...),
		Decisions:       append([]protocol.DecisionView(nil), w.decisionsThisTick...),
		Digest:          digest,
	}
	if w.tickLogger != nil {
		if err := w.tickLogger.WriteTick(entry); err != nil {
			w.log.Printf("tick %d: tick log write failed: %v", nowTick, err)
		}
	}
	if w.runIndex != nil {
		w.runIndex.IndexTick(entry)
	}
}
