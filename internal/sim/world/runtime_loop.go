package world

import (
	"context"
	"time"

	"snowline.sim/internal/sim/tuning"
)

// Run drives the tick loop until the context is cancelled, Stop is called, or
// a fatal engine error (score collapse) surfaces. Requests received between
// ticks are buffered and applied at the next tick boundary.
func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.log.Printf("world %s running: seed=%d tick_rate=%dhz", w.cfg.ID, w.cfg.Seed, w.cfg.TickRateHz)

	var ops []structureOp
	var tunes []tuneOp
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case op := <-w.ops:
			ops = append(ops, op)
		case to := <-w.tuneOps:
			tunes = append(tunes, to)
		case req := <-w.observerJoin:
			w.handleObserverJoin(req)
		case id := <-w.observerLeave:
			w.handleObserverLeave(id)
		case req := <-w.traceReqs:
			w.handleTraceReq(req)
		case req := <-w.segReqs:
			w.handleSegmentReq(req)
		case <-ticker.C:
			if _, err := w.stepInternal(ops, tunes); err != nil {
				w.log.Printf("fatal: %v", err)
				return err
			}
			ops = ops[:0]
			tunes = tunes[:0]
		}
	}
}

// Stop shuts the loop down and unblocks any goroutine waiting on the
// request channels. Safe to call more than once.
func (w *World) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
}

// StepOnce advances the simulation by exactly one tick, draining any queued
// requests first. Used by the replay tool and tests; never call it while Run
// is active.
func (w *World) StepOnce() (uint64, string, error) {
	var ops []structureOp
	var tunes []tuneOp
drain:
	for {
		select {
		case op := <-w.ops:
			ops = append(ops, op)
		case to := <-w.tuneOps:
			tunes = append(tunes, to)
		case req := <-w.traceReqs:
			w.handleTraceReq(req)
		case req := <-w.segReqs:
			w.handleSegmentReq(req)
		default:
			break drain
		}
	}
	tick := w.tick.Load()
	digest, err := w.stepInternal(ops, tunes)
	return tick, digest, err
}

// BuildLift adds a lift at the next tick boundary and reports the result.
func (w *World) BuildLift(b LiftBuild) error {
	return w.sendOp(structureOp{kind: opBuildLift, lift: b})
}

// BuildTrail adds a trail at the next tick boundary.
func (w *World) BuildTrail(b TrailBuild) error {
	return w.sendOp(structureOp{kind: opBuildTrail, trail: b})
}

// RemoveStructure tears a lift or trail down at the next tick boundary. Every
// snap point the structure registered disappears with it.
func (w *World) RemoveStructure(structureID string) error {
	return w.sendOp(structureOp{kind: opRemove, remove: structureID})
}

func (w *World) sendOp(op structureOp) error {
	op.resp = make(chan error, 1)
	select {
	case w.ops <- op:
	case <-w.stop:
		return ErrWorldStopped
	}
	select {
	case err := <-op.resp:
		return err
	case <-w.stop:
		return ErrWorldStopped
	}
}

// ApplyTuning installs a new tuning snapshot at the next tick boundary.
// Invalid snapshots are rejected and the previous one stays live.
func (w *World) ApplyTuning(t tuning.Tuning) error {
	to := tuneOp{t: t, resp: make(chan error, 1)}
	select {
	case w.tuneOps <- to:
	case <-w.stop:
		return ErrWorldStopped
	}
	select {
	case err := <-to.resp:
		return err
	case <-w.stop:
		return ErrWorldStopped
	}
}
