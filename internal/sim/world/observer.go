package world

import (
	"encoding/json"
	"sort"

	"snowline.sim/internal/protocol"
)

// ObserverJoinRequest attaches an observer session to the tick stream. Out
// receives one marshalled TICK frame per tick; slow consumers get the latest
// frame only, never a backlog.
type ObserverJoinRequest struct {
	SessionID        string
	IncludeDecisions bool
	Out              chan []byte
}

type observerClient struct {
	id               string
	includeDecisions bool
	out              chan []byte
}

func (w *World) ObserverJoin(req ObserverJoinRequest) {
	select {
	case w.observerJoin <- req:
	case <-w.stop:
	}
}

func (w *World) ObserverLeave(sessionID string) {
	select {
	case w.observerLeave <- sessionID:
	case <-w.stop:
	}
}

func (w *World) handleObserverJoin(req ObserverJoinRequest) {
	w.observers[req.SessionID] = &observerClient{
		id:               req.SessionID,
		includeDecisions: req.IncludeDecisions,
		out:              req.Out,
	}
	w.log.Printf("observer joined: %s (decisions=%v)", req.SessionID, req.IncludeDecisions)
}

func (w *World) handleObserverLeave(sessionID string) {
	if _, ok := w.observers[sessionID]; ok {
		delete(w.observers, sessionID)
		w.log.Printf("observer left: %s", sessionID)
	}
}

func (w *World) broadcastTick(nowTick uint64, digest string) {
	if len(w.observers) == 0 {
		return
	}
	msg := protocol.TickMsg{
		Type:            protocol.TypeTick,
		ProtocolVersion: protocol.Version,
		Tick:            nowTick,
		GraphGeneration: w.graph.Generation(),
		TuningVersion:   w.tune.Version,
		Digest:          digest,
		Skiers:          w.skierViews(),
	}
	plain, err := json.Marshal(msg)
	if err != nil {
		w.log.Printf("tick %d: marshal failed: %v", nowTick, err)
		return
	}
	var withDecisions []byte
	for _, c := range w.observers {
		if !c.includeDecisions {
			continue
		}
		msg.Decisions = w.decisionsThisTick
		withDecisions, err = json.Marshal(msg)
		if err != nil {
			w.log.Printf("tick %d: marshal failed: %v", nowTick, err)
			return
		}
		break
	}
	ids := make([]string, 0, len(w.observers))
	for id := range w.observers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		c := w.observers[id]
		payload := plain
		if c.includeDecisions {
			payload = withDecisions
		}
		sendLatest(c.out, payload)
	}
}

// sendLatest delivers payload without ever blocking the tick loop: if the
// channel is full the stale frame is dropped first.
func sendLatest(ch chan []byte, payload []byte) {
	for {
		select {
		case ch <- payload:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}

func (w *World) skierViews() []protocol.SkierView {
	out := make([]protocol.SkierView, 0, len(w.agents))
	for _, id := range w.sortedAgentIDs() {
		s := w.agents[id]
		v := protocol.SkierView{
			ID:        s.ID,
			Name:      s.Name,
			Skill:     s.Skill.String(),
			State:     string(s.State),
			Pos:       [3]float64{s.Pos.X, s.Pos.Y, s.Pos.Z},
			GoalState: string(s.GoalState),
		}
		if s.Seg != nil {
			v.SegmentID = s.Seg.StructureID
			v.Progress = s.Seg.Progress
		}
		if s.Goal != nil {
			v.GoalID = s.Goal.TargetPointID
		}
		out = append(out, v)
	}
	return out
}
