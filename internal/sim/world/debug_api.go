package world

import (
	"snowline.sim/internal/protocol"
	"snowline.sim/internal/sim/resort"
	"snowline.sim/internal/sim/routing"
)

type traceReq struct {
	agentID string
	resp    chan *protocol.TraceMsg
}

// DecisionTrace returns an agent's most recent routing decision with the full
// candidate breakdown, or nil for unknown agents and agents that have not
// decided yet. Answered by the loop at the next opportunity.
func (w *World) DecisionTrace(agentID string) *protocol.TraceMsg {
	req := traceReq{agentID: agentID, resp: make(chan *protocol.TraceMsg, 1)}
	select {
	case w.traceReqs <- req:
	case <-w.stop:
		return nil
	}
	select {
	case msg := <-req.resp:
		return msg
	case <-w.stop:
		return nil
	}
}

func (w *World) handleTraceReq(req traceReq) {
	s, ok := w.agents[req.agentID]
	if !ok || s.lastTrace == nil {
		req.resp <- nil
		return
	}
	d := *s.lastTrace
	d.Candidates = append([]protocol.CandidateView(nil), s.lastTrace.Candidates...)
	req.resp <- &protocol.TraceMsg{
		Type:            protocol.TypeTrace,
		ProtocolVersion: protocol.Version,
		AgentID:         s.ID,
		Tick:            s.lastDecisionTick,
		Decision:        &d,
	}
}

// SegmentInfo is a point-in-time snapshot of where one skier is.
type SegmentInfo struct {
	AgentID     string
	State       AgentState
	Pos         resort.Vec3
	PointID     string
	StructureID string
	Kind        routing.CandidateKind
	Progress    float64
}

type segmentReq struct {
	agentID string
	resp    chan *SegmentInfo
}

// CurrentSegment reports the lift or trail an agent is traversing, or its
// resting snap point. Returns false for unknown agents.
func (w *World) CurrentSegment(agentID string) (SegmentInfo, bool) {
	req := segmentReq{agentID: agentID, resp: make(chan *SegmentInfo, 1)}
	select {
	case w.segReqs <- req:
	case <-w.stop:
		return SegmentInfo{}, false
	}
	select {
	case info := <-req.resp:
		if info == nil {
			return SegmentInfo{}, false
		}
		return *info, true
	case <-w.stop:
		return SegmentInfo{}, false
	}
}

// Position reports an agent's interpolated world position.
func (w *World) Position(agentID string) (resort.Vec3, bool) {
	info, ok := w.CurrentSegment(agentID)
	return info.Pos, ok
}

func (w *World) handleSegmentReq(req segmentReq) {
	s, ok := w.agents[req.agentID]
	if !ok {
		req.resp <- nil
		return
	}
	info := &SegmentInfo{
		AgentID: s.ID,
		State:   s.State,
		Pos:     s.Pos,
		PointID: s.PointID,
	}
	if s.Seg != nil {
		info.StructureID = s.Seg.StructureID
		info.Kind = s.Seg.Kind
		info.Progress = s.Seg.Progress
	}
	req.resp <- info
}
