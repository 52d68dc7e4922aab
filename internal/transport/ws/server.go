// Package ws serves the observer websocket surface: HELLO/WELCOME handshake,
// one TICK frame per simulation tick, and TRACE_REQ lookups against the last
// routing decision of an agent. Observers are read-only; nothing on this
// surface mutates the world.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"snowline.sim/internal/protocol"
	"snowline.sim/internal/sim/world"
)

const (
	writeTimeout = 5 * time.Second
	readTimeout  = 60 * time.Second
)

type Server struct {
	world *world.World
	log   *log.Logger

	upgrader websocket.Upgrader
	nextID   atomic.Uint64
}

func NewServer(w *world.World, logger *log.Logger) *Server {
	return &Server{
		world: w,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		hello, ok := s.handshake(conn)
		if !ok {
			return
		}

		sid := fmt.Sprintf("OBS%d", s.nextID.Add(1))
		out := make(chan []byte, 8)

		welcome := protocol.WelcomeMsg{
			Type:            protocol.TypeWelcome,
			ProtocolVersion: protocol.Version,
			SessionID:       sid,
			WorldParams:     s.world.Params(),
		}
		if err := writeJSON(conn, welcome); err != nil {
			return
		}

		s.world.ObserverJoin(world.ObserverJoinRequest{
			SessionID:        sid,
			IncludeDecisions: hello.IncludeDecisions,
			Out:              out,
		})
		defer s.world.ObserverLeave(sid)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine: tick frames plus trace responses.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop: only TRACE_REQ is meaningful after the handshake.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				return
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				s.sendError(out, protocol.ErrProtoBadRequest, "unparseable message")
				continue
			}
			if base.Type != protocol.TypeTraceReq {
				s.sendError(out, protocol.ErrProtoBadRequest, fmt.Sprintf("unexpected %s", base.Type))
				continue
			}
			var req protocol.TraceReqMsg
			if err := json.Unmarshal(msg, &req); err != nil || req.AgentID == "" {
				s.sendError(out, protocol.ErrProtoBadRequest, "bad TRACE_REQ")
				continue
			}
			trace := s.world.DecisionTrace(req.AgentID)
			if trace == nil {
				s.sendError(out, protocol.ErrUnknownAgent, req.AgentID)
				continue
			}
			b, err := json.Marshal(trace)
			if err != nil {
				continue
			}
			select {
			case out <- b:
			case <-ctx.Done():
				return
			}
		}
	}
}

// handshake reads the HELLO frame; anything else closes the socket with a
// policy violation.
func (s *Server) handshake(conn *websocket.Conn) (protocol.HelloMsg, bool) {
	var hello protocol.HelloMsg

	_ = conn.SetReadDeadline(time.Now().Add(writeTimeout))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return hello, false
	}
	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closePolicy(conn, "expected HELLO")
		return hello, false
	}
	if err := json.Unmarshal(msg, &hello); err != nil {
		closePolicy(conn, "bad HELLO")
		return hello, false
	}
	if hello.ProtocolVersion != protocol.Version {
		closePolicy(conn, "bad protocol_version")
		return hello, false
	}
	if hello.ObserverName == "" {
		hello.ObserverName = "observer"
	}
	return hello, true
}

func (s *Server) sendError(out chan []byte, code, message string) {
	b, err := json.Marshal(protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		Code:            code,
		Message:         message,
	})
	if err != nil {
		return
	}
	select {
	case out <- b:
	default:
		// Error frames are droppable under backpressure.
	}
}

func closePolicy(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason),
		time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, b)
}
