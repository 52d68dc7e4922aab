package protocol

import "encoding/json"

const Version = "1.0"

// Message types (observer stream).
const (
	TypeHello    = "HELLO"
	TypeWelcome  = "WELCOME"
	TypeTick     = "TICK"
	TypeTraceReq = "TRACE_REQ"
	TypeTrace    = "TRACE"
	TypeError    = "ERROR"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
