package ws

import (
	"encoding/json"

	"github.com/rackup-app/messaging/internal/domain"
)

// Wire frames. Inbound from the client: {"type":"msg","text":...}. Outbound:
// {"type":"msg","message":{...}} for broadcasts, {"type":"error",...} for
// rejected sends.
const (
	FrameMsg   = "msg"
	FrameError = "error"
)

type Inbound struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type Outbound struct {
	Type    string          `json:"type"`
	Message *domain.Message `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func MessageFrame(m *domain.Message) ([]byte, error) {
	return json.Marshal(Outbound{Type: FrameMsg, Message: m})
}

func ErrorFrame(code string) []byte {
	payload, _ := json.Marshal(Outbound{Type: FrameError, Error: code})
	return payload
}
