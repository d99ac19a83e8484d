package chat

import "github.com/kapu/ghostwriter-go/internal/domain"

type FrameType string

const (
	FrameQuestion FrameType = "question"
	FrameReset    FrameType = "reset"
	FrameChunk    FrameType = "chunk"
	FrameDone     FrameType = "done"
	FrameError    FrameType = "error"
)

// Frame is the JSON message exchanged on the chat websocket.
type Frame struct {
	Type     FrameType       `json:"type"`
	Content  string          `json:"content,omitempty"`
	Sources  []domain.Source `json:"sources,omitempty"`
	Provider string          `json:"provider,omitempty"`
	Error    string          `json:"error,omitempty"`
}

type ConnState string

const (
	StateConnecting   ConnState = "CONNECTING"
	StateConnected    ConnState = "CONNECTED"
	StateDisconnected ConnState = "DISCONNECTED"
	StateFailed       ConnState = "FAILED"
)

func (s ConnState) String() string {
	return string(s)
}
