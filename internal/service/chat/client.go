package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kapu/ghostwriter-go/internal/constants"
	"go.uber.org/zap"
)

// ChunkCallback receives each streamed piece of an answer.
type ChunkCallback func(content string)

// Client talks to a running chat server over its websocket.
type Client struct {
	wsURL   string
	conn    *websocket.Conn
	state   ConnState
	stateMu sync.RWMutex
	writeMu sync.Mutex
	logger  *zap.Logger
}

func NewClient(wsURL string, logger *zap.Logger) *Client {
	return &Client{
		wsURL:  wsURL,
		state:  StateDisconnected,
		logger: logger,
	}
}

func (c *Client) Connect(ctx context.Context) error {
	if c.GetState() == StateConnected {
		c.logger.Warn("WebSocket already connected")
		return nil
	}

	c.setState(StateConnecting)

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = constants.WebSocketConfig.HandshakeTimeout

	conn, _, err := dialer.DialContext(ctx, c.wsURL, nil)
	if err != nil {
		c.logger.Error("Failed to connect WebSocket", zap.Error(err))
		c.setState(StateFailed)
		return err
	}

	c.conn = conn
	c.setState(StateConnected)
	c.logger.Info("WebSocket connected", zap.String("url", c.wsURL))
	return nil
}

// Ask sends a question and blocks until the server sends the final frame.
// onChunk may be nil.
func (c *Client) Ask(ctx context.Context, question string, onChunk ChunkCallback) (*Frame, error) {
	if err := c.send(ctx, Frame{Type: FrameQuestion, Content: question}); err != nil {
		return nil, err
	}

	for {
		frame, err := c.read(ctx)
		if err != nil {
			return nil, err
		}
		switch frame.Type {
		case FrameChunk:
			if onChunk != nil {
				onChunk(frame.Content)
			}
		case FrameDone:
			return frame, nil
		case FrameError:
			return nil, fmt.Errorf("chat server: %s", frame.Error)
		}
	}
}

// Reset clears the server side conversation history.
func (c *Client) Reset(ctx context.Context) error {
	if err := c.send(ctx, Frame{Type: FrameReset}); err != nil {
		return err
	}
	frame, err := c.read(ctx)
	if err != nil {
		return err
	}
	if frame.Type != FrameDone {
		return fmt.Errorf("unexpected %s frame after reset", frame.Type)
	}
	return nil
}

func (c *Client) send(ctx context.Context, frame Frame) error {
	if c.conn == nil {
		return fmt.Errorf("websocket not connected")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline := time.Now().Add(constants.WebSocketConfig.WriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = c.conn.SetWriteDeadline(deadline)
	return c.conn.WriteJSON(frame)
}

func (c *Client) read(ctx context.Context) (*Frame, error) {
	if c.conn == nil {
		return nil, fmt.Errorf("websocket not connected")
	}
	if d, ok := ctx.Deadline(); ok {
		_ = c.conn.SetReadDeadline(d)
	} else {
		_ = c.conn.SetReadDeadline(time.Time{})
	}

	var frame Frame
	if err := c.conn.ReadJSON(&frame); err != nil {
		c.logger.Error("WebSocket read error", zap.Error(err))
		c.setState(StateDisconnected)
		return nil, err
	}
	return &frame, nil
}

func (c *Client) setState(newState ConnState) {
	c.stateMu.Lock()
	oldState := c.state
	c.state = newState
	c.stateMu.Unlock()

	if oldState != newState {
		c.logger.Debug("WebSocket state changed",
			zap.String("from", oldState.String()),
			zap.String("to", newState.String()),
		)
	}
}

func (c *Client) GetState() ConnState {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

func (c *Client) IsConnected() bool {
	return c.GetState() == StateConnected
}

func (c *Client) Disconnect() error {
	if c.conn == nil {
		return nil
	}

	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()

	err := c.conn.Close()
	c.conn = nil
	c.setState(StateDisconnected)
	c.logger.Info("WebSocket disconnected")
	return err
}
