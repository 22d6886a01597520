package wsapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

// Client is one connected launcher UI with its read and write pumps.
type Client struct {
	hub *Hub

	conn *websocket.Conn
	send chan []byte
	// closed is set once send is closed. Guarded by hub.mu.
	closed bool

	remoteAddr string
	logger     *slog.Logger

	// onMessage handles one inbound envelope. It runs on the read pump.
	onMessage func(c *Client, typ string, data json.RawMessage)
}

// NewClient creates a client with a buffered send channel.
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string, logger *slog.Logger) *Client {
	sendBuf := 32
	if hub != nil && hub.sendBuf > 0 {
		sendBuf = hub.sendBuf
	}
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBuf),
		remoteAddr: remoteAddr,
		logger:     logger,
	}
}

const (
	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 20 * time.Second

	maxMessageSize = 1 << 20
)

// inbound is the wire format for messages from the UI.
type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// closeStatus extracts a websocket close code and text when possible.
func closeStatus(err error) (code int, text string, ok bool) {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code, ce.Text, true
	}
	return 0, "", false
}

// Send queues a typed message for this client only. A client whose buffer
// is full is disconnected.
func (c *Client) Send(typ string, data any) {
	msg, err := marshalMessage(typ, data)
	if err != nil {
		c.logger.Warn("ws marshal failed", "type", typ, "error", err)
		return
	}
	if c.hub == nil {
		enqueueFrame(c, msg)
		return
	}
	c.hub.deliver(c, msg)
}

// writePump writes messages from the send queue to the websocket.
// It exits on write error or when send is closed.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Channel closed: hub is disconnecting us.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logExit("writePump", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logExit("writePump", err)
				return
			}
		}
	}
}

// readPump decodes UI messages and hands them to onMessage. It exits on read
// error, then drops the client from the hub.
func (c *Client) readPump(ctx context.Context) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logExit("readPump", err)
			if c.hub != nil {
				c.hub.drop(c, "read_error")
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg inbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.logger.Warn("ws invalid message", "remote_addr", c.remoteAddr, "error", err)
			c.Send("error", errorData{Message: "invalid message: " + err.Error()})
			continue
		}
		if c.onMessage != nil {
			c.onMessage(c, msg.Type, msg.Data)
		}
	}
}

func (c *Client) logExit(pump string, err error) {
	if errors.Is(err, websocket.ErrCloseSent) {
		return
	}
	if code, text, ok := closeStatus(err); ok {
		c.logger.Info("ws "+pump+" exiting (close)", "remote_addr", c.remoteAddr, "code", code, "reason", text)
		return
	}
	c.logger.Info("ws "+pump+" exiting", "remote_addr", c.remoteAddr, "error", err)
}

type errorData struct {
	Type    string `json:"type,omitempty"`
	Message string `json:"message"`
}
