// Package wsapi is the UI WebSocket: a hub with per-client pumps that fans
// service notifications out to the launcher UI and feeds UI messages (layouts,
// visibility, navigation) back into the input service.
//
// Messages are JSON text frames with an envelope: {type, ts, data}. The first
// message on connect is "state_init" with a service.State in data. Slow
// clients are disconnected when their send buffer fills.
package wsapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// envelope is the wire format for outbound messages.
type envelope struct {
	Type string     `json:"type"`
	Ts   *time.Time `json:"ts,omitempty"`
	Data any        `json:"data,omitempty"`
}

// Hub tracks connected launcher UIs. Every write to a client's queue and the
// close of that queue happen under mu, so a client that has been dropped is
// never written to again.
type Hub struct {
	logger *slog.Logger

	// frames holds serialized envelopes waiting to be fanned out.
	frames chan []byte

	mu      sync.Mutex
	clients map[*Client]struct{}
	stopped bool

	sendBuf int
}

type HubConfig struct {
	// SendBuf is the per-client outbound queue size. Defaults to 32.
	SendBuf int
	// BroadcastBuf is the hub inbound broadcast queue size. Defaults to 128.
	BroadcastBuf int
}

// NewHub constructs a hub. Call Run(ctx) to start fan-out.
func NewHub(logger *slog.Logger, cfg HubConfig) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	sendBuf := cfg.SendBuf
	if sendBuf <= 0 {
		sendBuf = 32
	}
	frameBuf := cfg.BroadcastBuf
	if frameBuf <= 0 {
		frameBuf = 128
	}
	return &Hub{
		logger:  logger,
		frames:  make(chan []byte, frameBuf),
		clients: make(map[*Client]struct{}),
		sendBuf: sendBuf,
	}
}

// Run fans queued frames out to every client until ctx is canceled, then
// disconnects them all. Clients joining after that are closed on arrival.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("ws hub starting")
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("ws hub stopping", "clients", h.Clients())
			h.shutdown()
			return
		case frame := <-h.frames:
			h.fanOut(frame)
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// join adds c to the hub. It reports false when the hub has stopped, in
// which case c is already closed.
func (h *Hub) join(c *Client) bool {
	h.mu.Lock()
	if h.stopped {
		h.closeLocked(c)
		h.mu.Unlock()
		return false
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("ws client connected", "remote_addr", c.remoteAddr, "clients", n)
	return true
}

// deliver queues frame for c alone. A full queue drops the client.
func (h *Hub) deliver(c *Client, frame []byte) {
	h.mu.Lock()
	if c.closed {
		h.mu.Unlock()
		return
	}
	queued := enqueueFrame(c, frame)
	h.mu.Unlock()

	if !queued {
		h.drop(c, "slow_client")
	}
}

func (h *Hub) fanOut(frame []byte) {
	var slow []*Client
	h.mu.Lock()
	for c := range h.clients {
		if !enqueueFrame(c, frame) {
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()

	for _, c := range slow {
		h.drop(c, "slow_client")
	}
}

// drop removes c and closes its queue, which ends its write pump. Dropping
// a client twice is a no-op.
func (h *Hub) drop(c *Client, reason string) {
	h.mu.Lock()
	if c.closed {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	h.closeLocked(c)
	n := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("ws client disconnected", "remote_addr", c.remoteAddr, "reason", reason, "clients", n)
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopped = true
	for c := range h.clients {
		h.closeLocked(c)
		delete(h.clients, c)
	}
}

// closeLocked must be called with mu held.
func (h *Hub) closeLocked(c *Client) {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

func enqueueFrame(c *Client, frame []byte) bool {
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// BroadcastBytes queues a pre-serialized frame for every client. It never
// blocks; a full hub queue drops the frame.
func (h *Hub) BroadcastBytes(frame []byte) {
	select {
	case h.frames <- frame:
	default:
		h.logger.Warn("ws hub queue full, dropping frame", "bytes", len(frame))
	}
}

// Broadcast marshals a typed message and broadcasts it. It never blocks.
func (h *Hub) Broadcast(typ string, data any) {
	frame, err := marshalMessage(typ, data)
	if err != nil {
		h.logger.Warn("ws broadcast marshal failed", "type", typ, "error", err)
		return
	}
	h.BroadcastBytes(frame)
}

func marshalMessage(typ string, data any) ([]byte, error) {
	now := time.Now().UTC()
	return json.Marshal(envelope{Type: typ, Ts: &now, Data: data})
}
