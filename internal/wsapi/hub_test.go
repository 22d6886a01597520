package wsapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"kioskpad/internal/logging"
	"kioskpad/internal/navigator"
)

// These tests exercise hub fan-out and slow-client eviction without a real
// websocket: clients have a nil conn, which the hub guards against.

func discardLogger() *slog.Logger { return logging.Discard() }

func newTestHub(t *testing.T, sendBuf int, broadcastBuf int) *Hub {
	t.Helper()
	return NewHub(discardLogger(), HubConfig{
		SendBuf:      sendBuf,
		BroadcastBuf: broadcastBuf,
	})
}

func startHub(t *testing.T, hub *Hub) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.Run(ctx)
	}()
	return func() {
		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for hub to stop")
		}
	}
}

func testClient(hub *Hub, name string, buf int) *Client {
	return &Client{hub: hub, send: make(chan []byte, buf), remoteAddr: name, logger: discardLogger()}
}

func joinClient(t *testing.T, hub *Hub, c *Client) {
	t.Helper()
	if !hub.join(c) {
		t.Fatalf("%s: expected join to succeed", c.remoteAddr)
	}
}

func TestHub_BroadcastDeliveredToAllClients(t *testing.T) {
	hub := newTestHub(t, 4, 8)
	stop := startHub(t, hub)
	defer stop()

	c1 := testClient(hub, "c1", 4)
	c2 := testClient(hub, "c2", 4)
	joinClient(t, hub, c1)
	joinClient(t, hub, c2)

	msg := []byte(`{"type":"back"}`)
	hub.frames <- msg

	for _, c := range []*Client{c1, c2} {
		select {
		case got := <-c.send:
			if string(got) != string(msg) {
				t.Fatalf("%s: expected %q, got %q", c.remoteAddr, msg, got)
			}
		case <-time.After(500 * time.Millisecond):
			t.Fatalf("timeout waiting for %s to receive broadcast", c.remoteAddr)
		}
	}
}

func TestHub_SlowClientDisconnectedOnFullSendBuffer(t *testing.T) {
	hub := newTestHub(t, 1, 8)
	stop := startHub(t, hub)
	defer stop()

	slow := testClient(hub, "slow", 1)
	fast := testClient(hub, "fast", 8)
	joinClient(t, hub, slow)
	joinClient(t, hub, fast)

	slow.send <- []byte(`"already queued"`)

	msg := []byte(`{"type":"stop_all"}`)
	hub.frames <- msg

	select {
	case got := <-fast.send:
		if string(got) != string(msg) {
			t.Fatalf("expected %q, got %q", msg, got)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timeout waiting for fast client to receive broadcast")
	}

	select {
	case <-slow.send:
	default:
	}
	waitUntil(t, 750*time.Millisecond, func() bool {
		select {
		case _, ok := <-slow.send:
			return !ok
		default:
			return false
		}
	}, "expected slow send channel to be closed")
	waitUntil(t, 500*time.Millisecond, func() bool { return hub.Clients() == 1 }, "expected one client left")
}

func TestClient_SendAfterDropIsIgnored(t *testing.T) {
	hub := newTestHub(t, 2, 8)
	c := testClient(hub, "gone", 2)
	joinClient(t, hub, c)

	hub.drop(c, "test")
	hub.drop(c, "test")
	c.Send("focus", map[string]string{"id": "a"})

	if _, ok := <-c.send; ok {
		t.Fatalf("expected closed send channel after drop")
	}
	if hub.Clients() != 0 {
		t.Fatalf("expected 0 clients, got %d", hub.Clients())
	}
}

func TestClient_SendOnFullQueueDropsWithoutBlocking(t *testing.T) {
	hub := newTestHub(t, 1, 8)
	c := testClient(hub, "full", 1)
	joinClient(t, hub, c)

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Send("back", nil)
		c.Send("back", nil)
		c.Send("back", nil)
	}()
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timeout: Send blocked on a full queue with no hub running")
	}
	if hub.Clients() != 0 {
		t.Fatalf("expected full client dropped, got %d clients", hub.Clients())
	}
}

func TestHub_JoinAfterStopClosesClient(t *testing.T) {
	hub := newTestHub(t, 2, 8)
	stop := startHub(t, hub)
	stop()

	c := testClient(hub, "late", 2)
	if hub.join(c) {
		t.Fatalf("expected join to fail after the hub stopped")
	}
	if _, ok := <-c.send; ok {
		t.Fatalf("expected late client's send channel closed")
	}
	c.Send("back", nil)
}

func TestHub_HostActionsAreBroadcast(t *testing.T) {
	hub := newTestHub(t, 8, 8)
	stop := startHub(t, hub)
	defer stop()
	c := testClient(hub, "ui", 8)
	joinClient(t, hub, c)

	item := navigator.Item{ID: "tile-1"}
	if err := hub.Activate(item); err != nil {
		t.Fatalf("activate: %v", err)
	}
	hub.RequestVisible("main", item)
	_ = hub.SuspendAll()

	want := []string{"activate", "scroll_into_view", "suspend_all"}
	for _, typ := range want {
		select {
		case raw := <-c.send:
			var env struct {
				Type string          `json:"type"`
				Ts   *time.Time      `json:"ts"`
				Data json.RawMessage `json:"data"`
			}
			if err := json.Unmarshal(raw, &env); err != nil {
				t.Fatalf("decode %s: %v", raw, err)
			}
			if env.Type != typ || env.Ts == nil {
				t.Fatalf("expected %s with timestamp, got %s", typ, raw)
			}
		case <-time.After(500 * time.Millisecond):
			t.Fatalf("timeout waiting for %s", typ)
		}
	}
}

func TestDecodeInbound(t *testing.T) {
	ev, err := decodeInbound("visibility", json.RawMessage(`{"visible":false}`))
	if err != nil {
		t.Fatalf("visibility: %v", err)
	}
	if ev == nil {
		t.Fatalf("expected an event")
	}
	if _, err := decodeInbound("configure", json.RawMessage(`{"slot":2}`)); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if _, err := decodeInbound("rescan", nil); err == nil {
		t.Fatalf("expected rescan to be rejected from the UI")
	}
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timeout: %s", msg)
}
