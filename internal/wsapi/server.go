package wsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"kioskpad/internal/navigator"
	"kioskpad/internal/service"
)

// Backend is the part of the input service the socket drives.
type Backend interface {
	Do(ctx context.Context, ev service.Event) (any, error)
	Snapshot(ctx context.Context) (service.State, error)
}

// ============================================================================
// HTTP Handler + server wiring helpers
// ============================================================================

type Server struct {
	logger *slog.Logger

	hub     *Hub
	backend Backend
	layouts *navigator.LayoutStore

	requestTimeout time.Duration
}

type ServerConfig struct {
	Hub HubConfig
	// RequestTimeout bounds each round trip into the service. Defaults to 1s.
	RequestTimeout time.Duration
}

// NewServer constructs the socket server. Start Hub().Run(ctx) and mount the
// server as an http.Handler. backend may be set later with SetBackend, since
// the hub is also the service's host and scroller.
func NewServer(logger *slog.Logger, layouts *navigator.LayoutStore, cfg ServerConfig) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = time.Second
	}
	return &Server{
		logger:         logger,
		hub:            NewHub(logger, cfg.Hub),
		layouts:        layouts,
		requestTimeout: timeout,
	}
}

func (s *Server) Hub() *Hub { return s.hub }

// SetBackend sets the service the socket forwards UI messages to. It must be
// called before the server accepts connections.
func (s *Server) SetBackend(b Backend) { s.backend = b }

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeHTTP upgrades and joins a client, then sends state_init.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", "error", err)
		return
	}

	client := NewClient(s.hub, conn, r.RemoteAddr, s.logger)
	client.onMessage = s.handleMessage

	// Join first so broadcasts can reach it.
	if !s.hub.join(client) {
		return
	}

	// The pumps outlive the request; net/http cancels r.Context() when the
	// handler returns.
	go client.writePump(context.Background())
	go client.readPump(context.Background())

	if s.backend == nil {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()
	st, err := s.backend.Snapshot(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.Warn("ws snapshot request failed", "error", err)
		}
		return
	}
	client.Send("state_init", st)
}

// handleMessage applies one UI message.
func (s *Server) handleMessage(c *Client, typ string, data json.RawMessage) {
	if err := s.apply(typ, data); err != nil {
		s.logger.Warn("ws message failed", "remote_addr", c.remoteAddr, "type", typ, "error", err)
		c.Send("error", errorData{Type: typ, Message: err.Error()})
	}
}

// layoutMessage is a layout plus an optional request to make its scope the
// active one.
type layoutMessage struct {
	navigator.Layout
	Active bool `json:"active,omitempty"`
}

func (s *Server) apply(typ string, data json.RawMessage) error {
	if typ == "layout" {
		if s.layouts == nil {
			return errors.New("layouts not accepted")
		}
		var m layoutMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return fmt.Errorf("decode layout: %w", err)
		}
		l := m.Layout
		if err := s.layouts.Set(&l); err != nil {
			return fmt.Errorf("layout %q: %w", l.Scope, err)
		}
		if !m.Active {
			return nil
		}
		return s.do(service.SetScope{Scope: l.Scope})
	}

	ev, err := decodeInbound(typ, data)
	if err != nil {
		return err
	}
	return s.do(ev)
}

func (s *Server) do(ev service.Event) error {
	if s.backend == nil {
		return errors.New("service not available")
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.requestTimeout)
	defer cancel()
	_, err := s.backend.Do(ctx, ev)
	return err
}

// decodeInbound maps UI message types onto service events.
func decodeInbound(typ string, data json.RawMessage) (service.Event, error) {
	switch typ {
	case "visibility":
		return service.DecodeEvent("set_visible", data)
	case "configure":
		return service.DecodeEvent("start_configurator", data)
	case "move", "activate", "back", "focus", "abort_configurator":
		return service.DecodeEvent(typ, data)
	default:
		return nil, fmt.Errorf("unknown message type %q", typ)
	}
}
