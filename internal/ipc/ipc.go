// Package ipc is the daemon's Unix domain socket control interface.
//
// Protocol: line-delimited JSON.
//   - Client sends: {"type": "event_name", "data": {...}}
//   - Server responds: {"status": "ok", "data": ...} or
//     {"status": "error", "error": "msg"}
//
// Event types are the service event envelope types plus "state", which
// answers with a snapshot of the input service.
package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"kioskpad/internal/service"
)

// TypeState requests a state snapshot.
const TypeState = "state"

// requestTimeout bounds each round trip into the service.
const requestTimeout = 2 * time.Second

// Response is sent back for every request line.
type Response struct {
	Status string          `json:"status"`          // "ok" or "error"
	Error  string          `json:"error,omitempty"` // error message if status == "error"
	Data   json.RawMessage `json:"data,omitempty"`
}

// Backend is the input service as the socket sees it.
type Backend interface {
	Do(ctx context.Context, ev service.Event) (any, error)
	Snapshot(ctx context.Context) (service.State, error)
}

// Serve listens on socketPath until ctx is canceled, at which point it closes
// the listener and exits.
func Serve(ctx context.Context, socketPath string, backend Backend, logger *slog.Logger) error {
	if err := os.RemoveAll(socketPath); err != nil {
		return fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", socketPath, err)
	}
	defer listener.Close()
	defer os.Remove(socketPath)

	if err := os.Chmod(socketPath, 0o660); err != nil {
		return fmt.Errorf("chmod socket: %w", err)
	}

	logger.Info("IPC listening", "socket", socketPath)

	// Close the listener on shutdown. This unblocks Accept().
	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				logger.Debug("IPC listener closed (shutdown)")
				return nil
			}
			if errors.Is(err, net.ErrClosed) || strings.Contains(err.Error(), "use of closed network connection") {
				logger.Debug("IPC listener closed")
				return nil
			}

			logger.Error("IPC accept error", "error", err)
			continue
		}

		go handleConnection(ctx, conn, backend, logger)
	}
}

// handleConnection answers request lines until the client hangs up.
func handleConnection(ctx context.Context, conn net.Conn, backend Backend, logger *slog.Logger) {
	defer conn.Close()

	logger.Debug("IPC connection", "remote_addr", conn.RemoteAddr())

	scanner := bufio.NewScanner(conn)
	encoder := json.NewEncoder(conn)

	for scanner.Scan() {
		line := scanner.Bytes()
		logger.Debug("IPC received", "line", string(line))

		resp := handleLine(ctx, line, backend)
		if err := encoder.Encode(resp); err != nil {
			logger.Error("IPC failed to send response", "error", err)
			return
		}
	}

	logger.Debug("IPC connection closed")
}

func handleLine(ctx context.Context, line []byte, backend Backend) Response {
	var env service.EventEnvelope
	if err := json.Unmarshal(line, &env); err != nil {
		return errorResponse(fmt.Errorf("parse event: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var (
		result any
		err    error
	)
	if env.Type == TypeState {
		result, err = backend.Snapshot(ctx)
	} else {
		var ev service.Event
		ev, err = service.DecodeEvent(env.Type, env.Data)
		if err != nil {
			return errorResponse(fmt.Errorf("parse event: %w", err))
		}
		result, err = backend.Do(ctx, ev)
	}
	if err != nil {
		return errorResponse(err)
	}

	resp := Response{Status: "ok"}
	if result != nil {
		data, err := json.Marshal(result)
		if err != nil {
			return errorResponse(fmt.Errorf("encode result: %w", err))
		}
		resp.Data = data
	}
	return resp
}

func errorResponse(err error) Response {
	return Response{Status: "error", Error: err.Error()}
}

// ============================================================================
// Client
// ============================================================================

// Send sends an event to the daemon and returns its response data.
func Send(socketPath string, ev service.Event) (json.RawMessage, error) {
	data, err := service.MarshalEvent(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return SendRaw(socketPath, data)
}

// State requests a state snapshot from the daemon.
func State(socketPath string) (service.State, error) {
	data, err := SendRaw(socketPath, []byte(`{"type":"state"}`))
	if err != nil {
		return service.State{}, err
	}
	var st service.State
	if err := json.Unmarshal(data, &st); err != nil {
		return service.State{}, fmt.Errorf("decode state: %w", err)
	}
	return st, nil
}

// SendRaw sends one pre-encoded request line and returns the response data.
func SendRaw(socketPath string, line []byte) (json.RawMessage, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	if _, err := fmt.Fprintf(conn, "%s\n", strings.TrimSpace(string(line))); err != nil {
		return nil, fmt.Errorf("send event: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.Status != "ok" {
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}
	return resp.Data, nil
}
