package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// message is the kioskpad socket envelope.
type message struct {
	Type string          `json:"type"`
	Ts   *time.Time      `json:"ts,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

func main() {
	var (
		wsURL  = flag.String("ws", "ws://127.0.0.1:3002/ws", "kioskpad websocket URL")
		types  = flag.String("types", "", "Comma-separated message types to print (default: all)")
		send   = flag.String("send", "", "Send one message after connecting, e.g. '{\"type\":\"move\",\"data\":{\"direction\":\"left\"}}'")
		raw    = flag.Bool("raw", false, "Print raw frames instead of pretty JSON")
		expose = flag.Bool("visible", false, "Report the UI as visible on connect so controller input is sampled")
	)
	flag.Parse()

	u, err := url.Parse(*wsURL)
	if err != nil {
		log.Fatalf("invalid websocket URL: %v", err)
	}

	filter := make(map[string]bool)
	for _, t := range strings.Split(*types, ",") {
		if t = strings.TrimSpace(t); t != "" {
			filter[t] = true
		}
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	d := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	log.Printf("connecting to %s...", u.String())
	conn, _, err := d.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	log.Printf("connected! (press Ctrl+C to exit)")

	// Mutex to protect concurrent writes to websocket
	var writeMu sync.Mutex

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	// The server pings every 20s; answering also extends our deadline.
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	})

	if *expose {
		sendText(conn, &writeMu, []byte(`{"type":"visibility","data":{"visible":true}}`))
	}
	if *send != "" {
		sendText(conn, &writeMu, []byte(*send))
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			messageType, frame, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("websocket error: %v", err)
				}
				return
			}
			if messageType != websocket.TextMessage {
				fmt.Printf("[BINARY] %d bytes\n", len(frame))
				continue
			}
			printFrame(frame, filter, *raw)
		}
	}()

	select {
	case <-sigc:
		log.Printf("shutting down...")
		writeMu.Lock()
		err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		writeMu.Unlock()
		if err != nil {
			log.Printf("error closing connection: %v", err)
		}
	case <-done:
		log.Printf("connection closed")
	}
}

// printFrame prints one envelope as "[type] data".
func printFrame(frame []byte, filter map[string]bool, raw bool) {
	var m message
	if err := json.Unmarshal(frame, &m); err != nil {
		fmt.Printf("[TEXT] %s\n", string(frame))
		return
	}
	if len(filter) > 0 && !filter[m.Type] {
		return
	}
	if raw || len(m.Data) == 0 {
		fmt.Printf("[%s] %s\n", strings.ToUpper(m.Type), string(m.Data))
		return
	}
	var v any
	if err := json.Unmarshal(m.Data, &v); err != nil {
		fmt.Printf("[%s] %s\n", strings.ToUpper(m.Type), string(m.Data))
		return
	}
	pretty, _ := json.MarshalIndent(v, "", "  ")
	fmt.Printf("[%s]\n%s\n\n", strings.ToUpper(m.Type), string(pretty))
}

// sendText writes one text frame (thread-safe).
func sendText(conn *websocket.Conn, writeMu *sync.Mutex, payload []byte) {
	if !json.Valid(payload) {
		log.Printf("not sending invalid JSON: %s", string(payload))
		return
	}
	writeMu.Lock()
	err := conn.WriteMessage(websocket.TextMessage, payload)
	writeMu.Unlock()
	if err != nil {
		log.Printf("error sending message: %v", err)
	}
}
