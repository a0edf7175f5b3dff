// Copyright 2026 The Coddy Authors
// SPDX-License-Identifier: Apache-2.0

package hub

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/coddy-project/coddy/relay"
)

// DefaultHistorySize is the number of frames retained for replay to
// newly connected clients.
const DefaultHistorySize = 256

// sendBacklog is the per-client queue depth beyond the history replay.
// A client that falls this far behind is disconnected rather than
// allowed to stall the broadcast path.
const sendBacklog = 64

// Executor receives relay commands extracted from client traffic. The
// engine bridge implements it; tests substitute fakes.
type Executor interface {
	Submit(command string) error
}

// Config configures a Hub.
type Config struct {
	// HistorySize is the number of frames replayed to a connecting
	// client. Defaults to DefaultHistorySize; negative disables replay.
	HistorySize int

	// Executor handles cli_input commands. Optional: without one,
	// commands are dropped with a warning broadcast.
	Executor Executor

	// Logger receives structured logs. Defaults to slog.Default().
	Logger *slog.Logger
}

// Hub is the relay server: it accepts websocket clients, fans every
// frame out to all of them, hands relay commands to the Executor, and
// replays recent traffic to clients that connect late. Clients whose
// transport fails or stalls are pruned; the hub itself runs until
// Close.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu       sync.Mutex
	executor Executor
	history  *frameHistory
	clients  map[*client]struct{}
	closed   bool
}

// New creates a Hub. Register it on an HTTP mux; it serves the
// websocket upgrade endpoint.
func New(config Config) *Hub {
	historySize := config.HistorySize
	if historySize == 0 {
		historySize = DefaultHistorySize
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The dashboard may be served from a different origin
			// than the hub; frame content is display data, not an
			// authenticated mutation surface.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		executor: config.Executor,
		logger:   logger,
		history:  newFrameHistory(historySize),
		clients:  make(map[*client]struct{}),
	}
}

// SetExecutor attaches the command executor. The hub broadcasts a
// warning for commands that arrive while no executor is attached.
func (h *Hub) SetExecutor(executor Executor) {
	h.mu.Lock()
	h.executor = executor
	h.mu.Unlock()
}

// client is one connected websocket peer. Frames are queued on send
// and written by a dedicated goroutine (the connection allows a single
// writer). teardown runs exactly once regardless of which pump fails
// first.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

// ServeHTTP upgrades the request and registers the client. The
// retained history is queued before the client becomes eligible for
// live broadcasts, so replayed frames always precede live ones.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, len(h.history.entries)+sendBacklog),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	for _, payload := range h.history.snapshot() {
		c.send <- payload
	}
	h.clients[c] = struct{}{}
	clientCount := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("client connected", "remote", r.RemoteAddr, "clients", clientCount)

	go c.writePump()
	go c.readPump()
}

// Broadcast fans one frame out to every connected client and records
// it in the replay history. This is the producer entry point for the
// engine bridge and for client-originated frames.
func (h *Hub) Broadcast(frame relay.Frame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		h.logger.Error("encode frame for broadcast", "kind", frame.Kind, "error", err)
		return
	}

	var stalled []*client
	h.mu.Lock()
	h.history.append(payload)
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			stalled = append(stalled, c)
		}
	}
	h.mu.Unlock()

	// Prune clients that cannot keep up, outside the lock.
	for _, c := range stalled {
		h.logger.Warn("dropping stalled client")
		c.teardown()
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new connections.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	remaining := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		remaining = append(remaining, c)
	}
	h.mu.Unlock()

	for _, c := range remaining {
		c.teardown()
	}
}

// handleInbound processes one payload received from a client:
// relay commands go to the Executor, well-formed frames are
// re-broadcast, and anything unparsable is broadcast as a warning
// quoting the payload — client mistakes are surfaced, never fatal.
func (h *Hub) handleInbound(payload []byte) {
	if intent, ok := relay.DecodeIntent(string(payload)); ok {
		h.logger.Info("engine command received", "command", intent.Command)
		h.mu.Lock()
		executor := h.executor
		h.mu.Unlock()
		if executor == nil {
			h.Broadcast(relay.Frame{Kind: "warning", Text: "No engine attached; command dropped: " + intent.Command})
			return
		}
		if err := executor.Submit(intent.Command); err != nil {
			h.logger.Warn("engine submit failed", "command", intent.Command, "error", err)
			h.Broadcast(relay.Frame{Kind: "error", Text: fmt.Sprintf("Engine rejected command: %v", err)})
		}
		return
	}

	if !json.Valid(payload) {
		h.logger.Warn("non-JSON payload from client", "payload", string(payload))
		h.Broadcast(relay.Frame{Kind: "warning", Text: "Received non-JSON payload from a client: " + string(payload)})
		return
	}

	h.Broadcast(relay.DecodeFrame(string(payload)))
}

func (h *Hub) removeClient(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	clientCount := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("client disconnected", "clients", clientCount)
}

// readPump consumes inbound messages until the connection fails.
func (c *client) readPump() {
	defer c.teardown()
	for {
		messageType, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		c.hub.handleInbound(payload)
	}
}

// writePump drains the send queue onto the connection.
func (c *client) writePump() {
	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			c.teardown()
			return
		}
	}
}

// teardown unregisters the client and closes its connection and send
// queue. The queue is closed only after removal from the registry, so
// no broadcast can enqueue onto a closed channel (enqueues happen
// under the registry lock).
func (c *client) teardown() {
	c.once.Do(func() {
		c.hub.removeClient(c)
		_ = c.conn.Close()
		close(c.send)
	})
}
