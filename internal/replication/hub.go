package replication

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/udisondev/scalekit/internal/crypto"
	"github.com/udisondev/scalekit/internal/storage"
)

// maxCommandSize bounds a single client message.
const maxCommandSize = 4096

// HubConfig tunes client connections.
type HubConfig struct {
	WriteTimeout  time.Duration
	SendQueueSize int
}

// DefaultHubConfig returns the settings used when none are configured.
func DefaultHubConfig() HubConfig {
	return HubConfig{WriteTimeout: 5 * time.Second, SendQueueSize: 64}
}

type outbound struct {
	kind int
	data []byte
}

type client struct {
	id     uint64
	remote string
	conn   *websocket.Conn
	send   chan outbound

	// Guarded by Hub.mu.
	closed    bool
	closeCode int
	closeText string
}

// Hub serves replication to WebSocket clients. Every client first receives a
// keyframe, then the batches flushed after each simulation step. Clients
// send JSON commands, which run on the simulation goroutine.
type Hub struct {
	cfg      HubConfig
	sim      storage.Submitter
	tracker  *Tracker
	exec     *Executor
	cipher   *crypto.FrameCipher
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}

	nextID    atomic.Uint64
	broadcast atomic.Uint64
	dropped   atomic.Uint64
}

// NewHub creates a hub. cipher may be nil for plaintext frames.
func NewHub(sim storage.Submitter, t *Tracker, x *Executor, cipher *crypto.FrameCipher, cfg HubConfig) *Hub {
	if cfg.SendQueueSize < 1 {
		cfg.SendQueueSize = DefaultHubConfig().SendQueueSize
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultHubConfig().WriteTimeout
	}
	return &Hub{
		cfg:     cfg,
		sim:     sim,
		tracker: t,
		exec:    x,
		cipher:  cipher,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients: make(map[*client]struct{}),
	}
}

// Clients returns the number of registered clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Batches returns how many batches have been broadcast.
func (h *Hub) Batches() uint64 {
	return h.broadcast.Load()
}

// Dropped returns how many clients were disconnected for falling behind.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// Handle upgrades the request and serves the client until it disconnects.
func (h *Hub) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := &client{
		id:     h.nextID.Add(1),
		remote: r.RemoteAddr,
		conn:   conn,
		send:   make(chan outbound, h.cfg.SendQueueSize),
	}

	// Registration runs on the simulation goroutine so the keyframe is
	// ordered before every batch broadcast after it.
	if err := h.sim.Submit(func() { h.register(c) }); err != nil {
		slog.Warn("rejecting client", "remote", c.remote, "error", err)
		msg := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server busy")
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(h.cfg.WriteTimeout))
		conn.Close()
		return
	}

	go h.writePump(c)
	h.readPump(context.WithoutCancel(r.Context()), c)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.closed {
		return
	}

	frame, err := h.cipher.Seal(h.tracker.Keyframe())
	if err != nil {
		slog.Error("sealing keyframe", "client", c.id, "error", err)
		h.dropLocked(c, websocket.CloseInternalServerErr, "keyframe failed")
		return
	}
	h.clients[c] = struct{}{}
	h.enqueueLocked(c, outbound{kind: websocket.BinaryMessage, data: frame})
	slog.Info("replication client connected", "client", c.id, "remote", c.remote)
}

func (h *Hub) readPump(ctx context.Context, c *client) {
	defer h.drop(c, websocket.CloseNormalClosure, "")

	c.conn.SetReadLimit(maxCommandSize)
	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("client read failed", "client", c.id, "error", err)
			}
			return
		}

		var cmd Command
		if err := json.Unmarshal(payload, &cmd); err != nil {
			slog.Debug("discarding malformed command", "client", c.id, "error", err)
			h.reply(c, Reply{Type: "reject", Reason: "malformed command"})
			continue
		}

		err = h.sim.Submit(func() {
			h.reply(c, h.exec.Execute(ctx, cmd))
		})
		if err != nil {
			h.reply(c, reject(cmd, err))
		}
	}
}

func (h *Hub) writePump(c *client) {
	defer c.conn.Close()

	failed := false
	for msg := range c.send {
		if failed {
			continue
		}
		c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
		if err := c.conn.WriteMessage(msg.kind, msg.data); err != nil {
			slog.Debug("client write failed", "client", c.id, "error", err)
			failed = true
			h.drop(c, websocket.CloseAbnormalClosure, "")
		}
	}

	if !failed {
		h.mu.Lock()
		code, text := c.closeCode, c.closeText
		h.mu.Unlock()
		msg := websocket.FormatCloseMessage(code, text)
		c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(h.cfg.WriteTimeout))
	}
	slog.Info("replication client disconnected", "client", c.id, "remote", c.remote)
}

func (h *Hub) reply(c *client, r Reply) {
	data, err := json.Marshal(r)
	if err != nil {
		slog.Error("encoding reply", "client", c.id, "error", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.enqueueLocked(c, outbound{kind: websocket.TextMessage, data: data})
}

// Broadcast flushes the tracker and fans the batches out to every client.
// It is meant to run as a post-step hook on the simulation goroutine.
func (h *Hub) Broadcast(step uint64) {
	for _, batch := range h.tracker.Flush() {
		frame, err := h.cipher.Seal(batch)
		if err != nil {
			slog.Error("sealing batch", "step", step, "error", err)
			continue
		}

		h.mu.Lock()
		for c := range h.clients {
			h.enqueueLocked(c, outbound{kind: websocket.BinaryMessage, data: frame})
		}
		h.mu.Unlock()
		h.broadcast.Add(1)
	}
}

func (h *Hub) enqueueLocked(c *client, msg outbound) {
	if c.closed {
		return
	}
	select {
	case c.send <- msg:
	default:
		slog.Warn("dropping slow client", "client", c.id, "remote", c.remote)
		h.dropped.Add(1)
		h.dropLocked(c, websocket.ClosePolicyViolation, "too slow")
	}
}

func (h *Hub) drop(c *client, code int, text string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(c, code, text)
}

func (h *Hub) dropLocked(c *client, code int, text string) {
	if c.closed {
		return
	}
	c.closed = true
	c.closeCode, c.closeText = code, text
	delete(h.clients, c)
	close(c.send)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.dropLocked(c, websocket.CloseGoingAway, "server shutting down")
	}
}
