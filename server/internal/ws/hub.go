package ws

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ok1iuo/ROTARTOR-ESP32-LAN/server/internal/metrics"
)

var (
	// ErrConnectionGone is returned by Send when the target id is not open.
	ErrConnectionGone = errors.New("ws: connection gone")

	// ErrSendFailed is returned by Send when the frame could not be queued.
	ErrSendFailed = errors.New("ws: send failed")

	// ErrUpgradeRejected marks a request that was not a valid WebSocket upgrade.
	ErrUpgradeRejected = errors.New("ws: upgrade rejected")

	// ErrHubClosed is returned by List after Close.
	ErrHubClosed = errors.New("ws: hub closed")
)

// Options tunes per-connection behaviour. Zero fields fall back to defaults.
type Options struct {
	// SendBuffer is the per-client outgoing frame buffer depth.
	SendBuffer int

	// WriteTimeout is the deadline for a single write to a client.
	WriteTimeout time.Duration

	// PongWait is how long to wait for a pong before treating the connection
	// as dead. Pings go out every 9/10 of it. Values below MinPongWait are
	// raised to it.
	PongWait time.Duration

	// ReadLimit caps inbound frame size.
	ReadLimit int64
}

func (o Options) withDefaults() Options {
	if o.SendBuffer <= 0 {
		o.SendBuffer = 16
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	switch {
	case o.PongWait <= 0:
		o.PongWait = 60 * time.Second
	case o.PongWait < MinPongWait:
		o.PongWait = MinPongWait
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = 512
	}
	return o
}

// MinPongWait is the smallest PongWait a Hub runs with.
const MinPongWait = 100 * time.Millisecond

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The page is served from the same origin on a LAN device; any origin may connect.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub owns the set of open WebSocket connections. It upgrades incoming
// requests, tracks each session under a random id, and lets a caller list
// the open ids and queue frames to them without blocking on the network.
type Hub struct {
	opts    Options
	metrics *metrics.WebSocketMetrics

	mu      sync.RWMutex
	clients map[uuid.UUID]*client
	closed  bool
}

// client represents one open WebSocket session.
type client struct {
	id   uuid.UUID
	conn *websocket.Conn
	send chan []byte
}

// New creates a Hub. m must not be nil.
func New(opts Options, m *metrics.WebSocketMetrics) *Hub {
	return &Hub{
		opts:    opts.withDefaults(),
		metrics: m,
		clients: make(map[uuid.UUID]*client),
	}
}

// ServeHTTP upgrades the HTTP connection to WebSocket and registers the
// session. Nothing is sent on connect; the client sees the next broadcast.
// Blocks until the connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		h.metrics.UpgradesRejected.Inc()
		slog.Debug("ws: upgrade failed", "remote", r.RemoteAddr, "err", fmt.Errorf("%w: %v", ErrUpgradeRejected, err))
		return
	}

	c := &client{
		id:   uuid.New(),
		conn: conn,
		send: make(chan []byte, h.opts.SendBuffer),
	}
	if !h.register(c) {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "")) //nolint:errcheck
		conn.Close()
		return
	}
	defer h.unregister(c.id)

	slog.Debug("ws: client connected", "conn", c.id, "remote", r.RemoteAddr)

	go h.writePump(c)
	h.readPump(c) // blocks until connection closes

	slog.Debug("ws: client disconnected", "conn", c.id)
}

// List returns the ids of all currently open connections. The result is a
// snapshot; any id in it may close before the caller uses it.
func (h *Hub) List() ([]uuid.UUID, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return nil, ErrHubClosed
	}
	ids := make([]uuid.UUID, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	return ids, nil
}

// Send queues one text frame for the connection with the given id. It never
// waits for the network: the frame is written by the client's write pump.
//
// It returns ErrConnectionGone when id is not open, and an error wrapping
// ErrSendFailed when the client's buffer is full. A client with a full buffer
// is disconnected.
func (h *Hub) Send(id uuid.UUID, msg []byte) error {
	h.mu.RLock()
	c, ok := h.clients[id]
	if !ok {
		h.mu.RUnlock()
		return ErrConnectionGone
	}
	// unregister closes c.send under the write lock, so the channel is open here.
	select {
	case c.send <- msg:
		h.mu.RUnlock()
		return nil
	default:
	}
	h.mu.RUnlock()

	h.metrics.SlowClientsEvicted.Inc()
	h.unregister(id)
	return fmt.Errorf("%w: %s: outgoing buffer full (%d frames)", ErrSendFailed, id, h.opts.SendBuffer)
}

// Count returns the number of currently connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and makes List fail from now on. New
// upgrades are refused. Safe to call more than once.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, c := range h.clients {
		close(c.send)
		delete(h.clients, id)
		h.metrics.ActiveConnections.Dec()
	}
}

// --- internal ---------------------------------------------------------------

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c.id] = c
	h.metrics.ActiveConnections.Inc()
	h.metrics.ConnectionsTotal.Inc()
	return true
}

// unregister removes id from the registry and closes its send channel, which
// makes the write pump send a close frame and drop the connection. Idempotent.
func (h *Hub) unregister(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[id]; ok {
		delete(h.clients, id)
		close(c.send)
		h.metrics.ActiveConnections.Dec()
	}
}

// writePump drains the client's send channel and forwards frames to the
// WebSocket connection. It also sends periodic ping frames. Runs in its own
// goroutine per client.
func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod(h.opts.PongWait))
	defer func() {
		ticker.Stop()
		c.conn.Close()
		h.unregister(c.id)
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(h.opts.WriteTimeout)) //nolint:errcheck
			if !ok {
				// Removed from the registry or hub shutting down.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				slog.Warn("ws: write failed", "conn", c.id, "err", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(h.opts.WriteTimeout)) //nolint:errcheck
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// pingPeriod leaves a tenth of pongWait for the pong to arrive.
func pingPeriod(pongWait time.Duration) time.Duration {
	return pongWait * 9 / 10
}

// readPump reads and discards inbound frames so control frames (pong, close)
// are processed and disconnects are noticed. Blocks until the connection closes.
func (h *Hub) readPump(c *client) {
	defer c.conn.Close()
	c.conn.SetReadLimit(h.opts.ReadLimit)
	c.conn.SetReadDeadline(time.Now().Add(h.opts.PongWait)) //nolint:errcheck
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(h.opts.PongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
